// Package api holds the JSON wire types shared by recordd and recordctl and
// a small HTTP client for them.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dreamware/tuplestore/internal/query"
	"github.com/dreamware/tuplestore/internal/shard"
	"github.com/dreamware/tuplestore/internal/storage"
)

// ErrNotFound is returned when the server answers 404
var ErrNotFound = errors.New("not found")

// StatusError is returned for any other non-2xx response
type StatusError struct {
	URL     string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http %s: %d: %s", e.URL, e.Code, e.Message)
	}
	return fmt.Sprintf("http %s: %d", e.URL, e.Code)
}

var httpClient = &http.Client{Timeout: 5 * time.Second}

// PostJSON sends body as JSON and decodes the response into out (if non-nil)
func PostJSON(ctx context.Context, url string, body any, out any) error {
	return doJSON(ctx, http.MethodPost, url, body, out)
}

// PutJSON sends body as JSON with PUT and decodes the response into out (if non-nil)
func PutJSON(ctx context.Context, url string, body any, out any) error {
	return doJSON(ctx, http.MethodPut, url, body, out)
}

// GetJSON fetches url and decodes the response into out
func GetJSON(ctx context.Context, url string, out any) error {
	return doJSON(ctx, http.MethodGet, url, nil, out)
}

// Delete issues a DELETE request to url
func Delete(ctx context.Context, url string) error {
	return doJSON(ctx, http.MethodDelete, url, nil, nil)
}

func doJSON(ctx context.Context, method, url string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		reqBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(reqBody)
	}

	var req *http.Request
	var err error
	if reader != nil {
		req, err = http.NewRequestWithContext(ctx, method, url, reader)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, url, nil)
	}
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if resp.StatusCode == http.StatusNotFound {
			if e.Error != "" {
				return fmt.Errorf("%s: %w", e.Error, ErrNotFound)
			}
			return fmt.Errorf("%s: %w", url, ErrNotFound)
		}
		return &StatusError{URL: url, Code: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Client talks to one shard on a recordd node
type Client struct {
	BaseURL string // e.g. http://127.0.0.1:8081
	Shard   int
}

// NewClient returns a client for shard n at baseURL
func NewClient(baseURL string, n int) *Client {
	return &Client{BaseURL: baseURL, Shard: n}
}

func (c *Client) shardURL(suffix string) string {
	return fmt.Sprintf("%s/shard/%d%s", c.BaseURL, c.Shard, suffix)
}

func (c *Client) recordURL(id storage.ID) string {
	return c.shardURL(fmt.Sprintf("/records/%d", id))
}

// Insert stores a record and returns its ID
func (c *Client) Insert(ctx context.Context, f Fields) (storage.ID, error) {
	var resp InsertResponse
	if err := PostJSON(ctx, c.shardURL("/records"), InsertRequest(f), &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// Get fetches a record; a missing record yields ErrNotFound
func (c *Client) Get(ctx context.Context, id storage.ID) (Fields, error) {
	var resp RecordResponse
	if err := GetJSON(ctx, c.recordURL(id), &resp); err != nil {
		return Fields{}, err
	}
	return resp.Fields, nil
}

// Update replaces the fields of a live record
func (c *Client) Update(ctx context.Context, id storage.ID, f Fields) error {
	return PutJSON(ctx, c.recordURL(id), UpdateRequest(f), nil)
}

// Remove deletes a record; unknown IDs are not an error
func (c *Client) Remove(ctx context.Context, id storage.ID) error {
	return Delete(ctx, c.recordURL(id))
}

// List returns all live IDs
func (c *Client) List(ctx context.Context) ([]storage.ID, error) {
	var resp IDsResponse
	if err := GetJSON(ctx, c.shardURL("/records"), &resp); err != nil {
		return nil, err
	}
	return resp.IDs, nil
}

// ListRange returns live IDs in [from, to)
func (c *Client) ListRange(ctx context.Context, from, to storage.ID) ([]storage.ID, error) {
	var resp IDsResponse
	if err := GetJSON(ctx, c.shardURL(fmt.Sprintf("/records?from=%d&to=%d", from, to)), &resp); err != nil {
		return nil, err
	}
	return resp.IDs, nil
}

// RemoveRange removes every live record in [from, to) and reports how many went
func (c *Client) RemoveRange(ctx context.Context, from, to storage.ID) (int, error) {
	var resp RemoveRangeResponse
	err := doJSON(ctx, http.MethodDelete, c.shardURL(fmt.Sprintf("/records?from=%d&to=%d", from, to)), nil, &resp)
	return resp.Removed, err
}

// Filter returns IDs matching all conditions, ascending
func (c *Client) Filter(ctx context.Context, conds []query.Condition) ([]storage.ID, error) {
	var resp IDsResponse
	if err := PostJSON(ctx, c.shardURL("/filter"), FilterRequest{Conditions: conds}, &resp); err != nil {
		return nil, err
	}
	return resp.IDs, nil
}

// Stats returns shard statistics
func (c *Client) Stats(ctx context.Context) (StatsResponse, error) {
	var resp StatsResponse
	err := GetJSON(ctx, c.shardURL("/stats"), &resp)
	return resp, err
}

// SetState moves the shard to state
func (c *Client) SetState(ctx context.Context, state shard.ShardState) error {
	return PutJSON(ctx, c.shardURL("/state"), StateRequest{State: state}, nil)
}

// Info returns node information
func (c *Client) Info(ctx context.Context) (NodeInfo, error) {
	var resp NodeInfo
	err := GetJSON(ctx, c.BaseURL+"/info", &resp)
	return resp, err
}
