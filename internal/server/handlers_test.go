package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/tuplestore/internal/api"
	"github.com/dreamware/tuplestore/internal/config"
	"github.com/dreamware/tuplestore/internal/shard"
	"github.com/dreamware/tuplestore/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// TestHandleShardRequest tests the HTTP handler for shard operations
func TestHandleShardRequest(t *testing.T) {
	seeded := func(n *Node) {
		sh := newRowShard(1)
		_, _ = sh.Insert(0, "a", 1)
		_, _ = sh.Insert(2, "b", 3)
		_ = sh.Remove(1)
		n.AddShard(sh)
	}

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		setupNode      func(*Node)
		wantStatusCode int
		wantBody       string
	}{
		{
			name:           "GET existing record",
			method:         http.MethodGet,
			path:           "/shard/1/records/0",
			setupNode:      seeded,
			wantStatusCode: http.StatusOK,
			wantBody:       `{"id":0,"first":0,"second":"a","third":1}`,
		},
		{
			name:           "GET removed record",
			method:         http.MethodGet,
			path:           "/shard/1/records/1",
			setupNode:      seeded,
			wantStatusCode: http.StatusNotFound,
		},
		{
			name:           "GET never issued record",
			method:         http.MethodGet,
			path:           "/shard/1/records/100",
			setupNode:      seeded,
			wantStatusCode: http.StatusNotFound,
		},
		{
			name:           "POST insert creates shard on demand",
			method:         http.MethodPost,
			path:           "/shard/2/records",
			body:           `{"first":4,"second":"c","third":5}`,
			setupNode:      func(n *Node) {},
			wantStatusCode: http.StatusCreated,
			wantBody:       `{"id":0}`,
		},
		{
			name:           "POST insert continues after removed ids",
			method:         http.MethodPost,
			path:           "/shard/1/records",
			body:           `{"first":4,"second":"c","third":5}`,
			setupNode:      seeded,
			wantStatusCode: http.StatusCreated,
			wantBody:       `{"id":2}`,
		},
		{
			name:           "POST insert bad json",
			method:         http.MethodPost,
			path:           "/shard/1/records",
			body:           `{"first":`,
			setupNode:      seeded,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "PUT update existing record",
			method:         http.MethodPut,
			path:           "/shard/1/records/0",
			body:           `{"first":9,"second":"z","third":9}`,
			setupNode:      seeded,
			wantStatusCode: http.StatusNoContent,
		},
		{
			name:           "PUT update removed record",
			method:         http.MethodPut,
			path:           "/shard/1/records/1",
			body:           `{"first":9,"second":"z","third":9}`,
			setupNode:      seeded,
			wantStatusCode: http.StatusNotFound,
		},
		{
			name:           "DELETE existing record",
			method:         http.MethodDelete,
			path:           "/shard/1/records/0",
			setupNode:      seeded,
			wantStatusCode: http.StatusNoContent,
		},
		{
			name:           "DELETE already removed record",
			method:         http.MethodDelete,
			path:           "/shard/1/records/1",
			setupNode:      seeded,
			wantStatusCode: http.StatusNoContent,
		},
		{
			name:           "DELETE negative id",
			method:         http.MethodDelete,
			path:           "/shard/1/records/-5",
			setupNode:      seeded,
			wantStatusCode: http.StatusNoContent,
		},
		{
			name:           "GET list live ids",
			method:         http.MethodGet,
			path:           "/shard/1/records",
			setupNode:      seeded,
			wantStatusCode: http.StatusOK,
			wantBody:       `{"ids":[0],"count":1}`,
		},
		{
			name:           "GET list empty shard",
			method:         http.MethodGet,
			path:           "/shard/4/records",
			setupNode:      func(n *Node) {},
			wantStatusCode: http.StatusOK,
			wantBody:       `{"ids":[],"count":0}`,
		},
		{
			name:           "POST filter",
			method:         http.MethodPost,
			path:           "/shard/1/filter",
			body:           `{"conditions":[{"field":"first","op":"eq","value":"0","mod":4}]}`,
			setupNode:      seeded,
			wantStatusCode: http.StatusOK,
			wantBody:       `{"ids":[0],"count":1}`,
		},
		{
			name:           "POST filter invalid condition",
			method:         http.MethodPost,
			path:           "/shard/1/filter",
			body:           `{"conditions":[{"field":"fourth","op":"eq","value":"0"}]}`,
			setupNode:      seeded,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "invalid shard ID",
			method:         http.MethodGet,
			path:           "/shard/abc/records",
			setupNode:      func(n *Node) {},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "invalid record ID",
			method:         http.MethodGet,
			path:           "/shard/1/records/x",
			setupNode:      seeded,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "missing path after shard",
			method:         http.MethodGet,
			path:           "/shard/1",
			setupNode:      func(n *Node) {},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "unsupported method on record",
			method:         http.MethodPatch,
			path:           "/shard/1/records/0",
			setupNode:      seeded,
			wantStatusCode: http.StatusMethodNotAllowed,
		},
		{
			name:           "unknown shard route",
			method:         http.MethodGet,
			path:           "/shard/1/unknown",
			setupNode:      seeded,
			wantStatusCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := NewNode("test-node")
			tt.setupNode(node)
			h := NewHandler(node, discardLogger())

			w := do(t, h, tt.method, tt.path, tt.body)

			assert.Equal(t, tt.wantStatusCode, w.Code, w.Body.String())
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			}
			if w.Code >= 400 {
				var e api.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
				assert.NotEmpty(t, e.Error)
				assert.NotEmpty(t, e.RequestID)
			}
		})
	}
}

// TestHandleShardState tests state changes through the API
func TestHandleShardState(t *testing.T) {
	node := NewNode("test-node")
	h := NewHandler(node, discardLogger())

	w := do(t, h, http.MethodPost, "/shard/0/records", `{"first":1,"second":"a","third":1}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, h, http.MethodPut, "/shard/0/state", `{"state":"readonly"}`)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, shard.ShardStateReadOnly, node.GetShard(0).Info().State)

	w = do(t, h, http.MethodPost, "/shard/0/records", `{"first":2,"second":"b","third":2}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, h, http.MethodGet, "/shard/0/records/0", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodPut, "/shard/0/state", `{"state":"gone"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPut, "/shard/0/state", `{"state":"deleted"}`)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodGet, "/shard/0/records/0", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	for _, path := range []string{"/shard/0/records", "/shard/0/records?from=0&to=5"} {
		w = do(t, h, http.MethodGet, path, "")
		assert.Equal(t, http.StatusConflict, w.Code, path)
		assert.Contains(t, w.Body.String(), "shard is deleted", path)
	}

	w = do(t, h, http.MethodDelete, "/shard/0/records/0", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

// TestHandleRanges tests range listing and range deletion
func TestHandleRanges(t *testing.T) {
	node := NewNode("test-node")
	h := NewHandler(node, discardLogger())

	for i := 0; i < 6; i++ {
		w := do(t, h, http.MethodPost, "/shard/0/records", `{"first":1,"second":"a","third":1}`)
		require.Equal(t, http.StatusCreated, w.Code)
	}
	do(t, h, http.MethodDelete, "/shard/0/records/2", "")

	w := do(t, h, http.MethodGet, "/shard/0/records?from=1&to=4", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ids":[1,3],"count":2}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/shard/0/records?from=4", "")
	assert.JSONEq(t, `{"ids":[4,5],"count":2}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/shard/0/records?from=x", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodDelete, "/shard/0/records", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodDelete, "/shard/0/records?to=4", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"removed":3}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/shard/0/records", "")
	assert.JSONEq(t, `{"ids":[4,5],"count":2}`, w.Body.String())

	do(t, h, http.MethodPut, "/shard/0/state", `{"state":"readonly"}`)
	w = do(t, h, http.MethodDelete, "/shard/0/records?to=10", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

// TestHandleShardStats tests the stats endpoint
func TestHandleShardStats(t *testing.T) {
	node := NewNode("test-node")
	h := NewHandler(node, discardLogger())

	do(t, h, http.MethodPost, "/shard/3/records", `{"first":1,"second":"a","third":1}`)
	do(t, h, http.MethodPost, "/shard/3/records", `{"first":2,"second":"b","third":2}`)
	do(t, h, http.MethodDelete, "/shard/3/records/0", "")
	do(t, h, http.MethodGet, "/shard/3/records/1", "")

	w := do(t, h, http.MethodGet, "/shard/3/stats", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.ShardID)
	assert.Equal(t, uint64(2), resp.Ops.Inserts)
	assert.Equal(t, uint64(1), resp.Ops.Removes)
	assert.Equal(t, uint64(1), resp.Ops.Gets)
	assert.Equal(t, 1, resp.Storage.Live)
	assert.Equal(t, storage.ID(2), resp.Storage.NextID)
	assert.Equal(t, 1, resp.Storage.Retired)
}

// TestHandleNodeInfo tests the node info endpoint
func TestHandleNodeInfo(t *testing.T) {
	node := NewNode("node-7")
	node.AddShard(newRowShard(1))
	node.AddShard(newRowShard(0))
	h := NewHandler(node, discardLogger())

	w := do(t, h, http.MethodGet, "/info", "")
	require.Equal(t, http.StatusOK, w.Code)

	var info api.NodeInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "node-7", info.ID)
	assert.Equal(t, 2, info.Count)
	require.Len(t, info.Shards, 2)
	assert.Equal(t, 0, info.Shards[0].ID)
	assert.Equal(t, shard.ShardStateActive, info.Shards[1].State)

	w = do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestRequestLogging tests request ID assignment and access logging
func TestRequestLogging(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Default()
	cfg.LogLevel = "debug"
	cfg.LogFormat = "json"
	logger := NewLogger(cfg, &buf)

	h := NewHandler(NewNode("test-node"), logger)

	t.Run("generates request id", func(t *testing.T) {
		buf.Reset()
		w := do(t, h, http.MethodGet, "/health", "")

		id := w.Header().Get(RequestIDHeader)
		require.NotEmpty(t, id)
		assert.Contains(t, buf.String(), `"request_id":"`+id+`"`)
		assert.Contains(t, buf.String(), `"path":"/health"`)
		assert.Contains(t, buf.String(), `"node_id":"node-1"`)
	})

	t.Run("propagates caller request id", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest(http.MethodGet, "/shard/0/records/42", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
		assert.Equal(t, http.StatusNotFound, w.Code)

		var e api.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
		assert.Equal(t, "abc-123", e.RequestID)
		assert.Contains(t, buf.String(), `"status":404`)
	})

	t.Run("text format", func(t *testing.T) {
		var out bytes.Buffer
		cfg := config.Default()
		cfg.LogLevel = "info"
		l := NewLogger(cfg, &out)

		l.Info("hello")
		assert.Contains(t, out.String(), "msg=hello")
		l.Debug("hidden")
		assert.NotContains(t, out.String(), "hidden")
	})
}
