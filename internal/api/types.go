package api

import (
	"github.com/dreamware/tuplestore/internal/query"
	"github.com/dreamware/tuplestore/internal/shard"
	"github.com/dreamware/tuplestore/internal/storage"
)

// NodeInfo describes a running recordd process
type NodeInfo struct {
	ID     string            `json:"node_id"`
	Shards []shard.ShardInfo `json:"shards"`
	Count  int               `json:"shard_count"`
}

// Fields carries the three record fields on the wire
type Fields struct {
	First  int64  `json:"first"`
	Second string `json:"second"`
	Third  int64  `json:"third"`
}

// InsertRequest is the body of POST /shard/{n}/records
type InsertRequest = Fields

// UpdateRequest is the body of PUT /shard/{n}/records/{id}
type UpdateRequest = Fields

// InsertResponse carries the ID assigned to a new record
type InsertResponse struct {
	ID storage.ID `json:"id"`
}

// RecordResponse is returned by GET /shard/{n}/records/{id}
type RecordResponse struct {
	ID storage.ID `json:"id"`
	Fields
}

// FilterRequest is the body of POST /shard/{n}/filter
type FilterRequest struct {
	Conditions []query.Condition `json:"conditions"`
}

// IDsResponse lists record IDs in ascending order
type IDsResponse struct {
	IDs   []storage.ID `json:"ids"`
	Count int          `json:"count"`
}

// RemoveRangeResponse is returned by DELETE /shard/{n}/records?from=&to=
type RemoveRangeResponse struct {
	Removed int `json:"removed"`
}

// StatsResponse is returned by GET /shard/{n}/stats
type StatsResponse struct {
	ShardID int                  `json:"shard_id"`
	Ops     shard.OperationStats `json:"operations"`
	Storage struct {
		Live    int        `json:"live"`
		NextID  storage.ID `json:"next_id"`
		Retired int        `json:"retired"`
	} `json:"storage"`
}

// StateRequest is the body of PUT /shard/{n}/state
type StateRequest struct {
	State shard.ShardState `json:"state"`
}

// ErrorResponse is the JSON body of every non-2xx response
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// FromRow converts a stored record to its wire form
func FromRow(r query.Row) Fields {
	return Fields{First: r.First, Second: r.Second, Third: r.Third}
}

// Row converts wire fields to a stored record
func (f Fields) Row() query.Row {
	return query.Row{First: f.First, Second: f.Second, Third: f.Third}
}
