package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/dreamware/tuplestore/internal/api"
	"github.com/dreamware/tuplestore/internal/query"
	"github.com/dreamware/tuplestore/internal/shard"
	"github.com/dreamware/tuplestore/internal/storage"
)

// NewHandler returns the recordd HTTP API for node.
//
// Routes:
//   - GET    /health
//   - GET    /info
//   - POST   /shard/{n}/records        insert
//   - GET    /shard/{n}/records        list live IDs (?from=&to= for a range)
//   - DELETE /shard/{n}/records?to=    remove every record in [from, to)
//   - GET    /shard/{n}/records/{id}   fetch
//   - PUT    /shard/{n}/records/{id}   replace fields
//   - DELETE /shard/{n}/records/{id}   remove (always 204)
//   - POST   /shard/{n}/filter         IDs matching conditions
//   - GET    /shard/{n}/stats          statistics
//   - PUT    /shard/{n}/state          change shard state
func NewHandler(node *Node, logger *slog.Logger) http.Handler {
	h := &handler{node: node, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/info", h.handleNodeInfo)
	mux.HandleFunc("/shard/", h.handleShardRequest)

	return withRequestLogging(logger, mux)
}

type handler struct {
	node   *Node
	logger *slog.Logger
}

// handleShardRequest parses /shard/{n}/{rest}, creates the shard on demand
// and dispatches to the operation handlers.
func (h *handler) handleShardRequest(w http.ResponseWriter, r *http.Request) {
	pathWithoutPrefix := strings.TrimPrefix(r.URL.Path, "/shard/")

	shardIDStr, rest, ok := strings.Cut(pathWithoutPrefix, "/")
	if !ok {
		h.writeError(w, r, http.StatusBadRequest, errors.New("invalid path format"))
		return
	}

	shardID, err := strconv.Atoi(shardIDStr)
	if err != nil || shardID < 0 {
		h.writeError(w, r, http.StatusBadRequest, errors.New("invalid shard ID"))
		return
	}

	s, created := h.node.GetOrCreateShard(shardID)
	if created {
		h.logger.Info("created shard on demand", "shard", shardID, "request_id", requestID(r.Context()))
	}

	switch {
	case rest == "records" || rest == "records/":
		switch r.Method {
		case http.MethodPost:
			h.handleInsert(s, w, r)
		case http.MethodGet:
			h.handleList(s, w, r)
		case http.MethodDelete:
			h.handleRemoveRange(s, w, r)
		default:
			h.writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		}
	case strings.HasPrefix(rest, "records/"):
		id, err := strconv.ParseInt(strings.TrimPrefix(rest, "records/"), 10, 64)
		if err != nil {
			h.writeError(w, r, http.StatusBadRequest, errors.New("invalid record ID"))
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.handleGet(s, storage.ID(id), w, r)
		case http.MethodPut:
			h.handleUpdate(s, storage.ID(id), w, r)
		case http.MethodDelete:
			h.handleRemove(s, storage.ID(id), w, r)
		default:
			h.writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		}
	case rest == "filter" && r.Method == http.MethodPost:
		h.handleFilter(s, w, r)
	case rest == "stats" && r.Method == http.MethodGet:
		h.handleShardStats(s, w, r)
	case rest == "state" && r.Method == http.MethodPut:
		h.handleSetState(s, w, r)
	default:
		h.writeError(w, r, http.StatusNotFound, errors.New("not found"))
	}
}

// handleInsert stores a new record and returns its ID.
//
// Response:
//   - 201 Created: {"id": n}
//   - 400 Bad Request: invalid JSON
//   - 409 Conflict: shard is read-only or deleted
func (h *handler) handleInsert(s *RowShard, w http.ResponseWriter, r *http.Request) {
	var req api.InsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, errors.New("bad json"))
		return
	}

	id, err := s.Insert(req.First, req.Second, req.Third)
	if err != nil {
		h.writeError(w, r, statusFor(err), err)
		return
	}
	h.writeJSON(w, http.StatusCreated, api.InsertResponse{ID: id})
}

// handleList returns live IDs in ascending order.
// Optional from/to query parameters restrict the result to [from, to).
func (h *handler) handleList(s *RowShard, w http.ResponseWriter, r *http.Request) {
	var ids []storage.ID
	var err error
	if r.URL.Query().Has("from") || r.URL.Query().Has("to") {
		start, end, perr := parseRange(r)
		if perr != nil {
			h.writeError(w, r, http.StatusBadRequest, perr)
			return
		}
		ids, err = s.IDsInRange(start, end)
	} else {
		ids, err = s.IDs()
	}
	if err != nil {
		h.writeError(w, r, statusFor(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, api.IDsResponse{IDs: ids, Count: len(ids)})
}

// handleRemoveRange removes every live record with an ID in [from, to).
//
// Response:
//   - 200 OK: {"removed": n}
//   - 400 Bad Request: missing or malformed bounds
//   - 409 Conflict: shard is read-only or deleted
func (h *handler) handleRemoveRange(s *RowShard, w http.ResponseWriter, r *http.Request) {
	if !r.URL.Query().Has("to") {
		h.writeError(w, r, http.StatusBadRequest, errors.New("range delete needs a to bound"))
		return
	}
	start, end, err := parseRange(r)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	n, err := s.RemoveRange(start, end)
	if err != nil {
		h.writeError(w, r, statusFor(err), err)
		return
	}
	h.logger.Info("removed range", "shard", s.ID, "from", start, "to", end, "removed", n,
		"request_id", requestID(r.Context()))
	h.writeJSON(w, http.StatusOK, api.RemoveRangeResponse{Removed: n})
}

// parseRange reads the from/to query parameters; from defaults to 0 and to
// to the largest ID.
func parseRange(r *http.Request) (storage.ID, storage.ID, error) {
	q := r.URL.Query()
	start, end := storage.ID(0), storage.ID(math.MaxInt64)
	if v := q.Get("from"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, 0, errors.New("invalid from bound")
		}
		start = storage.ID(n)
	}
	if v := q.Get("to"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, 0, errors.New("invalid to bound")
		}
		end = storage.ID(n)
	}
	return start, end, nil
}

// handleGet returns one record.
//
// Response:
//   - 200 OK: record
//   - 404 Not Found: ID was never issued or has been removed
func (h *handler) handleGet(s *RowShard, id storage.ID, w http.ResponseWriter, r *http.Request) {
	rec, err := s.Get(id)
	if err != nil {
		h.writeError(w, r, statusFor(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, api.RecordResponse{ID: id, Fields: api.FromRow(rec)})
}

// handleUpdate replaces all three fields of a live record.
//
// Response:
//   - 204 No Content: updated
//   - 404 Not Found: ID is not live
func (h *handler) handleUpdate(s *RowShard, id storage.ID, w http.ResponseWriter, r *http.Request) {
	var req api.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, errors.New("bad json"))
		return
	}

	err := s.Update(id, func(rec *query.Row) { *rec = req.Row() })
	if err != nil {
		h.writeError(w, r, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRemove deletes a record.
// Idempotent: unknown, negative and already removed IDs also return 204.
func (h *handler) handleRemove(s *RowShard, id storage.ID, w http.ResponseWriter, r *http.Request) {
	if err := s.Remove(id); err != nil {
		h.writeError(w, r, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleFilter compiles the request conditions and scans the shard.
//
// Response:
//   - 200 OK: {"ids": [...], "count": n}, IDs ascending
//   - 400 Bad Request: invalid JSON or invalid condition
func (h *handler) handleFilter(s *RowShard, w http.ResponseWriter, r *http.Request) {
	var req api.FilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, errors.New("bad json"))
		return
	}

	pred, err := query.Compile(req.Conditions)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	ids, err := s.Filter(pred)
	if err != nil {
		h.writeError(w, r, statusFor(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, api.IDsResponse{IDs: ids, Count: len(ids)})
}

// handleShardStats returns operation counters and table statistics
func (h *handler) handleShardStats(s *RowShard, w http.ResponseWriter, _ *http.Request) {
	stats := s.GetStats()

	resp := api.StatsResponse{ShardID: s.ID, Ops: stats.Ops}
	resp.Storage.Live = stats.Storage.Live
	resp.Storage.NextID = stats.Storage.NextID
	resp.Storage.Retired = stats.Storage.Retired

	h.writeJSON(w, http.StatusOK, resp)
}

// handleSetState moves a shard between active, readonly and deleted
func (h *handler) handleSetState(s *RowShard, w http.ResponseWriter, r *http.Request) {
	var req api.StateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, errors.New("bad json"))
		return
	}

	switch req.State {
	case shard.ShardStateActive, shard.ShardStateReadOnly, shard.ShardStateDeleted:
	default:
		h.writeError(w, r, http.StatusBadRequest, errors.New("unknown shard state"))
		return
	}

	s.SetState(req.State)
	h.logger.Info("shard state changed", "shard", s.ID, "state", req.State, "request_id", requestID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// handleNodeInfo returns the node ID and every shard's metadata
func (h *handler) handleNodeInfo(w http.ResponseWriter, _ *http.Request) {
	infos := h.node.ShardInfos()
	h.writeJSON(w, http.StatusOK, api.NodeInfo{ID: h.node.ID, Shards: infos, Count: len(infos)})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("write response", "error", err)
	}
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	h.writeJSON(w, status, api.ErrorResponse{Error: err.Error(), RequestID: requestID(r.Context())})
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shard.ErrReadOnly), errors.Is(err, shard.ErrShardDeleted):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
