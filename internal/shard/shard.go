package shard

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/dreamware/tuplestore/internal/storage"
)

var (
	// ErrReadOnly is returned by write operations on a read-only shard
	ErrReadOnly = errors.New("shard is read-only")
	// ErrShardDeleted is returned by every operation on a deleted shard
	ErrShardDeleted = errors.New("shard is deleted")
)

// ShardState represents the current state of a shard
type ShardState string

const (
	// ShardStateActive means the shard serves reads and writes
	ShardStateActive ShardState = "active"
	// ShardStateReadOnly means the shard rejects writes
	ShardStateReadOnly ShardState = "readonly"
	// ShardStateDeleted means the shard is marked for deletion
	ShardStateDeleted ShardState = "deleted"
)

// Shard is a record table guarded by a mutex.
// Every method runs as one critical section over the whole table operation,
// and no method returns a pointer into the table.
type Shard[T, U, V any] struct {
	ID    int                     // Unique shard identifier
	State ShardState              // Current shard state
	Stats *ShardStats             // Operation statistics
	table *storage.Table[T, U, V] // Records owned by this shard
	mu    sync.RWMutex            // Protects table and State
}

// ShardStats tracks operational statistics for a shard
type ShardStats struct {
	Ops     OperationStats     // Operation counts
	Storage storage.TableStats // Table statistics
}

// OperationStats tracks operation counts
type OperationStats struct {
	Inserts uint64 `json:"inserts"` // Number of insert operations
	Gets    uint64 `json:"gets"`    // Number of get operations
	Updates uint64 `json:"updates"` // Number of update operations
	Removes uint64 `json:"removes"` // Number of remove operations
	Filters uint64 `json:"filters"` // Number of filter scans
}

// ShardInfo contains metadata about a shard
type ShardInfo struct {
	ID      int        `json:"id"`
	State   ShardState `json:"state"`
	Records int        `json:"records"`
	NextID  storage.ID `json:"next_id"`
}

// NewShard creates a new active shard with an empty table
func NewShard[T, U, V any](id int) *Shard[T, U, V] {
	return &Shard[T, U, V]{
		ID:    id,
		State: ShardStateActive,
		Stats: &ShardStats{},
		table: storage.NewTable[T, U, V](),
	}
}

// checkWrite reports why a write is not allowed. Callers hold mu.
func (s *Shard[T, U, V]) checkWrite() error {
	switch s.State {
	case ShardStateDeleted:
		return ErrShardDeleted
	case ShardStateReadOnly:
		return ErrReadOnly
	}
	return nil
}

// checkRead reports why a read is not allowed. Callers hold mu.
func (s *Shard[T, U, V]) checkRead() error {
	if s.State == ShardStateDeleted {
		return ErrShardDeleted
	}
	return nil
}

// Insert stores a record and returns its ID
// Increments insert counter for statistics
func (s *Shard[T, U, V]) Insert(a T, b U, c V) (storage.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkWrite(); err != nil {
		return 0, err
	}
	atomic.AddUint64(&s.Stats.Ops.Inserts, 1)
	return s.table.Insert(a, b, c), nil
}

// Get returns a copy of the record named by id
// Increments get counter for statistics
func (s *Shard[T, U, V]) Get(id storage.ID) (storage.Record[T, U, V], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkRead(); err != nil {
		return storage.Record[T, U, V]{}, err
	}
	atomic.AddUint64(&s.Stats.Ops.Gets, 1)
	return s.table.View(id)
}

// Update mutates the record named by id while holding the write lock
// Increments update counter for statistics
func (s *Shard[T, U, V]) Update(id storage.ID, fn func(*storage.Record[T, U, V])) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkWrite(); err != nil {
		return err
	}
	atomic.AddUint64(&s.Stats.Ops.Updates, 1)
	return s.table.Update(id, fn)
}

// Remove deletes the record named by id.
// Removing an unknown ID is a no-op, and so is any remove on a deleted shard.
func (s *Shard[T, U, V]) Remove(id storage.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.State {
	case ShardStateDeleted:
		return nil
	case ShardStateReadOnly:
		return ErrReadOnly
	}
	atomic.AddUint64(&s.Stats.Ops.Removes, 1)
	s.table.Remove(id)
	return nil
}

// Filter returns the IDs of matching records in ascending order.
// pred runs under the read lock and must not call back into the shard.
func (s *Shard[T, U, V]) Filter(pred func(storage.ID, storage.Record[T, U, V]) bool) ([]storage.ID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkRead(); err != nil {
		return nil, err
	}
	atomic.AddUint64(&s.Stats.Ops.Filters, 1)
	return s.table.Filter(pred), nil
}

// IDs returns all live IDs in ascending order
func (s *Shard[T, U, V]) IDs() ([]storage.ID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkRead(); err != nil {
		return nil, err
	}
	return s.table.IDs(), nil
}

// IDsInRange returns live IDs in the range [start, end)
// The end ID is exclusive
func (s *Shard[T, U, V]) IDsInRange(start, end storage.ID) ([]storage.ID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkRead(); err != nil {
		return nil, err
	}
	return s.table.FilterRange(start, end, func(storage.ID, storage.Record[T, U, V]) bool { return true }), nil
}

// RemoveRange removes all live records with IDs in [start, end)
// Returns the number of records removed
func (s *Shard[T, U, V]) RemoveRange(start, end storage.ID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkWrite(); err != nil {
		return 0, err
	}

	ids := s.table.FilterRange(start, end, func(storage.ID, storage.Record[T, U, V]) bool { return true })
	for _, id := range ids {
		s.table.Remove(id)
	}
	atomic.AddUint64(&s.Stats.Ops.Removes, uint64(len(ids)))
	return len(ids), nil
}

// GetStats returns current shard statistics
func (s *Shard[T, U, V]) GetStats() ShardStats {
	s.mu.RLock()
	tableStats := s.table.Stats()
	s.mu.RUnlock()

	return ShardStats{
		Ops: OperationStats{
			Inserts: atomic.LoadUint64(&s.Stats.Ops.Inserts),
			Gets:    atomic.LoadUint64(&s.Stats.Ops.Gets),
			Updates: atomic.LoadUint64(&s.Stats.Ops.Updates),
			Removes: atomic.LoadUint64(&s.Stats.Ops.Removes),
			Filters: atomic.LoadUint64(&s.Stats.Ops.Filters),
		},
		Storage: tableStats,
	}
}

// Info returns metadata about the shard
func (s *Shard[T, U, V]) Info() ShardInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return ShardInfo{
		ID:      s.ID,
		State:   s.State,
		Records: s.table.Len(),
		NextID:  s.table.NextID(),
	}
}

// SetState updates the shard state
func (s *Shard[T, U, V]) SetState(state ShardState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = state
}
