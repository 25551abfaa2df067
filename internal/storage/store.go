package storage

import (
	"errors"
	"fmt"
	"iter"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// ErrNotFound is returned when an ID does not name a live record
var ErrNotFound = errors.New("record not found")

// ID identifies a record within one Table.
// IDs are assigned by Insert, start at 0 and are never reused.
type ID int64

// Record is a fixed three-field composite value
// The field types are chosen once when the Table is instantiated
type Record[T, U, V any] struct {
	First  T
	Second U
	Third  V
}

// TableStats contains statistics about a table
type TableStats struct {
	Live    int // Number of live records
	NextID  ID  // Identifier the next Insert will return
	Retired int // Number of identifiers removed so far
}

// Table is an identifier-indexed in-memory record store.
//
// A Table is NOT safe for concurrent use. Callers sharing a Table across
// goroutines must serialize whole operations themselves (see package shard).
type Table[T, U, V any] struct {
	rows   map[ID]*Record[T, U, V] // Live records
	live   *roaring64.Bitmap       // Live IDs, iterated in ascending order
	nextID ID                      // Next identifier to assign
}

// NewTable creates an empty table whose first Insert returns ID 0
func NewTable[T, U, V any]() *Table[T, U, V] {
	return &Table[T, U, V]{
		rows: make(map[ID]*Record[T, U, V]),
		live: roaring64.New(),
	}
}

// Insert stores the record (a, b, c) and returns its newly assigned ID
func (t *Table[T, U, V]) Insert(a T, b U, c V) ID {
	id := t.nextID
	t.rows[id] = &Record[T, U, V]{First: a, Second: b, Third: c}
	t.live.Add(uint64(id))
	t.nextID++
	return id
}

// Get returns a handle to the live record named by id.
//
// Writes through the handle change the stored record. The handle must not be
// used after Remove(id); use Update for a call-scoped alternative.
// Returns ErrNotFound if id was never issued or has been removed.
func (t *Table[T, U, V]) Get(id ID) (*Record[T, U, V], error) {
	rec, ok := t.rows[id]
	if !ok {
		return nil, notFound(id)
	}
	return rec, nil
}

// View returns a copy of the live record named by id
func (t *Table[T, U, V]) View(id ID) (Record[T, U, V], error) {
	rec, ok := t.rows[id]
	if !ok {
		return Record[T, U, V]{}, notFound(id)
	}
	return *rec, nil
}

// Update calls fn with the stored record for id.
// The pointer passed to fn is only valid until fn returns.
func (t *Table[T, U, V]) Update(id ID, fn func(*Record[T, U, V])) error {
	rec, ok := t.rows[id]
	if !ok {
		return notFound(id)
	}
	fn(rec)
	return nil
}

// Remove deletes the record named by id.
// Unknown, negative and already removed IDs are ignored (idempotent).
func (t *Table[T, U, V]) Remove(id ID) {
	if _, ok := t.rows[id]; !ok {
		return
	}
	delete(t.rows, id)
	t.live.Remove(uint64(id))
}

// Contains reports whether id names a live record
func (t *Table[T, U, V]) Contains(id ID) bool {
	_, ok := t.rows[id]
	return ok
}

// Len returns the number of live records
func (t *Table[T, U, V]) Len() int {
	return len(t.rows)
}

// NextID returns the identifier the next Insert will assign
func (t *Table[T, U, V]) NextID() ID {
	return t.nextID
}

// Filter returns, in ascending order, the IDs of live records for which pred
// returns true. pred is called exactly once per live record and receives a
// copy; it must not call back into the table.
func (t *Table[T, U, V]) Filter(pred func(ID, Record[T, U, V]) bool) []ID {
	result := make([]ID, 0)
	it := t.live.Iterator()
	for it.HasNext() {
		id := ID(it.Next())
		if pred(id, *t.rows[id]) {
			result = append(result, id)
		}
	}
	return result
}

// FilterRange is Filter restricted to IDs in [start, end)
func (t *Table[T, U, V]) FilterRange(start, end ID, pred func(ID, Record[T, U, V]) bool) []ID {
	result := make([]ID, 0)
	if end <= 0 || start >= end {
		return result
	}
	if start < 0 {
		start = 0
	}

	it := t.live.Iterator()
	it.AdvanceIfNeeded(uint64(start))
	for it.HasNext() {
		if it.PeekNext() >= uint64(end) {
			break
		}
		id := ID(it.Next())
		if pred(id, *t.rows[id]) {
			result = append(result, id)
		}
	}
	return result
}

// IDs returns all live IDs in ascending order
func (t *Table[T, U, V]) IDs() []ID {
	return t.Filter(func(ID, Record[T, U, V]) bool { return true })
}

// All iterates live records in ascending ID order.
// The table must not be modified while iterating.
func (t *Table[T, U, V]) All() iter.Seq2[ID, Record[T, U, V]] {
	return func(yield func(ID, Record[T, U, V]) bool) {
		it := t.live.Iterator()
		for it.HasNext() {
			id := ID(it.Next())
			if !yield(id, *t.rows[id]) {
				return
			}
		}
	}
}

// Stats returns table statistics
func (t *Table[T, U, V]) Stats() TableStats {
	live := len(t.rows)
	return TableStats{
		Live:    live,
		NextID:  t.nextID,
		Retired: int(t.nextID) - live,
	}
}

func notFound(id ID) error {
	return fmt.Errorf("id %d: %w", id, ErrNotFound)
}
