// Package storage provides tuplestore's core data structure: a generic,
// identifier-indexed in-memory table of fixed-shape records.
//
// # Overview
//
// A Table stores Records of exactly three fields whose types are fixed when
// the table is instantiated. Every Insert assigns the next identifier from a
// counter that starts at 0 and only ever grows, so identifiers are unique for
// the lifetime of the table and are never handed out twice, even after the
// record they named has been removed.
//
//	┌─────────────────────────────────────┐
//	│               Table                 │
//	├─────────────────────────────────────┤
//	│  nextID   - identifier allocator    │
//	│  rows     - map[ID]*Record          │
//	│  live     - roaring64 bitmap of IDs │
//	└─────────────────────────────────────┘
//
// The map answers point lookups; the bitmap keeps live IDs in ascending order
// so Filter can scan a sparse identifier space without sorting.
//
// # Operations
//
// Table exposes:
//   - Insert(a, b, c) - Store a record, return its new ID
//   - Get(id) - Handle to the stored record, or ErrNotFound
//   - View(id) - Copy of the stored record, or ErrNotFound
//   - Update(id, fn) - Mutate the stored record inside fn, or ErrNotFound
//   - Remove(id) - Delete a record; unknown IDs are a no-op
//   - Filter(pred) - IDs of matching live records, ascending
//   - FilterRange(start, end, pred) - Filter limited to [start, end)
//   - IDs(), All(), Len(), NextID(), Stats()
//
// # Record Lifecycle
//
// Each identifier moves through absent -> live -> retired. Retired is
// terminal: a removed ID never satisfies Get again and never appears in a
// Filter result.
//
// # Handles
//
// Get returns a pointer into the table's own storage. Writes through it are
// visible to later reads, which matches how callers mutate records in place.
// The pointer must not be kept past Remove of the same ID. Code that cannot
// guarantee this should use View (owned copy) or Update (borrow scoped to a
// callback) instead.
//
// # Concurrency
//
// Table performs no locking. It is a single-threaded structure; callers that
// share one across goroutines must serialize whole operations. The shard
// package wraps a Table with a sync.RWMutex for exactly that purpose.
//
// # Error Handling
//
// ErrNotFound is the only error. It is returned by Get, View and Update and
// wraps the offending ID:
//
//	rec, err := table.Get(id)
//	if errors.Is(err, storage.ErrNotFound) {
//	    // never issued, or removed
//	}
//
// Insert, Remove and Filter cannot fail.
//
// # Usage Example
//
//	table := storage.NewTable[int, string, int]()
//	id := table.Insert(0, "a", 1)
//
//	rec, _ := table.Get(id)
//	rec.Third = 42
//
//	table.Remove(id)
//	table.Remove(id) // no-op
//
//	even := table.Filter(func(_ storage.ID, r storage.Record[int, string, int]) bool {
//	    return r.First%2 == 0
//	})
package storage
