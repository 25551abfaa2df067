// Package shard wraps a storage.Table so it can be shared between goroutines,
// and adds the bookkeeping a serving process needs around it.
//
// # Overview
//
// storage.Table is deliberately unsynchronized. A Shard owns one table and
// guards it with a sync.RWMutex so that every operation (insert, lookup,
// update, removal, scan) executes as a single critical section:
//
//	┌─────────────────────────────────────┐
//	│               SHARD                 │
//	├─────────────────────────────────────┤
//	│  ┌──────────────────────────────┐   │
//	│  │   storage.Table              │   │
//	│  │   - ID allocator             │   │
//	│  │   - live records             │   │
//	│  └──────────────────────────────┘   │
//	│  ┌──────────────────────────────┐   │
//	│  │   Metadata                   │   │
//	│  │   - Shard ID                 │   │
//	│  │   - State                    │   │
//	│  │   - Operation counters       │   │
//	│  └──────────────────────────────┘   │
//	└─────────────────────────────────────┘
//
// # Handles
//
// Unlike Table.Get, Shard.Get returns a copy of the record. A pointer into
// the table would outlive the lock and race with a concurrent Remove.
// In-place mutation goes through Update, whose callback runs while the write
// lock is held.
//
// # States
//
// State transitions are driven by the hosting process:
//
//	active ──► readonly ──► deleted
//	   └───────────────────────▲
//
//   - active: every operation allowed
//   - readonly: Insert, Update, Remove and RemoveRange return ErrReadOnly
//   - deleted: every operation returns ErrShardDeleted, except Remove, which
//     stays a silent no-op
//
// # Ranges
//
// IDsInRange and RemoveRange work on the half-open interval [start, end) and
// walk only the live IDs inside it, so pruning an old prefix of the ID space
// costs time proportional to what is removed.
//
// # Statistics
//
// Operation counters are updated with sync/atomic and can be read at any
// time through GetStats, together with the table's live/retired counts.
//
// # Usage Example
//
//	s := shard.NewShard[int64, string, int64](0)
//
//	id, err := s.Insert(1, "a", 2)
//	if err != nil {
//	    return err
//	}
//
//	err = s.Update(id, func(r *storage.Record[int64, string, int64]) {
//	    r.Third++
//	})
//
//	ids, err := s.Filter(func(_ storage.ID, r storage.Record[int64, string, int64]) bool {
//	    return r.First > 0
//	})
package shard
