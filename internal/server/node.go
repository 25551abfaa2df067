// Package server implements the recordd HTTP service: a Node owning record
// shards, the JSON handlers in front of them, and request middleware.
package server

import (
	"cmp"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/dreamware/tuplestore/internal/shard"
)

// RowShard is the shard type served by recordd
type RowShard = shard.Shard[int64, string, int64]

// Node represents a recordd process and the shards it serves.
//
// Shard management:
//   - Shards are created lazily when first accessed
//   - Each shard has independent storage, state and locking
//   - Thread-safe access to the shard map through RWMutex
type Node struct {
	// shards maps shard numbers to their runtime instances.
	// Protected by mu.
	shards map[int]*RowShard

	// ID identifies this node in logs and /info.
	// Immutable after creation.
	ID string

	// mu protects concurrent access to the shards map.
	mu sync.RWMutex
}

// NewNode creates a node with no shards
func NewNode(id string) *Node {
	return &Node{
		ID:     id,
		shards: make(map[int]*RowShard),
	}
}

// AddShard adds a shard to the node, replacing any shard with the same ID
func (n *Node) AddShard(s *RowShard) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shards[s.ID] = s
}

// GetShard returns the shard with the given ID, or nil
func (n *Node) GetShard(id int) *RowShard {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.shards[id]
}

// GetOrCreateShard returns the shard with the given ID, creating an empty
// active shard if none exists yet. The second result reports whether it was created.
func (n *Node) GetOrCreateShard(id int) (*RowShard, bool) {
	if s := n.GetShard(id); s != nil {
		return s, false
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if s, ok := n.shards[id]; ok {
		return s, false
	}
	s := shard.NewShard[int64, string, int64](id)
	n.shards[id] = s
	return s, true
}

// ShardInfos returns info for every shard, ordered by shard ID
func (n *Node) ShardInfos() []shard.ShardInfo {
	n.mu.RLock()
	infos := make([]shard.ShardInfo, 0, len(n.shards))
	for _, s := range n.shards {
		infos = append(infos, s.Info())
	}
	n.mu.RUnlock()

	slices.SortFunc(infos, func(a, b shard.ShardInfo) int { return cmp.Compare(a.ID, b.ID) })
	return infos
}
