// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package smt

import (
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ava-labs/multistore/database"
)

var ErrMissingNode = errors.New("node referenced by its parent is missing")

// Cache holds decoded nodes by hash. Nodes are content addressed, so a cached
// node is valid for every version of every tree read through it. A nil Cache
// caches nothing.
type Cache struct {
	nodes *lru.Cache[Hash, *node]
}

// NewCache returns a cache holding up to [size] nodes. A non-positive size
// disables caching.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		return nil, nil
	}
	nodes, err := lru.New[Hash, *node](size)
	if err != nil {
		return nil, err
	}
	return &Cache{nodes: nodes}, nil
}

func (c *Cache) get(h Hash) (*node, bool) {
	if c == nil {
		return nil, false
	}
	return c.nodes.Get(h)
}

func (c *Cache) put(h Hash, n *node) {
	if c == nil {
		return
	}
	c.nodes.Add(h, n)
}

// Len returns the number of cached nodes.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.nodes.Len()
}

// Nodes reads the content addressed nodes of one tree column.
type Nodes struct {
	db      database.KeyValueReader
	cache   *Cache
	metrics Metrics
}

func NewNodes(db database.KeyValueReader, cache *Cache, metrics Metrics) *Nodes {
	if metrics == nil {
		metrics = &noopMetrics{}
	}
	return &Nodes{
		db:      db,
		cache:   cache,
		metrics: metrics,
	}
}

// View returns a read-only view of the tree with the provided root.
func (n *Nodes) View(root Hash) *View {
	return &View{
		root:  root,
		nodes: n,
	}
}

// get returns the node with hash [h], or nil if [h] is the empty subtree.
// Returned nodes may be shared and must not be modified.
func (n *Nodes) get(h Hash) (*node, error) {
	if h.IsEmpty() {
		return nil, nil
	}
	if cached, ok := n.cache.get(h); ok {
		n.metrics.NodeCacheHit()
		return cached, nil
	}
	n.metrics.NodeCacheMiss()

	n.metrics.DatabaseNodeRead()
	b, err := n.db.Get(h[:])
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrMissingNode, h)
	}
	if err != nil {
		return nil, err
	}
	decoded, err := decodeNode(b)
	if err != nil {
		return nil, err
	}

	n.metrics.HashCalculated()
	if actual := decoded.hash(); actual != h {
		return nil, fmt.Errorf("%w: node %s hashes to %s", ErrInvalidNode, h, actual)
	}
	n.cache.put(h, decoded)
	return decoded, nil
}
