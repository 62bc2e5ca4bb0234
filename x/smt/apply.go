// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package smt

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	"github.com/ava-labs/multistore/database"
)

var (
	ErrEmptyKey   = errors.New("empty key")
	ErrEmptyValue = errors.New("empty value")

	errHashCollision = errors.New("distinct keys share a key hash")
)

// Change is a pending mutation of one key. If Delete is set, Value is ignored.
type Change struct {
	Key    []byte
	Value  []byte
	Delete bool
}

type pendingLeaf struct {
	keyHash Hash
	key     []byte
	value   []byte
	delete  bool
}

// Apply writes the tree resulting from applying [changes] to the tree with
// [root] into [w] and returns its root. Existing nodes are read from [nodes]
// and are never modified. If a key is changed more than once, the last change
// wins.
func Apply(nodes *Nodes, root Hash, changes []Change, w database.KeyValueWriter) (Hash, error) {
	byHash := make(map[Hash]int, len(changes))
	pending := make([]pendingLeaf, 0, len(changes))
	for _, change := range changes {
		if len(change.Key) == 0 {
			return EmptyRoot, ErrEmptyKey
		}
		if !change.Delete && len(change.Value) == 0 {
			return EmptyRoot, fmt.Errorf("%w: for key %x", ErrEmptyValue, change.Key)
		}

		leaf := pendingLeaf{
			keyHash: HashKey(change.Key),
			key:     change.Key,
			value:   change.Value,
			delete:  change.Delete,
		}
		if i, ok := byHash[leaf.keyHash]; ok {
			pending[i] = leaf
			continue
		}
		byHash[leaf.keyHash] = len(pending)
		pending = append(pending, leaf)
	}
	slices.SortFunc(pending, comparePending)

	a := &applier{
		nodes:   nodes,
		w:       w,
		created: make(map[Hash]*node),
	}
	return a.update(root, 0, pending)
}

func comparePending(a, b pendingLeaf) int {
	return bytes.Compare(a.keyHash[:], b.keyHash[:])
}

type applier struct {
	nodes *Nodes
	w     database.KeyValueWriter
	// nodes written by this applier, which aren't yet readable from [nodes]
	created map[Hash]*node
}

func (a *applier) get(h Hash) (*node, error) {
	if n, ok := a.created[h]; ok {
		return n, nil
	}
	return a.nodes.get(h)
}

func (a *applier) write(n *node) (Hash, error) {
	a.nodes.metrics.HashCalculated()
	h := n.hash()
	if _, ok := a.created[h]; ok {
		return h, nil
	}

	a.nodes.metrics.DatabaseNodeWrite()
	if err := a.w.Put(h[:], encodeNode(n)); err != nil {
		return EmptyRoot, err
	}
	a.created[h] = n
	return h, nil
}

// update applies [changes], which all lie below the subtree [h] at [depth],
// and returns the new hash of the subtree.
func (a *applier) update(h Hash, depth int, changes []pendingLeaf) (Hash, error) {
	if len(changes) == 0 {
		return h, nil
	}

	n, err := a.get(h)
	if err != nil {
		return EmptyRoot, err
	}
	if n == nil || n.isLeaf {
		return a.build(depth, merge(n, changes))
	}
	if depth >= MaxDepth {
		return EmptyRoot, fmt.Errorf("%w: inner node %s below max depth", ErrInvalidNode, h)
	}

	split := splitIndex(changes, depth)
	left, err := a.update(n.left, depth+1, changes[:split])
	if err != nil {
		return EmptyRoot, err
	}
	right, err := a.update(n.right, depth+1, changes[split:])
	if err != nil {
		return EmptyRoot, err
	}
	if left == n.left && right == n.right {
		return h, nil
	}
	return a.inner(left, right)
}

// inner returns the canonical subtree with the provided children. A subtree
// holding a single leaf collapses into that leaf.
func (a *applier) inner(left, right Hash) (Hash, error) {
	switch {
	case left.IsEmpty() && right.IsEmpty():
		return EmptyRoot, nil
	case left.IsEmpty() || right.IsEmpty():
		only := left
		if only.IsEmpty() {
			only = right
		}
		n, err := a.get(only)
		if err != nil {
			return EmptyRoot, err
		}
		if n.isLeaf {
			return only, nil
		}
	}
	return a.write(newInner(left, right))
}

// build returns the canonical subtree at [depth] holding exactly [leaves].
func (a *applier) build(depth int, leaves []pendingLeaf) (Hash, error) {
	switch len(leaves) {
	case 0:
		return EmptyRoot, nil
	case 1:
		leaf := leaves[0]
		return a.write(&node{
			isLeaf:  true,
			keyHash: leaf.keyHash,
			key:     leaf.key,
			value:   leaf.value,
		})
	}
	if depth >= MaxDepth {
		return EmptyRoot, errHashCollision
	}

	split := splitIndex(leaves, depth)
	left, err := a.build(depth+1, leaves[:split])
	if err != nil {
		return EmptyRoot, err
	}
	right, err := a.build(depth+1, leaves[split:])
	if err != nil {
		return EmptyRoot, err
	}
	return a.write(newInner(left, right))
}

// merge returns the leaves of a subtree that held only [existing], which may
// be nil, after applying [changes].
func merge(existing *node, changes []pendingLeaf) []pendingLeaf {
	leaves := make([]pendingLeaf, 0, len(changes)+1)
	keep := existing != nil
	for _, change := range changes {
		if keep && change.keyHash == existing.keyHash {
			keep = false
		}
		if !change.delete {
			leaves = append(leaves, change)
		}
	}
	if keep {
		leaves = append(leaves, pendingLeaf{
			keyHash: existing.keyHash,
			key:     existing.key,
			value:   existing.value,
		})
		slices.SortFunc(leaves, comparePending)
	}
	return leaves
}

// splitIndex returns the index of the first of [leaves] that descends right
// at [depth]. [leaves] must be sorted and share their first [depth] bits.
func splitIndex(leaves []pendingLeaf, depth int) int {
	i := slices.IndexFunc(leaves, func(l pendingLeaf) bool {
		return l.keyHash.bit(depth) == 1
	})
	if i == -1 {
		return len(leaves)
	}
	return i
}
