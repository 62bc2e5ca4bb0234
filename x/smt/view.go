// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package smt

import (
	"bytes"
	"fmt"
	"slices"

	ics23 "github.com/cosmos/ics23/go"
)

// View is a read-only tree pinned to one root. It is safe for concurrent use
// as long as its underlying reader is.
type View struct {
	root  Hash
	nodes *Nodes
}

func (v *View) Root() Hash {
	return v.root
}

// Get returns the value of the leaf at [keyHash]. The second return value is
// false if no such leaf exists.
func (v *View) Get(keyHash Hash) ([]byte, bool, error) {
	leaf, _, err := v.descend(keyHash)
	if err != nil || leaf == nil || leaf.keyHash != keyHash {
		return nil, false, err
	}
	return slices.Clone(leaf.value), true, nil
}

// GetWithProof returns the value of [key], or nil if it isn't in the tree,
// along with a proof of the result against the root of this view.
func (v *View) GetWithProof(key []byte) ([]byte, *ics23.CommitmentProof, error) {
	keyHash := HashKey(key)
	leaf, path, err := v.descend(keyHash)
	if err != nil {
		return nil, nil, err
	}

	if leaf != nil && leaf.keyHash == keyHash {
		return slices.Clone(leaf.value), &ics23.CommitmentProof{
			Proof: &ics23.CommitmentProof_Exist{
				Exist: existenceProof(leaf, path),
			},
		}, nil
	}

	proof, err := v.nonExistenceProof(key, keyHash, leaf, path)
	if err != nil {
		return nil, nil, err
	}
	return nil, &ics23.CommitmentProof{
		Proof: &ics23.CommitmentProof_Nonexist{
			Nonexist: proof,
		},
	}, nil
}

// step is one inner node visited on the way to a leaf.
type step struct {
	node *node
	bit  byte
}

// sibling returns the child of the step's node that the descent didn't take.
func (s step) sibling() Hash {
	return s.node.child(1 - s.bit)
}

// descend follows [keyHash] from the root until it reaches a leaf or an empty
// subtree. It returns the leaf, or nil, along with the inner nodes visited in
// root to leaf order.
func (v *View) descend(keyHash Hash) (*node, []step, error) {
	var (
		path    []step
		current = v.root
	)
	for depth := 0; ; depth++ {
		n, err := v.nodes.get(current)
		if err != nil {
			return nil, nil, err
		}
		if n == nil || n.isLeaf {
			return n, path, nil
		}
		if depth >= MaxDepth {
			return nil, nil, fmt.Errorf("%w: inner node %s below max depth", ErrInvalidNode, current)
		}

		bit := keyHash.bit(depth)
		path = append(path, step{
			node: n,
			bit:  bit,
		})
		current = n.child(bit)
	}
}

// nonExistenceProof proves that [keyHash] isn't in the tree by proving the
// existence of its in-order neighbours. [terminal] and [path] are the result
// of descending towards [keyHash].
func (v *View) nonExistenceProof(
	key []byte,
	keyHash Hash,
	terminal *node,
	path []step,
) (*ics23.NonExistenceProof, error) {
	proof := &ics23.NonExistenceProof{
		Key: key,
	}
	if v.root.IsEmpty() {
		return proof, nil
	}

	// The deepest non-empty subtrees immediately before and after the
	// position of [keyHash].
	var (
		left, right Hash
	)
	for _, s := range path {
		sibling := s.sibling()
		if sibling.IsEmpty() {
			continue
		}
		if s.bit == 1 {
			left = sibling
		} else {
			right = sibling
		}
	}

	var predecessor, successor *node
	if terminal != nil {
		if less(terminal.keyHash, keyHash) {
			predecessor = terminal
		} else {
			successor = terminal
		}
	}

	var err error
	if predecessor == nil && !left.IsEmpty() {
		predecessor, err = v.edge(left, 1)
		if err != nil {
			return nil, err
		}
	}
	if successor == nil && !right.IsEmpty() {
		successor, err = v.edge(right, 0)
		if err != nil {
			return nil, err
		}
	}

	if predecessor != nil {
		proof.Left, err = v.proveExistence(predecessor)
		if err != nil {
			return nil, err
		}
	}
	if successor != nil {
		proof.Right, err = v.proveExistence(successor)
		if err != nil {
			return nil, err
		}
	}
	return proof, nil
}

// edge returns the leaf furthest in the direction of [bit] below [root]: the
// leftmost leaf for 0 and the rightmost leaf for 1.
func (v *View) edge(root Hash, bit byte) (*node, error) {
	current := root
	for depth := 0; depth <= MaxDepth; depth++ {
		n, err := v.nodes.get(current)
		if err != nil {
			return nil, err
		}
		if n == nil {
			return nil, fmt.Errorf("%w: empty subtree below inner node", ErrInvalidNode)
		}
		if n.isLeaf {
			return n, nil
		}

		current = n.child(bit)
		if current.IsEmpty() {
			current = n.child(1 - bit)
		}
	}
	return nil, fmt.Errorf("%w: subtree %s deeper than max depth", ErrInvalidNode, root)
}

func (v *View) proveExistence(leaf *node) (*ics23.ExistenceProof, error) {
	found, path, err := v.descend(leaf.keyHash)
	if err != nil {
		return nil, err
	}
	if found == nil || found.keyHash != leaf.keyHash {
		return nil, fmt.Errorf("%w: leaf %s unreachable from root %s", ErrInvalidNode, leaf.keyHash, v.root)
	}
	return existenceProof(leaf, path), nil
}

func existenceProof(leaf *node, path []step) *ics23.ExistenceProof {
	ops := make([]*ics23.InnerOp, len(path))
	for i, s := range path {
		sibling := s.sibling()
		op := &ics23.InnerOp{
			Hash: ProofSpec.InnerSpec.Hash,
		}
		if s.bit == 0 {
			op.Prefix = []byte{innerPrefix}
			op.Suffix = sibling[:]
		} else {
			op.Prefix = append([]byte{innerPrefix}, sibling[:]...)
		}
		// ICS23 paths are ordered from the leaf to the root.
		ops[len(path)-1-i] = op
	}

	return &ics23.ExistenceProof{
		Key:   slices.Clone(leaf.key),
		Value: slices.Clone(leaf.value),
		Leaf:  leafOp(),
		Path:  ops,
	}
}

func leafOp() *ics23.LeafOp {
	spec := ProofSpec.LeafSpec
	return &ics23.LeafOp{
		Hash:         spec.Hash,
		PrehashKey:   spec.PrehashKey,
		PrehashValue: spec.PrehashValue,
		Length:       spec.Length,
		Prefix:       slices.Clone(spec.Prefix),
	}
}

func less(a, b Hash) bool {
	return bytes.Compare(a[:], b[:]) < 0
}
