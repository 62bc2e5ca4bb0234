// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package smt

import (
	"encoding/hex"

	"github.com/ava-labs/multistore/utils/hashing"
)

const (
	HashLength = hashing.HashLen

	// MaxDepth is the number of bits in a key hash, and so the deepest level
	// a leaf can be found at.
	MaxDepth = HashLength * 8

	leafPrefix  byte = 0x00
	innerPrefix byte = 0x01
)

// EmptyRoot is the root of a tree with no leaves. It is also the hash of every
// empty subtree.
var EmptyRoot Hash

// Hash is a node hash, a root hash or a key hash.
type Hash [HashLength]byte

// HashKey returns the position of [key] in the tree.
func HashKey(key []byte) Hash {
	return hashing.ComputeHash256Array(key)
}

// ToHash parses a 32 byte slice.
func ToHash(b []byte) (Hash, error) {
	return hashing.ToHash256(b)
}

func (h Hash) IsEmpty() bool {
	return h == EmptyRoot
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// bit returns the bit of [h] that selects a child at [depth]. 0 is the left
// child and 1 is the right child.
func (h Hash) bit(depth int) byte {
	return (h[depth/8] >> (7 - depth%8)) & 1
}

func hashLeaf(keyHash Hash, value []byte) Hash {
	valueHash := hashing.ComputeHash256Array(value)
	return hashing.ComputeHash256Parts(
		[]byte{leafPrefix},
		keyHash[:],
		valueHash[:],
	)
}

func hashInner(left, right Hash) Hash {
	return hashing.ComputeHash256Parts(
		[]byte{innerPrefix},
		left[:],
		right[:],
	)
}
