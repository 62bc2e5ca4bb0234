// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package smt

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const innerNodeLen = 1 + 2*HashLength

var (
	ErrInvalidNode    = errors.New("invalid node encoding")
	errUnknownType    = errors.New("unknown node type")
	errKeyHashInvalid = errors.New("leaf key does not match its key hash")
)

// node is either a leaf holding one key/value pair or an inner node with two
// children. A subtree holding a single leaf is always stored as that leaf, so
// an inner node never has exactly one non-empty leaf beneath it.
type node struct {
	isLeaf bool

	// leaf fields
	keyHash Hash
	key     []byte
	value   []byte

	// inner fields
	left, right Hash
}

func newLeaf(key, value []byte) *node {
	return &node{
		isLeaf:  true,
		keyHash: HashKey(key),
		key:     key,
		value:   value,
	}
}

func newInner(left, right Hash) *node {
	return &node{
		left:  left,
		right: right,
	}
}

func (n *node) hash() Hash {
	if n.isLeaf {
		return hashLeaf(n.keyHash, n.value)
	}
	return hashInner(n.left, n.right)
}

// child returns the hash of the child selected by [bit].
func (n *node) child(bit byte) Hash {
	if bit == 0 {
		return n.left
	}
	return n.right
}

// encodeNode serializes [n].
//
// leaf:  0x00 | keyHash | uvarint(len(key)) | key | value
// inner: 0x01 | left | right
func encodeNode(n *node) []byte {
	if !n.isLeaf {
		b := make([]byte, innerNodeLen)
		b[0] = innerPrefix
		copy(b[1:], n.left[:])
		copy(b[1+HashLength:], n.right[:])
		return b
	}

	b := make([]byte, 0, 1+HashLength+binary.MaxVarintLen64+len(n.key)+len(n.value))
	b = append(b, leafPrefix)
	b = append(b, n.keyHash[:]...)
	b = binary.AppendUvarint(b, uint64(len(n.key)))
	b = append(b, n.key...)
	b = append(b, n.value...)
	return b
}

func decodeNode(b []byte) (*node, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidNode)
	}

	switch b[0] {
	case innerPrefix:
		if len(b) != innerNodeLen {
			return nil, fmt.Errorf("%w: inner node has length %d", ErrInvalidNode, len(b))
		}
		n := &node{}
		copy(n.left[:], b[1:])
		copy(n.right[:], b[1+HashLength:])
		return n, nil
	case leafPrefix:
		b = b[1:]
		if len(b) < HashLength {
			return nil, fmt.Errorf("%w: leaf missing key hash", ErrInvalidNode)
		}
		n := &node{isLeaf: true}
		copy(n.keyHash[:], b)
		b = b[HashLength:]

		keyLen, read := binary.Uvarint(b)
		if read <= 0 {
			return nil, fmt.Errorf("%w: leaf key length", ErrInvalidNode)
		}
		b = b[read:]
		if keyLen > uint64(len(b)) {
			return nil, fmt.Errorf("%w: leaf key length %d exceeds remaining %d bytes", ErrInvalidNode, keyLen, len(b))
		}
		n.key = b[:keyLen:keyLen]
		n.value = b[keyLen:]
		if HashKey(n.key) != n.keyHash {
			return nil, fmt.Errorf("%w: %w", ErrInvalidNode, errKeyHashInvalid)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("%w: %w 0x%02x", ErrInvalidNode, errUnknownType, b[0])
	}
}
