// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	ics23 "github.com/cosmos/ics23/go"

	"github.com/ava-labs/multistore/x/smt"
)

var (
	errEmptyProofChain = errors.New("empty proof chain")
	errChainLength     = errors.New("proof chain does not match the sub-store nesting")
	errKeyMismatch     = errors.New("proof link is not keyed by the routed key")
	errRootMismatch    = errors.New("proof chain does not lead to the expected root")
)

// ProofLink proves the value of Key in one tree.
type ProofLink struct {
	Key   []byte
	Proof *ics23.CommitmentProof
}

// ProofChain proves the value of a key against the composite root. The first
// link is against the tree of the sub-store owning the key. Every later link
// proves the root computed by the previous link in the parent tree, ending
// with the main store.
type ProofChain []ProofLink

// Marshal returns the protobuf encoding of every link's proof.
func (c ProofChain) Marshal() ([][]byte, error) {
	encoded := make([][]byte, len(c))
	for i, link := range c {
		b, err := link.Proof.Marshal()
		if err != nil {
			return nil, err
		}
		encoded[i] = b
	}
	return encoded, nil
}

// VerifyProofChain returns nil iff [chain] proves that [key] maps to [value]
// in the multistore laid out by [config] with the composite root [root]. A
// nil [value] verifies that [key] is absent.
//
// The first link must be keyed by [key] relative to the sub-store [key]
// routes to, and every later link by the key of the previous sub-store in its
// parent. A sub-store without entries has no entry in its parent's tree, so a
// link whose tree is empty is proven in the next link by a non-existence
// proof.
func VerifyProofChain(
	config *MultistoreConfig,
	root smt.Hash,
	key []byte,
	value []byte,
	chain ProofChain,
) error {
	if len(chain) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidProof, errEmptyProofChain)
	}

	substore, residual := config.RouteBytes(key)
	if len(residual) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidProof, ErrEmptyKey)
	}
	expectedKeys := [][]byte{residual}
	for child := substore; !child.IsMain(); child = child.parent {
		expectedKeys = append(expectedKeys, []byte(child.rootKey))
	}
	if len(chain) != len(expectedKeys) {
		return fmt.Errorf("%w: %w: %d links, %s needs %d",
			ErrInvalidProof, errChainLength, len(chain), substore, len(expectedKeys))
	}
	for i, link := range chain {
		if !bytes.Equal(link.Key, expectedKeys[i]) {
			return fmt.Errorf("%w: %w: link %d is keyed by %q, expected %q",
				ErrInvalidProof, errKeyMismatch, i, link.Key, expectedKeys[i])
		}
	}

	var linkRoot smt.Hash
	for i, link := range chain {
		var err error
		linkRoot, err = smt.CalculateRoot(link.Proof)
		if err != nil {
			return fmt.Errorf("link %d: %w", i, err)
		}
		if err := smt.Verify(linkRoot, link.Proof, link.Key, value); err != nil {
			return fmt.Errorf("link %d: %w", i, err)
		}

		value = nil
		if !linkRoot.IsEmpty() {
			value = slices.Clone(linkRoot[:])
		}
	}

	if linkRoot != root {
		return fmt.Errorf("%w: %w: computed %s, expected %s", ErrInvalidProof, errRootMismatch, linkRoot, root)
	}
	return nil
}
