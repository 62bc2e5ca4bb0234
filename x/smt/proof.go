// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package smt

import (
	"errors"
	"fmt"

	ics23 "github.com/cosmos/ics23/go"
)

// ProofSpec describes the proofs produced by this tree to ICS23 verifiers.
var ProofSpec = ics23.SmtSpec

var (
	ErrInvalidProof = errors.New("invalid proof")

	errNotExistenceProof    = errors.New("not an existence proof")
	errNotNonExistenceProof = errors.New("not a non-existence proof")
	errUnexpectedNeighbours = errors.New("empty tree proof has neighbours")
)

// VerifyExistence returns nil iff [proof] shows that [key] maps to [value] in
// the tree with [root].
func VerifyExistence(root Hash, proof *ics23.CommitmentProof, key, value []byte) error {
	exist := proof.GetExist()
	if exist == nil {
		return fmt.Errorf("%w: %w", ErrInvalidProof, errNotExistenceProof)
	}
	if err := exist.Verify(ProofSpec, root[:], key, value); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProof, err)
	}
	return nil
}

// VerifyNonExistence returns nil iff [proof] shows that [key] isn't in the
// tree with [root].
func VerifyNonExistence(root Hash, proof *ics23.CommitmentProof, key []byte) error {
	nonexist := proof.GetNonexist()
	if nonexist == nil {
		return fmt.Errorf("%w: %w", ErrInvalidProof, errNotNonExistenceProof)
	}

	// ICS23 can't express the absence of a key from a tree without leaves, so
	// the empty tree is proven by a proof without neighbours.
	if root.IsEmpty() {
		if nonexist.Left != nil || nonexist.Right != nil {
			return fmt.Errorf("%w: %w", ErrInvalidProof, errUnexpectedNeighbours)
		}
		return nil
	}
	if err := nonexist.Verify(ProofSpec, root[:], key); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProof, err)
	}
	return nil
}

// Verify checks [proof] against [root]. A nil [value] verifies the absence of
// [key].
func Verify(root Hash, proof *ics23.CommitmentProof, key, value []byte) error {
	if value == nil {
		return VerifyNonExistence(root, proof, key)
	}
	return VerifyExistence(root, proof, key, value)
}

// CalculateRoot returns the root that [proof] commits to. The proof must still
// be verified against the returned root.
func CalculateRoot(proof *ics23.CommitmentProof) (Hash, error) {
	var (
		root []byte
		err  error
	)
	switch {
	case proof.GetExist() != nil:
		root, err = proof.GetExist().Calculate()
	case proof.GetNonexist() != nil:
		nonexist := proof.GetNonexist()
		if nonexist.Left == nil && nonexist.Right == nil {
			return EmptyRoot, nil
		}
		root, err = nonexist.Calculate()
	default:
		return EmptyRoot, fmt.Errorf("%w: unsupported proof type %T", ErrInvalidProof, proof.GetProof())
	}
	if err != nil {
		return EmptyRoot, fmt.Errorf("%w: %w", ErrInvalidProof, err)
	}
	hash, err := ToHash(root)
	if err != nil {
		return EmptyRoot, fmt.Errorf("%w: %w", ErrInvalidProof, err)
	}
	return hash, nil
}
