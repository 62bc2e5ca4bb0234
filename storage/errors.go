// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"errors"

	"github.com/ava-labs/multistore/x/smt"
)

var (
	// ErrConsistency reports a broken invariant of the persisted state, such
	// as an indexed key whose leaf is missing from the tree. It is never
	// transient.
	ErrConsistency = errors.New("storage consistency violation")

	ErrInvalidRange      = errors.New("range start is after range end")
	ErrClosed            = errors.New("storage closed")
	ErrWorkerUnavailable = errors.New("no worker available")

	ErrEmptyKey     = smt.ErrEmptyKey
	ErrEmptyValue   = smt.ErrEmptyValue
	ErrInvalidProof = smt.ErrInvalidProof
)
