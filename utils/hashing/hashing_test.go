// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hashing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeHash256Parts(t *testing.T) {
	require := require.New(t)

	whole := ComputeHash256Array([]byte("hello world"))
	require.Equal(whole, ComputeHash256Parts([]byte("hello"), []byte(" "), []byte("world")))
	require.Equal(ComputeHash256Array(nil), ComputeHash256Parts())
}

func TestToHash256(t *testing.T) {
	require := require.New(t)

	hash := ComputeHash256Array([]byte("x"))
	parsed, err := ToHash256(hash[:])
	require.NoError(err)
	require.Equal(hash, parsed)

	_, err = ToHash256(hash[:31])
	require.ErrorIs(err, ErrInvalidHashLen)
}
