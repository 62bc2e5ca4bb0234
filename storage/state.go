// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"context"
	"fmt"

	"github.com/ava-labs/multistore/database"
)

// StateReader is the read capability components depend on instead of a
// concrete store.
type StateReader interface {
	Get(ctx context.Context, key string) ([]byte, error)
	NonverifiableGet(ctx context.Context, key []byte) ([]byte, error)
	PrefixRaw(ctx context.Context, prefix string) *Stream[KeyValue]
	PrefixKeys(ctx context.Context, prefix string) *Stream[string]
	NonverifiablePrefixRaw(ctx context.Context, prefix []byte) *Stream[RawKeyValue]
	NonverifiableRangeRaw(ctx context.Context, prefix []byte, r Range) (*Stream[RawKeyValue], error)
}

// StateWriter is the write capability components depend on instead of a
// concrete changeset.
type StateWriter interface {
	Put(key string, value []byte)
	Delete(key string)
	NonverifiablePut(key []byte, value []byte)
	NonverifiableDelete(key []byte)
}

// GetUint64 returns the uint64 stored at [key]. The second return value is
// false if [key] has no value.
func GetUint64(ctx context.Context, r StateReader, key string) (uint64, bool, error) {
	b, err := r.Get(ctx, key)
	if err != nil || b == nil {
		return 0, false, err
	}
	value, err := database.ParseUInt64(b)
	if err != nil {
		return 0, false, fmt.Errorf("value of %q: %w", key, err)
	}
	return value, true, nil
}

func PutUint64(w StateWriter, key string, value uint64) {
	w.Put(key, database.PackUInt64(value))
}

// NonverifiableGetUint64 is GetUint64 for unauthenticated values.
func NonverifiableGetUint64(ctx context.Context, r StateReader, key []byte) (uint64, bool, error) {
	b, err := r.NonverifiableGet(ctx, key)
	if err != nil || b == nil {
		return 0, false, err
	}
	value, err := database.ParseUInt64(b)
	if err != nil {
		return 0, false, fmt.Errorf("value of %x: %w", key, err)
	}
	return value, true, nil
}

func NonverifiablePutUint64(w StateWriter, key []byte, value uint64) {
	w.NonverifiablePut(key, database.PackUInt64(value))
}

// Collect drains [s] into a slice and closes it.
func Collect[T any](s *Stream[T]) ([]T, error) {
	defer s.Close()

	var items []T
	for s.Next() {
		items = append(items, s.Item())
	}
	return items, s.Err()
}
