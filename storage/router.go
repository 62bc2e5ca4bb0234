// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ava-labs/multistore/database/prefixdb"
)

var (
	treeColumn  = []byte("tree")
	keysColumn  = []byte("keys")
	rawColumn   = []byte("raw")
	rootsColumn = []byte("roots")

	metaPrefix = prefixdb.MakePrefix([]byte("meta"))
	latestKey  = []byte("latest")

	errEmptyPrefix     = errors.New("sub-store prefix is empty")
	errDuplicatePrefix = errors.New("duplicate sub-store prefix")
)

// SubstoreConfig identifies one sub-store and the columns its data is stored
// in.
type SubstoreConfig struct {
	// Prefix is stripped from every key routed to this sub-store. It is empty
	// for the main store.
	Prefix string

	parent   *SubstoreConfig
	children []*SubstoreConfig
	// rootKey is the key this sub-store's root is stored under in its
	// parent's tree.
	rootKey string

	tree  []byte
	keys  []byte
	raw   []byte
	roots []byte
}

func newSubstoreConfig(prefix string) *SubstoreConfig {
	base := prefixdb.MakePrefix([]byte(prefix))
	return &SubstoreConfig{
		Prefix: prefix,
		tree:   prefixdb.JoinPrefixes(base, treeColumn),
		keys:   prefixdb.JoinPrefixes(base, keysColumn),
		raw:    prefixdb.JoinPrefixes(base, rawColumn),
		roots:  prefixdb.JoinPrefixes(base, rootsColumn),
	}
}

func (c *SubstoreConfig) IsMain() bool {
	return c.parent == nil
}

// Parent returns the sub-store whose tree holds the root of this sub-store, or
// nil for the main store.
func (c *SubstoreConfig) Parent() *SubstoreConfig {
	return c.parent
}

// RootKey returns the key this sub-store's root is stored under in its
// parent's tree.
func (c *SubstoreConfig) RootKey() string {
	return c.rootKey
}

func (c *SubstoreConfig) String() string {
	if c.IsMain() {
		return "main"
	}
	return fmt.Sprintf("%q", c.Prefix)
}

// MultistoreConfig routes keys to the sub-store that owns them.
type MultistoreConfig struct {
	main *SubstoreConfig
	// substores are ordered by decreasing prefix length, so every sub-store
	// comes before its parent.
	substores []*SubstoreConfig
}

func NewMultistoreConfig(prefixes []string) (*MultistoreConfig, error) {
	c := &MultistoreConfig{
		main:      newSubstoreConfig(""),
		substores: make([]*SubstoreConfig, 0, len(prefixes)),
	}
	seen := make(map[string]struct{}, len(prefixes))
	for _, prefix := range prefixes {
		if prefix == "" {
			return nil, errEmptyPrefix
		}
		if _, ok := seen[prefix]; ok {
			return nil, fmt.Errorf("%w: %q", errDuplicatePrefix, prefix)
		}
		seen[prefix] = struct{}{}
		c.substores = append(c.substores, newSubstoreConfig(prefix))
	}
	slices.SortFunc(c.substores, func(a, b *SubstoreConfig) int {
		if len(a.Prefix) != len(b.Prefix) {
			return len(b.Prefix) - len(a.Prefix)
		}
		return strings.Compare(a.Prefix, b.Prefix)
	})

	// The parent of a sub-store is the sub-store with the longest prefix that
	// is a strict prefix of its own.
	for i, substore := range c.substores {
		substore.parent = c.main
		for _, candidate := range c.substores[i+1:] {
			if len(candidate.Prefix) < len(substore.Prefix) && strings.HasPrefix(substore.Prefix, candidate.Prefix) {
				substore.parent = candidate
				break
			}
		}
		substore.rootKey = substore.Prefix[len(substore.parent.Prefix):]
		substore.parent.children = append(substore.parent.children, substore)
	}
	return c, nil
}

func (c *MultistoreConfig) Main() *SubstoreConfig {
	return c.main
}

// Substores returns every sub-store, children before their parents, ending
// with the main store.
func (c *MultistoreConfig) Substores() []*SubstoreConfig {
	return append(slices.Clone(c.substores), c.main)
}

// Route returns the sub-store owning [key] and [key] with the sub-store's
// prefix stripped. Keys matching no prefix belong to the main store.
func (c *MultistoreConfig) Route(key string) (*SubstoreConfig, string) {
	for _, substore := range c.substores {
		if strings.HasPrefix(key, substore.Prefix) {
			return substore, key[len(substore.Prefix):]
		}
	}
	return c.main, key
}

// RouteBytes is Route for byte keys.
func (c *MultistoreConfig) RouteBytes(key []byte) (*SubstoreConfig, []byte) {
	for _, substore := range c.substores {
		if bytes.HasPrefix(key, []byte(substore.Prefix)) {
			return substore, key[len(substore.Prefix):]
		}
	}
	return c.main, key
}

// span is the part of a scan answered by one sub-store. Keys are relative to
// the sub-store.
type span struct {
	substore *SubstoreConfig
	prefix   []byte
	start    []byte
	// end is exclusive. A nil end is unbounded.
	end []byte
}

// spans splits the scan of full keys beginning with [prefix] in
// [prefix+start, prefix+end) into one span per sub-store that may hold such
// keys. A nil [end] is unbounded. The spans are ordered by sub-store, not by
// key.
func (c *MultistoreConfig) spans(prefix, start, end []byte) []span {
	lower := prefixdb.PrefixKey(prefix, start)
	var upper []byte
	if end != nil {
		upper = prefixdb.PrefixKey(prefix, end)
	}

	// Keys beginning with [prefix] belong to the sub-store [prefix] routes
	// to, or to a sub-store nested below [prefix].
	routed, _ := c.RouteBytes(prefix)

	spans := make([]span, 0, 1)
	for _, substore := range c.Substores() {
		storePrefix := []byte(substore.Prefix)

		s := span{substore: substore}
		switch {
		case substore == routed:
			s.prefix = prefix[len(storePrefix):]
		case len(storePrefix) > len(prefix) && bytes.HasPrefix(storePrefix, prefix):
		default:
			continue
		}

		switch {
		case bytes.HasPrefix(lower, storePrefix):
			s.start = lower[len(storePrefix):]
		case bytes.Compare(lower, storePrefix) > 0:
			// Every key of this sub-store sorts before [lower].
			continue
		}

		if upper != nil {
			switch {
			case bytes.HasPrefix(upper, storePrefix):
				s.end = upper[len(storePrefix):]
				if len(s.end) == 0 {
					continue
				}
			case bytes.Compare(upper, storePrefix) < 0:
				// Every key of this sub-store sorts after [upper].
				continue
			}
		}
		spans = append(spans, s)
	}
	return spans
}
