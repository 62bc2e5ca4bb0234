// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package storage

import (
	"slices"

	"golang.org/x/exp/maps"
)

var _ StateWriter = (*Changeset)(nil)

type change struct {
	value  []byte
	delete bool
}

// Changeset collects the mutations committed as one version. If a key is
// written more than once, the last write wins. A Changeset is not safe for
// concurrent use.
type Changeset struct {
	verifiable    map[string]change
	nonverifiable map[string]change
}

func NewChangeset() *Changeset {
	return &Changeset{
		verifiable:    make(map[string]change),
		nonverifiable: make(map[string]change),
	}
}

func (c *Changeset) Put(key string, value []byte) {
	c.verifiable[key] = change{value: slices.Clone(value)}
}

func (c *Changeset) Delete(key string) {
	c.verifiable[key] = change{delete: true}
}

func (c *Changeset) NonverifiablePut(key []byte, value []byte) {
	c.nonverifiable[string(key)] = change{value: slices.Clone(value)}
}

func (c *Changeset) NonverifiableDelete(key []byte) {
	c.nonverifiable[string(key)] = change{delete: true}
}

// Len returns the number of keys changed.
func (c *Changeset) Len() int {
	return len(c.verifiable) + len(c.nonverifiable)
}

func sortedKeys(changes map[string]change) []string {
	keys := maps.Keys(changes)
	slices.Sort(keys)
	return keys
}
