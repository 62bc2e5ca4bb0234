// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package logging

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var allLevels = []Level{Off, Fatal, Error, Warn, Info, Trace, Debug, Verbo}

func TestAlignedString(t *testing.T) {
	for _, l := range allLevels {
		as := l.AlignedString()
		require.Len(t, as, alignedStringLen)
		s := l.String()
		if len(s) >= alignedStringLen {
			require.Equal(t, s[:alignedStringLen], as)
		} else {
			require.Equal(t, s, as[:len(s)])
			require.Equal(t, strings.Repeat(" ", alignedStringLen-len(s)), as[len(s):])
		}
	}
}

func TestToLevel(t *testing.T) {
	for _, l := range allLevels {
		parsed, err := ToLevel(strings.ToLower(l.String()))
		require.NoError(t, err)
		require.Equal(t, l, parsed)
	}

	_, err := ToLevel("loud")
	require.ErrorContains(t, err, "unknown log level")
}

func TestLevelJSON(t *testing.T) {
	require := require.New(t)

	b, err := json.Marshal(Trace)
	require.NoError(err)
	require.Equal(`"TRACE"`, string(b))

	var l Level
	require.NoError(json.Unmarshal([]byte(`"warn"`), &l))
	require.Equal(Warn, l)
}

func TestLevelOrder(t *testing.T) {
	require.Less(t, Verbo, Debug)
	require.Less(t, Debug, Trace)
	require.Less(t, Trace, Info)
	require.Less(t, Fatal, Off)
}
