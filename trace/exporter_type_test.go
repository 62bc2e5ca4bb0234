// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package trace

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExporterTypeJSON(t *testing.T) {
	for _, exporterType := range []ExporterType{NoOp, GRPC, HTTP, Global} {
		b, err := json.Marshal(exporterType)
		require.NoError(t, err)

		var parsed ExporterType
		require.NoError(t, json.Unmarshal(b, &parsed))
		require.Equal(t, exporterType, parsed)
	}
}

func TestExporterTypeFromString(t *testing.T) {
	tests := []struct {
		in          string
		expected    ExporterType
		expectedErr error
	}{
		{in: "", expected: NoOp},
		{in: "null", expected: NoOp},
		{in: "GLOBAL", expected: Global},
		{in: "grpc", expected: GRPC},
		{in: "HTTP", expected: HTTP},
		{in: "zipkin", expectedErr: errUnknownExporterType},
	}
	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			exporterType, err := ExporterTypeFromString(test.in)
			require.ErrorIs(t, err, test.expectedErr)
			require.Equal(t, test.expected, exporterType)
		})
	}

	var parsed ExporterType
	require.ErrorIs(t, parsed.UnmarshalJSON([]byte("global")), errInvalidFormat)
}
