// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name          string
		config        Config
		expectedErr   error
		expectValidSpan bool
	}{
		{
			name: "noop",
		},
		{
			name: "global",
			config: Config{
				ExporterConfig: ExporterConfig{Type: Global},
			},
		},
		{
			name: "grpc",
			config: Config{
				ExporterConfig: ExporterConfig{
					Type:     GRPC,
					Endpoint: "localhost:4317",
					Insecure: true,
				},
				AppName: "multistore",
			},
			expectValidSpan: true,
		},
		{
			name: "http",
			config: Config{
				ExporterConfig: ExporterConfig{
					Type:     HTTP,
					Endpoint: "localhost:4318",
					Headers:  map[string]string{"key": "value"},
					Insecure: true,
				},
				AppName: "multistore",
			},
			expectValidSpan: true,
		},
		{
			name: "unknown",
			config: Config{
				ExporterConfig: ExporterConfig{Type: ExporterType(255)},
			},
			expectedErr: errUnknownExporterType,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			tracer, err := New(test.config, "test")
			require.ErrorIs(err, test.expectedErr)
			if err != nil {
				return
			}

			// Unsampled spans still carry identifiers from the sdk provider and
			// are never exported, so no collector is needed.
			_, span := tracer.Start(context.Background(), "op")
			require.Equal(test.expectValidSpan, span.SpanContext().IsValid())
			require.False(span.IsRecording())
			span.End()

			require.NoError(tracer.Close())
		})
	}
}
