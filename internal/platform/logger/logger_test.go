package logger

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		wantErr bool
	}{
		{name: "debug level", level: "debug"},
		{name: "info level", level: "info"},
		{name: "warn level", level: "warn"},
		{name: "error level", level: "error"},
		{name: "case insensitive", level: "INFO"},
		{name: "empty defaults to info", level: ""},
		{name: "invalid level", level: "verbose", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			log, err := Setup(LoggerConfig{Level: tc.level})
			if tc.wantErr {
				require.Error(t, err)
				assert.Nil(t, log)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, log)
		})
	}
}

func TestFromContext(t *testing.T) {
	base := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("returns stored logger", func(t *testing.T) {
		ctx := WithLogger(context.Background(), base)
		assert.Same(t, base, FromContext(ctx))
	})

	t.Run("falls back to default", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background()))
	})

	t.Run("falls back to provided default", func(t *testing.T) {
		fallback := slog.New(slog.NewTextHandler(io.Discard, nil))
		assert.Same(t, fallback, FromContextOrDefault(context.Background(), fallback))
	})
}
