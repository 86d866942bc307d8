package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	t.Run("returns attached logger", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		log := zap.New(core).Sugar()

		ctx := WithContext(context.Background(), log)
		FromContext(ctx).Infow("computed targets", "positions", 3)

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		require.Equal(t, "computed targets", entry.Message)
		require.Equal(t, int64(3), entry.ContextMap()["positions"])
	})

	t.Run("falls back when missing", func(t *testing.T) {
		require.NotNil(t, FromContext(context.Background()))
		require.NotNil(t, FromContext(nil)) //nolint:staticcheck
	})
}
