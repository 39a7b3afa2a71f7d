package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExecuteReturnsTypedResult(t *testing.T) {
	r := NewRegistry(Settings{FailureThreshold: 3, RecoveryTimeout: time.Second}, zap.NewNop())

	out, err := Execute(r, "indexer-a", func() (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", out)
}

func TestExecuteTripsAfterConsecutiveFailures(t *testing.T) {
	r := NewRegistry(Settings{FailureThreshold: 2, MinRequests: 1, RecoveryTimeout: time.Minute}, zap.NewNop())

	boom := errors.New("boom")
	failing := func() (string, error) { return "", boom }

	_, _ = Execute(r, "indexer-b", failing)
	_, _ = Execute(r, "indexer-b", failing)

	_, err := Execute(r, "indexer-b", func() (string, error) { return "ok", nil })
	require.Error(t, err)
	require.True(t, IsOpen(err))
}
