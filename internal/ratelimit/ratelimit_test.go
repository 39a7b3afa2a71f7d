package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScraperLimiterWaitSucceedsWithinBudget(t *testing.T) {
	l := NewScraperLimiter(5, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Wait(ctx, "prowlarr"))
	}
}

func TestScraperLimiterIsolatesByName(t *testing.T) {
	l := NewScraperLimiter(1, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	require.NoError(t, l.Wait(ctx, "indexer-a"))
	require.NoError(t, l.Wait(ctx, "indexer-b"))
}
