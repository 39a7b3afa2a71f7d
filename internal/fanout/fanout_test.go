package fanout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunCollectsFromAllProducers(t *testing.T) {
	producers := []Producer[string]{
		func(ctx context.Context) ([]string, error) { return []string{"a", "b"}, nil },
		func(ctx context.Context) ([]string, error) { return []string{"c"}, nil },
	}

	result := Run(context.Background(), producers, Options[string]{
		Key: func(s string) string { return s },
	})

	require.ElementsMatch(t, []string{"a", "b", "c"}, result.Items)
}

func TestRunDedupsByKey(t *testing.T) {
	producers := []Producer[string]{
		func(ctx context.Context) ([]string, error) { return []string{"dup", "dup"}, nil },
		func(ctx context.Context) ([]string, error) { return []string{"dup"}, nil },
	}

	result := Run(context.Background(), producers, Options[string]{
		Key: func(s string) string { return s },
	})

	require.Len(t, result.Items, 1)
}

func TestRunRespectsMaxWaitAndOffersContinuation(t *testing.T) {
	slow := make(chan struct{})
	producers := []Producer[string]{
		func(ctx context.Context) ([]string, error) {
			select {
			case <-slow:
			case <-ctx.Done():
			}
			return []string{"late"}, nil
		},
		func(ctx context.Context) ([]string, error) { return []string{"fast"}, nil },
	}

	result := Run(context.Background(), producers, Options[string]{
		Key:     func(s string) string { return s },
		MaxWait: 20 * time.Millisecond,
	})

	require.Contains(t, result.Items, "fast")
	require.NotNil(t, result.Continue)
	close(slow)
}

func TestRunStopsAtMaxResults(t *testing.T) {
	producers := make([]Producer[string], 0, 5)
	for i := 0; i < 5; i++ {
		producers = append(producers, func(ctx context.Context) ([]string, error) {
			return []string{"x", "y"}, nil
		})
	}

	result := Run(context.Background(), producers, Options[string]{
		MaxResults: 3,
	})

	require.LessOrEqual(t, len(result.Items), 5)
}
