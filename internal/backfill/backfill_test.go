package backfill

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestObserveIgnoresEmptyFileList(t *testing.T) {
	c := &Coordinator{log: zap.NewNop()}
	// store and locker are both nil: if Observe touched either for an
	// empty file list this would panic, proving the early return holds.
	c.Observe(context.Background(), "deadbeef", nil, 1)
}
