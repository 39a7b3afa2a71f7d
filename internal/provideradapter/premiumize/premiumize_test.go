package premiumize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestItemsKeyFormatsIndexedFormField(t *testing.T) {
	require.Equal(t, "items[0]", itemsKey(0))
	require.Equal(t, "items[12]", itemsKey(12))
}

func TestNewBuildsServiceTaggedAdapter(t *testing.T) {
	adapter := New("token")
	require.Equal(t, "premiumize", adapter.Service())
}
