package alldebrid

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestApiErrorMapsKnownCodes(t *testing.T) {
	badKey := gjson.Parse(`{"error":{"code":"AUTH_BAD_APIKEY","message":"bad key"}}`)
	err := apiError(200, badKey)
	require.ErrorContains(t, err, "bad key")

	needPremium := gjson.Parse(`{"error":{"code":"MAGNET_MUST_BE_PREMIUM","message":"premium required"}}`)
	err = apiError(200, needPremium)
	require.ErrorContains(t, err, "premium required")
}

func TestNewBuildsServiceTaggedAdapter(t *testing.T) {
	adapter := New("token")
	require.Equal(t, "alldebrid", adapter.Service())
}
