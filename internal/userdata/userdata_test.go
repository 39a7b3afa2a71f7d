package userdata

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeEmptyPayloadReturnsDefaults(t *testing.T) {
	u, err := Decode(nil)
	require.NoError(t, err)
	require.Equal(t, GroupingSeparate, u.Grouping)
	require.Equal(t, 50, u.MaxStreams)
	require.NotEmpty(t, u.CategoryOrder)
}

func TestDecodeAppliesDefaultsForMissingFields(t *testing.T) {
	u, err := Decode([]byte(`{"streaming_providers":[{"service":"realdebrid","token":"abc"}]}`))
	require.NoError(t, err)
	require.Equal(t, GroupingSeparate, u.Grouping)
	require.Equal(t, 50, u.MaxStreams)
	require.Len(t, u.StreamingProviders, 1)
}

func TestDecodePreservesExplicitValues(t *testing.T) {
	u, err := Decode([]byte(`{"grouping":"mixed","max_streams":10}`))
	require.NoError(t, err)
	require.Equal(t, GroupingMixed, u.Grouping)
	require.Equal(t, 10, u.MaxStreams)
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{not json`))
	require.Error(t, err)
}

func TestPrimaryProviderPrefersFlaggedEntry(t *testing.T) {
	u := Empty()
	u.StreamingProviders = []StreamingProvider{
		{Service: "alldebrid"},
		{Service: "realdebrid", IsPrimary: true},
	}
	p, ok := u.PrimaryProvider()
	require.True(t, ok)
	require.Equal(t, "realdebrid", p.Service)
}

func TestPrimaryProviderFallsBackToFirstWhenNoneFlagged(t *testing.T) {
	u := Empty()
	u.StreamingProviders = []StreamingProvider{{Service: "alldebrid"}}
	p, ok := u.PrimaryProvider()
	require.True(t, ok)
	require.Equal(t, "alldebrid", p.Service)
}

func TestPrimaryProviderFalseWhenEmpty(t *testing.T) {
	_, ok := Empty().PrimaryProvider()
	require.False(t, ok)
}

func TestProviderByServiceFindsMatch(t *testing.T) {
	u := Empty()
	u.StreamingProviders = []StreamingProvider{{Service: "premiumize", Token: "tok"}}
	p, ok := u.ProviderByService("premiumize")
	require.True(t, ok)
	require.Equal(t, "tok", p.Token)
}

func TestHasUsenetProviderRecognisesKnownServices(t *testing.T) {
	u := Empty()
	u.StreamingProviders = []StreamingProvider{{Service: "sabnzbd"}}
	require.True(t, u.HasUsenetProvider())
}

func TestHasUsenetProviderFalseForDebridOnly(t *testing.T) {
	u := Empty()
	u.StreamingProviders = []StreamingProvider{{Service: "realdebrid"}}
	require.False(t, u.HasUsenetProvider())
}

func TestMediaFlowConfigCompleteRequiresBothFields(t *testing.T) {
	var nilCfg *MediaFlowConfig
	require.False(t, nilCfg.Complete())

	require.False(t, (&MediaFlowConfig{ProxyURL: "https://proxy"}).Complete())
	require.True(t, (&MediaFlowConfig{ProxyURL: "https://proxy", APIPassword: "pw"}).Complete())
}
