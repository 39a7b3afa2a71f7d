package gateway

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streamcore/aggregator/internal/resolver"
	"github.com/streamcore/aggregator/internal/userdata"
)

func TestSelectProviderPrefersPathProvider(t *testing.T) {
	u := userdata.Empty()
	u.StreamingProviders = []userdata.StreamingProvider{
		{Service: "realdebrid", Token: "rd-token", IsPrimary: true},
		{Service: "alldebrid", Token: "ad-token"},
	}

	provider, ok := selectProvider(u, "alldebrid")
	require.True(t, ok)
	require.Equal(t, "alldebrid", provider.Service)
	require.Equal(t, "ad-token", provider.Token)
}

func TestSelectProviderFallsBackToPrimary(t *testing.T) {
	u := userdata.Empty()
	u.StreamingProviders = []userdata.StreamingProvider{{Service: "realdebrid", Token: "rd-token", IsPrimary: true}}

	provider, ok := selectProvider(u, "")
	require.True(t, ok)
	require.Equal(t, "realdebrid", provider.Service)
}

func TestSelectProviderFailsWhenNoneConfigured(t *testing.T) {
	_, ok := selectProvider(userdata.Empty(), "")
	require.False(t, ok)
}

func TestMediaFlowConfigHandlesMissingProxy(t *testing.T) {
	mf := mediaFlowConfig(userdata.Empty())
	require.Equal(t, "", mf.ProxyURL)
	require.Equal(t, "", mf.Password)
}

func TestMediaFlowConfigCopiesProxyFields(t *testing.T) {
	u := userdata.Empty()
	u.MediaFlow = &userdata.MediaFlowConfig{ProxyURL: "https://proxy.example", APIPassword: "secret"}
	mf := mediaFlowConfig(u)
	require.Equal(t, "https://proxy.example", mf.ProxyURL)
	require.Equal(t, "secret", mf.Password)
}

func TestResolverPreferencesTranslatesGroupingMode(t *testing.T) {
	u := userdata.Empty()
	u.Grouping = userdata.GroupingMixed
	prefs := resolverPreferences(u)
	require.Equal(t, resolver.GroupMixed, prefs.Grouping)
}

func TestIsPrivateIPRecognisesRFC1918(t *testing.T) {
	require.True(t, isPrivateIP("192.168.1.1"))
	require.True(t, isPrivateIP("10.0.0.5"))
	require.True(t, isPrivateIP("127.0.0.1"))
	require.False(t, isPrivateIP("8.8.8.8"))
	require.False(t, isPrivateIP("not-an-ip"))
}

func TestSplitSeriesIDParsesEpisodeSuffix(t *testing.T) {
	id, season, episode := splitSeriesID("tt1234567:1:2")
	require.Equal(t, "tt1234567", id)
	require.Equal(t, 1, season)
	require.Equal(t, 2, episode)
}

func TestSplitSeriesIDHandlesBareMovieID(t *testing.T) {
	id, season, episode := splitSeriesID("tt1234567")
	require.Equal(t, "tt1234567", id)
	require.Equal(t, 0, season)
	require.Equal(t, 0, episode)
}
