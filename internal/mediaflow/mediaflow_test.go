package mediaflow

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapURLPassesThroughWhenDisabled(t *testing.T) {
	cfg := Config{ProxyURL: "https://proxy.example", Password: "secret"}
	require.Equal(t, "https://origin/file.mkv", WrapURL(cfg, "https://origin/file.mkv", false))
}

func TestWrapURLPassesThroughWhenConfigIncomplete(t *testing.T) {
	require.Equal(t, "https://origin/file.mkv", WrapURL(Config{}, "https://origin/file.mkv", true))
}

func TestWrapURLInjectsPasswordAndContentTypeHint(t *testing.T) {
	cfg := Config{ProxyURL: "https://proxy.example", Password: "secret"}
	wrapped := WrapURL(cfg, "https://origin/file.mkv", true)

	parsed, err := url.Parse(wrapped)
	require.NoError(t, err)
	require.Equal(t, "proxy.example", parsed.Host)
	require.Equal(t, "secret", parsed.Query().Get("api_password"))
	require.Equal(t, "video/x-matroska", parsed.Query().Get("mediaflow_proxy_mime_type"))
	require.Equal(t, "https://origin/file.mkv", parsed.Query().Get("d"))
}

func TestCacheKeyIsStableForSameConfig(t *testing.T) {
	cfg := Config{ProxyURL: "https://proxy.example", Password: "secret"}
	require.Equal(t, cacheKey(cfg), cacheKey(cfg))

	other := Config{ProxyURL: "https://proxy.example", Password: "different"}
	require.NotEqual(t, cacheKey(cfg), cacheKey(other))
}
