package playback

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/streamcore/aggregator/internal/providerexception"
)

func TestGenerateCacheKeyIsStableAndDistinguishesInputs(t *testing.T) {
	a := generateCacheKey("1.2.3.4", "secret", "deadbeef", 1, 2)
	b := generateCacheKey("1.2.3.4", "secret", "deadbeef", 1, 2)
	require.Equal(t, a, b)

	c := generateCacheKey("1.2.3.4", "secret", "deadbeef", 1, 3)
	require.NotEqual(t, a, c)

	d := generateCacheKey("5.6.7.8", "secret", "deadbeef", 1, 2)
	require.NotEqual(t, a, d)
}

func TestExceptionURLMapsProviderExceptionToClip(t *testing.T) {
	c := &Coordinator{exceptionBaseURL: "https://host/static/exceptions", log: zap.NewNop()}
	url := c.exceptionURL(providerexception.New(providerexception.ClipTorrentNotDownloaded, "timed out"))
	require.Equal(t, "https://host/static/exceptions/torrent_not_downloaded.mp4", url)
}

func TestExceptionURLFallsBackToGenericClip(t *testing.T) {
	c := &Coordinator{exceptionBaseURL: "https://host/static/exceptions", log: zap.NewNop()}
	url := c.exceptionURL(errors.New("boom"))
	require.Equal(t, "https://host/static/exceptions/api_error.mp4", url)
}

func TestBuildMagnetURIWithNoTrackers(t *testing.T) {
	require.Equal(t, "magnet:?xt=urn:btih:deadbeef", buildMagnetURI("deadbeef", nil))
}

func TestBuildMagnetURIEncodesTrackers(t *testing.T) {
	uri := buildMagnetURI("deadbeef", []string{"udp://tracker.example:80/announce", "", "udp://tracker2.example:80/announce"})
	require.Equal(t, "magnet:?xt=urn:btih:deadbeef&tr=udp%3A%2F%2Ftracker.example%3A80%2Fannounce&tr=udp%3A%2F%2Ftracker2.example%3A80%2Fannounce", uri)
}
