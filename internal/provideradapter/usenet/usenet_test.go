package usenet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJoinPathTrimsTrailingSlash(t *testing.T) {
	require.Equal(t, "/downloads/movie.mkv", joinPath("/downloads/", "movie.mkv"))
	require.Equal(t, "/downloads/movie.mkv", joinPath("/downloads", "movie.mkv"))
}

func TestFilesFromNZBReturnsEmptyOnGarbageInput(t *testing.T) {
	a := &Adapter{}
	require.Empty(t, a.filesFromNZB(""))
	require.Empty(t, a.filesFromNZB("not an nzb document"))
}

func TestNewWithHostBuildsServiceTaggedAdapter(t *testing.T) {
	adapter := NewWithHost("http://localhost:8080", "key", "streamcore")
	require.Equal(t, "usenet", adapter.Service())
}
