package realdebrid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectedLinkIndexSkipsUnselectedFiles(t *testing.T) {
	tr := &torrent{
		Files: []torrentFile{
			{ID: 1, Selected: 0},
			{ID: 2, Selected: 1},
			{ID: 3, Selected: 1},
		},
		Links: []string{"linkA", "linkB"},
	}

	require.Equal(t, 0, selectedLinkIndex(tr, 2))
	require.Equal(t, 1, selectedLinkIndex(tr, 3))
	require.Equal(t, -1, selectedLinkIndex(tr, 1))
	require.Equal(t, -1, selectedLinkIndex(tr, 99))
}

func TestNewBuildsServiceTaggedAdapter(t *testing.T) {
	adapter := New("token")
	require.Equal(t, "realdebrid", adapter.Service())
}
