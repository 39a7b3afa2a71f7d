package prowlarraggregator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streamcore/aggregator/internal/prowlarr"
)

func TestImdbTagFormatsSevenDigitID(t *testing.T) {
	require.Equal(t, "tt0111161", imdbTag(111161))
	require.Equal(t, "", imdbTag(0))
}

func TestToCandidatesLowercasesInfoHash(t *testing.T) {
	torrents := []*prowlarr.Torrent{
		{Title: "Some Movie", InfoHash: "ABCDEF0123456789ABCDEF0123456789ABCDEF01", Seeders: 10, Size: 2000},
	}
	candidates := toCandidates(torrents, "1337x")
	require.Len(t, candidates, 1)
	require.Equal(t, "abcdef0123456789abcdef0123456789abcdef01", candidates[0].InfoHash)
	require.Equal(t, "1337x", candidates[0].IndexerName)
}
