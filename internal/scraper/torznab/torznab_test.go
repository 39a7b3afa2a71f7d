package torznab

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streamcore/aggregator/internal/scraper"
)

func TestItemToCandidateParsesTorrentAttrs(t *testing.T) {
	item := rssItem{
		Title: "Some.Movie.2020.1080p",
		Link:  "https://indexer.example/dl/1",
		Attrs: []torznabAttr{
			{Name: "infohash", Value: "ABCDEF0123456789ABCDEF0123456789ABCDEF01"},
			{Name: "seeders", Value: "42"},
			{Name: "size", Value: "1073741824"},
		},
	}
	c := itemToCandidate(item, "myindexer", scraper.KindTorrent)
	require.Equal(t, "abcdef0123456789abcdef0123456789abcdef01", c.InfoHash)
	require.Equal(t, 42, c.Seeders)
	require.EqualValues(t, 1073741824, c.SizeBytes)
	require.Equal(t, "https://indexer.example/dl/1", c.DownloadURL)
}

func TestItemToCandidateUsenetUsesGUID(t *testing.T) {
	item := rssItem{Title: "Some.Show.S01E02", GUID: "guid-123"}
	c := itemToCandidate(item, "nzbindexer", scraper.KindUsenet)
	require.Equal(t, "guid-123", c.NZBGUID)
	require.Equal(t, scraper.KindUsenet, c.Kind)
}
