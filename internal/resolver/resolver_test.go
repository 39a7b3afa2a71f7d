package resolver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streamcore/aggregator/internal/catalog"
)

func TestCombineSeparateModePreservesCategoryOrder(t *testing.T) {
	byCategory := map[Category][]Record{
		CategoryTorrent: {{Category: CategoryTorrent, Name: "a"}, {Category: CategoryTorrent, Name: "b"}},
		CategoryUsenet:  {{Category: CategoryUsenet, Name: "c"}},
	}
	out := combine(byCategory, []Category{CategoryTorrent, CategoryUsenet}, GroupSeparate)
	require.Equal(t, []string{"a", "b", "c"}, names(out))
}

func TestCombineMixedModeInterleavesAcrossCategories(t *testing.T) {
	byCategory := map[Category][]Record{
		CategoryTorrent: {{Category: CategoryTorrent, Name: "t1"}, {Category: CategoryTorrent, Name: "t2"}},
		CategoryUsenet:  {{Category: CategoryUsenet, Name: "u1"}},
	}
	out := combine(byCategory, []Category{CategoryTorrent, CategoryUsenet}, GroupMixed)
	require.Equal(t, []string{"t1", "u1", "t2"}, names(out))
}

func TestInterleaveSkipsExhaustedCategories(t *testing.T) {
	byCategory := map[Category][]Record{
		CategoryTorrent: {{Name: "t1"}},
		CategoryUsenet:  {},
	}
	out := interleave(byCategory, []Category{CategoryTorrent, CategoryUsenet})
	require.Equal(t, []string{"t1"}, names(out))
}

func TestHTTPRowsToRecordsCarriesURLAsFilename(t *testing.T) {
	rows := []catalog.HTTPStreamRow{
		{Stream: catalog.Stream{Name: "a", Quality: "1080p"}, URL: "https://host/a.mkv"},
	}
	out := httpRowsToRecords(rows)
	require.Len(t, out, 1)
	require.Equal(t, CategoryHTTP, out[0].Category)
	require.Equal(t, "https://host/a.mkv", out[0].Filename)
}

func TestUsenetRowsToRecordsCarriesIndexerAndURL(t *testing.T) {
	rows := []catalog.UsenetStreamRow{
		{Stream: catalog.Stream{Name: "b", Quality: "720p"}, NZBURL: "https://idx/b.nzb", Indexer: "nzbgeek", Grabs: 42},
	}
	out := usenetRowsToRecords(rows)
	require.Len(t, out, 1)
	require.Equal(t, CategoryUsenet, out[0].Category)
	require.Equal(t, "https://idx/b.nzb", out[0].NZBGUID)
	require.Equal(t, "nzbgeek", out[0].IndexerName)
}

func TestAceStreamRowsToRecordsCarriesAceID(t *testing.T) {
	rows := []catalog.AceStreamStreamRow{
		{Stream: catalog.Stream{Name: "c", Quality: "4K"}, AceID: "abc123"},
	}
	out := aceStreamRowsToRecords(rows)
	require.Len(t, out, 1)
	require.Equal(t, CategoryAceStream, out[0].Category)
	require.Equal(t, "abc123", out[0].Filename)
}

func names(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}
