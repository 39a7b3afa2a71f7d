package scraper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeScraper struct {
	name    string
	movies  []Candidate
	seriesFn func(season int) []Candidate
}

func (f fakeScraper) Name() string { return f.name }

func (f fakeScraper) SearchMovies(ctx context.Context, query string) ([]Candidate, error) {
	return f.movies, nil
}

func (f fakeScraper) SearchSeries(ctx context.Context, query string, season int) ([]Candidate, error) {
	if f.seriesFn == nil {
		return nil, nil
	}
	return f.seriesFn(season), nil
}

func TestValidateRejectsAdultKeyword(t *testing.T) {
	c := Candidate{Title: "Some.XXX.Movie.1080p", InfoHash: "a", SizeBytes: 2 << 30}
	_, ok := Validate(c, Query{Title: "Some Movie"}, DefaultFilters())
	require.False(t, ok)
}

func TestValidateRejectsExcludedQuality(t *testing.T) {
	c := Candidate{Title: "Some.Movie.2020.CAM.1080p", InfoHash: "a", SizeBytes: 2 << 30}
	_, ok := Validate(c, Query{Title: "Some Movie", Year: 2020}, DefaultFilters())
	require.False(t, ok)
}

func TestValidateRejectsOutOfSizeBounds(t *testing.T) {
	c := Candidate{Title: "Some.Movie.2020.WEB-DL.1080p", InfoHash: "a", SizeBytes: 10 * 1024}
	_, ok := Validate(c, Query{Title: "Some Movie", Year: 2020}, DefaultFilters())
	require.False(t, ok)
}

func TestValidateAcceptsMatchingCandidate(t *testing.T) {
	c := Candidate{Title: "Some.Movie.2020.WEB-DL.1080p.x264", InfoHash: "deadbeef", SizeBytes: 4 << 30, Seeders: 20}
	v, ok := Validate(c, Query{Title: "Some Movie", Year: 2020, ExpectedIMDB: ""}, DefaultFilters())
	require.True(t, ok)
	require.Equal(t, 1080, v.Title.Resolution)
}

func TestValidateRejectsYearMismatch(t *testing.T) {
	c := Candidate{Title: "Some.Movie.2019.WEB-DL.1080p", InfoHash: "a", SizeBytes: 4 << 30, Seeders: 20}
	_, ok := Validate(c, Query{Title: "Some Movie", Year: 2020}, DefaultFilters())
	require.False(t, ok)
}

func TestDedupAcceptsEachKeyOnce(t *testing.T) {
	d := &Dedup{}
	require.True(t, d.Accept("torrent:abc"))
	require.False(t, d.Accept("torrent:abc"))
	require.True(t, d.Accept("torrent:def"))
}

func TestNaturalKeyPrefersInfoHash(t *testing.T) {
	require.Equal(t, "torrent:abc", NaturalKey(Candidate{InfoHash: "ABC"}))
	require.Equal(t, "usenet:guid-1", NaturalKey(Candidate{NZBGUID: "guid-1"}))
}

func TestAggregateMergesAndDedupsAcrossScrapers(t *testing.T) {
	hit := Candidate{Title: "Some.Movie.2020.WEB-DL.1080p", InfoHash: "deadbeef", SizeBytes: 4 << 30, Seeders: 20}
	scrapers := []Scraper{
		fakeScraper{name: "one", movies: []Candidate{hit}},
		fakeScraper{name: "two", movies: []Candidate{hit}}, // same info_hash, should collapse
	}

	result := Aggregate(context.Background(), scrapers, Query{Title: "Some Movie", Year: 2020}, DefaultFilters(), AggregateOptions{})
	require.Len(t, result.Items, 1)
	require.Equal(t, "deadbeef", result.Items[0].Candidate.InfoHash)
}

func TestAggregateDropsCandidatesFailingValidation(t *testing.T) {
	bad := Candidate{Title: "Some.XXX.Movie.1080p", InfoHash: "a", SizeBytes: 2 << 30}
	scrapers := []Scraper{fakeScraper{name: "one", movies: []Candidate{bad}}}

	result := Aggregate(context.Background(), scrapers, Query{Title: "Some Movie"}, DefaultFilters(), AggregateOptions{})
	require.Empty(t, result.Items)
}

func TestAggregateUsesSeriesSearchWhenQueryIsSeries(t *testing.T) {
	hit := Candidate{Title: "Some.Show.S01E02.720p.WEB-DL", InfoHash: "cafebabe", SizeBytes: 2 << 30, Seeders: 5}
	scrapers := []Scraper{fakeScraper{name: "one", seriesFn: func(season int) []Candidate {
		require.Equal(t, 1, season)
		return []Candidate{hit}
	}}}

	result := Aggregate(context.Background(), scrapers, Query{Title: "Some Show", IsSeries: true, Season: 1, Episode: 2}, DefaultFilters(), AggregateOptions{})
	require.Len(t, result.Items, 1)
}
