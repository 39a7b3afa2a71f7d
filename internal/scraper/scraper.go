// Package scraper defines the uniform contract every indexer backend
// (Prowlarr-aggregated Torznab/Newznab indexers, or a directly-configured
// Torznab endpoint) implements, plus the shared candidate-validation chain
// every scraper's results pass through before reaching the catalog. The
// fan-out/filter/dedup shape is adapted from the teacher's addon pipeline
// (fanOutToAllIndexers / searchForTorrents / createExcludeTorrentsFilter /
// deduplicateTorrent in internal/addon/addon.go), generalized so it no
// longer assumes exactly one aggregator (Prowlarr) or exactly one cloud
// backend (RealDebrid).
package scraper

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/adrg/strutil/metrics"

	"github.com/streamcore/aggregator/internal/fanout"
	"github.com/streamcore/aggregator/internal/titleparser"
)

// Kind distinguishes the container type a Candidate wraps, since a
// catalog upsert routes to a different specialization table per kind.
type Kind string

const (
	KindTorrent Kind = "torrent"
	KindUsenet  Kind = "usenet"
)

// Candidate is one raw search hit from an indexer, before validation and
// title parsing.
type Candidate struct {
	Kind        Kind
	Title       string
	IndexerName string
	InfoHash    string // torrent natural key, lowercase 40-char hex
	MagnetURI   string
	NZBGUID     string // usenet natural key
	DownloadURL string
	Seeders     int
	SizeBytes   int64
	IMDBId      string
}

// Scraper is the contract an indexer backend implements.
type Scraper interface {
	Name() string
	SearchMovies(ctx context.Context, query string) ([]Candidate, error)
	SearchSeries(ctx context.Context, query string, season int) ([]Candidate, error)
}

// Query describes what the caller is looking for, carrying enough
// context for both title matching and per-user filter application.
type Query struct {
	Title         string
	Year          int
	Season        int
	Episode       int
	IsSeries      bool
	ExpectedIMDB  string
}

// Filters are the user-configurable exclusion bounds (spec.md §4.3).
type Filters struct {
	MinResolution     int
	MaxResolution     int
	MinSizeBytes      int64
	MaxSizeBytes      int64
	MinSeeders        int
	ExcludedQualities []string
	MaxTitleDistance  int
}

// DefaultFilters mirrors the teacher's hard-coded constants, used when a
// user hasn't configured overrides.
func DefaultFilters() Filters {
	return Filters{
		MinSizeBytes:      100 * 1 << 20,
		MaxSizeBytes:      30 * 1 << 30,
		MinSeeders:        0,
		ExcludedQualities: []string{"cam", "camrip", "telesync", "tsrip", "hdcam", "tc", "ppvrip", "r5", "vhsscr"},
		MaxTitleDistance:  5,
	}
}

var nonWordCharacter = regexp.MustCompile(`[^a-zA-Z0-9]+`)

var adultKeywords = []string{"xxx", "porn", "hentai", "18+", "adult-movie"}

// Validated pairs a raw Candidate with its parsed title metadata, ready
// for catalog upsert.
type Validated struct {
	Candidate Candidate
	Title     *titleparser.MetaInfo
}

// Validate applies the full exclusion chain (adult-content reject,
// quality exclusion, size/seeders bounds, resolution bounds, season/
// episode/year agreement, and title-similarity for IMDB-less hits) and
// returns the parsed title alongside an accept/reject verdict, mirroring
// excludeTorrents/checkTitleSimilarity.
func Validate(c Candidate, q Query, f Filters) (Validated, bool) {
	lowerTitle := strings.ToLower(c.Title)
	for _, kw := range adultKeywords {
		if strings.Contains(lowerTitle, kw) {
			return Validated{}, false
		}
	}

	parsed := titleparser.Parse(c.Title)

	if containsFold(f.ExcludedQualities, parsed.Quality) || parsed.ThreeD {
		return Validated{}, false
	}

	if f.MinSizeBytes > 0 && c.SizeBytes > 0 && c.SizeBytes < f.MinSizeBytes {
		return Validated{}, false
	}
	if f.MaxSizeBytes > 0 && c.SizeBytes > f.MaxSizeBytes {
		return Validated{}, false
	}
	if f.MinSeeders > 0 && c.Seeders < f.MinSeeders {
		return Validated{}, false
	}

	if f.MinResolution > 0 && parsed.Resolution > 0 && parsed.Resolution < f.MinResolution {
		return Validated{}, false
	}
	if f.MaxResolution > 0 && parsed.Resolution > 0 && parsed.Resolution > f.MaxResolution {
		return Validated{}, false
	}

	if q.ExpectedIMDB != "" && c.IMDBId != "" && c.IMDBId != q.ExpectedIMDB {
		return Validated{}, false
	}
	if q.Year > 0 && parsed.Year > 0 && parsed.Year != q.Year {
		return Validated{}, false
	}

	if q.IsSeries {
		if !parsed.ContainsSeasonEpisode(q.Season, q.Episode) && len(parsed.Seasons) > 0 && len(parsed.Episodes) > 0 {
			return Validated{}, false
		}
	}

	if c.IMDBId == "" {
		distance := titleDistance(q.Title, parsed.Title)
		maxDistance := f.MaxTitleDistance
		if maxDistance == 0 {
			maxDistance = DefaultFilters().MaxTitleDistance
		}
		if distance >= maxDistance {
			return Validated{}, false
		}
	}

	return Validated{Candidate: c, Title: parsed}, true
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}

func titleDistance(left, right string) int {
	left = nonWordCharacter.ReplaceAllString(left, "")
	right = nonWordCharacter.ReplaceAllString(right, "")
	m := &metrics.Levenshtein{
		CaseSensitive: false,
		InsertCost:    2,
		DeleteCost:    3,
		ReplaceCost:   3,
	}
	return m.Distance(left, right)
}

// Dedup is a natural-key dedup set, safe for concurrent use across the
// fan-out workers that feed it, the Go equivalent of deduplicateTorrent's
// sync.Map-backed filter.
type Dedup struct {
	seen sync.Map
}

// Accept reports whether key has not been seen before, marking it seen
// either way.
func (d *Dedup) Accept(key string) bool {
	if key == "" {
		return false
	}
	_, loaded := d.seen.LoadOrStore(key, struct{}{})
	return !loaded
}

// NaturalKey returns the dedup key for a candidate: info_hash for
// torrents, guid for usenet.
func NaturalKey(c Candidate) string {
	if c.InfoHash != "" {
		return "torrent:" + strings.ToLower(c.InfoHash)
	}
	return "usenet:" + c.NZBGUID
}

// AggregateOptions bounds one multi-indexer search (spec.md §4.5/§9):
// return within MaxWait or once MaxResults validated hits have been
// collected, whichever comes first, and let slower indexers keep
// reporting into the background via Continue.
type AggregateOptions struct {
	MaxResults     int
	MaxWait        time.Duration
	MaxConcurrency int
}

// Aggregate fans q out across every scraper concurrently, validating each
// hit against f before it counts toward the caps. It's the multi-indexer
// generalization of the teacher's fanOutToAllIndexers/searchForTorrents
// pair: one Prowlarr aggregator there, any number of Scraper backends
// here, composed through internal/fanout instead of internal/pipe.
func Aggregate(ctx context.Context, scrapers []Scraper, q Query, f Filters, opts AggregateOptions) fanout.Result[Validated] {
	producers := make([]fanout.Producer[Validated], 0, len(scrapers))
	for _, s := range scrapers {
		s := s
		producers = append(producers, func(ctx context.Context) ([]Validated, error) {
			var candidates []Candidate
			var err error
			if q.IsSeries {
				candidates, err = s.SearchSeries(ctx, q.Title, q.Season)
			} else {
				candidates, err = s.SearchMovies(ctx, q.Title)
			}
			if err != nil {
				return nil, err
			}
			validated := make([]Validated, 0, len(candidates))
			for _, c := range candidates {
				if v, ok := Validate(c, q, f); ok {
					validated = append(validated, v)
				}
			}
			return validated, nil
		})
	}

	return fanout.Run(ctx, producers, fanout.Options[Validated]{
		MaxResults:     opts.MaxResults,
		MaxWait:        opts.MaxWait,
		MaxConcurrency: opts.MaxConcurrency,
		Key:            func(v Validated) string { return NaturalKey(v.Candidate) },
	})
}
