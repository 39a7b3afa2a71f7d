// Package prowlarraggregator wraps the teacher's internal/prowlarr client
// (kept as-is for its torrent-file/magnet parsing and GID generation) into
// a scraper.Scraper that fans out across every enabled indexer Prowlarr
// knows about. It is the direct generalization of addon.go's
// fanOutToAllIndexers + searchForTorrents + enrichInfoHash pair, minus the
// pipe-stage plumbing (replaced by internal/fanout at the call site).
package prowlarraggregator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/streamcore/aggregator/internal/circuitbreaker"
	"github.com/streamcore/aggregator/internal/prowlarr"
	"github.com/streamcore/aggregator/internal/ratelimit"
	"github.com/streamcore/aggregator/internal/scraper"
)

type Scraper struct {
	client   *prowlarr.Prowlarr
	breakers *circuitbreaker.Registry
	limiter  *ratelimit.ScraperLimiter
	log      *zap.Logger
}

func New(baseURL, apiKey string, breakers *circuitbreaker.Registry, limiter *ratelimit.ScraperLimiter, log *zap.Logger) *Scraper {
	return &Scraper{
		client:   prowlarr.New(baseURL, apiKey),
		breakers: breakers,
		limiter:  limiter,
		log:      log,
	}
}

func (s *Scraper) Name() string { return "prowlarr" }

func (s *Scraper) SearchMovies(ctx context.Context, query string) ([]scraper.Candidate, error) {
	indexers, err := s.enabledIndexers(ctx)
	if err != nil {
		return nil, err
	}

	var out []scraper.Candidate
	for _, idx := range indexers {
		torrents, err := s.searchOne(ctx, idx, func() ([]*prowlarr.Torrent, error) {
			return s.client.SearchMovieTorrents(idx, query)
		})
		if err != nil {
			s.log.Warn("indexer search failed", zap.String("indexer", idx.Name), zap.Error(err))
			continue
		}
		out = append(out, toCandidates(torrents, idx.Name)...)
	}
	return out, nil
}

func (s *Scraper) SearchSeries(ctx context.Context, query string, season int) ([]scraper.Candidate, error) {
	indexers, err := s.enabledIndexers(ctx)
	if err != nil {
		return nil, err
	}

	var out []scraper.Candidate
	for _, idx := range indexers {
		torrents, err := s.searchOne(ctx, idx, func() ([]*prowlarr.Torrent, error) {
			return s.client.SearchSeriesTorrents(idx, query)
		})
		if err != nil {
			s.log.Warn("indexer search failed", zap.String("indexer", idx.Name), zap.Error(err))
			continue
		}

		if len(torrents) == idx.Capabilities.LimitDefaults && idx.Capabilities.LimitDefaults > 0 {
			seasonTorrents, err := s.searchOne(ctx, idx, func() ([]*prowlarr.Torrent, error) {
				return s.client.SearchSeasonTorrents(idx, query, season)
			})
			if err == nil {
				torrents = append(torrents, seasonTorrents...)
			}
		}

		out = append(out, toCandidates(torrents, idx.Name)...)
	}
	return out, nil
}

func (s *Scraper) enabledIndexers(ctx context.Context) ([]*prowlarr.Indexer, error) {
	all, err := circuitbreaker.Execute(s.breakers, "prowlarr:indexers", func() ([]*prowlarr.Indexer, error) {
		return s.client.GetAllIndexers()
	})
	if err != nil {
		return nil, fmt.Errorf("couldn't load indexers: %w", err)
	}

	enabled := make([]*prowlarr.Indexer, 0, len(all))
	for _, idx := range all {
		if idx.Enable {
			enabled = append(enabled, idx)
		}
	}
	return enabled, nil
}

func (s *Scraper) searchOne(ctx context.Context, idx *prowlarr.Indexer, fn func() ([]*prowlarr.Torrent, error)) ([]*prowlarr.Torrent, error) {
	if err := s.limiter.Wait(ctx, "prowlarr:"+idx.Name); err != nil {
		return nil, err
	}
	return circuitbreaker.Execute(s.breakers, "prowlarr:"+idx.Name, fn)
}

func toCandidates(torrents []*prowlarr.Torrent, indexerName string) []scraper.Candidate {
	out := make([]scraper.Candidate, 0, len(torrents))
	for _, t := range torrents {
		out = append(out, scraper.Candidate{
			Kind:        scraper.KindTorrent,
			Title:       t.Title,
			IndexerName: indexerName,
			InfoHash:    strings.ToLower(t.InfoHash),
			MagnetURI:   t.MagnetUri,
			DownloadURL: t.Link,
			Seeders:     int(t.Seeders),
			SizeBytes:   int64(t.Size),
			IMDBId:      imdbTag(t.Imdb),
		})
	}
	return out
}

func imdbTag(id uint) string {
	if id == 0 {
		return ""
	}
	return fmt.Sprintf("tt%07d", id)
}

// FetchInfoHash resolves a candidate's missing info_hash by fetching its
// download link/magnet, delegating to the teacher's torrent-file parser.
func (s *Scraper) FetchInfoHash(ctx context.Context, c *scraper.Candidate) error {
	if c.InfoHash != "" {
		return nil
	}
	t := &prowlarr.Torrent{Title: c.Title, Link: c.DownloadURL, MagnetUri: c.MagnetURI}
	resolved, err := s.client.FetchInfoHash(t)
	if err != nil {
		return err
	}
	c.InfoHash = strings.ToLower(resolved.InfoHash)
	c.MagnetURI = resolved.MagnetUri
	return nil
}
