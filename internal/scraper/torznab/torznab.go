// Package torznab implements scraper.Scraper against a single directly
// configured Torznab (torrent) or Newznab (usenet) endpoint, the protocol
// Prowlarr itself speaks to every indexer it aggregates (internal/prowlarr
// is Torznab-shaped: category ids 2000/5000, "q"/"season"/"ep" query
// params). This lets a user point the aggregator straight at an indexer
// without running Prowlarr in front of it.
package torznab

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/streamcore/aggregator/internal/scraper"
)

const (
	categoryMovies = "2000"
	categoryTV     = "5000"
)

// Kind tells the scraper whether to parse results as torrent or NZB hits.
type Kind = scraper.Kind

type Scraper struct {
	client *resty.Client
	name   string
	kind   Kind
}

func New(name, baseURL, apiKey string, kind Kind) *Scraper {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetQueryParam("apikey", apiKey)
	return &Scraper{client: client, name: name, kind: kind}
}

func (s *Scraper) Name() string { return s.name }

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title     string       `xml:"title"`
	Link      string       `xml:"link"`
	GUID      string       `xml:"guid"`
	Enclosure rssEnclosure `xml:"enclosure"`
	Attrs     []torznabAttr `xml:"attr"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
}

type torznabAttr struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

func (it rssItem) attr(name string) string {
	for _, a := range it.Attrs {
		if strings.EqualFold(a.Name, name) {
			return a.Value
		}
	}
	return ""
}

func (s *Scraper) SearchMovies(ctx context.Context, query string) ([]scraper.Candidate, error) {
	return s.search(ctx, map[string]string{
		"t": "movie", "q": query, "cat": categoryMovies,
	})
}

func (s *Scraper) SearchSeries(ctx context.Context, query string, season int) ([]scraper.Candidate, error) {
	params := map[string]string{
		"t": "tvsearch", "q": query, "cat": categoryTV,
	}
	if season > 0 {
		params["season"] = strconv.Itoa(season)
	}
	return s.search(ctx, params)
}

func (s *Scraper) search(ctx context.Context, params map[string]string) ([]scraper.Candidate, error) {
	var feed rssFeed
	resp, err := s.client.R().SetContext(ctx).
		SetQueryParam("t", params["t"]).
		SetQueryParams(params).
		SetResult(&feed).
		Get("/api")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("torznab: error response from %s: %s", s.name, resp.Status())
	}

	out := make([]scraper.Candidate, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		out = append(out, itemToCandidate(item, s.name, s.kind))
	}
	return out, nil
}

func itemToCandidate(item rssItem, indexerName string, kind Kind) scraper.Candidate {
	c := scraper.Candidate{
		Kind:        kind,
		Title:       item.Title,
		IndexerName: indexerName,
		DownloadURL: item.Enclosure.URL,
		SizeBytes:   item.Enclosure.Length,
	}
	if c.DownloadURL == "" {
		c.DownloadURL = item.Link
	}

	if kind == scraper.KindUsenet {
		c.NZBGUID = item.GUID
		return c
	}

	c.InfoHash = strings.ToLower(item.attr("infohash"))
	if magnet := item.attr("magneturl"); magnet != "" {
		c.MagnetURI = magnet
	}
	if seeders := item.attr("seeders"); seeders != "" {
		c.Seeders, _ = strconv.Atoi(seeders)
	}
	if size := item.attr("size"); size != "" && c.SizeBytes == 0 {
		c.SizeBytes, _ = strconv.ParseInt(size, 10, 64)
	}
	return c
}
