// Package resolver implements the Stream Resolver: resolves an external
// media id to catalog streams, applies the visibility predicate, orders
// and groups per-category results per user preference, truncates to the
// user's configured cap, and formats a uniform record the gateway turns
// into the add-on protocol's stream list. Grounded on addon.go's
// HandleGetStreams result-assembly tail (sortByQualityScore/
// groupByResolution/maxStreamsResult), generalized from "one category,
// one source" to the multi-category join spec.md §4.2 describes.
package resolver

import (
	"context"
	"fmt"

	"github.com/streamcore/aggregator/internal/catalog"
)

// Category tags the kind of stream source a Record came from.
type Category string

const (
	CategoryTorrent   Category = "torrent"
	CategoryUsenet    Category = "usenet"
	CategoryTelegram  Category = "telegram"
	CategoryHTTP      Category = "http"
	CategoryAceStream Category = "acestream"
)

// GroupingMode controls how per-category lists are combined.
type GroupingMode string

const (
	GroupSeparate GroupingMode = "separate"
	GroupMixed    GroupingMode = "mixed"
)

// Preferences is the subset of user_data the combine step consults.
type Preferences struct {
	CategoryOrder     []Category
	Grouping          GroupingMode
	MaxStreams        int
	EnableUsenet      bool
	HasUsenetProvider bool
	EnableTelegram    bool
	HasMediaFlow      bool
	EnableAceStream   bool
}

// Record is the uniform intermediate the gateway formats into the
// add-on protocol's stream item.
type Record struct {
	Category     Category
	Name         string
	Description  string
	InfoHash     string
	NZBGUID      string
	FileIndex    int
	Filename     string
	SizeBytes    int64
	Seeders      int
	IndexerName  string
	ProviderName string
}

type Request struct {
	ExternalID  string
	Provider    catalog.ExternalIDProvider
	MediaType   catalog.MediaType
	Season      int
	Episode     int
	UserID      int64
	Preferences Preferences
}

// Resolve implements spec.md §4.2 steps 1-6: resolve the external id,
// gather each enabled category's visible streams, combine/order them per
// preference, and truncate to the user's cap. Torrent and HTTP are always
// queried (HTTP has no opt-in gate); Usenet, Telegram and AceStream are
// gated on the user's preference plus the provider/proxy capability that
// makes that category usable.
func Resolve(ctx context.Context, store *catalog.Store, req Request) ([]Record, error) {
	mediaID, ok, err := store.ResolveExternalID(ctx, req.Provider, req.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("resolver: resolve external id: %w", err)
	}
	if !ok {
		return nil, nil
	}

	byCategory := make(map[Category][]Record, len(req.Preferences.CategoryOrder))

	torrentRows, err := fetchTorrentRows(ctx, store, mediaID, req)
	if err != nil {
		return nil, fmt.Errorf("resolver: torrent streams: %w", err)
	}
	byCategory[CategoryTorrent] = torrentRowsToRecords(torrentRows)

	httpRows, err := fetchHTTPRows(ctx, store, mediaID, req)
	if err != nil {
		return nil, fmt.Errorf("resolver: http streams: %w", err)
	}
	byCategory[CategoryHTTP] = httpRowsToRecords(httpRows)

	if req.Preferences.EnableUsenet && req.Preferences.HasUsenetProvider {
		usenetRows, err := fetchUsenetRows(ctx, store, mediaID, req)
		if err != nil {
			return nil, fmt.Errorf("resolver: usenet streams: %w", err)
		}
		byCategory[CategoryUsenet] = usenetRowsToRecords(usenetRows)
	}

	if req.Preferences.EnableTelegram && req.Preferences.HasMediaFlow {
		telegramRows, err := fetchTelegramRows(ctx, store, mediaID, req)
		if err != nil {
			return nil, fmt.Errorf("resolver: telegram streams: %w", err)
		}
		byCategory[CategoryTelegram] = telegramRowsToRecords(telegramRows)
	}

	if req.Preferences.EnableAceStream && req.Preferences.HasMediaFlow {
		aceRows, err := store.AceStreamStreams(ctx, mediaID, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("resolver: acestream streams: %w", err)
		}
		byCategory[CategoryAceStream] = aceStreamRowsToRecords(aceRows)
	}

	order := req.Preferences.CategoryOrder
	if len(order) == 0 {
		order = []Category{CategoryTorrent, CategoryHTTP, CategoryUsenet, CategoryTelegram, CategoryAceStream}
	}

	combined := combine(byCategory, order, req.Preferences.Grouping)

	max := req.Preferences.MaxStreams
	if max <= 0 || max > len(combined) {
		max = len(combined)
	}
	return combined[:max], nil
}

func fetchTorrentRows(ctx context.Context, store *catalog.Store, mediaID int64, req Request) ([]catalog.TorrentStreamRow, error) {
	if req.MediaType == catalog.MediaSeries {
		return store.SeriesTorrentStreams(ctx, mediaID, req.UserID, req.Season, req.Episode)
	}
	return store.MovieTorrentStreams(ctx, mediaID, req.UserID)
}

func fetchHTTPRows(ctx context.Context, store *catalog.Store, mediaID int64, req Request) ([]catalog.HTTPStreamRow, error) {
	if req.MediaType == catalog.MediaSeries {
		return store.SeriesHTTPStreams(ctx, mediaID, req.UserID, req.Season, req.Episode)
	}
	return store.MovieHTTPStreams(ctx, mediaID, req.UserID)
}

func fetchUsenetRows(ctx context.Context, store *catalog.Store, mediaID int64, req Request) ([]catalog.UsenetStreamRow, error) {
	if req.MediaType == catalog.MediaSeries {
		return store.SeriesUsenetStreams(ctx, mediaID, req.UserID, req.Season, req.Episode)
	}
	return store.MovieUsenetStreams(ctx, mediaID, req.UserID)
}

func fetchTelegramRows(ctx context.Context, store *catalog.Store, mediaID int64, req Request) ([]catalog.TelegramStreamRow, error) {
	if req.MediaType == catalog.MediaSeries {
		return store.SeriesTelegramStreams(ctx, mediaID, req.UserID, req.Season, req.Episode)
	}
	return store.MovieTelegramStreams(ctx, mediaID, req.UserID)
}

func torrentRowsToRecords(rows []catalog.TorrentStreamRow) []Record {
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, Record{
			Category:    CategoryTorrent,
			Name:        r.Stream.Name,
			Description: describeTorrent(r),
			InfoHash:    r.InfoHash,
			SizeBytes:   0,
			Seeders:     r.Seeders,
		})
	}
	return out
}

func httpRowsToRecords(rows []catalog.HTTPStreamRow) []Record {
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, Record{
			Category:    CategoryHTTP,
			Name:        r.Stream.Name,
			Description: describeHTTP(r),
			Filename:    r.URL,
		})
	}
	return out
}

func usenetRowsToRecords(rows []catalog.UsenetStreamRow) []Record {
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, Record{
			Category:    CategoryUsenet,
			Name:        r.Stream.Name,
			Description: describeUsenet(r),
			NZBGUID:     r.NZBURL,
			IndexerName: r.Indexer,
		})
	}
	return out
}

func telegramRowsToRecords(rows []catalog.TelegramStreamRow) []Record {
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, Record{
			Category:    CategoryTelegram,
			Name:        r.Stream.Name,
			Description: describeTelegram(r),
			Filename:    r.FileRef,
		})
	}
	return out
}

func aceStreamRowsToRecords(rows []catalog.AceStreamStreamRow) []Record {
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, Record{
			Category:    CategoryAceStream,
			Name:        r.Stream.Name,
			Description: describeAceStream(r),
			Filename:    r.AceID,
		})
	}
	return out
}

func describeTorrent(r catalog.TorrentStreamRow) string {
	return fmt.Sprintf("%s | %d👤 | %dp %s", r.Stream.Quality, r.Seeders, r.Stream.Resolution, r.Stream.Codec)
}

func describeHTTP(r catalog.HTTPStreamRow) string {
	return fmt.Sprintf("%s | direct", r.Stream.Quality)
}

func describeUsenet(r catalog.UsenetStreamRow) string {
	return fmt.Sprintf("%s | usenet:%s | %d grabs", r.Stream.Quality, r.Indexer, r.Grabs)
}

func describeTelegram(r catalog.TelegramStreamRow) string {
	return fmt.Sprintf("%s | telegram", r.Stream.Quality)
}

func describeAceStream(r catalog.AceStreamStreamRow) string {
	return fmt.Sprintf("%s | acestream", r.Stream.Quality)
}

// combine applies the ordering/grouping preference (spec.md §4.2 step 5).
func combine(byCategory map[Category][]Record, order []Category, mode GroupingMode) []Record {
	if mode == GroupMixed {
		return interleave(byCategory, order)
	}

	var out []Record
	for _, cat := range order {
		out = append(out, byCategory[cat]...)
	}
	return out
}

func interleave(byCategory map[Category][]Record, order []Category) []Record {
	var out []Record
	idx := make(map[Category]int, len(order))
	for {
		advanced := false
		for _, cat := range order {
			list := byCategory[cat]
			i := idx[cat]
			if i >= len(list) {
				continue
			}
			out = append(out, list[i])
			idx[cat] = i + 1
			advanced = true
		}
		if !advanced {
			break
		}
	}
	return out
}
