// Package catalog is a thin façade over the relational store: Media and
// its specializations, the join tables that connect streams and files to
// media, and the full-text/trigram search the Stream Resolver queries
// against. There is no teacher equivalent for persistence — k8v-streamx
// is stateless — so this package is grounded directly on the data model
// spec.md §3 describes, using the only pack-wide precedent for a raw SQL
// driver: database/sql + lib/pq.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

type MediaType string

const (
	MediaMovie  MediaType = "movie"
	MediaSeries MediaType = "series"
	MediaTV     MediaType = "tv"
	MediaEvents MediaType = "events"
)

type Media struct {
	ID              int64
	Type            MediaType
	Title           string
	Year            int
	ReleaseDate     time.Time
	LastStreamAdded time.Time
	TotalStreams    int
	NudityStatus    string
	AkaTitles       []string
}

type ExternalIDProvider string

const (
	ProviderIMDB ExternalIDProvider = "imdb"
	ProviderTMDB ExternalIDProvider = "tmdb"
	ProviderTVDB ExternalIDProvider = "tvdb"
	ProviderMAL  ExternalIDProvider = "mal"
)

type Stream struct {
	ID              int64
	Name            string
	Source          string
	Resolution      int
	Quality         string
	Codec           string
	BitDepth        int
	Languages       []string
	AudioFormats    []string
	Channels        string
	HDRFormats      []string
	IsProper        bool
	IsRepack        bool
	IsExtended      bool
	IsDubbed        bool
	IsSubbed        bool
	IsComplete      bool
	IsRemastered    bool
	IsUpscaled      bool
	IsActive        bool
	IsBlocked       bool
	IsPublic        bool
	UploaderUserID  sql.NullInt64
	PlaybackCount   int64
}

type TorrentSpecialization struct {
	StreamID     int64
	InfoHash     string // unique, lowercase 40-hex
	AnnounceList []string
	Seeders      int
	TorrentFile  []byte
}

type UsenetSpecialization struct {
	StreamID     int64
	NZBGUID      string
	NZBURL       string
	Indexer      string
	GroupName    string
	Poster       string
	PostedAt     time.Time
	IsPassworded bool
	Grabs        int
}

type HTTPSpecialization struct {
	StreamID int64
	URL      string
}

type TelegramSpecialization struct {
	StreamID  int64
	ChannelID string
	MessageID int64
	FileRef   string
}

type AceStreamSpecialization struct {
	StreamID int64
	AceID    string
}

type StreamFile struct {
	ID        int64
	StreamID  int64
	FileIndex int
	Filename  string
	Size      int64
	FileType  string
}

type FileMediaLink struct {
	FileID        int64
	MediaID       int64
	SeasonNumber  int
	EpisodeNumber int
}

// Store wraps the connection pool with every operation the core places on
// the Catalog Store Interface (spec.md §4.6): transactional upserts and
// the combined full-text + trigram search.
type Store struct {
	db *sql.DB
}

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog: open: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// UpsertTorrentStream transactionally upserts a Stream row, its torrent
// specialization, file list and media links — invariant 7 (idempotent on
// natural key) is enforced by the ON CONFLICT clause on info_hash.
func (s *Store) UpsertTorrentStream(ctx context.Context, stream Stream, spec TorrentSpecialization, files []StreamFile, mediaID int64, seasonEpisodes []FileMediaLink) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback()

	var streamID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO streams (name, source, resolution, quality, codec, bit_depth,
			languages, audio_formats, channels, hdr_formats,
			is_proper, is_repack, is_extended, is_dubbed, is_subbed, is_complete,
			is_remastered, is_upscaled, is_active, is_blocked, is_public)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
		RETURNING id`,
		stream.Name, stream.Source, stream.Resolution, stream.Quality, stream.Codec, stream.BitDepth,
		pqStringArray(stream.Languages), pqStringArray(stream.AudioFormats), stream.Channels, pqStringArray(stream.HDRFormats),
		stream.IsProper, stream.IsRepack, stream.IsExtended, stream.IsDubbed, stream.IsSubbed, stream.IsComplete,
		stream.IsRemastered, stream.IsUpscaled, stream.IsActive, stream.IsBlocked, stream.IsPublic,
	).Scan(&streamID)
	if err != nil {
		return 0, fmt.Errorf("catalog: insert stream: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO torrent_streams (stream_id, info_hash, announce_list, seeders, torrent_file)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (info_hash) DO UPDATE SET
			seeders = EXCLUDED.seeders,
			announce_list = EXCLUDED.announce_list`,
		streamID, spec.InfoHash, pqStringArray(spec.AnnounceList), spec.Seeders, spec.TorrentFile)
	if err != nil {
		return 0, fmt.Errorf("catalog: upsert torrent specialization: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stream_media_links (stream_id, media_id, is_primary)
		VALUES ($1,$2,true)
		ON CONFLICT (stream_id, media_id) DO NOTHING`, streamID, mediaID)
	if err != nil {
		return 0, fmt.Errorf("catalog: insert stream media link: %w", err)
	}

	for _, f := range files {
		var fileID int64
		err = tx.QueryRowContext(ctx, `
			INSERT INTO stream_files (stream_id, file_index, filename, size, file_type)
			VALUES ($1,$2,$3,$4,$5)
			RETURNING id`, streamID, f.FileIndex, f.Filename, f.Size, f.FileType).Scan(&fileID)
		if err != nil {
			return 0, fmt.Errorf("catalog: insert stream file: %w", err)
		}
		for _, link := range seasonEpisodes {
			if link.FileID != f.ID {
				continue
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO file_media_links (file_id, media_id, season_number, episode_number)
				VALUES ($1,$2,$3,$4)
				ON CONFLICT (file_id, media_id) DO UPDATE SET
					season_number = EXCLUDED.season_number,
					episode_number = EXCLUDED.episode_number`,
				fileID, mediaID, link.SeasonNumber, link.EpisodeNumber)
			if err != nil {
				return 0, fmt.Errorf("catalog: insert file media link: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("catalog: commit: %w", err)
	}
	return streamID, nil
}

// MediaSearchResult is one ranked hit from SearchMedia.
type MediaSearchResult struct {
	Media Media
	Rank  float64
}

// SearchMedia unions full-text search on Media.title_tsv and AkaTitle's own
// tsvector with trigram similarity on Media.title, ranked by text-rank
// then title (spec.md §4.6).
func (s *Store) SearchMedia(ctx context.Context, mediaType MediaType, query string, limit int) ([]MediaSearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH matches AS (
			SELECT m.id, ts_rank(m.title_tsv, plainto_tsquery('simple', $2)) AS rank
			FROM media m
			WHERE m.type = $1 AND m.title_tsv @@ plainto_tsquery('simple', $2)
			UNION
			SELECT m.id, similarity(m.title, $2) AS rank
			FROM media m
			WHERE m.type = $1 AND m.title % $2
			UNION
			SELECT a.media_id, ts_rank(a.title_tsv, plainto_tsquery('simple', $2)) AS rank
			FROM aka_titles a
			JOIN media m ON m.id = a.media_id
			WHERE m.type = $1 AND a.title_tsv @@ plainto_tsquery('simple', $2)
		)
		SELECT m.id, m.type, m.title, m.year, max(matches.rank) AS rank
		FROM matches
		JOIN media m ON m.id = matches.id
		GROUP BY m.id, m.type, m.title, m.year
		ORDER BY rank DESC, m.title ASC
		LIMIT $3`, mediaType, query, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: search media: %w", err)
	}
	defer rows.Close()

	var results []MediaSearchResult
	for rows.Next() {
		var r MediaSearchResult
		if err := rows.Scan(&r.Media.ID, &r.Media.Type, &r.Media.Title, &r.Media.Year, &r.Rank); err != nil {
			return nil, fmt.Errorf("catalog: scan search row: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ResolveExternalID maps (provider, external key) to an internal media ID,
// the first step of the Stream Resolver algorithm (spec.md §4.2 step 1).
func (s *Store) ResolveExternalID(ctx context.Context, provider ExternalIDProvider, externalID string) (int64, bool, error) {
	var mediaID int64
	err := s.db.QueryRowContext(ctx, `
		SELECT media_id FROM media_external_ids WHERE provider = $1 AND external_id = $2`,
		provider, externalID).Scan(&mediaID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("catalog: resolve external id: %w", err)
	}
	return mediaID, true, nil
}

// BumpPlaybackCount increments Stream.playback_count for the anonymous
// tracking path (spec.md §3 invariant 6).
func (s *Store) BumpPlaybackCount(ctx context.Context, streamID int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE streams SET playback_count = playback_count + 1 WHERE id = $1`, streamID)
	return err
}

// StreamIDByInfoHash resolves a torrent's natural key to the owning
// Stream row id, used by the playback coordinator's background tracking
// task which only has the info_hash from the request path.
func (s *Store) StreamIDByInfoHash(ctx context.Context, infoHash string) (int64, bool, error) {
	var streamID int64
	err := s.db.QueryRowContext(ctx, `SELECT stream_id FROM torrent_streams WHERE info_hash = $1`, infoHash).Scan(&streamID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("catalog: stream id by info hash: %w", err)
	}
	return streamID, true, nil
}

// UpsertPlaybackTracking records or refreshes a PlaybackTracking row for an
// authenticated user (spec.md §3 invariant 6, §4.3 tracking contract).
func (s *Store) UpsertPlaybackTracking(ctx context.Context, userID, streamID int64, season, episode int, providerHint string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO playback_tracking (user_id, stream_id, season_number, episode_number, provider_hint, first_played_at, last_played_at, play_count)
		VALUES ($1,$2,$3,$4,$5, now(), now(), 1)
		ON CONFLICT (user_id, stream_id, season_number, episode_number) DO UPDATE SET
			last_played_at = now(),
			play_count = playback_tracking.play_count + 1,
			provider_hint = EXCLUDED.provider_hint`,
		userID, streamID, season, episode, providerHint)
	return err
}

// UpsertWatchHistory records a WatchHistory event, used by the tracking
// task alongside PlaybackTracking.
func (s *Store) UpsertWatchHistory(ctx context.Context, userID, mediaID int64, season, episode int, action, source string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watch_history (user_id, media_id, season_number, episode_number, action, source, watched_at)
		VALUES ($1,$2,$3,$4,$5,$6, now())`,
		userID, mediaID, season, episode, action, source)
	return err
}

// TorrentStreamRow is one visibility-filtered torrent stream joined to its
// specialization, returned by movie/series catalog queries.
type TorrentStreamRow struct {
	Stream
	InfoHash     string
	AnnounceList []string
	Seeders      int
}

// MovieTorrentStreams returns active, unblocked, visible torrent streams
// linked to mediaID through StreamMediaLink (spec.md §4.2 step 3, movie
// path).
func (s *Store) MovieTorrentStreams(ctx context.Context, mediaID int64, userID int64) ([]TorrentStreamRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.source, s.resolution, s.quality, s.codec, s.bit_depth,
			t.info_hash, t.announce_list, t.seeders
		FROM streams s
		JOIN torrent_streams t ON t.stream_id = s.id
		JOIN stream_media_links l ON l.stream_id = s.id
		WHERE l.media_id = $1 AND s.is_active AND NOT s.is_blocked
			AND (s.is_public OR s.uploader_user_id = $2)
		ORDER BY t.seeders DESC`, mediaID, userID)
	if err != nil {
		return nil, fmt.Errorf("catalog: movie torrent streams: %w", err)
	}
	defer rows.Close()

	var out []TorrentStreamRow
	for rows.Next() {
		var r TorrentStreamRow
		if err := rows.Scan(&r.ID, &r.Name, &r.Source, &r.Resolution, &r.Quality, &r.Codec, &r.BitDepth,
			&r.InfoHash, pq.Array(&r.AnnounceList), &r.Seeders); err != nil {
			return nil, fmt.Errorf("catalog: scan movie torrent stream: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SeriesTorrentStreams returns active, unblocked, visible torrent streams
// whose StreamFile+FileMediaLink metadata matches the requested episode
// (spec.md §4.2 step 3, series path). Season-pack rows (no per-file link
// for this episode, but with a matching stream-level link) still surface
// via the resolver's own file-selection fallback, not this query.
func (s *Store) SeriesTorrentStreams(ctx context.Context, mediaID int64, userID int64, season, episode int) ([]TorrentStreamRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT s.id, s.name, s.source, s.resolution, s.quality, s.codec, s.bit_depth,
			t.info_hash, t.announce_list, t.seeders
		FROM streams s
		JOIN torrent_streams t ON t.stream_id = s.id
		JOIN stream_files f ON f.stream_id = s.id
		JOIN file_media_links fl ON fl.file_id = f.id
		WHERE fl.media_id = $1 AND fl.season_number = $2 AND fl.episode_number = $3
			AND s.is_active AND NOT s.is_blocked
			AND (s.is_public OR s.uploader_user_id = $4)
		ORDER BY t.seeders DESC`, mediaID, season, episode, userID)
	if err != nil {
		return nil, fmt.Errorf("catalog: series torrent streams: %w", err)
	}
	defer rows.Close()

	var out []TorrentStreamRow
	for rows.Next() {
		var r TorrentStreamRow
		if err := rows.Scan(&r.ID, &r.Name, &r.Source, &r.Resolution, &r.Quality, &r.Codec, &r.BitDepth,
			&r.InfoHash, pq.Array(&r.AnnounceList), &r.Seeders); err != nil {
			return nil, fmt.Errorf("catalog: scan series torrent stream: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TorrentStreamByInfoHash looks up a torrent stream by its natural key.
// The playback coordinator runs this before acquiring its lock, the Go
// shape of fetch_stream_or_404, and uses the returned AnnounceList to
// rebuild the magnet URI a cache miss submits to the provider.
func (s *Store) TorrentStreamByInfoHash(ctx context.Context, infoHash string) (TorrentStreamRow, bool, error) {
	var r TorrentStreamRow
	err := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.name, s.source, s.resolution, s.quality, s.codec, s.bit_depth,
			t.info_hash, t.announce_list, t.seeders
		FROM streams s
		JOIN torrent_streams t ON t.stream_id = s.id
		WHERE t.info_hash = $1`, infoHash).Scan(
		&r.ID, &r.Name, &r.Source, &r.Resolution, &r.Quality, &r.Codec, &r.BitDepth,
		&r.InfoHash, pq.Array(&r.AnnounceList), &r.Seeders)
	if err == sql.ErrNoRows {
		return TorrentStreamRow{}, false, nil
	}
	if err != nil {
		return TorrentStreamRow{}, false, fmt.Errorf("catalog: torrent stream by info hash: %w", err)
	}
	return r, true, nil
}

// EpisodeRef is one file's stored season/episode metadata.
type EpisodeRef struct {
	Season  int
	Episode int
}

// EpisodeFilesByInfoHash returns the stored per-file season/episode
// metadata for a torrent, keyed by filename — the primary lookup
// fileselect.Select consults before falling back to its regex cascade
// (spec.md §4.4.1 step 2).
func (s *Store) EpisodeFilesByInfoHash(ctx context.Context, infoHash string) (map[string]EpisodeRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.filename, fl.season_number, fl.episode_number
		FROM torrent_streams t
		JOIN stream_files f ON f.stream_id = t.stream_id
		JOIN file_media_links fl ON fl.file_id = f.id
		WHERE t.info_hash = $1`, infoHash)
	if err != nil {
		return nil, fmt.Errorf("catalog: episode files by info hash: %w", err)
	}
	defer rows.Close()

	out := make(map[string]EpisodeRef)
	for rows.Next() {
		var filename string
		var ref EpisodeRef
		if err := rows.Scan(&filename, &ref.Season, &ref.Episode); err != nil {
			return nil, fmt.Errorf("catalog: scan episode file: %w", err)
		}
		out[filename] = ref
	}
	return out, rows.Err()
}

// BackfillFile is one file an adapter's container listing discovered,
// optionally carrying a season/episode parsed from its name.
type BackfillFile struct {
	Index    int
	Filename string
	Size     int64
	Season   int
	Episode  int
}

// BackfillTorrentFiles opportunistically annotates a torrent's file list
// and per-episode links with what a provider adapter discovered at
// playback time (spec.md §4.4.2), upserting stream_files and, where a
// season/episode was parsed, file_media_links against the stream's
// primary media link.
func (s *Store) BackfillTorrentFiles(ctx context.Context, infoHash string, files []BackfillFile) error {
	if len(files) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: begin backfill tx: %w", err)
	}
	defer tx.Rollback()

	var streamID int64
	if err := tx.QueryRowContext(ctx, `SELECT stream_id FROM torrent_streams WHERE info_hash = $1`, infoHash).Scan(&streamID); err != nil {
		return fmt.Errorf("catalog: backfill lookup stream: %w", err)
	}

	var mediaID sql.NullInt64
	_ = tx.QueryRowContext(ctx, `SELECT media_id FROM stream_media_links WHERE stream_id = $1 AND is_primary LIMIT 1`, streamID).Scan(&mediaID)

	for _, f := range files {
		var fileID int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM stream_files WHERE stream_id = $1 AND file_index = $2`, streamID, f.Index).Scan(&fileID)
		switch {
		case err == sql.ErrNoRows:
			if err := tx.QueryRowContext(ctx, `
				INSERT INTO stream_files (stream_id, file_index, filename, size, file_type)
				VALUES ($1,$2,$3,$4,'video')
				RETURNING id`, streamID, f.Index, f.Filename, f.Size).Scan(&fileID); err != nil {
				return fmt.Errorf("catalog: backfill insert file: %w", err)
			}
		case err != nil:
			return fmt.Errorf("catalog: backfill lookup file: %w", err)
		default:
			if _, err := tx.ExecContext(ctx, `UPDATE stream_files SET filename = $1, size = $2 WHERE id = $3`, f.Filename, f.Size, fileID); err != nil {
				return fmt.Errorf("catalog: backfill update file: %w", err)
			}
		}

		if mediaID.Valid && f.Season > 0 && f.Episode > 0 {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO file_media_links (file_id, media_id, season_number, episode_number)
				VALUES ($1,$2,$3,$4)
				ON CONFLICT (file_id, media_id) DO UPDATE SET
					season_number = EXCLUDED.season_number,
					episode_number = EXCLUDED.episode_number`,
				fileID, mediaID.Int64, f.Season, f.Episode)
			if err != nil {
				return fmt.Errorf("catalog: backfill file media link: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("catalog: commit backfill: %w", err)
	}
	return nil
}

// UsenetStreamRow is one visibility-filtered Usenet stream joined to its
// specialization.
type UsenetStreamRow struct {
	Stream
	NZBGUID string
	NZBURL  string
	Indexer string
	Grabs   int
}

// MovieUsenetStreams returns active, unblocked, visible Usenet streams
// linked to mediaID through StreamMediaLink (spec.md §4.2 step 3, movie
// path) — only consulted when the caller opted in and a Usenet-capable
// provider is configured.
func (s *Store) MovieUsenetStreams(ctx context.Context, mediaID int64, userID int64) ([]UsenetStreamRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.source, s.resolution, s.quality, s.codec, s.bit_depth,
			u.nzb_guid, u.nzb_url, u.indexer, u.grabs
		FROM streams s
		JOIN usenet_streams u ON u.stream_id = s.id
		JOIN stream_media_links l ON l.stream_id = s.id
		WHERE l.media_id = $1 AND s.is_active AND NOT s.is_blocked
			AND (s.is_public OR s.uploader_user_id = $2)
		ORDER BY u.grabs DESC`, mediaID, userID)
	if err != nil {
		return nil, fmt.Errorf("catalog: movie usenet streams: %w", err)
	}
	defer rows.Close()

	var out []UsenetStreamRow
	for rows.Next() {
		var r UsenetStreamRow
		if err := rows.Scan(&r.ID, &r.Name, &r.Source, &r.Resolution, &r.Quality, &r.Codec, &r.BitDepth,
			&r.NZBGUID, &r.NZBURL, &r.Indexer, &r.Grabs); err != nil {
			return nil, fmt.Errorf("catalog: scan movie usenet stream: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SeriesUsenetStreams is SeriesTorrentStreams' Usenet counterpart.
func (s *Store) SeriesUsenetStreams(ctx context.Context, mediaID int64, userID int64, season, episode int) ([]UsenetStreamRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT s.id, s.name, s.source, s.resolution, s.quality, s.codec, s.bit_depth,
			u.nzb_guid, u.nzb_url, u.indexer, u.grabs
		FROM streams s
		JOIN usenet_streams u ON u.stream_id = s.id
		JOIN stream_files f ON f.stream_id = s.id
		JOIN file_media_links fl ON fl.file_id = f.id
		WHERE fl.media_id = $1 AND fl.season_number = $2 AND fl.episode_number = $3
			AND s.is_active AND NOT s.is_blocked
			AND (s.is_public OR s.uploader_user_id = $4)
		ORDER BY u.grabs DESC`, mediaID, season, episode, userID)
	if err != nil {
		return nil, fmt.Errorf("catalog: series usenet streams: %w", err)
	}
	defer rows.Close()

	var out []UsenetStreamRow
	for rows.Next() {
		var r UsenetStreamRow
		if err := rows.Scan(&r.ID, &r.Name, &r.Source, &r.Resolution, &r.Quality, &r.Codec, &r.BitDepth,
			&r.NZBGUID, &r.NZBURL, &r.Indexer, &r.Grabs); err != nil {
			return nil, fmt.Errorf("catalog: scan series usenet stream: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// HTTPStreamRow is one visibility-filtered direct-HTTP stream.
type HTTPStreamRow struct {
	Stream
	URL string
}

// MovieHTTPStreams returns active, unblocked, visible direct-HTTP streams
// linked to mediaID through StreamMediaLink. The HTTP category has no
// opt-in preference — spec.md §4.2 step 3 has it always enabled.
func (s *Store) MovieHTTPStreams(ctx context.Context, mediaID int64, userID int64) ([]HTTPStreamRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.source, s.resolution, s.quality, s.codec, s.bit_depth, h.url
		FROM streams s
		JOIN http_streams h ON h.stream_id = s.id
		JOIN stream_media_links l ON l.stream_id = s.id
		WHERE l.media_id = $1 AND s.is_active AND NOT s.is_blocked
			AND (s.is_public OR s.uploader_user_id = $2)
		ORDER BY s.resolution DESC`, mediaID, userID)
	if err != nil {
		return nil, fmt.Errorf("catalog: movie http streams: %w", err)
	}
	defer rows.Close()

	var out []HTTPStreamRow
	for rows.Next() {
		var r HTTPStreamRow
		if err := rows.Scan(&r.ID, &r.Name, &r.Source, &r.Resolution, &r.Quality, &r.Codec, &r.BitDepth, &r.URL); err != nil {
			return nil, fmt.Errorf("catalog: scan movie http stream: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SeriesHTTPStreams is SeriesTorrentStreams' direct-HTTP counterpart.
func (s *Store) SeriesHTTPStreams(ctx context.Context, mediaID int64, userID int64, season, episode int) ([]HTTPStreamRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT s.id, s.name, s.source, s.resolution, s.quality, s.codec, s.bit_depth, h.url
		FROM streams s
		JOIN http_streams h ON h.stream_id = s.id
		JOIN stream_files f ON f.stream_id = s.id
		JOIN file_media_links fl ON fl.file_id = f.id
		WHERE fl.media_id = $1 AND fl.season_number = $2 AND fl.episode_number = $3
			AND s.is_active AND NOT s.is_blocked
			AND (s.is_public OR s.uploader_user_id = $4)
		ORDER BY s.resolution DESC`, mediaID, season, episode, userID)
	if err != nil {
		return nil, fmt.Errorf("catalog: series http streams: %w", err)
	}
	defer rows.Close()

	var out []HTTPStreamRow
	for rows.Next() {
		var r HTTPStreamRow
		if err := rows.Scan(&r.ID, &r.Name, &r.Source, &r.Resolution, &r.Quality, &r.Codec, &r.BitDepth, &r.URL); err != nil {
			return nil, fmt.Errorf("catalog: scan series http stream: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TelegramStreamRow is one visibility-filtered Telegram-hosted stream.
type TelegramStreamRow struct {
	Stream
	ChannelID string
	MessageID int64
	FileRef   string
}

// MovieTelegramStreams returns active, unblocked, visible Telegram
// streams linked to mediaID through StreamMediaLink — only consulted
// when the caller opted in and MediaFlow is configured to proxy the
// Telegram file reference.
func (s *Store) MovieTelegramStreams(ctx context.Context, mediaID int64, userID int64) ([]TelegramStreamRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.source, s.resolution, s.quality, s.codec, s.bit_depth,
			g.channel_id, g.message_id, g.file_ref
		FROM streams s
		JOIN telegram_streams g ON g.stream_id = s.id
		JOIN stream_media_links l ON l.stream_id = s.id
		WHERE l.media_id = $1 AND s.is_active AND NOT s.is_blocked
			AND (s.is_public OR s.uploader_user_id = $2)
		ORDER BY s.resolution DESC`, mediaID, userID)
	if err != nil {
		return nil, fmt.Errorf("catalog: movie telegram streams: %w", err)
	}
	defer rows.Close()

	var out []TelegramStreamRow
	for rows.Next() {
		var r TelegramStreamRow
		if err := rows.Scan(&r.ID, &r.Name, &r.Source, &r.Resolution, &r.Quality, &r.Codec, &r.BitDepth,
			&r.ChannelID, &r.MessageID, &r.FileRef); err != nil {
			return nil, fmt.Errorf("catalog: scan movie telegram stream: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SeriesTelegramStreams is SeriesTorrentStreams' Telegram counterpart.
func (s *Store) SeriesTelegramStreams(ctx context.Context, mediaID int64, userID int64, season, episode int) ([]TelegramStreamRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT s.id, s.name, s.source, s.resolution, s.quality, s.codec, s.bit_depth,
			g.channel_id, g.message_id, g.file_ref
		FROM streams s
		JOIN telegram_streams g ON g.stream_id = s.id
		JOIN stream_files f ON f.stream_id = s.id
		JOIN file_media_links fl ON fl.file_id = f.id
		WHERE fl.media_id = $1 AND fl.season_number = $2 AND fl.episode_number = $3
			AND s.is_active AND NOT s.is_blocked
			AND (s.is_public OR s.uploader_user_id = $4)
		ORDER BY s.resolution DESC`, mediaID, season, episode, userID)
	if err != nil {
		return nil, fmt.Errorf("catalog: series telegram streams: %w", err)
	}
	defer rows.Close()

	var out []TelegramStreamRow
	for rows.Next() {
		var r TelegramStreamRow
		if err := rows.Scan(&r.ID, &r.Name, &r.Source, &r.Resolution, &r.Quality, &r.Codec, &r.BitDepth,
			&r.ChannelID, &r.MessageID, &r.FileRef); err != nil {
			return nil, fmt.Errorf("catalog: scan series telegram stream: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AceStreamStreamRow is one visibility-filtered AceStream stream.
type AceStreamStreamRow struct {
	Stream
	AceID string
}

// AceStreamStreams returns active, unblocked, visible AceStream streams
// linked to mediaID through StreamMediaLink — AceStream always joins this
// way regardless of whether mediaID is a movie or a series episode
// (spec.md §4.2 step 3), so there is no separate series variant.
func (s *Store) AceStreamStreams(ctx context.Context, mediaID int64, userID int64) ([]AceStreamStreamRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.source, s.resolution, s.quality, s.codec, s.bit_depth, a.ace_id
		FROM streams s
		JOIN acestream_streams a ON a.stream_id = s.id
		JOIN stream_media_links l ON l.stream_id = s.id
		WHERE l.media_id = $1 AND s.is_active AND NOT s.is_blocked
			AND (s.is_public OR s.uploader_user_id = $2)
		ORDER BY s.resolution DESC`, mediaID, userID)
	if err != nil {
		return nil, fmt.Errorf("catalog: acestream streams: %w", err)
	}
	defer rows.Close()

	var out []AceStreamStreamRow
	for rows.Next() {
		var r AceStreamStreamRow
		if err := rows.Scan(&r.ID, &r.Name, &r.Source, &r.Resolution, &r.Quality, &r.Codec, &r.BitDepth, &r.AceID); err != nil {
			return nil, fmt.Errorf("catalog: scan acestream stream: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func pqStringArray(values []string) string {
	if len(values) == 0 {
		return "{}"
	}
	out := "{"
	for i, v := range values {
		if i > 0 {
			out += ","
		}
		out += `"` + escapeArrayElement(v) + `"`
	}
	return out + "}"
}

func escapeArrayElement(v string) string {
	out := make([]byte, 0, len(v))
	for i := 0; i < len(v); i++ {
		if v[i] == '"' || v[i] == '\\' {
			out = append(out, '\\')
		}
		out = append(out, v[i])
	}
	return string(out)
}
