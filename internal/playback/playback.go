// Package playback implements the streaming-provider playback redirect
// coordinator: resolve a stream's cached URL or mint a fresh one under a
// named lock, wrap it through MediaFlow if configured, track the play,
// and fall back to a static error-clip URL on provider failure. This is
// the Go shape of streaming_provider_endpoint in
// original_source/api/routers/streaming/playback.py.
package playback

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/streamcore/aggregator/internal/backfill"
	"github.com/streamcore/aggregator/internal/catalog"
	"github.com/streamcore/aggregator/internal/fileselect"
	"github.com/streamcore/aggregator/internal/kvlock"
	"github.com/streamcore/aggregator/internal/mediaflow"
	"github.com/streamcore/aggregator/internal/provideradapter"
	"github.com/streamcore/aggregator/internal/providerexception"
)

// ErrStreamNotFound is returned when a playback request names an
// info_hash the catalog has no record of, the Go shape of
// fetch_stream_or_404's 400 response.
var ErrStreamNotFound = errors.New("playback: stream not in catalog")

const (
	urlCacheTTL  = 1 * time.Hour
	lockTTL      = 60 * time.Second
	lockWaitCeil = 60 * time.Second
)

// Request is everything the coordinator needs to resolve one playback
// redirect.
type Request struct {
	SecretStr    string
	ProviderName string
	InfoHash     string
	Season       int
	Episode      int
	Filename     string
	UserIP       string
	UserID       int64
	MediaFlow    mediaflow.Config
	UseMediaflow bool
}

// Result is the outcome handed back to the HTTP layer: a URL to redirect
// to, and the status code to redirect with (302 once minted/cached, 307
// while retrying transiently).
type Result struct {
	URL        string
	StatusCode int
}

type Coordinator struct {
	store       *catalog.Store
	adapters    *provideradapter.Registry
	urlCache    *kvlock.URLCache
	locker      *kvlock.Locker
	proxy       *mediaflow.Proxy
	backfill    *backfill.Coordinator
	exceptionBaseURL string
	log         *zap.Logger
}

func New(store *catalog.Store, adapters *provideradapter.Registry, urlCache *kvlock.URLCache, locker *kvlock.Locker, proxy *mediaflow.Proxy, backfillCoordinator *backfill.Coordinator, exceptionBaseURL string, log *zap.Logger) *Coordinator {
	return &Coordinator{
		store:            store,
		adapters:         adapters,
		urlCache:         urlCache,
		locker:           locker,
		proxy:            proxy,
		backfill:         backfillCoordinator,
		exceptionBaseURL: exceptionBaseURL,
		log:              log,
	}
}

// Resolve is the entry point: check cache, confirm the stream exists,
// acquire a named lock, mint a fresh URL if still uncached, track the
// play, and fall back to a static error clip if the provider raised a
// typed exception.
func (c *Coordinator) Resolve(ctx context.Context, req Request, token string) (Result, error) {
	req.InfoHash = strings.ToLower(req.InfoHash)
	cacheKey := generateCacheKey(req.UserIP, req.SecretStr, req.InfoHash, req.Season, req.Episode)

	if cached, ok, err := c.urlCache.Get(ctx, cacheKey); err == nil && ok {
		return Result{URL: c.applyProxy(req, cached), StatusCode: 302}, nil
	}

	stream, found, err := c.store.TorrentStreamByInfoHash(ctx, req.InfoHash)
	if err != nil {
		return Result{}, fmt.Errorf("playback: lookup stream: %w", err)
	}
	if !found {
		return Result{}, ErrStreamNotFound
	}

	// AcquireBlocking's error, including kvlock.ErrNotAcquired, is returned
	// unwrapped so the HTTP layer can tell lock contention (429) apart from
	// every other failure (400).
	lock, err := c.locker.AcquireBlocking(ctx, cacheKey+"_locked", lockTTL, lockWaitCeil)
	if err != nil {
		return Result{}, err
	}
	defer lock.Release(ctx)

	// Re-check: a racing request may have minted the URL while we waited.
	if cached, ok, err := c.urlCache.Get(ctx, cacheKey); err == nil && ok {
		return Result{URL: c.applyProxy(req, cached), StatusCode: 302}, nil
	}

	adapter, ok := c.adapters.Build(req.ProviderName, token)
	if !ok {
		return Result{}, fmt.Errorf("unknown streaming provider %q", req.ProviderName)
	}

	var episodeHints map[string]provideradapter.EpisodeHint
	if req.Season > 0 && req.Episode > 0 {
		if refs, err := c.store.EpisodeFilesByInfoHash(ctx, req.InfoHash); err != nil {
			c.log.Warn("failed to load episode metadata hints", zap.Error(err), zap.String("infoHash", req.InfoHash))
		} else if len(refs) > 0 {
			episodeHints = make(map[string]provideradapter.EpisodeHint, len(refs))
			for filename, ref := range refs {
				episodeHints[filename] = provideradapter.EpisodeHint{Season: ref.Season, Episode: ref.Episode}
			}
		}
	}

	videoURL, err := adapter.GetVideoURL(ctx, provideradapter.VideoRequest{
		InfoHash:     req.InfoHash,
		MagnetURI:    buildMagnetURI(req.InfoHash, stream.AnnounceList),
		Filename:     req.Filename,
		Season:       req.Season,
		Episode:      req.Episode,
		UserIP:       req.UserIP,
		EpisodeHints: episodeHints,
		OnFilesDiscovered: func(files []fileselect.File) {
			go c.backfill.Observe(context.WithoutCancel(ctx), req.InfoHash, files, req.Season)
		},
	})
	if err != nil {
		return Result{URL: c.exceptionURL(err), StatusCode: 307}, nil
	}

	if err := c.urlCache.Set(ctx, cacheKey, videoURL); err != nil {
		c.log.Warn("failed to cache stream url", zap.Error(err))
	}

	go c.trackPlayback(context.WithoutCancel(ctx), req)

	return Result{URL: c.applyProxy(req, videoURL), StatusCode: 302}, nil
}

// buildMagnetURI rebuilds a torrent's magnet link from its natural key and
// announce_list, the Go shape of convert_info_hash_to_magnet. Trackers are
// encoded with net/url rather than string concatenation so a tracker URL's
// own query string round-trips correctly.
func buildMagnetURI(infoHash string, announceList []string) string {
	magnet := "magnet:?xt=urn:btih:" + infoHash
	v := url.Values{}
	for _, tr := range announceList {
		if tr != "" {
			v.Add("tr", tr)
		}
	}
	if encoded := v.Encode(); encoded != "" {
		magnet += "&" + encoded
	}
	return magnet
}

func (c *Coordinator) applyProxy(req Request, videoURL string) string {
	return mediaflow.WrapURL(req.MediaFlow, videoURL, req.UseMediaflow)
}

// exceptionURL maps a provider failure to a static error-clip URL,
// matching handle_provider_exception/handle_generic_exception.
func (c *Coordinator) exceptionURL(err error) string {
	var pe *providerexception.Exception
	if errors.As(err, &pe) {
		c.log.Error("provider exception during playback", zap.String("clip", pe.VideoFileName), zap.String("message", pe.Message))
		return c.exceptionBaseURL + "/" + pe.VideoFileName
	}
	c.log.Error("generic exception during playback", zap.Error(err))
	return c.exceptionBaseURL + "/" + providerexception.ClipAPIError
}

func (c *Coordinator) trackPlayback(ctx context.Context, req Request) {
	streamID, ok, err := c.store.StreamIDByInfoHash(ctx, req.InfoHash)
	if err != nil || !ok {
		if err != nil {
			c.log.Warn("failed to resolve stream for playback tracking", zap.Error(err), zap.String("infoHash", req.InfoHash))
		}
		return
	}

	if req.UserID != 0 {
		if err := c.store.UpsertPlaybackTracking(ctx, req.UserID, streamID, req.Season, req.Episode, req.ProviderName); err != nil {
			c.log.Warn("failed to upsert playback tracking", zap.Error(err))
		}
		return
	}

	if err := c.store.BumpPlaybackCount(ctx, streamID); err != nil {
		c.log.Warn("failed to track playback", zap.Error(err), zap.String("infoHash", req.InfoHash))
	}
}

func generateCacheKey(userIP, secretStr, infoHash string, season, episode int) string {
	h := sha1.New()
	fmt.Fprintf(h, "%s_%s_%s_%d_%d", userIP, secretStr, infoHash, season, episode)
	return "streaming_provider_" + hex.EncodeToString(h.Sum(nil))
}
