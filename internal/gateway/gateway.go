// Package gateway implements the Request Gateway (spec.md §4.1): decrypts
// the secret_str envelope into a userdata.UserData, derives the caller's
// effective public IP, enforces per-route rate limiting, selects the
// streaming provider for playback requests, and dispatches to the Stream
// Resolver or Playback Coordinator. Grounded on the teacher's
// cmd/server/main.go route table and internal/addon/addon.go's
// parseUserData/getIPAddress, generalized from a single-provider,
// plain-JSON config to the encrypted, multi-provider, multi-category one
// spec.md describes.
package gateway

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/streamcore/aggregator/internal/catalog"
	"github.com/streamcore/aggregator/internal/cryptoenvelope"
	"github.com/streamcore/aggregator/internal/kvlock"
	"github.com/streamcore/aggregator/internal/mediaflow"
	"github.com/streamcore/aggregator/internal/playback"
	"github.com/streamcore/aggregator/internal/provideradapter"
	"github.com/streamcore/aggregator/internal/ratelimit"
	"github.com/streamcore/aggregator/internal/resolver"
	"github.com/streamcore/aggregator/internal/userdata"
)

// RouteLimit declares a route's rate-limit scope (spec.md §4.1 step 3).
type RouteLimit struct {
	Scope  string
	Limit  int
	Window time.Duration
}

type Gateway struct {
	store        *catalog.Store
	envelope     *cryptoenvelope.Envelope
	adapters     *provideradapter.Registry
	playback     *playback.Coordinator
	proxy        *mediaflow.Proxy
	routeLimits  *ratelimit.RouteLimiter
	streamLimit  RouteLimit
	cachedHashes *kvlock.CachedHashStore
	staticPrefix string
	log          *zap.Logger
}

func New(store *catalog.Store, envelope *cryptoenvelope.Envelope, adapters *provideradapter.Registry, coordinator *playback.Coordinator, proxy *mediaflow.Proxy, routeLimits *ratelimit.RouteLimiter, streamLimit RouteLimit, cachedHashes *kvlock.CachedHashStore, staticPrefix string, log *zap.Logger) *Gateway {
	return &Gateway{
		store:        store,
		envelope:     envelope,
		adapters:     adapters,
		playback:     coordinator,
		proxy:        proxy,
		routeLimits:  routeLimits,
		streamLimit:  streamLimit,
		cachedHashes: cachedHashes,
		staticPrefix: staticPrefix,
		log:          log,
	}
}

// decodeUserData decrypts the secret path segment. A missing or
// undecryptable envelope always downgrades to userdata.Empty() rather
// than failing the request (spec.md §4.1 step 1).
func (g *Gateway) decodeUserData(secret string) userdata.UserData {
	if secret == "" {
		return userdata.Empty()
	}
	plain, err := g.envelope.Decrypt(secret)
	if err != nil {
		g.log.Warn("failed to decrypt user configuration, using anonymous defaults", zap.Error(err))
		return userdata.Empty()
	}
	u, err := userdata.Decode(plain)
	if err != nil {
		g.log.Warn("failed to unmarshal user configuration, using anonymous defaults", zap.Error(err))
		return userdata.Empty()
	}
	return u
}

// effectiveIP implements spec.md §4.1 step 2: X-Forwarded-For first hop,
// then X-Real-IP, then the transport peer; a private address is replaced
// with the MediaFlow egress IP when a proxy is configured.
func (g *Gateway) effectiveIP(ctx context.Context, c *fiber.Ctx, mf mediaflow.Config) string {
	ip := firstForwardedIP(c)
	if ip == "" {
		ip = c.IP()
	}

	if isPrivateIP(ip) && mf.ProxyURL != "" && mf.Password != "" {
		if egress, err := g.proxy.EgressIP(ctx, mf); err == nil && egress != "" {
			return egress
		}
	}
	return ip
}

func firstForwardedIP(c *fiber.Ctx) string {
	if fwd := c.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	if real := c.Get("X-Real-IP"); real != "" {
		return strings.TrimSpace(real)
	}
	return ""
}

func isPrivateIP(raw string) bool {
	ip := net.ParseIP(raw)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsPrivate()
}

// enforceRateLimit applies spec.md §4.1 step 3. Returns false (and has
// already written a 429) when the caller is over the limit.
func (g *Gateway) enforceRateLimit(c *fiber.Ctx, limit RouteLimit, ip string) (bool, error) {
	allowed, err := g.routeLimits.Allow(c.Context(), limit.Scope, ip, limit.Limit, limit.Window)
	if err != nil {
		return false, err
	}
	if !allowed {
		_ = c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded"})
		return false, nil
	}
	return true, nil
}

// selectProvider implements spec.md §4.1 step 4: the path's provider_name
// wins if the user configured it, otherwise fall back to the user's
// primary provider. No provider configured is a validation error (400).
func selectProvider(u userdata.UserData, pathProviderName string) (userdata.StreamingProvider, bool) {
	if pathProviderName != "" {
		if p, ok := u.ProviderByService(pathProviderName); ok {
			return p, true
		}
	}
	return u.PrimaryProvider()
}

func mediaFlowConfig(u userdata.UserData) mediaflow.Config {
	if u.MediaFlow == nil {
		return mediaflow.Config{}
	}
	return mediaflow.Config{ProxyURL: u.MediaFlow.ProxyURL, Password: u.MediaFlow.APIPassword}
}

func resolverPreferences(u userdata.UserData) resolver.Preferences {
	order := make([]resolver.Category, 0, len(u.CategoryOrder))
	for _, c := range u.CategoryOrder {
		order = append(order, resolver.Category(c))
	}
	grouping := resolver.GroupSeparate
	if u.Grouping == userdata.GroupingMixed {
		grouping = resolver.GroupMixed
	}
	return resolver.Preferences{
		CategoryOrder:     order,
		Grouping:          grouping,
		MaxStreams:        u.MaxStreams,
		EnableUsenet:      u.EnableUsenet,
		HasUsenetProvider: u.HasUsenetProvider(),
		EnableTelegram:    u.EnableTelegram,
		HasMediaFlow:      u.MediaFlow.Complete(),
		EnableAceStream:   u.EnableAcestream,
	}
}

// HandleStream serves GET /{secret}/stream/{type}/{videoId}.json.
func (g *Gateway) HandleStream(c *fiber.Ctx) error {
	u := g.decodeUserData(c.Params("secret"))

	mf := mediaFlowConfig(u)
	ip := g.effectiveIP(c.Context(), c, mf)
	if allowed, err := g.enforceRateLimit(c, g.streamLimit, ip); err != nil {
		g.log.Warn("rate limit check failed, allowing request", zap.Error(err))
	} else if !allowed {
		return nil
	}

	videoID := strings.TrimSuffix(c.Params("videoId"), ".json")
	externalID, season, episode := splitSeriesID(videoID)

	mediaType := catalog.MediaMovie
	if c.Params("type") == "series" {
		mediaType = catalog.MediaSeries
	}

	records, err := resolver.Resolve(c.Context(), g.store, resolver.Request{
		ExternalID:  externalID,
		Provider:    catalog.ProviderIMDB,
		MediaType:   mediaType,
		Season:      season,
		Episode:     episode,
		Preferences: resolverPreferences(u),
	})
	if err != nil {
		g.log.Warn("stream resolution failed, returning empty list", zap.Error(err))
		return c.JSON(fiber.Map{"streams": []any{}})
	}

	return c.JSON(fiber.Map{"streams": toStreamItems(records, mf, mf.ProxyURL != "" && mf.Password != "")})
}

// HandlePlayback serves {HEAD,GET} /{secret}/playback/{provider}/{infoHash}[/{season}/{episode}][/{filename}].
func (g *Gateway) HandlePlayback(c *fiber.Ctx) error {
	u := g.decodeUserData(c.Params("secret"))

	provider, ok := selectProvider(u, c.Params("provider"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "no streaming provider configured"})
	}

	mf := mediaFlowConfig(u)
	ip := g.effectiveIP(c.Context(), c, mf)

	season, _ := strconv.Atoi(c.Params("season"))
	episode, _ := strconv.Atoi(c.Params("episode"))

	userID, _ := strconv.ParseInt(u.UserID, 10, 64)

	result, err := g.playback.Resolve(c.Context(), playback.Request{
		SecretStr:    c.Params("secret"),
		ProviderName: provider.Service,
		InfoHash:     c.Params("infoHash"),
		Season:       season,
		Episode:      episode,
		Filename:     c.Params("filename"),
		UserIP:       ip,
		UserID:       userID,
		MediaFlow:    mf,
		UseMediaflow: provider.UseMediaflow,
	}, provider.Token)
	if err != nil {
		if errors.Is(err, kvlock.ErrNotAcquired) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many concurrent requests for this stream"})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Redirect(result.URL, result.StatusCode)
}

// HandleDeleteAllWatchlist serves GET /{secret}/delete_all_watchlist.
func (g *Gateway) HandleDeleteAllWatchlist(c *fiber.Ctx) error {
	u := g.decodeUserData(c.Params("secret"))
	provider, ok := selectProvider(u, "")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "no streaming provider configured"})
	}

	adapter, ok := g.adapters.Build(provider.Service, provider.Token)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown streaming provider"})
	}
	if err := adapter.DeleteAll(c.Context()); err != nil {
		g.log.Warn("delete all watchlist failed", zap.Error(err))
	}
	return c.Redirect(g.staticPrefix+"/done.mp4", fiber.StatusFound)
}

type cacheStatusRequest struct {
	Service    string   `json:"service"`
	InfoHashes []string `json:"info_hashes"`
}

// HandleCacheStatus serves POST /api/v1/cache/status.
func (g *Gateway) HandleCacheStatus(c *fiber.Ctx) error {
	var req cacheStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	status := make(map[string]bool, len(req.InfoHashes))
	for _, h := range req.InfoHashes {
		status[h] = false
	}

	probes := make([]*provideradapter.StreamCacheProbe, 0, len(req.InfoHashes))
	for _, h := range req.InfoHashes {
		probes = append(probes, &provideradapter.StreamCacheProbe{InfoHash: h})
	}

	if adapter, ok := g.adapters.Build(req.Service, ""); ok {
		if err := adapter.ProbeCache(c.Context(), probes); err != nil {
			g.log.Warn("probe cache failed, falling back to submitted hashes", zap.Error(err))
		}
	}
	for _, p := range probes {
		status[p.InfoHash] = p.Cached
	}

	if g.cachedHashes != nil {
		for h, cached := range status {
			if cached {
				continue
			}
			if known, err := g.cachedHashes.IsKnownCached(c.Context(), req.Service, h); err == nil && known {
				status[h] = true
			}
		}
	}

	return c.JSON(fiber.Map{"cached_status": status})
}

type cacheSubmitRequest struct {
	Service    string   `json:"service"`
	InfoHashes []string `json:"info_hashes"`
}

// HandleCacheSubmit serves POST /api/v1/cache/submit.
func (g *Gateway) HandleCacheSubmit(c *fiber.Ctx) error {
	var req cacheSubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if g.cachedHashes != nil {
		if err := g.cachedHashes.Submit(c.Context(), req.Service, req.InfoHashes); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to submit cached hashes"})
		}
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// splitSeriesID parses "tt1234567:1:2" into ("tt1234567", 1, 2); a bare
// movie id yields (id, 0, 0).
func splitSeriesID(videoID string) (id string, season, episode int) {
	parts := strings.Split(videoID, ":")
	id = parts[0]
	if len(parts) == 3 {
		season, _ = strconv.Atoi(parts[1])
		episode, _ = strconv.Atoi(parts[2])
	}
	return id, season, episode
}

func toStreamItems(records []resolver.Record, mf mediaflow.Config, useMediaflow bool) []fiber.Map {
	items := make([]fiber.Map, 0, len(records))
	for _, r := range records {
		item := fiber.Map{
			"name":        r.Name,
			"description": r.Description,
		}
		switch r.Category {
		case resolver.CategoryTorrent:
			item["infoHash"] = r.InfoHash
			item["fileIdx"] = r.FileIndex
		case resolver.CategoryUsenet:
			item["nzbUrl"] = mediaflow.WrapURL(mf, r.NZBGUID, useMediaflow)
		case resolver.CategoryHTTP:
			item["url"] = mediaflow.WrapURL(mf, r.Filename, useMediaflow)
		default:
			item["url"] = r.Filename
		}
		items = append(items, item)
	}
	return items
}
