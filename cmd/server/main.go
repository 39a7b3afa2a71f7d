package main

import (
	"os"
	"regexp"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"github.com/streamcore/aggregator/internal/backfill"
	"github.com/streamcore/aggregator/internal/catalog"
	"github.com/streamcore/aggregator/internal/config"
	"github.com/streamcore/aggregator/internal/cryptoenvelope"
	"github.com/streamcore/aggregator/internal/gateway"
	"github.com/streamcore/aggregator/internal/kvlock"
	"github.com/streamcore/aggregator/internal/logging"
	"github.com/streamcore/aggregator/internal/mediaflow"
	"github.com/streamcore/aggregator/internal/playback"
	"github.com/streamcore/aggregator/internal/provideradapter"
	"github.com/streamcore/aggregator/internal/provideradapter/alldebrid"
	"github.com/streamcore/aggregator/internal/provideradapter/p2p"
	"github.com/streamcore/aggregator/internal/provideradapter/premiumize"
	"github.com/streamcore/aggregator/internal/provideradapter/realdebrid"
	"github.com/streamcore/aggregator/internal/provideradapter/usenet"
	"github.com/streamcore/aggregator/internal/ratelimit"
	"github.com/streamcore/aggregator/internal/static"
)

var maskedPathPattern = regexp.MustCompile(`^/([\w%-]+)/(?:configure|stream|playback|download|manifest)`)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fiberlog.Fatalf("failed to load configuration: %v", err)
	}

	log, err := logging.New()
	if err != nil {
		fiberlog.Fatalf("failed to build logger: %v", err)
	}
	defer log.Sync()

	store, err := catalog.Open(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("failed to open catalog store", zap.Error(err))
	}
	defer store.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})

	envelope := cryptoenvelope.New(cfg.SecretKey)
	proxy := mediaflow.New(32 * 1024 * 1024)
	locker := kvlock.NewLocker(rdb)
	urlCache := kvlock.NewURLCache(rdb, cfg.URLCacheTTL)
	cachedHashes := kvlock.NewCachedHashStore(rdb)
	routeLimits := ratelimit.NewRouteLimiter(rdb)

	// The scraper fabric (internal/scraper/prowlarraggregator,
	// internal/scraper/torznab) and its circuitbreaker.Registry /
	// ratelimit.ScraperLimiter feed a separate catalog-ingestion worker
	// process, not this request-serving one.

	adapters := provideradapter.NewRegistry()
	registerAdapter := func(service string, disabled []string, factory provideradapter.Factory) {
		for _, d := range disabled {
			if d == service {
				return
			}
		}
		adapters.Register(service, factory)
	}
	registerAdapter("realdebrid", cfg.DisabledProviders, realdebrid.New)
	registerAdapter("alldebrid", cfg.DisabledProviders, alldebrid.New)
	registerAdapter("premiumize", cfg.DisabledProviders, premiumize.New)
	registerAdapter("p2p", cfg.DisabledProviders, p2p.New)
	registerAdapter("usenet", cfg.DisabledProviders, usenet.New)

	backfillCoordinator := backfill.New(store, locker, logging.Component(log, "backfill"))
	coordinator := playback.New(store, adapters, urlCache, locker, proxy, backfillCoordinator, cfg.StaticAssetPrefix, logging.Component(log, "playback"))

	streamLimit := gateway.RouteLimit{Scope: "stream", Limit: cfg.StreamRateLimit, Window: cfg.StreamRateWindow}
	gw := gateway.New(store, envelope, adapters, coordinator, proxy, routeLimits, streamLimit, cachedHashes, cfg.StaticAssetPrefix, logging.Component(log, "gateway"))

	app := fiber.New()
	app.Use(cors.New())
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(requestid.New(requestid.Config{Generator: func() string { return uuid.NewString() }}))
	app.Use(logger.New(logger.Config{
		CustomTags: map[string]logger.LogFunc{
			"maskedPath": func(output logger.Buffer, c *fiber.Ctx, data *logger.Data, extraParam string) (int, error) {
				urlPath := c.Path()
				loc := maskedPathPattern.FindStringSubmatchIndex(urlPath)
				if len(loc) > 3 {
					return output.WriteString(urlPath[:loc[2]] + "***" + urlPath[loc[3]:])
				}
				return output.WriteString(urlPath)
			},
		},
		Format:       "${time} | ${status} | ${latency} | ${ip} | ${method} | ${maskedPath} | ${locals:requestid} | ${error}\n",
		TimeFormat:   "15:04:05",
		TimeZone:     "Local",
		TimeInterval: 500 * time.Millisecond,
		Output:       os.Stdout,
	}))

	registerRoutes(app, gw)

	if cfg.SSLEnabled {
		go func() {
			httpsApp := fiber.New(fiber.Config{AppName: "aggregator SSL"})
			httpsApp.Use(cors.New())
			httpsApp.Use(recover.New(recover.Config{EnableStackTrace: true}))
			httpsApp.Use(requestid.New(requestid.Config{Generator: func() string { return uuid.NewString() }}))
			registerRoutes(httpsApp, gw)

			certFile := "/etc/ssl/local-ip-co/server.pem"
			keyFile := "/etc/ssl/local-ip-co/server.key"
			log.Info("starting https server", zap.String("domain", cfg.SSLDomain))
			log.Fatal("https server exited", zap.Error(httpsApp.ListenTLS(":7443", certFile, keyFile)))
		}()
	}

	log.Info("starting http server", zap.String("addr", cfg.ListenAddr))
	log.Fatal("http server exited", zap.Error(app.Listen(cfg.ListenAddr)))
}

func registerRoutes(app *fiber.App, gw *gateway.Gateway) {
	app.Get("/configure", static.HandleConfigure)
	app.Get("/:secret/configure", static.HandleConfigure)

	app.Get("/:secret/stream/:type/:videoId.json", gw.HandleStream)

	app.Get("/:secret/playback/:provider/:infoHash", gw.HandlePlayback)
	app.Head("/:secret/playback/:provider/:infoHash", gw.HandlePlayback)
	app.Get("/:secret/playback/:provider/:infoHash/:season/:episode", gw.HandlePlayback)
	app.Head("/:secret/playback/:provider/:infoHash/:season/:episode", gw.HandlePlayback)
	app.Get("/:secret/playback/:provider/:infoHash/:season/:episode/:filename", gw.HandlePlayback)
	app.Head("/:secret/playback/:provider/:infoHash/:season/:episode/:filename", gw.HandlePlayback)

	app.Get("/:secret/delete_all_watchlist", gw.HandleDeleteAllWatchlist)

	app.Post("/api/v1/cache/status", gw.HandleCacheStatus)
	app.Post("/api/v1/cache/submit", gw.HandleCacheSubmit)
}
