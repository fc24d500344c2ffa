package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"storefront/internal/ratelimit"
	"storefront/internal/util"
	"storefront/pkg/catalog"
	"storefront/pkg/store"
	"storefront/services/storefront/internal/app"
	"storefront/services/storefront/internal/config"
	"storefront/services/storefront/internal/server"
	"storefront/services/storefront/internal/view"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := pflag.String("config", config.ConfigPath, "path to the YAML config file")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	catalogTimeout, err := config.ParseCatalogTimeout(cfg.CatalogTimeout)
	if err != nil {
		log.Fatalf("failed to parse catalog timeout: %v", err)
	}
	contactDelay, err := config.ParseContactDelay(cfg.ContactDelay)
	if err != nil {
		log.Fatalf("failed to parse contact delay: %v", err)
	}

	logger := util.InitLogger("storefront", cfg.LogLevel)

	prefs, err := openPreferenceStore(cfg)
	if err != nil {
		log.Fatalf("failed to init preference store: %v", err)
	}
	defer closeQuietly(logger, "preference store", prefs)

	limiter, err := newLimiter(cfg)
	if err != nil {
		log.Fatalf("failed to init rate limiter: %v", err)
	}
	defer closeQuietly(logger, "rate limiter", limiter)

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}

	catalogClient := catalog.NewClient(cfg.CatalogURL, catalogTimeout)
	appCore, err := app.New(app.Config{
		Catalog:      catalogClient,
		Preferences:  prefs,
		ContactDelay: contactDelay,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}
	renderer, err := view.NewRenderer()
	if err != nil {
		log.Fatalf("failed to parse templates: %v", err)
	}
	visitors, err := server.NewVisitorIssuer(cfg.VisitorSecret, cfg.SecureCookie)
	if err != nil {
		log.Fatalf("failed to init visitor cookies: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:            appCore,
		Renderer:       renderer,
		Visitors:       visitors,
		Limiter:        limiter,
		TrustedProxies: trusted,
		CORSOrigins:    cfg.CORSAllowedOrigins,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("storefront listening",
			"addr", addr,
			"catalog_url", catalogClient.URL(),
			"preference_backend", cfg.PreferenceBackend,
			"contact_delay", appCore.Contact.Delay().String(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.WarmCatalog {
		g.Go(func() error {
			snap := appCore.Products.EnsureLoaded(gctx)
			if snap.Error() != "" {
				logger.Warn("catalog warm-up failed", "err", snap.Error())
			} else {
				logger.Info("catalog warmed", "products", len(snap.Products))
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
	}
}

func openPreferenceStore(cfg config.FileConfig) (store.PreferenceStore, error) {
	switch cfg.PreferenceBackend {
	case config.BackendFile:
		return store.NewFilePreferenceStore(cfg.PreferenceFile)
	case config.BackendRedis:
		return store.NewRedisPreferenceStore(cfg.RedisAddr, cfg.RedisPassword, 0)
	case config.BackendPostgres:
		return store.NewGormPreferenceStore(cfg.DatabaseURL)
	default:
		return store.NewMemoryPreferenceStore(), nil
	}
}

// newLimiter shares quotas across replicas through Redis when it is
// configured and falls back to per-process token buckets otherwise.
func newLimiter(cfg config.FileConfig) (ratelimit.Limiter, error) {
	if cfg.RedisAddr != "" {
		return ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "", cfg.RateLimitPerMinute, time.Minute)
	}
	return ratelimit.NewTokenBucketLimiter(cfg.RateLimitPerMinute)
}

func closeQuietly(logger *slog.Logger, name string, v any) {
	c, ok := v.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		logger.Warn("close failed", "component", name, "err", err)
	}
}
