package main

import (
	"context"
	"expvar"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dhruvkothari3/easy-claim-buddy/internal/apiclient"
	"github.com/dhruvkothari3/easy-claim-buddy/internal/auth"
	"github.com/dhruvkothari3/easy-claim-buddy/internal/config"
	"github.com/dhruvkothari3/easy-claim-buddy/internal/httpapi"
	"github.com/dhruvkothari3/easy-claim-buddy/internal/importer"
	"github.com/dhruvkothari3/easy-claim-buddy/internal/session"
	"github.com/dhruvkothari3/easy-claim-buddy/internal/session/postgres"
	"github.com/dhruvkothari3/easy-claim-buddy/internal/telemetry"
)

func main() {
	cfg := config.Load()
	shutdownTelemetry := telemetry.Setup("portal")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	var (
		store    session.Store
		registry *auth.Registry
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db connect: %v", err)
		}
		defer pool.Close()

		pgStore := postgres.NewStore(pool)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = pgStore.EnsureSchema(ctx)
		cancel()
		if err != nil {
			log.Fatalf("session schema: %v", err)
		}
		store = pgStore
		// Other instances share the table, so gates re-read it per request.
		registry = auth.NewSharedRegistry(store)
	} else {
		log.Printf("DB_DSN not set, sessions are kept in memory")
		store = session.NewMemoryStore()
		registry = auth.NewRegistry(store)
	}

	secret := cfg.SessionSecret
	if secret == "" {
		// Cookies signed with a random secret do not survive a restart.
		secret = uuid.NewString()
		log.Printf("SESSION_SECRET not set, using an ephemeral secret")
	}
	if cfg.UseMocks {
		log.Printf("USE_MOCKS enabled, API calls are answered from fixtures latency_ms=%d", cfg.MockLatency.Milliseconds())
	}

	client := apiclient.New(apiclient.Options{
		BaseURL:        cfg.APIBaseURL,
		Transport:      apiclient.NewTransport(cfg.UseMocks, cfg.MockLatency),
		Timeout:        cfg.APITimeout,
		OnUnauthorized: auth.LogoutFromContext,
	})
	tracker := importer.NewTracker()
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:         cfg.LoginRateLimitPerMinute,
		IPBurst:             cfg.LoginRateLimitBurst,
		IdentifierPerMinute: cfg.IdentifierRateLimitPerMinute,
		IdentifierBurst:     cfg.IdentifierRateLimitBurst,
	})
	handler := httpapi.NewHandler(httpapi.Options{
		Registry:         registry,
		API:              client,
		Tracker:          tracker,
		Cookies:          httpapi.NewCookieCodec(secret, cfg.CookieSecure, cfg.SessionTTL),
		Limiter:          limiter,
		AdminIdentifiers: cfg.AdminIdentifiers,
		SearchDebounce:   cfg.SearchDebounce,
		SearchMinLength:  cfg.SearchMinLength,
		ImportMaxBytes:   cfg.ImportMaxBytes,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", expvar.Handler())
	mux.Handle("/", handler.Routes())

	otelHandler := otelhttp.NewHandler(httpapi.LoggingMiddleware(mux), "portal")
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     otelHandler,
		ReadTimeout: 30 * time.Second,
		// SockJS streaming and slow uploads keep responses open.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	if cfg.SessionSweep > 0 && cfg.SessionTTL > 0 {
		go func() {
			ticker := time.NewTicker(cfg.SessionSweep)
			defer ticker.Stop()
			for range ticker.C {
				cutoff := time.Now().Add(-cfg.SessionTTL)
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				purged, err := store.Purge(ctx, cutoff)
				cancel()
				if err != nil {
					log.Printf("session purge error: %v", err)
				}
				gates := registry.Sweep(cutoff)
				jobs := tracker.Sweep(cutoff)
				limiter.Sweep()
				if purged > 0 || gates > 0 || jobs > 0 {
					log.Printf("sweep sessions=%d gates=%d imports=%d active_gates=%d", purged, gates, jobs, registry.Len())
				}
			}
		}()
	}

	go func() {
		log.Printf("portal listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
