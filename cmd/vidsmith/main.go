package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/vidsmith/vidsmith/config"
	"github.com/vidsmith/vidsmith/internal/api"
	"github.com/vidsmith/vidsmith/internal/credentials"
	"github.com/vidsmith/vidsmith/internal/engine"
	"github.com/vidsmith/vidsmith/internal/gallery"
	"github.com/vidsmith/vidsmith/internal/ledger"
	"github.com/vidsmith/vidsmith/internal/provider"
	"github.com/vidsmith/vidsmith/internal/provider/heygen"
	"github.com/vidsmith/vidsmith/internal/provider/replicate"
	"github.com/vidsmith/vidsmith/internal/provider/synthesia"
	"github.com/vidsmith/vidsmith/internal/provider/veo"
	"github.com/vidsmith/vidsmith/internal/store"
	"github.com/vidsmith/vidsmith/internal/telemetry"
	"github.com/vidsmith/vidsmith/pkg/ratelimit"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("service", "vidsmith").Logger()

	// 2. Initialize tracing
	shutdownTracer, err := telemetry.InitTracer("vidsmith", cfg.OTELExporterType, cfg.OTELExporterEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer")
	}
	defer shutdownTracer()

	// 3. Connect Redis when configured (store backend and/or rate limiting)
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			cancel()
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("failed to connect to redis")
		}
		cancel()
		log.Info().Str("addr", cfg.RedisAddr).Msg("connected to redis")
	}

	// 4. Open the persistence backend
	var kv store.Store
	switch cfg.StoreBackend {
	case "sqlite":
		db, err := store.NewSQLite(cfg.DBPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open sqlite store")
		}
		defer db.Close()
		kv = db
		log.Info().Str("path", cfg.DBPath).Msg("using sqlite store")
	case "redis":
		kv = store.NewRedis(rdb)
		log.Info().Msg("using redis store")
	case "memory":
		kv = store.NewMemory()
		log.Warn().Msg("using in-memory store, state is lost on restart")
	}

	// 5. Domain state: credentials, ledger, gallery
	creds := credentials.New(kv, cfg.SimulationMode)
	seedCredentials(cfg, creds, log)

	led := ledger.New(kv)
	gal := gallery.New(kv)

	// 6. Provider workflows and the orchestration engine
	workflows := map[string]provider.Workflow{
		"synthesia": synthesia.New(),
		"replicate": replicate.New(),
		"veo":       veo.New(),
		"heygen":    heygen.New(),
	}
	eng := engine.New(cfg.Providers, workflows, led, gal, creds, engine.Options{
		Logger: log.With().Str("component", "engine").Logger(),
		Tracer: otel.Tracer("vidsmith"),
	})

	// 7. Rate limiter (requires redis)
	var limiter *ratelimit.Limiter
	if rdb != nil {
		limiter = ratelimit.NewLimiter(rdb, cfg.GenerationsPerMinute)
		log.Info().Int64("per_minute", cfg.GenerationsPerMinute).Msg("rate limiting enabled")
	} else {
		log.Warn().Msg("rate limiting disabled, no REDIS_ADDR configured")
	}

	// 8. HTTP surface
	handler := api.NewHandler(eng, led, gal, creds,
		limiter, log.With().Str("component", "api").Logger())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Int("providers", len(cfg.Providers)).
			Bool("simulation_default", cfg.SimulationMode).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// 9. Graceful shutdown. Generations are long-lived, so the drain window
	// has to cover a full poll budget.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}

// seedCredentials loads credentials supplied through the environment so
// deployments do not need a provisioning call after every restart.
func seedCredentials(cfg *config.Config, creds *credentials.Store, log zerolog.Logger) {
	ctx := context.Background()
	seed := map[string]credentials.Credential{
		"synthesia": {Key: cfg.SynthesiaAPIKey},
		"replicate": {Key: cfg.ReplicateAPIToken},
		"heygen":    {Key: cfg.HeyGenAPIKey},
		"veo":       {Key: cfg.VeoServiceAccount, ProjectID: cfg.VeoProjectID},
	}
	for id, cred := range seed {
		if cred.Empty() {
			continue
		}
		if err := creds.Set(ctx, id, cred); err != nil {
			log.Fatal().Err(err).Str("provider", id).Msg("failed to seed credential")
		}
		log.Info().Str("provider", id).Msg("credential loaded from environment")
	}
}
