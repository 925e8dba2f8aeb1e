package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-arena/internal/app"
	"quiz-arena/internal/auth"
	"quiz-arena/internal/config"
	"quiz-arena/internal/infra/memory"
	"quiz-arena/internal/infra/postgres"
	redisinfra "quiz-arena/internal/infra/redis"
	"quiz-arena/internal/platform/logger"
	transport "quiz-arena/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Server.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var store app.Store = memory.NewStore()
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = postgres.NewStore(pool, config.TTLDuration(cfg.Postgres.Timeout, 5*time.Second))
		log.Info("using postgres store")
	} else {
		log.Warn("postgres url not configured, using in-memory store")
	}

	var (
		audit app.AuditLog = memory.NewAuditLog()
		cache app.CatalogCache
	)
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("redis ping failed", "addr", cfg.Redis.Addr, "error", err)
		}
		audit = redisinfra.NewAuditLog(redisClient)
		if cfg.Redis.CatalogCache {
			cache = redisinfra.NewCatalogCache(redisClient, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
		}
	}

	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (or JWT_SECRET) is required")
	}
	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
	hasher := auth.NewHasher(cfg.Auth.BcryptCost)

	catalog := app.NewCatalogService(store, store, log)
	if cache != nil {
		catalog.WithCache(cache)
	}
	sessions := app.NewSessionManager(store, store, store, store, time.Now, log)
	scoring := app.NewScoringService(store, catalog, sessions, store, app.ScoringConfig{
		GracePeriod: config.TTLDuration(cfg.Scoring.GracePeriod, 5*time.Second),
		AllowLegacy: cfg.LegacySubmissionsAllowed(),
	}, time.Now, log)

	handler := transport.NewHandler(transport.Services{
		Identity:    app.NewIdentityService(store, issuer, hasher, audit, cfg.Auth.AdminPhones, log),
		Catalog:     catalog,
		Sessions:    sessions,
		Scoring:     scoring,
		Leaderboard: app.NewLeaderboardService(store, log),
	}, log)
	router := transport.NewRouter(handler, transport.RouterConfig{
		Mode:        cfg.Server.Mode,
		CORSOrigins: cfg.Server.CORSOrigins,
	}, log)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	go func() {
		log.Info("starting quiz server", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
