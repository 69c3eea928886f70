package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"barakapos/backend/internal/config"
	"barakapos/backend/internal/events"
	"barakapos/backend/internal/httpapi"
	"barakapos/backend/internal/logger"
	"barakapos/backend/internal/metrics"
	"barakapos/backend/internal/service"
	"barakapos/backend/internal/snapshot"
	"barakapos/backend/internal/store/memory"
	pgstore "barakapos/backend/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	log := logger.Must(cfg.Env)
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped with error", zap.Error(err))
	}
}

// backends holds what the selected STATE_BACKEND opened.
type backends struct {
	snapshots snapshot.Backend
	postgres  *pgstore.Store
	redis     *redis.Client
	closers   []func() error
}

func (b *backends) close(log *zap.Logger) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			log.Warn("close error", zap.Error(err))
		}
	}
}

func openBackends(ctx context.Context, cfg config.Config, log *zap.Logger) (*backends, error) {
	b := &backends{}

	if cfg.StateBackend == config.BackendRedis || cfg.EventsEnabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis unavailable: %w", err)
		}
		b.redis = client
		b.closers = append(b.closers, client.Close)
		log.Info("redis connected", zap.String("addr", cfg.RedisAddr))
	}

	switch cfg.StateBackend {
	case config.BackendMemory:
		b.snapshots = snapshot.NewMemoryBackend()
	case config.BackendFile:
		fileBackend, err := snapshot.NewFileBackend(cfg.StateDir)
		if err != nil {
			b.close(log)
			return nil, err
		}
		b.snapshots = fileBackend
	case config.BackendRedis:
		b.snapshots = snapshot.NewRedisBackend(b.redis, cfg.RedisKeyPrefix)
	case config.BackendPostgres:
		pg, err := pgstore.New(ctx, cfg.DatabaseURL, log)
		if err != nil {
			b.close(log)
			return nil, fmt.Errorf("postgres unavailable: %w", err)
		}
		b.snapshots = pg
		b.postgres = pg
		b.closers = append(b.closers, pg.Close)
	default:
		b.close(log)
		return nil, fmt.Errorf("unknown STATE_BACKEND %q", cfg.StateBackend)
	}
	log.Info("state backend selected", zap.String("backend", cfg.StateBackend))
	return b, nil
}

// restoreState loads persisted collections into repo. An empty catalog is
// seeded with the demo products when SEED_DEMO_DATA is set.
func restoreState(ctx context.Context, repo *memory.Store, manager *snapshot.Manager, seedDemo bool, now time.Time, log *zap.Logger) error {
	state, err := manager.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	seeded := false
	if state.Products == nil && seedDemo {
		state.Products = memory.SeedProducts(now)
		seeded = true
	}
	if err := repo.Restore(ctx, state); err != nil {
		return fmt.Errorf("restore state: %w", err)
	}
	if !seeded {
		return nil
	}

	exported, err := repo.Export(ctx)
	if err != nil {
		return err
	}
	if err := manager.Save(ctx, exported, snapshot.KeyProducts); err != nil {
		return fmt.Errorf("save seeded catalog: %w", err)
	}
	log.Info("demo catalog seeded", zap.Int("products", len(exported.Products)))
	return nil
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.close(log)

	seedUsers, err := memory.SeedUsers(cfg.SeedAdminPassword, cfg.SeedCashierPassword)
	if err != nil {
		return err
	}

	repo := memory.New()
	var userStore httpapi.UserStore = repo
	if b.postgres != nil {
		created, err := b.postgres.EnsureUsers(ctx, seedUsers)
		if err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
		if created > 0 {
			log.Info("seed users created", zap.Int("count", created))
		}
		userStore = b.postgres
	} else {
		for _, u := range seedUsers {
			if err := repo.CreateUser(ctx, u); err != nil {
				return fmt.Errorf("seed user %s: %w", u.Username, err)
			}
		}
	}

	loc := cfg.Location()
	manager := snapshot.NewManager(b.snapshots)
	if err := restoreState(ctx, repo, manager, cfg.SeedDemoData, time.Now(), log); err != nil {
		return err
	}

	var publisher events.Publisher
	if cfg.EventsEnabled {
		publisher = events.NewRedisPublisher(b.redis)
		log.Info("event publishing enabled")
	}

	m := metrics.New()
	svc := service.New(repo, service.Options{
		Snapshots: manager,
		Events:    publisher,
		Metrics:   m,
		Logger:    log.Named("service"),
		Location:  loc,
	})
	if raised, err := svc.Reevaluate(ctx); err != nil {
		log.Warn("startup alert evaluation failed", zap.Error(err))
	} else {
		log.Info("startup alert evaluation", zap.Int("raised", len(raised)))
	}

	auth := httpapi.NewAuthManager(ctx, cfg.AuthSecret, cfg.AccessTokenTTL(), userStore)
	api, err := httpapi.New(svc, auth, httpapi.Options{
		AllowedOrigin:  cfg.AllowedOrigin,
		LoginRateLimit: cfg.LoginRateLimit,
		Logger:         log.Named("http"),
		Metrics:        m,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("POS backend listening", zap.String("addr", cfg.Address()), zap.String("timezone", loc.String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case err := <-serverErr:
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown error", zap.Error(err))
	}
	log.Info("server stopped")
	return nil
}
