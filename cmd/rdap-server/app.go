package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pcarana/rdap-server/internal/governance"
	"github.com/pcarana/rdap-server/pkg/auth"
	"github.com/pcarana/rdap-server/pkg/config"
	"github.com/pcarana/rdap-server/pkg/dispatch"
	"github.com/pcarana/rdap-server/pkg/negotiate"
	"github.com/pcarana/rdap-server/pkg/policy"
	"github.com/pcarana/rdap-server/pkg/redact"
	"github.com/pcarana/rdap-server/pkg/storage"
	"github.com/pcarana/rdap-server/pkg/telemetry"
)

// app holds the wired components of one server process.
type app struct {
	public   http.Handler
	admin    http.Handler
	policies *policy.Store
	store    storage.RecordStore
	metrics  *telemetry.Metrics
}

// newApp wires every component from cfg.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	metrics := telemetry.NewMetrics()

	policies, err := policy.NewStore(policy.NewLoader(cfg.Policy.OverrideDir), logger)
	if err != nil {
		return nil, err
	}
	policies.SetMetrics(metrics)

	store, err := openStore(ctx, cfg.Storage, metrics, logger)
	if err != nil {
		return nil, err
	}

	owners, err := ownershipChecker(ctx, cfg.Ownership, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	authenticators, err := buildAuthenticators(cfg.Auth)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	kinds, err := cfg.RDAP.Kinds()
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	engine := redact.NewEngine(policies, owners, logger)
	handler := dispatch.NewHandler(store, engine, negotiate.DefaultRegistry(), dispatch.Config{
		Language:                  cfg.RDAP.Language,
		Port43:                    cfg.RDAP.Port43,
		BaseURL:                   cfg.RDAP.BaseURL,
		Zones:                     cfg.RDAP.Zones,
		MinSearchPatternLength:    cfg.RDAP.MinSearchPatternLength,
		MaxResultsAuthenticated:   cfg.RDAP.MaxResultsAuthenticated,
		MaxResultsUnauthenticated: cfg.RDAP.MaxResultsUnauthenticated,
		DisabledKinds:             kinds,
	}, logger)

	middlewares := []func(http.Handler) http.Handler{metrics.Middleware}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		limiter := governance.NewRateLimiter(governance.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.Burst,
		}, metrics, logger)
		middlewares = append(middlewares, limiter.Middleware)
	}
	middlewares = append(middlewares, auth.Middleware(auth.MiddlewareConfig{
		AnonymousUsername: cfg.RDAP.AnonymousUsername,
		Logger:            logger,
	}, authenticators...))

	return &app{
		public:   otelhttp.NewHandler(handler.Routes(middlewares...), "rdap.public"),
		admin:    dispatch.NewAdmin(store, policies, metrics.Handler(), logger).Routes(),
		policies: policies,
		store:    store,
		metrics:  metrics,
	}, nil
}

// Close releases the record store.
func (a *app) Close() error {
	return a.store.Close()
}

// openStore opens the configured backend, seeds fixtures into it and wraps it
// with the Redis cache when one is configured.
func openStore(ctx context.Context, cfg config.StorageConfig, metrics *telemetry.Metrics, logger zerolog.Logger) (storage.RecordStore, error) {
	var rw storage.ReadWriter
	if cfg.DSN == config.MemoryDSN {
		rw = storage.NewMemoryStore()
		logger.Info().Msg("Using in-memory record store")
	} else {
		sqlStore, err := storage.NewSQLStore(ctx, storage.SQLConfig{
			ConnectionString: cfg.DSN,
			MaxOpenConns:     cfg.MaxOpenConns,
			MaxIdleConns:     cfg.MaxIdleConns,
			ConnMaxLifetime:  cfg.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open record store: %w", err)
		}
		rw = sqlStore
		logger.Info().Str("dialect", string(sqlStore.Dialect())).Msg("Using SQL record store")
	}

	if cfg.Fixtures != "" {
		n, err := storage.LoadFixtures(ctx, rw, cfg.Fixtures)
		if err != nil {
			_ = rw.Close()
			return nil, fmt.Errorf("failed to seed fixtures: %w", err)
		}
		logger.Info().Int("records", n).Str("file", cfg.Fixtures).Msg("Fixtures loaded")
	}

	if cfg.RedisURL == "" {
		return rw, nil
	}

	client, err := storage.NewRedisClient(ctx, storage.RedisConfig{URL: cfg.RedisURL, TTL: cfg.CacheTTL})
	if err != nil {
		_ = rw.Close()
		return nil, fmt.Errorf("failed to connect record cache: %w", err)
	}
	return storage.NewCachedStore(rw, client, cfg.CacheTTL, logger, storage.WithCacheMetrics(metrics)), nil
}

func ownershipChecker(ctx context.Context, cfg config.OwnershipConfig, logger zerolog.Logger) (redact.OwnershipChecker, error) {
	if cfg.RegoFile == "" {
		return auth.RegistrantOwnership{}, nil
	}
	owners, err := auth.LoadRegoOwnership(ctx, cfg.RegoFile, cfg.RegoQuery, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load ownership rule: %w", err)
	}
	return owners, nil
}

// buildAuthenticators returns the credential schemes enabled by cfg. With none
// enabled every request is anonymous.
func buildAuthenticators(cfg config.AuthConfig) ([]auth.Authenticator, error) {
	var authenticators []auth.Authenticator
	if cfg.JWTSecret != "" {
		tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
		if err != nil {
			return nil, err
		}
		authenticators = append(authenticators, tokens)
	}
	if cfg.UsersFile != "" {
		users, err := auth.LoadUsers(cfg.UsersFile)
		if err != nil {
			return nil, err
		}
		authenticators = append(authenticators, users)
	}
	return authenticators, nil
}
