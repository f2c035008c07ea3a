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

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pcarana/rdap-server/pkg/config"
	"github.com/pcarana/rdap-server/pkg/logging"
	"github.com/pcarana/rdap-server/pkg/policy"
	"github.com/pcarana/rdap-server/pkg/telemetry"
)

const telemetryShutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the public RDAP listener and the admin listener",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("address", "", "Public listen address (overrides server.address)")
	cmd.Flags().String("admin-address", "", "Admin listen address (overrides server.admin_address)")
	cmd.Flags().StringP("log-level", "l", "", "Log level (debug, info, warn, error)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	path, err := configPath(cmd)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := applyServeFlags(cmd, cfg); err != nil {
		return err
	}

	logger := logging.SetupLogger(logging.Config{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty})
	logger.Info().Str("config", path).Msg("Starting rdap-server")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetryShutdown, err := telemetry.SetupProvider(ctx, telemetry.Config{
		ServiceName:  cfg.Telemetry.ServiceName,
		Endpoint:     cfg.Telemetry.OTLPEndpoint,
		Insecure:     cfg.Telemetry.Insecure,
		Environment:  cfg.Telemetry.Environment,
		ResourceTags: map[string]string{"log.level": cfg.Logging.Level},
	})
	if err != nil {
		return fmt.Errorf("telemetry initialization failed: %w", err)
	}
	defer shutdownTelemetry(telemetryShutdown, logger)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close record store")
		}
	}()

	return serve(ctx, cfg, a, logger)
}

func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	if val, _ := cmd.Flags().GetString("address"); val != "" {
		cfg.Server.Address = val
	}
	if val, _ := cmd.Flags().GetString("admin-address"); val != "" {
		cfg.Server.AdminAddress = val
	}
	if val, _ := cmd.Flags().GetString("log-level"); val != "" {
		cfg.Logging.Level = val
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// serve runs both listeners, the policy watcher and the SIGHUP reloader until
// ctx is cancelled or one of them fails.
func serve(ctx context.Context, cfg *config.Config, a *app, logger zerolog.Logger) error {
	public := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      a.public,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
	admin := &http.Server{
		Addr:              cfg.Server.AdminAddress,
		Handler:           a.admin,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", public.Addr).Bool("tls", cfg.Server.TLS.Enabled()).Msg("Public listener started")
		var err error
		if cfg.Server.TLS.Enabled() {
			err = public.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = public.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("public listener: %w", err)
	})

	g.Go(func() error {
		logger.Info().Str("addr", admin.Addr).Msg("Admin listener started")
		if err := admin.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("admin listener: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return errors.Join(public.Shutdown(shutdownCtx), admin.Shutdown(shutdownCtx))
	})

	g.Go(func() error {
		reloadOnHangup(gctx, a.policies, logger)
		return nil
	})

	g.Go(func() error {
		trackGeneration(gctx, a.policies, a.metrics)
		return nil
	})

	if cfg.Policy.Watch && cfg.Policy.OverrideDir != "" {
		watcher, err := policy.NewWatcher(cfg.Policy.OverrideDir, a.policies, logger)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	return g.Wait()
}

// reloadOnHangup reloads the policy tables on every SIGHUP.
func reloadOnHangup(ctx context.Context, policies *policy.Store, logger zerolog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			logger.Info().Msg("Received SIGHUP, reloading policy tables")
			// Reload logs its own failures and keeps the current tables.
			_ = policies.Reload()
		}
	}
}

type generationGauge interface {
	SetPolicyGeneration(generation int64)
}

// trackGeneration mirrors the published policy generation into gauge.
func trackGeneration(ctx context.Context, policies *policy.Store, gauge generationGauge) {
	updates := policies.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case tables := <-updates:
			gauge.SetPolicyGeneration(tables.Generation())
		}
	}
}

func shutdownTelemetry(shutdown func(context.Context) error, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Telemetry shutdown error")
	}
}
