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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"finitefield.org/authdemo/internal/authdemo/config"
	"finitefield.org/authdemo/internal/authdemo/forms"
	"finitefield.org/authdemo/internal/authdemo/guard"
	"finitefield.org/authdemo/internal/authdemo/httpserver"
	"finitefield.org/authdemo/internal/authdemo/observability"
	"finitefield.org/authdemo/internal/authdemo/session"
	"finitefield.org/authdemo/internal/authdemo/visitor"
)

type serveOptions struct {
	configFile string
	envFile    string
	addr       string
	env        string
	logLevel   string
	latency    time.Duration
}

func serveCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configFile, "config", "", "YAML configuration file")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file, empty to skip")
	flags.StringVar(&opts.addr, "addr", "", "listen address (overrides AUTHDEMO_HTTP_ADDR)")
	flags.StringVar(&opts.env, "env", "", "environment label (overrides AUTHDEMO_ENV)")
	flags.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	flags.DurationVar(&opts.latency, "latency", 0, "simulated submit round trip (overrides AUTHDEMO_SUBMIT_LATENCY)")

	return cmd
}

func runServe(cmd *cobra.Command, opts serveOptions) error {
	overrides := map[string]string{}
	set := func(flag, key, value string) {
		if cmd.Flags().Changed(flag) {
			overrides[key] = value
		}
	}
	set("addr", "AUTHDEMO_HTTP_ADDR", opts.addr)
	set("env", "AUTHDEMO_ENV", opts.env)
	set("log-level", "AUTHDEMO_LOG_LEVEL", opts.logLevel)
	set("latency", "AUTHDEMO_SUBMIT_LATENCY", opts.latency.String())

	cfg, err := config.Load(
		config.WithConfigFile(opts.configFile),
		config.WithEnvFile(opts.envFile),
		config.WithEnvMap(overrides),
	)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	logger = logger.Named("authdemo").With(zap.String("env", cfg.Environment))

	if cfg.Session.GeneratedKeys {
		logger.Warn("session keys generated at startup; cookies will not survive a restart")
	}

	sessions, err := session.NewManager(session.Config{
		CookieName:   cfg.Session.CookieName,
		HashKey:      cfg.Session.HashKey,
		BlockKey:     cfg.Session.BlockKey,
		CookieSecure: cfg.Session.CookieSecure,
		IdleTimeout:  cfg.Session.IdleTimeout,
		Lifetime:     cfg.Session.Lifetime,
	})
	if err != nil {
		return fmt.Errorf("init sessions: %w", err)
	}

	metrics := observability.NewMetrics()
	registry := visitor.NewRegistry(
		visitor.WithIdleTimeout(cfg.Visitors.IdleTimeout),
		visitor.WithLogger(logger.Named("visitors")),
		visitor.WithFormOptions(
			forms.WithLatency(cfg.Forms.SubmitLatency),
			forms.WithRecorder(metrics),
			forms.WithLogger(logger.Named("forms")),
		),
		visitor.WithCountObserver(metrics.SetVisitors),
		visitor.WithCreateHook(func(v *visitor.Visitor) {
			v.Session().Subscribe(metrics.SessionTransition)
		}),
	)

	srv, err := httpserver.New(httpserver.Config{
		Address:        cfg.Server.Addr,
		Environment:    cfg.Environment,
		Logger:         logger,
		Sessions:       sessions,
		Registry:       registry,
		Metrics:        metrics,
		Policy:         guard.Default(),
		RequestTimeout: cfg.Server.RequestTimeout,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
	})
	if err != nil {
		return fmt.Errorf("init http server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweepStop := make(chan struct{})
	go registry.Run(cfg.Visitors.SweepInterval, sweepStop)
	defer close(sweepStop)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	logger.Info("http server listening",
		zap.String("addr", cfg.Server.Addr),
		zap.Duration("submit_latency", cfg.Forms.SubmitLatency),
		zap.String("version", version),
	)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
