package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "resume-pdf-export/internal/adapter/http"
	"resume-pdf-export/internal/config"
	"resume-pdf-export/internal/observability"
	"resume-pdf-export/internal/policy"
	"resume-pdf-export/internal/usecase"
	infra "resume-pdf-export/pkg/infrastructure"

	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	tuneMaxProcs(logger, maxprocs.Set)

	if cfg.TraceStdout {
		tp, err := observability.NewStdoutTracerProvider()
		if err != nil {
			logger.Error("tracing disabled", "error", err)
		} else {
			defer tp.Shutdown(context.Background())
		}
	}

	pol, err := policy.Load(cfg.PolicyFile)
	if err != nil {
		logger.Error("failed to load interception policy", "file", cfg.PolicyFile, "error", err)
		os.Exit(1)
	}

	launcher := infra.NewChromeLauncher(cfg.Browser, logger)
	processor := usecase.NewProcessor(launcher, cfg, pol, logger)

	h := httpadapter.NewHandler(processor, logger)
	app := httpadapter.NewApp(h, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.Addr(), "policy_rules", len(pol.Rules))
		return app.Listen(cfg.Addr())
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// tuneMaxProcs matches GOMAXPROCS to the container CPU quota. A failure leaves
// the runtime default in place.
func tuneMaxProcs(logger *slog.Logger, set func(...maxprocs.Option) (func(), error)) {
	_, err := set(maxprocs.Logger(func(format string, args ...interface{}) {
		logger.Debug(fmt.Sprintf(format, args...))
	}))
	if err != nil {
		logger.Warn("failed to set GOMAXPROCS, using runtime default", "error", err)
	}
}
