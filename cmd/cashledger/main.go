// Command cashledger serves the cash ledger HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xraph/cashledger"
	"github.com/xraph/cashledger/api"
	audithook "github.com/xraph/cashledger/audit_hook"
	"github.com/xraph/cashledger/config"
	"github.com/xraph/cashledger/observability"
	"github.com/xraph/cashledger/store/backend"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatal(err)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := backend.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}

	opts, err := cfg.LedgerOptions(logger)
	if err != nil {
		_ = s.Close()
		return err
	}
	opts = append(opts,
		cashledger.WithPlugin(observability.NewMetricsExtension(observability.NewPrometheusFactory(nil))),
		cashledger.WithPlugin(audithook.New(audithook.LogRecorder(logger))),
	)

	l := cashledger.New(s, opts...)
	if err := l.Start(ctx); err != nil {
		_ = s.Close()
		return fmt.Errorf("start ledger: %w", err)
	}

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.New(l,
			api.WithLogger(logger),
			api.WithBasePath(cfg.BasePath),
			api.WithIdempotencyTTL(cfg.IdempotencyTTL),
			api.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
		).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errCh:
		if err != nil {
			logger.Error("http server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("http shutdown", "error", serr)
	}
	if serr := l.Stop(); serr != nil {
		logger.Warn("ledger stop", "error", serr)
	}
	return err
}
