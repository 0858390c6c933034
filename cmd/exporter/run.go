package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vshulcz/airgauge/internal/adapters/collector/host"
	"github.com/vshulcz/airgauge/internal/adapters/exposition/prom"
	"github.com/vshulcz/airgauge/internal/adapters/fetcher/awair"
	"github.com/vshulcz/airgauge/internal/adapters/http/ginserver"
	"github.com/vshulcz/airgauge/internal/adapters/http/ginserver/middlewares"
	"github.com/vshulcz/airgauge/internal/adapters/mirror/sqlmirror"
	"github.com/vshulcz/airgauge/internal/adapters/mirror/textfile"
	"github.com/vshulcz/airgauge/internal/adapters/repository/memory"
	"github.com/vshulcz/airgauge/internal/config"
	"github.com/vshulcz/airgauge/internal/domain"
	"github.com/vshulcz/airgauge/internal/services/refresh"
)

const readHeaderTimeout = 5 * time.Second

// run binds the listener, starts the refresh loop and serves until ctx is cancelled.
// The SQL mirror, if any, is opened in the background and joins the loop once ready.
// The bound address is sent on ready when it is non-nil.
func run(ctx context.Context, cfg config.ExporterConfig, logger *zap.Logger, ready chan<- net.Addr) error {
	ln, err := net.Listen("tcp", cfg.ListenAddr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.ListenAddr(), err)
	}

	store := memory.New()
	catalog := domain.AwairGauges
	opts := []refresh.Option{
		refresh.WithInterval(cfg.Interval),
		refresh.WithWorkers(cfg.RateLimit),
		refresh.WithLogger(logger.Named("refresh")),
	}
	if cfg.HostMetrics {
		hc := host.New(ctx)
		catalog = slices.Concat(catalog, host.Catalog)
		opts = append(opts, refresh.WithHostCollector(hc))
		logger.Info("host metrics enabled", zap.String("source", string(hc.Source())))
	}
	enc := prom.NewEncoder(prom.Options{Catalog: catalog})

	if cfg.TextfilePath != "" {
		opts = append(opts, refresh.WithObserver("textfile", textfile.New(cfg.TextfilePath, store, enc)))
		logger.Info("textfile mirror enabled", zap.String("path", cfg.TextfilePath))
	}
	fetcher := awair.New(&http.Client{Timeout: cfg.FetchTimeout})
	svc, err := refresh.New(store, fetcher, cfg.Sources, opts...)
	if err != nil {
		_ = ln.Close()
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	h := ginserver.NewHandler(store, enc, prom.ContentType)
	r := ginserver.NewRouter(h,
		middlewares.ZapLogger(logger.Named("http")),
		middlewares.GzipResponse(),
	)

	loopCtx, cancelLoop := context.WithCancel(ctx)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = svc.Run(loopCtx)
	}()
	var mirrors sync.WaitGroup
	var mirror *sqlmirror.Mirror
	if cfg.DSN != "" {
		mirrors.Go(func() { mirror = attachSQLMirror(loopCtx, cfg.DSN, svc, logger) })
	}
	defer func() {
		cancelLoop()
		<-loopDone
		mirrors.Wait()
		if mirror == nil {
			return
		}
		if err := mirror.Close(); err != nil {
			logger.Warn("sql mirror close failed", zap.Error(err))
		}
	}()

	logger.Info("exporter started",
		zap.String("addr", ln.Addr().String()),
		zap.Int("sources", len(cfg.Sources)),
		zap.Duration("interval", svc.Interval()),
	)
	if ready != nil {
		ready <- ln.Addr()
	}
	return serve(ctx, ln, r, cfg.ShutdownTimeout, logger)
}

// attachSQLMirror opens the mirror while the exporter already serves and attaches it to svc.
// Init failure is logged and the exporter keeps running without it.
func attachSQLMirror(ctx context.Context, dsn string, svc *refresh.Service, logger *zap.Logger) *sqlmirror.Mirror {
	m, err := sqlmirror.Open(ctx, dsn)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("sql mirror init failed, continuing without it", zap.Error(err))
		}
		return nil
	}
	svc.Attach("sql", m)
	logger.Info("sql mirror enabled", zap.Stringer("dialect", m.Dialect()))
	return m
}

// serve runs an http.Server on ln until ctx is done, then shuts it down gracefully
// so in-flight requests complete within timeout.
func serve(ctx context.Context, ln net.Listener, h http.Handler, timeout time.Duration, logger *zap.Logger) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Warn("graceful shutdown incomplete", zap.Error(err))
		_ = srv.Close()
	}
	<-errCh
	return nil
}
