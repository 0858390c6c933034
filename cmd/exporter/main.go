// Command exporter polls Awair Local API sensors and serves their readings to Prometheus.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vshulcz/airgauge/internal/config"
	"github.com/vshulcz/airgauge/internal/logging"
	"github.com/vshulcz/airgauge/pkg/util"
)

// Set with -ldflags "-X main.buildVersion=...".
var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	cfg, err := config.LoadExporterConfig(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("failed to parse flags: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logging.Sync(logger)
	logger.Info("build", util.BuildFields(buildVersion, buildDate, buildCommit)...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, nil); err != nil {
		logger.Error("exporter failed", zap.Error(err))
		logging.Sync(logger)
		log.Fatal(err)
	}
}
