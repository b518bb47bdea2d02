// The indexer builds the knowledge base from a source FAQ document and
// notifies running API instances over NATS when the new index is live.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/agrovoice/agri-assistant/internal/bootstrap"
	"github.com/agrovoice/agri-assistant/internal/config"
	"github.com/agrovoice/agri-assistant/internal/observability/logging"
)

func main() {
	source := flag.String("source", "", "path to the FAQ document (text, markdown, pdf or xlsx)")
	flag.Parse()

	cfg := config.Load()
	logger := logging.NewTextLogger("indexer", cfg.LogLevel)

	if *source == "" {
		logger.Error("missing required -source flag")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewIndexer(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	info, err := app.IndexBuilder.BuildFromFile(ctx, *source)
	if err != nil {
		logger.Error("index build failed", "source", *source, "error", err)
		os.Exit(1)
	}

	logger.Info("index built",
		"source", *source,
		"chunks", info.Chunks,
		"dimension", info.Dimension,
		"built_at", info.BuiltAt,
	)
}
