// Command generate-runs materializes the dated runs of every active route
// over a window of days and optionally prunes the ones before it.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/essodond/Evexticket/internal/app"
	"github.com/essodond/Evexticket/internal/config"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.New()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	days := flag.Int("days", cfg.Runs.WindowDays, "number of days to generate")
	offset := flag.Int("start-offset", cfg.Runs.StartOffset, "days from today of the first generated run")
	prune := flag.Bool("prune", false, "delete runs dated before the window")
	flag.Parse()

	if *days <= 0 || *offset < 0 {
		logger.Error("days must be positive and start-offset not negative", "days", *days, "start_offset", *offset)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	worker, err := app.NewWorker(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create application", "error", err)
		os.Exit(1)
	}

	sum, err := worker.Refresh(ctx, *days, *offset, *prune)
	worker.Close()
	if err != nil {
		logger.Error("run generation failed", "error", err)
		os.Exit(1)
	}

	logger.Info("run generation finished",
		"routes", sum.Routes,
		"created", sum.Created,
		"pruned", sum.Pruned,
		"failed", sum.Failed,
	)
}
