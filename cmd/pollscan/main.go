// Command pollscan runs one status or reminder scan and exits. With -since
// it replays the status scan over a longer window, to catch up on
// transitions missed while the scheduler was down.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/vncsmyrnk/pollcore/internal/app"
	"github.com/vncsmyrnk/pollcore/internal/config"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	var (
		scan    string
		since   time.Duration
		timeout time.Duration
	)
	flag.StringVar(&scan, "scan", "status", "Scan to run: status or reminder")
	flag.DurationVar(&since, "since", 0, "Status scan window ending now; defaults to SCHEDULER_TRAILING_WINDOW")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "Maximum run time")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}

	logger.Info("starting scan", "scan", scan)
	switch scan {
	case "status":
		if since <= 0 {
			since = cfg.Scheduler.TrailingWindow
		}
		now := time.Now().UTC()
		err = application.Scans.RunStatusScanWindow(ctx, now.Add(-since), now)
	case "reminder":
		err = application.Scans.RunReminderScan(ctx)
	default:
		logger.Error("unknown scan", "scan", scan)
		os.Exit(2)
	}

	if closeErr := application.Close(context.Background()); closeErr != nil {
		logger.Error("failed to shut down cleanly", "error", closeErr)
	}
	if err != nil {
		logger.Error("scan failed", "scan", scan, "error", err)
		os.Exit(1)
	}
	logger.Info("scan completed", "scan", scan)
}
