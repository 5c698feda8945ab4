package main

import (
	"context"
	"errors"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vncsmyrnk/pollcore/internal/adapters/handler/http"
	"github.com/vncsmyrnk/pollcore/internal/adapters/scheduler"
	"github.com/vncsmyrnk/pollcore/internal/app"
	"github.com/vncsmyrnk/pollcore/internal/config"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}

	sched, err := scheduler.New(application.Scans, scheduler.Config{
		StatusSpec:   cfg.Scheduler.StatusSpec,
		ReminderSpec: cfg.Scheduler.ReminderSpec,
	}, logger)
	if err != nil {
		return err
	}
	sched.Start()

	handler := http.NewHandler(http.Handlers{
		Auth:   http.NewAuthenticator(cfg.JWTSecret),
		Polls:  http.NewPollHandler(application.Polls),
		Votes:  http.NewVoteHandler(application.Votes, application.Polls),
		Groups: http.NewGroupHandler(application.Groups),
		Users:  http.NewUserHandler(application.Accounts),
	})
	server := &stdhttp.Server{Addr: cfg.HTTPAddr, Handler: handler}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("http server failed", "error", err)
		}
	}
	logger.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var errs []error
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := application.Close(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
