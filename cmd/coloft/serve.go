package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli"

	appLog "coloft/internal/log"
	"coloft/internal/scheduler"
	"coloft/internal/site"
	"coloft/internal/web"
)

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func serve(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}

	appLog.Info("coloft starting", "version", version)
	appLog.Info("effective config",
		"listen", e.cfg.Listen,
		"output_dir", e.cfg.OutputDir,
		"refresh", e.cfg.RefreshCron,
		"horizon_months", e.cfg.HorizonMonths,
		"max_count", e.cfg.MaxCount,
		"events", e.sched.Len(),
	)

	ctx, cancel := signalContext()
	defer cancel()

	builder := site.NewBuilder(e.fs, e.cfg, e.sched)
	rebuild := func() error {
		_, err := builder.Build(e.today())
		return err
	}
	if err := rebuild(); err != nil {
		return err
	}

	refresher, err := scheduler.New(e.cfg.RefreshCron, nil, rebuild)
	if err != nil {
		return err
	}
	refresher.Start()
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		refresher.Stop(stopCtx)
	}()
	appLog.Info("next scheduled rebuild", "at", refresher.Next().Format(time.RFC3339))

	srv := web.NewServer(e.cfg, e.sched, e.fs, e.today)
	srv.Rebuild = rebuild
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	appLog.Info("coloft exiting")
	return nil
}
