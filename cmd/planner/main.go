package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"eta-planner/internal/config"
	"eta-planner/internal/db"
	"eta-planner/internal/logging"
	"eta-planner/pkg/planner"
	"eta-planner/pkg/snapshot"
	"eta-planner/pkg/task"
)

func main() {
	v := viper.New()
	if err := config.Init(v, os.Getenv("ETAPLAN_CONFIG")); err != nil {
		fatal("config: %v", err)
	}
	cfg, err := config.Load(v)
	if err != nil {
		fatal("config: %v", err)
	}
	log := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.Database.URL)
	if err != nil {
		fatal("connect: %v", err)
	}
	defer pool.Close()

	tasks := task.NewPgStore(pool)
	snaps := snapshot.NewPgStore(pool)

	// Wait for tables to be ready (the server creates them).
	// Retry for up to 30 seconds on startup.
	for i := 0; i < 30; i++ {
		if _, err = tasks.Count(ctx); err == nil {
			_, err = snaps.Count(ctx)
		}
		if err == nil {
			break
		}
		log.Info("planner: waiting for tables", "attempt", i+1, "error", err)
		time.Sleep(time.Second)
	}
	if err != nil {
		fatal("tables not ready: %v", err)
	}

	opts, err := cfg.ScheduleOptions(time.Time{}, log)
	if err != nil {
		fatal("schedule options: %v", err)
	}
	p := planner.New(tasks, snaps, planner.Config{
		Schedule: opts,
		Interval: cfg.Planner.Interval,
		Logger:   log,
	})

	// Signal handling
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh
		log.Info("planner: received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	log.Info("planner: process started")
	p.Run(ctx)
}

func fatal(format string, args ...any) {
	slog.Error(fmt.Sprintf(format, args...))
	os.Exit(1)
}
