package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"eta-planner/internal/api"
	"eta-planner/internal/config"
	"eta-planner/internal/db"
	"eta-planner/internal/logging"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	var (
		tasks task.Store
		snaps snapshot.Store
	)
	if cfg.Database.URL == "" {
		log.Warn("server: no database configured, keeping tasks in memory")
		tasks, snaps = task.NewMemStore(), snapshot.NewMemStore()
	} else {
		pool, err := db.Connect(ctx, cfg.Database.URL)
		if err != nil {
			fatal("connect: %v", err)
		}
		defer pool.Close()
		tasks, snaps = task.NewPgStore(pool), snapshot.NewPgStore(pool)
	}

	// Ensure tables exist
	if err := tasks.EnsureTable(ctx); err != nil {
		fatal("ensure tasks table: %v", err)
	}
	if err := snaps.EnsureTable(ctx); err != nil {
		fatal("ensure snapshots table: %v", err)
	}

	opts, err := cfg.ScheduleOptions(time.Time{}, log)
	if err != nil {
		fatal("schedule options: %v", err)
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           api.New(tasks, snapshot.NewBus(snaps), opts, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server: shutdown", "error", err)
		}
	}()

	log.Info("eta-planner listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatal("listen: %v", err)
	}
}

func fatal(format string, args ...any) {
	slog.Error(fmt.Sprintf(format, args...))
	os.Exit(1)
}
