package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"eta-planner/internal/config"
	"eta-planner/internal/db"
	"eta-planner/internal/logging"
	"eta-planner/pkg/snapshot"
	"eta-planner/pkg/task"
)

// app carries what every subcommand needs once the root has loaded the
// configuration.
type app struct {
	v       *viper.Viper
	cfg     *config.Config
	log     *slog.Logger
	out     io.Writer
	errOut  io.Writer
	cfgFile string
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "gantt",
		Short: "Estimate when tasks will be done",
		Long: `gantt schedules a forest of tasks onto the weekday work window,
serializing each owner's work and honoring predecessors, and reports
when every task is expected to start and finish.

Forests come from a YAML or JSON file (--file) or from the task
database (--db).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(a.v, a.cfgFile); err != nil {
				return err
			}
			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logging.New(a.errOut, cfg.Logging.Level, cfg.Logging.Format)
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./config.yaml)")

	root.AddCommand(
		newScheduleCmd(a),
		newTaskCmd(a),
		newSnapshotCmd(a),
		newInitCmd(a),
	)
	return root
}

func (a *app) connect(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := db.Connect(ctx, a.cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return pool, nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := task.NewPgStore(pool).EnsureTable(ctx); err != nil {
				return fmt.Errorf("ensure tasks table: %w", err)
			}
			if err := snapshot.NewPgStore(pool).EnsureTable(ctx); err != nil {
				return fmt.Errorf("ensure snapshots table: %w", err)
			}
			fmt.Fprintln(a.out, "tables ready")
			return nil
		},
	}
}

func truncStr(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
