package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"eta-planner/pkg/snapshot"
)

func newSnapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Recorded schedule runs (list, get, verify)",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSnapshots(cmd, func(store snapshot.Store) error {
				snaps, err := store.Recent(cmd.Context(), limit)
				if err != nil {
					return fmt.Errorf("list snapshots: %w", err)
				}
				for _, s := range snaps {
					fmt.Fprintf(a.out, "%-36s  %s  %-7s  %-6s  %4d  %s\n",
						s.ID, s.Timestamp.Format("2006-01-02 15:04:05"), s.Source, s.Status, s.Tasks, truncStr(s.Error, 60))
				}
				return nil
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "maximum number of runs")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a run with its timelines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSnapshots(cmd, func(store snapshot.Store) error {
				s, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.printJSON(s)
			})
		},
	}

	verify := &cobra.Command{
		Use:   "verify",
		Short: "Check the hash chain of every recorded run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSnapshots(cmd, func(store snapshot.Store) error {
				if err := store.VerifyChain(cmd.Context()); err != nil {
					return fmt.Errorf("chain broken: %w", err)
				}
				n, err := store.Count(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "chain ok (%d snapshots)\n", n)
				return nil
			})
		},
	}

	cmd.AddCommand(list, get, verify)
	return cmd
}

func (a *app) withSnapshots(cmd *cobra.Command, fn func(snapshot.Store) error) error {
	pool, err := a.connect(cmd.Context())
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(snapshot.NewPgStore(pool))
}
