package main

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"eta-planner/pkg/annotate"
	"eta-planner/pkg/forest"
	"eta-planner/pkg/planner"
	"eta-planner/pkg/schedule"
	"eta-planner/pkg/snapshot"
	"eta-planner/pkg/task"
)

const slotLayout = "2006-01-02 15:04"

type scheduleFlags struct {
	file     string
	fromDB   bool
	save     bool
	start    string
	annotate bool
	json     bool
}

func newScheduleCmd(a *app) *cobra.Command {
	var f scheduleFlags
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Compute start and finish estimates for a task forest",
		Long: `Compute start and finish estimates for a task forest and print each
owner's timeline followed by the tasks scheduled in parallel.

Examples:
  # Schedule a YAML forest from now
  gantt schedule --file plan.yaml

  # Schedule from a given start and show the annotated task texts
  gantt schedule --file plan.yaml --start 2022-02-07 --annotate

  # Schedule the task database and store the estimates
  gantt schedule --db --save`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSchedule(cmd, f)
		},
	}
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "YAML or JSON forest file")
	cmd.Flags().BoolVar(&f.fromDB, "db", false, "schedule the tasks in the database")
	cmd.Flags().BoolVar(&f.save, "save", false, "with --db, store estimates and record a snapshot")
	cmd.Flags().StringVar(&f.start, "start", "", "schedule start (default now)")
	cmd.Flags().BoolVar(&f.annotate, "annotate", false, "print task texts with their annotations")
	cmd.Flags().BoolVar(&f.json, "json", false, "print the result as JSON")
	cmd.MarkFlagsMutuallyExclusive("file", "db")
	cmd.MarkFlagsOneRequired("file", "db")
	return cmd
}

func (a *app) runSchedule(cmd *cobra.Command, f scheduleFlags) error {
	if f.save && !f.fromDB {
		return errors.New("--save requires --db")
	}
	start := time.Now()
	if f.start != "" {
		t, err := schedule.ParseTime(f.start)
		if err != nil {
			return fmt.Errorf("--start: %w", err)
		}
		start = t
	}
	opts, err := a.cfg.ScheduleOptions(start, a.log)
	if err != nil {
		return err
	}

	var nodes schedule.Forest
	var sched *schedule.Schedule
	var snap *snapshot.Snapshot
	if f.fromDB {
		ctx := cmd.Context()
		pool, err := a.connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		p := planner.New(task.NewPgStore(pool), snapshot.NewPgStore(pool),
			planner.Config{Schedule: opts, Source: "cli", Logger: a.log})
		run := p.Compute
		if f.save {
			run = p.Plan
		}
		res, err := run(ctx, start)
		if err != nil {
			return err
		}
		nodes, sched, snap = res.Forest, res.Schedule, res.Snapshot
	} else {
		nodes, err = forest.LoadFile(f.file)
		if err != nil {
			return err
		}
		if sched, err = schedule.Run(nodes, opts); err != nil {
			return err
		}
	}

	if f.annotate {
		annotate.Forest(nodes)
	}
	if f.json {
		return a.printJSON(map[string]any{
			"start":    start,
			"tasks":    forest.Views(nodes),
			"summary":  forest.Summarize(sched),
			"snapshot": snap,
		})
	}
	printTimelines(a, forest.Summarize(sched), opts.Location)
	if f.annotate {
		fmt.Fprintln(a.out)
		printTree(a, nodes, 0)
	}
	if snap != nil {
		fmt.Fprintf(a.out, "\nsnapshot %s\n", snap.ID)
	}
	return nil
}

func printTimelines(a *app, sum forest.Summary, loc *time.Location) {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	section := func(name string, slots []forest.Slot) {
		fmt.Fprintf(w, "%s\n", name)
		for _, s := range slots {
			fmt.Fprintf(w, "\t%s\t%s\t%s\t%s\n", slotTime(s.ETAStart, loc), slotTime(s.ETA, loc), s.Key, s.Text)
		}
	}
	for _, owner := range slices.Sorted(maps.Keys(sum.Owners)) {
		section(owner, sum.Owners[owner])
	}
	if len(sum.Parallel) > 0 {
		section("(parallel)", sum.Parallel)
	}
	w.Flush()
}

func slotTime(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "-"
	}
	if loc != nil {
		return t.In(loc).Format(slotLayout)
	}
	return t.Format(slotLayout)
}

func printTree(a *app, nodes []*schedule.Node, depth int) {
	for _, n := range nodes {
		fmt.Fprintf(a.out, "%s- %s\n", strings.Repeat("  ", depth), n.Text)
		printTree(a, n.Children, depth+1)
	}
}
