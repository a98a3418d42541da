package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"eta-planner/pkg/schedule"
	"eta-planner/pkg/task"
)

func newTaskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Stored task operations (create, list, get, update, complete)",
	}
	cmd.AddCommand(
		newTaskCreateCmd(a),
		newTaskListCmd(a),
		newTaskGetCmd(a),
		newTaskUpdateCmd(a),
		newTaskCompleteCmd(a),
	)
	return cmd
}

// withTasks opens the database for the duration of fn.
func (a *app) withTasks(cmd *cobra.Command, fn func(task.Store) error) error {
	pool, err := a.connect(cmd.Context())
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(task.NewPgStore(pool))
}

func newTaskCreateCmd(a *app) *cobra.Command {
	var (
		t            task.Task
		priority     float64
		duration     int
		due, startAt string
		manualETA    string
		predecessors []string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if t.Subject == "" {
				return fmt.Errorf("--subject is required")
			}
			if cmd.Flags().Changed("priority") {
				t.Priority = &priority
			}
			if cmd.Flags().Changed("duration") {
				t.DurationMinutes = &duration
			}
			if due != "" {
				v, err := schedule.ParseTime(due)
				if err != nil {
					return fmt.Errorf("--due: %w", err)
				}
				t.Due = &v
			}
			if startAt != "" {
				v, err := schedule.ParseTime(startAt)
				if err != nil {
					return fmt.Errorf("--start: %w", err)
				}
				t.StartAt = &v
			}
			if manualETA != "" {
				v, err := schedule.ParseTime(manualETA)
				if err != nil {
					return fmt.Errorf("--eta: %w", err)
				}
				t.ManualETA = &v
			}
			t.Predecessors = predecessors
			return a.withTasks(cmd, func(store task.Store) error {
				result, err := store.Create(cmd.Context(), &t)
				if err != nil {
					return fmt.Errorf("create task: %w", err)
				}
				return a.printJSON(result)
			})
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&t.Subject, "subject", "", "task subject (required)")
	fl.StringVar(&t.Description, "description", "", "task description")
	fl.StringVar(&t.Owner, "owner", "", "person or resource doing the work")
	fl.StringVar(&t.ParentID, "parent", "", "parent task ID")
	fl.Float64Var(&priority, "priority", 0, "priority, higher is more urgent")
	fl.IntVar(&duration, "duration", 0, "duration in minutes")
	fl.StringVar(&due, "due", "", "due date")
	fl.StringVar(&startAt, "start", "", "fixed start for manual tasks")
	fl.StringVar(&manualETA, "eta", "", "fixed finish for manual tasks")
	fl.StringSliceVar(&predecessors, "predecessors", nil, "task IDs that must finish first")
	fl.BoolVar(&t.Manual, "manual", false, "keep the task's own timing")
	fl.BoolVar(&t.Parallel, "parallel", false, "do not serialize with the owner's other work")
	return cmd
}

func newTaskListCmd(a *app) *cobra.Command {
	var (
		status string
		limit  int
		short  bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, most urgent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withTasks(cmd, func(store task.Store) error {
				tasks, err := store.List(cmd.Context(), status, limit)
				if err != nil {
					return fmt.Errorf("list tasks: %w", err)
				}
				if short {
					printShortTasks(a, tasks)
					return nil
				}
				return a.printJSON(tasks)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of tasks")
	cmd.Flags().BoolVar(&short, "short", false, "one line per task")
	return cmd
}

func newTaskGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withTasks(cmd, func(store task.Store) error {
				t, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.printJSON(t)
			})
		},
	}
}

func newTaskUpdateCmd(a *app) *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "update <id> --set key=value...",
		Short: "Update task fields",
		Example: `  gantt task update 0190c3f2 --set status=blocked --set owner=ana
  gantt task update 0190c3f2 --set due=2022-03-01 --set predecessors=a,b`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			updates, err := parseSets(sets)
			if err != nil {
				return err
			}
			return a.withTasks(cmd, func(store task.Store) error {
				t, err := store.Update(cmd.Context(), args[0], updates)
				if err != nil {
					return err
				}
				return a.printJSON(t)
			})
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field assignment, key=value (repeatable)")
	return cmd
}

// parseSets turns key=value assignments into store updates. Values are
// coerced to each field's type; "null" clears an optional field.
func parseSets(sets []string) (map[string]any, error) {
	if len(sets) == 0 {
		return nil, fmt.Errorf("no updates specified")
	}
	raw := make(map[string]any, len(sets))
	for _, s := range sets {
		k, v, ok := strings.Cut(s, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("--set %q: expected key=value", s)
		}
		raw[k] = setValue(k, v)
	}
	return task.CoerceUpdates(raw)
}

func setValue(key, v string) any {
	if v == "null" {
		return nil
	}
	switch key {
	case "manual", "parallel":
		return v == "true"
	case "priority", "duration_minutes":
		var f float64
		if _, err := fmt.Sscan(v, &f); err == nil {
			return f
		}
	case "predecessors":
		var ids []any
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		return ids
	}
	return v
}

func newTaskCompleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withTasks(cmd, func(store task.Store) error {
				t, err := store.Complete(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.printJSON(t)
			})
		},
	}
}

func printShortTasks(a *app, tasks []task.Task) {
	for _, t := range tasks {
		eta := "-"
		if t.ETA != nil {
			eta = t.ETA.Format(slotLayout)
		}
		fmt.Fprintf(a.out, "%-8s  %-12s  %-16s  %-10s  %s\n",
			truncStr(t.ID, 8), t.Status, eta, truncStr(t.Owner, 10), truncStr(t.Subject, 60))
	}
}
