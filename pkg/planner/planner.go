// Package planner computes schedules over stored tasks and records them:
// estimates go back onto the tasks, and every run is appended to the
// snapshot log. Run keeps doing so on an interval.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eta-planner/internal/logging"
	"eta-planner/pkg/forest"
	"eta-planner/pkg/schedule"
	"eta-planner/pkg/snapshot"
	"eta-planner/pkg/task"
)

// DefaultInterval is how often Run replans when Config leaves it unset.
const DefaultInterval = time.Minute

// Config configures a Planner.
type Config struct {
	// Schedule is the base engine configuration. Its Start is replaced on
	// every run.
	Schedule schedule.Options
	Interval time.Duration
	// Source labels the snapshots this planner records.
	Source string
	Logger *slog.Logger
}

// Planner schedules the task store.
type Planner struct {
	tasks     task.Store
	snapshots snapshot.Store
	opts      schedule.Options
	interval  time.Duration
	source    string
	log       *slog.Logger
	now       func() time.Time
}

// Result is one computed schedule.
type Result struct {
	Forest   schedule.Forest
	Schedule *schedule.Schedule
	Start    time.Time
	// Snapshot is set once the run has been recorded.
	Snapshot *snapshot.Snapshot
}

// New creates a Planner.
func New(tasks task.Store, snapshots snapshot.Store, cfg Config) *Planner {
	p := &Planner{
		tasks:     tasks,
		snapshots: snapshots,
		opts:      cfg.Schedule,
		interval:  cfg.Interval,
		source:    cfg.Source,
		log:       cfg.Logger,
		now:       time.Now,
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.source == "" {
		p.source = "planner"
	}
	if p.log == nil {
		p.log = logging.Nop()
	}
	if p.opts.Logger == nil {
		p.opts.Logger = p.log
	}
	return p
}

// Compute schedules the stored tasks from start without recording
// anything. A zero start means now.
func (p *Planner) Compute(ctx context.Context, start time.Time) (*Result, error) {
	if start.IsZero() {
		start = p.now()
	}
	all, err := p.tasks.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	f := forest.FromTasks(all)

	opts := p.opts
	opts.Start = start
	s, err := schedule.Run(f, opts)
	if err != nil {
		return &Result{Forest: f, Start: start}, err
	}
	return &Result{Forest: f, Schedule: s, Start: start}, nil
}

// Plan computes the schedule, writes the estimates back onto the tasks and
// appends a snapshot. A run the engine rejects is recorded as a failed
// snapshot and its error returned.
func (p *Planner) Plan(ctx context.Context, start time.Time) (*Result, error) {
	res, err := p.Compute(ctx, start)
	if err != nil {
		if res == nil || !engineError(err) {
			return nil, err
		}
		snap, serr := p.snapshots.Append(ctx, snapshot.Failed(p.source, res.Start, err))
		if serr != nil {
			p.log.Error("record failed run", "error", serr)
		}
		res.Snapshot = snap
		return res, err
	}

	if err := p.tasks.SaveEstimates(ctx, forest.Estimates(res.Forest)); err != nil {
		return nil, fmt.Errorf("save estimates: %w", err)
	}
	snap, err := snapshot.FromSchedule(p.source, res.Start, res.Schedule)
	if err != nil {
		return nil, err
	}
	if res.Snapshot, err = p.snapshots.Append(ctx, snap); err != nil {
		return nil, fmt.Errorf("append snapshot: %w", err)
	}
	p.log.Info("planner: schedule saved",
		"snapshot", res.Snapshot.ID,
		"tasks", res.Schedule.Len(),
		"owners", len(res.Schedule.OwnerNames()))
	return res, nil
}

func engineError(err error) bool {
	return errors.Is(err, schedule.ErrCycle) || errors.Is(err, schedule.ErrDuplicateKeys)
}

// Run replans every interval until ctx is cancelled.
func (p *Planner) Run(ctx context.Context) {
	p.log.Info("planner: running", "interval", p.interval.String())

	// Catch up immediately on startup
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("planner: shutting down")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Planner) poll(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("planner: panic in poll", "panic", fmt.Sprintf("%v", r))
		}
	}()

	if _, err := p.Plan(ctx, time.Time{}); err != nil {
		p.log.Warn("planner: run failed", "error", err)
	}
}
