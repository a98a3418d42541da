package schedule

import (
	"log/slog"
	"slices"
	"sort"
	"time"
)

// Options controls a scheduling run. The zero value schedules from the
// current time in DefaultWindow with DefaultDuration.
type Options struct {
	// Start anchors the run. Completed work never finishes after it.
	Start time.Time
	// Now is the reference instant for urgency scoring. Defaults to the
	// wall clock, independently of Start.
	Now time.Time

	Window          Window
	Location        *time.Location
	DefaultDuration time.Duration
	Logger          *slog.Logger
}

func (o Options) start() time.Time {
	t := o.Start
	if t.IsZero() {
		t = time.Now()
	}
	t = t.Round(0)
	if o.Location != nil {
		t = t.In(o.Location)
	}
	return t
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

func (o Options) defaultDuration() time.Duration {
	if o.DefaultDuration <= 0 {
		return DefaultDuration
	}
	return o.DefaultDuration
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// Schedule is the result of a run: each owner's timeline sorted by
// start, plus the tasks placed without owner serialization.
type Schedule struct {
	Owners   map[string][]*Node
	Parallel []*Node
}

// NewSchedule returns an empty schedule.
func NewSchedule() *Schedule {
	return &Schedule{Owners: make(map[string][]*Node)}
}

// OwnerNames returns the owners with at least one task, sorted.
func (s *Schedule) OwnerNames() []string {
	names := make([]string, 0, len(s.Owners))
	for name, tasks := range s.Owners {
		if len(tasks) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Timeline returns the tasks placed for owner.
func (s *Schedule) Timeline(owner string) []*Node {
	return s.Owners[owner]
}

// Len returns the number of placed tasks.
func (s *Schedule) Len() int {
	n := len(s.Parallel)
	for _, tasks := range s.Owners {
		n += len(tasks)
	}
	return n
}

func (s *Schedule) place(n *Node) {
	if n.Serialized() {
		s.Owners[n.Owner] = append(s.Owners[n.Owner], n)
		return
	}
	s.Parallel = append(s.Parallel, n)
}

// fit finds the first start at or after proposed where a task of length
// dur clears every task already on the owner's timeline, scanning them in
// start order.
func (s *Schedule) fit(owner string, proposed time.Time, dur time.Duration, w Window) time.Time {
	tl := s.Owners[owner]
	sort.SliceStable(tl, func(i, j int) bool {
		return tl[i].ETAStart.Before(*tl[j].ETAStart)
	})
	for _, t := range tl {
		if !proposed.Before(*t.ETA) {
			continue
		}
		if !proposed.Add(dur).After(*t.ETAStart) {
			break
		}
		proposed = w.Next(*t.ETA)
	}
	return proposed
}

// Run schedules the forest in place and returns the resulting placement.
// It fails with a *DuplicateKeyError before computing any timing, or with
// a *CycleError when predecessors or subtasks loop back on themselves.
func Run(f Forest, opts Options) (*Schedule, error) {
	log := opts.logger()
	start := opts.start()

	flat := Normalize(f)
	if dups := DuplicateKeys(flat); len(dups) > 0 {
		return nil, &DuplicateKeyError{Keys: dups}
	}
	for _, n := range flat {
		n.scheduled = false
	}

	newPropagator(indexByKey(flat), opts).walk(f, nil)
	ScoreUrgency(f, opts.now())

	order := byUrgency(flat)
	sched := NewSchedule()
	pl := planner{
		start:  start,
		window: opts.Window.orDefault(),
		sched:  sched,
		log:    log,
	}

	for _, n := range order {
		if n.Manual && !n.scheduled {
			pl.fixManual(n)
		}
	}
	for _, n := range order {
		if n.FullyCompleted && !n.scheduled {
			pl.fixCompleted(n)
		}
	}
	for _, n := range order {
		if err := pl.auto(n, nil); err != nil {
			return nil, err
		}
	}

	log.Info("schedule computed",
		"tasks", len(flat),
		"owners", len(sched.OwnerNames()),
		"parallel", len(sched.Parallel),
		"start", start)
	return sched, nil
}

type planner struct {
	start  time.Time
	window Window
	sched  *Schedule
	log    *slog.Logger
}

// fixedStart picks the start of work whose timing is not computed.
func (p *planner) fixedStart(n *Node) time.Time {
	switch {
	case n.ETAStart != nil:
		return *n.ETAStart
	case n.Start != nil:
		return *n.Start
	case n.Created != nil:
		return *n.Created
	}
	return p.start
}

func (p *planner) fixManual(n *Node) {
	s := p.fixedStart(n)
	n.ETAStart = cloneTime(s)
	switch {
	case n.ETA != nil:
	case n.Due != nil:
		n.ETA = cloneTime(*n.Due)
	default:
		n.ETA = cloneTime(s.Add(n.duration(DefaultDuration)))
	}
	n.scheduled = true
	p.sched.place(n)
	p.log.Debug("manual task fixed", "task", n.Key, "eta_start", s, "eta", *n.ETA)
}

func (p *planner) fixCompleted(n *Node) {
	s := p.fixedStart(n)
	n.ETAStart = cloneTime(s)
	var eta time.Time
	switch {
	case n.Completion != nil:
		eta = *n.Completion
	case n.ETA != nil:
		eta = *n.ETA
	case n.Due != nil:
		eta = *n.Due
	default:
		eta = s.Add(n.duration(DefaultDuration))
	}
	if eta.After(p.start) {
		eta = p.start
	}
	n.ETA = cloneTime(eta)
	n.scheduled = true
	p.sched.place(n)
	p.log.Debug("completed task fixed", "task", n.Key, "eta_start", s, "eta", eta)
}

// auto schedules n after its predecessors and subtasks. path holds the keys
// currently being resolved; it is extended by copy, never in place.
func (p *planner) auto(n *Node, path []string) error {
	if n.scheduled {
		return nil
	}
	if slices.Contains(path, n.Key) {
		return &CycleError{Key: n.Key, Path: append(slices.Clone(path), n.Key)}
	}
	path = append(path[:len(path):len(path)], n.Key)

	proposed := p.window.Next(p.start)

	if len(n.PredecessorLinks) > 0 {
		preds := byUrgency(n.PredecessorLinks)
		for _, pred := range preds {
			if err := p.auto(pred, path); err != nil {
				return err
			}
		}
		if last, ok := latestETA(preds); ok && proposed.Before(last) {
			proposed = p.window.Next(last)
		}
	}

	if !n.IsLeaf() {
		subs := byUrgency(Flatten(n.Children))
		for _, sub := range subs {
			if err := p.auto(sub, path); err != nil {
				return err
			}
		}
		if last, ok := latestETA(subs); ok && proposed.Before(last) {
			proposed = p.window.Next(last)
		}
		first, ok := earliestETAStart(subs)
		if !ok {
			first = proposed
		}
		span := proposed.Sub(first)
		n.ETAStart = cloneTime(first)
		n.ETA = cloneTime(proposed)
		n.Duration = &span
		n.scheduled = true
		return nil
	}

	dur := n.duration(DefaultDuration)
	if n.Serialized() {
		slot := p.sched.fit(n.Owner, proposed, dur, p.window)
		if !slot.Equal(proposed) {
			p.log.Debug("owner busy, task moved", "task", n.Key, "owner", n.Owner, "from", proposed, "to", slot)
		}
		proposed = slot
	}
	p.sched.place(n)
	n.ETAStart = cloneTime(proposed)
	n.ETA = cloneTime(p.window.Next(proposed.Add(dur)))
	n.scheduled = true
	return nil
}

// byUrgency returns a copy of nodes ordered by descending urgency. Ties
// keep their input order.
func byUrgency(nodes []*Node) []*Node {
	out := slices.Clone(nodes)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Urgency > out[j].Urgency
	})
	return out
}

func latestETA(nodes []*Node) (time.Time, bool) {
	var last time.Time
	found := false
	for _, n := range nodes {
		if n.ETA == nil {
			continue
		}
		if !found || n.ETA.After(last) {
			last, found = *n.ETA, true
		}
	}
	return last, found
}

func earliestETAStart(nodes []*Node) (time.Time, bool) {
	var first time.Time
	found := false
	for _, n := range nodes {
		if n.ETAStart == nil {
			continue
		}
		if !found || n.ETAStart.Before(first) {
			first, found = *n.ETAStart, true
		}
	}
	return first, found
}
