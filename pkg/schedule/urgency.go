package schedule

import (
	"math"
	"time"
)

const (
	overdueAfter = 7 * 24 * time.Hour
	nearWithin   = 14 * 24 * time.Hour
)

// Urgency scores a single node at now. Fully completed work scores -1;
// otherwise the due-date and priority terms are summed, each only when the
// field is set.
func Urgency(n *Node, now time.Time) float64 {
	if n.FullyCompleted {
		return -1
	}
	var u float64
	if n.Due != nil {
		u += dueTerm(*n.Due, now)
	}
	if n.Priority != nil {
		u += priorityTerm(*n.Priority)
	}
	return u
}

// ScoreUrgency sets Urgency on every node of the forest.
func ScoreUrgency(f Forest, now time.Time) {
	for _, n := range f {
		n.Urgency = Urgency(n, now)
		ScoreUrgency(n.Children, now)
	}
}

func dueTerm(due, now time.Time) float64 {
	switch {
	case !due.After(now.Add(-overdueAfter)):
		days := float64(int64(now.Sub(due) / (24 * time.Hour)))
		return 12 + math.Sqrt(days-7)/math.Sqrt(15)
	case due.Before(now.Add(nearWithin)):
		hours := float64(int64(now.Sub(due) / time.Hour))
		x := hours/24 + 14
		return 12*x*x/(21*21) + 0.2
	}
	return 0.2
}

func priorityTerm(p float64) float64 {
	if p >= 0 {
		return 8 * math.Sqrt(p) / 10
	}
	return 8 * p / 100
}
