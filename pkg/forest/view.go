package forest

import (
	"sort"
	"time"

	"eta-planner/pkg/schedule"
)

// View is the serialized form of a scheduled node.
type View struct {
	Key          string     `json:"key"`
	Text         string     `json:"text"`
	Owner        string     `json:"owner,omitempty"`
	Priority     float64    `json:"priority"`
	Urgency      float64    `json:"urgency"`
	Due          *time.Time `json:"due,omitempty"`
	ETAStart     *time.Time `json:"eta_start,omitempty"`
	ETA          *time.Time `json:"eta,omitempty"`
	Duration     string     `json:"duration,omitempty"`
	Manual       bool       `json:"manual,omitempty"`
	Parallel     bool       `json:"parallel,omitempty"`
	Completed    bool       `json:"completed,omitempty"`
	Predecessors []string   `json:"predecessors,omitempty"`
	Subtasks     []View     `json:"subtasks,omitempty"`
}

// Views converts nodes and their subtrees.
func Views(nodes []*schedule.Node) []View {
	out := make([]View, 0, len(nodes))
	for _, n := range nodes {
		v := View{
			Key:          n.Key,
			Text:         n.Text,
			Owner:        n.Owner,
			Urgency:      n.Urgency,
			Due:          n.Due,
			ETAStart:     n.ETAStart,
			ETA:          n.ETA,
			Manual:       n.Manual,
			Parallel:     n.Parallel,
			Completed:    n.Completed,
			Predecessors: n.Predecessors,
		}
		if n.Priority != nil {
			v.Priority = *n.Priority
		}
		if n.Duration != nil {
			v.Duration = n.Duration.String()
		}
		if len(n.Children) > 0 {
			v.Subtasks = Views(n.Children)
		}
		out = append(out, v)
	}
	return out
}

// Slot is one placed task in a timeline.
type Slot struct {
	Key      string     `json:"key"`
	Text     string     `json:"text"`
	ETAStart *time.Time `json:"eta_start"`
	ETA      *time.Time `json:"eta"`
}

// Summary is a schedule's timelines: one per owner in start order, plus
// the tasks placed without owner serialization.
type Summary struct {
	Owners   map[string][]Slot `json:"owners"`
	Parallel []Slot            `json:"parallel"`
}

// Summarize converts a schedule into timelines sorted by start.
func Summarize(s *schedule.Schedule) Summary {
	sum := Summary{Owners: make(map[string][]Slot), Parallel: slots(s.Parallel)}
	for _, owner := range s.OwnerNames() {
		sum.Owners[owner] = slots(s.Timeline(owner))
	}
	return sum
}

func slots(nodes []*schedule.Node) []Slot {
	out := make([]Slot, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, Slot{Key: n.Key, Text: n.Text, ETAStart: n.ETAStart, ETA: n.ETA})
	}
	sortSlots(out)
	return out
}

func sortSlots(s []Slot) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].ETAStart == nil || s[j].ETAStart == nil {
			return false
		}
		return s[i].ETAStart.Before(*s[j].ETAStart)
	})
}
