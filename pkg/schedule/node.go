package schedule

import (
	"fmt"
	"time"
)

// DefaultDuration is used for any task that never declares a duration.
const DefaultDuration = 2 * time.Hour

// Origin is the stable source identity of a task, e.g. the document and line
// it was read from. Keys are derived from it when none is assigned.
type Origin struct {
	Path string `json:"path"`
	Line int    `json:"line"`
}

// Key returns the derived key for this origin.
func (o Origin) Key() string {
	return fmt.Sprintf("%s line: %d", o.Path, o.Line)
}

// Node is one task in the forest. Pointer fields are optional: nil means
// the value was never set anywhere and the propagation defaults apply.
type Node struct {
	Key    string `json:"key"`
	Origin Origin `json:"origin"`
	Text   string `json:"text"`

	Parent   *Node   `json:"-"` // non-owning
	Children []*Node `json:"children,omitempty"`

	Priority   *float64       `json:"priority,omitempty"`
	Due        *time.Time     `json:"due,omitempty"`
	Start      *time.Time     `json:"start,omitempty"`
	Created    *time.Time     `json:"created,omitempty"`
	Completion *time.Time     `json:"completion,omitempty"`
	Duration   *time.Duration `json:"duration,omitempty"`
	Owner      string         `json:"owner,omitempty"`

	Manual         bool `json:"manual,omitempty"`
	Parallel       bool `json:"parallel,omitempty"`
	Completed      bool `json:"completed,omitempty"`
	FullyCompleted bool `json:"fully_completed,omitempty"`

	// Predecessors holds keys of tasks that must finish first. They are
	// resolved into PredecessorLinks by Propagate; unknown keys are dropped.
	Predecessors     []string `json:"predecessors,omitempty"`
	PredecessorLinks []*Node  `json:"-"`

	Urgency  float64    `json:"urgency"`
	ETAStart *time.Time `json:"eta_start,omitempty"`
	ETA      *time.Time `json:"eta,omitempty"`

	scheduled bool
}

// Forest is the ordered list of root tasks.
type Forest []*Node

// IsLeaf reports whether the node has no subtasks.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Scheduled reports whether the scheduler has finalized this node.
func (n *Node) Scheduled() bool {
	return n.scheduled
}

// Serialized reports whether the node takes part in its owner's timeline.
func (n *Node) Serialized() bool {
	return n.Owner != "" && !n.Parallel
}

// Add appends children to n and links them back to it.
func (n *Node) Add(children ...*Node) *Node {
	for _, c := range children {
		c.Parent = n
		n.Children = append(n.Children, c)
	}
	return n
}

// MarkFullyCompleted sets FullyCompleted on every node that is completed
// and whose descendants are all fully completed. It returns true when the
// whole forest is fully completed.
func MarkFullyCompleted(f Forest) bool {
	all := true
	for _, n := range f {
		subs := MarkFullyCompleted(n.Children)
		n.FullyCompleted = subs && n.Completed
		if !n.FullyCompleted {
			all = false
		}
	}
	return all
}

func (n *Node) duration(def time.Duration) time.Duration {
	if n.Duration != nil {
		return *n.Duration
	}
	return def
}

func cloneTime(t time.Time) *time.Time {
	return &t
}
