package forest

import (
	"eta-planner/pkg/schedule"
	"eta-planner/pkg/task"
)

// StoreOrigin is the origin path of nodes built from stored tasks.
const StoreOrigin = "tasks"

// FromTasks arranges stored tasks into a forest keyed by task ID. Tasks
// whose parent is unknown become roots. Input order is kept among siblings.
// Computed timing is never carried over; a manual task's declared ETA
// comes from ManualETA.
func FromTasks(tasks []task.Task) schedule.Forest {
	nodes := make(map[string]*schedule.Node, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		created := t.CreatedAt
		n := &schedule.Node{
			Key:          t.ID,
			Origin:       schedule.Origin{Path: StoreOrigin, Line: i + 1},
			Text:         t.Subject,
			Priority:     t.Priority,
			Due:          t.Due,
			Start:        t.StartAt,
			Completion:   t.CompletedAt,
			Duration:     t.Duration(),
			Owner:        t.Owner,
			Manual:       t.Manual,
			Parallel:     t.Parallel,
			Completed:    t.Completed(),
			Predecessors: append([]string(nil), t.Predecessors...),
		}
		if !created.IsZero() {
			n.Created = &created
		}
		if t.Manual && t.ManualETA != nil {
			eta := *t.ManualETA
			n.ETA = &eta
		}
		nodes[t.ID] = n
	}

	parentOf := make(map[string]string, len(tasks))
	for _, t := range tasks {
		parentOf[t.ID] = t.ParentID
	}

	var roots schedule.Forest
	for i := range tasks {
		t := &tasks[i]
		n := nodes[t.ID]
		parent, ok := nodes[t.ParentID]
		if t.ParentID == "" || !ok || inParentLoop(t.ID, parentOf) {
			roots = append(roots, n)
			continue
		}
		parent.Add(n)
	}
	schedule.MarkFullyCompleted(roots)
	return roots
}

// inParentLoop reports whether following parent IDs up from id leads back
// to id.
func inParentLoop(id string, parentOf map[string]string) bool {
	cur := parentOf[id]
	for range len(parentOf) {
		if cur == "" {
			return false
		}
		if cur == id {
			return true
		}
		cur = parentOf[cur]
	}
	return false
}

// Estimates collects the computed timing of every node for storage.
func Estimates(f schedule.Forest) []task.Estimate {
	flat := schedule.Flatten(f)
	out := make([]task.Estimate, 0, len(flat))
	for _, n := range flat {
		out = append(out, task.Estimate{
			ID:       n.Key,
			ETAStart: n.ETAStart,
			ETA:      n.ETA,
			Urgency:  n.Urgency,
		})
	}
	return out
}
