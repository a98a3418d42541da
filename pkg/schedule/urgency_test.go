package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUrgency(t *testing.T) {
	now := at("2022-02-07 10:00")
	day := 24 * time.Hour

	cases := []struct {
		name string
		node *Node
		want float64
		tol  float64
	}{
		{"fully completed", &Node{FullyCompleted: true, Priority: ptr(100.0), Due: ptr(now)}, -1, 0},
		{"nothing set", &Node{}, 0, 0},
		{"exactly seven days overdue", &Node{Due: ptr(now.Add(-7 * day))}, 12, 0},
		{"22 days overdue", &Node{Due: ptr(now.Add(-22 * day))}, 13, 0.001},
		{"six days overdue", &Node{Due: ptr(now.Add(-6 * day))}, 11.08, 0.05},
		{"due now", &Node{Due: ptr(now)}, 5.53, 0.05},
		{"due tomorrow", &Node{Due: ptr(now.Add(day))}, 4.8, 0.05},
		{"due in 11 days", &Node{Due: ptr(now.Add(11 * day))}, 0.44, 0.05},
		{"due in exactly 14 days", &Node{Due: ptr(now.Add(14 * day))}, 0.2, 0},
		{"due in 15 days", &Node{Due: ptr(now.Add(15 * day))}, 0.2, 0},
		{"priority 100", &Node{Priority: ptr(100.0)}, 8, 0.05},
		{"priority 50", &Node{Priority: ptr(50.0)}, 5.66, 0.05},
		{"priority 0", &Node{Priority: ptr(0.0)}, 0, 0},
		{"priority -8", &Node{Priority: ptr(-8.0)}, -0.64, 0.001},
		{"priority -90", &Node{Priority: ptr(-90.0)}, -7.2, 0.05},
		{"due and priority", &Node{Priority: ptr(100.0), Due: ptr(now.Add(15 * day))}, 8.2, 0.001},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Urgency(tc.node, now), tc.tol)
		})
	}
}

func TestScoreUrgencyVisitsEveryNode(t *testing.T) {
	now := at("2022-02-07 10:00")
	grandchild := &Node{Priority: ptr(100.0)}
	child := (&Node{Priority: ptr(50.0)}).Add(grandchild)
	done := &Node{FullyCompleted: true}
	root := (&Node{}).Add(child, done)

	ScoreUrgency(Forest{root, &Node{Priority: ptr(25.0)}}, now)

	assert.Equal(t, 0.0, root.Urgency)
	assert.InDelta(t, 5.66, child.Urgency, 0.05)
	assert.InDelta(t, 8.0, grandchild.Urgency, 0.001)
	assert.Equal(t, -1.0, done.Urgency)
}

func TestUrgencyDueTermTruncatesPartialUnits(t *testing.T) {
	now := at("2022-02-07 10:00")
	// 23 days and 23 hours overdue counts as 23 whole days.
	n := &Node{Due: ptr(now.Add(-(23*24 + 23) * time.Hour))}
	assert.InDelta(t, 12+4/3.872983, Urgency(n, now), 0.001)
}
