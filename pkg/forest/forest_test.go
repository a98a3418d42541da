package forest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eta-planner/pkg/schedule"
	"eta-planner/pkg/task"
)

const sample = `tasks:
  - text: Ship release
    due: 2022-03-01
    priority: 50
    subtasks:
      - text: Write notes
        owner: ana
        duration: 1
      - key: qa
        text: QA pass
        owner: ana
        duration: 90m
        predecessors: [missing]
  - text: Done already
    completed: true
    completion: "2022-01-10 12:00"
`

func TestDecodeYAML(t *testing.T) {
	f, err := DecodeYAML([]byte(sample), "plan.yaml")
	require.NoError(t, err)
	require.Len(t, f, 2)

	root := f[0]
	assert.Equal(t, "Ship release", root.Text)
	assert.Equal(t, schedule.Origin{Path: "plan.yaml", Line: 2}, root.Origin)
	require.NotNil(t, root.Priority)
	assert.Equal(t, 50.0, *root.Priority)
	require.NotNil(t, root.Due)
	assert.Equal(t, "2022-03-01", root.Due.Format("2006-01-02"))

	require.Len(t, root.Children, 2)
	notes, qa := root.Children[0], root.Children[1]
	assert.Same(t, root, notes.Parent)
	assert.Equal(t, 6, notes.Origin.Line)
	assert.Equal(t, "ana", notes.Owner)
	require.NotNil(t, notes.Duration)
	assert.Equal(t, time.Hour, *notes.Duration)
	assert.Equal(t, "qa", qa.Key)
	assert.Equal(t, 90*time.Minute, *qa.Duration)
	assert.Equal(t, []string{"missing"}, qa.Predecessors)

	done := f[1]
	assert.True(t, done.Completed)
	assert.True(t, done.FullyCompleted)
	require.NotNil(t, done.Completion)
	assert.Equal(t, 12, done.Completion.Hour())
	assert.False(t, root.FullyCompleted)
}

func TestDecodeYAMLKeysAreStable(t *testing.T) {
	f1, err := DecodeYAML([]byte(sample), "plan.yaml")
	require.NoError(t, err)
	f2, err := DecodeYAML([]byte(sample), "plan.yaml")
	require.NoError(t, err)

	keys := func(f schedule.Forest) []string {
		var out []string
		for _, n := range schedule.Normalize(f) {
			out = append(out, n.Key)
		}
		return out
	}
	want := []string{"plan.yaml line: 2", "plan.yaml line: 6", "qa", "plan.yaml line: 14"}
	if diff := cmp.Diff(want, keys(f1)); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, keys(f1), keys(f2))
}

func TestDecodeYAMLSequence(t *testing.T) {
	f, err := DecodeYAML([]byte("- text: a\n- text: b\n  parallel: true\n"), "list.yaml")
	require.NoError(t, err)
	require.Len(t, f, 2)
	assert.Equal(t, 1, f[0].Origin.Line)
	assert.True(t, f[1].Parallel)
}

func TestDecodeYAMLErrors(t *testing.T) {
	cases := map[string]string{
		"empty":        "   \n",
		"scalar":       "just text",
		"bad date":     "- text: a\n  due: someday\n",
		"bad duration": "- text: a\n  duration: forever\n",
		"date mapping": "- text: a\n  due: {year: 2022}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeYAML([]byte(doc), "bad.yaml")
			assert.Error(t, err)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	body := `{"tasks": [
		{"key": "a", "text": "A", "owner": "bo", "duration": "30m", "due": "2022-02-10T00:00:00Z"},
		{"text": "B", "duration": 2, "start": 1644242400, "manual": true,
		 "subtasks": [{"text": "B1", "priority": -5}]}
	]}`
	f, err := DecodeJSON(strings.NewReader(body), "request")
	require.NoError(t, err)
	require.Len(t, f, 2)

	a, b := f[0], f[1]
	assert.Equal(t, "a", a.Key)
	assert.Equal(t, 30*time.Minute, *a.Duration)
	assert.True(t, a.Due.Equal(time.Date(2022, 2, 10, 0, 0, 0, 0, time.UTC)))

	assert.Equal(t, schedule.Origin{Path: "request", Line: 2}, b.Origin)
	assert.Equal(t, 2*time.Hour, *b.Duration)
	require.NotNil(t, b.Start)
	assert.Equal(t, int64(1644242400), b.Start.Unix())
	require.Len(t, b.Children, 1)
	assert.Equal(t, 3, b.Children[0].Origin.Line)
	assert.Equal(t, -5.0, *b.Children[0].Priority)
}

func TestDecodeJSONArray(t *testing.T) {
	f, err := DecodeJSON(strings.NewReader(`[{"text":"x","due":null}]`), "req")
	require.NoError(t, err)
	require.Len(t, f, 1)
	assert.Nil(t, f[0].Due)
}

func TestDecodeJSONErrors(t *testing.T) {
	for _, body := range []string{"", "{", `[{"due": "tomorrow-ish"}]`, `[{"duration": true}]`} {
		_, err := DecodeJSON(strings.NewReader(body), "req")
		assert.Error(t, err, body)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	yml := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(yml, []byte(sample), 0o644))
	js := filepath.Join(dir, "plan.json")
	require.NoError(t, os.WriteFile(js, []byte(`[{"text":"j"}]`), 0o644))

	f, err := LoadFile(yml)
	require.NoError(t, err)
	assert.Len(t, f, 2)

	f, err = LoadFile(js)
	require.NoError(t, err)
	assert.Equal(t, "j", f[0].Text)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestFromTasks(t *testing.T) {
	created := time.Date(2022, 2, 1, 9, 0, 0, 0, time.UTC)
	done := created.Add(time.Hour)
	mins := 45
	eta := time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)
	tasks := []task.Task{
		{ID: "p", Subject: "parent", Status: task.StatusPending, CreatedAt: created},
		{ID: "c1", Subject: "child", ParentID: "p", Owner: "ana", DurationMinutes: &mins, Predecessors: []string{"c2"}, CreatedAt: created},
		{ID: "c2", Subject: "done", ParentID: "p", Status: task.StatusCompleted, CompletedAt: &done, CreatedAt: created},
		{ID: "orphan", Subject: "lost", ParentID: "gone", CreatedAt: created},
		{ID: "m", Subject: "manual", Manual: true, ManualETA: &eta, ETA: &done, CreatedAt: created},
		{ID: "auto", Subject: "auto", ETA: &eta, CreatedAt: created},
	}

	f := FromTasks(tasks)
	require.Len(t, f, 4)
	assert.Equal(t, []string{"p", "orphan", "m", "auto"}, []string{f[0].Key, f[1].Key, f[2].Key, f[3].Key})

	p := f[0]
	require.Len(t, p.Children, 2)
	c1, c2 := p.Children[0], p.Children[1]
	assert.Same(t, p, c1.Parent)
	assert.Equal(t, "parent", p.Text)
	assert.Equal(t, 45*time.Minute, *c1.Duration)
	assert.Equal(t, []string{"c2"}, c1.Predecessors)
	assert.True(t, c2.Completed)
	assert.True(t, c2.FullyCompleted)
	assert.True(t, c2.Completion.Equal(done))
	assert.True(t, c1.Created.Equal(created))
	assert.False(t, p.FullyCompleted)

	require.NotNil(t, f[2].ETA)
	assert.True(t, f[2].ETA.Equal(eta), "manual tasks use their declared eta")
	assert.Nil(t, f[3].ETA, "computed etas are recomputed")

	stale := FromTasks([]task.Task{{ID: "m", Manual: true, ETA: &eta, CreatedAt: created}})
	assert.Nil(t, stale[0].ETA, "a manual task's computed eta is not an input")
}

func TestFromTasksParentLoop(t *testing.T) {
	tasks := []task.Task{
		{ID: "a", ParentID: "b"},
		{ID: "b", ParentID: "a"},
		{ID: "c", ParentID: "a"},
	}
	f := FromTasks(tasks)
	require.Len(t, f, 2)
	assert.Equal(t, "a", f[0].Key)
	assert.Equal(t, "b", f[1].Key)
	require.Len(t, f[0].Children, 1)
	assert.Equal(t, "c", f[0].Children[0].Key)
}

func TestScheduleStoredTasksAndEstimates(t *testing.T) {
	hour := 60
	p100, p0 := 100.0, 0.0
	tasks := []task.Task{
		{ID: "t1", Owner: "ana", Priority: &p0, DurationMinutes: &hour},
		{ID: "t2", Owner: "ana", Priority: &p100, DurationMinutes: &hour},
	}
	f := FromTasks(tasks)
	start := time.Date(2022, 2, 7, 0, 0, 0, 0, time.UTC)
	s, err := schedule.Run(f, schedule.Options{Start: start, Now: start})
	require.NoError(t, err)

	est := Estimates(f)
	require.Len(t, est, 2)
	assert.Equal(t, "t1", est[0].ID)
	assert.Equal(t, 14, est[0].ETAStart.Hour())
	assert.Equal(t, 13, est[1].ETAStart.Hour())
	assert.InDelta(t, 8.0, est[1].Urgency, 0.001)

	sum := Summarize(s)
	require.Len(t, sum.Owners["ana"], 2)
	assert.Equal(t, "t2", sum.Owners["ana"][0].Key, "timelines are in start order")
	assert.Empty(t, sum.Parallel)

	views := Views(f)
	require.Len(t, views, 2)
	assert.Equal(t, "1h0m0s", views[0].Duration)
	assert.Equal(t, 100.0, views[1].Priority)
}
