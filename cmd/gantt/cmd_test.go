package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plan = `schedule:
  timezone: UTC
logging:
  level: error
`

const forestYAML = `tasks:
  - key: a
    text: Draft
    owner: ana
    duration: 1
  - key: b
    text: Review
    owner: ana
    duration: 1
    predecessors: [a]
  - key: c
    text: Print
    parallel: true
    duration: 30m
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(plan), 0o644))
	file := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(file, []byte(forestYAML), 0o644))

	for i, a := range args {
		args[i] = strings.ReplaceAll(a, "$FILE", file)
	}
	var out, errOut bytes.Buffer
	root := newRootCmd(&out, &errOut)
	root.SetArgs(append([]string{"--config", cfg}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestScheduleFile(t *testing.T) {
	out, err := run(t, "schedule", "--file", "$FILE", "--start", "2022-02-07T00:00:00Z")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5, out)
	assert.Equal(t, "ana", strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], "2022-02-07 13:00")
	assert.Contains(t, lines[1], "Draft")
	assert.Contains(t, lines[2], "2022-02-07 14:00")
	assert.Contains(t, lines[2], "Review")
	assert.Equal(t, "(parallel)", strings.TrimSpace(lines[3]))
	assert.Contains(t, lines[4], "Print")
}

func TestScheduleFileAnnotate(t *testing.T) {
	out, err := run(t, "schedule", "--file", "$FILE", "--start", "2022-02-07T00:00:00Z", "--annotate")
	require.NoError(t, err)
	assert.Contains(t, out, "- Draft [eta::2022-02-07] [owner::ana]")
}

func TestScheduleFileJSON(t *testing.T) {
	out, err := run(t, "schedule", "--file", "$FILE", "--start", "2022-02-07T00:00:00Z", "--json")
	require.NoError(t, err)

	var res struct {
		Tasks []struct {
			Key string `json:"key"`
		} `json:"tasks"`
		Summary struct {
			Owners map[string][]struct {
				Key string `json:"key"`
			} `json:"owners"`
			Parallel []struct {
				Key string `json:"key"`
			} `json:"parallel"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Len(t, res.Tasks, 3)
	assert.Len(t, res.Summary.Owners["ana"], 2)
	require.Len(t, res.Summary.Parallel, 1)
	assert.Equal(t, "c", res.Summary.Parallel[0].Key)
}

func TestScheduleFlagErrors(t *testing.T) {
	_, err := run(t, "schedule")
	assert.Error(t, err, "needs --file or --db")

	_, err = run(t, "schedule", "--file", "$FILE", "--save")
	assert.ErrorContains(t, err, "--save requires --db")

	_, err = run(t, "schedule", "--file", "$FILE", "--start", "soon")
	assert.ErrorContains(t, err, "--start")

	_, err = run(t, "schedule", "--file", "missing.yaml")
	assert.Error(t, err)
}

func TestParseSets(t *testing.T) {
	got, err := parseSets([]string{"status=blocked", "priority=20", "predecessors=a, b", "due=null", "manual=true"})
	require.NoError(t, err)
	assert.Equal(t, "blocked", got["status"])
	assert.Equal(t, 20.0, *got["priority"].(*float64))
	assert.Equal(t, []string{"a", "b"}, got["predecessors"])
	assert.Equal(t, true, got["manual"])
	assert.Contains(t, got, "due")

	_, err = parseSets(nil)
	assert.Error(t, err)
	_, err = parseSets([]string{"status"})
	assert.Error(t, err)
	_, err = parseSets([]string{"priority=high"})
	assert.Error(t, err)
}
