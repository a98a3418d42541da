// Package forest builds task forests for the scheduler from YAML and JSON
// documents and from stored tasks, and projects computed timing back out.
package forest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"eta-planner/pkg/schedule"
)

// Task is the document form of one task. Subtasks nest.
type Task struct {
	Key          string   `yaml:"key" json:"key"`
	Text         string   `yaml:"text" json:"text"`
	Priority     *float64 `yaml:"priority" json:"priority"`
	Owner        string   `yaml:"owner" json:"owner"`
	Due          Stamp    `yaml:"due" json:"due"`
	Start        Stamp    `yaml:"start" json:"start"`
	Created      Stamp    `yaml:"created" json:"created"`
	Completion   Stamp    `yaml:"completion" json:"completion"`
	ETAStart     Stamp    `yaml:"eta_start" json:"eta_start"`
	ETA          Stamp    `yaml:"eta" json:"eta"`
	Duration     Span     `yaml:"duration" json:"duration"`
	Manual       bool     `yaml:"manual" json:"manual"`
	Parallel     bool     `yaml:"parallel" json:"parallel"`
	Completed    bool     `yaml:"completed" json:"completed"`
	Predecessors []string `yaml:"predecessors" json:"predecessors"`
	Subtasks     []Task   `yaml:"subtasks" json:"subtasks"`

	line int
}

// Document is the mapping form of a forest file. A bare sequence of tasks
// is accepted too.
type Document struct {
	Tasks []Task `yaml:"tasks" json:"tasks"`
}

// UnmarshalYAML records the line the task starts on.
func (t *Task) UnmarshalYAML(value *yaml.Node) error {
	type plain Task
	if err := value.Decode((*plain)(t)); err != nil {
		return err
	}
	t.line = value.Line
	return nil
}

// DecodeYAML decodes a YAML forest. Tasks without a key are keyed by path
// and the line they start on.
func DecodeYAML(data []byte, path string) (schedule.Forest, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("forest: %s: document is empty", path)
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("forest: %s: decode: %w", path, err)
	}
	doc := &root
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}

	var tasks []Task
	switch doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&tasks); err != nil {
			return nil, fmt.Errorf("forest: %s: decode: %w", path, err)
		}
	case yaml.MappingNode:
		var d Document
		if err := doc.Decode(&d); err != nil {
			return nil, fmt.Errorf("forest: %s: decode: %w", path, err)
		}
		tasks = d.Tasks
	default:
		return nil, fmt.Errorf("forest: %s: expected a task list or a tasks mapping", path)
	}

	f := Build(tasks, path, func(t *Task, _ int) int { return t.line })
	schedule.MarkFullyCompleted(f)
	return f, nil
}

// DecodeJSON decodes a JSON forest, either an array of tasks or an object
// with a "tasks" array. Tasks without a key are keyed by source and their
// 1-based pre-order position.
func DecodeJSON(r io.Reader, source string) (schedule.Forest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("forest: %s: read: %w", source, err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("forest: %s: document is empty", source)
	}

	var tasks []Task
	if data[0] == '[' {
		err = json.Unmarshal(data, &tasks)
	} else {
		var d Document
		err = json.Unmarshal(data, &d)
		tasks = d.Tasks
	}
	if err != nil {
		return nil, fmt.Errorf("forest: %s: decode: %w", source, err)
	}

	f := Build(tasks, source, func(_ *Task, ordinal int) int { return ordinal })
	schedule.MarkFullyCompleted(f)
	return f, nil
}

// LoadFile reads a forest file, choosing the decoder by extension.
func LoadFile(path string) (schedule.Forest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("forest: read %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return DecodeJSON(bytes.NewReader(data), path)
	}
	return DecodeYAML(data, path)
}

// Build converts document tasks into schedule nodes. line picks the origin
// line for each task given its 1-based pre-order position.
func Build(tasks []Task, path string, line func(t *Task, ordinal int) int) schedule.Forest {
	ordinal := 0
	var build func([]Task, *schedule.Node) []*schedule.Node
	build = func(ts []Task, parent *schedule.Node) []*schedule.Node {
		nodes := make([]*schedule.Node, 0, len(ts))
		for i := range ts {
			t := &ts[i]
			ordinal++
			n := &schedule.Node{
				Key:          t.Key,
				Origin:       schedule.Origin{Path: path, Line: line(t, ordinal)},
				Text:         t.Text,
				Parent:       parent,
				Priority:     t.Priority,
				Due:          t.Due.T,
				Start:        t.Start.T,
				Created:      t.Created.T,
				Completion:   t.Completion.T,
				Duration:     t.Duration.D,
				Owner:        t.Owner,
				Manual:       t.Manual,
				Parallel:     t.Parallel,
				Completed:    t.Completed,
				Predecessors: t.Predecessors,
				ETAStart:     t.ETAStart.T,
				ETA:          t.ETA.T,
			}
			n.Children = build(t.Subtasks, n)
			nodes = append(nodes, n)
		}
		return nodes
	}
	return schedule.Forest(build(tasks, nil))
}
