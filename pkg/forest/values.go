package forest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"eta-planner/pkg/schedule"
)

// Stamp is an optional timestamp accepting every representation
// schedule.ParseTime understands.
type Stamp struct {
	T *time.Time
}

func (s *Stamp) set(v any) error {
	t, err := schedule.ParseTime(v)
	if err != nil {
		return err
	}
	s.T = &t
	return nil
}

// UnmarshalYAML decodes a scalar timestamp. Null leaves it unset.
func (s *Stamp) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: timestamp must be a scalar", value.Line)
	}
	if value.Tag == "!!null" {
		return nil
	}
	if err := s.set(value.Value); err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	return nil
}

// UnmarshalJSON decodes a string or numeric timestamp.
func (s *Stamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	if n, ok := v.(json.Number); ok {
		v = n.String()
	}
	return s.set(v)
}

// Span is an optional duration written as a Go duration string ("90m",
// "1h30m") or a bare number of hours.
type Span struct {
	D *time.Duration
}

func (s *Span) parse(raw string) error {
	raw = strings.TrimSpace(raw)
	if h, err := strconv.ParseFloat(raw, 64); err == nil {
		d := time.Duration(h * float64(time.Hour))
		s.D = &d
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	s.D = &d
	return nil
}

// UnmarshalYAML decodes a scalar duration. Null leaves it unset.
func (s *Span) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", value.Line)
	}
	if value.Tag == "!!null" {
		return nil
	}
	if err := s.parse(value.Value); err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	return nil
}

// UnmarshalJSON decodes a duration string or a number of hours.
func (s *Span) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		return s.parse(str)
	}
	return s.parse(string(data))
}
