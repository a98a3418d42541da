package schedule

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// timeLayouts are tried in order after RFC 3339. They carry no zone and are
// read as time.Local wall-clock times.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02 15",
	"2006-01-02",
}

// ParseTime converts the timestamp representations task sources produce
// into a time.Time: time values, RFC 3339 and plain date/time strings, and
// unix seconds as integers, floats or numeric strings.
func ParseTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case *time.Time:
		if x == nil {
			return time.Time{}, fmt.Errorf("parse time: nil")
		}
		return *x, nil
	case int:
		return time.Unix(int64(x), 0), nil
	case int64:
		return time.Unix(x, 0), nil
	case float64:
		sec, frac := math.Modf(x)
		return time.Unix(int64(sec), int64(frac*1e9)), nil
	case string:
		return parseTimeString(x)
	case fmt.Stringer:
		return parseTimeString(x.String())
	}
	return time.Time{}, fmt.Errorf("parse time: unsupported type %T", v)
}

func parseTimeString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("parse time: empty string")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(n, 0), nil
	}
	return time.Time{}, fmt.Errorf("parse time %q: unrecognized format", s)
}

// normalizeTime strips the monotonic reading and, when loc is set, moves
// the instant into loc so hour-of-day checks agree across sources.
func normalizeTime(t *time.Time, loc *time.Location) *time.Time {
	if t == nil {
		return nil
	}
	v := t.Round(0)
	if loc != nil {
		v = v.In(loc)
	}
	return &v
}
