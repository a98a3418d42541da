package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextWorkTime(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"saturday", "2022-02-05 13:00", "2022-02-07 13:00"},
		{"sunday evening", "2022-02-06 18:41:29", "2022-02-07 13:00"},
		{"friday after close", "2022-02-04 17:00", "2022-02-07 13:00"},
		{"friday late", "2022-02-04 17:05", "2022-02-07 13:00"},
		{"monday in window", "2022-02-07 14:05", "2022-02-07 14:05"},
		{"friday in window", "2022-02-04 14:05", "2022-02-04 14:05"},
		{"tuesday at close", "2022-02-08 17:00", "2022-02-09 13:00"},
		{"tuesday after close", "2022-02-08 17:05", "2022-02-09 13:00"},
		{"weekday morning", "2022-02-04 08:05", "2022-02-04 13:00"},
		{"opening instant", "2022-02-09 13:00", "2022-02-09 13:00"},
		{"month boundary", "2022-02-28 19:00", "2022-03-01 13:00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NextWorkTime(at(tc.in))
			assert.True(t, got.Equal(at(tc.want)), "got %s, want %s", got, tc.want)
		})
	}
}

func TestNextWorkTimeKeepsSecondsInsideWindow(t *testing.T) {
	in := time.Date(2022, 2, 7, 16, 59, 59, 500, time.UTC)
	assert.True(t, NextWorkTime(in).Equal(in))
}

func TestNextWorkTimeKeepsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	got := NextWorkTime(time.Date(2022, 2, 5, 9, 0, 0, 0, loc))
	assert.Equal(t, loc, got.Location())
	assert.Equal(t, 13, got.Hour())
	assert.Equal(t, time.Monday, got.Weekday())
}

func TestWindowCustomHours(t *testing.T) {
	w := Window{StartHour: 9, EndHour: 12}
	assert.True(t, w.Next(at("2022-02-07 08:00")).Equal(at("2022-02-07 09:00")))
	assert.True(t, w.Next(at("2022-02-07 12:00")).Equal(at("2022-02-08 09:00")))
	assert.True(t, w.Next(at("2022-02-07 11:59")).Equal(at("2022-02-07 11:59")))
}

func TestWindowOrDefault(t *testing.T) {
	assert.Equal(t, DefaultWindow, Window{}.orDefault())
	assert.Equal(t, Window{StartHour: 8, EndHour: 16}, Window{StartHour: 8, EndHour: 16}.orDefault())
}
