package schedule

import "time"

// Window is the weekly availability window: Monday through Friday, from
// StartHour (inclusive) to EndHour (exclusive), in the instant's location.
type Window struct {
	StartHour int
	EndHour   int
}

// DefaultWindow is weekdays 13:00-17:00.
var DefaultWindow = Window{StartHour: 13, EndHour: 17}

// NextWorkTime returns the earliest instant at or after t inside DefaultWindow.
func NextWorkTime(t time.Time) time.Time {
	return DefaultWindow.Next(t)
}

// Next returns the earliest instant at or after t that lies inside the window.
func (w Window) Next(t time.Time) time.Time {
	wd := t.Weekday()
	switch {
	case wd == time.Saturday:
		return w.open(t, 2)
	case wd == time.Sunday:
		return w.open(t, 1)
	case wd == time.Friday && t.Hour() >= w.EndHour:
		return w.open(t, 3)
	case t.Hour() >= w.EndHour:
		return w.open(t, 1)
	case t.Hour() < w.StartHour:
		return w.open(t, 0)
	}
	return t
}

// open returns the window opening time days calendar days after t.
func (w Window) open(t time.Time, days int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+days, w.StartHour, 0, 0, 0, t.Location())
}

func (w Window) orDefault() Window {
	if w.StartHour == 0 && w.EndHour == 0 {
		return DefaultWindow
	}
	return w
}
