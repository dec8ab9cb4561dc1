// Package schedule decides where a moment falls relative to a quiz window.
package schedule

import "time"

type State int

const (
	NotStarted State = iota
	Active
	Ended
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Active:
		return "active"
	case Ended:
		return "ended"
	}
	return "unknown"
}

// MaxDuration is the longest window in minutes (one year). Larger values
// overflow time.Duration.
const MaxDuration = 525600

// End is start plus duration minutes.
func End(start time.Time, duration int) time.Time {
	return start.Add(time.Duration(duration) * time.Minute)
}

// Window classifies now against [start, start+duration]. Both ends of the
// window are inclusive.
func Window(now, start time.Time, duration int) State {
	end := End(start, duration)
	if now.Before(start) {
		return NotStarted
	}
	if now.After(start) && now.After(end) {
		return Ended
	}
	return Active
}
