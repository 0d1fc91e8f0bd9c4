package proximity

import "strings"

// Level is the alert level derived from hand-to-face proximity.
// Levels are totally ordered: Normal < Warning < Critical.
type Level int

const (
	// Normal means the hand is outside the warning radius.
	Normal Level = iota
	// Warning means the hand is inside the warning radius.
	Warning
	// Critical means the hand is inside the critical radius, or a warning
	// episode lasted past the escalation ceiling.
	Critical
)

// String returns the upper-case name of the level.
func (l Level) String() string {
	switch l {
	case Warning:
		return "WARNING"
	case Critical:
		return "CRITICAL"
	default:
		return "NORMAL"
	}
}

// Less reports whether l is strictly lower than other.
func (l Level) Less(other Level) bool {
	return l < other
}

// Max returns the higher of the two levels.
func Max(a, b Level) Level {
	if a.Less(b) {
		return b
	}
	return a
}

// ParseLevel converts a level name to a Level. Matching is case-insensitive
// and anything unrecognised maps to Normal.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRITICAL":
		return Critical
	case "WARNING":
		return Warning
	default:
		return Normal
	}
}

// MarshalText implements encoding.TextMarshaler so levels serialize by name.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	*l = ParseLevel(string(text))
	return nil
}
