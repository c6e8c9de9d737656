package history

import (
	"fmt"
	"strings"
)

// Level is the severity of a log event. Lower values are more severe.
type Level int

const (
	// Error designates very serious failures.
	Error Level = iota + 1
	// Warn designates hazardous situations.
	Warn
	// Info designates useful information.
	Info
	// Debug designates lower priority information.
	Debug
	// Trace designates very low priority, often extremely verbose, information.
	Trace
)

var levelNames = map[Level]string{
	Error: "ERROR",
	Warn:  "WARN",
	Info:  "INFO",
	Debug: "DEBUG",
	Trace: "TRACE",
}

// String returns the upper-case name of the level.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// Valid reports whether l is one of the defined levels.
func (l Level) Valid() bool {
	return l >= Error && l <= Trace
}

// AtLeast reports whether l is at least as severe as other.
func (l Level) AtLeast(other Level) bool {
	return l <= other
}

// ParseLevel parses a level name case-insensitively. "warning" is accepted for Warn.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return Error, nil
	case "warn", "warning":
		return Warn, nil
	case "info":
		return Info, nil
	case "debug":
		return Debug, nil
	case "trace":
		return Trace, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid log level %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Event represents a single retained log event.
// It is a plain value; copies are independent.
type Event struct {
	// Level is the severity the event was recorded with
	Level Level `json:"level"`

	// Message is the rendered text of the event
	Message string `json:"message"`
}

// NewEvent creates a new Event.
func NewEvent(level Level, message string) Event {
	return Event{Level: level, Message: message}
}

// String renders the event as "LEVEL message".
func (e Event) String() string {
	return e.Level.String() + " " + e.Message
}
