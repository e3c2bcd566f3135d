// Package presence publishes the live occupancy of the Foundry server to observers.
package presence

import (
	"fmt"
	"sync"

	"github.com/fdswitch/fdswitch/engine/fslog"
	"github.com/pkg/errors"
)

// Level is the coarse state shown next to the presence text
type Level int

const (
	// Online means a world is loaded
	Online Level = iota
	// Idle means no world is loaded
	Idle
	// Alert means the server could not be reached
	Alert
)

var levelNames = []string{"online", "idle", "alert"}

func (l Level) String() string {
	if l >= 0 && int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// MarshalText encodes the level by name
func (l Level) MarshalText() ([]byte, error) {
	if l < 0 || int(l) >= len(levelNames) {
		return nil, errors.Errorf("invalid presence level %d", int(l))
	}
	return []byte(levelNames[l]), nil
}

// UnmarshalText decodes a level name
func (l *Level) UnmarshalText(text []byte) error {
	for i, name := range levelNames {
		if name == string(text) {
			*l = Level(i)
			return nil
		}
	}
	return errors.Errorf("invalid presence level %q", text)
}

// Presence is the text and level shown to observers
type Presence struct {
	Text  string `json:"text"`
	Level Level  `json:"level"`
}

func (p Presence) String() string {
	return fmt.Sprintf("%s (%s)", p.Text, p.Level)
}

// Sink receives presence updates
type Sink interface {
	SetPresence(p Presence) error
}

// LogSink logs presence changes
type LogSink struct {
	mu   sync.Mutex
	last *Presence
}

// NewLogSink creates a LogSink
func NewLogSink() *LogSink {
	return &LogSink{}
}

// SetPresence logs p if it differs from the last one
func (s *LogSink) SetPresence(p Presence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last != nil && *s.last == p {
		fslog.Debugf("Presence unchanged: %s", p)
		return nil
	}
	s.last = &p
	fslog.Infof("Presence: %s", p)
	return nil
}

type multiSink []Sink

// Multi pushes every presence to all sinks and returns the first error
func Multi(sinks ...Sink) Sink {
	ms := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			ms = append(ms, s)
		}
	}
	return ms
}

func (ms multiSink) SetPresence(p Presence) error {
	var first error
	for _, s := range ms {
		if err := s.SetPresence(p); err != nil && first == nil {
			first = err
		}
	}
	return first
}
