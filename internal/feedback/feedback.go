// Package feedback turns analyzer results into throttled coaching events and
// delivers them to notifier sinks.
package feedback

import (
	"context"
	"maps"
	"time"

	"github.com/ayusman/gymbro/internal/exercise"
)

// EventType classifies a coaching event.
type EventType string

const (
	// FormFault is raised while a form fault is surfaced. It takes priority
	// over a rep completion seen on the same result.
	FormFault EventType = "form_fault"
	// RepComplete is raised when the repetition counter increases.
	RepComplete EventType = "rep_complete"
)

// Event is the payload handed to sinks.
type Event struct {
	Type      EventType          `json:"event_type"`
	Exercise  exercise.Kind      `json:"exercise"`
	Angles    map[string]float64 `json:"angles"`
	RepCount  int                `json:"rep_count"`
	FormFault string             `json:"form_fault,omitempty"`
	Voice     string             `json:"voice"`
	VoiceID   string             `json:"voice_id,omitempty"`
	Language  string             `json:"language"`
	Time      time.Time          `json:"time"`
}

// Sink receives coaching events.
type Sink interface {
	Notify(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, ev Event) error

// Notify calls f.
func (f SinkFunc) Notify(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Config controls event pacing and the voice attached to each event.
type Config struct {
	// Throttle is the minimum time between two events.
	Throttle time.Duration
	// Timeout bounds a single delivery to all sinks.
	Timeout time.Duration
	// Voice selects an entry of VoiceIDs, e.g. "female".
	Voice string
	// Language is passed through to sinks that synthesize speech.
	Language string
	// VoiceIDs maps voice names to provider-specific voice identifiers.
	VoiceIDs map[string]string
}

// DefaultConfig returns the pacing used by the coaching UI.
func DefaultConfig() Config {
	return Config{
		Throttle: 4 * time.Second,
		Timeout:  15 * time.Second,
		Voice:    "female",
		Language: "english",
		VoiceIDs: map[string]string{
			"male":   "wViXBPUzp2ZZixB1xQuM",
			"female": "cgSgspJ2msm6clMCkdW9",
		},
	}
}

func newEvent(kind EventType, r exercise.Result, cfg Config, now time.Time) Event {
	ev := Event{
		Type:     kind,
		Exercise: r.Exercise,
		Angles:   maps.Clone(r.Angles),
		RepCount: r.Counter,
		Voice:    cfg.Voice,
		VoiceID:  cfg.VoiceIDs[cfg.Voice],
		Language: cfg.Language,
		Time:     now,
	}
	if kind == FormFault {
		ev.FormFault = r.FormFault
	}
	return ev
}
