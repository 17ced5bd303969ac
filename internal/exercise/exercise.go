// Package exercise implements per-exercise form analyzers: joint angle
// extraction, debounced repetition counting and sustained form-fault detection.
//
// Analyzers are not safe for concurrent use. Frames must be delivered one at a
// time in temporal order.
package exercise

import (
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/ayusman/gymbro/internal/pose"
)

var (
	// ErrUnknownExercise is returned when an exercise kind is not supported.
	ErrUnknownExercise = errors.New("unknown exercise")

	// ErrInvalidConfig is returned when analyzer thresholds are inconsistent.
	ErrInvalidConfig = errors.New("invalid analyzer config")
)

// Kind identifies a supported exercise.
type Kind string

const (
	Squat  Kind = "squat"
	Pushup Kind = "pushup"
)

// Kinds lists every supported exercise in a stable order.
func Kinds() []Kind {
	return []Kind{Squat, Pushup}
}

// ParseKind converts a user supplied name into a Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "squat", "squats":
		return Squat, nil
	case "pushup", "pushups", "push-up", "push-ups":
		return Pushup, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownExercise, name)
}

// Stage is the phase of the repetition cycle.
type Stage string

const (
	// StageUp is the extended position. Every analyzer starts here.
	StageUp Stage = "up"
	// StageDown is the contracted position.
	StageDown Stage = "down"
)

// Result is the per-frame output of an analyzer.
type Result struct {
	Exercise  Kind               `json:"exercise"`
	Angles    map[string]float64 `json:"angles"`
	Stage     Stage              `json:"stage"`
	Counter   int                `json:"counter"`
	FormFault string             `json:"form_fault"`
	Skipped   bool               `json:"skipped"`
}

// HasFault reports whether a form fault is currently surfaced.
func (r Result) HasFault() bool {
	return r.FormFault != ""
}

// Clone returns a copy of r that shares no memory with it.
func (r Result) Clone() Result {
	r.Angles = maps.Clone(r.Angles)
	return r
}

// Analyzer consumes pose frames for a single exercise.
type Analyzer interface {
	// Kind returns the exercise this analyzer handles.
	Kind() Kind

	// Update processes one frame. Frames without a usable primary angle leave
	// the state untouched and return the last result with Skipped set.
	Update(frame pose.Frame) Result

	// Reset returns the analyzer to its initial state and reports it.
	Reset() Result

	// Last returns the most recent result without processing a frame.
	Last() Result
}

// New creates the analyzer for kind using cfg.
func New(kind Kind, cfg Config) (Analyzer, error) {
	switch kind {
	case Squat:
		return NewSquat(cfg)
	case Pushup:
		return NewPushup(cfg)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownExercise, kind)
}
