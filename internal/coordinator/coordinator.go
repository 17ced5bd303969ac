// Package coordinator routes pose frames to the analyzer of the selected exercise.
//
// A Coordinator is not safe for concurrent use; callers that share one across
// goroutines must serialize access.
package coordinator

import (
	"fmt"

	"github.com/ayusman/gymbro/internal/exercise"
	"github.com/ayusman/gymbro/internal/pose"
)

// Config selects the starting exercise and the thresholds of every analyzer.
type Config struct {
	Active exercise.Kind
	Squat  exercise.Config
	Pushup exercise.Config
}

// DefaultConfig returns a Config that starts on squats with default thresholds.
func DefaultConfig() Config {
	return Config{
		Active: exercise.Squat,
		Squat:  exercise.DefaultSquatConfig(),
		Pushup: exercise.DefaultPushupConfig(),
	}
}

// ConfigFor returns the analyzer thresholds configured for kind.
func (c Config) ConfigFor(kind exercise.Kind) (exercise.Config, error) {
	switch kind {
	case exercise.Squat:
		return c.Squat, nil
	case exercise.Pushup:
		return c.Pushup, nil
	}
	return exercise.Config{}, fmt.Errorf("%w: %q", exercise.ErrUnknownExercise, kind)
}

// Coordinator owns one analyzer per supported exercise and forwards frames to
// the active one only.
type Coordinator struct {
	active    exercise.Kind
	analyzers map[exercise.Kind]exercise.Analyzer
}

// New builds a Coordinator, rejecting unknown exercises and invalid thresholds.
func New(cfg Config) (*Coordinator, error) {
	c := &Coordinator{
		analyzers: make(map[exercise.Kind]exercise.Analyzer),
	}

	for _, kind := range exercise.Kinds() {
		ac, err := cfg.ConfigFor(kind)
		if err != nil {
			return nil, err
		}
		a, err := exercise.New(kind, ac)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s analyzer: %w", kind, err)
		}
		c.analyzers[kind] = a
	}

	if _, ok := c.analyzers[cfg.Active]; !ok {
		return nil, fmt.Errorf("%w: %q", exercise.ErrUnknownExercise, cfg.Active)
	}
	c.active = cfg.Active

	return c, nil
}

// SetActiveExercise switches the exercise that receives frames. The analyzer
// being deactivated is reset so a later switch back starts from zero.
// Selecting the already active exercise does nothing.
func (c *Coordinator) SetActiveExercise(kind exercise.Kind) error {
	if _, ok := c.analyzers[kind]; !ok {
		return fmt.Errorf("%w: %q", exercise.ErrUnknownExercise, kind)
	}
	if kind == c.active {
		return nil
	}
	c.analyzers[c.active].Reset()
	c.active = kind
	return nil
}

// Active returns the selected exercise.
func (c *Coordinator) Active() exercise.Kind {
	return c.active
}

// Update processes a frame with the active analyzer.
func (c *Coordinator) Update(frame pose.Frame) exercise.Result {
	return c.analyzers[c.active].Update(frame)
}

// Reset resets the active analyzer only.
func (c *Coordinator) Reset() exercise.Result {
	return c.analyzers[c.active].Reset()
}

// Snapshot returns the last result of the active analyzer.
func (c *Coordinator) Snapshot() exercise.Result {
	return c.analyzers[c.active].Last()
}

// Supported lists the exercises this coordinator can analyze.
func (c *Coordinator) Supported() []exercise.Kind {
	return exercise.Kinds()
}
