package exercise

import "fmt"

// Config holds the tunable thresholds of an analyzer. All angles are in degrees.
type Config struct {
	// ExtendedThreshold is the angle above which the joint counts as extended.
	ExtendedThreshold float64 `json:"extended_threshold" toml:"extended_threshold"`

	// ContractedThreshold is the angle below which the joint counts as contracted.
	// Must be lower than ExtendedThreshold.
	ContractedThreshold float64 `json:"contracted_threshold" toml:"contracted_threshold"`

	// HoldFrames is how many consecutive frames past a threshold are needed
	// before a stage transition commits. The transition fires on frame HoldFrames+1.
	HoldFrames int `json:"hold_frames" toml:"hold_frames"`

	// FaultThreshold is the exercise-specific fault limit: the maximum hip/knee
	// deviation for squats, the minimum body line angle for push-ups.
	FaultThreshold float64 `json:"fault_threshold" toml:"fault_threshold"`

	// FaultHoldFrames is how many consecutive faulty frames must be seen before
	// the fault is surfaced.
	FaultHoldFrames int `json:"fault_hold_frames" toml:"fault_hold_frames"`

	// VisibilityThreshold is the landmark confidence that must be exceeded.
	VisibilityThreshold float64 `json:"visibility_threshold" toml:"visibility_threshold"`
}

// DefaultSquatConfig returns the squat thresholds.
func DefaultSquatConfig() Config {
	return Config{
		ExtendedThreshold:   160,
		ContractedThreshold: 100,
		HoldFrames:          50,
		FaultThreshold:      20,
		FaultHoldFrames:     10,
		VisibilityThreshold: 0.5,
	}
}

// DefaultPushupConfig returns the push-up thresholds.
func DefaultPushupConfig() Config {
	return Config{
		ExtendedThreshold:   160,
		ContractedThreshold: 90,
		HoldFrames:          3,
		FaultThreshold:      150,
		FaultHoldFrames:     3,
		VisibilityThreshold: 0.5,
	}
}

// DefaultConfig returns the default thresholds for kind.
func DefaultConfig(kind Kind) (Config, error) {
	switch kind {
	case Squat:
		return DefaultSquatConfig(), nil
	case Pushup:
		return DefaultPushupConfig(), nil
	}
	return Config{}, fmt.Errorf("%w: %q", ErrUnknownExercise, kind)
}

// Validate checks that the thresholds describe a usable hysteresis band.
func (c Config) Validate() error {
	if c.ExtendedThreshold <= 0 || c.ExtendedThreshold > 180 {
		return fmt.Errorf("%w: extended threshold %.1f outside (0, 180]", ErrInvalidConfig, c.ExtendedThreshold)
	}
	if c.ContractedThreshold <= 0 || c.ContractedThreshold >= c.ExtendedThreshold {
		return fmt.Errorf("%w: contracted threshold %.1f must be in (0, %.1f)",
			ErrInvalidConfig, c.ContractedThreshold, c.ExtendedThreshold)
	}
	if c.HoldFrames < 0 {
		return fmt.Errorf("%w: hold frames %d is negative", ErrInvalidConfig, c.HoldFrames)
	}
	if c.FaultThreshold <= 0 || c.FaultThreshold > 180 {
		return fmt.Errorf("%w: fault threshold %.1f outside (0, 180]", ErrInvalidConfig, c.FaultThreshold)
	}
	if c.FaultHoldFrames < 0 {
		return fmt.Errorf("%w: fault hold frames %d is negative", ErrInvalidConfig, c.FaultHoldFrames)
	}
	if c.VisibilityThreshold < 0 || c.VisibilityThreshold >= 1 {
		return fmt.Errorf("%w: visibility threshold %.2f outside [0, 1)", ErrInvalidConfig, c.VisibilityThreshold)
	}
	return nil
}
