package exercise

import (
	"math"

	"github.com/ayusman/gymbro/internal/pose"
)

// SquatFault is surfaced when the torso leans too far relative to the knees.
const SquatFault = "Keep your back straight!"

var squatJoints = []pose.Joint{
	pose.LeftShoulder, pose.RightShoulder,
	pose.LeftHip, pose.RightHip,
	pose.LeftKnee, pose.RightKnee,
	pose.LeftAnkle, pose.RightAnkle,
}

var squatKeys = []string{"left_hip", "right_hip", "left_knee", "right_knee", "hip", "knee"}

// SquatAnalyzer counts squats from the knee angle and flags excessive forward
// lean from the hip/knee angle deviation.
type SquatAnalyzer struct {
	tracker
}

// NewSquat creates a squat analyzer.
func NewSquat(cfg Config) (*SquatAnalyzer, error) {
	t, err := newTracker(Squat, cfg, SquatFault, squatKeys)
	if err != nil {
		return nil, err
	}
	return &SquatAnalyzer{tracker: t}, nil
}

// Update processes one frame.
func (s *SquatAnalyzer) Update(frame pose.Frame) Result {
	if frame.Empty() {
		return s.skip()
	}

	js := s.resolver.Resolve(frame, squatJoints...)
	leftHip := js.Angle(pose.LeftShoulder, pose.LeftHip, pose.LeftKnee)
	rightHip := js.Angle(pose.RightShoulder, pose.RightHip, pose.RightKnee)
	leftKnee := js.Angle(pose.LeftHip, pose.LeftKnee, pose.LeftAnkle)
	rightKnee := js.Angle(pose.RightHip, pose.RightKnee, pose.RightAnkle)

	knee := activeAngle(leftKnee, rightKnee)
	if knee == 0 {
		return s.skip()
	}
	hip := activeAngle(leftHip, rightHip)

	s.reps.observe(knee)
	s.fault.observe(knee < s.cfg.ExtendedThreshold && hip > 0 && math.Abs(hip-knee) > s.cfg.FaultThreshold)

	return s.emit(map[string]float64{
		"left_hip":   leftHip,
		"right_hip":  rightHip,
		"left_knee":  leftKnee,
		"right_knee": rightKnee,
		"hip":        hip,
		"knee":       knee,
	})
}
