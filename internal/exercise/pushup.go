package exercise

import "github.com/ayusman/gymbro/internal/pose"

// PushupFault is surfaced when the hips sag or pike out of the plank line.
const PushupFault = "Keep your body in a straight line!"

var pushupJoints = []pose.Joint{
	pose.LeftShoulder, pose.RightShoulder,
	pose.LeftElbow, pose.RightElbow,
	pose.LeftWrist, pose.RightWrist,
	pose.LeftHip, pose.RightHip,
	pose.LeftKnee, pose.RightKnee,
}

var pushupKeys = []string{"left_elbow", "right_elbow", "left_body", "right_body", "elbow", "body"}

// PushupAnalyzer counts push-ups from the elbow angle and checks the
// shoulder-hip-knee line for plank alignment.
type PushupAnalyzer struct {
	tracker
}

// NewPushup creates a push-up analyzer.
func NewPushup(cfg Config) (*PushupAnalyzer, error) {
	t, err := newTracker(Pushup, cfg, PushupFault, pushupKeys)
	if err != nil {
		return nil, err
	}
	return &PushupAnalyzer{tracker: t}, nil
}

// Update processes one frame.
func (p *PushupAnalyzer) Update(frame pose.Frame) Result {
	if frame.Empty() {
		return p.skip()
	}

	js := p.resolver.Resolve(frame, pushupJoints...)
	leftElbow := js.Angle(pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist)
	rightElbow := js.Angle(pose.RightShoulder, pose.RightElbow, pose.RightWrist)
	leftBody := js.Angle(pose.LeftShoulder, pose.LeftHip, pose.LeftKnee)
	rightBody := js.Angle(pose.RightShoulder, pose.RightHip, pose.RightKnee)

	elbow := activeAngle(leftElbow, rightElbow)
	if elbow == 0 {
		return p.skip()
	}
	body := activeAngle(leftBody, rightBody)

	p.reps.observe(elbow)
	p.fault.observe(body > 0 && body < p.cfg.FaultThreshold)

	return p.emit(map[string]float64{
		"left_elbow":  leftElbow,
		"right_elbow": rightElbow,
		"left_body":   leftBody,
		"right_body":  rightBody,
		"elbow":       elbow,
		"body":        body,
	})
}
