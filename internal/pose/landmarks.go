// Package pose provides the body landmark model, joint resolution and frame sources
// consumed by the exercise analyzers.
package pose

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Joint is a body landmark index following the MediaPipe BlazePose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
type Joint int

const (
	Nose Joint = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinky
	RightPinky
	LeftIndex
	RightIndex
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex
	NumLandmarks int = iota
)

var jointNames = [NumLandmarks]string{
	"nose",
	"left_eye_inner", "left_eye", "left_eye_outer",
	"right_eye_inner", "right_eye", "right_eye_outer",
	"left_ear", "right_ear",
	"mouth_left", "mouth_right",
	"left_shoulder", "right_shoulder",
	"left_elbow", "right_elbow",
	"left_wrist", "right_wrist",
	"left_pinky", "right_pinky",
	"left_index", "right_index",
	"left_thumb", "right_thumb",
	"left_hip", "right_hip",
	"left_knee", "right_knee",
	"left_ankle", "right_ankle",
	"left_heel", "right_heel",
	"left_foot_index", "right_foot_index",
}

// ErrUnknownJoint is returned by ParseJoint for names outside the landmark set.
var ErrUnknownJoint = errors.New("unknown joint")

// String returns the snake_case joint name, e.g. "left_knee".
func (j Joint) String() string {
	if j < 0 || int(j) >= NumLandmarks {
		return fmt.Sprintf("joint(%d)", int(j))
	}
	return jointNames[j]
}

// MarshalText encodes the joint by name.
func (j Joint) MarshalText() ([]byte, error) {
	return []byte(j.String()), nil
}

// ParseJoint looks up a joint by its snake_case name.
func ParseJoint(name string) (Joint, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range jointNames {
		if n == name {
			return Joint(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownJoint, name)
}

// Landmark is a single estimated body point. X and Y are normalized image
// coordinates in [0,1]; Z is carried but unused by the 2-D geometry.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Finite reports whether the planar coordinates are usable numbers.
func (l Landmark) Finite() bool {
	return !math.IsNaN(l.X) && !math.IsNaN(l.Y) && !math.IsInf(l.X, 0) && !math.IsInf(l.Y, 0)
}

// Frame is one pose estimate indexed by Joint. An empty frame means no person was detected.
type Frame []Landmark

// Empty reports whether the frame carries no landmarks.
func (f Frame) Empty() bool {
	return len(f) == 0
}

// Hide returns a copy of the frame with the given joints marked invisible.
func (f Frame) Hide(joints ...Joint) Frame {
	out := make(Frame, len(f))
	copy(out, f)
	for _, j := range joints {
		if j >= 0 && int(j) < len(out) {
			out[j].Visibility = 0
		}
	}
	return out
}

// ErrNoLandmarks is returned by ParseFrame for an object without a landmarks key.
var ErrNoLandmarks = errors.New("frame has no landmarks")

type wrappedFrame struct {
	Landmarks *Frame `json:"landmarks"`
}

// ParseFrame decodes a frame from either a bare landmark array or an object
// of the form {"landmarks": [...]}. An empty array is a valid frame with no
// person in view; an object missing the key is rejected.
func ParseFrame(data []byte) (Frame, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, errors.New("empty frame payload")
	}

	if strings.HasPrefix(trimmed, "[") {
		var frame Frame
		if err := json.Unmarshal([]byte(trimmed), &frame); err != nil {
			return nil, fmt.Errorf("failed to decode frame: %w", err)
		}
		return frame, nil
	}

	var wrapped wrappedFrame
	if err := json.Unmarshal([]byte(trimmed), &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	if wrapped.Landmarks == nil {
		return nil, ErrNoLandmarks
	}
	return *wrapped.Landmarks, nil
}
