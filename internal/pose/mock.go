package pose

import (
	"context"
	"io"
	"math"
	"sync"
)

// MockSource is a test implementation of the Source interface.
// It replays a scripted list of frames and then reports io.EOF.
type MockSource struct {
	mu     sync.Mutex
	frames []Frame
	pos    int
	err    error
	closed bool
}

// NewMockSource creates a MockSource that yields the given frames in order.
func NewMockSource(frames ...Frame) *MockSource {
	return &MockSource{frames: frames}
}

// SetFrames replaces the scripted frames and rewinds the source.
func (m *MockSource) SetFrames(frames []Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = frames
	m.pos = 0
}

// SetError sets the error that will be returned by Next.
func (m *MockSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Next returns the next scripted frame.
func (m *MockSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if m.closed || m.pos >= len(m.frames) {
		return nil, io.EOF
	}
	f := m.frames[m.pos]
	m.pos++
	return f, nil
}

// Close marks the source closed.
func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MockSource) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

const fixtureVisibility = 0.99

// blankFrame returns a full frame with every landmark visible at the image centre.
func blankFrame(visibility float64) Frame {
	f := make(Frame, NumLandmarks)
	for i := range f {
		f[i] = Landmark{X: 0.5, Y: 0.5, Visibility: visibility}
	}
	return f
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func place(f Frame, x, y float64, joints ...Joint) {
	for _, j := range joints {
		f[j] = Landmark{X: x, Y: y, Visibility: fixtureVisibility}
	}
}

// SquatFrame returns a side-view frame whose knee angle (hip-knee-ankle) is
// kneeDeg and whose hip angle (shoulder-hip-knee) is hipDeg on both sides.
func SquatFrame(kneeDeg, hipDeg float64) Frame {
	f := blankFrame(fixtureVisibility)

	const seg = 0.2
	hipX, hipY := 0.5, 0.5
	kneeX, kneeY := hipX, hipY+seg

	k := radians(kneeDeg)
	ankleX, ankleY := kneeX+seg*math.Sin(k), kneeY-seg*math.Cos(k)

	h := radians(hipDeg)
	shoulderX, shoulderY := hipX-seg*math.Sin(h), hipY+seg*math.Cos(h)

	place(f, shoulderX, shoulderY, LeftShoulder, RightShoulder)
	place(f, hipX, hipY, LeftHip, RightHip)
	place(f, kneeX, kneeY, LeftKnee, RightKnee)
	place(f, ankleX, ankleY, LeftAnkle, RightAnkle)
	return f
}

// PushupFrame returns a side-view frame whose elbow angle (shoulder-elbow-wrist)
// is elbowDeg and whose body line (shoulder-hip-knee) is bodyDeg on both sides.
func PushupFrame(elbowDeg, bodyDeg float64) Frame {
	f := blankFrame(fixtureVisibility)

	const arm = 0.15
	const torso = 0.25
	const thigh = 0.2

	shoulderX, shoulderY := 0.3, 0.4
	elbowX, elbowY := shoulderX, shoulderY+arm

	e := radians(elbowDeg)
	wristX, wristY := elbowX+arm*math.Sin(e), elbowY-arm*math.Cos(e)

	hipX, hipY := shoulderX+torso, shoulderY

	b := radians(bodyDeg)
	kneeX, kneeY := hipX-thigh*math.Cos(b), hipY+thigh*math.Sin(b)

	place(f, shoulderX, shoulderY, LeftShoulder, RightShoulder)
	place(f, elbowX, elbowY, LeftElbow, RightElbow)
	place(f, wristX, wristY, LeftWrist, RightWrist)
	place(f, hipX, hipY, LeftHip, RightHip)
	place(f, kneeX, kneeY, LeftKnee, RightKnee)
	return f
}

// OccludedFrame returns a full frame in which no landmark clears the default
// visibility threshold.
func OccludedFrame() Frame {
	return blankFrame(0.1)
}
