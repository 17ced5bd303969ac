package pose

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaySource(t *testing.T) {
	input := strings.Join([]string{
		`[{"x":0.1,"y":0.2,"z":0,"visibility":0.9}]`,
		``,
		`{"landmarks":[{"x":0.3,"y":0.4,"z":0,"visibility":0.8}]}`,
		`not json`,
		`[]`,
	}, "\n")

	src := NewReplaySource(strings.NewReader(input))
	defer src.Close()
	ctx := context.Background()

	f, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.1, f[0].X)

	f, err = src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.3, f[0].X)

	_, err = src.Next(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 4")

	f, err = src.Next(ctx)
	require.NoError(t, err, "a malformed line must not stop the replay")
	assert.True(t, f.Empty())

	_, err = src.Next(ctx)
	assert.Equal(t, io.EOF, err)
}

func TestReplaySource_Cancelled(t *testing.T) {
	src := NewReplaySource(strings.NewReader("[]\n"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.Next(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestReplaySource_ClosesReader(t *testing.T) {
	rc := &closeRecorder{Reader: strings.NewReader("")}
	src := NewReplaySource(rc)
	require.NoError(t, src.Close())
	assert.True(t, rc.closed)
}

func TestMockSource(t *testing.T) {
	ctx := context.Background()
	src := NewMockSource(SquatFrame(170, 170), OccludedFrame())

	_, err := src.Next(ctx)
	require.NoError(t, err)
	_, err = src.Next(ctx)
	require.NoError(t, err)
	_, err = src.Next(ctx)
	assert.Equal(t, io.EOF, err)

	src.SetFrames([]Frame{PushupFrame(170, 175)})
	_, err = src.Next(ctx)
	require.NoError(t, err)

	want := errors.New("camera unplugged")
	src.SetError(want)
	_, err = src.Next(ctx)
	assert.Equal(t, want, err)

	require.NoError(t, src.Close())
	assert.True(t, src.Closed())
}
