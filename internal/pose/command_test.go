package pose

import (
	"context"
	"errors"
	"io"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestCommandSource(t *testing.T) {
	requireShell(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	script := `echo '[{"x":0.1,"y":0.2,"z":0,"visibility":0.9}]'
echo
echo 'not json'
echo '{"landmarks":[]}'`
	src := NewCommandSource("sh", "-c", script)
	ctx := context.Background()

	f, err := src.Next(ctx)
	require.NoError(t, err)
	require.Len(t, f, 1)
	assert.Equal(t, 0.2, f[0].Y)

	_, err = src.Next(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")

	f, err = src.Next(ctx)
	require.NoError(t, err)
	assert.True(t, f.Empty())

	_, err = src.Next(ctx)
	assert.True(t, errors.Is(err, io.EOF))

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())

	_, err = src.Next(ctx)
	assert.Error(t, err)
}

func TestCommandSource_CancelAndKill(t *testing.T) {
	requireShell(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	src := NewCommandSource("sleep", "30")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := src.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	closed := make(chan error, 1)
	go func() { closed <- src.Close() }()

	select {
	case err := <-closed:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not kill the process")
	}
}

func TestCommandSource_StartFailure(t *testing.T) {
	src := NewCommandSource("/nonexistent/pose-estimator")
	_, err := src.Next(context.Background())
	assert.Error(t, err)
	assert.NoError(t, src.Close())
}

func TestCommandSource_CloseBeforeStart(t *testing.T) {
	src := NewCommandSource("sh", "-c", "true")
	assert.NoError(t, src.Close())
}
