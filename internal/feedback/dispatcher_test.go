package feedback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ayusman/gymbro/internal/exercise"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func result(count int, fault string) exercise.Result {
	return exercise.Result{
		Exercise:  exercise.Squat,
		Angles:    map[string]float64{"knee": 150, "hip": 120},
		Stage:     exercise.StageUp,
		Counter:   count,
		FormFault: fault,
	}
}

func newTestDispatcher(sinks ...Sink) (*Dispatcher, *fakeClock) {
	clock := newFakeClock()
	d := NewDispatcher(DefaultConfig(), sinks...)
	d.SetClock(clock.Now)
	return d, clock
}

func TestDispatcher_RepComplete(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &recorder{}
	d, _ := newTestDispatcher(rec)
	defer d.Close()

	_, raised := d.Observe(result(0, ""))
	assert.False(t, raised)

	ev, raised := d.Observe(result(1, ""))
	require.True(t, raised)
	assert.Equal(t, RepComplete, ev.Type)
	assert.Equal(t, 1, ev.RepCount)
	assert.Empty(t, ev.FormFault)
	assert.Equal(t, "female", ev.Voice)
	assert.Equal(t, "cgSgspJ2msm6clMCkdW9", ev.VoiceID)
	assert.Equal(t, "english", ev.Language)

	d.Wait()
	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, ev.RepCount, events[0].RepCount)
}

func TestDispatcher_FaultTakesPriority(t *testing.T) {
	defer goleak.VerifyNone(t)

	d, _ := newTestDispatcher()
	defer d.Close()

	d.Observe(result(0, ""))
	ev, raised := d.Observe(result(1, exercise.SquatFault))
	require.True(t, raised)
	assert.Equal(t, FormFault, ev.Type)
	assert.Equal(t, exercise.SquatFault, ev.FormFault)
}

func TestDispatcher_Throttle(t *testing.T) {
	defer goleak.VerifyNone(t)

	d, clock := newTestDispatcher()
	defer d.Close()

	_, raised := d.Observe(result(0, exercise.SquatFault))
	require.True(t, raised)
	d.Wait()

	clock.Advance(3 * time.Second)
	_, raised = d.Observe(result(0, exercise.SquatFault))
	assert.False(t, raised, "events inside the throttle window are suppressed")

	_, raised = d.Observe(result(1, ""))
	assert.False(t, raised)

	clock.Advance(time.Second)
	_, raised = d.Observe(result(1, ""))
	assert.False(t, raised, "a rep seen while throttled is dropped")

	_, raised = d.Observe(result(1, exercise.SquatFault))
	assert.True(t, raised, "a persisting fault is repeated once the window elapses")
}

func TestDispatcher_InFlightSuppression(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	slow := SinkFunc(func(ctx context.Context, ev Event) error {
		started <- struct{}{}
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	})

	d, clock := newTestDispatcher(slow)
	defer d.Close()

	_, raised := d.Observe(result(0, exercise.SquatFault))
	require.True(t, raised)
	<-started
	assert.True(t, d.Busy())

	clock.Advance(10 * time.Second)
	_, raised = d.Observe(result(0, exercise.SquatFault))
	assert.False(t, raised, "no event while a delivery is in flight")

	close(release)
	d.Wait()
	assert.False(t, d.Busy())

	_, raised = d.Observe(result(0, exercise.SquatFault))
	assert.True(t, raised)
	<-started
}

func TestDispatcher_IgnoresSkippedAndResets(t *testing.T) {
	defer goleak.VerifyNone(t)

	d, clock := newTestDispatcher()
	defer d.Close()

	d.Observe(result(3, ""))

	skipped := result(4, "")
	skipped.Skipped = true
	_, raised := d.Observe(skipped)
	assert.False(t, raised)

	clock.Advance(time.Minute)
	_, raised = d.Observe(result(0, ""))
	assert.False(t, raised, "a counter reset is not a repetition")

	pushup := result(0, "")
	pushup.Exercise = exercise.Pushup
	_, raised = d.Observe(pushup)
	assert.False(t, raised)

	pushup.Counter = 1
	ev, raised := d.Observe(pushup)
	require.True(t, raised)
	assert.Equal(t, exercise.Pushup, ev.Exercise)
}

func TestDispatcher_SinkErrorsDoNotStick(t *testing.T) {
	defer goleak.VerifyNone(t)

	failing := SinkFunc(func(context.Context, Event) error { return errors.New("speaker unplugged") })
	rec := &recorder{}
	d, clock := newTestDispatcher(failing, rec)
	defer d.Close()

	d.Observe(result(0, exercise.SquatFault))
	d.Wait()
	assert.Len(t, rec.Events(), 1, "later sinks still receive the event")
	assert.False(t, d.Busy())

	clock.Advance(5 * time.Second)
	_, raised := d.Observe(result(0, exercise.SquatFault))
	assert.True(t, raised)
}

func TestDispatcher_SetVoice(t *testing.T) {
	defer goleak.VerifyNone(t)

	d, _ := newTestDispatcher()
	defer d.Close()

	d.SetVoice("male", "")
	ev, raised := d.Observe(result(0, exercise.SquatFault))
	require.True(t, raised)
	assert.Equal(t, "male", ev.Voice)
	assert.Equal(t, "wViXBPUzp2ZZixB1xQuM", ev.VoiceID)
	assert.Equal(t, "english", ev.Language)
}

func TestDispatcher_CloseCancelsDelivery(t *testing.T) {
	defer goleak.VerifyNone(t)

	blocked := SinkFunc(func(ctx context.Context, ev Event) error {
		<-ctx.Done()
		return ctx.Err()
	})
	d, _ := newTestDispatcher(blocked)

	_, raised := d.Observe(result(0, exercise.SquatFault))
	require.True(t, raised)
	d.Close()
	assert.False(t, d.Busy())
}

func TestEvent_AnglesAreCopied(t *testing.T) {
	r := result(1, "")
	ev := newEvent(RepComplete, r, DefaultConfig(), time.Now())
	r.Angles["knee"] = 0
	assert.Equal(t, 150.0, ev.Angles["knee"])
}
