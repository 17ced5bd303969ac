package feedback

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/gymbro/internal/exercise"
)

// Dispatcher watches a stream of results and raises at most one event per
// throttle window. While a delivery is in flight no new event is raised.
type Dispatcher struct {
	mu        sync.Mutex
	cfg       Config
	sinks     []Sink
	now       func() time.Time
	inFlight  bool
	lastEvent time.Time
	prevCount int
	prevKind  exercise.Kind

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher delivering to sinks.
func NewDispatcher(cfg Config, sinks ...Sink) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		cfg:    cfg,
		sinks:  sinks,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetClock replaces the time source. Intended for tests.
func (d *Dispatcher) SetClock(now func() time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = now
}

// AddSink registers an additional sink.
func (d *Dispatcher) AddSink(s Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks = append(d.sinks, s)
}

// SetVoice changes the voice and language attached to future events.
func (d *Dispatcher) SetVoice(voice, language string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if voice != "" {
		d.cfg.Voice = voice
	}
	if language != "" {
		d.cfg.Language = language
	}
}

// Config returns the current pacing and voice settings.
func (d *Dispatcher) Config() Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// Observe inspects one result and, when an event is due, hands it to the sinks
// in the background. It returns the raised event, if any.
//
// A repetition completed while throttled or in flight is dropped, not deferred.
func (d *Dispatcher) Observe(r exercise.Result) (Event, bool) {
	if r.Skipped {
		return Event{}, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if r.Exercise != d.prevKind || r.Counter < d.prevCount {
		d.prevKind = r.Exercise
		d.prevCount = r.Counter
	}
	repDone := r.Counter > d.prevCount
	d.prevCount = r.Counter

	now := d.now()
	if d.inFlight || (!d.lastEvent.IsZero() && now.Sub(d.lastEvent) < d.cfg.Throttle) {
		return Event{}, false
	}

	var kind EventType
	switch {
	case r.HasFault():
		kind = FormFault
	case repDone:
		kind = RepComplete
	default:
		return Event{}, false
	}

	ev := newEvent(kind, r, d.cfg, now)
	d.lastEvent = now
	d.inFlight = true

	sinks := append([]Sink(nil), d.sinks...)
	d.wg.Add(1)
	go d.deliver(ev, sinks)

	return ev, true
}

func (d *Dispatcher) deliver(ev Event, sinks []Sink) {
	defer d.wg.Done()
	defer func() {
		d.mu.Lock()
		d.inFlight = false
		d.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(d.ctx, d.cfg.Timeout)
	defer cancel()

	for _, s := range sinks {
		if err := s.Notify(ctx, ev); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.WithFields(log.Fields{
				"event":    ev.Type,
				"exercise": ev.Exercise,
			}).Warnf("feedback delivery failed: %v", err)
		}
	}
}

// Busy reports whether a delivery is in progress.
func (d *Dispatcher) Busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inFlight
}

// Wait blocks until all in-flight deliveries have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close cancels in-flight deliveries and waits for them to return.
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()
}
