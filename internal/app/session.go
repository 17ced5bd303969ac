package app

import (
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/gymbro/internal/coordinator"
	"github.com/ayusman/gymbro/internal/exercise"
	"github.com/ayusman/gymbro/internal/feedback"
	"github.com/ayusman/gymbro/internal/pose"
)

// Session is a private analysis engine for a client that streams its own
// frames. It starts from the effective thresholds of the shared engine and
// then evolves independently. A Session is not safe for concurrent use.
type Session struct {
	id         string
	app        *App
	coord      *coordinator.Coordinator
	last       exercise.Result
	dispatcher *feedback.Dispatcher
}

// NewSession creates a Session. When feedback is enabled, coaching events of
// the session go to sinks and to the notifier plugins, paced independently of
// the shared engine.
func (a *App) NewSession(sinks ...feedback.Sink) (*Session, error) {
	coord, err := coordinator.New(a.EngineConfig())
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:    uuid.New().String(),
		app:   a,
		coord: coord,
		last:  coord.Snapshot(),
	}

	if a.dispatcher != nil {
		all := append([]feedback.Sink{feedback.NewPluginSink(a.pluginMgr, a.pluginExec, a.config.PluginConfigs)}, sinks...)
		s.dispatcher = feedback.NewDispatcher(a.dispatcher.Config(), all...)
	}

	if m := a.config.Metrics; m != nil {
		m.CounterSessions.Inc()
		m.GaugeSessions.Inc()
	}
	log.WithField("session", s.id).Debug("session opened")

	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Process analyzes one frame.
func (s *Session) Process(frame pose.Frame) exercise.Result {
	prev := s.last
	start := time.Now()
	r := s.coord.Update(frame)
	took := time.Since(start)
	s.last = r

	m := s.app.config.Metrics
	if m != nil {
		m.ObserveResult(prev, r, took)
	}
	if s.dispatcher != nil {
		if ev, ok := s.dispatcher.Observe(r); ok && m != nil {
			m.CounterFeedback.WithLabelValues(string(ev.Type)).Inc()
		}
	}
	return r
}

// Select switches the session's active exercise.
func (s *Session) Select(kind exercise.Kind) (exercise.Result, error) {
	if err := s.coord.SetActiveExercise(kind); err != nil {
		return exercise.Result{}, err
	}
	s.last = s.coord.Snapshot()
	return s.last, nil
}

// Reset clears the session's active analyzer.
func (s *Session) Reset() exercise.Result {
	s.last = s.coord.Reset()
	return s.last
}

// Active returns the session's active exercise.
func (s *Session) Active() exercise.Kind {
	return s.coord.Active()
}

// Last returns the most recent result.
func (s *Session) Last() exercise.Result {
	return s.last.Clone()
}

// Close waits for pending feedback deliveries and releases the session.
func (s *Session) Close() {
	if s.dispatcher != nil {
		s.dispatcher.Close()
	}
	if m := s.app.config.Metrics; m != nil {
		m.GaugeSessions.Dec()
	}
	log.WithField("session", s.id).Debug("session closed")
}
