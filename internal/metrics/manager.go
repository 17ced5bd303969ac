// Package metrics exposes the Prometheus instruments of the analysis pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ayusman/gymbro/internal/exercise"
)

// Frame outcomes recorded by CounterFrames.
const (
	OutcomeAnalyzed = "analyzed"
	OutcomeSkipped  = "skipped"
	OutcomeInvalid  = "invalid"
)

type Manager struct {
	// counters
	CounterFrames   *prometheus.CounterVec
	CounterReps     *prometheus.CounterVec
	CounterFaults   *prometheus.CounterVec
	CounterFeedback *prometheus.CounterVec
	CounterSessions prometheus.Counter

	// gauges
	GaugeActiveExercise *prometheus.GaugeVec
	GaugeSessions       prometheus.Gauge

	// histograms
	HistUpdateDuration prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager("gymbro", "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("gymbro", "test", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterFrames := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "frames",
		Help:      "The total number of pose frames received",
	}, []string{"exercise", "outcome"})
	counterReps := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "reps",
		Help:      "The total number of completed repetitions",
	}, []string{"exercise"})
	counterFaults := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "form_faults",
		Help:      "The total number of surfaced form faults",
	}, []string{"exercise"})
	counterFeedback := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "feedback_events",
		Help:      "The total number of coaching events raised",
	}, []string{"event"})
	counterSessions := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "ws_sessions",
		Help:      "The total number of websocket analysis sessions opened",
	})

	gaugeActive := factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "active_exercise",
		Help:      "Set to 1 for the exercise currently analyzed",
	}, []string{"exercise"})
	gaugeSessions := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "current_ws_sessions",
		Help:      "Current number of open websocket analysis sessions",
	})

	histUpdateDuration := factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets: []float64{
				0.000001, 0.0000025, 0.000005, 0.00001, 0.000025,
				0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.01,
			},
			Name: "update_duration_seconds",
			Help: "Time spent analyzing a single frame in seconds",
		},
	)

	return &Manager{
		CounterFrames:       counterFrames,
		CounterReps:         counterReps,
		CounterFaults:       counterFaults,
		CounterFeedback:     counterFeedback,
		CounterSessions:     counterSessions,
		GaugeActiveExercise: gaugeActive,
		GaugeSessions:       gaugeSessions,
		HistUpdateDuration:  histUpdateDuration,
	}
}

// ObserveResult records one analyzed frame. prev is the result that preceded it
// and is used to detect new repetitions and fault rising edges.
func (m *Manager) ObserveResult(prev, cur exercise.Result, took time.Duration) {
	kind := string(cur.Exercise)
	m.HistUpdateDuration.Observe(took.Seconds())

	if cur.Skipped {
		m.CounterFrames.WithLabelValues(kind, OutcomeSkipped).Inc()
		return
	}
	m.CounterFrames.WithLabelValues(kind, OutcomeAnalyzed).Inc()

	if prev.Exercise != cur.Exercise {
		return
	}
	if cur.Counter > prev.Counter {
		m.CounterReps.WithLabelValues(kind).Add(float64(cur.Counter - prev.Counter))
	}
	if cur.HasFault() && !prev.HasFault() {
		m.CounterFaults.WithLabelValues(kind).Inc()
	}
}

// SetActive marks kind as the analyzed exercise.
func (m *Manager) SetActive(kind exercise.Kind) {
	for _, k := range exercise.Kinds() {
		v := 0.0
		if k == kind {
			v = 1
		}
		m.GaugeActiveExercise.WithLabelValues(string(k)).Set(v)
	}
}
