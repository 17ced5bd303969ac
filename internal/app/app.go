// Package app wires the analysis engine to storage, feedback, metrics and frame sources.
package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/gymbro/internal/coordinator"
	"github.com/ayusman/gymbro/internal/exercise"
	"github.com/ayusman/gymbro/internal/feedback"
	"github.com/ayusman/gymbro/internal/metrics"
	"github.com/ayusman/gymbro/internal/plugin"
	"github.com/ayusman/gymbro/internal/pose"
	"github.com/ayusman/gymbro/internal/store"
)

// DefaultPluginTimeout bounds a notifier plugin run when Config leaves it unset.
const DefaultPluginTimeout = 10 * time.Second

// Config holds configuration options for the application.
type Config struct {
	// Store persists profiles and the exercise selection. Optional.
	Store *store.Store
	// Engine is the baseline analyzer configuration. Active profiles from the
	// store override the per-exercise thresholds.
	Engine        coordinator.Config
	PluginDir     string
	PluginTimeout time.Duration
	// PluginConfigs is sent to each notifier plugin by name.
	PluginConfigs map[string]json.RawMessage
	// Feedback enables the coaching dispatcher when non-nil.
	Feedback *feedback.Config
	// Metrics is optional.
	Metrics *metrics.Manager
}

// ResultCallback is invoked after every processed frame.
type ResultCallback func(exercise.Result)

// App is the shared analysis engine. Unlike the coordinator it wraps, App is
// safe for concurrent use: HTTP handlers, the NATS bridge and the replay
// pipeline all feed the same instance.
type App struct {
	config     Config
	mu         sync.RWMutex
	engine     coordinator.Config
	coord      *coordinator.Coordinator
	last       exercise.Result
	callbacks  []ResultCallback
	dispatcher *feedback.Dispatcher
	pluginMgr  *plugin.Manager
	pluginExec *plugin.Executor

	runMu  sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates an App. It fails when the engine configuration is invalid.
func New(config Config) (*App, error) {
	coord, err := coordinator.New(config.Engine)
	if err != nil {
		return nil, err
	}

	timeout := config.PluginTimeout
	if timeout <= 0 {
		timeout = DefaultPluginTimeout
	}

	a := &App{
		config:     config,
		engine:     config.Engine,
		coord:      coord,
		last:       coord.Snapshot(),
		pluginMgr:  plugin.NewManager(config.PluginDir),
		pluginExec: plugin.NewExecutor(timeout),
	}

	if config.Feedback != nil {
		a.dispatcher = feedback.NewDispatcher(*config.Feedback,
			feedback.NewPluginSink(a.pluginMgr, a.pluginExec, config.PluginConfigs))
	}

	if err := a.restoreSettings(); err != nil {
		return nil, err
	}
	if a.config.Metrics != nil {
		a.config.Metrics.SetActive(a.coord.Active())
	}

	return a, nil
}

// restoreSettings applies the persisted exercise and voice selection.
func (a *App) restoreSettings() error {
	if a.config.Store == nil {
		return nil
	}
	settings := a.config.Store.Settings()

	name, err := settings.GetOr(store.SettingActiveExercise, "")
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}
	if name != "" {
		kind, err := exercise.ParseKind(name)
		if err != nil {
			log.Warnf("ignoring stored exercise selection: %v", err)
		} else if err := a.coord.SetActiveExercise(kind); err != nil {
			return err
		}
		a.last = a.coord.Snapshot()
	}

	if a.dispatcher != nil {
		voice, err := settings.GetOr(store.SettingVoice, "")
		if err != nil {
			return fmt.Errorf("failed to read voice setting: %w", err)
		}
		language, err := settings.GetOr(store.SettingLanguage, "")
		if err != nil {
			return fmt.Errorf("failed to read language setting: %w", err)
		}
		a.dispatcher.SetVoice(voice, language)
	}
	return nil
}

// LoadProfiles applies the active store profile of each exercise on top of the
// baseline thresholds and rebuilds the engine. Counts restart from zero; the
// exercise selection is kept.
func (a *App) LoadProfiles() error {
	if a.config.Store == nil {
		return nil
	}

	engine := a.config.Engine
	loaded := 0
	for _, kind := range exercise.Kinds() {
		p, err := a.config.Store.Profiles().Active(kind)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to load %s profile: %w", kind, err)
		}

		switch kind {
		case exercise.Squat:
			engine.Squat = p.Thresholds
		case exercise.Pushup:
			engine.Pushup = p.Thresholds
		}
		loaded++
		log.WithFields(log.Fields{"exercise": kind, "profile": p.Name}).Info("profile applied")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	engine.Active = a.coord.Active()
	coord, err := coordinator.New(engine)
	if err != nil {
		return fmt.Errorf("active profile rejected: %w", err)
	}
	a.engine = engine
	a.coord = coord
	a.last = coord.Snapshot()

	log.Infof("Loaded %d profiles from database", loaded)
	return nil
}

// Process analyzes one frame on the shared engine.
func (a *App) Process(frame pose.Frame) exercise.Result {
	a.mu.Lock()
	prev := a.last
	start := time.Now()
	r := a.coord.Update(frame)
	took := time.Since(start)
	a.last = r
	callbacks := a.callbacks
	a.mu.Unlock()

	a.observe(prev, r, took)
	for _, cb := range callbacks {
		cb(r.Clone())
	}
	return r
}

func (a *App) observe(prev, r exercise.Result, took time.Duration) {
	if a.config.Metrics != nil {
		a.config.Metrics.ObserveResult(prev, r, took)
	}
	if r.Counter > prev.Counter && r.Exercise == prev.Exercise {
		log.WithFields(log.Fields{"exercise": r.Exercise, "count": r.Counter}).Info("rep completed")
	}
	if r.HasFault() && !prev.HasFault() {
		log.WithFields(log.Fields{"exercise": r.Exercise, "fault": r.FormFault}).Debug("form fault")
	}

	if a.dispatcher == nil {
		return
	}
	if ev, ok := a.dispatcher.Observe(r); ok && a.config.Metrics != nil {
		a.config.Metrics.CounterFeedback.WithLabelValues(string(ev.Type)).Inc()
	}
}

// SelectExercise switches the active exercise and persists the choice.
func (a *App) SelectExercise(kind exercise.Kind) (exercise.Result, error) {
	a.mu.Lock()
	if err := a.coord.SetActiveExercise(kind); err != nil {
		a.mu.Unlock()
		return exercise.Result{}, err
	}
	a.last = a.coord.Snapshot()
	r := a.last
	a.mu.Unlock()

	if a.config.Metrics != nil {
		a.config.Metrics.SetActive(kind)
	}
	if a.config.Store != nil {
		if err := a.config.Store.Settings().Set(store.SettingActiveExercise, string(kind)); err != nil {
			return r, fmt.Errorf("failed to persist exercise: %w", err)
		}
	}

	log.WithField("exercise", kind).Info("exercise selected")
	return r, nil
}

// Reset restarts the active exercise from zero.
func (a *App) Reset() exercise.Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last = a.coord.Reset()
	return a.last
}

// Active returns the selected exercise.
func (a *App) Active() exercise.Kind {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.coord.Active()
}

// Supported lists the exercises the engine can analyze.
func (a *App) Supported() []exercise.Kind {
	return exercise.Kinds()
}

// Last returns the most recent result of the shared engine.
func (a *App) Last() exercise.Result {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last.Clone()
}

// EngineConfig returns the effective analyzer configuration.
func (a *App) EngineConfig() coordinator.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	cfg := a.engine
	cfg.Active = a.coord.Active()
	return cfg
}

// OnResult registers a callback invoked after every processed frame.
func (a *App) OnResult(cb ResultCallback) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.callbacks = append(a.callbacks, cb)
}

// AddFeedbackSink attaches an extra destination for coaching events. It is a
// no-op when feedback is disabled.
func (a *App) AddFeedbackSink(s feedback.Sink) {
	if a.dispatcher != nil {
		a.dispatcher.AddSink(s)
	}
}

// SetVoice changes the coaching voice and language and persists them.
func (a *App) SetVoice(voice, language string) error {
	if a.dispatcher != nil {
		a.dispatcher.SetVoice(voice, language)
	}
	if a.config.Store == nil {
		return nil
	}
	settings := a.config.Store.Settings()
	if voice != "" {
		if err := settings.Set(store.SettingVoice, voice); err != nil {
			return err
		}
	}
	if language != "" {
		if err := settings.Set(store.SettingLanguage, language); err != nil {
			return err
		}
	}
	return nil
}

// Dispatcher returns the feedback dispatcher, or nil when feedback is disabled.
func (a *App) Dispatcher() *feedback.Dispatcher {
	return a.dispatcher
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Close stops the pipeline and waits for pending feedback deliveries.
func (a *App) Close() {
	a.Stop()
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
}
