// Package config loads the TOML service configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ayusman/gymbro/internal/coordinator"
	"github.com/ayusman/gymbro/internal/exercise"
	"github.com/ayusman/gymbro/internal/feedback"
)

type FeedbackConfig struct {
	Enabled  bool          `toml:"enabled"`
	Throttle time.Duration `toml:"throttle"`
	Timeout  time.Duration `toml:"timeout"`
	Voice    string        `toml:"voice"`
	Language string        `toml:"language"`
	// PluginTimeout bounds a single notifier plugin run.
	PluginTimeout time.Duration `toml:"plugin_timeout"`
	// Plugins holds one table per notifier plugin, keyed by manifest name,
	// e.g. [development.feedback.plugins.voice-coach].
	Plugins map[string]map[string]any `toml:"plugins"`
}

type NatsConfig struct {
	Enabled         bool   `toml:"enabled"`
	URL             string `toml:"url"`
	FramesSubject   string `toml:"frames_subject"`
	ResultsSubject  string `toml:"results_subject"`
	FeedbackSubject string `toml:"feedback_subject"`
}

// ReplayConfig selects the frame source of the shared engine: a JSON Lines
// recording at Path, or a live pose estimator started from Command.
type ReplayConfig struct {
	Path    string   `toml:"path"`
	Command []string `toml:"command"`
	FPS     float64  `toml:"fps"`
}

type Config struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	// storage and assets
	DBPath    string `toml:"db_path"`
	StaticDir string `toml:"static_dir"`
	PluginDir string `toml:"plugin_dir"`
	// analysis
	DefaultExercise string          `toml:"default_exercise"`
	Squat           exercise.Config `toml:"squat"`
	Pushup          exercise.Config `toml:"pushup"`

	Feedback FeedbackConfig `toml:"feedback"`
	Nats     NatsConfig     `toml:"nats"`
	Replay   ReplayConfig   `toml:"replay"`
}

// Default returns the configuration used when no file overrides a value.
func Default() Config {
	fb := feedback.DefaultConfig()
	return Config{
		Host:            "127.0.0.1",
		Port:            8080,
		LogLevel:        "info",
		LogToStdout:     true,
		DBPath:          "gymbro.db",
		StaticDir:       "web",
		PluginDir:       "plugins",
		DefaultExercise: string(exercise.Squat),
		Squat:           exercise.DefaultSquatConfig(),
		Pushup:          exercise.DefaultPushupConfig(),
		Feedback: FeedbackConfig{
			Enabled:       true,
			Throttle:      fb.Throttle,
			Timeout:       fb.Timeout,
			Voice:         fb.Voice,
			Language:      fb.Language,
			PluginTimeout: 10 * time.Second,
		},
		Nats: NatsConfig{
			URL:             "nats://127.0.0.1:4222",
			FramesSubject:   "gymbro.frames",
			ResultsSubject:  "gymbro.results",
			FeedbackSubject: "gymbro.feedback",
		},
		Replay: ReplayConfig{FPS: 30},
	}
}

type Toml struct {
	Development Config `toml:"development"`
	Production  Config `toml:"production"`
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return &t.Development, nil
	case "prod", "production":
		return &t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

// Load reads path and returns the validated section for env. Keys absent from
// the file keep their Default values. An empty path yields the defaults.
func Load(path, env string) (*Config, error) {
	t := Toml{Development: Default(), Production: Default()}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		if _, err := toml.DecodeFile(path, &t); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that would otherwise fail later at startup.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if _, err := exercise.ParseKind(c.DefaultExercise); err != nil {
		return fmt.Errorf("default_exercise: %w", err)
	}
	if err := c.Squat.Validate(); err != nil {
		return fmt.Errorf("squat: %w", err)
	}
	if err := c.Pushup.Validate(); err != nil {
		return fmt.Errorf("pushup: %w", err)
	}
	if c.Replay.Path != "" && len(c.Replay.Command) > 0 {
		return errors.New("replay path and command are mutually exclusive")
	}
	if (c.Replay.Path != "" || len(c.Replay.Command) > 0) && c.Replay.FPS <= 0 {
		return errors.New("replay fps must be positive")
	}
	if _, err := c.PluginConfigs(); err != nil {
		return err
	}
	if c.Nats.Enabled && c.Nats.URL == "" {
		return errors.New("nats url is required when nats is enabled")
	}
	return nil
}

// OverrideReplay points the shared engine at a recording, replacing any
// configured path or estimator command.
func (c *Config) OverrideReplay(path string) {
	c.Replay.Path = path
	c.Replay.Command = nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CoordinatorConfig returns the analyzer selection and thresholds.
func (c *Config) CoordinatorConfig() coordinator.Config {
	kind, err := exercise.ParseKind(c.DefaultExercise)
	if err != nil {
		kind = exercise.Squat
	}
	return coordinator.Config{
		Active: kind,
		Squat:  c.Squat,
		Pushup: c.Pushup,
	}
}

// FeedbackSettings returns the dispatcher settings.
func (c *Config) FeedbackSettings() feedback.Config {
	fb := feedback.DefaultConfig()
	fb.Throttle = c.Feedback.Throttle
	fb.Timeout = c.Feedback.Timeout
	if c.Feedback.Voice != "" {
		fb.Voice = c.Feedback.Voice
	}
	if c.Feedback.Language != "" {
		fb.Language = c.Feedback.Language
	}
	return fb
}

// PluginConfigs returns the per-plugin tables encoded as the JSON each plugin
// receives in its request.
func (c *Config) PluginConfigs() (map[string]json.RawMessage, error) {
	if len(c.Feedback.Plugins) == 0 {
		return nil, nil
	}
	configs := make(map[string]json.RawMessage, len(c.Feedback.Plugins))
	for name, table := range c.Feedback.Plugins {
		data, err := json.Marshal(table)
		if err != nil {
			return nil, fmt.Errorf("feedback plugin %s config: %w", name, err)
		}
		configs[name] = data
	}
	return configs, nil
}
