package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/gymbro/internal/exercise"
)

const sample = `
[development]
port = 9090
log_level = "debug"
default_exercise = "pushup"

[development.squat]
fault_threshold = 10.0
hold_frames = 20

[development.feedback]
throttle = "2s"
voice = "male"

[development.nats]
enabled = true

[production]
port = 80
log_to_stdout = false
logs_path = "/var/log/gymbro"

[production.replay]
path = "session.jsonl"
fps = 15.0
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Development(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample), "dev")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:9090", cfg.Addr())

	// Partial tables merge over defaults.
	assert.Equal(t, 10.0, cfg.Squat.FaultThreshold)
	assert.Equal(t, 20, cfg.Squat.HoldFrames)
	assert.Equal(t, 160.0, cfg.Squat.ExtendedThreshold)
	assert.Equal(t, exercise.DefaultPushupConfig(), cfg.Pushup)

	assert.Equal(t, 2*time.Second, cfg.Feedback.Throttle)
	assert.Equal(t, "male", cfg.Feedback.Voice)
	assert.Equal(t, "english", cfg.Feedback.Language)

	assert.True(t, cfg.Nats.Enabled)
	assert.Equal(t, "gymbro.frames", cfg.Nats.FramesSubject)

	cc := cfg.CoordinatorConfig()
	assert.Equal(t, exercise.Pushup, cc.Active)
	assert.Equal(t, 10.0, cc.Squat.FaultThreshold)

	fb := cfg.FeedbackSettings()
	assert.Equal(t, 2*time.Second, fb.Throttle)
	assert.Equal(t, "male", fb.Voice)
	assert.Equal(t, "wViXBPUzp2ZZixB1xQuM", fb.VoiceIDs[fb.Voice])
}

func TestLoad_Production(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample), "production")
	require.NoError(t, err)

	assert.Equal(t, 80, cfg.Port)
	assert.False(t, cfg.LogToStdout)
	assert.Equal(t, "/var/log/gymbro", cfg.LogsPath)
	assert.Equal(t, "session.jsonl", cfg.Replay.Path)
	assert.Equal(t, 15.0, cfg.Replay.FPS)
	assert.Equal(t, string(exercise.Squat), cfg.DefaultExercise)
	assert.False(t, cfg.Nats.Enabled)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", "dev")
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, &def, cfg)
}

func TestLoad_Command(t *testing.T) {
	path := writeConfig(t, "[development.replay]\ncommand = [\"python3\", \"scripts/pose_service.py\", \"--camera\", \"0\"]\n")
	cfg, err := Load(path, "dev")
	require.NoError(t, err)
	assert.Equal(t, []string{"python3", "scripts/pose_service.py", "--camera", "0"}, cfg.Replay.Command)
	assert.Equal(t, 30.0, cfg.Replay.FPS)
}

func TestLoad_PluginConfigs(t *testing.T) {
	path := writeConfig(t, `
[development.feedback.plugins.voice-coach]
mute = true
command = "espeak"

[development.feedback.plugins.recorder]
`)
	cfg, err := Load(path, "dev")
	require.NoError(t, err)

	configs, err := cfg.PluginConfigs()
	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.JSONEq(t, `{"mute": true, "command": "espeak"}`, string(configs["voice-coach"]))
	assert.JSONEq(t, `{}`, string(configs["recorder"]))
}

func TestPluginConfigs_Empty(t *testing.T) {
	cfg := Default()
	configs, err := cfg.PluginConfigs()
	require.NoError(t, err)
	assert.Nil(t, configs)
}

func TestOverrideReplay(t *testing.T) {
	path := writeConfig(t, "[development.replay]\ncommand = [\"python3\", \"pose.py\"]\n")
	cfg, err := Load(path, "dev")
	require.NoError(t, err)

	cfg.OverrideReplay("session.jsonl")
	assert.Equal(t, "session.jsonl", cfg.Replay.Path)
	assert.Empty(t, cfg.Replay.Command)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Errors(t *testing.T) {
	t.Run("unknown env", func(t *testing.T) {
		_, err := Load("", "staging")
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.toml"), "dev")
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("malformed file", func(t *testing.T) {
		_, err := Load(writeConfig(t, "[development\nport = "), "dev")
		assert.Error(t, err)
	})

	t.Run("inverted thresholds", func(t *testing.T) {
		path := writeConfig(t, "[development.pushup]\ncontracted_threshold = 170.0\n")
		_, err := Load(path, "dev")
		assert.True(t, errors.Is(err, exercise.ErrInvalidConfig))
	})

	t.Run("unknown exercise", func(t *testing.T) {
		path := writeConfig(t, "[development]\ndefault_exercise = \"lunge\"\n")
		_, err := Load(path, "dev")
		assert.True(t, errors.Is(err, exercise.ErrUnknownExercise))
	})

	t.Run("replay path and command", func(t *testing.T) {
		path := writeConfig(t, "[development.replay]\npath = \"x.jsonl\"\ncommand = [\"python3\", \"pose.py\"]\n")
		_, err := Load(path, "dev")
		assert.Error(t, err)
	})

	t.Run("replay without fps", func(t *testing.T) {
		path := writeConfig(t, "[development.replay]\npath = \"x.jsonl\"\nfps = 0.0\n")
		_, err := Load(path, "dev")
		assert.Error(t, err)
	})
}
