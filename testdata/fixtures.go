// Package testdata provides recorded landmark sessions for end-to-end tests.
//
// squat_session.jsonl holds three squats with short holds followed by a
// forward lean (hip 100, knee 130). pushup_session.jsonl holds three push-ups
// followed by a sagging plank (body line 140).
package testdata

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"

	"github.com/ayusman/gymbro/internal/pose"
)

//go:embed recordings/*
var recordingsFS embed.FS

// Recording names.
const (
	SquatSession  = "squat_session.jsonl"
	PushupSession = "pushup_session.jsonl"
)

// OpenRecording returns a replay source over the named recording.
func OpenRecording(name string) (*pose.ReplaySource, error) {
	f, err := recordingsFS.Open("recordings/" + name)
	if err != nil {
		return nil, fmt.Errorf("open recording %s: %w", name, err)
	}
	return pose.NewReplaySource(f), nil
}

// LoadRecording reads every frame of the named recording.
func LoadRecording(name string) ([]pose.Frame, error) {
	src, err := OpenRecording(name)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var frames []pose.Frame
	for {
		frame, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return nil, fmt.Errorf("load recording %s: %w", name, err)
		}
		frames = append(frames, frame)
	}
}

// RecordingBytes returns the raw JSON Lines content of the named recording.
func RecordingBytes(name string) ([]byte, error) {
	return recordingsFS.ReadFile("recordings/" + name)
}
