// Package plugin discovers and runs notifier plugins that turn coaching events
// into speech, chat messages or any other side channel.
package plugin

import (
	"encoding/json"
	"slices"
)

// Manifest describes a plugin's metadata and the events it wants to receive.
type Manifest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Executable  string `json:"executable"`

	// Events lists the event types the plugin handles. An empty list means all.
	Events       []string        `json:"events"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Handles reports whether the plugin subscribes to event.
func (m Manifest) Handles(event string) bool {
	return len(m.Events) == 0 || slices.Contains(m.Events, event)
}

// Request is written to the plugin's stdin as a single JSON document.
type Request struct {
	Event    string          `json:"event"`
	Exercise string          `json:"exercise"`
	Config   json.RawMessage `json:"config,omitempty"`
	Params   json.RawMessage `json:"params"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
