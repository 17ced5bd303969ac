// Package main provides the voice-coach plugin.
// It turns a coaching event into one short sentence and speaks it through the
// local text-to-speech command (say on macOS, espeak elsewhere).
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
)

// Request represents the input from the plugin executor.
type Request struct {
	Event    string          `json:"event"`
	Exercise string          `json:"exercise"`
	Config   json.RawMessage `json:"config"`
	Params   json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the optional plugin configuration.
type Config struct {
	Command string `json:"command"`
	Mute    bool   `json:"mute"`
}

type result struct {
	Cue    string `json:"cue"`
	Spoken bool   `json:"spoken"`
}

func main() {
	// Read request from stdin
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	var cfg Config
	if len(req.Config) > 0 && string(req.Config) != "null" {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("failed to parse config: %v", err))
			return
		}
	}

	var ev Event
	if err := json.Unmarshal(req.Params, &ev); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to parse params: %v", err))
		return
	}
	if ev.Type == "" {
		ev.Type = req.Event
	}
	if ev.Exercise == "" {
		ev.Exercise = req.Exercise
	}

	cue, err := Compose(ev)
	if err != nil {
		writeErrorResponse(err.Error())
		return
	}

	spoken := false
	if !cfg.Mute {
		spoken, err = speak(cue, ev.Language, cfg.Command)
		if err != nil {
			writeErrorResponse(fmt.Sprintf("speech failed: %v", err))
			return
		}
	}
	if !spoken {
		fmt.Fprintln(os.Stderr, cue)
	}

	data, _ := json.Marshal(result{Cue: cue, Spoken: spoken})
	writeSuccessResponse(data)
}

// speak runs the TTS command. It reports false when no command is available.
func speak(text, language, command string) (bool, error) {
	name, args := ttsCommand(command, language, exec.LookPath)
	if name == "" {
		return false, nil
	}

	cmd := exec.Command(name, append(args, text)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return false, fmt.Errorf("%w: %s", err, string(output))
	}
	return true, nil
}

// ttsCommand picks the speech command and its arguments, text excluded.
func ttsCommand(configured, language string, lookPath func(string) (string, error)) (string, []string) {
	if configured != "" {
		if _, err := lookPath(configured); err == nil {
			return configured, nil
		}
		return "", nil
	}
	if _, err := lookPath("say"); err == nil {
		return "say", nil
	}
	if _, err := lookPath("espeak"); err == nil {
		return "espeak", []string{"-v", espeakVoice(language)}
	}
	return "", nil
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	resp := Response{
		Success: false,
		Error:   errMsg,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse(data json.RawMessage) {
	resp := Response{
		Success: true,
		Data:    data,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
