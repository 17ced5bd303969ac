package main

import (
	"fmt"
	"strings"
)

// Event mirrors the coaching event sent as request params.
type Event struct {
	Type      string             `json:"event_type"`
	Exercise  string             `json:"exercise"`
	Angles    map[string]float64 `json:"angles"`
	RepCount  int                `json:"rep_count"`
	FormFault string             `json:"form_fault"`
	Voice     string             `json:"voice"`
	Language  string             `json:"language"`
}

var exerciseNames = map[string]string{
	"squat":  "squat",
	"pushup": "push-up",
}

// Compose returns a one-sentence cue for ev.
func Compose(ev Event) (string, error) {
	name := exerciseNames[ev.Exercise]
	if name == "" {
		name = "rep"
	}

	switch ev.Type {
	case "form_fault":
		if ev.FormFault == "" {
			return "", fmt.Errorf("form_fault event without a fault message")
		}
		fault := strings.TrimRight(ev.FormFault, "!. ")
		if tip := faultTip(ev); tip != "" {
			return fmt.Sprintf("%s, %s.", fault, tip), nil
		}
		return fault + ".", nil
	case "rep_complete":
		if ev.RepCount <= 0 {
			return fmt.Sprintf("Nice %s, keep going.", name), nil
		}
		if ev.RepCount%10 == 0 {
			return fmt.Sprintf("That's %d %ss, great work!", ev.RepCount, name), nil
		}
		return fmt.Sprintf("Good %s, that's %d.", name, ev.RepCount), nil
	default:
		return "", fmt.Errorf("unsupported event: %q", ev.Type)
	}
}

// faultTip adds a short correction derived from the event angles.
func faultTip(ev Event) string {
	switch ev.Exercise {
	case "squat":
		hip, knee := ev.Angles["hip"], ev.Angles["knee"]
		if hip > 0 && knee > 0 && hip < knee {
			return "chest up and push your hips back"
		}
		return "keep your torso in line with your shins"
	case "pushup":
		return "brace your core and squeeze your glutes"
	}
	return ""
}

var espeakVoices = map[string]string{
	"english": "en",
	"hindi":   "hi",
	"spanish": "es",
	"french":  "fr",
	"german":  "de",
}

// espeakVoice maps a language name to an espeak voice, defaulting to English.
func espeakVoice(language string) string {
	if v, ok := espeakVoices[strings.ToLower(language)]; ok {
		return v
	}
	return "en"
}
