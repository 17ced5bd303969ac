package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ayusman/gymbro/internal/app"
	"github.com/ayusman/gymbro/internal/exercise"
	"github.com/ayusman/gymbro/internal/pose"
)

// maxFrameBytes bounds a single posted landmark frame.
const maxFrameBytes = 1 << 20

// EngineHandler exposes the shared analysis engine over HTTP.
type EngineHandler struct {
	app *app.App
}

// NewEngineHandler registers the exercise, frame and state routes on router.
func NewEngineHandler(router *mux.Router, a *app.App) *EngineHandler {
	h := &EngineHandler{app: a}

	router.HandleFunc("/api/exercise", h.getExercise).Methods(http.MethodGet).Name("get-exercise")
	router.HandleFunc("/api/exercise", h.selectExercise).Methods(http.MethodPut).Name("select-exercise")
	router.HandleFunc("/api/exercise/reset", h.reset).Methods(http.MethodPost).Name("reset-exercise")
	router.HandleFunc("/api/frames", h.processFrame).Methods(http.MethodPost).Name("process-frame")
	router.HandleFunc("/api/state", h.state).Methods(http.MethodGet).Name("state")
	router.HandleFunc("/api/skeleton", h.skeleton).Methods(http.MethodGet).Name("skeleton")
	router.HandleFunc("/api/voice", h.setVoice).Methods(http.MethodPut).Name("set-voice")
	router.HandleFunc("/api/plugins", h.plugins).Methods(http.MethodGet).Name("list-plugins")

	return h
}

type exerciseResponse struct {
	Active    exercise.Kind   `json:"active"`
	Supported []exercise.Kind `json:"supported"`
}

type selectExerciseRequest struct {
	Exercise string `json:"exercise"`
}

type voiceRequest struct {
	Voice    string `json:"voice"`
	Language string `json:"language"`
}

type pluginResponse struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Events      []string `json:"events"`
}

type listPluginsResponse struct {
	Plugins []pluginResponse `json:"plugins"`
}

type skeletonResponse struct {
	Joints      []pose.Joint      `json:"joints"`
	Connections []pose.Connection `json:"connections"`
}

// getExercise handles GET /api/exercise.
func (h *EngineHandler) getExercise(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, exerciseResponse{
		Active:    h.app.Active(),
		Supported: h.app.Supported(),
	})
}

// selectExercise handles PUT /api/exercise and returns the new active result.
func (h *EngineHandler) selectExercise(w http.ResponseWriter, r *http.Request) {
	var req selectExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	kind, err := exercise.ParseKind(req.Exercise)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unknown exercise")
		return
	}

	result, err := h.app.SelectExercise(kind)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to select exercise")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// reset handles POST /api/exercise/reset.
func (h *EngineHandler) reset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Reset())
}

// processFrame handles POST /api/frames: one landmark frame in, one result out.
func (h *EngineHandler) processFrame(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxFrameBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Frame too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to read frame")
		return
	}

	frame, err := pose.ParseFrame(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid frame")
		return
	}

	writeJSON(w, http.StatusOK, h.app.Process(frame))
}

// state handles GET /api/state and returns the last result.
func (h *EngineHandler) state(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Last())
}

// skeleton handles GET /api/skeleton.
func (h *EngineHandler) skeleton(w http.ResponseWriter, r *http.Request) {
	joints := make([]pose.Joint, 0, pose.NumLandmarks)
	for j := pose.Joint(0); int(j) < pose.NumLandmarks; j++ {
		joints = append(joints, j)
	}
	writeJSON(w, http.StatusOK, skeletonResponse{Joints: joints, Connections: pose.Connections})
}

// setVoice handles PUT /api/voice.
func (h *EngineHandler) setVoice(w http.ResponseWriter, r *http.Request) {
	var req voiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Voice == "" && req.Language == "" {
		writeError(w, http.StatusBadRequest, "Voice or language is required")
		return
	}

	if err := h.app.SetVoice(req.Voice, req.Language); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save voice")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// plugins handles GET /api/plugins.
func (h *EngineHandler) plugins(w http.ResponseWriter, r *http.Request) {
	loaded := h.app.PluginManager().List()
	response := listPluginsResponse{Plugins: make([]pluginResponse, 0, len(loaded))}
	for _, p := range loaded {
		response.Plugins = append(response.Plugins, pluginResponse{
			Name:        p.Manifest.Name,
			Version:     p.Manifest.Version,
			Description: p.Manifest.Description,
			Events:      p.Manifest.Events,
		})
	}
	writeJSON(w, http.StatusOK, response)
}
