// Package api provides HTTP API handlers for the gymbro analysis service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/gymbro/internal/exercise"
	"github.com/ayusman/gymbro/internal/store"
)

// ProfileHandler handles HTTP requests for threshold profiles.
type ProfileHandler struct {
	store *store.Store
	// onChange is called after every successful write so the engine can pick
	// up the new thresholds.
	onChange func() error
}

// NewProfileHandler registers the profile routes on router.
func NewProfileHandler(router *mux.Router, s *store.Store, onChange func() error) *ProfileHandler {
	h := &ProfileHandler{store: s, onChange: onChange}

	router.HandleFunc("/api/profiles", h.list).Methods(http.MethodGet).Name("list-profiles")
	router.HandleFunc("/api/profiles", h.create).Methods(http.MethodPost).Name("create-profile")
	router.HandleFunc("/api/profiles/{id}", h.get).Methods(http.MethodGet).Name("get-profile")
	router.HandleFunc("/api/profiles/{id}", h.update).Methods(http.MethodPut).Name("update-profile")
	router.HandleFunc("/api/profiles/{id}", h.delete).Methods(http.MethodDelete).Name("delete-profile")

	return h
}

// Request and response types

type createProfileRequest struct {
	Name     string `json:"name"`
	Exercise string `json:"exercise"`
	// Thresholds defaults to the exercise defaults when omitted.
	Thresholds *exercise.Config `json:"thresholds"`
	Active     bool             `json:"active"`
}

type updateProfileRequest struct {
	Name       string           `json:"name"`
	Thresholds *exercise.Config `json:"thresholds"`
	Active     *bool            `json:"active"`
}

type profileResponse struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Exercise   string          `json:"exercise"`
	Thresholds exercise.Config `json:"thresholds"`
	Active     bool            `json:"active"`
	CreatedAt  string          `json:"created_at"`
	UpdatedAt  string          `json:"updated_at"`
}

type listProfilesResponse struct {
	Profiles []profileResponse `json:"profiles"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// toResponse converts a store.Profile to a profileResponse.
func toResponse(p *store.Profile) profileResponse {
	return profileResponse{
		ID:         p.ID,
		Name:       p.Name,
		Exercise:   string(p.Exercise),
		Thresholds: p.Thresholds,
		Active:     p.Active,
		CreatedAt:  p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  p.UpdatedAt.Format(time.RFC3339),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Errorf("failed to encode response: %v", err)
		}
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// changed reloads the engine after a write. The write itself already
// succeeded, so a reload failure is only logged.
func (h *ProfileHandler) changed() {
	if h.onChange == nil {
		return
	}
	if err := h.onChange(); err != nil {
		log.Errorf("failed to reload profiles: %v", err)
	}
}

// list handles GET /api/profiles and returns all profiles.
func (h *ProfileHandler) list(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.Profiles().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list profiles")
		return
	}

	response := listProfilesResponse{
		Profiles: make([]profileResponse, 0, len(profiles)),
	}
	for _, p := range profiles {
		response.Profiles = append(response.Profiles, toResponse(p))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/profiles/{id} and returns a single profile.
func (h *ProfileHandler) get(w http.ResponseWriter, r *http.Request) {
	profile, err := h.store.Profiles().GetByID(mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(profile))
}

// create handles POST /api/profiles and creates a new profile.
func (h *ProfileHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	kind, err := exercise.ParseKind(req.Exercise)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid exercise")
		return
	}

	thresholds, _ := exercise.DefaultConfig(kind)
	if req.Thresholds != nil {
		thresholds = *req.Thresholds
	}
	if err := thresholds.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.store.Profiles().GetByName(req.Name); err == nil {
		writeError(w, http.StatusConflict, "Profile name already in use")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "Failed to create profile")
		return
	}

	profile := &store.Profile{
		ID:         uuid.New().String(),
		Name:       req.Name,
		Exercise:   kind,
		Thresholds: thresholds,
		Active:     req.Active,
	}

	if err := h.store.Profiles().Create(profile); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create profile")
		return
	}
	if profile.Active {
		h.changed()
	}

	writeJSON(w, http.StatusCreated, toResponse(profile))
}

// update handles PUT /api/profiles/{id} and updates an existing profile.
func (h *ProfileHandler) update(w http.ResponseWriter, r *http.Request) {
	profile, err := h.store.Profiles().GetByID(mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	wasActive := profile.Active
	if req.Name != "" && req.Name != profile.Name {
		if _, err := h.store.Profiles().GetByName(req.Name); err == nil {
			writeError(w, http.StatusConflict, "Profile name already in use")
			return
		}
		profile.Name = req.Name
	}
	if req.Thresholds != nil {
		if err := req.Thresholds.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		profile.Thresholds = *req.Thresholds
	}
	if req.Active != nil {
		profile.Active = *req.Active
	}

	if err := h.store.Profiles().Update(profile); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}
	if wasActive || profile.Active {
		h.changed()
	}

	writeJSON(w, http.StatusOK, toResponse(profile))
}

// delete handles DELETE /api/profiles/{id} and removes a profile.
func (h *ProfileHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	profile, err := h.store.Profiles().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete profile")
		return
	}

	if err := h.store.Profiles().Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete profile")
		return
	}
	if profile.Active {
		h.changed()
	}

	w.WriteHeader(http.StatusNoContent)
}
