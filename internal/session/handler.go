package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/medsuy/patient-portal/internal/clinicapi"
	"github.com/medsuy/patient-portal/pkg/logging"
)

// PatientDirectory answers whether a patient is known to the clinic. The
// portal holds no patient records of its own; identity checks go upstream.
type PatientDirectory interface {
	UpcomingAppointments(ctx context.Context, patientID int64) ([]clinicapi.Appointment, error)
}

// Handler issues and revokes portal sessions.
type Handler struct {
	service   *Service
	directory PatientDirectory
	logger    *logging.Logger
}

// NewHandler creates a session handler.
func NewHandler(service *Service, directory PatientDirectory, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, directory: directory, logger: logger}
}

// LoginRequest identifies the patient opening a portal session.
type LoginRequest struct {
	PatientID int64 `json:"patient_id"`
}

// LoginResponse carries the bearer token for subsequent portal calls.
type LoginResponse struct {
	Token string `json:"token"`
}

// Login handles POST /portal/session requests. The patient must be known to
// the clinic; an unknown id is rejected before any token is minted.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.PatientID <= 0 {
		http.Error(w, "patient_id is required", http.StatusBadRequest)
		return
	}

	if _, err := h.directory.UpcomingAppointments(r.Context(), req.PatientID); err != nil {
		if errors.Is(err, clinicapi.ErrNotFound) {
			http.Error(w, "unknown patient", http.StatusUnauthorized)
			return
		}
		h.logger.Error("patient lookup failed", "patient_id", req.PatientID, "error", err)
		http.Error(w, "the clinic service is unavailable, please try again", http.StatusBadGateway)
		return
	}

	token, err := h.service.Issue(r.Context(), req.PatientID)
	if err != nil {
		h.logger.Error("failed to issue session", "patient_id", req.PatientID, "error", err)
		http.Error(w, "could not create session", http.StatusInternalServerError)
		return
	}

	h.logger.Info("session issued", "patient_id", req.PatientID)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(LoginResponse{Token: token})
}

// Logout handles DELETE /portal/session requests.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer"))
	if token == "" {
		http.Error(w, "missing bearer token", http.StatusBadRequest)
		return
	}
	if err := h.service.Revoke(r.Context(), token); err != nil {
		http.Error(w, "invalid session", http.StatusUnauthorized)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
