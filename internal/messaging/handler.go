package messaging

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/medsuy/patient-portal/internal/clinicapi"
	"github.com/medsuy/patient-portal/internal/session"
	"github.com/medsuy/patient-portal/pkg/logging"
)

// Handler handles HTTP requests for the chat screen
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new messaging handler
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// ConversationsResponse is the chat screen payload. Conversations holds the
// filtered list when q is set; the snapshot's selection and messages are
// untouched by filtering.
type ConversationsResponse struct {
	Snapshot
	Query string `json:"query,omitempty"`
}

// GetConversations handles GET /portal/conversations requests. The q query
// param narrows the rendered list by provider name or specialty.
func (h *Handler) GetConversations(w http.ResponseWriter, r *http.Request) {
	patientID, ok := session.PatientIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing patient session", http.StatusUnauthorized)
		return
	}

	snap, err := h.service.LoadConversations(r.Context(), patientID)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}

	query := r.URL.Query().Get("q")
	snap.Conversations = FilterConversations(snap.Conversations, query)
	writeJSON(w, http.StatusOK, ConversationsResponse{Snapshot: snap, Query: query})
}

// Select handles POST /portal/conversations/{conversationID}/select requests.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	patientID, ok := session.PatientIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing patient session", http.StatusUnauthorized)
		return
	}
	conversationID, err := strconv.ParseInt(chi.URLParam(r, "conversationID"), 10, 64)
	if err != nil || conversationID <= 0 {
		http.Error(w, "invalid conversation id", http.StatusBadRequest)
		return
	}

	snap, err := h.service.SelectConversation(r.Context(), patientID, conversationID)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetMessages handles GET /portal/conversations/{conversationID}/messages
// requests. Fetching messages selects the conversation.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	h.Select(w, r)
}

// SendRequest is the body of a send-message request.
type SendRequest struct {
	Text string `json:"text"`
}

// Send handles POST /portal/conversations/{conversationID}/messages requests.
// On failure the client keeps the draft; nothing was appended.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	patientID, ok := session.PatientIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing patient session", http.StatusUnauthorized)
		return
	}
	conversationID, err := strconv.ParseInt(chi.URLParam(r, "conversationID"), 10, 64)
	if err != nil || conversationID <= 0 {
		http.Error(w, "invalid conversation id", http.StatusBadRequest)
		return
	}

	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "message text is required", http.StatusBadRequest)
		return
	}

	snap, err := h.service.SendMessage(r.Context(), patientID, conversationID, req.Text)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (h *Handler) writeUpstreamError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, clinicapi.ErrNotFound):
		http.Error(w, "conversation not found", http.StatusNotFound)
	default:
		http.Error(w, "the clinic service is unavailable, please try again", http.StatusBadGateway)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
