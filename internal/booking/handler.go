package booking

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/medsuy/patient-portal/internal/clinicapi"
	"github.com/medsuy/patient-portal/internal/session"
	"github.com/medsuy/patient-portal/pkg/logging"
)

// Handler handles HTTP requests for the booking screen
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new booking handler
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// AvailableResponse is the booking screen payload: the settled view plus the
// filter echo so the client can render toggle state.
type AvailableResponse struct {
	Status  Status     `json:"status"`
	Slots   []SlotView `json:"slots"`
	Error   string     `json:"error,omitempty"`
	Query   string     `json:"query,omitempty"`
	Periods []Period   `json:"periods,omitempty"`
}

// GetAvailable handles GET /portal/appointments/available requests.
// Query params q and period filter the rendered list only; specialty,
// doctor_id, branch_id, from and to narrow the upstream fetch.
func (h *Handler) GetAvailable(w http.ResponseWriter, r *http.Request) {
	patientID, ok := session.PatientIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing patient session", http.StatusUnauthorized)
		return
	}

	upstream := clinicapi.AvailabilityFilter{
		Specialty: r.URL.Query().Get("specialty"),
	}
	if v := r.URL.Query().Get("doctor_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			upstream.DoctorID = id
		}
	}
	if v := r.URL.Query().Get("branch_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			upstream.BranchID = id
		}
	}

	snap := h.service.LoadAvailableSlots(r.Context(), patientID, upstream)

	filter := Filter{Query: r.URL.Query().Get("q"), Periods: PeriodSet{}}
	var echoed []Period
	for _, raw := range r.URL.Query()["period"] {
		if p, ok := ParsePeriod(raw); ok {
			filter.Periods.Toggle(p)
		}
	}
	for _, p := range []Period{PeriodMorning, PeriodAfternoon, PeriodEvening} {
		if filter.Periods.Contains(p) {
			echoed = append(echoed, p)
		}
	}

	resp := AvailableResponse{
		Status:  snap.Status,
		Slots:   filter.Apply(snap.Slots),
		Error:   snap.Error,
		Query:   filter.Query,
		Periods: echoed,
	}
	if snap.Status == StatusErrored {
		// Fail closed: no partial list alongside the error message.
		resp.Slots = nil
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetUpcoming handles GET /portal/appointments/upcoming requests.
func (h *Handler) GetUpcoming(w http.ResponseWriter, r *http.Request) {
	patientID, ok := session.PatientIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing patient session", http.StatusUnauthorized)
		return
	}
	views, err := h.service.LoadUpcoming(r.Context(), patientID)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": views})
}

// ReserveResponse confirms a booking and carries the refreshed slot list.
type ReserveResponse struct {
	Receipt *ReservationReceipt `json:"receipt"`
	Slots   []SlotView          `json:"slots"`
	Status  Status              `json:"status"`
}

// Reserve handles POST /portal/appointments/{slotID}/reserve requests.
func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request) {
	patientID, ok := session.PatientIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing patient session", http.StatusUnauthorized)
		return
	}
	slotID, err := strconv.ParseInt(chi.URLParam(r, "slotID"), 10, 64)
	if err != nil || slotID <= 0 {
		http.Error(w, "invalid slot id", http.StatusBadRequest)
		return
	}

	receipt, snap, err := h.service.ReserveSlot(r.Context(), patientID, slotID)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ReserveResponse{
		Receipt: receipt,
		Slots:   snap.Slots,
		Status:  snap.Status,
	})
}

// Cancel handles POST /portal/appointments/{slotID}/cancel requests.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	patientID, ok := session.PatientIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing patient session", http.StatusUnauthorized)
		return
	}
	slotID, err := strconv.ParseInt(chi.URLParam(r, "slotID"), 10, 64)
	if err != nil || slotID <= 0 {
		http.Error(w, "invalid slot id", http.StatusBadRequest)
		return
	}
	if err := h.service.CancelSlot(r.Context(), patientID, slotID); err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "appointment cancelled"})
}

func (h *Handler) writeUpstreamError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, clinicapi.ErrSlotUnavailable):
		http.Error(w, "this slot is no longer available", http.StatusConflict)
	case errors.Is(err, clinicapi.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		http.Error(w, "the clinic service is unavailable, please try again", http.StatusBadGateway)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
