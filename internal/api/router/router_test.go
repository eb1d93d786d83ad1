package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/medsuy/patient-portal/internal/booking"
	"github.com/medsuy/patient-portal/internal/clinicapi"
	"github.com/medsuy/patient-portal/internal/messaging"
	"github.com/medsuy/patient-portal/pkg/logging"
)

type stubVerifier struct {
	patientID int64
}

func (s *stubVerifier) Verify(_ context.Context, token string) (int64, error) {
	if token != "good-token" {
		return 0, errors.New("invalid token")
	}
	return s.patientID, nil
}

type stubClinic struct{}

func (stubClinic) AvailableAppointments(_ context.Context, _ clinicapi.AvailabilityFilter) ([]clinicapi.Appointment, error) {
	return []clinicapi.Appointment{{
		ID:        1,
		Doctor:    "Dr. Lee",
		Specialty: "Cardiology",
		Branch:    "Centro",
		DateTime:  time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC),
	}}, nil
}

func (stubClinic) UpcomingAppointments(_ context.Context, _ int64) ([]clinicapi.Appointment, error) {
	return nil, nil
}

func (stubClinic) ReserveAppointment(_ context.Context, _, appointmentID int64) (*clinicapi.ReservationConfirmation, error) {
	return &clinicapi.ReservationConfirmation{AppointmentID: appointmentID}, nil
}

func (stubClinic) CancelAppointment(_ context.Context, _, _ int64) error { return nil }

func (stubClinic) PatientConversations(_ context.Context, _ int64) ([]clinicapi.Conversation, error) {
	return []clinicapi.Conversation{{ID: 1, Doctor: "Dr. Lee", Specialty: "Cardiology"}}, nil
}

func (stubClinic) ConversationMessages(_ context.Context, _, _ int64) ([]clinicapi.Message, error) {
	return nil, nil
}

func (stubClinic) SendMessage(_ context.Context, _, _ int64, text string) (*clinicapi.Message, error) {
	return &clinicapi.Message{ID: 1, Sender: clinicapi.SenderPatient, Text: text, Time: time.Now()}, nil
}

func newTestRouter() http.Handler {
	logger := logging.New("error")
	clinic := stubClinic{}

	bookingSvc := booking.NewService(clinic, booking.NewProjector("UTC"), nil, logger)
	messagingSvc := messaging.NewService(clinic, messaging.NewProjector("UTC"), nil, logger)

	return New(&Config{
		Logger:           logger,
		SessionVerifier:  &stubVerifier{patientID: 3},
		BookingHandler:   booking.NewHandler(bookingSvc, logger),
		MessagingHandler: messaging.NewHandler(messagingSvc, logger),
		ChatStream:       messaging.NewStream(messagingSvc, logger),
		MetricsHandler:   http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }),
	})
}

func TestHealthEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestMetricsEndpointIsPublic(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestPortalRoutesRequireSession(t *testing.T) {
	router := newTestRouter()
	paths := []string{
		"/portal/appointments/available",
		"/portal/appointments/upcoming",
		"/portal/conversations",
	}
	for _, path := range paths {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, rec.Code)
		}
	}
}

func TestPortalRoutesAcceptBearerToken(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("GET", "/portal/appointments/available", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp booking.AvailableResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Slots) != 1 || resp.Slots[0].ProviderName != "Dr. Lee" {
		t.Fatalf("unexpected payload: %#v", resp)
	}
}

func TestInvalidTokenIsRejected(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("GET", "/portal/conversations", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
