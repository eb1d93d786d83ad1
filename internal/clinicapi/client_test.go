package clinicapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, server *httptest.Server, cfg Config) *Client {
	t.Helper()
	cfg.BaseURL = server.URL
	cfg.APIKey = "test-key"
	if cfg.Backoff == 0 {
		cfg.Backoff = time.Millisecond
	}
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientDefaultsAndValidation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected base URL validation error")
	}
	client, err := New(Config{BaseURL: "http://clinic.local/"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.baseURL != "http://clinic.local" {
		t.Fatalf("expected trailing slash trimmed, got %s", client.baseURL)
	}
	if client.httpClient == nil || client.httpClient.Timeout != 10*time.Second {
		t.Fatal("expected default timeout")
	}
	if client.maxRetries != 0 {
		t.Fatalf("expected retries to default to 0, got %d", client.maxRetries)
	}
}

func TestAvailableAppointments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/patient/appointments/available" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("especialidad"); got != "cardiology" {
			t.Fatalf("unexpected specialty filter %q", got)
		}
		if got := r.Header.Get("Authorization"); !strings.HasPrefix(got, "Bearer ") {
			t.Fatal("missing auth header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":1,"doctor":"Dr. Lee","specialty":"cardiology","branch":"Centro","room":"Sala 2","datetime":"2024-05-01T14:00:00Z"},
			{"id":2,"doctor":"Dr. Gomez","specialty":"cardiology","branch":"Carrasco","room":"Sala 1","datetime":"2024-05-01T16:00:00Z"}
		]`))
	}))
	defer server.Close()

	client := newTestClient(t, server, Config{})
	slots, err := client.AvailableAppointments(context.Background(), AvailabilityFilter{Specialty: "cardiology"})
	if err != nil {
		t.Fatalf("available appointments: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if slots[0].ID != 1 || slots[0].Doctor != "Dr. Lee" {
		t.Fatalf("unexpected first slot: %#v", slots[0])
	}
}

func TestAvailableAppointmentsRejectsInvalidRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":0,"doctor":"","datetime":"2024-05-01T14:00:00Z"}]`))
	}))
	defer server.Close()

	client := newTestClient(t, server, Config{})
	if _, err := client.AvailableAppointments(context.Background(), AvailabilityFilter{}); err == nil {
		t.Fatal("expected validation error for record without id")
	}
}

func TestReserveAppointment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/patient/3/appointments/reserve" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method %s", r.Method)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"message":"Turno reservado","consulta_id":1}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, Config{})
	conf, err := client.ReserveAppointment(context.Background(), 3, 1)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if conf.AppointmentID != 1 {
		t.Fatalf("unexpected confirmation: %#v", conf)
	}
}

func TestReserveAppointmentConflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"detail":"La consulta ya no está disponible"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, Config{})
	_, err := client.ReserveAppointment(context.Background(), 3, 1)
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusConflict {
		t.Fatalf("expected APIError with 409, got %v", err)
	}
}

func TestPatientConversationsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Paciente no encontrado"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, Config{})
	_, err := client.PatientConversations(context.Background(), 99)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConversationMessagesPreservesOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/patient/3/conversations/7/messages" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[
			{"id":10,"sender":"doctor","text":"Hello","time":"2024-05-01T09:00:00Z"},
			{"id":11,"sender":"patient","text":"Hi","time":"2024-05-01T09:01:00Z"}
		]`))
	}))
	defer server.Close()

	client := newTestClient(t, server, Config{})
	msgs, err := client.ConversationMessages(context.Background(), 3, 7)
	if err != nil {
		t.Fatalf("conversation messages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != 10 || msgs[1].ID != 11 {
		t.Fatalf("expected upstream order preserved, got %#v", msgs)
	}
}

func TestConversationMessagesRejectsUnknownSender(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":10,"sender":"robot","text":"Beep","time":"2024-05-01T09:00:00Z"}]`))
	}))
	defer server.Close()

	client := newTestClient(t, server, Config{})
	if _, err := client.ConversationMessages(context.Background(), 3, 7); err == nil {
		t.Fatal("expected sender validation error")
	}
}

func TestSendMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method %s", r.Method)
		}
		if r.URL.Path != "/api/patient/3/conversations/7/messages" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":12,"sender":"patient","text":"See you Monday","time":"2024-05-01T09:02:00Z"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, Config{})
	msg, err := client.SendMessage(context.Background(), 3, 7, "See you Monday")
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if msg.ID != 12 || msg.Sender != SenderPatient {
		t.Fatalf("unexpected stored message: %#v", msg)
	}
}

func TestSendMessageRejectsEmptyText(t *testing.T) {
	client, err := New(Config{BaseURL: "http://clinic.local"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.SendMessage(context.Background(), 3, 7, "   "); err == nil {
		t.Fatal("expected empty text validation error")
	}
}

func TestInvokeRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := newTestClient(t, server, Config{MaxRetries: 2})
	slots, err := client.AvailableAppointments(context.Background(), AvailabilityFilter{})
	if err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected empty list, got %d", len(slots))
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestInvokeDoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"detail":"taken"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, Config{MaxRetries: 3})
	if _, err := client.ReserveAppointment(context.Background(), 3, 1); err == nil {
		t.Fatal("expected conflict error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected single call for 409, got %d", calls.Load())
	}
}
