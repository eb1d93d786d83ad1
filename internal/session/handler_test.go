package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medsuy/patient-portal/internal/clinicapi"
	"github.com/medsuy/patient-portal/pkg/logging"
)

type fakeDirectory struct {
	known map[int64]bool
	err   error
}

func (f *fakeDirectory) UpcomingAppointments(_ context.Context, patientID int64) ([]clinicapi.Appointment, error) {
	if f.err != nil {
		return nil, f.err
	}
	if !f.known[patientID] {
		return nil, &clinicapi.APIError{StatusCode: http.StatusNotFound, Detail: "patient not found"}
	}
	return nil, nil
}

func newTestHandler(t *testing.T, dir *fakeDirectory) (*Handler, *Service) {
	t.Helper()
	svc, _ := newTestService(t)
	return NewHandler(svc, dir, logging.New("error")), svc
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	h, svc := newTestHandler(t, &fakeDirectory{known: map[int64]bool{3: true}})

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest("POST", "/portal/session", strings.NewReader(`{"patient_id":3}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	patientID, err := svc.Verify(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(3), patientID)
}

func TestLoginRejectsUnknownPatient(t *testing.T) {
	h, _ := newTestHandler(t, &fakeDirectory{known: map[int64]bool{}})

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest("POST", "/portal/session", strings.NewReader(`{"patient_id":99}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginMapsUpstreamOutage(t *testing.T) {
	h, _ := newTestHandler(t, &fakeDirectory{err: errors.New("connection refused")})

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest("POST", "/portal/session", strings.NewReader(`{"patient_id":3}`)))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestLoginValidatesBody(t *testing.T) {
	h, _ := newTestHandler(t, &fakeDirectory{})

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest("POST", "/portal/session", strings.NewReader(`{"patient_id":0}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutRevokesSession(t *testing.T) {
	h, svc := newTestHandler(t, &fakeDirectory{known: map[int64]bool{3: true}})

	token, err := svc.Issue(context.Background(), 3)
	require.NoError(t, err)

	req := httptest.NewRequest("DELETE", "/portal/session", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, err = svc.Verify(context.Background(), token)
	assert.Error(t, err, "revoked token must fail verification")
}
