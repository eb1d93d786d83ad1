package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/medsuy/patient-portal/internal/session"
)

// TokenVerifier resolves a bearer token to the patient it was issued for.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (int64, error)
}

// PatientSession enforces a valid patient session token and places the patient
// id in the request context. Every flow downstream derives its identity from
// that context rather than from a fixed patient id.
func PatientSession(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				http.Error(w, "session auth disabled", http.StatusUnauthorized)
				return
			}
			token := bearerToken(r)
			if token == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			patientID, err := verifier.Verify(r.Context(), token)
			if err != nil {
				http.Error(w, "invalid session", http.StatusUnauthorized)
				return
			}
			ctx := session.WithPatientID(r.Context(), patientID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	// WebSocket clients cannot set headers from the browser, so the chat
	// stream passes the token as a query parameter instead.
	return r.URL.Query().Get("token")
}
