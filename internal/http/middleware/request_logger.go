package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/medsuy/patient-portal/internal/session"
	"github.com/medsuy/patient-portal/pkg/logging"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RequestLogger emits structured logs for every HTTP request. When the request
// carries an authenticated patient session the patient id is included.
func RequestLogger(logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = uuid.NewString()
			}
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", reqID,
				"remote_ip", r.RemoteAddr,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if patientID, ok := session.PatientIDFromContext(r.Context()); ok {
				attrs = append(attrs, "patient_id", patientID)
			}
			logger.Info("request completed", attrs...)
		})
	}
}
