package session

import "context"

type ctxKey string

const patientKey ctxKey = "portal.patient_id"

// WithPatientID stores the authenticated patient id in context.
func WithPatientID(ctx context.Context, patientID int64) context.Context {
	return context.WithValue(ctx, patientKey, patientID)
}

// PatientIDFromContext extracts the patient id if present.
func PatientIDFromContext(ctx context.Context) (int64, bool) {
	val := ctx.Value(patientKey)
	if val == nil {
		return 0, false
	}
	patientID, ok := val.(int64)
	return patientID, ok && patientID > 0
}
