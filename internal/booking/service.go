package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/medsuy/patient-portal/internal/clinicapi"
	"github.com/medsuy/patient-portal/internal/observability/metrics"
	"github.com/medsuy/patient-portal/pkg/logging"
)

// Scheduler is the slice of the clinic API the booking flow consumes.
type Scheduler interface {
	AvailableAppointments(ctx context.Context, filter clinicapi.AvailabilityFilter) ([]clinicapi.Appointment, error)
	UpcomingAppointments(ctx context.Context, patientID int64) ([]clinicapi.Appointment, error)
	ReserveAppointment(ctx context.Context, patientID, appointmentID int64) (*clinicapi.ReservationConfirmation, error)
	CancelAppointment(ctx context.Context, patientID, appointmentID int64) error
}

// Service orchestrates the booking screen: it fetches raw slots, projects
// them for display, and keeps one view state per patient so a reservation can
// refresh the same screen it was clicked on.
type Service struct {
	scheduler Scheduler
	projector *Projector
	metrics   *metrics.PortalMetrics
	logger    *logging.Logger

	mu    sync.Mutex
	views map[int64]*ViewState
}

// NewService creates a booking service.
func NewService(scheduler Scheduler, projector *Projector, m *metrics.PortalMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if projector == nil {
		projector = NewProjector("UTC")
	}
	return &Service{
		scheduler: scheduler,
		projector: projector,
		metrics:   m,
		logger:    logger,
		views:     make(map[int64]*ViewState),
	}
}

func (s *Service) viewFor(patientID int64) *ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[patientID]
	if !ok {
		v = newViewState()
		s.views[patientID] = v
	}
	return v
}

// LoadAvailableSlots fetches all currently bookable slots and settles the
// patient's view. A fetch failure settles the view errored with no partial
// list; the caller must trigger a new load to retry.
func (s *Service) LoadAvailableSlots(ctx context.Context, patientID int64, filter clinicapi.AvailabilityFilter) Snapshot {
	view := s.viewFor(patientID)
	view.beginLoad()

	start := time.Now()
	appts, err := s.scheduler.AvailableAppointments(ctx, filter)
	if err != nil {
		s.metrics.ObserveUpstream("available_appointments", "error", time.Since(start).Seconds())
		s.logger.Error("failed to load available slots", "patient_id", patientID, "error", err)
		view.failed(errors.New("could not load available appointments"))
		return view.snapshot()
	}
	s.metrics.ObserveUpstream("available_appointments", "ok", time.Since(start).Seconds())

	view.loaded(s.projector.Slots(appts))
	return view.snapshot()
}

// View returns the current booking snapshot without refetching.
func (s *Service) View(patientID int64) Snapshot {
	return s.viewFor(patientID).snapshot()
}

// ReserveSlot sends a reservation for the slot and, on success, re-invokes the
// availability load so the booked slot disappears from the list. On failure
// the previously loaded list is left untouched; there is nothing to roll back
// because no optimistic mutation occurred.
func (s *Service) ReserveSlot(ctx context.Context, patientID, slotID int64) (*ReservationReceipt, Snapshot, error) {
	start := time.Now()
	conf, err := s.scheduler.ReserveAppointment(ctx, patientID, slotID)
	if err != nil {
		s.metrics.ObserveUpstream("reserve_appointment", "error", time.Since(start).Seconds())
		outcome := "error"
		if errors.Is(err, clinicapi.ErrSlotUnavailable) {
			outcome = "conflict"
		}
		s.metrics.ObserveReservation(outcome)
		s.logger.Error("reservation failed",
			"patient_id", patientID,
			"slot_id", slotID,
			"outcome", outcome,
			"error", err,
		)
		return nil, s.View(patientID), err
	}
	s.metrics.ObserveUpstream("reserve_appointment", "ok", time.Since(start).Seconds())
	s.metrics.ObserveReservation("confirmed")
	s.logger.Info("slot reserved", "patient_id", patientID, "slot_id", slotID)

	receipt := &ReservationReceipt{
		Message:       conf.Message,
		AppointmentID: conf.AppointmentID,
	}
	if receipt.Message == "" {
		receipt.Message = "Your appointment has been booked"
	}
	return receipt, s.LoadAvailableSlots(ctx, patientID, clinicapi.AvailabilityFilter{}), nil
}

// LoadUpcoming fetches and projects the patient's reserved appointments.
func (s *Service) LoadUpcoming(ctx context.Context, patientID int64) ([]UpcomingView, error) {
	start := time.Now()
	appts, err := s.scheduler.UpcomingAppointments(ctx, patientID)
	if err != nil {
		s.metrics.ObserveUpstream("upcoming_appointments", "error", time.Since(start).Seconds())
		return nil, err
	}
	s.metrics.ObserveUpstream("upcoming_appointments", "ok", time.Since(start).Seconds())

	views := make([]UpcomingView, 0, len(appts))
	for _, a := range appts {
		views = append(views, s.projector.Upcoming(a))
	}
	return views, nil
}

// CancelSlot releases a reserved appointment back to the pool.
func (s *Service) CancelSlot(ctx context.Context, patientID, slotID int64) error {
	start := time.Now()
	err := s.scheduler.CancelAppointment(ctx, patientID, slotID)
	if err != nil {
		s.metrics.ObserveUpstream("cancel_appointment", "error", time.Since(start).Seconds())
		s.logger.Error("cancel failed", "patient_id", patientID, "slot_id", slotID, "error", err)
		return err
	}
	s.metrics.ObserveUpstream("cancel_appointment", "ok", time.Since(start).Seconds())
	s.logger.Info("appointment cancelled", "patient_id", patientID, "slot_id", slotID)
	return nil
}
