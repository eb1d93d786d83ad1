package booking

import (
	"time"

	"github.com/medsuy/patient-portal/internal/clinicapi"
)

// Display layouts are fixed so projection is a deterministic function of the
// slot's instant and the configured timezone.
const (
	displayDateLayout = "Monday, January 2, 2006"
	displayTimeLayout = "03:04 PM"
)

// Projector maps raw clinic records into display-ready views.
type Projector struct {
	loc *time.Location
}

// NewProjector creates a projector rendering instants in the named timezone.
// An unknown or empty name falls back to UTC.
func NewProjector(timezone string) *Projector {
	loc, err := time.LoadLocation(timezone)
	if err != nil || loc == nil {
		loc = time.UTC
	}
	return &Projector{loc: loc}
}

// Slot projects a bookable appointment into its display form.
func (p *Projector) Slot(a clinicapi.Appointment) SlotView {
	local := a.DateTime.In(p.loc)
	return SlotView{
		ID:           a.ID,
		ProviderName: a.Doctor,
		Specialty:    a.Specialty,
		Location:     a.Branch,
		DisplayDate:  local.Format(displayDateLayout),
		DisplayTime:  local.Format(displayTimeLayout),
		hour:         local.Hour(),
	}
}

// Slots projects a list of bookable appointments, preserving order.
func (p *Projector) Slots(appts []clinicapi.Appointment) []SlotView {
	views := make([]SlotView, 0, len(appts))
	for _, a := range appts {
		views = append(views, p.Slot(a))
	}
	return views
}

// Upcoming projects a reserved appointment into its display form.
func (p *Projector) Upcoming(a clinicapi.Appointment) UpcomingView {
	local := a.DateTime.In(p.loc)
	status := a.Status
	if status == "" {
		status = "confirmed"
	}
	return UpcomingView{
		ID:           a.ID,
		ProviderName: a.Doctor,
		Specialty:    a.Specialty,
		Location:     a.Branch,
		Room:         a.Room,
		DisplayDate:  local.Format(displayDateLayout),
		DisplayTime:  local.Format(displayTimeLayout),
		Status:       status,
	}
}
