// Package booking drives the appointment screen: it fetches open slots from
// the clinic, projects them for display, and handles reserve and cancel
// actions against the same list.
package booking

// SlotView is the display-ready projection of a bookable appointment slot.
type SlotView struct {
	ID           int64  `json:"id"`
	ProviderName string `json:"provider_name"`
	Specialty    string `json:"specialty"`
	Location     string `json:"location"`
	DisplayDate  string `json:"display_date"`
	DisplayTime  string `json:"display_time"`

	// hour-of-day in the display timezone, kept for the time-of-day filter.
	hour int
}

// UpcomingView is the display-ready projection of a reserved appointment.
type UpcomingView struct {
	ID           int64  `json:"id"`
	ProviderName string `json:"provider_name"`
	Specialty    string `json:"specialty"`
	Location     string `json:"location"`
	Room         string `json:"room,omitempty"`
	DisplayDate  string `json:"display_date"`
	DisplayTime  string `json:"display_time"`
	Status       string `json:"status"`
}

// ReservationReceipt is returned to the surface after a successful booking.
type ReservationReceipt struct {
	Message       string `json:"message"`
	AppointmentID int64  `json:"appointment_id"`
}

// Status enumerates the booking view lifecycle. A load is either in flight,
// settled with a (possibly empty) slot list, or settled with an error and no
// partial list.
type Status string

const (
	StatusLoading Status = "loading"
	StatusLoaded  Status = "loaded"
	StatusErrored Status = "errored"
)
