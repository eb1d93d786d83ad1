package clinicapi

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sender roles used by the clinic messaging API. A message is written either
// by the patient or by the clinician on the other side of the thread.
const (
	SenderPatient = "patient"
	SenderDoctor  = "doctor"
)

// Appointment mirrors an appointment slot record from the clinic API.
type Appointment struct {
	ID        int64     `json:"id"`
	Doctor    string    `json:"doctor"`
	Specialty string    `json:"specialty"`
	Branch    string    `json:"branch"`
	Room      string    `json:"room,omitempty"`
	DateTime  time.Time `json:"datetime"`
	Status    string    `json:"status,omitempty"`
}

func (a Appointment) validate() error {
	if a.ID <= 0 {
		return errors.New("clinicapi: appointment id missing")
	}
	if strings.TrimSpace(a.Doctor) == "" {
		return fmt.Errorf("clinicapi: appointment %d has no doctor", a.ID)
	}
	if a.DateTime.IsZero() {
		return fmt.Errorf("clinicapi: appointment %d has no datetime", a.ID)
	}
	return nil
}

// AvailabilityFilter narrows the available-slot query at the upstream.
// Zero values mean "no restriction".
type AvailabilityFilter struct {
	Specialty string
	DoctorID  int64
	BranchID  int64
	From      time.Time
	To        time.Time
}

// ReservationConfirmation is returned by the upstream after a successful reserve.
type ReservationConfirmation struct {
	Message       string `json:"message"`
	AppointmentID int64  `json:"consulta_id"`
}

// Conversation mirrors a conversation summary record from the clinic API.
type Conversation struct {
	ID          int64     `json:"id"`
	Doctor      string    `json:"doctor"`
	Specialty   string    `json:"specialty"`
	LastMessage string    `json:"last_message"`
	Time        time.Time `json:"time"`
	Unread      int       `json:"unread"`
	Avatar      string    `json:"avatar,omitempty"`
}

func (c Conversation) validate() error {
	if c.ID <= 0 {
		return errors.New("clinicapi: conversation id missing")
	}
	if strings.TrimSpace(c.Doctor) == "" {
		return fmt.Errorf("clinicapi: conversation %d has no doctor", c.ID)
	}
	return nil
}

// Message mirrors a single message record within a conversation.
type Message struct {
	ID     int64     `json:"id"`
	Sender string    `json:"sender"`
	Text   string    `json:"text"`
	Time   time.Time `json:"time"`
}

func (m Message) validate() error {
	if m.ID <= 0 {
		return errors.New("clinicapi: message id missing")
	}
	if m.Sender != SenderPatient && m.Sender != SenderDoctor {
		return fmt.Errorf("clinicapi: message %d has unknown sender %q", m.ID, m.Sender)
	}
	return nil
}
