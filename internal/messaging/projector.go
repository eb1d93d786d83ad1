package messaging

import (
	"strings"
	"time"

	"github.com/medsuy/patient-portal/internal/clinicapi"
)

const messageTimeLayout = "03:04 PM"

// Projector maps raw clinic records into display-ready chat views.
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

// Conversation projects a conversation summary. A missing avatar falls back
// to initials computed from the counterpart's name. now anchors the relative
// date formatting so projection stays deterministic in tests.
func (p *Projector) Conversation(c clinicapi.Conversation, now time.Time) ConversationView {
	initials := strings.TrimSpace(c.Avatar)
	if initials == "" {
		initials = Initials(c.Doctor)
	}
	return ConversationView{
		ID:           c.ID,
		ProviderName: c.Doctor,
		Specialty:    c.Specialty,
		LastMessage:  c.LastMessage,
		DisplayTime:  p.activityTime(c.Time, now),
		Unread:       c.Unread,
		Initials:     initials,
	}
}

// Conversations projects a list of summaries, preserving order.
func (p *Projector) Conversations(convs []clinicapi.Conversation, now time.Time) []ConversationView {
	views := make([]ConversationView, 0, len(convs))
	for _, c := range convs {
		views = append(views, p.Conversation(c, now))
	}
	return views
}

// Message projects a single message. The patient's own messages render as
// outgoing; the counterpart's as incoming.
func (p *Projector) Message(m clinicapi.Message) MessageView {
	return MessageView{
		ID:          m.ID,
		Outgoing:    m.Sender == clinicapi.SenderPatient,
		Text:        m.Text,
		DisplayTime: m.Time.In(p.loc).Format(messageTimeLayout),
	}
}

// Messages projects a list of messages in arrival order.
func (p *Projector) Messages(msgs []clinicapi.Message) []MessageView {
	views := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, p.Message(m))
	}
	return views
}

// activityTime renders a last-activity instant the way chat lists do: time of
// day for today, short date within the year, full date otherwise.
func (p *Projector) activityTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	local := t.In(p.loc)
	localNow := now.In(p.loc)
	switch {
	case local.Year() == localNow.Year() && local.YearDay() == localNow.YearDay():
		return local.Format(messageTimeLayout)
	case local.Year() == localNow.Year():
		return local.Format("Jan 2")
	default:
		return local.Format("Jan 2, 2006")
	}
}

// Initials derives up to two uppercase initials from a counterpart name,
// skipping honorifics like "Dr.".
func Initials(name string) string {
	var letters []rune
	for _, word := range strings.Fields(name) {
		trimmed := strings.TrimSuffix(word, ".")
		if strings.EqualFold(trimmed, "dr") || strings.EqualFold(trimmed, "dra") {
			continue
		}
		runes := []rune(trimmed)
		if len(runes) == 0 {
			continue
		}
		letters = append(letters, runes[0])
		if len(letters) == 2 {
			break
		}
	}
	return strings.ToUpper(string(letters))
}
