package booking

import "strings"

// Period buckets a slot by its local start hour.
type Period string

const (
	PeriodMorning   Period = "morning"   // before 12:00
	PeriodAfternoon Period = "afternoon" // 12:00 - 17:59
	PeriodEvening   Period = "evening"   // 18:00 onward
)

// PeriodOf returns the period for an hour-of-day.
func PeriodOf(hour int) Period {
	switch {
	case hour < 12:
		return PeriodMorning
	case hour < 18:
		return PeriodAfternoon
	default:
		return PeriodEvening
	}
}

// ParsePeriod returns the period named by s, or false for anything else.
func ParsePeriod(s string) (Period, bool) {
	switch Period(strings.ToLower(strings.TrimSpace(s))) {
	case PeriodMorning:
		return PeriodMorning, true
	case PeriodAfternoon:
		return PeriodAfternoon, true
	case PeriodEvening:
		return PeriodEvening, true
	default:
		return "", false
	}
}

// PeriodSet is the multi-select time-of-day toggle state. The empty set means
// "no restriction": every slot matches.
type PeriodSet map[Period]struct{}

// Toggle adds the period when absent and removes it when present, so toggling
// twice restores the original membership.
func (s PeriodSet) Toggle(p Period) {
	if _, ok := s[p]; ok {
		delete(s, p)
		return
	}
	s[p] = struct{}{}
}

// Contains reports membership.
func (s PeriodSet) Contains(p Period) bool {
	_, ok := s[p]
	return ok
}

// Filter is the pure client-side predicate state over the loaded slot list.
// It narrows what is rendered, never what is fetched.
type Filter struct {
	Query   string
	Periods PeriodSet
}

// Matches reports whether a slot passes the free-text search and the
// time-of-day selection.
func (f Filter) Matches(v SlotView) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(v.ProviderName), q) &&
			!strings.Contains(strings.ToLower(v.Specialty), q) &&
			!strings.Contains(strings.ToLower(v.Location), q) {
			return false
		}
	}
	if len(f.Periods) == 0 {
		return true
	}
	return f.Periods.Contains(PeriodOf(v.hour))
}

// Apply returns the slots passing the filter, preserving order.
func (f Filter) Apply(views []SlotView) []SlotView {
	out := make([]SlotView, 0, len(views))
	for _, v := range views {
		if f.Matches(v) {
			out = append(out, v)
		}
	}
	return out
}
