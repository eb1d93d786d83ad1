package booking

import "sync"

// ViewState is the explicit state container for one patient's booking screen.
// Transitions: loading -> loaded | errored. An errored load never leaves a
// partial list behind.
type ViewState struct {
	mu     sync.Mutex
	status Status
	slots  []SlotView
	err    string
}

// Snapshot is an immutable copy handed to the render surface.
type Snapshot struct {
	Status Status     `json:"status"`
	Slots  []SlotView `json:"slots"`
	Error  string     `json:"error,omitempty"`
}

func newViewState() *ViewState {
	return &ViewState{status: StatusLoading}
}

func (s *ViewState) beginLoad() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusLoading
}

func (s *ViewState) loaded(slots []SlotView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusLoaded
	s.slots = slots
	s.err = ""
}

// failed settles the view fail-closed: the slot list is suppressed entirely.
func (s *ViewState) failed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusErrored
	s.slots = nil
	s.err = err.Error()
}

// snapshot copies the current state for rendering.
func (s *ViewState) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	slots := make([]SlotView, len(s.slots))
	copy(slots, s.slots)
	return Snapshot{Status: s.status, Slots: slots, Error: s.err}
}
