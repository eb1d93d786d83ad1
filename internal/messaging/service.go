package messaging

import (
	"context"
	"sync"
	"time"

	"github.com/medsuy/patient-portal/internal/clinicapi"
	"github.com/medsuy/patient-portal/internal/observability/metrics"
	"github.com/medsuy/patient-portal/pkg/logging"
)

// Messenger is the slice of the clinic API the chat flow consumes.
type Messenger interface {
	PatientConversations(ctx context.Context, patientID int64) ([]clinicapi.Conversation, error)
	ConversationMessages(ctx context.Context, patientID, conversationID int64) ([]clinicapi.Message, error)
	SendMessage(ctx context.Context, patientID, conversationID int64, text string) (*clinicapi.Message, error)
}

// Service orchestrates the chat screen. It keeps one ChatState per patient;
// selecting a conversation runs the dependent message fetch under a
// generation guard so a slow response for a previous selection can never
// overwrite the current pane.
type Service struct {
	messenger Messenger
	projector *Projector
	metrics   *metrics.PortalMetrics
	logger    *logging.Logger
	now       func() time.Time

	mu     sync.Mutex
	states map[int64]*ChatState
}

// NewService creates a messaging service.
func NewService(messenger Messenger, projector *Projector, m *metrics.PortalMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if projector == nil {
		projector = NewProjector("UTC")
	}
	return &Service{
		messenger: messenger,
		projector: projector,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
		states:    make(map[int64]*ChatState),
	}
}

func (s *Service) stateFor(patientID int64) *ChatState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[patientID]
	if !ok {
		st = newChatState()
		s.states[patientID] = st
	}
	return st
}

// LoadConversations fetches the patient's conversation list. When nothing is
// selected yet and the list is non-empty, the first conversation is selected
// and its messages fetched so the screen never opens on an empty pane. An
// empty list selects nothing and fetches nothing.
func (s *Service) LoadConversations(ctx context.Context, patientID int64) (Snapshot, error) {
	state := s.stateFor(patientID)

	start := time.Now()
	convs, err := s.messenger.PatientConversations(ctx, patientID)
	if err != nil {
		s.metrics.ObserveUpstream("patient_conversations", "error", time.Since(start).Seconds())
		s.logger.Error("failed to load conversations", "patient_id", patientID, "error", err)
		return state.snapshot(), err
	}
	s.metrics.ObserveUpstream("patient_conversations", "ok", time.Since(start).Seconds())

	state.setConversations(s.projector.Conversations(convs, s.now()))

	if state.selectedConversation() == 0 && len(convs) > 0 {
		return s.SelectConversation(ctx, patientID, convs[0].ID)
	}
	return state.snapshot(), nil
}

// SelectConversation makes the conversation current and fetches its messages.
// If another selection happened while the fetch was in flight, the late
// result is discarded and the snapshot of the newer selection is returned.
func (s *Service) SelectConversation(ctx context.Context, patientID, conversationID int64) (Snapshot, error) {
	state := s.stateFor(patientID)
	gen := state.beginSelection(conversationID)

	start := time.Now()
	msgs, err := s.messenger.ConversationMessages(ctx, patientID, conversationID)
	if err != nil {
		s.metrics.ObserveUpstream("conversation_messages", "error", time.Since(start).Seconds())
		if !state.failMessages(gen, err) {
			s.metrics.ObserveStaleDiscarded()
		} else {
			s.logger.Error("failed to load messages",
				"patient_id", patientID,
				"conversation_id", conversationID,
				"error", err,
			)
		}
		return state.snapshot(), err
	}
	s.metrics.ObserveUpstream("conversation_messages", "ok", time.Since(start).Seconds())

	if !state.applyMessages(gen, s.projector.Messages(msgs)) {
		s.metrics.ObserveStaleDiscarded()
		s.logger.Info("discarded stale message fetch",
			"patient_id", patientID,
			"conversation_id", conversationID,
		)
	}
	return state.snapshot(), nil
}

// SendMessage submits the text and, once the clinic confirms it, appends the
// confirmed message to the open pane. On failure nothing is appended and the
// error is returned so the surface can keep the patient's draft.
func (s *Service) SendMessage(ctx context.Context, patientID, conversationID int64, text string) (Snapshot, error) {
	state := s.stateFor(patientID)

	start := time.Now()
	msg, err := s.messenger.SendMessage(ctx, patientID, conversationID, text)
	if err != nil {
		s.metrics.ObserveUpstream("send_message", "error", time.Since(start).Seconds())
		s.metrics.ObserveMessageSent("error")
		s.logger.Error("failed to send message",
			"patient_id", patientID,
			"conversation_id", conversationID,
			"error", err,
		)
		return state.snapshot(), err
	}
	s.metrics.ObserveUpstream("send_message", "ok", time.Since(start).Seconds())
	s.metrics.ObserveMessageSent("delivered")

	state.appendMessage(conversationID, s.projector.Message(*msg))
	return state.snapshot(), nil
}

// View returns the patient's current chat snapshot without refetching.
func (s *Service) View(patientID int64) Snapshot {
	return s.stateFor(patientID).snapshot()
}
