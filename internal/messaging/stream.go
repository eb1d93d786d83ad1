package messaging

import (
	"net/http"
	"strings"

	"github.com/medsuy/patient-portal/internal/session"
	"github.com/medsuy/patient-portal/pkg/logging"
	"golang.org/x/net/websocket"
)

// Stream is the live render surface for the chat screen. A connected client
// drives the same service as the HTTP handler; every action answers with a
// fresh snapshot so the client never has to merge partial updates.
type Stream struct {
	service *Service
	logger  *logging.Logger
}

// NewStream creates a WebSocket chat surface.
func NewStream(service *Service, logger *logging.Logger) *Stream {
	if logger == nil {
		logger = logging.Default()
	}
	return &Stream{service: service, logger: logger}
}

// InboundFrame is what a connected chat client sends.
type InboundFrame struct {
	Type           string `json:"type"` // "select", "send", "search", "ping"
	ConversationID int64  `json:"conversation_id,omitempty"`
	Text           string `json:"text,omitempty"`
	Query          string `json:"query,omitempty"`
}

// OutboundFrame is what the surface pushes back.
type OutboundFrame struct {
	Type     string    `json:"type"` // "snapshot", "pong", "error"
	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Query    string    `json:"query,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// HandleWebSocket upgrades to WebSocket and serves the chat screen. The
// patient identity must already be on the request context.
func (s *Stream) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	patientID, ok := session.PatientIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing patient session", http.StatusUnauthorized)
		return
	}
	websocket.Handler(func(conn *websocket.Conn) {
		s.serve(conn, r, patientID)
	}).ServeHTTP(w, r)
}

func (s *Stream) serve(conn *websocket.Conn, r *http.Request, patientID int64) {
	ctx := r.Context()

	// Opening frame: the conversation list with its auto-selected first
	// conversation, or the surfaced load error.
	snap, err := s.service.LoadConversations(ctx, patientID)
	out := OutboundFrame{Type: "snapshot", Snapshot: &snap}
	if err != nil {
		out.Error = "could not load conversations"
	}
	if err := websocket.JSON.Send(conn, out); err != nil {
		return
	}

	s.logger.Info("chat stream opened", "patient_id", patientID)

	for {
		var frame InboundFrame
		if err := websocket.JSON.Receive(conn, &frame); err != nil {
			s.logger.Debug("chat stream closed", "patient_id", patientID, "error", err)
			return
		}

		switch frame.Type {
		case "ping":
			_ = websocket.JSON.Send(conn, OutboundFrame{Type: "pong"})

		case "select":
			if frame.ConversationID <= 0 {
				_ = websocket.JSON.Send(conn, OutboundFrame{Type: "error", Error: "invalid conversation id"})
				continue
			}
			snap, err := s.service.SelectConversation(ctx, patientID, frame.ConversationID)
			out := OutboundFrame{Type: "snapshot", Snapshot: &snap}
			if err != nil {
				out.Error = "could not load messages"
			}
			_ = websocket.JSON.Send(conn, out)

		case "send":
			if strings.TrimSpace(frame.Text) == "" {
				_ = websocket.JSON.Send(conn, OutboundFrame{Type: "error", Error: "message text is required"})
				continue
			}
			target := frame.ConversationID
			if target <= 0 {
				target = s.service.View(patientID).SelectedID
			}
			if target <= 0 {
				_ = websocket.JSON.Send(conn, OutboundFrame{Type: "error", Error: "no conversation selected"})
				continue
			}
			snap, err := s.service.SendMessage(ctx, patientID, target, frame.Text)
			if err != nil {
				// Nothing was appended; the client keeps its draft.
				_ = websocket.JSON.Send(conn, OutboundFrame{Type: "error", Error: "message could not be sent"})
				continue
			}
			_ = websocket.JSON.Send(conn, OutboundFrame{Type: "snapshot", Snapshot: &snap})

		case "search":
			snap := s.service.View(patientID)
			snap.Conversations = FilterConversations(snap.Conversations, frame.Query)
			_ = websocket.JSON.Send(conn, OutboundFrame{Type: "snapshot", Snapshot: &snap, Query: frame.Query})

		default:
			_ = websocket.JSON.Send(conn, OutboundFrame{Type: "error", Error: "unknown frame type"})
		}
	}
}
