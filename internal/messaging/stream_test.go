package messaging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/medsuy/patient-portal/internal/session"
	"github.com/medsuy/patient-portal/pkg/logging"
	"golang.org/x/net/websocket"
)

func newStreamServer(t *testing.T, fake *fakeMessenger, patientID int64) *httptest.Server {
	t.Helper()
	svc, _ := newTestService(fake)
	stream := NewStream(svc, logging.New("error"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if patientID > 0 {
			r = r.WithContext(session.WithPatientID(r.Context(), patientID))
		}
		stream.HandleWebSocket(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialStream(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, err := websocket.Dial(wsURL, "", srv.URL)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func receiveFrame(t *testing.T, conn *websocket.Conn) OutboundFrame {
	t.Helper()
	var frame OutboundFrame
	if err := websocket.JSON.Receive(conn, &frame); err != nil {
		t.Fatalf("receive frame: %v", err)
	}
	return frame
}

func TestStreamRejectsMissingSession(t *testing.T) {
	srv := newStreamServer(t, &fakeMessenger{messages: messagesByConversation()}, 0)

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestStreamOpensWithConversationSnapshot(t *testing.T) {
	fake := &fakeMessenger{conversations: twoConversations(), messages: messagesByConversation()}
	srv := newStreamServer(t, fake, 3)
	conn := dialStream(t, srv)

	opening := receiveFrame(t, conn)
	if opening.Type != "snapshot" || opening.Snapshot == nil {
		t.Fatalf("unexpected opening frame: %#v", opening)
	}
	if len(opening.Snapshot.Conversations) != 2 || opening.Snapshot.SelectedID != 1 {
		t.Fatalf("expected auto-selected list, got %#v", opening.Snapshot)
	}
}

func TestStreamSelectAndSend(t *testing.T) {
	fake := &fakeMessenger{conversations: twoConversations(), messages: messagesByConversation()}
	srv := newStreamServer(t, fake, 3)
	conn := dialStream(t, srv)
	receiveFrame(t, conn) // opening snapshot

	if err := websocket.JSON.Send(conn, InboundFrame{Type: "select", ConversationID: 2}); err != nil {
		t.Fatalf("send select: %v", err)
	}
	selected := receiveFrame(t, conn)
	if selected.Snapshot == nil || selected.Snapshot.SelectedID != 2 {
		t.Fatalf("expected selection frame, got %#v", selected)
	}
	if len(selected.Snapshot.Messages) != 1 {
		t.Fatalf("expected conversation 2 messages, got %#v", selected.Snapshot.Messages)
	}

	if err := websocket.JSON.Send(conn, InboundFrame{Type: "send", Text: "Thank you"}); err != nil {
		t.Fatalf("send message: %v", err)
	}
	sent := receiveFrame(t, conn)
	if sent.Snapshot == nil || len(sent.Snapshot.Messages) != 2 {
		t.Fatalf("expected appended message, got %#v", sent)
	}
	if !sent.Snapshot.Messages[1].Outgoing {
		t.Fatalf("appended message should be outgoing: %#v", sent.Snapshot.Messages[1])
	}
}

func TestStreamSendFailureKeepsDraftSemantics(t *testing.T) {
	fake := &fakeMessenger{conversations: twoConversations(), messages: messagesByConversation(), sendErr: context.DeadlineExceeded}
	srv := newStreamServer(t, fake, 3)
	conn := dialStream(t, srv)
	receiveFrame(t, conn)

	if err := websocket.JSON.Send(conn, InboundFrame{Type: "send", Text: "lost"}); err != nil {
		t.Fatalf("send message: %v", err)
	}
	frame := receiveFrame(t, conn)
	if frame.Type != "error" {
		t.Fatalf("expected error frame, got %#v", frame)
	}

	if err := websocket.JSON.Send(conn, InboundFrame{Type: "ping"}); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if pong := receiveFrame(t, conn); pong.Type != "pong" {
		t.Fatalf("expected pong, got %#v", pong)
	}
}
