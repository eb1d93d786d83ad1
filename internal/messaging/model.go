// Package messaging drives the chat screen: conversation list, dependent
// message pane, and sending. Message fetches are guarded by a generation
// token so late responses for an abandoned selection are dropped.
package messaging

// ConversationView is the display-ready projection of a conversation summary.
type ConversationView struct {
	ID           int64  `json:"id"`
	ProviderName string `json:"provider_name"`
	Specialty    string `json:"specialty"`
	LastMessage  string `json:"last_message"`
	DisplayTime  string `json:"display_time"`
	Unread       int    `json:"unread"`
	Initials     string `json:"initials"`
}

// MessageView is the display-ready projection of a single message.
type MessageView struct {
	ID          int64  `json:"id"`
	Outgoing    bool   `json:"outgoing"`
	Text        string `json:"text"`
	DisplayTime string `json:"display_time"`
}

// Status enumerates the message-pane lifecycle for the current selection.
// Switching the selected conversation restarts the cycle.
type Status string

const (
	StatusNoneSelected    Status = "none_selected"
	StatusLoadingMessages Status = "loading_messages"
	StatusMessagesLoaded  Status = "messages_loaded"
	StatusMessagesErrored Status = "messages_errored"
)

// Snapshot is an immutable copy of the chat screen handed to the render
// surface. Messages always belong to SelectedID; the generation guard makes
// that invariant hold even under out-of-order fetch completions.
type Snapshot struct {
	Conversations []ConversationView `json:"conversations"`
	SelectedID    int64              `json:"selected_id,omitempty"`
	Status        Status             `json:"status"`
	Messages      []MessageView      `json:"messages"`
	Error         string             `json:"error,omitempty"`
}
