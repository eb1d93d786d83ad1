package messaging

import "sync"

// ChatState is the explicit state container for one patient's chat screen.
// Every selection change bumps the generation; a fetch result is applied only
// while its generation is still current, so the displayed messages always
// correspond to the selected conversation regardless of completion order.
type ChatState struct {
	mu            sync.Mutex
	conversations []ConversationView
	selectedID    int64
	generation    uint64
	status        Status
	messages      []MessageView
	lastError     string
}

func newChatState() *ChatState {
	return &ChatState{status: StatusNoneSelected}
}

func (c *ChatState) setConversations(views []ConversationView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conversations = views
}

// selectedConversation returns the current selection, zero when none.
func (c *ChatState) selectedConversation() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedID
}

// hasConversation reports whether the loaded list contains id.
func (c *ChatState) hasConversation(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range c.conversations {
		if v.ID == id {
			return true
		}
	}
	return false
}

// beginSelection makes id the selected conversation, restarts the message
// cycle and returns the new generation the dependent fetch must present when
// applying its result.
func (c *ChatState) beginSelection(id int64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selectedID = id
	c.generation++
	c.status = StatusLoadingMessages
	c.messages = nil
	c.lastError = ""
	return c.generation
}

// applyMessages installs a fetch result. It reports false, leaving the state
// untouched, when gen is no longer current (a stale response).
func (c *ChatState) applyMessages(gen uint64, views []MessageView) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	c.status = StatusMessagesLoaded
	c.messages = views
	c.lastError = ""
	return true
}

// failMessages settles the message pane errored, unless gen is stale.
func (c *ChatState) failMessages(gen uint64, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	c.status = StatusMessagesErrored
	c.messages = nil
	c.lastError = err.Error()
	return true
}

// appendMessage adds a confirmed outbound message if the conversation is
// still the selected one with loaded messages.
func (c *ChatState) appendMessage(conversationID int64, view MessageView) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selectedID != conversationID || c.status != StatusMessagesLoaded {
		return false
	}
	c.messages = append(c.messages, view)
	return true
}

func (c *ChatState) snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	convs := make([]ConversationView, len(c.conversations))
	copy(convs, c.conversations)
	msgs := make([]MessageView, len(c.messages))
	copy(msgs, c.messages)
	return Snapshot{
		Conversations: convs,
		SelectedID:    c.selectedID,
		Status:        c.status,
		Messages:      msgs,
		Error:         c.lastError,
	}
}
