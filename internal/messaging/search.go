package messaging

import "strings"

// FilterConversations returns the conversations whose provider name or
// specialty contains query, case-insensitively. An empty query returns the
// full list unchanged.
func FilterConversations(views []ConversationView, query string) []ConversationView {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return views
	}
	out := make([]ConversationView, 0, len(views))
	for _, v := range views {
		if strings.Contains(strings.ToLower(v.ProviderName), q) ||
			strings.Contains(strings.ToLower(v.Specialty), q) {
			out = append(out, v)
		}
	}
	return out
}
