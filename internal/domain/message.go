package domain

import (
	"context"
	"strings"
)

// MessageRole represents the sender of a message
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ChatMessage is one entry of a conversation history
type ChatMessage struct {
	Role    MessageRole `json:"role" bson:"role"`
	Content string      `json:"content" bson:"content"`
}

// DefaultHistoryCapacity is the number of messages kept per session
const DefaultHistoryCapacity = 50

// HistoryStore is a bounded per-session message log.
//
// Set replaces the log, keeping only the most recent capacity messages.
// Append adds one message and evicts from the front once over capacity.
// AppendMany adds several messages as a single operation: either all of
// them are stored or none. Implementations must be safe for concurrent
// use; concurrent appends to the same key must never lose a message that
// was not evicted.
type HistoryStore interface {
	Get(ctx context.Context, key string) ([]ChatMessage, error)
	Set(ctx context.Context, key string, messages []ChatMessage) error
	Append(ctx context.Context, key string, role MessageRole, content string) error
	AppendMany(ctx context.Context, key string, messages []ChatMessage) error
}

// SessionKey derives the history key for a user and optional chat thread
func SessionKey(userID, chatID string) string {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return userID
	}
	return userID + ":" + chatID
}

// Tail returns the last n messages of msgs
func Tail(msgs []ChatMessage, n int) []ChatMessage {
	if n <= 0 {
		return nil
	}
	if len(msgs) > n {
		return msgs[len(msgs)-n:]
	}
	return msgs
}
