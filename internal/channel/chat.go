package channel

import (
	"fmt"
	"strings"
	"time"

	"coview/internal/protocol"
)

// ChatRelay validates and stamps chat messages before fan-out. It keeps no
// history: delivery is best-effort and persistence belongs elsewhere.
type ChatRelay struct {
	maxLength int
	now       func() time.Time
}

// NewChatRelay builds a relay enforcing maxLength runes per message. now is
// injectable for tests; pass nil for the wall clock.
func NewChatRelay(maxLength int, now func() time.Time) *ChatRelay {
	if now == nil {
		now = time.Now
	}
	return &ChatRelay{maxLength: maxLength, now: now}
}

// Relay validates the submitted message and returns the broadcast payload
// with the server-stamped sendTime and the sender's identity. The submitted
// sendTime and user_id are ignored.
func (r *ChatRelay) Relay(sender Viewer, msg protocol.ChatMessage) (protocol.ChatMessage, error) {
	text := strings.TrimSpace(msg.Message)
	if text == "" {
		return protocol.ChatMessage{}, fmt.Errorf("%w: empty message", ErrValidation)
	}
	if len([]rune(msg.Message)) > r.maxLength {
		return protocol.ChatMessage{}, fmt.Errorf("%w: message exceeds %d characters", ErrValidation, r.maxLength)
	}
	if strings.TrimSpace(msg.Nickname) == "" {
		return protocol.ChatMessage{}, fmt.Errorf("%w: nickname required", ErrValidation)
	}

	return protocol.ChatMessage{
		Message:  msg.Message,
		Nickname: msg.Nickname,
		Profile:  msg.Profile,
		SendTime: r.now().UTC().Format(time.RFC3339),
		UserID:   sender.ChatUserID(),
	}, nil
}
