// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm wraps the text-generation service: a caller-owned
// conversation history, the Generator abstraction, an OpenAI-compatible
// backend, and retry with failure classification.
package llm

// Role tags a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged turn sent to the generation service.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Conversation is an ordered history of messages owned by one caller.
// It is not safe for concurrent use; give each concurrent job its own.
type Conversation struct {
	turns []Message
}

// NewConversation returns a conversation seeded with the given messages.
func NewConversation(seed ...Message) *Conversation {
	c := &Conversation{}
	c.turns = append(c.turns, seed...)
	return c
}

// Append adds one turn at the end of the history.
func (c *Conversation) Append(role Role, content string) {
	c.turns = append(c.turns, Message{Role: role, Content: content})
}

// PopLast removes and returns the most recent turn. It reports false when
// the history is empty.
func (c *Conversation) PopLast() (Message, bool) {
	if len(c.turns) == 0 {
		return Message{}, false
	}
	last := c.turns[len(c.turns)-1]
	c.turns = c.turns[:len(c.turns)-1]
	return last, true
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	return len(c.turns)
}

// Messages returns a copy of the history.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.turns))
	copy(out, c.turns)
	return out
}

// Mark returns a position that Rewind can later restore.
func (c *Conversation) Mark() int {
	return len(c.turns)
}

// Rewind truncates the history back to a position returned by Mark.
// Marks beyond the current length are ignored.
func (c *Conversation) Rewind(mark int) {
	if mark < 0 {
		mark = 0
	}
	if mark >= len(c.turns) {
		return
	}
	clear(c.turns[mark:])
	c.turns = c.turns[:mark]
}

// Isolate runs fn and then discards every turn fn appended, however many
// there were, so that the exchange never leaks into later calls.
func (c *Conversation) Isolate(fn func() error) error {
	mark := c.Mark()
	defer c.Rewind(mark)
	return fn()
}
