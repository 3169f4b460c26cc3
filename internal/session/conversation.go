package session

import (
	"slices"

	"github.com/HerbHall/narracode/pkg/llm"
)

// Conversation is an ordered chat history. The first message, when its
// role is system, is the composed instruction. Turns depend on the whole
// prior history, so a Conversation is not safe for concurrent use.
type Conversation struct {
	messages []llm.Message
}

// NewConversation starts a conversation. An empty system prompt starts it
// without a system message.
func NewConversation(systemPrompt string) *Conversation {
	c := &Conversation{}
	if systemPrompt != "" {
		c.Append(llm.RoleSystem, systemPrompt)
	}
	return c
}

// Append adds a message to the end of the conversation.
func (c *Conversation) Append(role, content string) {
	c.messages = append(c.messages, llm.Message{Role: role, Content: content})
}

// Messages returns a copy of the history.
func (c *Conversation) Messages() []llm.Message {
	return slices.Clone(c.messages)
}

// Truncate drops every message after the first n. It is a no-op when the
// conversation holds n messages or fewer.
func (c *Conversation) Truncate(n int) {
	if n >= 0 && n < len(c.messages) {
		c.messages = slices.Delete(c.messages, n, len(c.messages))
	}
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}
