package assistant

import (
	"context"
	"strings"
	"sync"
	"time"
)

type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Conversation is the chat transcript of one browser session. Only one
// prompt may be in flight at a time.
type Conversation struct {
	mu       sync.Mutex
	messages []Message
	busy     bool
}

// Open starts over with the welcome message for now.
func (c *Conversation) Open(now time.Time) Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := Message{Role: RoleAI, Text: Welcome(now)}
	c.messages = []Message{w}
	return w
}

func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.messages...)
}

// Send records the prompt, asks the client and records the reply. It
// reports false without asking when another prompt is still pending.
func (c *Conversation) Send(ctx context.Context, client *Client, prompt string) (Message, bool, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return Message{}, false, nil
	}
	if strings.TrimSpace(prompt) == "" {
		c.mu.Unlock()
		return Message{}, false, ErrEmptyPrompt
	}
	c.busy = true
	c.messages = append(c.messages, Message{Role: RoleUser, Text: prompt})
	c.mu.Unlock()

	text, err := client.Ask(ctx, prompt)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	if err != nil {
		return Message{}, false, err
	}
	m := Message{Role: RoleAI, Text: text}
	c.messages = append(c.messages, m)
	return m, true, nil
}
