// Package confirm models a yes/no decision that suspends a destructive
// action until the user answers.
package confirm

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

type State int

const (
	Pending State = iota
	Confirmed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Confirmed:
		return "confirmed"
	case Cancelled:
		return "cancelled"
	}
	return "pending"
}

// Confirmation asks about one action on one subject.
type Confirmation struct {
	Token   string
	Action  string
	Subject string
	Prompt  string
	state   State
}

func (c *Confirmation) State() State { return c.state }

// Resolve moves a pending confirmation to its final state. It reports
// false, and changes nothing, once the confirmation is final.
func (c *Confirmation) Resolve(yes bool) (State, bool) {
	if c.state != Pending {
		return c.state, false
	}
	if yes {
		c.state = Confirmed
	} else {
		c.state = Cancelled
	}
	return c.state, true
}

var ErrUnknown = errors.New("confirmation not found or already answered")

// Registry holds the pending confirmations of one browser session.
type Registry struct {
	mu    sync.Mutex
	items map[string]*Confirmation
}

func NewRegistry() *Registry {
	return &Registry{items: map[string]*Confirmation{}}
}

// Open asks a new question. An unanswered one about the same action and
// subject is dropped, so at most one token per pair is live.
func (r *Registry) Open(action, subject, prompt string) *Confirmation {
	c := &Confirmation{Token: uuid.NewString(), Action: action, Subject: subject, Prompt: prompt}
	r.mu.Lock()
	defer r.mu.Unlock()
	for tok, old := range r.items {
		if old.Action == action && old.Subject == subject {
			delete(r.items, tok)
		}
	}
	r.items[c.Token] = c
	return c
}

func (r *Registry) Get(token string) (*Confirmation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[token]
	return c, ok
}

// Resolve answers the confirmation behind token and forgets it. The
// action and subject must match what was asked.
func (r *Registry) Resolve(token, action, subject string, yes bool) (*Confirmation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[token]
	if !ok || c.Action != action || c.Subject != subject {
		return nil, ErrUnknown
	}
	delete(r.items, token)
	c.Resolve(yes)
	return c, nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
