package mail

import (
	"context"
	"sync"
)

// InMemoryMailer collects sent messages in memory. Used in tests and
// local development.
type InMemoryMailer struct {
	mu       sync.Mutex
	messages []Message

	// SendErr, when set, is returned by every Send call.
	SendErr error
}

// NewInMemoryMailer creates an empty in-memory mailer.
func NewInMemoryMailer() *InMemoryMailer {
	return &InMemoryMailer{}
}

var _ Mailer = (*InMemoryMailer)(nil)

// Send records the message, or fails with SendErr when set.
func (m *InMemoryMailer) Send(_ context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SendErr != nil {
		return m.SendErr
	}
	m.messages = append(m.messages, *msg)
	return nil
}

// Messages returns a copy of all recorded messages.
func (m *InMemoryMailer) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}
