// Package mail provides outbound email delivery for WorkCrew.
//
// The only transactional email today is the invitation code message; the
// Mailer interface keeps the transport swappable so tests can run against
// an in-memory sender.
package mail

import (
	"context"
	"fmt"
)

// Message is a single outbound email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// Mailer delivers messages to a recipient.
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

// InvitationMessage builds the invitation code email for a recipient.
func InvitationMessage(to, code string) *Message {
	return &Message{
		To:      to,
		Subject: "WorkCrew - Your Invitation Code",
		HTMLBody: fmt.Sprintf(`<html><body>
<p>You have been invited to join WorkCrew.</p>
<p>Your invitation code is: <strong>%s</strong></p>
<p>The code is valid for 24 hours and can be used once, with this email address only.</p>
</body></html>`, code),
	}
}
