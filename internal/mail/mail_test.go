package mail_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/workcrew/workcrew/internal/mail"
)

func TestInvitationMessage(t *testing.T) {
	msg := mail.InvitationMessage("newhire@example.com", "ABC234")

	if msg.To != "newhire@example.com" {
		t.Errorf("to = %q", msg.To)
	}
	if !strings.Contains(msg.Subject, "Invitation Code") {
		t.Errorf("subject = %q, want invitation code mention", msg.Subject)
	}
	if !strings.Contains(msg.HTMLBody, "<strong>ABC234</strong>") {
		t.Errorf("body does not carry the code: %q", msg.HTMLBody)
	}
	if !strings.Contains(msg.HTMLBody, "24 hours") {
		t.Errorf("body does not mention the validity window: %q", msg.HTMLBody)
	}
}

func TestInMemoryMailer(t *testing.T) {
	m := mail.NewInMemoryMailer()

	if err := m.Send(context.Background(), mail.InvitationMessage("a@example.com", "XYZ789")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	msgs := m.Messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].To != "a@example.com" {
		t.Errorf("to = %q", msgs[0].To)
	}

	m.SendErr = errors.New("smtp down")
	if err := m.Send(context.Background(), mail.InvitationMessage("b@example.com", "XYZ789")); err == nil {
		t.Fatal("expected send error")
	}
	if len(m.Messages()) != 1 {
		t.Error("failed send should not be recorded")
	}
}
