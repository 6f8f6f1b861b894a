package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// SMTPConfig holds connection settings for the SMTP sender.
type SMTPConfig struct {
	// Host is the SMTP server hostname.
	Host string

	// Port is the SMTP server port. Implicit TLS is assumed (465).
	Port string

	// Username authenticates against the server and doubles as the
	// envelope sender when From is empty.
	Username string

	// Password for PLAIN auth.
	Password string

	// From overrides the envelope sender.
	From string

	// MaxRetries is the number of retry attempts on transient failures.
	MaxRetries uint64

	// InitialInterval is the initial retry backoff interval.
	InitialInterval time.Duration
}

// DefaultSMTPConfig returns an SMTPConfig with sensible retry defaults.
func DefaultSMTPConfig() SMTPConfig {
	return SMTPConfig{
		Port:            "465",
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
	}
}

// SMTPSender delivers messages over SMTP with implicit TLS.
type SMTPSender struct {
	config SMTPConfig
	logger zerolog.Logger
}

// NewSMTPSender creates an SMTP-backed Mailer.
func NewSMTPSender(cfg SMTPConfig, logger zerolog.Logger) *SMTPSender {
	if cfg.Port == "" {
		cfg.Port = "465"
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}
	return &SMTPSender{
		config: cfg,
		logger: logger.With().Str("component", "smtp_sender").Logger(),
	}
}

var _ Mailer = (*SMTPSender)(nil)

// Send delivers a message, retrying transient failures with exponential backoff.
func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.config.InitialInterval
	bo.MaxElapsedTime = 0

	operation := func() error {
		if err := s.sendOnce(msg); err != nil {
			s.logger.Warn().
				Err(err).
				Str("to", msg.To).
				Msg("Email delivery attempt failed")
			return err
		}
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, s.config.MaxRetries), ctx))
	if err != nil {
		return fmt.Errorf("sending email to %s: %w", msg.To, err)
	}

	s.logger.Debug().Str("to", msg.To).Str("subject", msg.Subject).Msg("Email delivered")
	return nil
}

func (s *SMTPSender) sendOnce(msg *Message) error {
	from := s.config.From
	if from == "" {
		from = s.config.Username
	}

	body := []byte(
		fmt.Sprintf("From: %s\r\n", from) +
			fmt.Sprintf("To: %s\r\n", msg.To) +
			fmt.Sprintf("Subject: %s\r\n", msg.Subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=\"utf-8\"\r\n" +
			"\r\n" +
			msg.HTMLBody,
	)

	addr := s.config.Host + ":" + s.config.Port

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.config.Host})
	if err != nil {
		return fmt.Errorf("dialing %s: %w", addr, err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Quit()

	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing message: %w", err)
	}

	return nil
}
