// Package mail is the outbound e-mail boundary. Delivery is fire-and-forget:
// callers log failures and never roll back state because of them.
package mail

import (
	"context"
	"errors"
	"log"
	"strings"
)

// ErrNoRecipient is returned when a message has no destination address.
var ErrNoRecipient = errors.New("mail: missing recipient")

// Mailer sends a single message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// MailerFunc adapts a function to the Mailer interface.
type MailerFunc func(ctx context.Context, to, subject, body string) error

func (f MailerFunc) Send(ctx context.Context, to, subject, body string) error {
	return f(ctx, to, subject, body)
}

// ConsoleMailer writes messages to a logger instead of an SMTP relay.
type ConsoleMailer struct {
	from   string
	logger *log.Logger
}

// NewConsoleMailer builds a ConsoleMailer. A nil logger uses log.Default().
func NewConsoleMailer(from string, logger *log.Logger) *ConsoleMailer {
	if logger == nil {
		logger = log.Default()
	}
	return &ConsoleMailer{from: from, logger: logger}
}

func (m *ConsoleMailer) Send(ctx context.Context, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.logger.Printf("[mail] from=%s to=%s subject=%q\n%s", m.from, to, subject, body)
	return nil
}
