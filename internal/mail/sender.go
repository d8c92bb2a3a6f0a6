// Package mail delivers license artifacts to buyers and notices to the
// operator through an SMTP boundary.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

//go:generate mockgen -destination=mocks/mock_sender.go -package=mocks github.com/phanesguild/licensegw/internal/mail Sender

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
	HTML    bool
}

// Sender abstracts the outbound mail transport. Success/failure is all the
// transport guarantees; no further diagnostics are assumed.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender sends mail over SMTP with optional PLAIN auth.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromEmail string
	fromName  string
	replyTo   string
}

var _ Sender = (*SMTPSender)(nil)

// NewSMTPSender creates an SMTPSender.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName, replyTo string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromEmail: fromEmail,
		fromName:  fromName,
		replyTo:   replyTo,
	}
}

// Send transmits one message. Blocking; honors ctx cancellation only up to
// the point of dialing (net/smtp has no context support beyond that).
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.To == "" {
		return fmt.Errorf("recipient is empty")
	}

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	if err := smtp.SendMail(addr, auth, s.fromEmail, []string{msg.To}, s.encode(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

// encode renders the RFC 5322 message bytes.
func (s *SMTPSender) encode(msg Message) []byte {
	contentType := "text/plain; charset=UTF-8"
	if msg.HTML {
		contentType = "text/html; charset=UTF-8"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", s.fromName, s.fromEmail)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	if s.replyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", s.replyTo)
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: %s\r\n", contentType)
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}
