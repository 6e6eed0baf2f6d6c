// internal/app/system/mailer/mailer.go

// Package mailer delivers application email over SMTP.
//
// The zero external-dependency transport is deliberate: delivery targets are
// plain SMTP endpoints (Mailpit locally, SES or similar in production), and
// net/smtp covers AUTH PLAIN plus multipart text/HTML, which is all this app
// sends.
package mailer

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Email is a single outbound message. TextBody and HTMLBody are sent as
// multipart/alternative when both are present.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Mailer sends Email over a configured SMTP endpoint.
type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string // e.g. "noreply@floatchat.com"
	FromName string // e.g. "floatChat"
	Log      *zap.Logger
}

// New creates a Mailer. Username may be empty for unauthenticated endpoints
// (Mailpit and friends).
func New(host string, port int, username, password, from, fromName string, logger *zap.Logger) *Mailer {
	return &Mailer{
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		From:     from,
		FromName: fromName,
		Log:      logger,
	}
}

const multipartBoundary = "floatchat-mail-boundary"

// Send delivers the message, honoring ctx cancellation for the dial phase.
// An error here means the message was not accepted by the SMTP server; the
// signup flow treats that as a failure the user sees.
func (m *Mailer) Send(ctx context.Context, e Email) error {
	if e.To == "" {
		return fmt.Errorf("mailer: empty recipient")
	}

	addr := net.JoinHostPort(m.Host, fmt.Sprint(m.Port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", addr, err)
	}

	c, err := smtp.NewClient(conn, m.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(nil); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}

	if m.Username != "" {
		auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := c.Mail(m.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(e.To); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := wc.Write([]byte(m.buildMessage(e))); err != nil {
		wc.Close()
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("smtp close body: %w", err)
	}

	if err := c.Quit(); err != nil {
		// Message already accepted; a failed QUIT is not a delivery failure.
		m.Log.Debug("smtp quit failed", zap.Error(err))
	}

	m.Log.Info("email sent",
		zap.String("to", e.To),
		zap.String("subject", e.Subject))

	return nil
}

// buildMessage assembles the RFC 5322 message with a multipart/alternative
// body when both text and HTML are set.
func (m *Mailer) buildMessage(e Email) string {
	var b strings.Builder

	from := m.From
	if m.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", m.FromName), m.From)
	}

	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", e.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", e.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")

	switch {
	case e.HTMLBody != "" && e.TextBody != "":
		fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", multipartBoundary)
		fmt.Fprintf(&b, "--%s\r\n", multipartBoundary)
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		b.WriteString(e.TextBody)
		fmt.Fprintf(&b, "\r\n--%s\r\n", multipartBoundary)
		b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
		b.WriteString(e.HTMLBody)
		fmt.Fprintf(&b, "\r\n--%s--\r\n", multipartBoundary)
	case e.HTMLBody != "":
		b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
		b.WriteString(e.HTMLBody)
		b.WriteString("\r\n")
	default:
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		b.WriteString(e.TextBody)
		b.WriteString("\r\n")
	}

	return b.String()
}
