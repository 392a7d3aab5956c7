package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/grantdesk/applicants/backend/config"
)

// MailMessage is one email carrying a generated document
type MailMessage struct {
	To          string
	Subject     string
	Body        string
	Filename    string
	ContentType string
	Attachment  []byte
}

// Mailer delivers generated documents to applicants
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends mail through a plain SMTP relay
type SMTPMailer struct {
	config *config.MailConfig
	send   sendFunc
}

func NewSMTPMailer(cfg *config.MailConfig) *SMTPMailer {
	return &SMTPMailer{config: cfg, send: smtp.SendMail}
}

func (m *SMTPMailer) Send(ctx context.Context, msg MailMessage) error {
	if msg.To == "" {
		return fmt.Errorf("%w: no recipient", ErrEmailDelivery)
	}

	body, err := buildMessage(m.config.From, msg, time.Now())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEmailDelivery, err)
	}

	var auth smtp.Auth
	if m.config.Username != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}
	addr := net.JoinHostPort(m.config.Host, strconv.Itoa(m.config.Port))

	// smtp.SendMail has no context support; give up waiting once ctx is done
	errc := make(chan error, 1)
	go func() { errc <- m.send(addr, auth, m.config.From, []string{msg.To}, body) }()
	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("%w: %w", ErrEmailDelivery, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrEmailDelivery, ctx.Err())
	}
}

func buildMessage(from string, msg MailMessage, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", w.Boundary())

	text, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/plain; charset=utf-8"},
		"Content-Transfer-Encoding": {"8bit"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := text.Write([]byte(msg.Body)); err != nil {
		return nil, err
	}

	if len(msg.Attachment) > 0 {
		part, err := w.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {msg.ContentType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": msg.Filename})},
		})
		if err != nil {
			return nil, err
		}
		if err := writeBase64Lines(part, msg.Attachment); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeBase64Lines wraps encoded output at 76 characters per line
func writeBase64Lines(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 0 {
		n := min(76, len(encoded))
		if _, err := w.Write([]byte(encoded[:n] + "\r\n")); err != nil {
			return err
		}
		encoded = encoded[n:]
	}
	return nil
}
