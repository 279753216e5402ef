package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"

	"github.com/civicdesk/issue-reporter/internal/config"
)

const sendTimeout = 10 * time.Second

// MailerSend delivers email through the MailerSend API.
type MailerSend struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	enabled bool
}

// NewMailerSend builds a client; it stays disabled without an API key and sender.
func NewMailerSend(cfg config.MailConfig) *MailerSend {
	m := &MailerSend{
		enabled: cfg.MailerSendAPIKey != "" && cfg.FromEmail != "",
		from: mailersend.From{
			Name:  cfg.FromName,
			Email: cfg.FromEmail,
		},
	}
	if m.enabled {
		m.client = mailersend.NewMailersend(cfg.MailerSendAPIKey)
	}
	return m
}

// Enabled reports whether credentials were configured.
func (m *MailerSend) Enabled() bool { return m.enabled }

func (m *MailerSend) SendEmail(ctx context.Context, toEmail, toName, subject, text, html string) error {
	if !m.enabled {
		return errors.New("mailersend disabled (missing MAILERSEND_API_KEY or MAIL_FROM_EMAIL)")
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)
	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	res, err := m.client.Email.Send(ctx, msg)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("mailersend error: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
