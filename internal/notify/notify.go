package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/civicdesk/issue-reporter/internal/config"
	"github.com/civicdesk/issue-reporter/internal/domain"
)

// EmailSender delivers a single email.
type EmailSender interface {
	SendEmail(ctx context.Context, toEmail, toName, subject, text, html string) error
}

// SMSSender delivers a single text message.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// OTPDelivery sends one-time codes over the channel picked for the identifier.
type OTPDelivery interface {
	DeliverOTP(ctx context.Context, identifier, code string, purpose domain.OTPPurpose, ttl time.Duration) (domain.OTPChannel, error)
}

// Router picks email for identifiers containing '@' and SMS for everything else.
type Router struct {
	email EmailSender
	sms   SMSSender
}

// NewRouter builds a router over the given senders.
func NewRouter(email EmailSender, sms SMSSender) *Router {
	return &Router{email: email, sms: sms}
}

// NewRouterFromConfig wires MailerSend and Twilio when credentials are present,
// falling back to senders that only log the message.
func NewRouterFromConfig(mail config.MailConfig, sms config.SMSConfig, logger *zap.Logger) *Router {
	var email EmailSender = NewLogSender(logger)
	if mailer := NewMailerSend(mail); mailer.Enabled() {
		email = mailer
	} else {
		logger.Warn("MAILERSEND_API_KEY not set; OTP emails will be logged only")
	}

	var text SMSSender = NewLogSender(logger)
	if twilio := NewTwilioSMS(sms); twilio.Enabled() {
		text = twilio
	} else {
		logger.Warn("Twilio credentials not set; OTP SMS will be logged only")
	}
	return NewRouter(email, text)
}

// DeliverOTP renders and sends the code.
func (r *Router) DeliverOTP(ctx context.Context, identifier, code string, purpose domain.OTPPurpose, ttl time.Duration) (domain.OTPChannel, error) {
	channel := domain.ChannelFor(identifier)
	text := otpText(code, purpose, ttl)

	var err error
	switch channel {
	case domain.OTPChannelEmail:
		err = r.email.SendEmail(ctx, identifier, "", otpSubject(purpose), text, otpHTML(code, purpose, ttl))
	default:
		err = r.sms.SendSMS(ctx, identifier, text)
	}
	if err != nil {
		return channel, fmt.Errorf("deliver otp via %s: %w", channel, err)
	}
	return channel, nil
}

func otpSubject(purpose domain.OTPPurpose) string {
	if purpose == domain.OTPPurposeSignup {
		return "Verify your Civic Desk account"
	}
	return "Your Civic Desk login code"
}

func otpText(code string, purpose domain.OTPPurpose, ttl time.Duration) string {
	return fmt.Sprintf("Your Civic Desk %s code is %s. It expires in %d minutes.", purpose, code, int(ttl.Minutes()))
}

func otpHTML(code string, purpose domain.OTPPurpose, ttl time.Duration) string {
	return fmt.Sprintf(`<p>Your Civic Desk %s code is <strong style="font-size: 22px;">%s</strong></p>
<p>It expires in %d minutes. If you did not request it, ignore this message.</p>`, purpose, code, int(ttl.Minutes()))
}
