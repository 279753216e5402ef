package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/civicdesk/issue-reporter/internal/config"
	"github.com/civicdesk/issue-reporter/internal/domain"
)

type recordingSender struct {
	to   string
	text string
	err  error
}

func (r *recordingSender) SendEmail(_ context.Context, toEmail, _ string, _ string, text, _ string) error {
	r.to, r.text = toEmail, text
	return r.err
}

func (r *recordingSender) SendSMS(_ context.Context, to, body string) error {
	r.to, r.text = to, body
	return r.err
}

func TestRouterPicksChannelByIdentifier(t *testing.T) {
	email, sms := &recordingSender{}, &recordingSender{}
	router := NewRouter(email, sms)

	channel, err := router.DeliverOTP(context.Background(), "a@example.com", "123456", domain.OTPPurposeLogin, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, domain.OTPChannelEmail, channel)
	assert.Equal(t, "a@example.com", email.to)
	assert.Contains(t, email.text, "123456")
	assert.Contains(t, email.text, "5 minutes")
	assert.Empty(t, sms.to)

	channel, err = router.DeliverOTP(context.Background(), "+919999999999", "654321", domain.OTPPurposeSignup, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, domain.OTPChannelSMS, channel)
	assert.Equal(t, "+919999999999", sms.to)
	assert.Contains(t, sms.text, "654321")
}

func TestRouterWrapsProviderFailure(t *testing.T) {
	boom := errors.New("provider down")
	router := NewRouter(&recordingSender{err: boom}, &recordingSender{})

	_, err := router.DeliverOTP(context.Background(), "a@example.com", "123456", domain.OTPPurposeLogin, time.Minute)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestRouterFromConfigFallsBackToLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	router := NewRouterFromConfig(config.MailConfig{}, config.SMSConfig{}, zap.New(core))

	_, err := router.DeliverOTP(context.Background(), "9999999999", "111222", domain.OTPPurposeLogin, time.Minute)
	require.NoError(t, err)

	sent := logs.FilterMessage("sms (not sent)").All()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].ContextMap()["body"], "111222")
}

func TestProvidersDisabledWithoutCredentials(t *testing.T) {
	mailer := NewMailerSend(config.MailConfig{FromEmail: "noreply@example.com"})
	assert.False(t, mailer.Enabled())
	assert.Error(t, mailer.SendEmail(context.Background(), "a@example.com", "", "s", "t", ""))

	sms := NewTwilioSMS(config.SMSConfig{TwilioAccountSID: "AC123"})
	assert.False(t, sms.Enabled())
	assert.Error(t, sms.SendSMS(context.Background(), "9999999999", "hi"))

	assert.True(t, NewTwilioSMS(config.SMSConfig{TwilioAccountSID: "AC123", TwilioAuthToken: "tok", TwilioFrom: "+15550000"}).Enabled())
	assert.True(t, NewMailerSend(config.MailConfig{MailerSendAPIKey: "key", FromEmail: "noreply@example.com"}).Enabled())
}
