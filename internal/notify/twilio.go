package notify

import (
	"context"
	"errors"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/civicdesk/issue-reporter/internal/config"
)

// TwilioSMS delivers text messages through the Twilio messaging API.
type TwilioSMS struct {
	client  *twilio.RestClient
	from    string
	enabled bool
}

// NewTwilioSMS builds a client; it stays disabled unless SID, token and sender are set.
func NewTwilioSMS(cfg config.SMSConfig) *TwilioSMS {
	t := &TwilioSMS{
		from:    cfg.TwilioFrom,
		enabled: cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" && cfg.TwilioFrom != "",
	}
	if t.enabled {
		t.client = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.TwilioAccountSID,
			Password: cfg.TwilioAuthToken,
		})
	}
	return t
}

// Enabled reports whether credentials were configured.
func (t *TwilioSMS) Enabled() bool { return t.enabled }

// SendSMS sends body to the given number. The Twilio client is not context aware,
// so ctx is only checked before the call.
func (t *TwilioSMS) SendSMS(ctx context.Context, to, body string) error {
	if !t.enabled {
		return errors.New("twilio disabled (missing TWILIO_SID, TWILIO_AUTH or TWILIO_PHONE)")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.from)
	params.SetBody(body)

	_, err := t.client.Api.CreateMessage(params)
	return err
}
