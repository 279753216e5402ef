package domain

import (
	"errors"
	"strings"
	"time"
)

// OTPPurpose scopes a one-time code to a single flow.
type OTPPurpose string

const (
	OTPPurposeSignup OTPPurpose = "signup"
	OTPPurposeLogin  OTPPurpose = "login"
)

// ErrUnknownPurpose is returned for purposes other than signup and login.
var ErrUnknownPurpose = errors.New("unknown otp purpose")

// ParseOTPPurpose normalizes raw into a purpose.
func ParseOTPPurpose(raw string) (OTPPurpose, error) {
	switch OTPPurpose(strings.ToLower(strings.TrimSpace(raw))) {
	case OTPPurposeSignup:
		return OTPPurposeSignup, nil
	case OTPPurposeLogin:
		return OTPPurposeLogin, nil
	default:
		return "", ErrUnknownPurpose
	}
}

// OTPChannel is the delivery medium for a code.
type OTPChannel string

const (
	OTPChannelEmail OTPChannel = "email"
	OTPChannelSMS   OTPChannel = "sms"
)

// ChannelFor picks email for identifiers containing '@', SMS otherwise.
func ChannelFor(identifier string) OTPChannel {
	if strings.Contains(identifier, "@") {
		return OTPChannelEmail
	}
	return OTPChannelSMS
}

// OTPRecord is the stored state of a single live code.
type OTPRecord struct {
	Identifier string
	Purpose    OTPPurpose
	Role       Role
	CodeHash   string
	ExpiresAt  time.Time
	Consumed   bool
	Attempts   int
}

// OTPVerdict is the outcome of a verification attempt.
type OTPVerdict int

const (
	OTPNotFound OTPVerdict = iota
	OTPAccepted
	OTPConsumed
	OTPExpired
	OTPMismatch
	OTPLocked
)

func (v OTPVerdict) String() string {
	switch v {
	case OTPAccepted:
		return "accepted"
	case OTPConsumed:
		return "consumed"
	case OTPExpired:
		return "expired"
	case OTPMismatch:
		return "mismatch"
	case OTPLocked:
		return "locked"
	default:
		return "not_found"
	}
}
