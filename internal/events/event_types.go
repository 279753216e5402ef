package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/civicdesk/issue-reporter/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventPrincipalRegistered EventType = "principal.registered"
	EventPrincipalLoggedIn   EventType = "principal.logged_in"
	EventOTPIssued           EventType = "otp.issued"
	EventSessionRefreshed    EventType = "session.refreshed"
	EventSessionRevoked      EventType = "session.revoked"
	EventStaffApproved       EventType = "staff.approved"
)

// AllEventTypes lists every type the forwarder subscribes to.
var AllEventTypes = []EventType{
	EventPrincipalRegistered,
	EventPrincipalLoggedIn,
	EventOTPIssued,
	EventSessionRefreshed,
	EventSessionRevoked,
	EventStaffApproved,
}

// Actor identifies the principal an event is about.
type Actor struct {
	ID   string      `json:"id,omitempty"`
	Role domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, actor Actor, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// LoginPayload payload.
type LoginPayload struct {
	Method domain.AuthMethod `json:"method"`
}

// OTPIssuedPayload payload. The code itself is never published.
type OTPIssuedPayload struct {
	Identifier string            `json:"identifier"`
	Purpose    domain.OTPPurpose `json:"purpose"`
	Channel    domain.OTPChannel `json:"channel"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// StaffApprovedPayload payload.
type StaffApprovedPayload struct {
	StaffID    string `json:"staff_id"`
	ApprovedBy string `json:"approved_by"`
}
