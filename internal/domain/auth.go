package domain

import "time"

// TokenPair is the result of a successful first-factor authentication.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// AuthMethod records how a principal proved its identity.
type AuthMethod string

const (
	AuthMethodPassword AuthMethod = "password"
	AuthMethodOTP      AuthMethod = "otp"
	AuthMethodRefresh  AuthMethod = "refresh"
)
