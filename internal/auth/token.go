package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/civicdesk/issue-reporter/internal/config"
	"github.com/civicdesk/issue-reporter/internal/domain"
)

var (
	// ErrTokenExpired means the signature was fine but the token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers bad signatures, malformed payloads and unknown roles.
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims describes the JWT payload shared by access and refresh tokens.
type Claims struct {
	ID   string      `json:"id"`
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies access and refresh tokens with distinct secrets.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenService builds a service from auth configuration.
func NewTokenService(cfg config.AuthConfig) *TokenService {
	return &TokenService{
		accessSecret:  []byte(cfg.AccessTokenSecret),
		refreshSecret: []byte(cfg.RefreshTokenSecret),
		accessTTL:     cfg.AccessTTL(),
		refreshTTL:    cfg.RefreshTTL(),
		now:           time.Now,
	}
}

// WithClock returns a copy that reads time from now. Used to simulate expiry.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	clone := *s
	clone.now = now
	return &clone
}

// AccessTTL returns the access token lifetime.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL returns the refresh token lifetime.
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// IssueTokenPair signs a fresh access and refresh token for the principal.
func (s *TokenService) IssueTokenPair(principalID string, role domain.Role) (domain.TokenPair, error) {
	access, accessExp, err := s.IssueAccessToken(principalID, role)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, refreshExp, err := s.sign(principalID, role, s.refreshSecret, s.refreshTTL)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// IssueAccessToken signs only a short-lived access token.
func (s *TokenService) IssueAccessToken(principalID string, role domain.Role) (string, time.Time, error) {
	return s.sign(principalID, role, s.accessSecret, s.accessTTL)
}

// VerifyAccessToken validates an access token and returns its claims.
func (s *TokenService) VerifyAccessToken(token string) (*Claims, error) {
	return s.parse(token, s.accessSecret)
}

// VerifyRefreshToken validates a refresh token and returns its claims.
func (s *TokenService) VerifyRefreshToken(token string) (*Claims, error) {
	return s.parse(token, s.refreshSecret)
}

func (s *TokenService) sign(principalID string, role domain.Role, secret []byte, ttl time.Duration) (string, time.Time, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(ttl)
	claims := &Claims{
		ID:   principalID,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   principalID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

func (s *TokenService) parse(tokenStr string, secret []byte) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return nil, ErrTokenInvalid
	}
	role, err := domain.ParseRole(string(claims.Role))
	if err != nil {
		return nil, ErrTokenInvalid
	}
	claims.Role = role
	return claims, nil
}
