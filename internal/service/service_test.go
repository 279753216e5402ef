package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/civicdesk/issue-reporter/internal/auth"
	"github.com/civicdesk/issue-reporter/internal/config"
	"github.com/civicdesk/issue-reporter/internal/domain"
	"github.com/civicdesk/issue-reporter/internal/events"
	"github.com/civicdesk/issue-reporter/internal/observability"
	"github.com/civicdesk/issue-reporter/internal/repository"
)

type captureDelivery struct {
	mu    sync.Mutex
	codes map[string]string
	err   error
}

func (c *captureDelivery) DeliverOTP(_ context.Context, identifier, code string, _ domain.OTPPurpose, _ time.Duration) (domain.OTPChannel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return domain.ChannelFor(identifier), c.err
	}
	c.codes[identifier] = code
	return domain.ChannelFor(identifier), nil
}

func (c *captureDelivery) last(identifier string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codes[identifier]
}

type fixture struct {
	store      *repository.MemoryStore
	redis      *miniredis.Miniredis
	tokens     *auth.TokenService
	dispatcher events.Dispatcher
	delivery   *captureDelivery
	auth       *AuthService
	otp        *OTPService
	published  []events.EventType
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	authCfg := config.AuthConfig{
		AccessTokenSecret:     "access-secret",
		RefreshTokenSecret:    "refresh-secret",
		AccessTokenTTLMinutes: 15,
		RefreshTokenTTLHours:  168,
		BcryptCost:            4,
	}
	otpCfg := config.OTPConfig{Length: 6, TTLMinutes: 5, MaxAttempts: 3, VerifiedTTLMinutes: 10, RetentionMinutes: 10}

	f := &fixture{
		store:      repository.NewMemoryStore(),
		redis:      mr,
		tokens:     auth.NewTokenService(authCfg),
		dispatcher: events.NewInMemoryDispatcher(nil),
		delivery:   &captureDelivery{codes: map[string]string{}},
	}
	for _, eventType := range events.AllEventTypes {
		f.dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			f.published = append(f.published, e.Type)
			return nil
		})
	}

	metrics := observability.NewMetrics()
	f.auth = NewAuthService(authCfg, AuthDependencies{
		UserRepo:       f.store.Users(),
		StaffRepo:      f.store.Staff(),
		AdminRepo:      f.store.Admins(),
		RevocationRepo: repository.NewRevocationRepository(client),
		Tokens:         f.tokens,
		Dispatcher:     f.dispatcher,
		Metrics:        metrics,
	})
	f.otp = NewOTPService(otpCfg, OTPDependencies{
		OTPRepo:    repository.NewOTPRepository(client),
		UserRepo:   f.store.Users(),
		StaffRepo:  f.store.Staff(),
		AdminRepo:  f.store.Admins(),
		Delivery:   f.delivery,
		Sessions:   f.auth,
		Dispatcher: f.dispatcher,
		Metrics:    metrics,
	})
	return f
}

func (f *fixture) signupUser(t *testing.T) *Session {
	t.Helper()
	session, err := f.auth.SignupUser(context.Background(), UserSignupInput{
		Name:     "A",
		Email:    "a@x.com",
		Password: "pw12345",
		Phone:    "9999999999",
	})
	require.NoError(t, err)
	return session
}

func (f *fixture) superadmin(t *testing.T) *auth.Principal {
	t.Helper()
	created, err := f.auth.EnsureBootstrapAdmin(context.Background(), config.BootstrapConfig{
		AdminName:     "Root",
		AdminEmail:    "root@example.com",
		AdminPassword: "rootpass1",
	})
	require.NoError(t, err)
	require.True(t, created)

	session, err := f.auth.LoginAdmin(context.Background(), "root@example.com", "rootpass1")
	require.NoError(t, err)
	return session.Principal
}
