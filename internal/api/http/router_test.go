package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/civicdesk/issue-reporter/internal/api/http/handlers"
	"github.com/civicdesk/issue-reporter/internal/auth"
	"github.com/civicdesk/issue-reporter/internal/config"
	"github.com/civicdesk/issue-reporter/internal/domain"
	"github.com/civicdesk/issue-reporter/internal/observability"
	"github.com/civicdesk/issue-reporter/internal/repository"
	"github.com/civicdesk/issue-reporter/internal/service"
)

type codeSink struct {
	mu    sync.Mutex
	codes map[string]string
}

func (s *codeSink) DeliverOTP(_ context.Context, identifier, code string, _ domain.OTPPurpose, _ time.Duration) (domain.OTPChannel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[identifier] = code
	return domain.ChannelFor(identifier), nil
}

func (s *codeSink) last(identifier string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[identifier]
}

type apiFixture struct {
	app   *fiber.App
	store *repository.MemoryStore
	codes *codeSink
}

type apiResponse struct {
	status  int
	body    map[string]any
	raw     string
	cookies []*stdhttp.Cookie
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	appCfg := config.AppConfig{Name: "civic-test", Env: "test", Version: "test"}
	authCfg := config.AuthConfig{
		AccessTokenSecret:     "access-secret",
		RefreshTokenSecret:    "refresh-secret",
		AccessTokenTTLMinutes: 15,
		RefreshTokenTTLHours:  168,
		BcryptCost:            4,
		AccessCookieName:      "accessToken",
		RefreshCookieName:     "refreshToken",
	}
	otpCfg := config.OTPConfig{Length: 6, TTLMinutes: 5, MaxAttempts: 5, VerifiedTTLMinutes: 10, RetentionMinutes: 10}

	store := repository.NewMemoryStore()
	codes := &codeSink{codes: map[string]string{}}
	metrics := observability.NewMetrics()
	tokens := auth.NewTokenService(authCfg)
	cookies := auth.NewCookieJar(authCfg, appCfg)

	authService := service.NewAuthService(authCfg, service.AuthDependencies{
		UserRepo:       store.Users(),
		StaffRepo:      store.Staff(),
		AdminRepo:      store.Admins(),
		RevocationRepo: repository.NewRevocationRepository(client),
		Tokens:         tokens,
		Metrics:        metrics,
	})
	otpService := service.NewOTPService(otpCfg, service.OTPDependencies{
		OTPRepo:   repository.NewOTPRepository(client),
		UserRepo:  store.Users(),
		StaffRepo: store.Staff(),
		AdminRepo: store.Admins(),
		Delivery:  codes,
		Sessions:  authService,
		Metrics:   metrics,
	})
	_, err := authService.EnsureBootstrapAdmin(context.Background(), config.BootstrapConfig{
		AdminName:     "Root",
		AdminEmail:    "root@example.com",
		AdminPassword: "rootpass1",
	})
	require.NoError(t, err)

	app := NewApp(appCfg, MiddlewareConfig{
		Logger:         zap.NewNop(),
		Metrics:        metrics,
		Timeout:        5 * time.Second,
		AllowedOrigins: []string{"http://localhost:5500"},
	}, RouteConfig{
		Health:         handlers.NewHealthHandler("civic-test", "test", map[string]handlers.Pinger{"redis": redisPinger{client}}),
		Users:          handlers.NewUsersHandler(authService, cookies),
		Staff:          handlers.NewStaffHandler(authService, cookies),
		Admin:          handlers.NewAdminHandler(authService, cookies),
		OTP:            handlers.NewOTPHandler(otpService, cookies),
		Session:        handlers.NewSessionHandler(authService, cookies),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, cookies, store.Users(), store.Staff(), store.Admins(), zap.NewNop()),
		Metrics:        metrics,
	})
	return &apiFixture{app: app, store: store, codes: codes}
}

type redisPinger struct{ client *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }

func (f *apiFixture) call(t *testing.T, method, path string, body any, headers map[string]string) apiResponse {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := apiResponse{status: resp.StatusCode, raw: string(raw), cookies: resp.Cookies()}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out.body))
	}
	return out
}

func (r apiResponse) cookie(name string) *stdhttp.Cookie {
	for _, c := range r.cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func (f *apiFixture) signup(t *testing.T) apiResponse {
	t.Helper()
	resp := f.call(t, fiber.MethodPost, "/api/users/signup", map[string]any{
		"name":     "A",
		"email":    "a@x.com",
		"password": "pw12345",
		"phone":    "9999999999",
	}, nil)
	require.Equal(t, fiber.StatusCreated, resp.status, resp.raw)
	return resp
}

func (f *apiFixture) adminToken(t *testing.T) string {
	t.Helper()
	resp := f.call(t, fiber.MethodPost, "/api/admin/login", map[string]any{"adminId": "root@example.com", "password": "rootpass1"}, nil)
	require.Equal(t, fiber.StatusOK, resp.status, resp.raw)
	return resp.body["accessToken"].(string)
}

func TestSignupReturnsUserWithoutPassword(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.signup(t)

	assert.Equal(t, true, resp.body["success"])
	assert.NotEmpty(t, resp.body["accessToken"])
	user := resp.body["user"].(map[string]any)
	assert.Equal(t, "a@x.com", user["email"])
	assert.Equal(t, "user", user["role"])
	assert.NotContains(t, resp.raw, "password")

	refresh := resp.cookie("refreshToken")
	require.NotNil(t, refresh)
	assert.True(t, refresh.HttpOnly)
	assert.Equal(t, stdhttp.SameSiteStrictMode, refresh.SameSite)
	assert.False(t, refresh.Secure)
	assert.NotNil(t, resp.cookie("accessToken"))
}

func TestSignupDuplicateAndValidation(t *testing.T) {
	f := newAPIFixture(t)
	f.signup(t)

	dup := f.call(t, fiber.MethodPost, "/api/users/signup", map[string]any{
		"name": "B", "email": "A@X.com", "password": "pw12345",
	}, nil)
	assert.Equal(t, fiber.StatusBadRequest, dup.status)
	assert.Equal(t, false, dup.body["success"])
	assert.Equal(t, "CONFLICT", dup.body["code"])

	invalid := f.call(t, fiber.MethodPost, "/api/users/signup", map[string]any{"email": "nope"}, nil)
	assert.Equal(t, fiber.StatusBadRequest, invalid.status)
	assert.Equal(t, "VALIDATION_FAILED", invalid.body["code"])
	assert.Contains(t, invalid.body["details"], "name")
}

func TestLoginErrors(t *testing.T) {
	f := newAPIFixture(t)
	f.signup(t)

	wrong := f.call(t, fiber.MethodPost, "/api/users/login", map[string]any{"identifier": "a@x.com", "password": "nope123"}, nil)
	assert.Equal(t, fiber.StatusBadRequest, wrong.status)
	assert.Equal(t, "Invalid Credentials", wrong.body["message"])
	assert.NotContains(t, wrong.body, "stack")

	unknown := f.call(t, fiber.MethodPost, "/api/users/login", map[string]any{"identifier": "ghost@x.com", "password": "pw12345"}, nil)
	assert.Equal(t, fiber.StatusNotFound, unknown.status)

	ok := f.call(t, fiber.MethodPost, "/api/users/login", map[string]any{"identifier": "9999999999", "password": "pw12345"}, nil)
	assert.Equal(t, fiber.StatusOK, ok.status)
	assert.NotEmpty(t, ok.body["accessToken"])
}

func TestOtpRequestVerifyLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	f.signup(t)

	resp := f.call(t, fiber.MethodPost, "/api/otp/request", map[string]any{"identifier": "a@x.com", "userType": "user", "purpose": "login"}, nil)
	require.Equal(t, fiber.StatusOK, resp.status, resp.raw)
	code := f.codes.last("a@x.com")
	require.Len(t, code, 6)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	bad := f.call(t, fiber.MethodPost, "/api/otp/verify", map[string]any{"identifier": "a@x.com", "otp": wrong, "purpose": "login"}, nil)
	assert.Equal(t, fiber.StatusBadRequest, bad.status)
	assert.Equal(t, "INVALID_OTP", bad.body["code"])

	good := f.call(t, fiber.MethodPost, "/api/otp/verify", map[string]any{"identifier": "a@x.com", "otp": code, "purpose": "login"}, nil)
	assert.Equal(t, fiber.StatusOK, good.status, good.raw)

	again := f.call(t, fiber.MethodPost, "/api/otp/verify", map[string]any{"identifier": "a@x.com", "otp": code, "purpose": "login"}, nil)
	assert.Equal(t, fiber.StatusBadRequest, again.status)
	assert.Equal(t, "OTP already used", again.body["message"])
}

func TestOtpLoginAndSignup(t *testing.T) {
	f := newAPIFixture(t)

	missing := f.call(t, fiber.MethodPost, "/api/otp/request", map[string]any{"identifier": "b@x.com", "purpose": "login"}, nil)
	assert.Equal(t, fiber.StatusNotFound, missing.status)

	resp := f.call(t, fiber.MethodPost, "/api/otp/request", map[string]any{"identifier": "b@x.com", "purpose": "signup"}, nil)
	require.Equal(t, fiber.StatusOK, resp.status, resp.raw)
	signup := f.call(t, fiber.MethodPost, "/api/otp/signup/user", map[string]any{
		"name": "B", "email": "b@x.com", "otp": f.codes.last("b@x.com"),
		"address": map[string]any{"city": "Pune"},
	}, nil)
	require.Equal(t, fiber.StatusCreated, signup.status, signup.raw)
	assert.Equal(t, "Pune", signup.body["user"].(map[string]any)["address"].(map[string]any)["city"])

	resp = f.call(t, fiber.MethodPost, "/api/otp/request", map[string]any{"identifier": "b@x.com", "purpose": "login"}, nil)
	require.Equal(t, fiber.StatusOK, resp.status, resp.raw)
	login := f.call(t, fiber.MethodPost, "/api/otp/login/user", map[string]any{"identifier": "b@x.com", "otp": f.codes.last("b@x.com")}, nil)
	require.Equal(t, fiber.StatusOK, login.status, login.raw)
	assert.NotEmpty(t, login.body["accessToken"])
	assert.NotNil(t, login.cookie("refreshToken"))

	unknownRole := f.call(t, fiber.MethodPost, "/api/otp/login/janitor", map[string]any{"identifier": "b@x.com", "otp": "123456"}, nil)
	assert.Equal(t, fiber.StatusNotFound, unknownRole.status)
}

func TestOtpResendKeepsIssuedRole(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.call(t, fiber.MethodPost, "/api/otp/request", map[string]any{"identifier": "root@example.com", "userType": "admin", "purpose": "login"}, nil)
	require.Equal(t, fiber.StatusOK, resp.status, resp.raw)

	resent := f.call(t, fiber.MethodPost, "/api/otp/resend", map[string]any{"identifier": "root@example.com", "purpose": "login"}, nil)
	require.Equal(t, fiber.StatusOK, resent.status, resent.raw)
	assert.Equal(t, "OTP resent", resent.body["message"])

	login := f.call(t, fiber.MethodPost, "/api/otp/login/admin", map[string]any{"identifier": "root@example.com", "otp": f.codes.last("root@example.com")}, nil)
	require.Equal(t, fiber.StatusOK, login.status, login.raw)
	assert.Equal(t, "superadmin", login.body["admin"].(map[string]any)["role"])
}

func TestOtpSignupConflictDoesNotSpendCode(t *testing.T) {
	f := newAPIFixture(t)
	f.signup(t)

	resp := f.call(t, fiber.MethodPost, "/api/otp/request", map[string]any{"identifier": "c@x.com", "purpose": "signup"}, nil)
	require.Equal(t, fiber.StatusOK, resp.status, resp.raw)
	code := f.codes.last("c@x.com")

	taken := f.call(t, fiber.MethodPost, "/api/otp/signup/user", map[string]any{
		"name": "C", "email": "c@x.com", "phone": "9999999999", "otp": code,
	}, nil)
	require.Equal(t, fiber.StatusBadRequest, taken.status, taken.raw)
	assert.Equal(t, "CONFLICT", taken.body["code"])
	assert.Equal(t, "phone", taken.body["details"].(map[string]any)["field"])

	retry := f.call(t, fiber.MethodPost, "/api/otp/signup/user", map[string]any{
		"name": "C", "email": "c@x.com", "phone": "9777777777", "otp": code,
	}, nil)
	require.Equal(t, fiber.StatusCreated, retry.status, retry.raw)
	assert.Equal(t, "9777777777", retry.body["user"].(map[string]any)["phone"])
}

func TestRefreshAndLogout(t *testing.T) {
	f := newAPIFixture(t)
	refresh := f.signup(t).cookie("refreshToken")
	require.NotNil(t, refresh)
	cookieHeader := map[string]string{"Cookie": "refreshToken=" + refresh.Value}

	ok := f.call(t, fiber.MethodPost, "/api/auth/refresh", nil, cookieHeader)
	require.Equal(t, fiber.StatusOK, ok.status, ok.raw)
	access := ok.body["accessToken"].(string)
	me := f.call(t, fiber.MethodGet, "/api/auth/me", nil, bearer(access))
	require.Equal(t, fiber.StatusOK, me.status, me.raw)
	assert.Equal(t, "a@x.com", me.body["user"].(map[string]any)["email"])

	missing := f.call(t, fiber.MethodPost, "/api/auth/refresh", nil, nil)
	assert.Equal(t, fiber.StatusUnauthorized, missing.status)

	forged := f.call(t, fiber.MethodPost, "/api/auth/refresh", nil, map[string]string{"Cookie": "refreshToken=" + access})
	assert.Equal(t, fiber.StatusUnauthorized, forged.status)
	cleared := forged.cookie("refreshToken")
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	logout := f.call(t, fiber.MethodPost, "/api/auth/logout", nil, cookieHeader)
	assert.Equal(t, fiber.StatusOK, logout.status)
	revoked := f.call(t, fiber.MethodPost, "/api/auth/refresh", nil, cookieHeader)
	assert.Equal(t, fiber.StatusUnauthorized, revoked.status)
}

func TestStaffApprovalAndRoleGates(t *testing.T) {
	f := newAPIFixture(t)

	reg := f.call(t, fiber.MethodPost, "/api/staff/register", map[string]any{
		"name": "S", "email": "s@x.com", "password": "staffpw1", "staffId": "S-1", "phone": "8888888888",
	}, nil)
	require.Equal(t, fiber.StatusCreated, reg.status, reg.raw)
	staff := reg.body["staff"].(map[string]any)
	assert.Equal(t, false, staff["approved"])
	assert.NotContains(t, reg.body, "accessToken")

	pending := f.call(t, fiber.MethodPost, "/api/staff/login", map[string]any{"staffId": "S-1", "password": "staffpw1"}, nil)
	assert.Equal(t, fiber.StatusForbidden, pending.status)

	adminToken := f.adminToken(t)
	approve := f.call(t, fiber.MethodPatch, "/api/admin/staff/"+staff["id"].(string)+"/approve", nil, bearer(adminToken))
	require.Equal(t, fiber.StatusOK, approve.status, approve.raw)

	login := f.call(t, fiber.MethodPost, "/api/staff/login", map[string]any{"staffId": "S-1", "password": "staffpw1"}, nil)
	require.Equal(t, fiber.StatusOK, login.status, login.raw)
	staffToken := login.body["accessToken"].(string)

	denied := f.call(t, fiber.MethodGet, "/api/admin/profile", nil, bearer(staffToken))
	assert.Equal(t, fiber.StatusForbidden, denied.status)
	assert.Equal(t, "FORBIDDEN", denied.body["code"])

	profile := f.call(t, fiber.MethodGet, "/api/staff/profile", nil, bearer(staffToken))
	assert.Equal(t, fiber.StatusOK, profile.status)

	list := f.call(t, fiber.MethodGet, "/api/staff", nil, bearer(adminToken))
	require.Equal(t, fiber.StatusOK, list.status, list.raw)
	assert.EqualValues(t, 1, list.body["count"])

	hidden := f.call(t, fiber.MethodGet, "/api/staff?approved=false", nil, bearer(staffToken))
	assert.Equal(t, fiber.StatusForbidden, hidden.status)
	visible := f.call(t, fiber.MethodGet, "/api/staff", nil, bearer(staffToken))
	assert.Equal(t, fiber.StatusOK, visible.status)
	pendingList := f.call(t, fiber.MethodGet, "/api/staff?approved=false", nil, bearer(adminToken))
	require.Equal(t, fiber.StatusOK, pendingList.status, pendingList.raw)
	assert.EqualValues(t, 0, pendingList.body["count"])

	adminProfile := f.call(t, fiber.MethodGet, "/api/admin/profile", nil, bearer(adminToken))
	assert.Equal(t, fiber.StatusOK, adminProfile.status)
	assert.Equal(t, "superadmin", adminProfile.body["admin"].(map[string]any)["role"])

	userToken := f.signup(t).body["accessToken"].(string)
	userDenied := f.call(t, fiber.MethodGet, "/api/staff", nil, bearer(userToken))
	assert.Equal(t, fiber.StatusForbidden, userDenied.status)
}

func TestCreateAdminRequiresPermission(t *testing.T) {
	f := newAPIFixture(t)
	rootToken := f.adminToken(t)

	created := f.call(t, fiber.MethodPost, "/api/admin/admins", map[string]any{
		"name": "Ops", "email": "ops@example.com", "password": "opspass1",
	}, bearer(rootToken))
	require.Equal(t, fiber.StatusCreated, created.status, created.raw)
	assert.Equal(t, "admin", created.body["admin"].(map[string]any)["role"])

	login := f.call(t, fiber.MethodPost, "/api/admin/login", map[string]any{"identifier": "ops@example.com", "password": "opspass1"}, nil)
	require.Equal(t, fiber.StatusOK, login.status, login.raw)

	denied := f.call(t, fiber.MethodPost, "/api/admin/admins", map[string]any{
		"name": "X", "email": "x@example.com", "password": "xpass12",
	}, bearer(login.body["accessToken"].(string)))
	assert.Equal(t, fiber.StatusForbidden, denied.status)
}

func TestUnauthenticatedAndUnknownRoutes(t *testing.T) {
	f := newAPIFixture(t)

	noToken := f.call(t, fiber.MethodGet, "/api/auth/me", nil, nil)
	assert.Equal(t, fiber.StatusUnauthorized, noToken.status)
	assert.Equal(t, false, noToken.body["success"])
	assert.Equal(t, "UNAUTHENTICATED", noToken.body["code"])

	unknown := f.call(t, fiber.MethodGet, "/api/nothing-here", nil, nil)
	assert.Equal(t, fiber.StatusNotFound, unknown.status)
	assert.Equal(t, "NOT_FOUND", unknown.body["code"])
}

func TestHealthAndMetrics(t *testing.T) {
	f := newAPIFixture(t)

	health := f.call(t, fiber.MethodGet, "/api/health", nil, nil)
	require.Equal(t, fiber.StatusOK, health.status)
	assert.Equal(t, true, health.body["success"])
	assert.NotEmpty(t, health.body["timestamp"])

	ready := f.call(t, fiber.MethodGet, "/api/health/ready", nil, nil)
	require.Equal(t, fiber.StatusOK, ready.status, ready.raw)
	assert.Equal(t, "ok", ready.body["dependencies"].(map[string]any)["redis"])

	metrics := f.call(t, fiber.MethodGet, "/metrics", nil, nil)
	require.Equal(t, fiber.StatusOK, metrics.status)
	assert.Contains(t, metrics.raw, "civicdesk_http_requests_total")
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	f := newAPIFixture(t)
	req := httptest.NewRequest(fiber.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:5500")

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "http://localhost:5500", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestErrorMiddlewareRecoversPanics(t *testing.T) {
	for _, tc := range []struct {
		name       string
		production bool
		wantStack  bool
	}{
		{name: "development", production: false, wantStack: true},
		{name: "production", production: true, wantStack: false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(errorHandlingMiddleware(zap.NewNop(), nil, tc.production))
			app.Get("/boom", func(c *fiber.Ctx) error { panic("boom") })

			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/boom", nil), -1)
			require.NoError(t, err)
			defer resp.Body.Close()

			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
			assert.Equal(t, "Internal Server Error", body["message"])
			_, hasStack := body["stack"]
			assert.Equal(t, tc.wantStack, hasStack)
		})
	}
}

func TestOtpRateLimiter(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/otp", otpRateLimiter(2), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/otp", nil), -1)
		require.NoError(t, err)
		statuses = append(statuses, resp.StatusCode)
		resp.Body.Close()
	}
	assert.Equal(t, []int{fiber.StatusOK, fiber.StatusOK, fiber.StatusTooManyRequests}, statuses)
}
