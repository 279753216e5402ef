package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/civicdesk/issue-reporter/internal/config"
)

// CookieJar writes and clears the session cookies.
type CookieJar struct {
	accessName  string
	refreshName string
	secure      bool
}

// NewCookieJar derives cookie settings from configuration. Cookies are Secure in production.
func NewCookieJar(cfg config.AuthConfig, app config.AppConfig) *CookieJar {
	return &CookieJar{
		accessName:  cfg.AccessCookieName,
		refreshName: cfg.RefreshCookieName,
		secure:      app.IsProduction(),
	}
}

// AccessName is the access token cookie name.
func (j *CookieJar) AccessName() string { return j.accessName }

// RefreshName is the refresh token cookie name.
func (j *CookieJar) RefreshName() string { return j.refreshName }

// SetAccess stores the access token cookie.
func (j *CookieJar) SetAccess(c *fiber.Ctx, token string, expiresAt time.Time) {
	c.Cookie(j.cookie(j.accessName, token, expiresAt))
}

// SetRefresh stores the refresh token cookie.
func (j *CookieJar) SetRefresh(c *fiber.Ctx, token string, expiresAt time.Time) {
	c.Cookie(j.cookie(j.refreshName, token, expiresAt))
}

// Clear expires both session cookies.
func (j *CookieJar) Clear(c *fiber.Ctx) {
	for _, name := range []string{j.accessName, j.refreshName} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HTTPOnly: true,
			Secure:   j.secure,
			SameSite: fiber.CookieSameSiteStrictMode,
		})
	}
}

func (j *CookieJar) cookie(name, value string, expiresAt time.Time) *fiber.Cookie {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   maxAge,
		HTTPOnly: true,
		Secure:   j.secure,
		SameSite: fiber.CookieSameSiteStrictMode,
	}
}
