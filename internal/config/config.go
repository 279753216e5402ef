package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envProduction = "production"

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	OTP       OTPConfig
	CORS      CORSConfig
	Mail      MailConfig
	SMS       SMSConfig
	Events    EventsConfig
	Bootstrap BootstrapConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines token and password parameters.
type AuthConfig struct {
	AccessTokenSecret     string
	RefreshTokenSecret    string
	AccessTokenTTLMinutes int
	RefreshTokenTTLHours  int
	BcryptCost            int
	AccessCookieName      string
	RefreshCookieName     string
}

// OTPConfig defines one-time code parameters.
type OTPConfig struct {
	Length             int
	TTLMinutes         int
	MaxAttempts        int
	VerifiedTTLMinutes int
	RetentionMinutes   int
	RateLimitPerMinute int
}

// CORSConfig is the explicit browser origin allow-list.
type CORSConfig struct {
	AllowedOrigins []string
}

// MailConfig configures OTP email delivery.
type MailConfig struct {
	MailerSendAPIKey string
	FromName         string
	FromEmail        string
}

// SMSConfig configures OTP SMS delivery.
type SMSConfig struct {
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
}

// EventsConfig configures the optional NATS forwarder.
type EventsConfig struct {
	NATSURL       string
	SubjectPrefix string
}

// BootstrapConfig seeds the first superadmin.
type BootstrapConfig struct {
	AdminName     string
	AdminEmail    string
	AdminPassword string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "civic-issue-reporter"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "3000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			AccessTokenSecret:     getEnv("ACCESS_TOKEN_SECRET", "dev-access-secret"),
			RefreshTokenSecret:    getEnv("REFRESH_TOKEN_SECRET", "dev-refresh-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("ACCESS_TOKEN_TTL_MINUTES", 15),
			RefreshTokenTTLHours:  getEnvAsInt("REFRESH_TOKEN_TTL_HOURS", 7*24),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 10),
			AccessCookieName:      getEnv("AUTH_ACCESS_COOKIE", "accessToken"),
			RefreshCookieName:     getEnv("AUTH_REFRESH_COOKIE", "refreshToken"),
		},
		OTP: OTPConfig{
			Length:             getEnvAsInt("OTP_LENGTH", 6),
			TTLMinutes:         getEnvAsInt("OTP_TTL_MINUTES", 5),
			MaxAttempts:        getEnvAsInt("OTP_MAX_ATTEMPTS", 5),
			VerifiedTTLMinutes: getEnvAsInt("OTP_VERIFIED_TTL_MINUTES", 10),
			RetentionMinutes:   getEnvAsInt("OTP_RETENTION_MINUTES", 10),
			RateLimitPerMinute: getEnvAsInt("OTP_RATE_LIMIT_PER_MINUTE", 0),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{
				"http://127.0.0.1:5500",
				"http://localhost:5500",
				"http://localhost:3000",
				"http://127.0.0.1:3000",
			}),
		},
		Mail: MailConfig{
			MailerSendAPIKey: os.Getenv("MAILERSEND_API_KEY"),
			FromName:         getEnv("MAIL_FROM_NAME", "Civic Desk"),
			FromEmail:        getEnv("MAIL_FROM_EMAIL", "noreply@example.com"),
		},
		SMS: SMSConfig{
			TwilioAccountSID: os.Getenv("TWILIO_SID"),
			TwilioAuthToken:  os.Getenv("TWILIO_AUTH"),
			TwilioFrom:       os.Getenv("TWILIO_PHONE"),
		},
		Events: EventsConfig{
			NATSURL:       os.Getenv("NATS_URL"),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "civicdesk.auth"),
		},
		Bootstrap: BootstrapConfig{
			AdminName:     getEnv("ADMIN_BOOTSTRAP_NAME", "Administrator"),
			AdminEmail:    os.Getenv("ADMIN_BOOTSTRAP_EMAIL"),
			AdminPassword: os.Getenv("ADMIN_BOOTSTRAP_PASSWORD"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service must not start with.
func (c *Config) Validate() error {
	var errs []error

	if c.App.IsProduction() {
		if c.Auth.AccessTokenSecret == "" || c.Auth.RefreshTokenSecret == "" {
			errs = append(errs, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET are required in production"))
		}
		if strings.HasPrefix(c.Auth.AccessTokenSecret, "dev-") || strings.HasPrefix(c.Auth.RefreshTokenSecret, "dev-") {
			errs = append(errs, errors.New("development token secrets are not allowed in production"))
		}
	}
	if c.Auth.AccessTokenSecret == c.Auth.RefreshTokenSecret {
		errs = append(errs, errors.New("access and refresh token secrets must differ"))
	}
	if c.Auth.AccessTokenTTLMinutes <= 0 || c.Auth.RefreshTokenTTLHours <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("AUTH_BCRYPT_COST out of range: %d", c.Auth.BcryptCost))
	}
	if c.OTP.Length < 4 || c.OTP.Length > 10 {
		errs = append(errs, fmt.Errorf("OTP_LENGTH out of range: %d", c.OTP.Length))
	}
	if c.OTP.TTLMinutes <= 0 || c.OTP.MaxAttempts <= 0 || c.OTP.VerifiedTTLMinutes <= 0 {
		errs = append(errs, errors.New("OTP TTLs and attempt limit must be positive"))
	}
	for _, origin := range c.CORS.AllowedOrigins {
		if origin == "*" {
			errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS must not contain '*' when credentials are allowed"))
		}
	}
	if (c.Bootstrap.AdminEmail == "") != (c.Bootstrap.AdminPassword == "") {
		errs = append(errs, errors.New("ADMIN_BOOTSTRAP_EMAIL and ADMIN_BOOTSTRAP_PASSWORD must be set together"))
	}

	return errors.Join(errs...)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// IsProduction reports whether the service runs with production hardening.
func (a AppConfig) IsProduction() bool {
	return strings.EqualFold(a.Env, envProduction)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AccessTTL returns the access token lifetime.
func (a AuthConfig) AccessTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// RefreshTTL returns the refresh token lifetime.
func (a AuthConfig) RefreshTTL() time.Duration {
	return time.Duration(a.RefreshTokenTTLHours) * time.Hour
}

// TTL returns the lifetime of a freshly issued code.
func (o OTPConfig) TTL() time.Duration {
	return time.Duration(o.TTLMinutes) * time.Minute
}

// VerifiedTTL returns how long a verified marker stays redeemable.
func (o OTPConfig) VerifiedTTL() time.Duration {
	return time.Duration(o.VerifiedTTLMinutes) * time.Minute
}

// Retention returns how long a dead record is kept after expiry.
func (o OTPConfig) Retention() time.Duration {
	if o.RetentionMinutes <= 0 {
		return 0
	}
	return time.Duration(o.RetentionMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
