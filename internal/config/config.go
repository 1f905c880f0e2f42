package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SessionBackendMemory   = "memory"
	SessionBackendSQLite   = "sqlite"
	SessionBackendPostgres = "postgres"
	SessionBackendRedis    = "redis"
)

type Config struct {
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	RequestTimeout     time.Duration
	CORSOrigins        []string
	RateLimitRPM       int
	AuthRateLimitRPM   int

	UpstreamBaseURL        string
	UpstreamTimeout        time.Duration
	UpstreamMaxRetries     int
	UpstreamRetryBaseDelay time.Duration
	UpstreamRetryMaxDelay  time.Duration
	UpstreamRPS            float64

	SessionBackend    string
	SQLitePath        string
	DatabaseURL       string
	DBMaxConns        int32
	DBMinConns        int32
	RedisURL          string
	SessionCookieName string
	SessionIdleTTL    time.Duration
	CSRFAuthKey       string
	CookieSecure      bool

	NATSURL           string
	NATSSubjectPrefix string

	StripeSecretKey       string
	PaymentCurrency       string
	SimulatedPaymentDelay time.Duration
	BankName              string
	BankAccountName       string
	BankAccountNumber     string

	TaxRate            float64
	ServiceFee         int64
	RequireGuestFields bool

	DashboardPollInterval     time.Duration
	NotificationsPollInterval time.Duration
	ListingsPollInterval      time.Duration

	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		ServerReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 15*time.Second),
		ServerWriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 30*time.Second),
		CORSOrigins:        splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		RateLimitRPM:       getInt("RATE_LIMIT_RPM", 100),
		AuthRateLimitRPM:   getInt("AUTH_RATE_LIMIT_RPM", 10),

		UpstreamBaseURL:        getEnv("UPSTREAM_BASE_URL", "http://localhost:5000/api"),
		UpstreamTimeout:        getDuration("UPSTREAM_TIMEOUT", 10*time.Second),
		UpstreamMaxRetries:     getInt("UPSTREAM_MAX_RETRIES", 2),
		UpstreamRetryBaseDelay: getDuration("UPSTREAM_RETRY_BASE_DELAY", 200*time.Millisecond),
		UpstreamRetryMaxDelay:  getDuration("UPSTREAM_RETRY_MAX_DELAY", 3*time.Second),
		UpstreamRPS:            getFloat("UPSTREAM_RPS", 20),

		SessionBackend:    strings.ToLower(getEnv("SESSION_BACKEND", SessionBackendMemory)),
		SQLitePath:        getEnv("SQLITE_PATH", "./state/sessions.db"),
		DatabaseURL:       strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:        int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:        int32(getInt("DB_MIN_CONNS", 1)),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SessionCookieName: getEnv("SESSION_COOKIE_NAME", "sid"),
		SessionIdleTTL:    getDuration("SESSION_IDLE_TTL", 30*time.Minute),
		CSRFAuthKey:       strings.TrimSpace(os.Getenv("CSRF_AUTH_KEY")),
		CookieSecure:      getBool("COOKIE_SECURE", false),

		NATSURL:           strings.TrimSpace(os.Getenv("NATS_URL")),
		NATSSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "stayportal"),

		StripeSecretKey:       strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY")),
		PaymentCurrency:       strings.ToUpper(getEnv("PAYMENT_CURRENCY", "NGN")),
		SimulatedPaymentDelay: getDuration("SIMULATED_PAYMENT_DELAY", 1500*time.Millisecond),
		BankName:              getEnv("BANK_NAME", "Zenith Bank"),
		BankAccountName:       getEnv("BANK_ACCOUNT_NAME", "StayPortal Ltd"),
		BankAccountNumber:     getEnv("BANK_ACCOUNT_NUMBER", "1012345678"),

		TaxRate:            getFloat("TAX_RATE", 0.075),
		ServiceFee:         getInt64("SERVICE_FEE", 5000),
		RequireGuestFields: getBool("BOOKING_REQUIRE_GUEST_FIELDS", true),

		DashboardPollInterval:     getDuration("DASHBOARD_POLL_INTERVAL", 30*time.Second),
		NotificationsPollInterval: getDuration("NOTIFICATIONS_POLL_INTERVAL", 60*time.Second),
		ListingsPollInterval:      getDuration("LISTINGS_POLL_INTERVAL", 2*time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "pretty"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	base, err := url.Parse(c.UpstreamBaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return fmt.Errorf("UPSTREAM_BASE_URL must be an absolute URL")
	}

	if c.UpstreamMaxRetries < 0 {
		return fmt.Errorf("UPSTREAM_MAX_RETRIES cannot be negative")
	}

	switch c.SessionBackend {
	case SessionBackendMemory:
	case SessionBackendSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite session backend")
		}
	case SessionBackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres session backend")
		}
	case SessionBackendRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return fmt.Errorf("REDIS_URL is required for the redis session backend")
		}
	default:
		return fmt.Errorf("SESSION_BACKEND must be one of memory, sqlite, postgres, redis")
	}

	if c.SessionCookieName == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME cannot be empty")
	}

	if c.SessionIdleTTL <= 0 {
		return fmt.Errorf("SESSION_IDLE_TTL must be positive")
	}

	if c.CSRFAuthKey != "" && len(c.CSRFAuthKey) != 32 {
		return fmt.Errorf("CSRF_AUTH_KEY must be exactly 32 bytes")
	}

	if c.TaxRate < 0 || c.TaxRate >= 1 {
		return fmt.Errorf("TAX_RATE must be in [0, 1)")
	}

	if c.ServiceFee < 0 {
		return fmt.Errorf("SERVICE_FEE cannot be negative")
	}

	if c.DashboardPollInterval < 0 || c.NotificationsPollInterval < 0 || c.ListingsPollInterval < 0 {
		return fmt.Errorf("poll intervals cannot be negative")
	}

	return nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getInt64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}

	return v
}

func getFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
