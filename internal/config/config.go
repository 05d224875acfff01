package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Reservation modes.
const (
	ModeDirect  = "direct"
	ModePayment = "payment"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser string
	DBPass string // database password (optional)
	DBHost string
	DBPort string
	DBName string
	// MigrateOnStart creates missing tables before serving.
	MigrateOnStart bool

	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int

	LogLevel  string
	LogFormat string

	ReservationMode string // direct | payment

	RatesURL      string
	RatesTimeout  time.Duration
	RatesCacheTTL time.Duration

	PaymentURL          string
	PaymentClientID     string
	PaymentClientSecret string
	PaymentTimeout      time.Duration

	AMQPURL string // empty disables event publishing

	// ConsumerEnabled runs the audit-log consumer inside the server process.
	ConsumerEnabled bool
	AuditLogPath    string

	ImageDir      string
	MaxImageBytes int64

	// PriceRefreshAt is the daily UTC wall-clock time (HH:MM) of the price job.
	PriceRefreshAt string
	// PriceRefreshEnabled turns the daily job on or off.
	PriceRefreshEnabled bool

	ShutdownTimeout time.Duration
}

// Load reads configuration values from environment variables. Every missing
// required variable is reported in a single error.
func Load() (Config, error) {
	var missing []string
	must := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := Config{
		Env:            envStr("APP_ENV", "dev"),
		Port:           envStr("APP_PORT", "8080"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         envStr("DB_PORT", "3306"),
		DBName:         must("DB_NAME"),
		MigrateOnStart: envBool("DB_MIGRATE", true),

		JWTSecret:  must("JWT_SECRET"),
		AccessTTL:  time.Duration(envInt("ACCESS_TOKEN_TTL_MIN", 15)) * time.Minute,
		RefreshTTL: time.Duration(envInt("REFRESH_TOKEN_TTL_DAYS", 7)) * 24 * time.Hour,
		BcryptCost: envInt("BCRYPT_COST", 10),

		LogLevel:  envStr("LOG_LEVEL", "info"),
		LogFormat: envStr("LOG_FORMAT", "json"),

		ReservationMode: strings.ToLower(envStr("RESERVATION_MODE", ModeDirect)),

		RatesURL:      envStr("RATES_URL", "https://api.frankfurter.dev/v1"),
		RatesTimeout:  envDur("RATES_TIMEOUT", 5*time.Second),
		RatesCacheTTL: envDur("RATES_CACHE_TTL", 10*time.Minute),

		PaymentURL:          envStr("PAYMENT_URL", "https://api-m.sandbox.paypal.com"),
		PaymentClientID:     os.Getenv("PAYMENT_CLIENT_ID"),
		PaymentClientSecret: os.Getenv("PAYMENT_CLIENT_SECRET"),
		PaymentTimeout:      envDur("PAYMENT_TIMEOUT", 10*time.Second),

		AMQPURL:         firstEnv("RABBITMQ_URL", "AMQP_URL"),
		ConsumerEnabled: envBool("RESERVATION_CONSUMER", true),
		AuditLogPath:    envStr("AUDIT_LOG_PATH", "logs/reservations.log"),

		ImageDir:      envStr("IMAGE_DIR", "images"),
		MaxImageBytes: int64(envInt("MAX_IMAGE_BYTES", 5<<20)),

		PriceRefreshAt:      envStr("PRICE_REFRESH_AT", "17:00"),
		PriceRefreshEnabled: envBool("PRICE_REFRESH_ENABLED", true),

		ShutdownTimeout: envDur("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	if len(missing) > 0 {
		return cfg, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var errs []error
	if c.ReservationMode != ModeDirect && c.ReservationMode != ModePayment {
		errs = append(errs, fmt.Errorf("RESERVATION_MODE must be %q or %q, got %q", ModeDirect, ModePayment, c.ReservationMode))
	}
	if c.ReservationMode == ModePayment && (c.PaymentClientID == "" || c.PaymentClientSecret == "") {
		errs = append(errs, errors.New("payment mode requires PAYMENT_CLIENT_ID and PAYMENT_CLIENT_SECRET"))
	}
	if _, err := time.Parse("15:04", c.PriceRefreshAt); err != nil {
		errs = append(errs, fmt.Errorf("PRICE_REFRESH_AT must be HH:MM, got %q", c.PriceRefreshAt))
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	}
	return errors.Join(errs...)
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
