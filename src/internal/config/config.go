package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const defaultConnectionString = "Host=localhost;Port=5432;Database=tenmo;Username=postgres;Password=postgres1;Timeout=30;CommandTimeout=30"
const defaultHTTPAddr = ":8080"
const defaultOpeningBalance = "1000.00"
const defaultIdempotencyTTL = 24 * time.Hour
const defaultBreakerMaxFailures = 5
const defaultBreakerTimeout = 30 * time.Second

// Config is the process configuration. An empty MigrationsDir selects the
// migrations embedded in the binary; an empty RedisAddr disables idempotency.
type Config struct {
	Env                string
	DatabaseDSN        string
	MigrationsDir      string
	HTTPAddr           string
	RedisAddr          string
	RedisPassword      string
	IdempotencyTTL     time.Duration
	BreakerMaxFailures uint32
	BreakerTimeout     time.Duration
	OpeningBalance     decimal.Decimal
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (Config, error) {
	_ = godotenv.Load()

	conn := envOrDefault("DATABASE_DSN", defaultConnectionString)

	ttl, err := durationEnv("IDEMPOTENCY_TTL", defaultIdempotencyTTL)
	if err != nil {
		return Config{}, err
	}

	breakerTimeout, err := durationEnv("BREAKER_TIMEOUT", defaultBreakerTimeout)
	if err != nil {
		return Config{}, err
	}

	maxFailures := uint32(defaultBreakerMaxFailures)
	if raw := strings.TrimSpace(os.Getenv("BREAKER_MAX_FAILURES")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || parsed == 0 {
			return Config{}, fmt.Errorf("BREAKER_MAX_FAILURES must be a positive integer")
		}
		maxFailures = uint32(parsed)
	}

	openingBalance, err := decimal.NewFromString(envOrDefault("OPENING_BALANCE", defaultOpeningBalance))
	if err != nil {
		return Config{}, fmt.Errorf("OPENING_BALANCE must be numeric: %w", err)
	}
	if openingBalance.IsNegative() {
		return Config{}, fmt.Errorf("OPENING_BALANCE cannot be negative")
	}

	return Config{
		Env:                envOrDefault("APP_ENV", "production"),
		DatabaseDSN:        normalizeConnectionString(conn),
		MigrationsDir:      strings.TrimSpace(os.Getenv("MIGRATIONS_DIR")),
		HTTPAddr:           envOrDefault("HTTP_ADDR", defaultHTTPAddr),
		RedisAddr:          strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		IdempotencyTTL:     ttl,
		BreakerMaxFailures: maxFailures,
		BreakerTimeout:     breakerTimeout,
		OpeningBalance:     openingBalance,
	}, nil
}

func envOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than zero", key)
	}
	return parsed, nil
}

// normalizeConnectionString turns the semicolon separated
// "Host=...;Database=..." form into a lib/pq keyword/value DSN. URLs and
// strings that are already in keyword/value form pass through untouched.
func normalizeConnectionString(raw string) string {
	if strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://") || !strings.Contains(raw, ";") {
		return raw
	}

	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	hasSSLMode := false

	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])

		switch key {
		case "host":
			out = append(out, "host="+val)
		case "port":
			out = append(out, "port="+val)
		case "database":
			out = append(out, "dbname="+val)
		case "username":
			out = append(out, "user="+val)
		case "password":
			out = append(out, "password="+val)
		case "timeout", "connect timeout":
			out = append(out, "connect_timeout="+val)
		case "commandtimeout", "command timeout":
			out = append(out, "statement_timeout="+val+"s")
		case "sslmode":
			hasSSLMode = true
			out = append(out, "sslmode="+val)
		default:
			out = append(out, key+"="+val)
		}
	}

	if len(out) == 0 {
		return raw
	}

	if !hasSSLMode {
		out = append(out, "sslmode=disable")
	}

	return strings.Join(out, " ")
}
