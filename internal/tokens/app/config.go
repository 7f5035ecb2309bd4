package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aussiebroadwan/adsync/internal/tokens/service"
	"github.com/aussiebroadwan/adsync/pkg/cronx"
	"github.com/aussiebroadwan/adsync/pkg/graphsdk"
)

const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

type Config struct {
	CredentialsStore        string // Optional: credential store driver (file, sqlite) (default: file)
	CredentialsFile         string // Optional: JSON credential file for the file driver (default: data/tokens.json)
	CredentialsDatabaseFile string // Optional: SQLite database for the sqlite driver (default: data/credentials.db)
	MasterKey               string // Optional: key material sealing credentials in sqlite
	MasterKeyPath           string // Optional: file holding the master key, wins over MasterKey

	GraphBaseURL        string        // Optional: Graph API base URL (default: https://graph.facebook.com)
	GraphAPIVersion     string        // Optional: Graph API version (default: v18.0)
	GraphTimeout        time.Duration // Optional: HTTP timeout per Graph request (default: 10s)
	GraphRateLimitRPS   float64       // Optional: outgoing requests per second, 0 disables (default: 5)
	GraphRateLimitBurst int           // Optional: outgoing burst (default: 5)

	RenewalSchedule    string        // Optional: cron spec of the renewal sweep (default: 0 2 * * *)
	RenewalThreshold   time.Duration // Optional: renew when less than this remains (default: 168h)
	RenewalCallTimeout time.Duration // Optional: bound on each exchange/introspect call (default: 30s)
	RenewalConcurrency int           // Optional: identities renewed in parallel (default: 1)

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // Status server port, 0 disables it (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
	AdminToken          string        // Optional: bearer token required to trigger sweeps over HTTP
}

func LoadConfig() Config {
	return Config{
		CredentialsStore:        getEnvOrDefault("CREDENTIALS_STORE", StoreFile),
		CredentialsFile:         getEnvOrDefault("CREDENTIALS_FILE", "data/tokens.json"),
		CredentialsDatabaseFile: getEnvOrDefault("CREDENTIALS_DATABASE_FILE", "data/credentials.db"),
		MasterKey:               os.Getenv("CREDENTIALS_MASTER_KEY"),
		MasterKeyPath:           os.Getenv("CREDENTIALS_MASTER_KEY_PATH"),

		GraphBaseURL:        getEnvOrDefault("GRAPH_BASE_URL", graphsdk.DefaultBaseURL),
		GraphAPIVersion:     getEnvOrDefault("GRAPH_API_VERSION", graphsdk.DefaultVersion),
		GraphTimeout:        getEnvDurationOrDefault("GRAPH_TIMEOUT", 10*time.Second),
		GraphRateLimitRPS:   getEnvFloatOrDefault("GRAPH_RATE_LIMIT_RPS", 5),
		GraphRateLimitBurst: getEnvIntOrDefault("GRAPH_RATE_LIMIT_BURST", 5),

		RenewalSchedule:    getEnvOrDefault("RENEWAL_SCHEDULE", service.DefaultSchedule),
		RenewalThreshold:   getEnvDurationOrDefault("RENEWAL_THRESHOLD", service.DefaultRenewalThreshold),
		RenewalCallTimeout: getEnvDurationOrDefault("RENEWAL_CALL_TIMEOUT", service.DefaultCallTimeout),
		RenewalConcurrency: getEnvIntOrDefault("RENEWAL_CONCURRENCY", 1),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		AdminToken:          os.Getenv("ADMIN_TOKEN"),
	}
}

// Validate reports every setting that would stop the service from working.
func (c Config) Validate() error {
	var errs []error

	switch c.CredentialsStore {
	case StoreFile:
		if c.CredentialsFile == "" {
			errs = append(errs, errors.New("CREDENTIALS_FILE must not be empty"))
		}
	case StoreSQLite:
		if c.CredentialsDatabaseFile == "" {
			errs = append(errs, errors.New("CREDENTIALS_DATABASE_FILE must not be empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("CREDENTIALS_STORE %q is not one of %s, %s", c.CredentialsStore, StoreFile, StoreSQLite))
	}

	if err := cronx.Validate(c.RenewalSchedule); err != nil {
		errs = append(errs, fmt.Errorf("RENEWAL_SCHEDULE: %w", err))
	}
	if c.RenewalThreshold <= 0 {
		errs = append(errs, errors.New("RENEWAL_THRESHOLD must be positive"))
	}
	if c.RenewalConcurrency < 1 {
		errs = append(errs, errors.New("RENEWAL_CONCURRENCY must be at least 1"))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
