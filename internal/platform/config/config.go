package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile      = ".env"
	defaultPort         = "8080"
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 120 * time.Second
	defaultPageSize     = 20
	maxPageSize         = 100
	defaultEventsTopic  = "shop-order-events"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Firebase  FirebaseConfig
	Firestore FirestoreConfig
	Dashboard DashboardConfig
	Events    EventsConfig
	Audit     AuditConfig
	Logging   LoggingConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirebaseConfig stores Firebase project settings used for token verification.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// DashboardConfig controls verification of back-office dashboard tokens.
type DashboardConfig struct {
	JWKSURL  string
	Issuer   string
	Audience string
}

// EventsConfig configures the Pub/Sub order event publisher.
type EventsConfig struct {
	ProjectID string
	Topic     string
	Disabled  bool
}

// AuditConfig controls how audit log entries are recorded.
type AuditConfig struct {
	// HashSalt is mixed into the hash of client IP addresses before storage.
	HashSalt string
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level       string
	Development bool
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values
// in the map take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env
// overrides, and environment variables.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if value, ok := dotEnvValues[key]; ok {
			return value, true
		}
		return "", false
	}

	getString := func(key, fallback string) string {
		if value, ok := lookup(key); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
		return fallback
	}

	var invalid []string

	getDuration := func(key string, fallback time.Duration) time.Duration {
		value, ok := lookup(key)
		if !ok || strings.TrimSpace(value) == "" {
			return fallback
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil || parsed <= 0 {
			invalid = append(invalid, key)
			return fallback
		}
		return parsed
	}

	getBool := func(key string, fallback bool) bool {
		value, ok := lookup(key)
		if !ok || strings.TrimSpace(value) == "" {
			return fallback
		}
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			invalid = append(invalid, key)
			return fallback
		}
		return parsed
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         getString("PORT", defaultPort),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Firebase: FirebaseConfig{
			ProjectID:       getString("FIREBASE_PROJECT_ID", ""),
			CredentialsFile: getString("FIREBASE_CREDENTIALS_FILE", ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:    getString("FIRESTORE_PROJECT_ID", getString("FIREBASE_PROJECT_ID", "")),
			EmulatorHost: getString("FIRESTORE_EMULATOR_HOST", ""),
		},
		Dashboard: DashboardConfig{
			JWKSURL:  getString("DASHBOARD_JWKS_URL", ""),
			Issuer:   getString("DASHBOARD_ISSUER", ""),
			Audience: getString("DASHBOARD_AUDIENCE", ""),
		},
		Events: EventsConfig{
			ProjectID: getString("EVENTS_PROJECT_ID", getString("FIRESTORE_PROJECT_ID", getString("FIREBASE_PROJECT_ID", ""))),
			Topic:     getString("EVENTS_TOPIC", defaultEventsTopic),
			Disabled:  getBool("EVENTS_DISABLED", false),
		},
		Audit: AuditConfig{
			HashSalt: getString("AUDIT_HASH_SALT", ""),
		},
		Logging: LoggingConfig{
			Level:       getString("LOG_LEVEL", "info"),
			Development: getBool("LOG_DEVELOPMENT", false),
		},
	}

	if cfg.Firestore.ProjectID == "" && cfg.Firestore.EmulatorHost == "" {
		invalid = append(invalid, "FIRESTORE_PROJECT_ID")
	}
	if port := cfg.Server.Port; port != "" {
		if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
			invalid = append(invalid, "PORT")
		}
	}

	if len(invalid) > 0 {
		return Config{}, &ValidationError{fields: invalid}
	}
	return cfg, nil
}

// DefaultPageSize reports the list page size applied when clients omit one.
func DefaultPageSize() int { return defaultPageSize }

// MaxPageSize caps client supplied page sizes.
func MaxPageSize() int { return maxPageSize }

func loadDotEnv(path string) (map[string]string, error) {
	values := make(map[string]string)
	if strings.TrimSpace(path) == "" {
		return values, nil
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return values, nil
		}
		return nil, fmt.Errorf("config: open env file %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: read env file %s: %w", path, err)
	}
	return values, nil
}
