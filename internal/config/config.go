package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Environment string `toml:"-"`

	Host string `toml:"host"`
	Port int    `toml:"port"`
	// public origins allowed to call the API from a browser
	AllowedOrigins []string `toml:"allowed_origins"`
	// cookies get the Secure attribute
	SecureCookies bool `toml:"secure_cookies"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// metrics
	PrometheusMetricsHost string `toml:"prom_metrics_host"`
	PrometheusMetricsPort string `toml:"prom_metrics_port"`

	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`
	PostgresUser   string `toml:"postgres_user"`
	RunMigrations  bool   `toml:"run_migrations"`

	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`

	// auth
	TokenTTL                    Duration `toml:"token_ttl"`
	LoginRateLimitAllowedPerMin int      `toml:"login_rate_limit_per_min"`

	// visitor telemetry
	TelemetryQueueSize   int  `toml:"telemetry_queue_size"`
	TelemetryWorkers     int  `toml:"telemetry_workers"`
	TelemetryMaxAttempts int  `toml:"telemetry_max_attempts"`
	GeoLookupEnabled     bool `toml:"geo_lookup_enabled"`

	// object storage for uploaded images
	S3Region        string `toml:"s3_region"`
	S3BaseEndpoint  string `toml:"s3_base_endpoint"`
	S3Bucket        string `toml:"s3_bucket"`
	S3PublicBaseURL string `toml:"s3_public_base_url"`
	S3UsePathStyle  bool   `toml:"s3_use_path_style"`
}

// Duration lets toml files carry values like "168h".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

type Toml struct {
	Development *Config `toml:"development"`
	Production  *Config `toml:"production"`
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config section for env: %s", env)
	}
	return cfg, nil
}

// Load reads the toml file at path and returns the section for env with
// defaults applied.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	cfg.Environment = strings.ToLower(env)
	cfg.applyDefaults()

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "prod" || c.Environment == "production"
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 9000
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.TokenTTL.Duration <= 0 {
		c.TokenTTL.Duration = 7 * 24 * time.Hour
	}
	if c.LoginRateLimitAllowedPerMin <= 0 {
		c.LoginRateLimitAllowedPerMin = 15
	}
	if c.TelemetryQueueSize <= 0 {
		c.TelemetryQueueSize = 1024
	}
	if c.TelemetryWorkers <= 0 {
		c.TelemetryWorkers = 2
	}
	if c.TelemetryMaxAttempts <= 0 {
		c.TelemetryMaxAttempts = 3
	}
	if c.PostgresPort == "" {
		c.PostgresPort = "5432"
	}
	if c.PostgresUser == "" {
		c.PostgresUser = "postgres"
	}
	if c.RedisPort == "" {
		c.RedisPort = "6379"
	}
}

// Secrets never live in the config file.
type Secrets struct {
	JWTSecret     string
	RedisPassword string
	DBPassword    string
	IPInfoAPIKey  string
	S3AccessKey   string
	S3SecretKey   string
	SentryDSN     string
	Honeycomb     bool
}

var ErrJWTSecretMissing = errors.New("REALESTATE_JWT_SECRET is not set")

// SecretsFromEnv reads secrets from the environment. Only the JWT signing
// secret is mandatory.
func SecretsFromEnv() (*Secrets, error) {
	s := &Secrets{
		JWTSecret:     os.Getenv("REALESTATE_JWT_SECRET"),
		RedisPassword: os.Getenv("REALESTATE_REDIS_PASS"),
		DBPassword:    os.Getenv("REALESTATE_DB_PASSWORD"),
		IPInfoAPIKey:  os.Getenv("IP_INFO_API_KEY"),
		S3AccessKey:   os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:   os.Getenv("S3_SECRET_KEY"),
		SentryDSN:     os.Getenv("SENTRY_DSN"),
		Honeycomb:     os.Getenv("HONEYCOMB_ENABLED") == "true",
	}
	if s.JWTSecret == "" {
		return nil, ErrJWTSecretMissing
	}
	return s, nil
}
