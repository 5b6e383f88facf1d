package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config groups the application configuration, read via Viper from the
// environment and, optionally, from a local .env file.
type Config struct {
	App  AppConfig
	DB   DBConfig
	HTTP HTTPConfig
	CA   CAConfig
}

// AppConfig controls process-wide, dependency-agnostic behavior.
type AppConfig struct {
	Env                string // development, staging, production
	Name               string
	LogLevel           string
	EnrollmentTokenTTL time.Duration
	AdminTokenSecret   string
}

// DBConfig configures the PostgreSQL connection. If DatabaseURL is set it
// takes precedence over the discrete fields; otherwise DSN() builds one from
// them.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
}

// ConnectionString returns the DSN to dial: DatabaseURL if set, else DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN builds a PostgreSQL connection string, URL-encoding special
// characters in the password via url.UserPassword.
func (c DBConfig) DSN() string {
	userInfo := url.UserPassword(c.User, c.Password)
	u := &url.URL{
		Scheme:   "postgres",
		User:     userInfo,
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// HTTPConfig configures the HTTP listener.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr returns the listen address (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CAConfig carries the gateway's own certificate authority material,
// base64-encoded PEM in the environment.
type CAConfig struct {
	PrivateKeyB64  string
	CertificateB64 string
}

// Load reads configuration from the environment (and an optional .env
// file). Environment variables win over file values. Expected names:
// APP_ENV, PORT, POSTGRES_HOST, POSTGRES_PORT, SEC_PRIVATE_KEY, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // a missing file is not an error

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	ttl, err := time.ParseDuration(getString(v, "ENROLLMENT_TOKEN_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("config: parse ENROLLMENT_TOKEN_TTL: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Env:                getString(v, "APP_ENV", "development"),
			Name:               getString(v, "APP_NAME", "zatca-gateway"),
			LogLevel:           getString(v, "LOG_LEVEL", "info"),
			EnrollmentTokenTTL: ttl,
			AdminTokenSecret:   getString(v, "ADMIN_TOKEN_SECRET", ""),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "POSTGRES_HOST", "localhost"),
			Port:        getInt(v, "POSTGRES_PORT", 5432),
			User:        getString(v, "POSTGRES_USER", "postgres"),
			Password:    getString(v, "POSTGRES_PASSWORD", ""),
			DBName:      getString(v, "POSTGRES_DB", "zatca_gateway"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "PORT", 8080),
		},
		CA: CAConfig{
			PrivateKeyB64:  getString(v, "SEC_PRIVATE_KEY", ""),
			CertificateB64: getString(v, "SEC_CERTIFICATE", ""),
		},
	}

	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, _ := strconv.Atoi(v.GetString(key))
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}
