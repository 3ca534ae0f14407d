// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides primary store connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// RedisConfig provides replica store / queue connection settings.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// ReplicaConfig provides settings for the key-value replica store.
type ReplicaConfig interface {
	RedisConfig
	// GetReplicaKeyspace returns the keyspace (table) name the profile
	// projection is written under.
	GetReplicaKeyspace() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// TokenConfig provides settings for the credential token service.
type TokenConfig interface {
	GetTokenSecret() string
	GetTokenTTL() time.Duration
}

// IdentityProviderConfig provides settings for the external identity provider.
type IdentityProviderConfig interface {
	GetIdentityProviderMode() string // "local" or "http"
	GetIdentityPoolID() string
	GetIdentityClientID() string
	GetIdentityEndpoint() string
	GetIdentityAPIKey() string
}

// PasswordRules describes the password policy applied to supplied passwords.
type PasswordRules struct {
	MinLen      int
	NeedLower   bool
	NeedUpper   bool
	NeedDigit   bool
	NeedSpecial bool
}

// PasswordPolicyConfig provides the configured password policy.
type PasswordPolicyConfig interface {
	GetPasswordRules() PasswordRules
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	IsEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetAppBaseURL() string
}

// TemplateStoreConfig provides object storage settings for email templates.
type TemplateStoreConfig interface {
	IsTemplateStoreEnabled() bool
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetTemplateBucket() string
}

// SchedulerConfig provides settings for the background task queue.
type SchedulerConfig interface {
	RedisConfig
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// HTTPConfig provides HTTP server settings.
type HTTPConfig interface {
	GetEnv() string
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// =============================================================================
// Config implementation
// =============================================================================

// Config holds all application configuration loaded from the environment.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string

	RedisURL         string
	RedisTLSInsecure bool
	ReplicaKeyspace  string

	JWTAccessSecret string
	TokenSecret     string
	TokenTTL        time.Duration

	IdentityProviderMode string
	IdentityPoolID       string
	IdentityClientID     string
	IdentityEndpoint     string
	IdentityAPIKey       string

	Password PasswordRules

	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string
	AppBaseURL       string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOUseSSL    bool
	TemplateBucket string

	AsynqQueue       string
	AsynqConcurrency int

	CORSAllowAll bool
	CORSOrigins  []string
}

// Load reads configuration from the environment, with .env support for
// local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: getBool("REDIS_TLS_INSECURE", false),
		ReplicaKeyspace:  getEnv("REPLICA_KEYSPACE", "profile"),

		JWTAccessSecret: getEnv("JWT_ACCESS_SECRET", ""),
		TokenSecret:     getEnv("TOKEN_SECRET", ""),
		TokenTTL:        getDuration("TOKEN_TTL", 30*24*time.Hour),

		IdentityProviderMode: getEnv("IDENTITY_PROVIDER_MODE", "local"),
		IdentityPoolID:       getEnv("IDENTITY_POOL_ID", ""),
		IdentityClientID:     getEnv("IDENTITY_CLIENT_ID", ""),
		IdentityEndpoint:     getEnv("IDENTITY_ENDPOINT", ""),
		IdentityAPIKey:       getEnv("IDENTITY_API_KEY", ""),

		Password: PasswordRules{
			MinLen:      getInt("PASSWORD_MIN_LEN", 8),
			NeedLower:   getBool("PASSWORD_NEED_LOWER", true),
			NeedUpper:   getBool("PASSWORD_NEED_UPPER", true),
			NeedDigit:   getBool("PASSWORD_NEED_DIGIT", true),
			NeedSpecial: getBool("PASSWORD_NEED_SPECIAL", false),
		},

		EmailEnabled:     getBool("EMAIL_ENABLED", true),
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         getInt("SMTP_PORT", 587),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Accounts"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		AppBaseURL:       getEnv("APP_BASE_URL", "http://localhost:4200"),

		MinIOEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:    getBool("MINIO_USE_SSL", false),
		TemplateBucket: getEnv("TEMPLATE_BUCKET", "account-templates"),

		AsynqQueue:       getEnv("ASYNQ_QUEUE", "accounts"),
		AsynqConcurrency: getInt("ASYNQ_CONCURRENCY", 10),

		CORSAllowAll: getBool("CORS_ALLOW_ALL", false),
		CORSOrigins:  splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200")),
	}

	if containsWildcard(cfg.CORSOrigins) {
		cfg.CORSAllowAll = true
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.TokenSecret == "" {
		return nil, fmt.Errorf("TOKEN_SECRET is required")
	}
	if cfg.IdentityProviderMode == "http" && cfg.IdentityEndpoint == "" {
		return nil, fmt.Errorf("IDENTITY_ENDPOINT is required when IDENTITY_PROVIDER_MODE=http")
	}

	return cfg, nil
}

// Interface implementations.

func (c *Config) GetEnv() string              { return c.Env }
func (c *Config) GetHTTPAddr() string         { return c.HTTPAddr }
func (c *Config) GetDatabaseURL() string      { return c.DatabaseURL }
func (c *Config) GetRedisURL() string         { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool   { return c.RedisTLSInsecure }
func (c *Config) GetReplicaKeyspace() string  { return c.ReplicaKeyspace }
func (c *Config) GetJWTAccessSecret() string  { return c.JWTAccessSecret }
func (c *Config) GetTokenSecret() string      { return c.TokenSecret }
func (c *Config) GetTokenTTL() time.Duration  { return c.TokenTTL }
func (c *Config) GetCORSAllowAll() bool       { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string    { return c.CORSOrigins }
func (c *Config) GetAsynqQueueName() string   { return c.AsynqQueue }
func (c *Config) GetAsynqConcurrency() int    { return c.AsynqConcurrency }

func (c *Config) GetIdentityProviderMode() string { return c.IdentityProviderMode }
func (c *Config) GetIdentityPoolID() string       { return c.IdentityPoolID }
func (c *Config) GetIdentityClientID() string     { return c.IdentityClientID }
func (c *Config) GetIdentityEndpoint() string     { return c.IdentityEndpoint }
func (c *Config) GetIdentityAPIKey() string       { return c.IdentityAPIKey }

func (c *Config) GetPasswordRules() PasswordRules { return c.Password }

func (c *Config) IsEmailEnabled() bool        { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetAppBaseURL() string       { return c.AppBaseURL }

func (c *Config) IsTemplateStoreEnabled() bool { return c.MinIOEndpoint != "" }
func (c *Config) GetMinIOEndpoint() string     { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string    { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string    { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool         { return c.MinIOUseSSL }
func (c *Config) GetTemplateBucket() string    { return c.TemplateBucket }

// Helpers.

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	return strings.EqualFold(v, "true") || v == "1"
}

func getInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
