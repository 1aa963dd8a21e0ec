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

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides HTTP server settings.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// SchedulerConfig provides settings for the asynq scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetReminderLeadTime() time.Duration
}

// CollaboratorConfig provides base URLs for the external services the
// orchestration core depends on.
type CollaboratorConfig interface {
	GetComplaintServiceURL() string
	GetCustomerServiceURL() string
	GetCatalogServiceURL() string
	GetCollaboratorTimeout() time.Duration
}

// InvoicingConfig provides invoice numbering and amount settings.
type InvoicingConfig interface {
	GetInvoicePrefix() string
	GetInvoiceTaxRateBps() int64
	GetDefaultInterventionCostCents() int64
}

// PaymentConfig provides payment processor settings.
type PaymentConfig interface {
	GetStripeSecretKey() string
	IsStripeEnabled() bool
}

// NotificationConfig provides settings for outbound notification content.
type NotificationConfig interface {
	GetAppBaseURL() string
}

// Config holds all application configuration loaded from the environment.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string

	JWTAccessSecret string

	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool

	AppBaseURL string

	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int
	ReminderLeadTime time.Duration

	ComplaintServiceURL string
	CustomerServiceURL  string
	CatalogServiceURL   string
	CollaboratorTimeout time.Duration

	InvoicePrefix                string
	InvoiceTaxRateBps            int64
	DefaultInterventionCostCents int64

	StripeSecretKey string
}

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string                { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool          { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string          { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int           { return c.AsynqConcurrency }
func (c *Config) GetReminderLeadTime() time.Duration { return c.ReminderLeadTime }

// CollaboratorConfig implementation
func (c *Config) GetComplaintServiceURL() string        { return c.ComplaintServiceURL }
func (c *Config) GetCustomerServiceURL() string         { return c.CustomerServiceURL }
func (c *Config) GetCatalogServiceURL() string          { return c.CatalogServiceURL }
func (c *Config) GetCollaboratorTimeout() time.Duration { return c.CollaboratorTimeout }

// InvoicingConfig implementation
func (c *Config) GetInvoicePrefix() string    { return c.InvoicePrefix }
func (c *Config) GetInvoiceTaxRateBps() int64 { return c.InvoiceTaxRateBps }
func (c *Config) GetDefaultInterventionCostCents() int64 {
	return c.DefaultInterventionCostCents
}

// PaymentConfig implementation
func (c *Config) GetStripeSecretKey() string { return c.StripeSecretKey }
func (c *Config) IsStripeEnabled() bool      { return c.StripeSecretKey != "" }

// NotificationConfig implementation
func (c *Config) GetAppBaseURL() string { return c.AppBaseURL }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		JWTAccessSecret: getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:    corsAllowAll,
		CORSOrigins:     corsOrigins,
		CORSAllowCreds:  strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AppBaseURL:      getEnv("APP_BASE_URL", "http://localhost:4200"),

		EmailEnabled:     emailEnabled && smtpHost != "",
		SMTPHost:         smtpHost,
		SMTPPort:         int(mustInt64(getEnv("SMTP_PORT", "587"))),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Service Apres-Vente"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: int(mustInt64(getEnv("ASYNQ_CONCURRENCY", "10"))),
		ReminderLeadTime: mustDuration(getEnv("INTERVENTION_REMINDER_LEAD", "24h")),

		ComplaintServiceURL: getEnv("COMPLAINT_SERVICE_URL", ""),
		CustomerServiceURL:  getEnv("CUSTOMER_SERVICE_URL", ""),
		CatalogServiceURL:   getEnv("CATALOG_SERVICE_URL", ""),
		CollaboratorTimeout: mustDuration(getEnv("COLLABORATOR_TIMEOUT", "5s")),

		InvoicePrefix:                getEnv("INVOICE_PREFIX", "FACT"),
		InvoiceTaxRateBps:            mustInt64(getEnv("INVOICE_TAX_RATE_BPS", "2000")),
		DefaultInterventionCostCents: mustInt64(getEnv("DEFAULT_INTERVENTION_COST_CENTS", "5000")),

		StripeSecretKey: getEnv("STRIPE_SECRET_KEY", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.ComplaintServiceURL == "" || cfg.CustomerServiceURL == "" || cfg.CatalogServiceURL == "" {
		return nil, fmt.Errorf("COMPLAINT_SERVICE_URL, CUSTOMER_SERVICE_URL and CATALOG_SERVICE_URL are required")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.InvoiceTaxRateBps < 0 || cfg.InvoiceTaxRateBps > 10000 {
		return nil, fmt.Errorf("INVOICE_TAX_RATE_BPS must be between 0 and 10000")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
