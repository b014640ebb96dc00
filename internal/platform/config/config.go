package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL  string
	Port         string
	IsProduction bool

	// AccountID is the source-platform account this deployment serves.
	AccountID string

	// PortalBaseURL is the expense portal root used for idempotency URLs.
	PortalBaseURL string

	// WebhookJWTSecret verifies the bearer tokens on incoming webhook calls.
	WebhookJWTSecret string

	PayhawkAPIURL string `mapstructure:"PAYHAWK_API_URL"`
	PayhawkAPIKey string `mapstructure:"PAYHAWK_API_KEY"`

	XeroClientID     string `mapstructure:"XERO_CLIENT_ID"`
	XeroClientSecret string `mapstructure:"XERO_CLIENT_SECRET"`
	XeroRedirectURL  string `mapstructure:"XERO_REDIRECT_URL"`
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ACCOUNT_ID", "")
	viper.SetDefault("PORTAL_BASE_URL", "https://portal.payhawk.com")
	viper.SetDefault("WEBHOOK_JWT_SECRET", "")
	viper.SetDefault("PAYHAWK_API_URL", "https://api.payhawk.com/api/v3")
	viper.SetDefault("PAYHAWK_API_KEY", "")
	viper.SetDefault("XERO_CLIENT_ID", "")
	viper.SetDefault("XERO_CLIENT_SECRET", "")
	viper.SetDefault("XERO_REDIRECT_URL", "")

	viper.AutomaticEnv()

	cfg := &Config{
		DatabaseURL:      viper.GetString("PGSQL_URL"),
		Port:             viper.GetString("PORT"),
		IsProduction:     viper.GetBool("IS_PRODUCTION"),
		AccountID:        viper.GetString("ACCOUNT_ID"),
		PortalBaseURL:    viper.GetString("PORTAL_BASE_URL"),
		WebhookJWTSecret: viper.GetString("WEBHOOK_JWT_SECRET"),
		PayhawkAPIURL:    viper.GetString("PAYHAWK_API_URL"),
		PayhawkAPIKey:    viper.GetString("PAYHAWK_API_KEY"),
		XeroClientID:     viper.GetString("XERO_CLIENT_ID"),
		XeroClientSecret: viper.GetString("XERO_CLIENT_SECRET"),
		XeroRedirectURL:  viper.GetString("XERO_REDIRECT_URL"),
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}
	if cfg.AccountID == "" {
		return nil, fmt.Errorf("ACCOUNT_ID must be set")
	}
	if cfg.WebhookJWTSecret == "" {
		if cfg.IsProduction {
			return nil, fmt.Errorf("WEBHOOK_JWT_SECRET must be set in production")
		}
		log.Println("Warning: WEBHOOK_JWT_SECRET not set. Using default insecure secret.")
		cfg.WebhookJWTSecret = "insecure-dev-webhook-secret"
	}
	if cfg.XeroClientID == "" || cfg.XeroClientSecret == "" {
		log.Println("Warning: XERO_CLIENT_ID / XERO_CLIENT_SECRET not set. The Xero connection flow will not function.")
	}
	if cfg.PayhawkAPIKey == "" {
		log.Println("Warning: PAYHAWK_API_KEY not set. Source API calls will be rejected.")
	}

	return cfg, nil
}
