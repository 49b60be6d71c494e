// Package config loads runtime settings from the environment (and an optional
// .env file) into a typed Config.
package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers accepted by STORE_DRIVER
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type DBConfig struct {
	User                   string
	Pass                   string
	Name                   string
	Host                   string
	Port                   int
	InstanceConnectionName string
}

type TelegramConfig struct {
	Token       string
	BaseURL     string
	PollTimeout time.Duration
}

type TwilioConfig struct {
	AccountSID   string
	AuthToken    string
	WhatsAppFrom string
}

// Config is everything the bot needs at startup
type Config struct {
	Port        string
	Environment string

	StoreDriver string
	SQLitePath  string
	DB          DBConfig

	Telegram TelegramConfig
	Twilio   TwilioConfig

	// OperatorChatIDs restricts the bot to the operator's chat(s) when set
	OperatorChatIDs []string

	DisableWebhookValidation bool
}

// LoadEnvFiles loads .env for local development. Missing files are not an error.
func LoadEnvFiles() {
	if err := godotenv.Load(".env"); err != nil {
		if err := godotenv.Load("environments/.env.development"); err != nil {
			log.Println("⚠️  No .env file found - checking environment variables")
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("environment", "development")

	v.SetDefault("store.driver", DriverPostgres)
	v.SetDefault("store.sqlite_path", "data/persons.db")

	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.pass", "")
	v.SetDefault("db.name", "persons")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.instance_connection_name", "")

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.base_url", "https://api.telegram.org")
	v.SetDefault("telegram.poll_timeout", 30*time.Second)

	v.SetDefault("operator_chat_id", "")

	v.SetDefault("twilio.account_sid", "")
	v.SetDefault("twilio.auth_token", "")
	v.SetDefault("twilio.whatsapp_from", "")

	v.SetDefault("webhook.disable_validation", false)
}

// envBindings maps config keys to the environment variable names the
// deployment already uses
var envBindings = map[string]string{
	"port":                        "PORT",
	"environment":                 "ENVIRONMENT",
	"store.driver":                "STORE_DRIVER",
	"store.sqlite_path":           "SQLITE_PATH",
	"db.user":                     "DB_USER",
	"db.pass":                     "DB_PASS",
	"db.name":                     "DB_NAME",
	"db.host":                     "DB_HOST",
	"db.port":                     "DB_PORT",
	"db.instance_connection_name": "INSTANCE_CONNECTION_NAME",
	"telegram.base_url":           "TELEGRAM_BASE_URL",
	"telegram.poll_timeout":       "TELEGRAM_POLL_TIMEOUT",
	"operator_chat_id":            "CONTACT_CHAT_ID",
	"twilio.account_sid":          "TWILIO_ACCOUNT_SID",
	"twilio.auth_token":           "TWILIO_AUTH_TOKEN",
	"twilio.whatsapp_from":        "TWILIO_WHATSAPP_FROM",
	"webhook.disable_validation":  "DISABLE_WEBHOOK_VALIDATION",
}

// Load reads the configuration from the process environment
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}
	// BOT_TOKEN_TEST is the variable name used by the first deployment
	if err := v.BindEnv("telegram.token", "BOT_TOKEN", "BOT_TOKEN_TEST"); err != nil {
		return nil, fmt.Errorf("bind BOT_TOKEN: %w", err)
	}

	cfg := &Config{
		Port:        v.GetString("port"),
		Environment: strings.ToLower(strings.TrimSpace(v.GetString("environment"))),
		StoreDriver: strings.ToLower(strings.TrimSpace(v.GetString("store.driver"))),
		SQLitePath:  v.GetString("store.sqlite_path"),
		DB: DBConfig{
			User:                   v.GetString("db.user"),
			Pass:                   v.GetString("db.pass"),
			Name:                   v.GetString("db.name"),
			Host:                   v.GetString("db.host"),
			Port:                   v.GetInt("db.port"),
			InstanceConnectionName: v.GetString("db.instance_connection_name"),
		},
		Telegram: TelegramConfig{
			Token:       strings.TrimSpace(v.GetString("telegram.token")),
			BaseURL:     v.GetString("telegram.base_url"),
			PollTimeout: v.GetDuration("telegram.poll_timeout"),
		},
		Twilio: TwilioConfig{
			AccountSID:   v.GetString("twilio.account_sid"),
			AuthToken:    v.GetString("twilio.auth_token"),
			WhatsAppFrom: v.GetString("twilio.whatsapp_from"),
		},
		OperatorChatIDs:          splitList(v.GetString("operator_chat_id")),
		DisableWebhookValidation: v.GetBool("webhook.disable_validation"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the bot cannot start with
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres, DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want postgres, sqlite or memory)", c.StoreDriver)
	}
	if c.StoreDriver == DriverSQLite && strings.TrimSpace(c.SQLitePath) == "" {
		return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
	}
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	return nil
}

// IsDevelopment reports whether webhook signature checks may be skipped
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// TwilioConfigured reports whether WhatsApp replies can be sent
func (c *Config) TwilioConfigured() bool {
	return c.Twilio.AccountSID != "" && c.Twilio.AuthToken != "" && c.Twilio.WhatsAppFrom != ""
}

// TelegramConfigured reports whether the Telegram poller should run
func (c *Config) TelegramConfigured() bool {
	return c.Telegram.Token != ""
}

// splitList parses a comma separated env value
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
