package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

// Notifier kinds accepted by NOTIFIER.
const (
	NotifierConsole  = "console"
	NotifierSMTP     = "smtp"
	NotifierWebhook  = "webhook"
	NotifierTelegram = "telegram"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL       string
	LogLevel          string
	Environment       string
	Timezone          string
	Location          *time.Location
	ReminderLeadDays  int
	CronSpecReconcile string        // How often pending reminders are reconciled with the expenses table
	HandlerTimeout    time.Duration // Bounds each notifier transport call and each reconcile pass
	ShutdownTimeout   time.Duration
	DashboardURL      string

	Notifier            string
	NotifyRatePerMinute int // 0 disables rate limiting
	SMTP                SMTPConfig
	WebhookURL          string
	TelegramToken       string
}

// SMTPConfig configures the SMTP notifier.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.Timezone = os.Getenv("TIMEZONE")
	if cfg.Timezone == "" {
		cfg.Location = time.Local
		cfg.Timezone = time.Local.String()
	} else if cfg.Location, err = time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	if cfg.ReminderLeadDays, err = intEnv("REMINDER_LEAD_DAYS", 7); err != nil {
		return nil, err
	}
	if cfg.ReminderLeadDays <= 0 {
		return nil, fmt.Errorf("REMINDER_LEAD_DAYS must be positive, got %d", cfg.ReminderLeadDays)
	}

	cfg.CronSpecReconcile = os.Getenv("CRON_SPEC_RECONCILE")
	if cfg.CronSpecReconcile == "" {
		cfg.CronSpecReconcile = "*/15 * * * *" // Default: every 15 minutes
	}

	if cfg.HandlerTimeout, err = durationEnv("HANDLER_TIMEOUT", time.Minute); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = durationEnv("SHUTDOWN_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	cfg.DashboardURL = os.Getenv("DASHBOARD_URL")

	if cfg.NotifyRatePerMinute, err = intEnv("NOTIFY_RATE_PER_MINUTE", 0); err != nil {
		return nil, err
	}

	cfg.Notifier = strings.ToLower(os.Getenv("NOTIFIER"))
	if cfg.Notifier == "" {
		cfg.Notifier = NotifierConsole
	}
	if err := loadNotifierConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadNotifierConfig reads only the variables the selected notifier needs.
func loadNotifierConfig(cfg *AppConfig) error {
	var err error
	switch cfg.Notifier {
	case NotifierConsole:
	case NotifierSMTP:
		cfg.SMTP.Host = os.Getenv("SMTP_HOST")
		if cfg.SMTP.Host == "" {
			return fmt.Errorf("SMTP_HOST is not set")
		}
		if cfg.SMTP.Port, err = intEnv("SMTP_PORT", 587); err != nil {
			return err
		}
		cfg.SMTP.Username = os.Getenv("SMTP_USERNAME")
		cfg.SMTP.Password = os.Getenv("SMTP_PASSWORD")
		cfg.SMTP.From = os.Getenv("SMTP_FROM")
		if cfg.SMTP.From == "" {
			return fmt.Errorf("SMTP_FROM is not set")
		}
	case NotifierWebhook:
		cfg.WebhookURL = os.Getenv("WEBHOOK_URL")
		if cfg.WebhookURL == "" {
			return fmt.Errorf("WEBHOOK_URL is not set")
		}
	case NotifierTelegram:
		cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
		if cfg.TelegramToken == "" {
			return fmt.Errorf("TELEGRAM_TOKEN is not set")
		}
	default:
		return fmt.Errorf("unknown NOTIFIER %q", cfg.Notifier)
	}
	return nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
