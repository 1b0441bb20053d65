package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	for _, key := range []string{
		"DATABASE_URL", "LOG_LEVEL", "ENVIRONMENT", "TIMEZONE", "REMINDER_LEAD_DAYS",
		"CRON_SPEC_RECONCILE", "HANDLER_TIMEOUT", "SHUTDOWN_TIMEOUT", "DASHBOARD_URL",
		"NOTIFY_RATE_PER_MINUTE", "NOTIFIER", "SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME",
		"SMTP_PASSWORD", "SMTP_FROM", "WEBHOOK_URL", "TELEGRAM_TOKEN",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/reminders?sslmode=disable")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, time.Local, cfg.Location)
	assert.Equal(t, 7, cfg.ReminderLeadDays)
	assert.Equal(t, "*/15 * * * *", cfg.CronSpecReconcile)
	assert.Equal(t, time.Minute, cfg.HandlerTimeout)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, NotifierConsole, cfg.Notifier)
	assert.Zero(t, cfg.NotifyRatePerMinute)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://db/reminders")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("TIMEZONE", "Europe/Berlin")
	t.Setenv("REMINDER_LEAD_DAYS", "3")
	t.Setenv("HANDLER_TIMEOUT", "10s")
	t.Setenv("NOTIFIER", "SMTP")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_FROM", "reminders@example.com")
	t.Setenv("NOTIFY_RATE_PER_MINUTE", "30")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "Europe/Berlin", cfg.Location.String())
	assert.Equal(t, 3, cfg.ReminderLeadDays)
	assert.Equal(t, 10*time.Second, cfg.HandlerTimeout)
	assert.Equal(t, NotifierSMTP, cfg.Notifier)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, 30, cfg.NotifyRatePerMinute)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "missing database url", env: map[string]string{}, want: "DATABASE_URL"},
		{name: "bad timezone", env: map[string]string{"TIMEZONE": "Mars/Olympus"}, want: "TIMEZONE"},
		{name: "bad lead days", env: map[string]string{"REMINDER_LEAD_DAYS": "seven"}, want: "REMINDER_LEAD_DAYS"},
		{name: "non-positive lead days", env: map[string]string{"REMINDER_LEAD_DAYS": "0"}, want: "REMINDER_LEAD_DAYS"},
		{name: "bad timeout", env: map[string]string{"HANDLER_TIMEOUT": "soon"}, want: "HANDLER_TIMEOUT"},
		{name: "unknown notifier", env: map[string]string{"NOTIFIER": "pigeon"}, want: "pigeon"},
		{name: "smtp without host", env: map[string]string{"NOTIFIER": "smtp"}, want: "SMTP_HOST"},
		{name: "webhook without url", env: map[string]string{"NOTIFIER": "webhook"}, want: "WEBHOOK_URL"},
		{name: "telegram without token", env: map[string]string{"NOTIFIER": "telegram"}, want: "TELEGRAM_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if tt.name != "missing database url" {
				t.Setenv("DATABASE_URL", "postgres://db/reminders")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
