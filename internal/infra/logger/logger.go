package logger

import (
	"os"
	"strings"

	"expense_reminder/internal/infra/config"

	"github.com/sirupsen/logrus"
)

// Log is shared by every component; use Component to get a tagged entry.
var Log = logrus.New()

// Init applies LOG_LEVEL and picks JSON output for production and staging.
func Init(cfg *config.AppConfig) {
	Log.SetOutput(os.Stdout)
	Log.SetLevel(parseLevel(cfg.LogLevel))
	Log.SetFormatter(formatterFor(cfg.Environment))

	Log.WithFields(logrus.Fields{
		"level":       Log.GetLevel().String(),
		"environment": cfg.Environment,
	}).Debug("Logger initialized")
}

// Component returns an entry tagged with the component name.
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}

func parseLevel(raw string) logrus.Level {
	level, err := logrus.ParseLevel(strings.ToLower(raw))
	if err != nil {
		Log.Warnf("Invalid log level %q, falling back to info", raw)
		return logrus.InfoLevel
	}
	return level
}

func formatterFor(env string) logrus.Formatter {
	if isStructuredEnv(env) {
		return &logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"}
	}
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		ForceColors:     true,
	}
}

func isStructuredEnv(env string) bool {
	switch strings.ToLower(env) {
	case "production", "staging":
		return true
	}
	return false
}
