package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"expense_reminder/internal/app"
	"expense_reminder/internal/domain/notifier"
	"expense_reminder/internal/infra/config"
	idb "expense_reminder/internal/infra/database"
	"expense_reminder/internal/infra/executor"
	"expense_reminder/internal/infra/logger"
	"expense_reminder/internal/infra/notify"
	"expense_reminder/internal/infra/scheduler"

	"github.com/sirupsen/logrus"
)

func main() {
	fmt.Println("Expense Reminder starting...")

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Could not load application configuration: %v", err)
	}

	logger.Init(cfg)
	mainLogger := logger.Component("main")
	mainLogger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"timezone":    cfg.Timezone,
		"lead_days":   cfg.ReminderLeadDays,
		"notifier":    cfg.Notifier,
	}).Info("Configuration loaded.")

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg.DatabaseURL, os.Args[2:]); err != nil {
			mainLogger.Fatalf("Migration command failed: %v", err)
		}
		return
	}

	if err := idb.MigrateUp(cfg.DatabaseURL, logger.Component("migrate")); err != nil {
		mainLogger.Fatalf("Could not apply database migrations: %v", err)
	}

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		mainLogger.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()
	mainLogger.Info("Database connection established successfully.")

	if err := run(cfg, db, mainLogger); err != nil {
		mainLogger.Fatalf("Application error: %v", err)
	}
}

func run(cfg *config.AppConfig, db *sql.DB, mainLogger *logrus.Entry) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Repositories
	expenseRepo := idb.NewPostgresExpenseRepository(db)
	userRepo := idb.NewPostgresUserRepository(db)
	jobRepo := idb.NewPostgresReminderJobRepository(db)

	n, err := buildNotifier(cfg)
	if err != nil {
		return err
	}
	n = notify.NewRateLimited(notify.NewSendTimeout(n, cfg.HandlerTimeout), cfg.NotifyRatePerMinute)

	renderer := app.NewMessageRenderer(cfg.ReminderLeadDays, cfg.DashboardURL)
	handler := app.NewReminderHandler(expenseRepo, userRepo, n, renderer, cfg.Location, logger.Component("reminder_handler"))

	exec := executor.New(handler.Handle, logger.Component("executor"), executor.WithJobLog(jobRepo))

	pending, err := jobRepo.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("could not load pending reminder jobs: %w", err)
	}
	mainLogger.WithField("restored", exec.Restore(pending)).Info("Pending reminder jobs restored.")

	reminderScheduler := app.NewReminderScheduler(exec, expenseRepo, cfg.ReminderLeadDays, cfg.Location, logger.Component("reminder_scheduler"))
	reconciler := scheduler.NewReconcileScheduler(reminderScheduler, logger.Component("reconciler"),
		cfg.CronSpecReconcile, cfg.Location, cfg.HandlerTimeout)

	exec.Start(ctx)
	reconciler.RunOnce(ctx)
	if err := reconciler.Start(); err != nil {
		return err
	}

	mainLogger.Info("Application setup complete. Executor and reconciler are running.")
	<-ctx.Done() // Block until a signal is received

	mainLogger.Info("Shutting down application...")
	reconciler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := exec.Stop(shutdownCtx); err != nil {
		mainLogger.WithError(err).Warn("Executor did not stop cleanly.")
	}
	mainLogger.Info("Application shut down gracefully.")
	return nil
}

func buildNotifier(cfg *config.AppConfig) (notifier.Notifier, error) {
	switch cfg.Notifier {
	case config.NotifierSMTP:
		return notify.NewSMTPNotifier(cfg.SMTP), nil
	case config.NotifierWebhook:
		return notify.NewWebhookNotifier(cfg.WebhookURL, nil), nil
	case config.NotifierTelegram:
		bot, err := notify.NewTelegramBot(cfg.TelegramToken)
		if err != nil {
			return nil, err
		}
		return notify.NewTelegramNotifier(bot), nil
	default:
		return notify.NewConsoleNotifier(logger.Component("console_notifier")), nil
	}
}

// runMigrate handles `migrate up`, `migrate down N` and `migrate status`.
func runMigrate(databaseURL string, args []string) error {
	log := logger.Component("migrate")
	if len(args) == 0 {
		return fmt.Errorf("usage: migrate up|down N|status")
	}
	switch args[0] {
	case "up":
		return idb.MigrateUp(databaseURL, log)
	case "down":
		if len(args) < 2 {
			return fmt.Errorf("usage: migrate down N")
		}
		steps, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid step count %q: %w", args[1], err)
		}
		return idb.MigrateDown(databaseURL, steps, log)
	case "status":
		return idb.MigrateStatus(databaseURL, log)
	default:
		return fmt.Errorf("unknown migrate command %q", args[0])
	}
}
