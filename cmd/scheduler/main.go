package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/caravanhq/payments-engine/internal/config"
	"github.com/caravanhq/payments-engine/internal/repository"
	"github.com/caravanhq/payments-engine/internal/schedule"
)

// The scheduler only observes: it scans for installments coming due and emits
// structured reminder logs for the notification pipeline to pick up. Overdue
// is derived at read time, so no job rewrites statuses.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	installmentRepo := repository.NewInstallmentRepository(db)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		logger.Fatalf("Invalid scheduler timezone %q: %v", cfg.Scheduler.Timezone, err)
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))

	_, err = c.AddFunc(cfg.Scheduler.ReminderCron, func() {
		if err := scanUpcomingInstallments(installmentRepo, cfg, logger); err != nil {
			logger.WithError(err).Error("reminder scan failed")
		}
	})
	if err != nil {
		logger.Fatalf("Failed to schedule reminder job: %v", err)
	}

	c.Start()
	logger.WithField("cron", cfg.Scheduler.ReminderCron).Info("scheduler started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down scheduler")
	c.Stop()
	logger.Info("scheduler stopped")
}

func scanUpcomingInstallments(repo repository.InstallmentRepository, cfg *config.Config, logger *logrus.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	from := schedule.Day(time.Now())
	to := from.AddDate(0, 0, cfg.Scheduler.ReminderDays)

	upcoming, err := repo.GetDueBetween(ctx, from, to)
	if err != nil {
		return err
	}

	for _, in := range upcoming {
		logger.WithFields(logrus.Fields{
			"booking_id": in.BookingID,
			"sequence":   in.SequenceNumber,
			"amount":     in.Amount.String(),
			"due_date":   in.DueDate.Format(time.DateOnly),
		}).Info("installment due soon")
	}

	logger.WithField("count", len(upcoming)).Info("reminder scan complete")
	return nil
}
