package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"attendtrack/internal/alert"
	"attendtrack/internal/compliance"
	"attendtrack/internal/config"
	"attendtrack/internal/directory"
	"attendtrack/internal/ledger"
	"attendtrack/internal/notify"
	"attendtrack/internal/queue"
	"attendtrack/internal/store"
)

// Worker consumes alert-run requests and executes alerting passes.
func main() {
	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("db connect failed")
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "")
	}

	policy := ledger.WindowPolicy{Mode: cfg.WindowMode, TrailingDays: cfg.TrailingDays}
	if cfg.WindowMode == ledger.WindowModeFixed {
		if start, err := time.Parse("2006-01-02", cfg.WindowStart); err == nil {
			policy.Start = start
		}
		if end, err := time.Parse("2006-01-02", cfg.WindowEnd); err == nil {
			policy.End = end
		}
	}

	ledgerRepo := ledger.NewRepository(db.Client)
	alertRepo := alert.NewRepository(db.Client)
	dir := directory.NewRepository(db.Client)
	agg := compliance.NewAggregator(ledgerRepo)
	emailer := notify.NewEmailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom, logger)
	dispatcher := alert.NewDispatcher(alertRepo, emailer, alertRepo)
	orch := alert.NewOrchestrator(dir, agg, dispatcher, cfg.ThresholdPercent, logger)

	messages, err := q.Consume(ctx)
	if err != nil {
		logger.WithError(err).Fatal("queue consume init failed")
	}

	logger.Info("worker started, waiting for alert-run requests")
	for msg := range messages {
		if msg.Type != queue.TypeAlertRun {
			continue
		}

		req, err := queue.DecodeRunRequest(msg)
		if err != nil {
			logger.WithError(err).Warn("bad alert-run request")
			continue
		}

		w := policy.Current(time.Now())
		entry := logger.WithFields(logrus.Fields{
			"course_id":    req.CourseID,
			"window":       w.Key(),
			"requested_by": req.RequestedBy,
		})

		sum, err := orch.Run(ctx, req.CourseID, w)
		if err != nil {
			entry.WithError(err).Warn("alerting pass failed")
			continue
		}
		entry.WithFields(logrus.Fields{
			"evaluated": sum.Evaluated,
			"alerted":   sum.Alerted,
			"failed":    sum.Failed,
		}).Info("alerting pass done")
	}

	logger.Info("worker stopped")
}
