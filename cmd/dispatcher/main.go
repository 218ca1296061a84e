// cmd/dispatcher/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/zap"

	"portal-notifier/internal/api"
	"portal-notifier/internal/audit"
	"portal-notifier/internal/common/config"
	"portal-notifier/internal/common/database"
	"portal-notifier/internal/common/logger"
	"portal-notifier/internal/common/observability"
	"portal-notifier/internal/dispatch"
	"portal-notifier/internal/gateway"
	"portal-notifier/internal/lock"
	"portal-notifier/internal/producer"
	"portal-notifier/internal/scheduler"
	"portal-notifier/internal/store"
	"portal-notifier/internal/template"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting notification dispatcher...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New("notification-dispatcher")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch audit sink (optional) ---
	var auditSink dispatch.AuditSink
	if cfg.Audit.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		auditSink = audit.NewElasticSink(esClient.Client, cfg.Audit.Index, log)
		zapLog.Info("Elasticsearch audit sink enabled", zap.String("index", cfg.Audit.Index))
	}

	// --- Delivery channels ---
	var senders []gateway.Sender
	if cfg.Gateway.WhatsApp.Enabled {
		senders = append(senders, gateway.NewWhatsAppClient(
			cfg.Gateway.WhatsApp.BaseURL,
			cfg.Gateway.WhatsApp.APIKey,
			config.GetDuration(cfg.Gateway.WhatsApp.Timeout),
		))
	}
	if cfg.Gateway.AWS.SES.Enabled || cfg.Gateway.AWS.SNS.Enabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Gateway.AWS.Region))
		if err != nil {
			zapLog.Fatal("load AWS config failed", zap.Error(err))
		}
		if cfg.Gateway.AWS.SNS.Enabled {
			senders = append(senders, gateway.NewSNSSender(
				sns.NewFromConfig(awsCfg), cfg.Gateway.AWS.SNS.DefaultSMSSenderID))
		}
		if cfg.Gateway.AWS.SES.Enabled {
			senders = append(senders, gateway.NewSESSender(
				ses.NewFromConfig(awsCfg), cfg.Gateway.AWS.SES.FromEmail))
		}
	}
	if len(senders) == 0 {
		zapLog.Fatal("no delivery channel enabled")
	}
	router := gateway.NewRouter(senders...)

	// --- Dispatch pipeline ---
	notifications := store.NewNotificationStore(pg.DB)
	recipients := store.NewCachedRecipientStore(
		store.NewRecipientStore(pg.DB), redis.Client, 5*time.Minute, log)
	templates := template.NewRegistry()

	processor := dispatch.NewProcessor(
		dispatch.ProcessorConfig{
			MaxAttempts: cfg.Dispatch.MaxAttempts,
			BackoffBase: config.GetDuration(cfg.Dispatch.BackoffBase),
			BackoffMax:  config.GetDuration(cfg.Dispatch.BackoffMax),
			ItemTimeout: config.GetDuration(cfg.Dispatch.ItemTimeout),
		},
		notifications, recipients, templates, router, auditSink, log,
	)

	cycleLock := lock.NewCycleLock(redis.Client, config.GetDuration(cfg.Dispatch.CycleLockTTL))

	orchestrator := dispatch.NewOrchestrator(
		dispatch.OrchestratorConfig{
			BatchSize:        cfg.Dispatch.BatchSize,
			ReactivateFailed: cfg.Dispatch.ReactivateFailed,
			ReactivateAfter:  time.Duration(cfg.Dispatch.ReactivateAfterMin) * time.Minute,
		},
		notifications, processor, cycleLock, obs, log,
	)

	// --- Reminder producer (optional) ---
	var scanner api.ReminderScanner
	var overdueScanner *producer.OverdueScanner
	if cfg.Producer.Enabled {
		tasks := store.NewTaskStore(pg.DB)
		overdueScanner = producer.NewOverdueScanner(tasks, notifications, cfg.Producer.ScanLimit, log)
		scanner = overdueScanner
	}

	// --- Built-in scheduler (optional) ---
	sched := scheduler.New(log)
	if cfg.Dispatch.Schedule != "" {
		err := sched.Add(cfg.Dispatch.Schedule, "dispatch-cycle", func(ctx context.Context) {
			if _, err := orchestrator.RunCycle(ctx); err != nil {
				zapLog.Error("scheduled dispatch cycle failed", zap.Error(err))
			}
		})
		if err != nil {
			zapLog.Fatal("invalid dispatch schedule", zap.Error(err))
		}
	}
	if cfg.Producer.Enabled && cfg.Producer.Schedule != "" {
		err := sched.Add(cfg.Producer.Schedule, "reminder-scan", func(ctx context.Context) {
			if _, err := overdueScanner.Scan(ctx); err != nil {
				zapLog.Error("scheduled reminder scan failed", zap.Error(err))
			}
		})
		if err != nil {
			zapLog.Fatal("invalid producer schedule", zap.Error(err))
		}
	}
	sched.Start()

	// --- HTTP server ---
	handler := api.NewServer(
		api.AuthConfig{
			TriggerSecret:      cfg.Server.TriggerSecret,
			SchedulerUserAgent: cfg.Server.SchedulerUserAgent,
		},
		orchestrator, scanner, log,
		pg.Ping, redis.Ping,
	)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      handler,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	<-sched.Stop().Done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http server shutdown failed", zap.Error(err))
	}
}
