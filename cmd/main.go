package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"cashflow-crm/internal/api"
	"cashflow-crm/internal/batch"
	"cashflow-crm/internal/config"
	"cashflow-crm/internal/domain/client"
	"cashflow-crm/internal/domain/loan"
	"cashflow-crm/internal/domain/stats"
	"cashflow-crm/internal/event"
	"cashflow-crm/internal/infrastructure/database/postgres"
	"cashflow-crm/internal/infrastructure/logging"
	"cashflow-crm/internal/infrastructure/mail"
)

func main() {
	cfg, logger := initializeApp()

	dbPool := initializeDatabase(cfg, logger)
	defer closeDatabase(dbPool, logger)

	rabbitConn := setupRabbitMQ(cfg, logger)
	clientService, statsService, clientRepo := initializeServices(rabbitConn, dbPool, cfg, logger)
	engine := initializeEngine(cfg, logger)

	statusJob := batch.NewStatusAutomationJob(clientRepo, clientService, engine, logger)
	paymentsDueJob := batch.NewPaymentsDueJob(clientService, initializeMailer(cfg, logger), logger)

	cronScheduler := startBatchJobs(cfg, logger, statusJob, paymentsDueJob)
	router := api.SetupRouter(clientService, statsService, engine, cfg, logger)

	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)
	handleShutdown(srv, cronScheduler, rabbitConn, shutdownChan, serverErrors, logger)
}

func initializeApp() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Logger)
	slog.SetDefault(logger)
	logger.Info("Application starting...", "config_source", viper.ConfigFileUsed())

	return cfg, logger
}

func initializeDatabase(cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	logger.Info("Initializing database connection pool...")
	dbPool, err := postgres.NewConnectionPool(context.Background(), cfg.Database, logger)
	if err != nil {
		logger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	return dbPool
}

func closeDatabase(dbPool *pgxpool.Pool, logger *slog.Logger) {
	logger.Info("Closing database connection pool...")
	dbPool.Close()
}

func initializeServices(rabbitConn *amqp.Connection, dbPool *pgxpool.Pool, cfg *config.Config, logger *slog.Logger) (client.ClientService, *stats.Service, client.Repository) {
	logger.Info("Initializing application components...")
	clientRepo := postgres.NewClientRepository(dbPool, logger)
	paymentRepo := postgres.NewPaymentRepository(dbPool, logger)

	var publisher event.Publisher = event.NoopPublisher{}
	if rabbitConn != nil {
		pub, err := event.NewRabbitMQEventPublisher(rabbitConn, cfg.RabbitMQ.ExchangeName, logger)
		if err != nil {
			logger.Error("Failed to initialize event publisher, events disabled", "error", err)
		} else {
			publisher = pub
		}
	}

	clientService := client.NewClientService(clientRepo, paymentRepo, publisher, logger)
	statsService := stats.NewService(clientRepo, logger)
	return clientService, statsService, clientRepo
}

func initializeEngine(cfg *config.Config, logger *slog.Logger) *loan.Engine {
	opts := []loan.EngineOption{}
	if cfg.Automation.ThrottleSeconds > 0 {
		opts = append(opts, loan.WithThrottle(time.Duration(cfg.Automation.ThrottleSeconds)*time.Second))
	}
	if cfg.Automation.NotificationRetention > 0 {
		opts = append(opts, loan.WithNotificationRetention(cfg.Automation.NotificationRetention))
	}
	return loan.NewEngine(logger, opts...)
}

func initializeMailer(cfg *config.Config, logger *slog.Logger) mail.Sender {
	if !cfg.Mail.Enabled {
		logger.Info("Mail delivery disabled, reminder emails will be skipped.")
		return noopMailer{logger: logger}
	}
	return mail.NewMailer(cfg.Mail, logger)
}

type noopMailer struct {
	logger *slog.Logger
}

func (n noopMailer) SendPaymentsDueSummary(ctx context.Context, clients []client.DueClient) error {
	n.logger.InfoContext(ctx, "Mail disabled, dropping payments due summary", "clients", len(clients))
	return nil
}

func startServer(cfg *config.Config, router http.Handler, logger *slog.Logger) (*http.Server, <-chan error, <-chan os.Signal) {
	logger.Info("Setting up HTTP server...", "port", cfg.Server.Port)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server listening on port %d", cfg.Server.Port))
		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			serverErrors <- err
		} else {
			logger.Info("Server closed gracefully.")
			serverErrors <- nil
		}
	}()
	return srv, serverErrors, shutdownChan
}

func handleShutdown(srv *http.Server, cronScheduler *cron.Cron, rabbitConn *amqp.Connection,
	shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) {
	logger.Info("Shutdown handler started. Waiting for signal or server error...")

	triggerReason := waitForShutdownTrigger(shutdownChan, serverErrors, logger)

	logger.Info("Starting graceful shutdown...", "trigger", triggerReason)

	stopCronScheduler(cronScheduler, logger)
	closeRabbitMQConnection(rabbitConn, logger)
	shutdownHTTPServer(srv, serverErrors, logger)

	logger.Info("Application shutdown process complete.")
}

func waitForShutdownTrigger(shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) string {
	select {
	case sig := <-shutdownChan:
		logger.Info("Shutdown signal received.", "signal", sig.String())
		return "signal: " + sig.String()
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server exited unexpectedly before signal", "error", err)
			os.Exit(1)
		}
		logger.Info("Server goroutine finished before signal.", "error", err)
		return "server exited"
	}
}

func stopCronScheduler(cronScheduler *cron.Cron, logger *slog.Logger) {
	logger.Info("Stopping cron scheduler...")
	cronCtx := cronScheduler.Stop()
	select {
	case <-cronCtx.Done():
		logger.Info("Cron scheduler stopped gracefully.")
	case <-time.After(15 * time.Second):
		logger.Warn("Cron scheduler shutdown timed out.")
	}
}

func closeRabbitMQConnection(rabbitConn *amqp.Connection, logger *slog.Logger) {
	if rabbitConn != nil && !rabbitConn.IsClosed() {
		logger.Info("Closing RabbitMQ connection...")
		if err := rabbitConn.Close(); err != nil {
			logger.Error("Failed to close RabbitMQ connection gracefully", slog.Any("error", err))
		} else {
			logger.Info("RabbitMQ connection closed.")
		}
	} else if rabbitConn == nil {
		logger.Info("RabbitMQ connection was not established, skipping close.")
	} else {
		logger.Info("RabbitMQ connection already closed, skipping close.")
	}
}

func shutdownHTTPServer(srv *http.Server, serverErrors <-chan error, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server graceful shutdown failed", "error", err)
		} else {
			logger.Info("HTTP server shutdown initiated.")
		}
		if err := srv.Close(); err != nil {
			logger.Error("HTTP server forced close failed", "error", err)
		}
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}

	logger.Info("Waiting for server goroutine to confirm exit...")
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Server goroutine exited with unexpected error after shutdown", "error", err)
		} else {
			logger.Info("Server goroutine confirmed exit.")
		}
	case <-time.After(5 * time.Second):
		logger.Warn("Timed out waiting for server goroutine confirmation.")
	}
}

func startBatchJobs(cfg *config.Config, logger *slog.Logger, statusJob *batch.StatusAutomationJob, paymentsDueJob *batch.PaymentsDueJob) *cron.Cron {
	logger.Info("Initializing batch job scheduler...")
	c := cron.New()

	scheduleJob(c, logger, "StatusAutomation",
		cfg.Batch.StatusUpdateSchedule, "*/10 * * * *",
		cfg.Batch.StatusUpdateTimeout, 30*time.Minute,
		statusJob.Run)

	scheduleJob(c, logger, "PaymentsDue",
		cfg.Batch.PaymentsDueSchedule, "0 9 * * *",
		cfg.Batch.PaymentsDueTimeout, 10*time.Minute,
		paymentsDueJob.Run)

	c.Start()
	logger.Info("Cron scheduler started.")
	return c
}

func scheduleJob(c *cron.Cron, logger *slog.Logger, name, scheduleSpec, defaultSpec string,
	timeout, defaultTimeout time.Duration, run func(ctx context.Context) error) {
	if scheduleSpec == "" {
		scheduleSpec = defaultSpec
		logger.Warn("Batch job schedule not configured, using default", "job_name", name, "schedule", scheduleSpec)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	jobID, err := c.AddJob(scheduleSpec, cron.FuncJob(func() {
		jobLogger := logger.With("job_name", name)
		jobLogger.Info("Cron triggered: running batch job.")

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if runErr := run(ctx); runErr != nil {
			jobLogger.Error("Batch job finished with error", slog.Any("error", runErr))
		} else {
			jobLogger.Info("Batch job finished successfully.")
		}
	}))

	if err != nil {
		logger.Error("Failed to schedule batch job", "job_name", name, "schedule", scheduleSpec, slog.Any("error", err))
	} else {
		logger.Info("Scheduled batch job", "job_name", name, "schedule", scheduleSpec, "job_id", jobID)
	}
}

func connectRabbitMQ(uri string, logger *slog.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	retryCount := 5
	for i := 1; i <= retryCount; i++ {
		conn, err = amqp.Dial(uri)
		if err == nil {
			logger.Info("Successfully connected to RabbitMQ")

			go func() {
				blockChan := conn.NotifyBlocked(make(chan amqp.Blocking))
				closeChan := conn.NotifyClose(make(chan *amqp.Error))

				select {
				case b := <-blockChan:
					logger.Warn("RabbitMQ Connection Blocked", "reason", b.Reason)
				case e := <-closeChan:
					logger.Error("RabbitMQ Connection Closed", slog.Any("error", e))
				}
			}()

			return conn, nil
		}
		logger.Warn("Failed to connect to RabbitMQ, retrying...",
			slog.Int("attempt", i),
			slog.Int("max_attempts", retryCount),
			slog.Any("error", err),
		)
		time.Sleep(time.Duration(i*2) * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", retryCount, err)
}

// setupRabbitMQ returns nil when messaging is disabled or unreachable;
// the service runs without events in that case.
func setupRabbitMQ(cfg *config.Config, logger *slog.Logger) *amqp.Connection {
	if !cfg.RabbitMQ.Enabled {
		logger.Info("RabbitMQ disabled, domain events will not be published.")
		return nil
	}
	if cfg.RabbitMQ.Host == "" {
		logger.Warn("RabbitMQ host is not configured, domain events will not be published.")
		return nil
	}

	uri := fmt.Sprintf("amqp://%s:%d", cfg.RabbitMQ.Host, cfg.RabbitMQ.Port)
	if cfg.RabbitMQ.Username != "" && cfg.RabbitMQ.Password != "" {
		uri = fmt.Sprintf("amqp://%s:%s@%s:%d", cfg.RabbitMQ.Username, cfg.RabbitMQ.Password, cfg.RabbitMQ.Host, cfg.RabbitMQ.Port)
	}

	conn, err := connectRabbitMQ(uri, logger)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ, continuing without events", "error", err)
		return nil
	}
	return conn
}
