package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-rbac-auth/config"
	"github.com/oksasatya/go-rbac-auth/internal/audit"
	"github.com/oksasatya/go-rbac-auth/internal/container"
	pginfra "github.com/oksasatya/go-rbac-auth/internal/infrastructure/postgres"
	"github.com/oksasatya/go-rbac-auth/internal/observability"
	"github.com/oksasatya/go-rbac-auth/internal/router"
	"github.com/oksasatya/go-rbac-auth/pkg/helpers"
	"github.com/oksasatya/go-rbac-auth/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, pginfra.PoolConfig{
		DSN:             cfg.PostgresDSN(),
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: cfg.DBMaxConnLife,
	})
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		logger.Fatalf("migration failed: %v", err)
	}

	metrics := observability.NewMetrics()

	rec, closeAudit := auditRecorder(cfg, logger)
	defer closeAudit()

	c := container.New(cfg, logger, container.PostgresRepositories(pool), rec, metrics)
	r := router.NewEngine(c)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Errorf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}

// auditRecorder logs every event and, when enabled, also publishes it to
// RabbitMQ for the audit worker. A broker that cannot be reached at startup
// leaves only the log recorder.
func auditRecorder(cfg *config.Config, logger *logrus.Logger) (audit.Recorder, func()) {
	logRec := audit.LogRecorder{Logger: logger}
	if !cfg.AuditPublishEnabled {
		return logRec, func() {}
	}
	pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQAuditQueue)
	if err != nil {
		helpers.LogError(logger, "audit publisher unavailable, logging only", err, logrus.Fields{"queue": cfg.RabbitMQAuditQueue})
		return logRec, func() {}
	}
	logger.WithField("queue", cfg.RabbitMQAuditQueue).Info("publishing audit events")
	queue := audit.NewQueueRecorder(pub, logger)
	return audit.Multi{logRec, queue}, func() {
		queue.Close()
		pub.Close()
	}
}
