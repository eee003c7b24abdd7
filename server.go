package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonassync/licensing_backend/aiassist"
	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/handlers"
	"github.com/jonassync/licensing_backend/middlewares"
	"github.com/jonassync/licensing_backend/models"
	"github.com/jonassync/licensing_backend/search"
	"github.com/jonassync/licensing_backend/utils"
	"github.com/jonassync/licensing_backend/workflow"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 30 * time.Second

// ready reports whether the database is connected and answering.
func ready(ctx context.Context) error {
	db := config.GetDB()
	if db == nil {
		return errors.New("database not connected")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// dependencyGate answers 503 until the database is connected. /healthz
// always passes so the platform probe sees the process.
func dependencyGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path != "/healthz" && config.GetDB() == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "service starting"})
			return
		}
		c.Next()
	}
}

func newObjectStorage(ctx context.Context, logger *logrus.Logger) utils.ObjectStorage {
	storage, err := utils.NewObjectStorage(ctx)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "storage", "provider": utils.GetStorageProvider()}).
			Warn("object storage unavailable, attachment uploads disabled: " + err.Error())
		return nil
	}
	return storage
}

func newAssistant(logger *logrus.Logger) *aiassist.Assistant {
	client, err := aiassist.NewClientFromEnv()
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "ai"}).Info("AI gateway disabled: " + err.Error())
		return aiassist.NewAssistant(nil)
	}
	return aiassist.NewAssistant(client)
}

func main() {
	opts := config.LoadServerOptions()
	logger := config.GetLogger()
	if opts.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// the redis rate-limit store has to exist before the router is built
	if opts.RateLimitEnabled && opts.RateLimitStore == config.RateLimitStoreRedis && config.RedisConfigured() {
		redisCtx, cancel := context.WithTimeout(sigCtx, shutdownTimeout)
		config.ConnectRedisWithRetry(redisCtx)
		cancel()
	}

	backgroundCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	searchService := search.NewServiceFromEnv(logger)
	defer searchService.Close()

	h := &handlers.Handler{
		Options:   opts,
		Logger:    logger,
		Storage:   newObjectStorage(sigCtx, logger),
		Search:    searchService,
		Assistant: newAssistant(logger),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.CorrelationId())
	r.Use(middlewares.RequestLogger(logger))
	r.Use(middlewares.SecurityHeaders(opts.SecurityHeaders))
	r.Use(middlewares.CORS(opts))
	if opts.RateLimitEnabled {
		limiter, memoryStore := middlewares.NewRateLimiterFromOptions(opts, config.GetRedisDB(), logger)
		if memoryStore != nil {
			go memoryStore.RunSweeper(backgroundCtx, time.Minute)
		}
		r.Use(limiter.RateLimitMiddleware)
	}
	// uploads get their own limit inside the handlers
	r.Use(middlewares.BodyLimit(opts.MaxUploadBytes + 1<<20))
	r.Use(dependencyGate())
	r.Use(middlewares.AuthMiddleware())
	h.Routes(r, ready)

	// Start listening immediately (Cloud Run startup probe is TCP based).
	srv := &http.Server{
		Addr:              ":" + opts.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	if config.GetRedisDB() == nil {
		config.ConnectRedisWithRetry(sigCtx)
	}

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can block tables; SKIP_MIGRATIONS=true leaves it to `synctl migrate`.
	if !config.SkipMigrations() {
		if err := models.MigrateTable(); err != nil {
			config.LogError(logger, "main", "main", "running migrations", nil, err)
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	sweeper := workflow.NewReminderSweeper(logger, config.ReminderSweepInterval())
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		sweeper.Run(backgroundCtx)
	}()

	logger.WithFields(logrus.Fields{
		"port":        opts.Port,
		"environment": opts.Environment,
		"search":      searchService.Enabled(),
		"pubsub":      config.PubSubEnabled(),
	}).Info("server started")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers first so they don't start new work while we're draining.
	stopBackground()
	<-sweeperDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	config.ClosePubSub()
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
