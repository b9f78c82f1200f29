package cmd

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic-waitlist/config"
	"clinic-waitlist/handlers"
	"clinic-waitlist/monitoring"
	"clinic-waitlist/security"
	"clinic-waitlist/services"
	"clinic-waitlist/tasks"
	"clinic-waitlist/utils"

	"github.com/hibiken/asynq"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"

	_ "clinic-waitlist/migrations"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	// Initialize PubNub
	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey

	pn := pubnub.NewPubNub(pnConfig)

	// Asynq shares the Redis instance
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.Default()

	// Initialize services
	analytics := services.NewAnalytics()
	estimator := services.NewEstimator(cfg.DefaultServiceDuration, analytics)
	trigger := services.NewTrigger(cfg.NotifyThreshold, cfg.WaitUpdateDelta, cfg.WaitUpdateCooldown, nil)
	store := services.NewRedisStore(redisClient)
	dispatcher := tasks.NewDispatcher(asynqClient, pn, logger)
	queueService := services.NewQueueService(cfg, store, estimator, trigger, analytics, dispatcher, logger)

	// Restore today's session from Redis on restart
	if err := queueService.Restore(ctx); err != nil {
		log.Printf("Session restore failed, starting empty: %v", err)
	}
	// Entries archived earlier today (a reopened day) count too. Replay
	// adds on top of what Restore already rebuilt from the live session.
	if archived, err := store.LoadArchive(ctx, queueService.Date()); err == nil && len(archived) > 0 {
		analytics.Replay(archived)
	}

	// Async side-effect worker
	taskHandlers := tasks.NewHandlers(app, cfg, queueService, tasks.NewMockSMS(logger), logger)
	tasks.StartWorker(redisOpt, taskHandlers)

	// Initialize handlers
	queueHandler := handlers.NewQueueHandler(app, queueService, dispatcher)
	statusHandler := handlers.NewStatusHandler(app, queueService)
	analyticsHandler := handlers.NewAnalyticsHandler(app, analytics, store)
	adminHandler := handlers.NewAdminHandler(app, queueService, analytics)
	limiter := security.NewRateLimiter(redisClient)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Start background tasks
	go queueService.StartDayRollover(ctx, cfg.DayRolloverCheck)
	go refreshEstimates(ctx, queueService, cfg.EstimateRefreshInterval)

	if cfg.EnableMetrics {
		monitor := monitoring.NewMonitor(queueService)
		go monitor.Run(ctx, 30*time.Second)
		go serveMetrics(cfg.MetricsPort)
	}

	// Setup graceful shutdown
	go handleShutdown(cancel)

	// Register routes
	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		// Staff queue endpoints
		se.Router.POST("/api/waitlist/checkin", queueHandler.CheckIn).
			BindFunc(limiter.Guard("checkin", 30, time.Minute))
		se.Router.GET("/api/waitlist/queue", queueHandler.Snapshot)
		se.Router.POST("/api/waitlist/reorder", queueHandler.Reorder)
		se.Router.POST("/api/waitlist/entries/{id}/advance", queueHandler.Advance)
		se.Router.POST("/api/waitlist/entries/{id}/outside", queueHandler.Outside)
		se.Router.POST("/api/waitlist/entries/{id}/alert", queueHandler.CustomAlert)

		// Patient status endpoints (token is the capability)
		se.Router.GET("/api/status/{token}", statusHandler.Status).
			BindFunc(limiter.Guard("status", 60, time.Minute))
		se.Router.POST("/api/status/{token}/outside", statusHandler.ToggleOutside).
			BindFunc(limiter.Guard("status", 60, time.Minute))

		// Analytics endpoints
		se.Router.GET("/api/analytics/summary", analyticsHandler.Summary)
		se.Router.POST("/api/analytics/recompute", analyticsHandler.Recompute)
		se.Router.GET("/api/analytics/throughput", analyticsHandler.Throughput)
		se.Router.POST("/api/analytics/throughput/reset", analyticsHandler.ResetThroughput)

		// Admin endpoints
		se.Router.GET("/api/admin/dashboard", adminHandler.Dashboard)
		se.Router.POST("/api/admin/archive-day", adminHandler.ArchiveDay)

		// Health check
		se.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		return se.Next()
	})

	return app.Start()
}

func refreshEstimates(ctx context.Context, queueService *services.QueueService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := queueService.RefreshEstimates(ctx); err != nil {
				log.Printf("Estimate refresh failed: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func serveMetrics(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Printf("Metrics server stopped: %v", err)
	}
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
