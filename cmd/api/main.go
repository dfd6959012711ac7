package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/config"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/database"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/handler"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/logger"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/metrics"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/mqtt"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/realtime"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/repository"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/server"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		// Fallback logger since main logger isn't ready
		panic("Failed to load configuration: " + err.Error())
	}

	// 2. Initialize Logger
	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		LogFilePath: cfg.Logging.FilePath,
		UseColors:   cfg.Logging.UseColors,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer log.Close()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Configuration validation failed: %v", err)
	}

	cfg.Print()
	log.Info("Starting Feedback Platform API Server")

	// 3. Database Connection
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Info("Database connected successfully")

	// 4. Metrics
	promRegistry := prometheus.NewRegistry()
	if err := metrics.Register(promRegistry); err != nil {
		log.Fatal("Failed to register metrics: %v", err)
	}

	// 5. Realtime Registry
	registry := realtime.NewRegistry(cfg.Realtime, log)

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()
	go registry.Run(runCtx)

	// 6. Repositories
	feedbackRepo := repository.NewFeedbackRepository(db.DB)
	ruleRepo := repository.NewAlertRuleRepository(db.DB)
	notificationRepo := repository.NewNotificationRepository(db.DB)

	// 7. Services
	ruleEngine := service.NewRuleEngine(ruleRepo, notificationRepo, registry, log)
	feedbackService := service.NewFeedbackService(feedbackRepo, ruleEngine, registry, log)
	notificationService := service.NewNotificationService(notificationRepo, registry, log)
	ruleService := service.NewAlertRuleService(ruleRepo, log)

	// 8. Optional MQTT kiosk ingest
	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.NewClient(mqtt.ClientConfig{
			MQTT:   &cfg.MQTT,
			Logger: log,
		})
		if err != nil {
			log.Fatal("Failed to create MQTT client: %v", err)
		}
		defer func() {
			if err := mqttClient.Disconnect(); err != nil {
				log.Error("Failed to disconnect MQTT: %v", err)
			}
		}()

		if err := mqttClient.Connect(); err != nil {
			log.Fatal("Failed to connect to MQTT broker: %v", err)
		}

		ingest := mqtt.NewIngest(feedbackService, log)
		if err := ingest.Start(mqttClient, cfg.MQTT.FeedbackTopic); err != nil {
			log.Fatal("Failed to subscribe to kiosk feedback topic: %v", err)
		}

		log.Info("MQTT kiosk ingest active on %s", cfg.MQTT.FeedbackTopic)
	}

	// 9. Handlers
	feedbackHandler := handler.NewFeedbackHandler(feedbackService, log)
	notificationHandler := handler.NewNotificationHandler(notificationService, log)
	ruleHandler := handler.NewAlertRuleHandler(ruleService, log)
	healthHandler := handler.NewHealthHandler(db, registry, log)
	wsHandler := realtime.NewWSHandler(registry, cfg.Realtime, cfg.Security.JWTSecret, log)

	// 10. HTTP Server
	srv := server.New(cfg, log)
	srv.RegisterHandlers(
		feedbackHandler,
		notificationHandler,
		ruleHandler,
		healthHandler,
		wsHandler,
		promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}),
	)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal("Server failed: %v", err)
		}
	}()

	log.Info("API server ready on http://%s:%d", cfg.Server.Host, cfg.Server.Port)

	// 11. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Warn("Shutdown signal received")

	cancelRun()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error: %v", err)
	}

	log.Info("Shutdown complete")
}
