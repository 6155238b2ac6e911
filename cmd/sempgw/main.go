package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"semp-gateway/config"
	"semp-gateway/internal/api"
	"semp-gateway/internal/db"
	"semp-gateway/internal/events"
	"semp-gateway/internal/gateway"
	"semp-gateway/internal/inventory"
	"semp-gateway/internal/mqtt"
	"semp-gateway/internal/notification"
	"semp-gateway/internal/store"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const mqttQueueSize = 256

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "sempgw ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Gateway.UID == "" {
		cfg.Gateway.UID = uuid.NewString()
		logger.Printf("no gateway uid configured, generated %s", cfg.Gateway.UID)
	}
	gw := gateway.New(gateway.Info{
		Name:     cfg.Gateway.Name,
		UID:      cfg.Gateway.UID,
		Address:  cfg.Gateway.Address,
		Port:     cfg.Gateway.Port,
		SSDPPort: cfg.Gateway.SSDPPort,
	})

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")
	appStore := store.NewGormStore(gormDB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	var publishers []events.Publisher
	if cfg.Push.Enabled() {
		workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, &webpushOptions)
		workerPool.Start(ctx)
		publishers = append(publishers, workerPool)
	} else {
		logger.Println("VAPID keys are not configured; web push notifications are disabled")
	}

	if cfg.MQTT.Enabled {
		mqttPublisher, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			logger.Fatalf("failed to connect to mqtt broker %s: %v", cfg.MQTT.Broker, err)
		}
		defer mqttPublisher.Close()
		// Broker acknowledgements are awaited off the request path.
		mqttQueue := events.NewAsync(mqttPublisher, mqttQueueSize)
		mqttQueue.Start(ctx)
		publishers = append(publishers, mqttQueue)
		logger.Printf("publishing device events to %s", cfg.MQTT.Broker)
	}
	publisher := events.NewFanout(publishers...)

	if cfg.Sync.Enabled {
		syncSvc := inventory.NewService(cfg.Sync, gw, publisher)
		go syncSvc.Run(ctx)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	handler := api.NewHandler(gw, appStore, &webpushOptions, publisher)
	router := api.NewRouter(handler, api.RouterConfig{
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
		CacheTTL:        time.Duration(cfg.Server.CacheTTLSeconds) * time.Second,
		Registry:        registry,
	})

	server := api.NewServer(fmt.Sprintf(":%d", cfg.Server.Port), router)
	if err := server.Start(); err != nil {
		logger.Fatalf("HTTP server Start: %v", err)
	}
	logger.Printf("HTTP server listening on %s", server.Addr())

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	// Background workers keep consuming until in-flight requests have drained.
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}
	cancel()

	logger.Println("Server gracefully stopped")
}
