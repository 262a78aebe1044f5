package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"

	"lab-status-backend/config"
	"lab-status-backend/internal/api"
	"lab-status-backend/internal/claim"
	"lab-status-backend/internal/db"
	"lab-status-backend/internal/labstate"
	"lab-status-backend/internal/lock"
	"lab-status-backend/internal/metrics"
	"lab-status-backend/internal/notification"
	"lab-status-backend/internal/prober"
	"lab-status-backend/internal/registry"
	"lab-status-backend/internal/schedule"
	"lab-status-backend/internal/store"
)

func main() {
	logger := log.New(os.Stdout, "lab-status ", log.LstdFlags)

	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Fatalf("VAPID keys must be configured. Please generate them and add them to your config file.")
	}

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	metrics.Register()

	reg := registry.New(cfg.Stations)
	logger.Printf("registry built: %d stations across %d types", len(reg.IDs()), len(reg.Types()))

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	if err := store.SeedStations(gormDB, reg); err != nil {
		logger.Fatalf("failed to seed station records: %v", err)
	}
	logger.Println("database initialized successfully")

	guard, err := lock.NewGuard(cfg.Lock.Dir, cfg.Lock.Timeout)
	if err != nil {
		logger.Fatalf("failed to initialize lock guard: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB, reg)
	sched := schedule.NewSource(cfg.Schedule.Path, cfg.Schedule.CacheTTL)
	resolver := labstate.NewResolver(appStore, reg, sched, cfg.Prober.StaleAfter)

	workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, &webpushOptions, cfg.BaseURL)
	workerPool.Start(ctx)

	claimManager := claim.NewManager(appStore, reg, guard, workerPool, cfg.Claims.TTL, cfg.Claims.Interval)
	go claimManager.Run(ctx)

	if cfg.Prober.Enabled {
		probeSvc := prober.NewService(cfg.Prober, reg, appStore, guard, sched, prober.NewTCPProber(cfg.Prober.Timeout))
		go probeSvc.Run(ctx)
	} else {
		logger.Println("occupancy prober disabled; relying on admin overrides")
	}

	router := api.NewRouter(cfg.Server, api.NewHandler(appStore, reg, guard, claimManager, resolver, &webpushOptions))
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
