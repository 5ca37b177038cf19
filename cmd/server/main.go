package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seedlabs/seed-server/internal/cache"
	"github.com/seedlabs/seed-server/internal/database"
	"github.com/seedlabs/seed-server/internal/server"
	"github.com/seedlabs/seed-server/internal/session"
	"github.com/seedlabs/seed-server/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting SEED Dashboard Server...")

	// Connect to database
	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	// Run migrations
	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Connect to Redis for the aggregate cache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	aggCache := cache.New(redisClient, cfg.Cache.TTL)
	fmt.Printf("Aggregate cache initialized (TTL %s)\n", cfg.Cache.TTL)

	// Create session manager
	sessions := session.NewManager(cfg.HTTPServer.MaxSessions)
	fmt.Println("Session manager initialized")

	// Reap idle sessions in the background
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			if removed := sessions.CleanupInactive(cfg.HTTPServer.SessionTimeout); removed > 0 {
				fmt.Printf("Cleaned up %d inactive sessions\n", removed)
			}
		}
	}()

	// Print statistics periodically
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			stats := sessions.Stats()
			fmt.Printf("\n--- Server Statistics ---\n")
			fmt.Printf("Active Sessions: %d / %d\n", stats.ActiveSessions, stats.MaxSessions)
			fmt.Printf("Unique Filters: %d\n", stats.UniqueFilters)
			fmt.Printf("------------------------\n\n")
		}
	}()

	apiServer := server.New(db, aggCache, sessions, &cfg.Ranking)

	go func() {
		if err := apiServer.Run(cfg.HTTPServer.Port); err != nil {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	fmt.Println("\n✓ SEED Dashboard Server is running")
	fmt.Printf("✓ HTTP API listening on port %d\n", cfg.HTTPServer.Port)
	fmt.Println("✓ Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
}
