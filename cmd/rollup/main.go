package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/seedlabs/seed-server/internal/database"
	"github.com/seedlabs/seed-server/internal/rollup"
	"github.com/seedlabs/seed-server/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Rollup Service...")
	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	refresher := rollup.NewRefresher(db)

	// Refresh once at startup so the tables are populated before the first
	// scheduled run.
	if err := refresher.RefreshAll(); err != nil {
		fmt.Printf("Initial rollup refresh failed: %v\n", err)
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Rollup.Schedule, func() {
		if err := refresher.RefreshAll(); err != nil {
			fmt.Printf("Scheduled rollup refresh failed: %v\n", err)
		}
	}); err != nil {
		log.Fatalf("Invalid rollup schedule %q: %v", cfg.Rollup.Schedule, err)
	}
	scheduler.Start()

	fmt.Println("\n✓ Rollup Service is running")
	fmt.Printf("✓ Schedule: %s\n", cfg.Rollup.Schedule)
	fmt.Println("✓ Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
	<-scheduler.Stop().Done()
	fmt.Println("Rollup Service stopped")
}
