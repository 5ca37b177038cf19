package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/seedlabs/seed-server/internal/cache"
	"github.com/seedlabs/seed-server/internal/database"
	"github.com/seedlabs/seed-server/internal/protocol"
	"github.com/seedlabs/seed-server/internal/queue"
	"github.com/seedlabs/seed-server/internal/rollup"
	"github.com/seedlabs/seed-server/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Database Writer Service...")
	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	aggCache := cache.New(redisClient, cfg.Cache.TTL)

	refresher := rollup.NewRefresher(db)

	// Create Kafka consumers
	companyConsumer := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicCompanies, "dbwriter-group")
	defer companyConsumer.Close()
	incidentConsumer := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicIncidents, "dbwriter-group")
	defer incidentConsumer.Close()
	controlConsumer := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicControl, "dbwriter-group")
	defer controlConsumer.Close()
	fmt.Println("Kafka consumers created (registering with broker...)")

	ctx := context.Background()

	companyWriter := queue.NewBatchWriter(companyConsumer, func(msg kafka.Message) error {
		record, err := protocol.DecodeCompanyMessage(msg.Value)
		if err != nil {
			return fmt.Errorf("failed to decode company message: %w", err)
		}
		return db.UpsertCompany(&record.Company, record.IngestionID)
	}, cfg.Loader.BatchSize, 5*time.Second)

	incidentWriter := queue.NewBatchWriter(incidentConsumer, func(msg kafka.Message) error {
		record, err := protocol.DecodeIncidentMessage(msg.Value)
		if err != nil {
			return fmt.Errorf("failed to decode incident message: %w", err)
		}
		return db.InsertIncident(&record.Incident, record.IngestionID)
	}, cfg.Loader.BatchSize, 5*time.Second)

	if err := companyWriter.Start(ctx); err != nil {
		log.Fatalf("Failed to start company writer: %v", err)
	}
	if err := incidentWriter.Start(ctx); err != nil {
		log.Fatalf("Failed to start incident writer: %v", err)
	}
	fmt.Println("Batch writers started")

	// Watch the control topic: when an ingestion completes, cached
	// aggregates are stale and the rollup tables need a rebuild.
	go func() {
		for {
			msg, err := controlConsumer.Consume(ctx)
			if err != nil {
				fmt.Printf("Control consumer error: %v\n", err)
				continue
			}

			complete, err := protocol.DecodeIngestionComplete(msg.Value)
			if err != nil {
				fmt.Printf("Failed to decode completion marker: %v\n", err)
				continue
			}
			fmt.Printf("Ingestion %s complete: %d companies, %d incidents\n",
				complete.IngestionID, complete.Companies, complete.Incidents)

			if err := aggCache.Invalidate(ctx); err != nil {
				fmt.Printf("Failed to invalidate cache: %v\n", err)
			} else {
				fmt.Println("Aggregate cache invalidated")
			}

			if err := refresher.RefreshAll(); err != nil {
				fmt.Printf("Failed to refresh rollups: %v\n", err)
			}

			if err := controlConsumer.Commit(ctx, msg); err != nil {
				fmt.Printf("Failed to commit control offset: %v\n", err)
			}
		}
	}()

	// Print consumer stats periodically
	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			companyStats := companyConsumer.Stats()
			incidentStats := incidentConsumer.Stats()
			fmt.Printf("Consumer stats: Companies=%d, Incidents=%d, Errors=%d\n",
				companyStats.Messages, incidentStats.Messages,
				companyStats.Errors+incidentStats.Errors)
		}
	}()

	fmt.Println("\n✓ Database Writer Service is running")
	fmt.Println("✓ Consuming records from Kafka and writing to PostgreSQL")
	fmt.Printf("✓ Batch size: %d messages | Flush interval: 5 seconds\n", cfg.Loader.BatchSize)
	fmt.Println("✓ Press Ctrl+C to stop")
	fmt.Println("\nWaiting for messages...")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
	companyWriter.Stop()
	incidentWriter.Stop()
	fmt.Println("Database Writer Service stopped")
}
