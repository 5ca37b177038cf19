package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/seedlabs/seed-server/internal/dataset"
	"github.com/seedlabs/seed-server/internal/protocol"
	"github.com/seedlabs/seed-server/internal/queue"
	"github.com/seedlabs/seed-server/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Dataset Loader...")
	fmt.Printf("Company file: %s\n", cfg.Loader.CompanyFile)
	fmt.Printf("Incident file: %s\n", cfg.Loader.IncidentFile)

	// Create topics up front so the first run does not race the dbwriter
	for _, topic := range []string{cfg.Kafka.TopicCompanies, cfg.Kafka.TopicIncidents} {
		if err := queue.CreateTopic(cfg.Kafka.Brokers, topic, cfg.Kafka.NumPartitions, 1); err != nil {
			fmt.Printf("Note: Topic creation failed (may already exist): %v\n", err)
		}
	}
	if err := queue.CreateTopic(cfg.Kafka.Brokers, cfg.Kafka.TopicControl, 1, 1); err != nil {
		fmt.Printf("Note: Topic creation failed (may already exist): %v\n", err)
	}

	companies, companyReport, err := loadCompanies(cfg.Loader.CompanyFile)
	if err != nil {
		log.Fatalf("Failed to load companies: %v", err)
	}
	fmt.Printf("Parsed %d companies (%d skipped)\n", companyReport.Loaded, companyReport.Skipped)

	incidents, incidentReport, err := loadIncidents(cfg.Loader.IncidentFile)
	if err != nil {
		log.Fatalf("Failed to load incidents: %v", err)
	}
	fmt.Printf("Parsed %d incidents (%d skipped)\n", incidentReport.Loaded, incidentReport.Skipped)

	// One ingestion ID covers the whole run so the dbwriter can correlate
	// both record streams with the completion marker.
	ingestionID := companyReport.IngestionID
	loadedAt := time.Now().UTC()
	ctx := context.Background()

	companyProducer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicCompanies)
	defer companyProducer.Close()

	for i := range companies {
		msg := &protocol.CompanyMessage{
			IngestionID: ingestionID,
			LoadedAt:    loadedAt,
			Company:     companies[i],
		}
		data, err := protocol.EncodeCompanyMessage(msg)
		if err != nil {
			log.Fatalf("Failed to encode company message: %v", err)
		}
		if err := companyProducer.Publish(ctx, companies[i].State, data); err != nil {
			log.Fatalf("Failed to publish company record: %v", err)
		}
	}
	fmt.Printf("Published %d company records\n", len(companies))

	incidentProducer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicIncidents)
	defer incidentProducer.Close()

	for i := range incidents {
		msg := &protocol.IncidentMessage{
			IngestionID: ingestionID,
			LoadedAt:    loadedAt,
			Incident:    incidents[i],
		}
		data, err := protocol.EncodeIncidentMessage(msg)
		if err != nil {
			log.Fatalf("Failed to encode incident message: %v", err)
		}
		if err := incidentProducer.Publish(ctx, incidents[i].State, data); err != nil {
			log.Fatalf("Failed to publish incident record: %v", err)
		}
	}
	fmt.Printf("Published %d incident records\n", len(incidents))

	// Signal completion so the dbwriter can invalidate stale caches
	controlProducer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicControl)
	defer controlProducer.Close()

	complete := &protocol.IngestionComplete{
		IngestionID: ingestionID,
		Companies:   len(companies),
		Incidents:   len(incidents),
		Skipped:     companyReport.Skipped + incidentReport.Skipped,
		CompletedAt: time.Now().UTC(),
	}
	data, err := protocol.EncodeIngestionComplete(complete)
	if err != nil {
		log.Fatalf("Failed to encode completion marker: %v", err)
	}
	if err := controlProducer.Publish(ctx, ingestionID, data); err != nil {
		log.Fatalf("Failed to publish completion marker: %v", err)
	}

	fmt.Printf("\n✓ Ingestion %s complete\n", ingestionID)
	printSkipReasons("companies", companyReport)
	printSkipReasons("incidents", incidentReport)
}

func loadCompanies(path string) ([]dataset.Company, *dataset.LoadReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return dataset.LoadCompanies(f)
}

func loadIncidents(path string) ([]dataset.Incident, *dataset.LoadReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return dataset.LoadIncidents(f)
}

func printSkipReasons(name string, report *dataset.LoadReport) {
	if report.Skipped == 0 {
		return
	}
	fmt.Printf("Skipped %s rows:\n", name)
	for reason, count := range report.SkipReasons {
		fmt.Printf("  %s: %d\n", reason, count)
	}
}
