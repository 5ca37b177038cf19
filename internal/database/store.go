package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/seedlabs/seed-server/internal/dataset"
)

// UpsertCompany inserts or updates a company record, keyed by (name, year).
func (db *DB) UpsertCompany(c *dataset.Company, ingestionID string) error {
	query := `
		INSERT INTO companies (
			name, state, region, industry, size_category, revenue_millions,
			giving_millions, transparency_score, reporting_level, esg_score,
			impact_score, loss_contingencies_millions, incident_count, year,
			ingestion_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (name, year) DO UPDATE
		SET state = EXCLUDED.state,
		    region = EXCLUDED.region,
		    industry = EXCLUDED.industry,
		    size_category = EXCLUDED.size_category,
		    revenue_millions = EXCLUDED.revenue_millions,
		    giving_millions = EXCLUDED.giving_millions,
		    transparency_score = EXCLUDED.transparency_score,
		    reporting_level = EXCLUDED.reporting_level,
		    esg_score = EXCLUDED.esg_score,
		    impact_score = EXCLUDED.impact_score,
		    loss_contingencies_millions = EXCLUDED.loss_contingencies_millions,
		    incident_count = EXCLUDED.incident_count,
		    ingestion_id = EXCLUDED.ingestion_id,
		    updated_at = CURRENT_TIMESTAMP
	`
	_, err := db.Exec(query,
		c.Name, c.State, c.Region, c.Industry, c.SizeCategory,
		c.RevenueMillions, c.GivingMillions, c.TransparencyScore,
		c.ReportingLevel, c.ESGScore, c.ImpactScore,
		c.LossContingenciesMillion, c.IncidentCount, c.Year, ingestionID,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert company: %w", err)
	}
	return nil
}

// InsertIncident inserts an incident record.
func (db *DB) InsertIncident(in *dataset.Incident, ingestionID string) error {
	query := `
		INSERT INTO incidents (
			company_name, state, latitude, longitude, incident_type,
			severity, remediation_cost_millions, in_ej_community, year,
			ingestion_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	companyName := sql.NullString{String: in.CompanyName, Valid: in.CompanyName != ""}
	_, err := db.Exec(query,
		companyName, in.State, in.Latitude, in.Longitude, in.Type,
		in.Severity, in.RemediationCostMillions, in.InEJCommunity, in.Year,
		ingestionID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert incident: %w", err)
	}
	return nil
}

// GetAllCompanies loads the full company dataset, ordered by name and year
// so downstream aggregation sees a stable order.
func (db *DB) GetAllCompanies() ([]dataset.Company, error) {
	query := `
		SELECT name, state, region, industry, size_category, revenue_millions,
		       giving_millions, transparency_score, reporting_level, esg_score,
		       impact_score, loss_contingencies_millions, incident_count, year
		FROM companies
		ORDER BY name, year
	`

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()

	var companies []dataset.Company
	for rows.Next() {
		var c dataset.Company
		var reportingLevel sql.NullString
		if err := rows.Scan(
			&c.Name,
			&c.State,
			&c.Region,
			&c.Industry,
			&c.SizeCategory,
			&c.RevenueMillions,
			&c.GivingMillions,
			&c.TransparencyScore,
			&reportingLevel,
			&c.ESGScore,
			&c.ImpactScore,
			&c.LossContingenciesMillion,
			&c.IncidentCount,
			&c.Year,
		); err != nil {
			return nil, err
		}
		c.ReportingLevel = reportingLevel.String
		companies = append(companies, c)
	}

	return companies, rows.Err()
}

// GetAllIncidents loads the full incident dataset.
func (db *DB) GetAllIncidents() ([]dataset.Incident, error) {
	query := `
		SELECT COALESCE(company_name, ''), state, latitude, longitude,
		       incident_type, severity, remediation_cost_millions,
		       in_ej_community, year
		FROM incidents
		ORDER BY state, year, incident_type
	`

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query incidents: %w", err)
	}
	defer rows.Close()

	var incidents []dataset.Incident
	for rows.Next() {
		var in dataset.Incident
		if err := rows.Scan(
			&in.CompanyName,
			&in.State,
			&in.Latitude,
			&in.Longitude,
			&in.Type,
			&in.Severity,
			&in.RemediationCostMillions,
			&in.InEJCommunity,
			&in.Year,
		); err != nil {
			return nil, err
		}
		incidents = append(incidents, in)
	}

	return incidents, rows.Err()
}

// DatasetVersion describes the most recent ingestion seen in storage.
type DatasetVersion struct {
	IngestionID string
	LoadedAt    time.Time
	Companies   int
	Incidents   int
}

// GetDatasetVersion returns the latest ingestion ID and record counts.
func (db *DB) GetDatasetVersion() (*DatasetVersion, error) {
	var v DatasetVersion
	query := `
		SELECT COALESCE(MAX(ingestion_id), ''),
		       COALESCE(MAX(updated_at), CURRENT_TIMESTAMP),
		       COUNT(*)
		FROM companies
	`
	if err := db.QueryRow(query).Scan(&v.IngestionID, &v.LoadedAt, &v.Companies); err != nil {
		return nil, fmt.Errorf("failed to query dataset version: %w", err)
	}

	if err := db.QueryRow(`SELECT COUNT(*) FROM incidents`).Scan(&v.Incidents); err != nil {
		return nil, fmt.Errorf("failed to count incidents: %w", err)
	}

	return &v, nil
}
