package rollup

import (
	"fmt"

	"github.com/seedlabs/seed-server/internal/database"
)

// Refresher recomputes the precomputed rollup tables from the base
// dataset. The dashboard map and industry views read these instead of
// scanning the full companies table.
type Refresher struct {
	db *database.DB
}

// NewRefresher creates a rollup refresher.
func NewRefresher(db *database.DB) *Refresher {
	return &Refresher{db: db}
}

// RefreshStates rebuilds per-state rollups with a GROUP BY upsert,
// folding in incident and environmental-justice counts.
func (r *Refresher) RefreshStates() error {
	fmt.Println("Refreshing state rollups")

	query := `
		INSERT INTO state_rollups (
			state, company_count, total_giving_millions, total_revenue_millions,
			avg_transparency, avg_esg, incident_count, ej_incident_count,
			refreshed_at
		)
		SELECT
			c.state,
			COUNT(*) AS company_count,
			SUM(c.giving_millions) AS total_giving_millions,
			SUM(c.revenue_millions) AS total_revenue_millions,
			AVG(c.transparency_score) AS avg_transparency,
			AVG(c.esg_score) AS avg_esg,
			COALESCE(i.incident_count, 0),
			COALESCE(i.ej_incident_count, 0),
			CURRENT_TIMESTAMP
		FROM
			companies c
		LEFT JOIN (
			SELECT state,
			       COUNT(*) AS incident_count,
			       COUNT(*) FILTER (WHERE in_ej_community) AS ej_incident_count
			FROM incidents
			GROUP BY state
		) i ON i.state = c.state
		GROUP BY
			c.state, i.incident_count, i.ej_incident_count
		ON CONFLICT (state) DO UPDATE
		SET
			company_count = EXCLUDED.company_count,
			total_giving_millions = EXCLUDED.total_giving_millions,
			total_revenue_millions = EXCLUDED.total_revenue_millions,
			avg_transparency = EXCLUDED.avg_transparency,
			avg_esg = EXCLUDED.avg_esg,
			incident_count = EXCLUDED.incident_count,
			ej_incident_count = EXCLUDED.ej_incident_count,
			refreshed_at = EXCLUDED.refreshed_at
	`

	result, err := r.db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to refresh state rollups: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	fmt.Printf("State rollup completed: %d states processed\n", rowsAffected)

	return nil
}

// RefreshIndustries rebuilds per-industry rollups.
func (r *Refresher) RefreshIndustries() error {
	fmt.Println("Refreshing industry rollups")

	query := `
		INSERT INTO industry_rollups (
			industry, company_count, total_giving_millions,
			total_revenue_millions, avg_transparency, avg_esg, refreshed_at
		)
		SELECT
			industry,
			COUNT(*) AS company_count,
			SUM(giving_millions) AS total_giving_millions,
			SUM(revenue_millions) AS total_revenue_millions,
			AVG(transparency_score) AS avg_transparency,
			AVG(esg_score) AS avg_esg,
			CURRENT_TIMESTAMP
		FROM
			companies
		GROUP BY
			industry
		ON CONFLICT (industry) DO UPDATE
		SET
			company_count = EXCLUDED.company_count,
			total_giving_millions = EXCLUDED.total_giving_millions,
			total_revenue_millions = EXCLUDED.total_revenue_millions,
			avg_transparency = EXCLUDED.avg_transparency,
			avg_esg = EXCLUDED.avg_esg,
			refreshed_at = EXCLUDED.refreshed_at
	`

	result, err := r.db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to refresh industry rollups: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	fmt.Printf("Industry rollup completed: %d industries processed\n", rowsAffected)

	return nil
}

// RefreshAll refreshes every rollup table.
func (r *Refresher) RefreshAll() error {
	if err := r.RefreshStates(); err != nil {
		return err
	}
	return r.RefreshIndustries()
}
