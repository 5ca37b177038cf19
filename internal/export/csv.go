package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/seedlabs/seed-server/internal/dataset"
)

var companyHeader = []string{
	"company_name", "state", "region", "industry", "size_category",
	"revenue_millions", "env_giving_millions", "giving_pct_of_revenue",
	"transparency_score", "reporting_level", "esg_score",
	"environmental_impact_score", "loss_contingencies_millions",
	"incident_count", "year",
}

// WriteCompanies writes the dataset (full or filtered) as CSV. Optional
// fields are written as empty cells, not zeros, so a re-import preserves
// the distinction between missing and zero.
func WriteCompanies(w io.Writer, companies []dataset.Company) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(companyHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := range companies {
		c := &companies[i]

		givingPct := ""
		if pct, ok := c.GivingPct(); ok {
			givingPct = formatFloat(pct)
		}

		row := []string{
			c.Name,
			c.State,
			c.Region,
			c.Industry,
			c.SizeCategory,
			formatOptional(c.RevenueMillions),
			formatFloat(c.GivingMillions),
			givingPct,
			formatOptional(c.TransparencyScore),
			c.ReportingLevel,
			formatOptional(c.ESGScore),
			formatOptional(c.ImpactScore),
			formatOptional(c.LossContingenciesMillion),
			strconv.Itoa(c.IncidentCount),
			formatYear(c.Year),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

var incidentHeader = []string{
	"company_name", "state", "latitude", "longitude", "incident_type",
	"severity", "remediation_cost_millions",
	"in_environmental_justice_community", "year",
}

// WriteIncidents writes incident records as CSV.
func WriteIncidents(w io.Writer, incidents []dataset.Incident) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(incidentHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, in := range incidents {
		row := []string{
			in.CompanyName,
			in.State,
			formatFloat(in.Latitude),
			formatFloat(in.Longitude),
			in.Type,
			strconv.Itoa(in.Severity),
			formatFloat(in.RemediationCostMillions),
			strconv.FormatBool(in.InEJCommunity),
			formatYear(in.Year),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatYear(year int) string {
	if year == 0 {
		return ""
	}
	return strconv.Itoa(year)
}
