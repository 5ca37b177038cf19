package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// LoadReport summarizes one ingestion run. Skipped rows are counted per
// reason and surfaced to the caller rather than failing the whole load.
type LoadReport struct {
	IngestionID string         `json:"ingestion_id"`
	Loaded      int            `json:"loaded"`
	Skipped     int            `json:"skipped"`
	SkipReasons map[string]int `json:"skip_reasons,omitempty"`
}

func newLoadReport() *LoadReport {
	return &LoadReport{
		IngestionID: uuid.New().String(),
		SkipReasons: make(map[string]int),
	}
}

func (r *LoadReport) skip(reason string) {
	r.Skipped++
	r.SkipReasons[reason]++
}

// Column aliases accepted in company CSV headers. Headers are normalized
// (lowercased, trimmed, spaces to underscores) before lookup.
var companyColumns = map[string]string{
	"company_name":            "name",
	"name":                    "name",
	"company":                 "name",
	"corporation":             "name",
	"state":                   "state",
	"industry":                "industry",
	"sector":                  "industry",
	"size":                    "size",
	"size_category":           "size",
	"revenue":                 "revenue",
	"revenue_millions":        "revenue",
	"env_giving_millions":     "giving",
	"environmental_giving":    "giving",
	"giving":                  "giving",
	"donations":               "giving",
	"charitable_contributions": "giving",
	"transparency_score":      "transparency",
	"transparency":            "transparency",
	"reporting_quality":       "transparency",
	"reporting_level":         "reporting_level",
	"esg_score":               "esg",
	"esg":                     "esg",
	"environmental_impact_score": "impact",
	"impact_score":               "impact",
	"env_loss_contingencies_millions": "loss_contingencies",
	"loss_contingencies":              "loss_contingencies",
	"incident_count": "incident_count",
	"incidents":      "incident_count",
	"year":           "year",
	"fiscal_year":    "year",
}

var incidentColumns = map[string]string{
	"company_name":     "company",
	"company":          "company",
	"state":            "state",
	"latitude":         "lat",
	"lat":              "lat",
	"longitude":        "lon",
	"lon":              "lon",
	"long":             "lon",
	"incident_type":    "type",
	"type":             "type",
	"severity":         "severity",
	"remediation_cost_millions":          "remediation_cost",
	"remediation_cost":                   "remediation_cost",
	"in_environmental_justice_community": "ej",
	"ej_community":                       "ej",
	"year": "year",
}

// LoadCompanies reads company records from CSV. Rows missing a required
// field (name, state, industry, giving) are skipped and counted; the load
// itself only fails on unreadable input or a missing required column.
func LoadCompanies(r io.Reader) ([]Company, *LoadReport, error) {
	header, rows, err := readCSV(r)
	if err != nil {
		return nil, nil, err
	}

	cols, err := mapHeader(header, companyColumns, []string{"name", "state", "industry", "giving"})
	if err != nil {
		return nil, nil, err
	}

	report := newLoadReport()
	var companies []Company

	for _, row := range rows {
		c, reason := parseCompanyRow(row, cols)
		if reason != "" {
			report.skip(reason)
			continue
		}
		companies = append(companies, c)
		report.Loaded++
	}

	return companies, report, nil
}

// LoadIncidents reads incident records from CSV. The company reference may
// be empty (anonymized incidents); location and severity are required.
func LoadIncidents(r io.Reader) ([]Incident, *LoadReport, error) {
	header, rows, err := readCSV(r)
	if err != nil {
		return nil, nil, err
	}

	cols, err := mapHeader(header, incidentColumns, []string{"state", "lat", "lon", "type", "severity"})
	if err != nil {
		return nil, nil, err
	}

	report := newLoadReport()
	var incidents []Incident

	for _, row := range rows {
		in, reason := parseIncidentRow(row, cols)
		if reason != "" {
			report.skip(reason)
			continue
		}
		incidents = append(incidents, in)
		report.Loaded++
	}

	return incidents, report, nil
}

func readCSV(r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // tolerate ragged rows, validated per field

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("csv is empty")
	}
	return records[0], records[1:], nil
}

// mapHeader resolves aliased column names to canonical field -> index.
func mapHeader(header []string, aliases map[string]string, required []string) (map[string]int, error) {
	cols := make(map[string]int)
	for i, raw := range header {
		name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), " ", "_")
		if canonical, ok := aliases[name]; ok {
			if _, taken := cols[canonical]; !taken {
				cols[canonical] = i
			}
		}
	}
	for _, field := range required {
		if _, ok := cols[field]; !ok {
			return nil, fmt.Errorf("missing required column: %s", field)
		}
	}
	return cols, nil
}

func parseCompanyRow(row []string, cols map[string]int) (Company, string) {
	var c Company

	c.Name = cell(row, cols, "name")
	if c.Name == "" {
		return c, "missing name"
	}

	c.State = strings.ToUpper(cell(row, cols, "state"))
	if !ValidState(c.State) {
		return c, "unknown state"
	}
	c.Region = RegionForState(c.State)

	c.Industry = cell(row, cols, "industry")
	if c.Industry == "" {
		return c, "missing industry"
	}

	giving, err := parseMoney(cell(row, cols, "giving"))
	if err != nil {
		return c, "unparseable giving"
	}
	if giving < 0 {
		return c, "negative giving"
	}
	c.GivingMillions = giving

	if raw := cell(row, cols, "revenue"); raw != "" {
		if rev, err := parseMoney(raw); err == nil && rev >= 0 {
			c.RevenueMillions = &rev
		}
	}
	if raw := cell(row, cols, "transparency"); raw != "" {
		if score, err := strconv.ParseFloat(raw, 64); err == nil {
			score = clamp(score, 0, 100)
			c.TransparencyScore = &score
		}
	}
	if raw := cell(row, cols, "esg"); raw != "" {
		if score, err := strconv.ParseFloat(raw, 64); err == nil {
			score = clamp(score, 0, 100)
			c.ESGScore = &score
		}
	}
	if raw := cell(row, cols, "impact"); raw != "" {
		if score, err := strconv.ParseFloat(raw, 64); err == nil {
			score = clamp(score, 0, 100)
			c.ImpactScore = &score
		}
	}
	if raw := cell(row, cols, "loss_contingencies"); raw != "" {
		if v, err := parseMoney(raw); err == nil && v >= 0 {
			c.LossContingenciesMillion = &v
		}
	}
	if raw := cell(row, cols, "incident_count"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			c.IncidentCount = n
		}
	}
	if raw := cell(row, cols, "year"); raw != "" {
		if y, err := strconv.Atoi(raw); err == nil {
			c.Year = y
		}
	}

	c.SizeCategory = cell(row, cols, "size")
	c.ReportingLevel = cell(row, cols, "reporting_level")
	if c.ReportingLevel == "" && c.TransparencyScore != nil {
		c.ReportingLevel = ReportingLevelForScore(*c.TransparencyScore)
	}

	return c, ""
}

func parseIncidentRow(row []string, cols map[string]int) (Incident, string) {
	var in Incident

	in.CompanyName = cell(row, cols, "company")

	in.State = strings.ToUpper(cell(row, cols, "state"))
	if !ValidState(in.State) {
		return in, "unknown state"
	}

	lat, err := strconv.ParseFloat(cell(row, cols, "lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		return in, "invalid latitude"
	}
	lon, err := strconv.ParseFloat(cell(row, cols, "lon"), 64)
	if err != nil || lon < -180 || lon > 180 {
		return in, "invalid longitude"
	}
	in.Latitude = lat
	in.Longitude = lon

	in.Type = cell(row, cols, "type")
	if in.Type == "" {
		return in, "missing type"
	}

	severity, err := strconv.Atoi(cell(row, cols, "severity"))
	if err != nil || severity < 1 || severity > 5 {
		return in, "invalid severity"
	}
	in.Severity = severity

	if raw := cell(row, cols, "remediation_cost"); raw != "" {
		if v, err := parseMoney(raw); err == nil && v >= 0 {
			in.RemediationCostMillions = v
		}
	}
	if raw := cell(row, cols, "ej"); raw != "" {
		in.InEJCommunity = parseBool(raw)
	}
	if raw := cell(row, cols, "year"); raw != "" {
		if y, err := strconv.Atoi(raw); err == nil {
			in.Year = y
		}
	}

	return in, ""
}

func cell(row []string, cols map[string]int, field string) string {
	i, ok := cols[field]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseMoney strips currency formatting ($, commas) before parsing.
func parseMoney(s string) (float64, error) {
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	return strconv.ParseFloat(s, 64)
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		return true
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
