package aggregate

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/seedlabs/seed-server/internal/dataset"
)

// Grouping dimensions.
const (
	DimState    = "state"
	DimIndustry = "industry"
	DimSize     = "size"
	DimYear     = "year"
	DimRegion   = "region"
)

var dimensions = map[string]func(*dataset.Company) string{
	DimState:    func(c *dataset.Company) string { return c.State },
	DimIndustry: func(c *dataset.Company) string { return c.Industry },
	DimSize:     func(c *dataset.Company) string { return c.SizeCategory },
	DimYear: func(c *dataset.Company) string {
		if c.Year == 0 {
			return ""
		}
		return strconv.Itoa(c.Year)
	},
	DimRegion: func(c *dataset.Company) string { return c.Region },
}

// ValidDimension reports whether dim is a recognized grouping dimension.
func ValidDimension(dim string) bool {
	_, ok := dimensions[dim]
	return ok
}

// GroupMetrics holds the aggregate measures for one group. Ratio measures
// only cover records where the needed optional fields are present; the raw
// totals and counts always cover every record in the group.
type GroupMetrics struct {
	Key                  string   `json:"key"`
	CompanyCount         int      `json:"company_count"`
	TotalGivingMillions  float64  `json:"total_giving_millions"`
	GivingShare          float64  `json:"giving_share_pct"`
	GivingPerCompany     float64  `json:"giving_per_company_millions"`
	TotalRevenueMillions float64  `json:"total_revenue_millions"`
	RevenueEligible      int      `json:"revenue_eligible_count"`
	GivingPctOfRevenue   *float64 `json:"giving_pct_of_revenue,omitempty"`
	AvgTransparency      *float64 `json:"avg_transparency,omitempty"`
	AvgESG               *float64 `json:"avg_esg,omitempty"`
	IncidentCount        int      `json:"incident_count"`
}

// Aggregation is the full result for one dimension over a filtered set.
type Aggregation struct {
	Dimension           string         `json:"dimension"`
	CompanyCount        int            `json:"company_count"`
	TotalGivingMillions float64        `json:"total_giving_millions"`
	Groups              []GroupMetrics `json:"groups"`
}

// Aggregate groups the companies by the given dimension and computes
// per-group totals, counts, and ratios. Groups are sorted by key so that
// identical input always produces identical output. Records with an empty
// group key (e.g. unknown year) are grouped under "Unknown".
func Aggregate(companies []dataset.Company, dimension string) (*Aggregation, error) {
	keyFn, ok := dimensions[dimension]
	if !ok {
		return nil, fmt.Errorf("unknown dimension: %s", dimension)
	}

	type accumulator struct {
		count            int
		giving           float64
		revenue          float64
		eligibleGiving   float64
		eligibleRevenue  int
		transparencySum  float64
		transparencyN    int
		esgSum           float64
		esgN             int
		incidents        int
	}

	groups := make(map[string]*accumulator)
	totalGiving := 0.0

	for i := range companies {
		c := &companies[i]
		key := keyFn(c)
		if key == "" {
			key = "Unknown"
		}

		acc, ok := groups[key]
		if !ok {
			acc = &accumulator{}
			groups[key] = acc
		}

		acc.count++
		acc.giving += c.GivingMillions
		totalGiving += c.GivingMillions
		acc.incidents += c.IncidentCount

		if c.RevenueMillions != nil && *c.RevenueMillions > 0 {
			acc.revenue += *c.RevenueMillions
			acc.eligibleGiving += c.GivingMillions
			acc.eligibleRevenue++
		}
		if c.TransparencyScore != nil {
			acc.transparencySum += *c.TransparencyScore
			acc.transparencyN++
		}
		if c.ESGScore != nil {
			acc.esgSum += *c.ESGScore
			acc.esgN++
		}
	}

	result := &Aggregation{
		Dimension:           dimension,
		CompanyCount:        len(companies),
		TotalGivingMillions: totalGiving,
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		acc := groups[key]
		g := GroupMetrics{
			Key:                  key,
			CompanyCount:         acc.count,
			TotalGivingMillions:  acc.giving,
			GivingPerCompany:     acc.giving / float64(acc.count),
			TotalRevenueMillions: acc.revenue,
			RevenueEligible:      acc.eligibleRevenue,
			IncidentCount:        acc.incidents,
		}
		if totalGiving > 0 {
			g.GivingShare = acc.giving / totalGiving * 100
		}
		if acc.revenue > 0 {
			pct := acc.eligibleGiving / acc.revenue * 100
			g.GivingPctOfRevenue = &pct
		}
		if acc.transparencyN > 0 {
			avg := acc.transparencySum / float64(acc.transparencyN)
			g.AvgTransparency = &avg
		}
		if acc.esgN > 0 {
			avg := acc.esgSum / float64(acc.esgN)
			g.AvgESG = &avg
		}
		result.Groups = append(result.Groups, g)
	}

	return result, nil
}
