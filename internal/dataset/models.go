package dataset

// Company represents one company-year record of environmental giving data.
// Optional fields use pointers; absent values are excluded from ratio
// computations but the record still counts toward raw totals.
type Company struct {
	Name                     string   `json:"name"`
	State                    string   `json:"state"`
	Region                   string   `json:"region"`
	Industry                 string   `json:"industry"`
	SizeCategory             string   `json:"size_category,omitempty"`
	RevenueMillions          *float64 `json:"revenue_millions,omitempty"`
	GivingMillions           float64  `json:"giving_millions"`
	TransparencyScore        *float64 `json:"transparency_score,omitempty"`
	ReportingLevel           string   `json:"reporting_level,omitempty"`
	ESGScore                 *float64 `json:"esg_score,omitempty"`
	ImpactScore              *float64 `json:"impact_score,omitempty"`
	LossContingenciesMillion *float64 `json:"loss_contingencies_millions,omitempty"`
	IncidentCount            int      `json:"incident_count"`
	Year                     int      `json:"year,omitempty"`
}

// GivingPct returns giving as a percentage of revenue, or false when the
// record has no usable revenue.
func (c *Company) GivingPct() (float64, bool) {
	if c.RevenueMillions == nil || *c.RevenueMillions <= 0 {
		return 0, false
	}
	return c.GivingMillions / *c.RevenueMillions * 100, true
}

// Incident represents a single environmental incident. CompanyName may be
// empty when the incident record is anonymized.
type Incident struct {
	CompanyName             string  `json:"company_name,omitempty"`
	State                   string  `json:"state"`
	Latitude                float64 `json:"latitude"`
	Longitude               float64 `json:"longitude"`
	Type                    string  `json:"type"`
	Severity                int     `json:"severity"`
	RemediationCostMillions float64 `json:"remediation_cost_millions"`
	InEJCommunity           bool    `json:"in_ej_community"`
	Year                    int     `json:"year,omitempty"`
}

// Size categories, ordered smallest to largest.
const (
	SizeSmall     = "Small"
	SizeMedium    = "Medium"
	SizeLarge     = "Large"
	SizeVeryLarge = "Very Large"
)

// Reporting levels, ordered least to most disclosed.
const (
	ReportingMinimal       = "Minimal"
	ReportingBasic         = "Basic"
	ReportingStandard      = "Standard"
	ReportingDetailed      = "Detailed"
	ReportingComprehensive = "Comprehensive"
)

// ReportingLevelForScore derives a reporting level from a 0-100
// transparency score.
func ReportingLevelForScore(score float64) string {
	switch {
	case score < 20:
		return ReportingMinimal
	case score < 40:
		return ReportingBasic
	case score < 60:
		return ReportingStandard
	case score < 80:
		return ReportingDetailed
	default:
		return ReportingComprehensive
	}
}

// stateRegions maps US state codes to census regions.
var stateRegions = map[string]string{
	"CT": "Northeast", "ME": "Northeast", "MA": "Northeast", "NH": "Northeast",
	"RI": "Northeast", "VT": "Northeast", "NJ": "Northeast", "NY": "Northeast",
	"PA": "Northeast",
	"IL": "Midwest", "IN": "Midwest", "MI": "Midwest", "OH": "Midwest",
	"WI": "Midwest", "IA": "Midwest", "KS": "Midwest", "MN": "Midwest",
	"MO": "Midwest", "NE": "Midwest", "ND": "Midwest", "SD": "Midwest",
	"DE": "South", "FL": "South", "GA": "South", "MD": "South",
	"NC": "South", "SC": "South", "VA": "South", "DC": "South",
	"WV": "South", "AL": "South", "KY": "South", "MS": "South",
	"TN": "South", "AR": "South", "LA": "South", "OK": "South", "TX": "South",
	"AZ": "West", "CO": "West", "ID": "West", "MT": "West",
	"NV": "West", "NM": "West", "UT": "West", "WY": "West",
	"AK": "West", "CA": "West", "HI": "West", "OR": "West", "WA": "West",
}

// RegionForState returns the census region for a state code, or empty
// string for unknown codes.
func RegionForState(state string) string {
	return stateRegions[state]
}

// ValidState reports whether code is a recognized US state code.
func ValidState(code string) bool {
	_, ok := stateRegions[code]
	return ok
}
