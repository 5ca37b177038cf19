package ranking

import (
	"sort"

	"github.com/seedlabs/seed-server/internal/dataset"
	"github.com/seedlabs/seed-server/pkg/config"
)

// Performance bands, ordered worst to best.
const (
	BandLaggard      = "Laggard"
	BandBelowAverage = "Below Average"
	BandAboveAverage = "Above Average"
	BandLeader       = "Leader"
)

// reportingLevelFactor scales the transparency weight when only a
// categorical reporting level is available.
var reportingLevelFactor = map[string]float64{
	dataset.ReportingMinimal:       0.2,
	dataset.ReportingBasic:         0.4,
	dataset.ReportingStandard:      0.6,
	dataset.ReportingDetailed:      0.8,
	dataset.ReportingComprehensive: 1.0,
}

// ScoredCompany is one company with its composite leadership score and the
// per-component breakdown.
type ScoredCompany struct {
	Name               string  `json:"name"`
	State              string  `json:"state"`
	Industry           string  `json:"industry"`
	GivingMillions     float64 `json:"giving_millions"`
	Score              float64 `json:"score"`
	Band               string  `json:"band"`
	GivingComponent    float64 `json:"giving_component"`
	TransparencyComp   float64 `json:"transparency_component"`
	ImpactComponent    float64 `json:"impact_component"`
	IncidentComponent  float64 `json:"incident_component"`
}

// Score computes composite leadership scores for the companies under the
// given policy and returns them sorted best first (ties broken by name for
// deterministic output).
//
// Components: a base score, giving percentile (giving as % of revenue when
// revenue is known, absolute giving otherwise), transparency (direct score
// or reporting-level lookup), and inverted percentiles of impact score and
// incident count.
func Score(companies []dataset.Company, policy *config.RankingConfig) []ScoredCompany {
	if len(companies) == 0 {
		return []ScoredCompany{}
	}

	givingRanks := givingPercentiles(companies)
	impactRanks := impactPercentiles(companies)
	incidentRanks := incidentPercentiles(companies)

	scored := make([]ScoredCompany, len(companies))
	for i := range companies {
		c := &companies[i]
		s := ScoredCompany{
			Name:           c.Name,
			State:          c.State,
			Industry:       c.Industry,
			GivingMillions: c.GivingMillions,
			Score:          policy.BaseScore,
		}

		s.GivingComponent = givingRanks[i] * policy.GivingWeight
		s.Score += s.GivingComponent

		s.TransparencyComp = transparencyComponent(c, policy.TransparencyWeight)
		s.Score += s.TransparencyComp

		if rank, ok := impactRanks[i]; ok {
			s.ImpactComponent = (1 - rank) * policy.ImpactWeight
			s.Score += s.ImpactComponent
		}

		s.IncidentComponent = (1 - incidentRanks[i]) * policy.IncidentWeight
		s.Score += s.IncidentComponent

		s.Band = band(s.Score, policy)
		scored[i] = s
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Name < scored[j].Name
	})
	return scored
}

// Leaders returns the top n scored companies.
func Leaders(scored []ScoredCompany, n int) []ScoredCompany {
	if n > len(scored) {
		n = len(scored)
	}
	return scored[:n]
}

// Laggards returns the bottom n scored companies, worst first.
func Laggards(scored []ScoredCompany, n int) []ScoredCompany {
	if n > len(scored) {
		n = len(scored)
	}
	out := make([]ScoredCompany, n)
	for i := 0; i < n; i++ {
		out[i] = scored[len(scored)-1-i]
	}
	return out
}

// IndustryBenchmark holds per-industry score averages.
type IndustryBenchmark struct {
	Industry     string  `json:"industry"`
	CompanyCount int     `json:"company_count"`
	AvgScore     float64 `json:"avg_score"`
}

// BenchmarkByIndustry computes mean leadership scores per industry, sorted
// by average score descending.
func BenchmarkByIndustry(scored []ScoredCompany) []IndustryBenchmark {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, s := range scored {
		sums[s.Industry] += s.Score
		counts[s.Industry]++
	}

	out := make([]IndustryBenchmark, 0, len(sums))
	for industry, sum := range sums {
		out = append(out, IndustryBenchmark{
			Industry:     industry,
			CompanyCount: counts[industry],
			AvgScore:     sum / float64(counts[industry]),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgScore != out[j].AvgScore {
			return out[i].AvgScore > out[j].AvgScore
		}
		return out[i].Industry < out[j].Industry
	})
	return out
}

func band(score float64, policy *config.RankingConfig) string {
	switch {
	case score <= policy.LaggardMax:
		return BandLaggard
	case score <= policy.BelowAverageMax:
		return BandBelowAverage
	case score <= policy.AboveAverageMax:
		return BandAboveAverage
	default:
		return BandLeader
	}
}

func transparencyComponent(c *dataset.Company, weight float64) float64 {
	if c.TransparencyScore != nil {
		return *c.TransparencyScore / 100 * weight
	}
	if factor, ok := reportingLevelFactor[c.ReportingLevel]; ok {
		return factor * weight
	}
	return 0
}

// givingPercentiles ranks companies by giving intensity. Companies with
// revenue are ranked on giving as % of revenue; companies without revenue
// fall back to their rank on absolute giving.
func givingPercentiles(companies []dataset.Company) []float64 {
	pctValues := make([]float64, 0, len(companies))
	pctIndex := make([]int, 0, len(companies))
	absValues := make([]float64, len(companies))

	for i := range companies {
		absValues[i] = companies[i].GivingMillions
		if pct, ok := companies[i].GivingPct(); ok {
			pctValues = append(pctValues, pct)
			pctIndex = append(pctIndex, i)
		}
	}

	ranks := percentileRanks(absValues)
	if len(pctValues) > 0 {
		pctRanks := percentileRanks(pctValues)
		for j, i := range pctIndex {
			ranks[i] = pctRanks[j]
		}
	}
	return ranks
}

func impactPercentiles(companies []dataset.Company) map[int]float64 {
	values := make([]float64, 0, len(companies))
	index := make([]int, 0, len(companies))
	for i := range companies {
		if companies[i].ImpactScore != nil {
			values = append(values, *companies[i].ImpactScore)
			index = append(index, i)
		}
	}

	out := make(map[int]float64, len(index))
	if len(values) == 0 {
		return out
	}
	ranks := percentileRanks(values)
	for j, i := range index {
		out[i] = ranks[j]
	}
	return out
}

func incidentPercentiles(companies []dataset.Company) []float64 {
	values := make([]float64, len(companies))
	for i := range companies {
		values[i] = float64(companies[i].IncidentCount)
	}
	return percentileRanks(values)
}

// percentileRanks returns each value's fractional rank in (0, 1], with
// ties sharing their average rank.
func percentileRanks(values []float64) []float64 {
	n := len(values)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && values[order[j]] == values[order[i]] {
			j++
		}
		// Average rank across the tie run, 1-based
		avg := float64(i+1+j) / 2
		for k := i; k < j; k++ {
			ranks[order[k]] = avg / float64(n)
		}
		i = j
	}
	return ranks
}
