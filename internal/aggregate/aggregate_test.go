package aggregate

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/seedlabs/seed-server/internal/dataset"
)

func fptr(v float64) *float64 { return &v }

func TestAggregateByIndustry(t *testing.T) {
	companies := []dataset.Company{
		{Name: "A1", Industry: "A", GivingMillions: 1},
		{Name: "A2", Industry: "A", GivingMillions: 2},
		{Name: "B1", Industry: "B", GivingMillions: 7},
	}

	agg, err := Aggregate(companies, DimIndustry)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if len(agg.Groups) != 2 {
		t.Fatalf("Expected 2 groups, got %d", len(agg.Groups))
	}

	a := agg.Groups[0]
	if a.Key != "A" || a.TotalGivingMillions != 3 {
		t.Errorf("Expected industry A total 3, got %s=%f", a.Key, a.TotalGivingMillions)
	}
	if math.Abs(a.GivingShare-30) > 1e-9 {
		t.Errorf("Expected industry A share 30%%, got %f", a.GivingShare)
	}

	b := agg.Groups[1]
	if b.Key != "B" || math.Abs(b.GivingShare-70) > 1e-9 {
		t.Errorf("Expected industry B share 70%%, got %s=%f", b.Key, b.GivingShare)
	}
}

func TestAggregateSharesSumTo100(t *testing.T) {
	companies := []dataset.Company{
		{Name: "A", State: "CA", GivingMillions: 1.1},
		{Name: "B", State: "TX", GivingMillions: 2.7},
		{Name: "C", State: "NY", GivingMillions: 0.2},
		{Name: "D", State: "CA", GivingMillions: 9.3},
	}

	agg, err := Aggregate(companies, DimState)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	total := 0.0
	for _, g := range agg.Groups {
		total += g.GivingShare
	}
	if math.Abs(total-100) > 1e-9 {
		t.Errorf("Expected shares to sum to 100, got %f", total)
	}
}

func TestAggregatePartialRevenuePolicy(t *testing.T) {
	companies := []dataset.Company{
		{Name: "WithRev", Industry: "A", GivingMillions: 10, RevenueMillions: fptr(1000)},
		{Name: "NoRev", Industry: "A", GivingMillions: 5},
	}

	agg, err := Aggregate(companies, DimIndustry)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	g := agg.Groups[0]

	// Raw totals include every record
	if g.TotalGivingMillions != 15 {
		t.Errorf("Expected raw total 15, got %f", g.TotalGivingMillions)
	}
	if g.CompanyCount != 2 {
		t.Errorf("Expected count 2, got %d", g.CompanyCount)
	}

	// Ratio only covers the revenue-bearing record: 10/1000 = 1%
	if g.RevenueEligible != 1 {
		t.Errorf("Expected 1 revenue-eligible record, got %d", g.RevenueEligible)
	}
	if g.GivingPctOfRevenue == nil || math.Abs(*g.GivingPctOfRevenue-1) > 1e-9 {
		t.Errorf("Expected giving pct of revenue 1%%, got %v", g.GivingPctOfRevenue)
	}
}

func TestAggregateDeterminism(t *testing.T) {
	companies := []dataset.Company{
		{Name: "C", State: "NY", GivingMillions: 3, TransparencyScore: fptr(70)},
		{Name: "A", State: "CA", GivingMillions: 1, ESGScore: fptr(55)},
		{Name: "B", State: "CA", GivingMillions: 2, RevenueMillions: fptr(100)},
	}

	first, err := Aggregate(companies, DimState)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	second, err := Aggregate(companies, DimState)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Error("Expected byte-identical aggregation results")
	}
}

func TestAggregateUnknownDimension(t *testing.T) {
	_, err := Aggregate(nil, "zipcode")
	if err == nil {
		t.Fatal("Expected error for unknown dimension")
	}
}

func TestAggregateUnknownYearGroup(t *testing.T) {
	companies := []dataset.Company{
		{Name: "A", GivingMillions: 1, Year: 2024},
		{Name: "B", GivingMillions: 2},
	}

	agg, err := Aggregate(companies, DimYear)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	found := false
	for _, g := range agg.Groups {
		if g.Key == "Unknown" && g.CompanyCount == 1 {
			found = true
		}
	}
	if !found {
		t.Error("Expected records without a year under the Unknown group")
	}
}

func TestCorrelatePairwiseExclusion(t *testing.T) {
	companies := []dataset.Company{
		{Name: "A", GivingMillions: 1, ImpactScore: fptr(10)},
		{Name: "B", GivingMillions: 2, ImpactScore: fptr(20)},
		{Name: "C", GivingMillions: 3, ImpactScore: fptr(30)},
		{Name: "D", GivingMillions: 4, ImpactScore: fptr(42)},
		{Name: "E", GivingMillions: 100}, // no impact score, excluded pairwise
	}

	c, err := Correlate(companies, PairImpactGiving)
	if err != nil {
		t.Fatalf("Correlate failed: %v", err)
	}

	if c.SampleSize != 4 {
		t.Errorf("Expected sample size 4, got %d", c.SampleSize)
	}
	if c.Coefficient < 0.99 {
		t.Errorf("Expected near-perfect positive correlation, got %f", c.Coefficient)
	}
	if c.Strength != "strong positive" {
		t.Errorf("Expected strong positive, got %s", c.Strength)
	}
}

func TestCorrelateInsufficientData(t *testing.T) {
	companies := []dataset.Company{
		{Name: "A", GivingMillions: 1, ImpactScore: fptr(10)},
		{Name: "B", GivingMillions: 2},
	}

	_, err := Correlate(companies, PairImpactGiving)
	if err != ErrInsufficientData {
		t.Fatalf("Expected ErrInsufficientData, got %v", err)
	}
}

func TestStrengthLabel(t *testing.T) {
	cases := []struct {
		coeff float64
		label string
	}{
		{0.8, "strong positive"},
		{0.5, "moderate positive"},
		{0.1, "weak positive"},
		{-0.2, "weak negative"},
		{-0.45, "moderate negative"},
		{-0.9, "strong negative"},
	}

	for _, c := range cases {
		if got := StrengthLabel(c.coeff); got != c.label {
			t.Errorf("Coefficient %f: expected %s, got %s", c.coeff, c.label, got)
		}
	}
}

func TestIncidentsByState(t *testing.T) {
	incidents := []dataset.Incident{
		{State: "CA", Severity: 3, InEJCommunity: true, RemediationCostMillions: 0.5},
		{State: "CA", Severity: 5, InEJCommunity: false, RemediationCostMillions: 1.5},
		{State: "TX", Severity: 2, InEJCommunity: true},
	}
	companies := []dataset.Company{
		{Name: "A", State: "CA"},
		{Name: "B", State: "CA"},
		{Name: "C", State: "NY"},
	}

	result := IncidentsByState(incidents, companies)
	if len(result) != 3 {
		t.Fatalf("Expected 3 states, got %d", len(result))
	}

	ca := result[0]
	if ca.State != "CA" || ca.IncidentCount != 2 {
		t.Fatalf("Expected CA with 2 incidents, got %s with %d", ca.State, ca.IncidentCount)
	}
	if ca.EJIncidentPct != 50 {
		t.Errorf("Expected 50%% EJ incidents, got %f", ca.EJIncidentPct)
	}
	if ca.IncidentDensity != 1 {
		t.Errorf("Expected density 1, got %f", ca.IncidentDensity)
	}
	if ca.MaxSeverity != 5 {
		t.Errorf("Expected max severity 5, got %d", ca.MaxSeverity)
	}
	if ca.TotalRemediation != 2 {
		t.Errorf("Expected 2M remediation, got %f", ca.TotalRemediation)
	}
}
