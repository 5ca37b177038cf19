package dataset

import (
	"strings"
	"testing"
)

func TestLoadCompanies(t *testing.T) {
	input := strings.Join([]string{
		"Company Name,State,Industry,Revenue Millions,Env Giving Millions,Transparency Score,Year",
		"Acme Corp,CA,Technology,1200,12.5,72,2024",
		"Bolt Energy,TX,Energy,\"$4,500\",30,45,2024",
		"NoGiving Inc,NY,Finance,800,,60,2024",
		"BadState LLC,ZZ,Finance,800,5,60,2024",
	}, "\n")

	companies, report, err := LoadCompanies(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadCompanies failed: %v", err)
	}

	if len(companies) != 2 {
		t.Fatalf("Expected 2 companies, got %d", len(companies))
	}
	if report.Loaded != 2 {
		t.Errorf("Expected 2 loaded, got %d", report.Loaded)
	}
	if report.Skipped != 2 {
		t.Errorf("Expected 2 skipped, got %d", report.Skipped)
	}
	if report.SkipReasons["unparseable giving"] != 1 {
		t.Errorf("Expected 1 unparseable giving, got %d", report.SkipReasons["unparseable giving"])
	}
	if report.SkipReasons["unknown state"] != 1 {
		t.Errorf("Expected 1 unknown state, got %d", report.SkipReasons["unknown state"])
	}
	if report.IngestionID == "" {
		t.Error("Expected ingestion ID to be set")
	}

	acme := companies[0]
	if acme.Name != "Acme Corp" {
		t.Errorf("Expected Acme Corp, got %s", acme.Name)
	}
	if acme.Region != "West" {
		t.Errorf("Expected West region, got %s", acme.Region)
	}
	if acme.ReportingLevel != ReportingDetailed {
		t.Errorf("Expected Detailed reporting level, got %s", acme.ReportingLevel)
	}

	bolt := companies[1]
	if bolt.RevenueMillions == nil || *bolt.RevenueMillions != 4500 {
		t.Errorf("Expected revenue 4500, got %v", bolt.RevenueMillions)
	}
}

func TestLoadCompaniesMissingColumn(t *testing.T) {
	input := "Company Name,State,Industry\nAcme,CA,Tech\n"

	_, _, err := LoadCompanies(strings.NewReader(input))
	if err == nil {
		t.Fatal("Expected error for missing giving column")
	}
}

func TestLoadCompaniesScoreClamping(t *testing.T) {
	input := strings.Join([]string{
		"name,state,industry,giving,transparency_score,esg_score",
		"Acme,CA,Tech,5,150,-10",
	}, "\n")

	companies, _, err := LoadCompanies(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadCompanies failed: %v", err)
	}
	if len(companies) != 1 {
		t.Fatalf("Expected 1 company, got %d", len(companies))
	}
	if *companies[0].TransparencyScore != 100 {
		t.Errorf("Expected transparency clamped to 100, got %f", *companies[0].TransparencyScore)
	}
	if *companies[0].ESGScore != 0 {
		t.Errorf("Expected ESG clamped to 0, got %f", *companies[0].ESGScore)
	}
}

func TestLoadIncidents(t *testing.T) {
	input := strings.Join([]string{
		"company_name,state,latitude,longitude,incident_type,severity,remediation_cost_millions,in_environmental_justice_community,year",
		"Acme Corp,CA,34.05,-118.24,Chemical Spill,3,0.4,true,2024",
		",TX,29.76,-95.36,Emissions Exceedance,2,0.1,false,2024",
		"Bad Row,CA,999,-118.24,Oil Spill,3,0.4,false,2024",
		"Bad Severity,CA,34.05,-118.24,Oil Spill,9,0.4,false,2024",
	}, "\n")

	incidents, report, err := LoadIncidents(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadIncidents failed: %v", err)
	}

	if len(incidents) != 2 {
		t.Fatalf("Expected 2 incidents, got %d", len(incidents))
	}
	if report.Skipped != 2 {
		t.Errorf("Expected 2 skipped, got %d", report.Skipped)
	}

	// Anonymized incidents keep an empty company reference
	if incidents[1].CompanyName != "" {
		t.Errorf("Expected anonymized incident, got company %q", incidents[1].CompanyName)
	}
	if !incidents[0].InEJCommunity {
		t.Error("Expected first incident flagged as EJ community")
	}
}

func TestReportingLevelForScore(t *testing.T) {
	cases := []struct {
		score float64
		level string
	}{
		{5, ReportingMinimal},
		{25, ReportingBasic},
		{45, ReportingStandard},
		{65, ReportingDetailed},
		{85, ReportingComprehensive},
	}

	for _, c := range cases {
		if got := ReportingLevelForScore(c.score); got != c.level {
			t.Errorf("Score %f: expected %s, got %s", c.score, c.level, got)
		}
	}
}

func TestRegionForState(t *testing.T) {
	if RegionForState("NY") != "Northeast" {
		t.Errorf("Expected Northeast for NY, got %s", RegionForState("NY"))
	}
	if RegionForState("XX") != "" {
		t.Errorf("Expected empty region for unknown state, got %s", RegionForState("XX"))
	}
}
