package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/seedlabs/seed-server/internal/dataset"
	"github.com/seedlabs/seed-server/internal/session"
	"github.com/seedlabs/seed-server/pkg/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeStore struct {
	companies []dataset.Company
	incidents []dataset.Incident
}

func (f *fakeStore) GetAllCompanies() ([]dataset.Company, error) {
	return f.companies, nil
}

func (f *fakeStore) GetAllIncidents() ([]dataset.Incident, error) {
	return f.incidents, nil
}

func fptr(v float64) *float64 { return &v }

func testRanking() *config.RankingConfig {
	return &config.RankingConfig{
		BaseScore:          50,
		GivingWeight:       40,
		TransparencyWeight: 30,
		ImpactWeight:       20,
		IncidentWeight:     10,
		LaggardMax:         40,
		BelowAverageMax:    60,
		AboveAverageMax:    80,
	}
}

func newTestServer() (*Server, *session.Manager) {
	store := &fakeStore{
		companies: []dataset.Company{
			{Name: "Acme Corp", State: "CA", Region: "West", Industry: "Technology",
				SizeCategory: dataset.SizeLarge, RevenueMillions: fptr(1000),
				GivingMillions: 10, TransparencyScore: fptr(80),
				ImpactScore: fptr(30), Year: 2024},
			{Name: "Bolt Energy", State: "TX", Region: "South", Industry: "Energy",
				SizeCategory: dataset.SizeVeryLarge, RevenueMillions: fptr(5000),
				GivingMillions: 5, TransparencyScore: fptr(40),
				ImpactScore: fptr(70), IncidentCount: 3, Year: 2024},
			{Name: "Crest Finance", State: "NY", Region: "Northeast", Industry: "Finance",
				SizeCategory: dataset.SizeMedium, RevenueMillions: fptr(800),
				GivingMillions: 4, TransparencyScore: fptr(60),
				ImpactScore: fptr(20), Year: 2024},
		},
		incidents: []dataset.Incident{
			{CompanyName: "Bolt Energy", State: "TX", Latitude: 29.7, Longitude: -95.3,
				Type: "Chemical Spill", Severity: 4, RemediationCostMillions: 2.5,
				InEJCommunity: true, Year: 2024},
			{State: "CA", Latitude: 34.05, Longitude: -118.24,
				Type: "Air Quality Violation", Severity: 2,
				RemediationCostMillions: 0.3, Year: 2024},
		},
	}
	sessions := session.NewManager(10)
	return New(store, nil, sessions, testRanking()), sessions
}

func doRequest(s *Server, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer()

	w := doRequest(s, http.MethodGet, "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", body["status"])
	}
}

func TestSessionLifecycle(t *testing.T) {
	s, sessions := newTestServer()

	w := doRequest(s, http.MethodPost, "/api/sessions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", w.Code)
	}

	var created struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if created.SessionID == "" {
		t.Fatal("Expected a session ID")
	}
	if sessions.Count() != 1 {
		t.Errorf("Expected 1 active session, got %d", sessions.Count())
	}

	w = doRequest(s, http.MethodDelete, "/api/sessions/"+created.SessionID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", w.Code)
	}

	w = doRequest(s, http.MethodDelete, "/api/sessions/"+created.SessionID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for removed session, got %d", w.Code)
	}
}

func TestSessionTouchOnRequest(t *testing.T) {
	s, sessions := newTestServer()

	sess, err := sessions.Create()
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	w := doRequest(s, http.MethodGet, "/api/companies?industry=Technology",
		map[string]string{"X-Session-ID": sess.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	got, _ := sessions.Get(sess.ID)
	if got.GetFilterSignature() == "" {
		t.Error("Expected filter signature recorded on session")
	}
}

func TestUnknownSessionRejected(t *testing.T) {
	s, _ := newTestServer()

	w := doRequest(s, http.MethodGet, "/api/companies",
		map[string]string{"X-Session-ID": "no-such-session"})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown session, got %d", w.Code)
	}
}

func TestCompaniesFiltered(t *testing.T) {
	s, _ := newTestServer()

	w := doRequest(s, http.MethodGet, "/api/companies?industry=Technology", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body struct {
		FilterSignature string            `json:"filter_signature"`
		Count           int               `json:"count"`
		Companies       []dataset.Company `json:"companies"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body.Count != 1 || len(body.Companies) != 1 {
		t.Fatalf("Expected 1 company, got count=%d len=%d", body.Count, len(body.Companies))
	}
	if body.Companies[0].Name != "Acme Corp" {
		t.Errorf("Expected Acme Corp, got %s", body.Companies[0].Name)
	}
	if body.FilterSignature == "" {
		t.Error("Expected a filter signature")
	}
}

func TestUnknownFilterKeyRejected(t *testing.T) {
	s, _ := newTestServer()

	w := doRequest(s, http.MethodGet, "/api/companies?flavor=spicy", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown filter key, got %d", w.Code)
	}
}

func TestAggregatesByState(t *testing.T) {
	s, _ := newTestServer()

	w := doRequest(s, http.MethodGet, "/api/aggregates/state", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var agg struct {
		Dimension    string `json:"dimension"`
		CompanyCount int    `json:"company_count"`
		Groups       []struct {
			Key          string `json:"key"`
			CompanyCount int    `json:"company_count"`
		} `json:"groups"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &agg); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if agg.Dimension != "state" || agg.CompanyCount != 3 {
		t.Errorf("Unexpected aggregation header: %+v", agg)
	}
	if len(agg.Groups) != 3 {
		t.Fatalf("Expected 3 state groups, got %d", len(agg.Groups))
	}
	// Groups come back in sorted key order
	if agg.Groups[0].Key != "CA" || agg.Groups[1].Key != "NY" || agg.Groups[2].Key != "TX" {
		t.Errorf("Unexpected group order: %v", agg.Groups)
	}
}

func TestAggregatesUnknownDimension(t *testing.T) {
	s, _ := newTestServer()

	w := doRequest(s, http.MethodGet, "/api/aggregates/flavor", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown dimension, got %d", w.Code)
	}
}

func TestRankings(t *testing.T) {
	s, _ := newTestServer()

	w := doRequest(s, http.MethodGet, "/api/rankings?top=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body struct {
		CompanyCount int `json:"company_count"`
		Leaders      []struct {
			Name string `json:"name"`
		} `json:"leaders"`
		Laggards []struct {
			Name string `json:"name"`
		} `json:"laggards"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body.CompanyCount != 3 {
		t.Errorf("Expected 3 scored companies, got %d", body.CompanyCount)
	}
	if len(body.Leaders) != 2 || len(body.Laggards) != 2 {
		t.Errorf("Expected 2 leaders and 2 laggards, got %d and %d",
			len(body.Leaders), len(body.Laggards))
	}
}

func TestRankingsInvalidTop(t *testing.T) {
	s, _ := newTestServer()

	w := doRequest(s, http.MethodGet, "/api/rankings?top=zero", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid top, got %d", w.Code)
	}
}

func TestCorrelations(t *testing.T) {
	s, _ := newTestServer()

	w := doRequest(s, http.MethodGet, "/api/correlations", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body struct {
		Correlations []struct {
			Pair       string `json:"pair"`
			SampleSize int    `json:"sample_size"`
		} `json:"correlations"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	// All three companies carry impact and giving data
	found := false
	for _, c := range body.Correlations {
		if c.Pair == "impact_vs_giving" {
			found = true
			if c.SampleSize != 3 {
				t.Errorf("Expected sample size 3, got %d", c.SampleSize)
			}
		}
	}
	if !found {
		t.Error("Expected impact_vs_giving correlation in response")
	}
}

func TestCorrelationInsufficientData(t *testing.T) {
	s, _ := newTestServer()

	// Only one Technology company, well below the minimum sample
	w := doRequest(s, http.MethodGet, "/api/correlations?pair=impact_vs_giving&industry=Technology", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body struct {
		InsufficientData bool `json:"insufficient_data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if !body.InsufficientData {
		t.Error("Expected insufficient_data flag")
	}
}

func TestIncidentsGeo(t *testing.T) {
	s, _ := newTestServer()

	w := doRequest(s, http.MethodGet, "/api/incidents/geo", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body struct {
		States []struct {
			State         string `json:"state"`
			IncidentCount int    `json:"incident_count"`
		} `json:"states"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	// CA, NY, TX: states with companies are included even without incidents
	if len(body.States) != 3 {
		t.Fatalf("Expected 3 states, got %d", len(body.States))
	}
	for _, st := range body.States {
		if st.State == "TX" && st.IncidentCount != 1 {
			t.Errorf("Expected 1 TX incident, got %d", st.IncidentCount)
		}
	}
}

func TestExportCompaniesCSV(t *testing.T) {
	s, _ := newTestServer()

	w := doRequest(s, http.MethodGet, "/api/export.csv?industry=Energy", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Expected text/csv content type, got %s", ct)
	}

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected header + 1 row, got %d lines", len(lines))
	}
	if !strings.Contains(lines[1], "Bolt Energy") {
		t.Errorf("Unexpected export row: %s", lines[1])
	}
}

func TestExportUnknownDataset(t *testing.T) {
	s, _ := newTestServer()

	w := doRequest(s, http.MethodGet, "/api/export.csv?dataset=volcanoes", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown dataset, got %d", w.Code)
	}
}
