package aggregate

import (
	"sort"

	"github.com/seedlabs/seed-server/internal/dataset"
)

// StateIncidents is the per-state incident rollup behind the incident map:
// counts, environmental-justice share, and incident density relative to
// the companies operating in the state.
type StateIncidents struct {
	State              string  `json:"state"`
	IncidentCount      int     `json:"incident_count"`
	EJIncidentCount    int     `json:"ej_incident_count"`
	EJIncidentPct      float64 `json:"ej_incident_pct"`
	CompanyCount       int     `json:"company_count"`
	IncidentDensity    float64 `json:"incident_density"`
	TotalRemediation   float64 `json:"total_remediation_millions"`
	MaxSeverity        int     `json:"max_severity"`
}

// IncidentsByState aggregates incidents per state, joining company counts
// for density. States appearing in either input are included.
func IncidentsByState(incidents []dataset.Incident, companies []dataset.Company) []StateIncidents {
	byState := make(map[string]*StateIncidents)

	get := func(state string) *StateIncidents {
		s, ok := byState[state]
		if !ok {
			s = &StateIncidents{State: state}
			byState[state] = s
		}
		return s
	}

	for _, in := range incidents {
		s := get(in.State)
		s.IncidentCount++
		s.TotalRemediation += in.RemediationCostMillions
		if in.InEJCommunity {
			s.EJIncidentCount++
		}
		if in.Severity > s.MaxSeverity {
			s.MaxSeverity = in.Severity
		}
	}

	for i := range companies {
		get(companies[i].State).CompanyCount++
	}

	states := make([]string, 0, len(byState))
	for state := range byState {
		states = append(states, state)
	}
	sort.Strings(states)

	out := make([]StateIncidents, 0, len(states))
	for _, state := range states {
		s := byState[state]
		if s.IncidentCount > 0 {
			s.EJIncidentPct = float64(s.EJIncidentCount) / float64(s.IncidentCount) * 100
		}
		if s.CompanyCount > 0 {
			s.IncidentDensity = float64(s.IncidentCount) / float64(s.CompanyCount)
		}
		out = append(out, *s)
	}
	return out
}
