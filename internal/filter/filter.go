package filter

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/seedlabs/seed-server/internal/dataset"
)

// ErrUnknownFilterKey is returned when a request references a filter key
// the engine does not recognize. Unknown keys are a configuration error;
// unknown values just produce an empty result set.
var ErrUnknownFilterKey = errors.New("unknown filter key")

// Filter is the conjunction of active predicates over the dataset. The
// zero value matches everything.
type Filter struct {
	Industries []string
	States     []string
	Regions    []string
	Sizes      []string
	YearFrom   int
	YearTo     int
	NameQuery  string
}

// Recognized query keys for FromQuery.
const (
	KeyIndustry = "industry"
	KeyState    = "state"
	KeyRegion   = "region"
	KeySize     = "size"
	KeyYearFrom = "year_from"
	KeyYearTo   = "year_to"
	KeyName     = "name"
)

var knownKeys = map[string]bool{
	KeyIndustry: true,
	KeyState:    true,
	KeyRegion:   true,
	KeySize:     true,
	KeyYearFrom: true,
	KeyYearTo:   true,
	KeyName:     true,
}

// FromQuery builds a Filter from parsed query parameters. Multi-value keys
// accept repeated parameters and comma-separated lists.
func FromQuery(params map[string][]string) (*Filter, error) {
	f := &Filter{}

	for key, values := range params {
		if !knownKeys[key] {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFilterKey, key)
		}

		switch key {
		case KeyIndustry:
			f.Industries = splitValues(values)
		case KeyState:
			f.States = upperValues(splitValues(values))
		case KeyRegion:
			f.Regions = splitValues(values)
		case KeySize:
			f.Sizes = splitValues(values)
		case KeyYearFrom:
			year, err := parseYear(values)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", key, err)
			}
			f.YearFrom = year
		case KeyYearTo:
			year, err := parseYear(values)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", key, err)
			}
			f.YearTo = year
		case KeyName:
			if len(values) > 0 {
				f.NameQuery = strings.TrimSpace(values[0])
			}
		}
	}

	return f, nil
}

// IsEmpty reports whether no predicate is active.
func (f *Filter) IsEmpty() bool {
	return len(f.Industries) == 0 && len(f.States) == 0 && len(f.Regions) == 0 &&
		len(f.Sizes) == 0 && f.YearFrom == 0 && f.YearTo == 0 && f.NameQuery == ""
}

// Matches reports whether a company satisfies every active predicate.
func (f *Filter) Matches(c *dataset.Company) bool {
	if len(f.Industries) > 0 && !contains(f.Industries, c.Industry) {
		return false
	}
	if len(f.States) > 0 && !contains(f.States, c.State) {
		return false
	}
	if len(f.Regions) > 0 && !contains(f.Regions, c.Region) {
		return false
	}
	if len(f.Sizes) > 0 && !contains(f.Sizes, c.SizeCategory) {
		return false
	}
	if f.YearFrom != 0 && c.Year < f.YearFrom {
		return false
	}
	if f.YearTo != 0 && (c.Year > f.YearTo || c.Year == 0) {
		return false
	}
	if f.NameQuery != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(f.NameQuery)) {
		return false
	}
	return true
}

// Apply returns the companies satisfying the filter. The result is a new
// slice; the input is never modified.
func (f *Filter) Apply(companies []dataset.Company) []dataset.Company {
	if f.IsEmpty() {
		out := make([]dataset.Company, len(companies))
		copy(out, companies)
		return out
	}

	out := []dataset.Company{}
	for i := range companies {
		if f.Matches(&companies[i]) {
			out = append(out, companies[i])
		}
	}
	return out
}

// ApplyIncidents returns incidents consistent with the filtered company
// set. Geographic and year predicates apply to the incident itself;
// company-level predicates (industry, size, name) apply through the
// incident's company reference. Anonymized incidents pass only when no
// company-level predicate is active.
func (f *Filter) ApplyIncidents(incidents []dataset.Incident, filtered []dataset.Company) []dataset.Incident {
	companyLevel := len(f.Industries) > 0 || len(f.Sizes) > 0 || f.NameQuery != ""

	var names map[string]bool
	if companyLevel {
		names = make(map[string]bool, len(filtered))
		for i := range filtered {
			names[filtered[i].Name] = true
		}
	}

	out := []dataset.Incident{}
	for _, in := range incidents {
		if len(f.States) > 0 && !contains(f.States, in.State) {
			continue
		}
		if len(f.Regions) > 0 && !contains(f.Regions, dataset.RegionForState(in.State)) {
			continue
		}
		if f.YearFrom != 0 && in.Year < f.YearFrom {
			continue
		}
		if f.YearTo != 0 && (in.Year > f.YearTo || in.Year == 0) {
			continue
		}
		if companyLevel {
			if in.CompanyName == "" || !names[in.CompanyName] {
				continue
			}
		}
		out = append(out, in)
	}
	return out
}

// Signature returns a canonical digest of the filter, independent of the
// order values were supplied in. Identical filters always produce the same
// signature, which makes it usable as a cache key.
func (f *Filter) Signature() string {
	parts := []string{
		"industry=" + strings.Join(sortedCopy(f.Industries), ","),
		"state=" + strings.Join(sortedCopy(f.States), ","),
		"region=" + strings.Join(sortedCopy(f.Regions), ","),
		"size=" + strings.Join(sortedCopy(f.Sizes), ","),
		"year_from=" + strconv.Itoa(f.YearFrom),
		"year_to=" + strconv.Itoa(f.YearTo),
		"name=" + strings.ToLower(f.NameQuery),
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, ";")))
	return hex.EncodeToString(sum[:16])
}

func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func upperValues(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToUpper(v)
	}
	return out
}

func parseYear(values []string) (int, error) {
	if len(values) == 0 {
		return 0, nil
	}
	return strconv.Atoi(strings.TrimSpace(values[0]))
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func sortedCopy(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}
