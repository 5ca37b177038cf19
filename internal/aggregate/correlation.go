package aggregate

import (
	"errors"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/seedlabs/seed-server/internal/dataset"
)

// ErrInsufficientData is reported when too few records carry both metrics
// of a correlation pair to produce a meaningful coefficient.
var ErrInsufficientData = errors.New("insufficient data")

// minCorrelationPairs is the smallest pairwise-complete sample a
// correlation is computed over.
const minCorrelationPairs = 3

// Named metric pairs exposed by the correlations endpoint.
const (
	PairImpactGiving       = "impact_vs_giving"
	PairESGTransparency    = "esg_vs_transparency"
	PairContingencyGiving  = "loss_contingencies_vs_giving"
)

// Correlation holds a pairwise Pearson coefficient and its plain-language
// strength label.
type Correlation struct {
	Pair        string  `json:"pair"`
	Coefficient float64 `json:"coefficient"`
	SampleSize  int     `json:"sample_size"`
	Strength    string  `json:"strength"`
}

type metricFn func(*dataset.Company) (float64, bool)

var correlationPairs = []struct {
	name string
	x    metricFn
	y    metricFn
}{
	{
		PairImpactGiving,
		func(c *dataset.Company) (float64, bool) { return deref(c.ImpactScore) },
		func(c *dataset.Company) (float64, bool) { return c.GivingMillions, true },
	},
	{
		PairESGTransparency,
		func(c *dataset.Company) (float64, bool) { return deref(c.ESGScore) },
		func(c *dataset.Company) (float64, bool) { return deref(c.TransparencyScore) },
	},
	{
		PairContingencyGiving,
		func(c *dataset.Company) (float64, bool) { return deref(c.LossContingenciesMillion) },
		func(c *dataset.Company) (float64, bool) { return c.GivingMillions, true },
	},
}

func deref(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}

// Correlate computes the named metric pair over records where both metrics
// are present. Records missing either metric are excluded pairwise, not
// globally.
func Correlate(companies []dataset.Company, pair string) (*Correlation, error) {
	for _, p := range correlationPairs {
		if p.name == pair {
			return correlate(companies, p.name, p.x, p.y)
		}
	}
	return nil, errors.New("unknown correlation pair: " + pair)
}

// CorrelateAll computes every named pair, skipping pairs with insufficient
// data.
func CorrelateAll(companies []dataset.Company) []Correlation {
	var out []Correlation
	for _, p := range correlationPairs {
		c, err := correlate(companies, p.name, p.x, p.y)
		if err != nil {
			continue
		}
		out = append(out, *c)
	}
	return out
}

func correlate(companies []dataset.Company, name string, xFn, yFn metricFn) (*Correlation, error) {
	var xs, ys []float64
	for i := range companies {
		x, okX := xFn(&companies[i])
		y, okY := yFn(&companies[i])
		if !okX || !okY {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}

	if len(xs) < minCorrelationPairs {
		return nil, ErrInsufficientData
	}

	coeff, err := stats.Pearson(xs, ys)
	if err != nil || math.IsNaN(coeff) {
		return nil, ErrInsufficientData
	}

	return &Correlation{
		Pair:        name,
		Coefficient: coeff,
		SampleSize:  len(xs),
		Strength:    StrengthLabel(coeff),
	}, nil
}

// StrengthLabel maps a coefficient to a plain-language description.
func StrengthLabel(coeff float64) string {
	abs := math.Abs(coeff)
	var strength string
	switch {
	case abs > 0.6:
		strength = "strong"
	case abs > 0.3:
		strength = "moderate"
	default:
		strength = "weak"
	}
	if coeff < 0 {
		return strength + " negative"
	}
	return strength + " positive"
}
