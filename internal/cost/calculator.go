// Package cost tracks the estimated monetary cost of verification checks
// backed by paid APIs. Costs are reported for budget accounting and never
// affect a check's pass/fail outcome.
package cost

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Rates holds per-collaborator pricing configuration.
type Rates struct {
	Geocode GeocodeRates `yaml:"geocode"`
	Probe   ProbeRates   `yaml:"probe"`
}

// GeocodeRates holds per-lookup pricing by provider.
type GeocodeRates struct {
	CensusPerLookup float64 `yaml:"census_per_lookup"`
	GooglePerLookup float64 `yaml:"google_per_lookup"`
}

// ProbeRates holds URL probe pricing. Probes are plain HTTP requests and
// default to free; the rate exists so a paid probing service can be swapped in.
type ProbeRates struct {
	PerRequest float64 `yaml:"per_request"`
}

// Calculator computes check costs from configured rates.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// GeocodeLookup returns the cost of a single geocode call against the named
// provider ("census" or "google").
func (c *Calculator) GeocodeLookup(provider string) float64 {
	switch provider {
	case "google":
		return c.rates.Geocode.GooglePerLookup
	case "census":
		return c.rates.Geocode.CensusPerLookup
	default:
		return 0
	}
}

// Probe returns the cost of a single URL reachability probe.
func (c *Calculator) Probe() float64 {
	return c.rates.Probe.PerRequest
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Geocode: GeocodeRates{
			CensusPerLookup: 0,
			GooglePerLookup: 0.005,
		},
		Probe: ProbeRates{PerRequest: 0},
	}
}

// LoadRates reads pricing rates from a YAML file, falling back to defaults
// for zero-valued entries.
func LoadRates(path string) (Rates, error) {
	rates := DefaultRates()

	data, err := os.ReadFile(path)
	if err != nil {
		return rates, eris.Wrapf(err, "cost: read rates %s", path)
	}
	if err := yaml.Unmarshal(data, &rates); err != nil {
		return rates, eris.Wrapf(err, "cost: parse rates %s", path)
	}
	return rates, nil
}
