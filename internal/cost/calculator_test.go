package cost

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeocodeLookup(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(Rates{
		Geocode: GeocodeRates{CensusPerLookup: 0, GooglePerLookup: 0.005},
	})

	assert.Equal(t, 0.0, calc.GeocodeLookup("census"))
	assert.Equal(t, 0.005, calc.GeocodeLookup("google"))
	assert.Equal(t, 0.0, calc.GeocodeLookup("unknown"))
}

func TestProbe(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(Rates{Probe: ProbeRates{PerRequest: 0.0001}})
	assert.Equal(t, 0.0001, calc.Probe())
}

func TestLoadRates(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
geocode:
  google_per_lookup: 0.01
probe:
  per_request: 0.0002
`), 0o644))

	rates, err := LoadRates(path)
	require.NoError(t, err)
	assert.Equal(t, 0.01, rates.Geocode.GooglePerLookup)
	assert.Equal(t, 0.0002, rates.Probe.PerRequest)
}

func TestLoadRates_MissingFileFallsBack(t *testing.T) {
	t.Parallel()

	rates, err := LoadRates(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
	assert.Equal(t, DefaultRates(), rates)
}
