package verify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reentry-map/resource-verifier/internal/cost"
	"github.com/reentry-map/resource-verifier/internal/model"
	"github.com/reentry-map/resource-verifier/internal/resilience"
	"github.com/reentry-map/resource-verifier/pkg/geocode"
	"github.com/reentry-map/resource-verifier/pkg/urlprobe"
)

// fakeGeocoder returns a canned result or error.
type fakeGeocoder struct {
	result *geocode.Result
	err    error
	calls  int
}

func (f *fakeGeocoder) Geocode(context.Context, geocode.AddressInput) (*geocode.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func rooftopResult() *geocode.Result {
	return &geocode.Result{
		Latitude:         45.523,
		Longitude:        -122.676,
		FormattedAddress: "123 Oak St, Portland, OR 97201",
		Source:           "census",
		Quality:          "rooftop",
		Matched:          true,
	}
}

func newTestChecker(g geocode.Client, p urlprobe.Prober) *Checker {
	c := NewChecker(g, p, cost.NewCalculator(cost.DefaultRates()))
	c.retry = resilience.RetryConfig{MaxAttempts: 1}
	return c
}

func TestRunChecks_AllFieldsPresent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	checker := newTestChecker(&fakeGeocoder{result: rooftopResult()}, urlprobe.New())
	cand := &model.ResourceCandidate{
		ID:      "c1",
		Name:    "Hope House",
		Street:  "123 Oak St",
		City:    "Portland",
		State:   "OR",
		Phone:   "(503) 555-1234",
		Website: srv.URL,
	}

	checks := checker.RunChecks(context.Background(), cand)
	require.Len(t, checks, 3)

	url := checks[model.CheckURLReachable]
	assert.True(t, url.Pass)
	assert.Equal(t, http.StatusOK, url.Details.StatusCode)

	phone := checks[model.CheckPhoneValid]
	assert.True(t, phone.Pass)
	assert.Equal(t, "5035551234", phone.Details.NormalizedPhone)

	addr := checks[model.CheckAddressGeocodable]
	assert.True(t, addr.Pass)
	assert.Equal(t, 1.0, addr.Confidence)
	require.NotNil(t, addr.Details.Latitude)
	assert.Equal(t, 45.523, *addr.Details.Latitude)
}

func TestRunChecks_AbsentFieldsProduceNoResults(t *testing.T) {
	checker := newTestChecker(&fakeGeocoder{result: rooftopResult()}, urlprobe.New())
	cand := &model.ResourceCandidate{ID: "c1", Name: "Hope House", Phone: "503-555-1234"}

	checks := checker.RunChecks(context.Background(), cand)
	require.Len(t, checks, 1)
	_, ok := checks[model.CheckPhoneValid]
	assert.True(t, ok)
}

func TestCheckPhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		phone string
		pass  bool
	}{
		{"formatted", "(503) 555-1234", true},
		{"with country code", "+1 503 555 1234", true},
		{"too short", "555-1234", false},
		{"area code starts with 1", "155-555-1234", false},
		{"letters only", "call us", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := checkPhone(tt.phone)
			assert.Equal(t, tt.pass, result.Pass)
		})
	}
}

func TestCheckURL_DeadLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	checker := newTestChecker(&fakeGeocoder{}, urlprobe.New())
	result := checker.checkURL(context.Background(), srv.URL)
	assert.False(t, result.Pass)
	assert.False(t, result.Transient)
	assert.Equal(t, http.StatusNotFound, result.Details.StatusCode)
}

func TestCheckURL_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	checker := newTestChecker(&fakeGeocoder{}, urlprobe.New())
	result := checker.checkURL(context.Background(), srv.URL)
	assert.False(t, result.Pass)
	assert.True(t, result.Transient, "5xx should flag, not reject")
}

func TestCheckAddress_GeocoderDown(t *testing.T) {
	g := &fakeGeocoder{err: resilience.Unavailable("census geocoder", assert.AnError, 503)}
	checker := newTestChecker(g, urlprobe.New())

	result := checker.checkAddress(context.Background(), &model.ResourceCandidate{
		Street: "123 Oak St", City: "Portland",
	})
	assert.False(t, result.Pass)
	assert.True(t, result.Transient)
}

func TestCheckAddress_NoMatch(t *testing.T) {
	g := &fakeGeocoder{result: &geocode.Result{Source: "census"}}
	checker := newTestChecker(g, urlprobe.New())

	result := checker.checkAddress(context.Background(), &model.ResourceCandidate{
		Street: "1 Nowhere Rd", City: "Portland",
	})
	assert.False(t, result.Pass)
	assert.False(t, result.Transient)
}

type panickingProber struct{}

func (panickingProber) Probe(context.Context, string) (*urlprobe.Result, error) {
	panic("prober exploded")
}

func TestRunChecks_PanicBecomesTransientFailure(t *testing.T) {
	checker := newTestChecker(&fakeGeocoder{result: rooftopResult()}, panickingProber{})
	cand := &model.ResourceCandidate{
		ID:      "c1",
		Name:    "Hope House",
		Street:  "123 Oak St",
		City:    "Portland",
		Website: "https://panic.example.org",
	}

	checks := checker.RunChecks(context.Background(), cand)
	require.Len(t, checks, 2, "remaining checks still run")

	url := checks[model.CheckURLReachable]
	assert.False(t, url.Pass)
	assert.True(t, url.Transient)
	assert.Contains(t, url.Details.Error, "check panicked")

	addr := checks[model.CheckAddressGeocodable]
	assert.True(t, addr.Pass)
}

func TestCheckAddress_QualityDrivesConfidence(t *testing.T) {
	r := rooftopResult()
	r.Quality = "centroid"
	checker := newTestChecker(&fakeGeocoder{result: r}, urlprobe.New())

	result := checker.checkAddress(context.Background(), &model.ResourceCandidate{
		Street: "123 Oak St",
	})
	assert.True(t, result.Pass)
	assert.Equal(t, 0.7, result.Confidence)
}
