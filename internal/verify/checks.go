// Package verify runs per-field verification checks against a candidate
// resource and turns the results into a three-way decision.
package verify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/reentry-map/resource-verifier/internal/cost"
	"github.com/reentry-map/resource-verifier/internal/dedupe"
	"github.com/reentry-map/resource-verifier/internal/model"
	"github.com/reentry-map/resource-verifier/internal/resilience"
	"github.com/reentry-map/resource-verifier/pkg/geocode"
	"github.com/reentry-map/resource-verifier/pkg/urlprobe"
)

// geocodeConfidence maps geocode match quality to check confidence.
var geocodeConfidence = map[string]float64{
	"rooftop":     1.0,
	"range":       0.9,
	"centroid":    0.7,
	"approximate": 0.5,
}

// Checker runs the field verification checks for one candidate. Checks only
// run for fields the candidate actually has; absent fields produce no result
// rather than a failing one.
type Checker struct {
	geocoder geocode.Client
	prober   urlprobe.Prober
	costs    *cost.Calculator
	retry    resilience.RetryConfig
}

// NewChecker creates a Checker.
func NewChecker(geocoder geocode.Client, prober urlprobe.Prober, costs *cost.Calculator) *Checker {
	return &Checker{
		geocoder: geocoder,
		prober:   prober,
		costs:    costs,
		retry:    resilience.DefaultRetryConfig(),
	}
}

// RunChecks runs all applicable checks concurrently and returns the results
// keyed by check name. Individual check failures never abort the run.
func (c *Checker) RunChecks(ctx context.Context, cand *model.ResourceCandidate) map[model.CheckName]model.CheckResult {
	var mu sync.Mutex
	results := make(map[model.CheckName]model.CheckResult)
	record := func(r model.CheckResult) {
		mu.Lock()
		results[r.Name] = r
		mu.Unlock()
	}

	// A panic inside one check must not take down the batch, so each check
	// goroutine recovers for itself and reports a failed result instead.
	contain := func(name model.CheckName, run func() model.CheckResult) func() error {
		return func() error {
			defer func() {
				if rec := recover(); rec != nil {
					zap.L().Error("verify: check panicked",
						zap.String("candidate_id", cand.ID),
						zap.String("check", string(name)),
						zap.Any("panic", rec),
					)
					record(model.CheckResult{
						Name:      name,
						Transient: true,
						Details:   model.CheckDetails{Error: fmt.Sprintf("check panicked: %v", rec)},
					})
				}
			}()
			record(run())
			return nil
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if cand.Website != "" {
		g.Go(contain(model.CheckURLReachable, func() model.CheckResult {
			return c.checkURL(gctx, cand.Website)
		}))
	}
	if cand.Phone != "" {
		g.Go(contain(model.CheckPhoneValid, func() model.CheckResult {
			return checkPhone(cand.Phone)
		}))
	}
	if cand.HasAddress() {
		g.Go(contain(model.CheckAddressGeocodable, func() model.CheckResult {
			return c.checkAddress(gctx, cand)
		}))
	}

	g.Wait() //nolint:errcheck // check goroutines never return errors

	zap.L().Debug("verify: checks complete",
		zap.String("candidate_id", cand.ID),
		zap.Int("checks", len(results)),
	)
	return results
}

// checkURL probes the candidate's website. A transport-level failure after
// retries is marked transient so the engine flags instead of rejecting.
func (c *Checker) checkURL(ctx context.Context, website string) model.CheckResult {
	start := time.Now()
	result := model.CheckResult{Name: model.CheckURLReachable, CostUSD: c.costs.Probe()}

	probe, err := resilience.DoVal(ctx, c.retry, "url probe", func(ctx context.Context) (*urlprobe.Result, error) {
		return c.prober.Probe(ctx, website)
	})
	result.Duration = time.Since(start).Milliseconds()

	if err != nil {
		result.Details.Error = err.Error()
		result.Transient = resilience.IsTransient(err)
		return result
	}

	result.Pass = probe.Reachable
	result.Details.StatusCode = probe.StatusCode
	if probe.Reachable {
		result.Confidence = 1.0
	} else if resilience.IsTransientHTTPStatus(probe.StatusCode) {
		// The site answered but is struggling; don't count it as dead.
		result.Transient = true
	}
	return result
}

// checkPhone validates the phone number against NANP structure: ten national
// digits with an area code that does not start with 0 or 1. Validation is
// purely local and free.
func checkPhone(phone string) model.CheckResult {
	start := time.Now()
	result := model.CheckResult{Name: model.CheckPhoneValid}

	digits := dedupe.NormalizePhone(phone)
	result.Details.NormalizedPhone = digits

	switch {
	case len(digits) != 10:
		result.Details.Error = "expected 10 national digits"
	case digits[0] == '0' || digits[0] == '1':
		result.Details.Error = "invalid area code"
	default:
		result.Pass = true
		result.Confidence = 1.0
	}

	result.Duration = time.Since(start).Milliseconds()
	return result
}

// checkAddress geocodes the candidate address. Confidence reflects match
// quality, so a rooftop match scores higher than a street centroid.
func (c *Checker) checkAddress(ctx context.Context, cand *model.ResourceCandidate) model.CheckResult {
	start := time.Now()
	result := model.CheckResult{Name: model.CheckAddressGeocodable}

	geo, err := resilience.DoVal(ctx, c.retry, "geocode", func(ctx context.Context) (*geocode.Result, error) {
		return c.geocoder.Geocode(ctx, geocode.AddressInput{
			Street:  cand.Street,
			City:    cand.City,
			State:   cand.State,
			ZipCode: cand.ZipCode,
		})
	})
	result.Duration = time.Since(start).Milliseconds()

	if err != nil {
		result.Details.Error = err.Error()
		result.Transient = resilience.IsTransient(err)
		return result
	}

	result.CostUSD = c.costs.GeocodeLookup(geo.Source)
	result.Details.GeocodeSource = geo.Source
	if !geo.Matched {
		result.Details.Error = "no geocode match"
		return result
	}

	lat, lng := geo.Latitude, geo.Longitude
	result.Pass = true
	result.Confidence = geocodeConfidence[geo.Quality]
	if result.Confidence == 0 {
		result.Confidence = 0.5
	}
	result.Details.Latitude = &lat
	result.Details.Longitude = &lng
	result.Details.FormattedAddress = geo.FormattedAddress
	result.Details.GeocodeQuality = geo.Quality
	return result
}
