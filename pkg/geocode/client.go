// Package geocode resolves street addresses to coordinates via the Census
// Geocoder (primary) with an optional Google Geocoding API fallback.
package geocode

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client geocodes addresses.
type Client interface {
	Geocode(ctx context.Context, addr AddressInput) (*Result, error)
}

// AddressInput represents an address to geocode.
type AddressInput struct {
	Street  string
	City    string
	State   string
	ZipCode string
}

// Result holds the geocoding output for an address.
type Result struct {
	Latitude         float64
	Longitude        float64
	FormattedAddress string
	Source           string // "census" or "google"
	Quality          string // "rooftop", "range", "centroid", "approximate"
	Matched          bool
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithGoogleAPIKey enables the Google Geocoding API as a fallback.
func WithGoogleAPIKey(key string) Option {
	return func(g *geocoder) {
		g.googleKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit for geocoding calls.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		if rps > 0 {
			g.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
		}
	}
}

// WithCensusBaseURL overrides the Census endpoint (tests).
func WithCensusBaseURL(u string) Option {
	return func(g *geocoder) {
		g.censusURL = u
	}
}

// WithGoogleBaseURL overrides the Google endpoint (tests).
func WithGoogleBaseURL(u string) Option {
	return func(g *geocoder) {
		g.googleURL = u
	}
}

type geocoder struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	googleKey  string
	censusURL  string
	googleURL  string
}

// NewClient creates a geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(10, 10),
		censusURL:  censusOneLineURL,
		googleURL:  googleGeocodeURL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Geocode tries Census first, then Google when configured. A provider error
// falls through to the next provider; only the final provider's error is
// returned.
func (g *geocoder) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	result, err := g.geocodeCensus(ctx, addr)
	if err == nil && result.Matched {
		return result, nil
	}
	if err != nil {
		zap.L().Debug("geocode: census failed, trying fallback", zap.Error(err))
	}

	if g.googleKey == "" {
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	return g.geocodeGoogle(ctx, addr)
}

// formatOneLine joins the non-empty address fields into a single line.
func formatOneLine(addr AddressInput) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{addr.Street, addr.City, addr.State, addr.ZipCode} {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
