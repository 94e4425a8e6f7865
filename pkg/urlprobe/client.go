// Package urlprobe performs bounded HTTP reachability probes against
// candidate resource websites.
package urlprobe

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/reentry-map/resource-verifier/internal/resilience"
)

// Result holds the outcome of a reachability probe.
type Result struct {
	Reachable  bool
	StatusCode int
}

// Prober checks whether a URL responds within a bounded timeout.
type Prober interface {
	Probe(ctx context.Context, rawURL string) (*Result, error)
}

// Option configures the prober.
type Option func(*prober)

// WithTimeout bounds each probe request.
func WithTimeout(d time.Duration) Option {
	return func(p *prober) {
		if d > 0 {
			p.client.Timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header sent with probes.
func WithUserAgent(ua string) Option {
	return func(p *prober) {
		p.userAgent = ua
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *prober) {
		p.client = hc
	}
}

type prober struct {
	client    *http.Client
	userAgent string
}

// New creates a Prober with the given options.
func New(opts ...Option) Prober {
	p := &prober{
		client:    &http.Client{Timeout: 10 * time.Second},
		userAgent: "reentry-map-verifier/1.0",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe issues a HEAD request, falling back to GET when the server rejects
// HEAD. Success and redirect statuses count as reachable; the probe never
// follows more than the client's default redirect chain.
func (p *prober) Probe(ctx context.Context, rawURL string) (*Result, error) {
	normalized, err := normalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	resp, err := p.do(ctx, http.MethodHead, normalized)
	if err != nil {
		return nil, resilience.Unavailable("url prober", err, 0)
	}

	// Some servers reject HEAD outright; retry those with GET.
	if resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented {
		resp, err = p.do(ctx, http.MethodGet, normalized)
		if err != nil {
			return nil, resilience.Unavailable("url prober", err, 0)
		}
	}

	return &Result{
		Reachable:  resp.StatusCode >= 200 && resp.StatusCode < 400,
		StatusCode: resp.StatusCode,
	}, nil
}

func (p *prober) do(ctx context.Context, method, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "urlprobe: build request")
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	resp.Body.Close() //nolint:errcheck // reachability only; body is irrelevant
	return resp, nil
}

// normalizeURL validates the URL and defaults a missing scheme to https.
func normalizeURL(rawURL string) (string, error) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return "", eris.New("urlprobe: empty url")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", eris.Wrapf(err, "urlprobe: parse %q", rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", eris.Errorf("urlprobe: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", eris.Errorf("urlprobe: missing host in %q", rawURL)
	}
	return u.String(), nil
}
