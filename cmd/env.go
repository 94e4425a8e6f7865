package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/reentry-map/resource-verifier/internal/cost"
	"github.com/reentry-map/resource-verifier/internal/dedupe"
	"github.com/reentry-map/resource-verifier/internal/lifecycle"
	"github.com/reentry-map/resource-verifier/internal/queue"
	"github.com/reentry-map/resource-verifier/internal/service"
	"github.com/reentry-map/resource-verifier/internal/store"
	"github.com/reentry-map/resource-verifier/internal/verify"
	"github.com/reentry-map/resource-verifier/pkg/geocode"
	"github.com/reentry-map/resource-verifier/pkg/urlprobe"
)

// appEnv holds the initialized store and application services shared by the
// serve/process/review commands.
type appEnv struct {
	Store   store.Store
	Service *service.Service
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the configured database backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "memory":
		return store.NewMemory(), nil
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initEnv wires the full pipeline. Callers should defer env.Close().
func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	geocoder := geocode.NewClient(
		geocode.WithGoogleAPIKey(cfg.Geocode.GoogleAPIKey),
		geocode.WithRateLimit(cfg.Geocode.RatePerSecond),
	)
	prober := urlprobe.New(
		urlprobe.WithTimeout(time.Duration(cfg.Probe.TimeoutSecs)*time.Second),
		urlprobe.WithUserAgent(cfg.Probe.UserAgent),
	)
	costs := cost.NewCalculator(cost.Rates{
		Geocode: cost.GeocodeRates{
			CensusPerLookup: cfg.Pricing.CensusPerLookup,
			GooglePerLookup: cfg.Pricing.GooglePerLookup,
		},
		Probe: cost.ProbeRates{PerRequest: cfg.Pricing.ProbePerRequest},
	})

	emitter := verify.LogEmitter{}
	detector := dedupe.NewDetector(st, cfg.Dedupe.NameSimilarityThreshold, cfg.Dedupe.MaxComparisons)
	checker := verify.NewChecker(geocoder, prober, costs)
	engine := verify.NewEngine(cfg.Verify.ApproveThreshold, cfg.Verify.RejectThreshold)
	manager := lifecycle.NewManager(st, geocoder, emitter)
	processor := queue.NewProcessor(st, detector, checker, engine, manager, emitter)

	svc := service.New(st, processor, manager, cfg.Queue.DefaultBatchSize, cfg.Queue.MaxBatchSize)

	return &appEnv{Store: st, Service: svc}, nil
}
