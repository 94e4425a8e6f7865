package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reentry-map/resource-verifier/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLite_CandidateLifecycle(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)
	ctx := context.Background()

	cand := &model.ResourceCandidate{
		Name:       "Hope House",
		Street:     "123 Oak St",
		Services:   []string{"Housing", "Meals"},
		Hours:      map[string]string{"mon": "9-5"},
		Provenance: model.Provenance{DiscoveryMethod: "web_scrape", Notes: "county site"},
	}
	require.NoError(t, s.CreateCandidate(ctx, cand))
	require.NotEmpty(t, cand.ID)
	assert.Equal(t, model.CandidatePending, cand.Status)

	got, err := s.GetCandidate(ctx, cand.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hope House", got.Name)
	assert.Equal(t, []string{"Housing", "Meals"}, got.Services)
	assert.Equal(t, "9-5", got.Hours["mon"])

	got.Status = model.CandidateNeedsAttention
	got.StatusReason = "needs_verification"
	require.NoError(t, s.UpdateCandidate(ctx, got))

	pending, err := s.ListCandidates(ctx, CandidateFilter{Status: model.CandidatePending})
	require.NoError(t, err)
	assert.Empty(t, pending)

	flagged, err := s.ListCandidates(ctx, CandidateFilter{Status: model.CandidateNeedsAttention})
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, "needs_verification", flagged[0].StatusReason)
}

func TestSQLite_GetCandidate_NotFound(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)

	_, err := s.GetCandidate(context.Background(), "missing")
	assert.True(t, eris.Is(err, ErrNotFound))

	err = s.UpdateCandidate(context.Background(), &model.ResourceCandidate{ID: "missing"})
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_ResourceRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)
	ctx := context.Background()

	lat, lng := 45.5, -122.6
	r := &model.Resource{
		Name:      "Hope House",
		Category:  "housing",
		Latitude:  &lat,
		Longitude: &lng,
		ChangeLog: []model.ChangeLogEntry{{Action: model.ChangeCreated, Actor: "system"}},
	}
	require.NoError(t, s.CreateResource(ctx, r))

	got, err := s.GetResource(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ResourceActive, got.Status)
	require.NotNil(t, got.Latitude)
	assert.Equal(t, 45.5, *got.Latitude)
	require.Len(t, got.ChangeLog, 1)

	byCategory, err := s.ListResources(ctx, ResourceFilter{Category: "housing"})
	require.NoError(t, err)
	assert.Len(t, byCategory, 1)

	none, err := s.ListResources(ctx, ResourceFilter{Category: "food"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLite_OneResourcePerCandidate(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)
	ctx := context.Background()

	first := &model.Resource{Name: "Hope House", CandidateID: "cand-1"}
	require.NoError(t, s.CreateResource(ctx, first))

	dup := &model.Resource{Name: "Hope House Again", CandidateID: "cand-1"}
	err := s.CreateResource(ctx, dup)
	assert.True(t, eris.Is(err, ErrConflict))

	// Resources without a candidate link are unconstrained.
	require.NoError(t, s.CreateResource(ctx, &model.Resource{Name: "Parent A"}))
	require.NoError(t, s.CreateResource(ctx, &model.Resource{Name: "Parent B"}))
}

func TestSQLite_FindParentByOrgName(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)
	ctx := context.Background()

	parent, err := s.FindParentByOrgName(ctx, "Goodwill")
	require.NoError(t, err)
	assert.Nil(t, parent)

	require.NoError(t, s.CreateResource(ctx, &model.Resource{
		Name: "Goodwill", OrgName: "Goodwill", IsParent: true,
	}))
	require.NoError(t, s.CreateResource(ctx, &model.Resource{
		Name: "Goodwill - Eastside", OrgName: "Goodwill",
	}))

	parent, err = s.FindParentByOrgName(ctx, "Goodwill")
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.True(t, parent.IsParent)
}

func TestSQLite_AuditRows(t *testing.T) {
	t.Parallel()
	s := newTestSQLite(t)
	ctx := context.Background()

	checks := []model.CheckResult{
		{Name: model.CheckPhoneValid, Pass: true, Confidence: 1.0},
		{Name: model.CheckURLReachable, Pass: false, Confidence: 0},
	}
	require.NoError(t, s.SaveCheckResults(ctx, "cand-1", checks))
	require.NoError(t, s.SaveDecision(ctx, "cand-1", &model.Decision{
		Outcome:    model.OutcomeFlagForHuman,
		Confidence: 0.5,
		Reason:     "checks failed: url_reachable",
		Checks:     checks,
	}))
}
