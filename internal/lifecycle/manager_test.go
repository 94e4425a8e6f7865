package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reentry-map/resource-verifier/internal/model"
	"github.com/reentry-map/resource-verifier/internal/orggroup"
	"github.com/reentry-map/resource-verifier/internal/store"
	"github.com/reentry-map/resource-verifier/pkg/geocode"
)

type fakeGeocoder struct {
	result *geocode.Result
	err    error
	last   geocode.AddressInput
}

func (f *fakeGeocoder) Geocode(_ context.Context, addr geocode.AddressInput) (*geocode.Result, error) {
	f.last = addr
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func matched(lat, lng float64) *geocode.Result {
	return &geocode.Result{Latitude: lat, Longitude: lng, Source: "census", Quality: "rooftop", Matched: true}
}

func newTestManager(t *testing.T, g geocode.Client) (*Manager, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemory()
	m := NewManager(s, g, nil)
	m.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return m, s
}

func pendingCandidate(t *testing.T, s store.Store, cand *model.ResourceCandidate) *model.ResourceCandidate {
	t.Helper()
	require.NoError(t, s.CreateCandidate(context.Background(), cand))
	return cand
}

func TestApprove_PublishesResource(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, s := newTestManager(t, &fakeGeocoder{result: matched(45.5, -122.6)})
	cand := pendingCandidate(t, s, &model.ResourceCandidate{
		Name:   "Hope House",
		Street: "123 Oak St",
		City:   "Portland",
		Provenance: model.Provenance{DiscoveryMethod: "community_submission"},
	})

	dec := &model.Decision{Outcome: model.OutcomeAutoApprove, Confidence: 0.92}
	r, err := m.Approve(ctx, cand, dec, "system", nil)
	require.NoError(t, err)

	assert.Equal(t, model.ResourceActive, r.Status)
	assert.Equal(t, model.VerificationVerified, r.VerificationStatus)
	assert.Equal(t, 0.92, r.VerificationConfidence)
	assert.Equal(t, cand.ID, r.CandidateID)
	require.NotNil(t, r.Latitude)
	assert.Equal(t, 45.5, *r.Latitude)
	require.Len(t, r.ChangeLog, 1)
	assert.Equal(t, model.ChangeCreated, r.ChangeLog[0].Action)

	stored, err := s.GetCandidate(ctx, cand.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CandidateApproved, stored.Status)
	assert.Equal(t, r.ID, stored.ResourceID)
}

func TestApprove_ReusesDecisionCoordinates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g := &fakeGeocoder{err: eris.New("should not be called")}
	m, s := newTestManager(t, g)
	cand := pendingCandidate(t, s, &model.ResourceCandidate{
		Name: "Hope House", Street: "123 Oak St",
		Provenance: model.Provenance{Notes: "seen on flyer"},
	})

	lat, lng := 45.5, -122.6
	dec := &model.Decision{
		Outcome:    model.OutcomeAutoApprove,
		Confidence: 0.9,
		Checks: []model.CheckResult{{
			Name: model.CheckAddressGeocodable, Pass: true,
			Details: model.CheckDetails{Latitude: &lat, Longitude: &lng},
		}},
	}
	r, err := m.Approve(ctx, cand, dec, "system", nil)
	require.NoError(t, err)
	require.NotNil(t, r.Latitude)
	assert.Equal(t, 45.5, *r.Latitude)
}

func TestApprove_UngeocodablePhysicalFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, s := newTestManager(t, &fakeGeocoder{result: &geocode.Result{Source: "census"}})
	cand := pendingCandidate(t, s, &model.ResourceCandidate{
		Name: "Hope House", Street: "1 Nowhere Rd",
		Provenance: model.Provenance{Notes: "n"},
	})

	_, err := m.Approve(ctx, cand, nil, "admin", nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrUngeocodable))

	// The candidate must stay pending, not half-approved.
	stored, err := s.GetCandidate(ctx, cand.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CandidatePending, stored.Status)
}

func TestApprove_ConfidentialPublishesCityCenterOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g := &fakeGeocoder{result: matched(45.52, -122.68)}
	m, s := newTestManager(t, g)
	cand := pendingCandidate(t, s, &model.ResourceCandidate{
		Name:        "Safe Harbor DV Shelter",
		Street:      "456 Hidden Lane",
		City:        "Portland",
		State:       "OR",
		AddressType: model.AddressConfidential,
		Provenance:  model.Provenance{Notes: "partner referral"},
	})

	r, err := m.Approve(ctx, cand, nil, "admin", nil)
	require.NoError(t, err)

	assert.Empty(t, r.Street, "confidential street must not be published")
	assert.Empty(t, g.last.Street, "geocode must use city only, never the protected street")
	require.NotNil(t, r.Latitude)
	assert.Equal(t, 45.52, *r.Latitude)
}

func TestApprove_OnlineNeedsServiceArea(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, s := newTestManager(t, &fakeGeocoder{})
	cand := pendingCandidate(t, s, &model.ResourceCandidate{
		Name:        "Job Board Online",
		Website:     "https://jobs.example.org",
		AddressType: model.AddressOnline,
		Provenance:  model.Provenance{Notes: "n"},
	})

	_, err := m.Approve(ctx, cand, nil, "admin", nil)
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))

	cand.ServiceArea = "statewide"
	r, err := m.Approve(ctx, cand, nil, "admin", nil)
	require.NoError(t, err)
	assert.Nil(t, r.Latitude)
	assert.Equal(t, "statewide", r.ServiceArea)
}

func TestApprove_TerminalStatusRefused(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, s := newTestManager(t, &fakeGeocoder{result: matched(1, 1)})
	cand := pendingCandidate(t, s, &model.ResourceCandidate{
		Name: "Hope House", Street: "123 Oak St",
		Provenance: model.Provenance{Notes: "n"},
	})

	_, err := m.Approve(ctx, cand, nil, "admin", nil)
	require.NoError(t, err)

	_, err = m.Approve(ctx, cand, nil, "admin", nil)
	assert.True(t, eris.Is(err, model.ErrInvalidTransition))

	err = m.Reject(ctx, cand, model.RejectSpam, "", "admin")
	assert.True(t, eris.Is(err, model.ErrInvalidTransition))
}

func TestApprove_CreatesOrgParent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, s := newTestManager(t, &fakeGeocoder{result: matched(45.5, -122.6)})

	link := &orggroup.Link{OrgName: "Goodwill", LocationName: "Eastside"}
	east := pendingCandidate(t, s, &model.ResourceCandidate{
		Name: "Goodwill - Eastside", Street: "100 E Burnside St",
		Provenance: model.Provenance{Notes: "n"},
	})
	r1, err := m.Approve(ctx, east, nil, "system", link)
	require.NoError(t, err)
	require.NotEmpty(t, r1.ParentResourceID)
	assert.Equal(t, "Eastside", r1.LocationName)

	parent, err := s.GetResource(ctx, r1.ParentResourceID)
	require.NoError(t, err)
	assert.True(t, parent.IsParent)
	assert.Equal(t, "Goodwill", parent.OrgName)

	// Second location reuses the same parent.
	west := pendingCandidate(t, s, &model.ResourceCandidate{
		Name: "Goodwill - Westside", Street: "200 W Burnside St",
		Provenance: model.Provenance{Notes: "n"},
	})
	r2, err := m.Approve(ctx, west, nil, "system", &orggroup.Link{OrgName: "Goodwill", LocationName: "Westside"})
	require.NoError(t, err)
	assert.Equal(t, r1.ParentResourceID, r2.ParentResourceID)
}

func TestReject_RequiresTaxonomyReason(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, s := newTestManager(t, &fakeGeocoder{})
	cand := pendingCandidate(t, s, &model.ResourceCandidate{
		Name: "Spam Inc", Provenance: model.Provenance{Notes: "n"},
	})

	err := m.Reject(ctx, cand, "because", "", "admin")
	assert.True(t, eris.Is(err, model.ErrInvalidReason))

	require.NoError(t, m.Reject(ctx, cand, model.RejectSpam, "obvious spam", "admin"))
	stored, err := s.GetCandidate(ctx, cand.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CandidateRejected, stored.Status)
	assert.Equal(t, string(model.RejectSpam), stored.StatusReason)
}

func TestFlag_ThenHumanApprove(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, s := newTestManager(t, &fakeGeocoder{result: matched(45.5, -122.6)})
	cand := pendingCandidate(t, s, &model.ResourceCandidate{
		Name: "Hope House", Street: "123 Oak St",
		Provenance: model.Provenance{Notes: "n"},
	})

	require.NoError(t, m.Flag(ctx, cand, model.AttentionNeedsVerification, "dead link", "system"))
	assert.Equal(t, model.CandidateNeedsAttention, cand.Status)

	// needs_attention is recoverable: a human may still approve.
	_, err := m.Approve(ctx, cand, nil, "reviewer", nil)
	require.NoError(t, err)
	assert.Equal(t, model.CandidateApproved, cand.Status)
}

func TestFlag_RequiresNotes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, s := newTestManager(t, &fakeGeocoder{})
	cand := pendingCandidate(t, s, &model.ResourceCandidate{
		Name: "Hope House", Provenance: model.Provenance{Notes: "n"},
	})

	err := m.Flag(ctx, cand, model.AttentionNeedsVerification, "  ", "reviewer")
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
	assert.Equal(t, model.CandidatePending, cand.Status)
}

func TestFlag_ReflagWithNewReason(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, s := newTestManager(t, &fakeGeocoder{})
	cand := pendingCandidate(t, s, &model.ResourceCandidate{
		Name: "Hope House", Street: "123 Oak St",
		Provenance: model.Provenance{Notes: "n"},
	})

	require.NoError(t, m.Flag(ctx, cand, model.AttentionNeedsVerification, "dead link", "system"))

	// A human may re-flag with a different recoverable reason.
	require.NoError(t, m.Flag(ctx, cand, model.AttentionIncompleteAddress, "street missing a number", "reviewer"))

	stored, err := s.GetCandidate(ctx, cand.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CandidateNeedsAttention, stored.Status)
	assert.Equal(t, string(model.AttentionIncompleteAddress), stored.StatusReason)
	assert.Equal(t, "street missing a number", stored.ReviewNotes)
}

func TestApproveWithCorrections(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("undocumented notes refused", func(t *testing.T) {
		m, s := newTestManager(t, &fakeGeocoder{result: matched(45.5, -122.6)})
		cand := pendingCandidate(t, s, &model.ResourceCandidate{
			Name: "Hope Huose", Street: "123 Oak St",
			Provenance: model.Provenance{Notes: "n"},
		})

		_, err := m.ApproveWithCorrections(ctx, cand, Corrections{
			Name:  "Hope House",
			Notes: "looks fine",
		}, "reviewer", nil)
		require.Error(t, err)
		assert.True(t, model.IsValidation(err))
	})

	t.Run("documented correction applied", func(t *testing.T) {
		m, s := newTestManager(t, &fakeGeocoder{result: matched(45.5, -122.6)})
		cand := pendingCandidate(t, s, &model.ResourceCandidate{
			Name: "Hope Huose", Street: "123 Oak St",
			Provenance: model.Provenance{Notes: "n"},
		})

		r, err := m.ApproveWithCorrections(ctx, cand, Corrections{
			Name:  "Hope House",
			Notes: "confirmed with https://hopehouse.org/contact",
		}, "reviewer", nil)
		require.NoError(t, err)
		assert.Equal(t, "Hope House", r.Name)
		require.Len(t, r.ChangeLog, 2)
		assert.Equal(t, model.ChangeCorrected, r.ChangeLog[1].Action)

		stored, err := s.GetCandidate(ctx, cand.ID)
		require.NoError(t, err)
		assert.Equal(t, "confirmed with https://hopehouse.org/contact", stored.CorrectionNotes)
	})

	t.Run("no corrections needs no notes", func(t *testing.T) {
		m, s := newTestManager(t, &fakeGeocoder{result: matched(45.5, -122.6)})
		cand := pendingCandidate(t, s, &model.ResourceCandidate{
			Name: "Hope House", Street: "123 Oak St",
			Provenance: model.Provenance{Notes: "n"},
		})

		r, err := m.ApproveWithCorrections(ctx, cand, Corrections{}, "reviewer", nil)
		require.NoError(t, err)
		require.Len(t, r.ChangeLog, 1)
	})
}

func TestValidateCorrectionNotes(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateCorrectionNotes("per https://example.org/about"))
	assert.NoError(t, ValidateCorrectionNotes("Called the org, they confirmed the new number"))
	assert.NoError(t, ValidateCorrectionNotes("visited in person on Tuesday"))
	assert.Error(t, ValidateCorrectionNotes(""))
	assert.Error(t, ValidateCorrectionNotes("looks fine"))
	assert.Error(t, ValidateCorrectionNotes("fixed typo"))
}

func TestUpdateExisting_AppendsChangeLog(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, s := newTestManager(t, &fakeGeocoder{})

	existing := &model.Resource{
		Name:  "Hope House",
		Phone: "5035551234",
		ChangeLog: []model.ChangeLogEntry{
			{Action: model.ChangeCreated, Actor: "system"},
		},
	}
	require.NoError(t, s.CreateResource(ctx, existing))
	cand := pendingCandidate(t, s, &model.ResourceCandidate{
		Name: "Hope House", Email: "info@hopehouse.org",
		Provenance: model.Provenance{DiscoveryMethod: "web_scrape"},
	})

	dec := &model.Decision{Outcome: model.OutcomeAutoApprove, Confidence: 0.9}
	updated, err := m.UpdateExisting(ctx, cand, existing, dec, "system")
	require.NoError(t, err)

	assert.Equal(t, "info@hopehouse.org", updated.Email)
	require.Len(t, updated.ChangeLog, 2)
	assert.Equal(t, model.ChangeCreated, updated.ChangeLog[0].Action, "prior entries are never rewritten")
	assert.Equal(t, model.ChangeMerged, updated.ChangeLog[1].Action)
	assert.Equal(t, "5035551234", updated.ChangeLog[1].Before["phone"])

	stored, err := s.GetCandidate(ctx, cand.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CandidateApproved, stored.Status)
	assert.Equal(t, existing.ID, stored.ResourceID)
}
