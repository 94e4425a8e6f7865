package dedupe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reentry-map/resource-verifier/internal/model"
	"github.com/reentry-map/resource-verifier/internal/store"
)

func seedResource(t *testing.T, s store.Store, r *model.Resource) *model.Resource {
	t.Helper()
	require.NoError(t, s.CreateResource(context.Background(), r))
	return r
}

func TestCheckForDuplicate_ExactMatchSkips(t *testing.T) {
	t.Parallel()
	s := store.NewMemory()
	seedResource(t, s, &model.Resource{
		Name:   "Hope House",
		Street: "123 Oak Street",
		City:   "Portland",
	})
	d := NewDetector(s, 0.85, 0)

	match, err := d.CheckForDuplicate(context.Background(), &model.ResourceCandidate{
		Name:   "HOPE HOUSE",
		Street: "123 Oak St",
	})
	require.NoError(t, err)
	assert.True(t, match.IsDuplicate)
	assert.Equal(t, ActionSkip, match.Action)
	assert.Equal(t, 1.0, match.Score)
}

func TestCheckForDuplicate_NameAloneProceeds(t *testing.T) {
	t.Parallel()
	s := store.NewMemory()
	seedResource(t, s, &model.Resource{
		Name:   "Hope House",
		Street: "123 Oak Street",
	})
	d := NewDetector(s, 0.85, 0)

	// Same name, different address, no phone: could be a second location.
	match, err := d.CheckForDuplicate(context.Background(), &model.ResourceCandidate{
		Name:   "Hope House",
		Street: "900 Elm Avenue",
	})
	require.NoError(t, err)
	assert.False(t, match.IsDuplicate)
	assert.Equal(t, ActionProceed, match.Action)
}

func TestCheckForDuplicate_SimilarNameWithPhoneUpdates(t *testing.T) {
	t.Parallel()
	s := store.NewMemory()
	existing := seedResource(t, s, &model.Resource{
		Name:  "Hope House Community Center",
		Phone: "(503) 555-1234",
	})
	d := NewDetector(s, 0.85, 0)

	match, err := d.CheckForDuplicate(context.Background(), &model.ResourceCandidate{
		Name:  "The Hope House Community Center",
		Phone: "503-555-1234",
	})
	require.NoError(t, err)
	assert.True(t, match.IsDuplicate)
	assert.Equal(t, ActionUpdate, match.Action)
	assert.Equal(t, existing.ID, match.Existing.ID)
}

func TestCheckForDuplicate_IgnoresParentsAndInactive(t *testing.T) {
	t.Parallel()
	s := store.NewMemory()
	seedResource(t, s, &model.Resource{
		Name:     "Hope House",
		Street:   "123 Oak Street",
		IsParent: true,
	})
	seedResource(t, s, &model.Resource{
		Name:   "Hope House",
		Street: "123 Oak Street",
		Status: model.ResourceInactive,
	})
	d := NewDetector(s, 0.85, 0)

	match, err := d.CheckForDuplicate(context.Background(), &model.ResourceCandidate{
		Name:   "Hope House",
		Street: "123 Oak Street",
	})
	require.NoError(t, err)
	assert.Equal(t, ActionProceed, match.Action)
}

func TestMergeCandidate(t *testing.T) {
	t.Parallel()

	t.Run("fills gaps without blanking", func(t *testing.T) {
		existing := &model.Resource{
			Name:    "Hope House",
			Phone:   "5035551234",
			Website: "https://hopehouse.org",
		}
		changed := MergeCandidate(existing, &model.ResourceCandidate{
			Name:  "Hope House",
			Email: "info@hopehouse.org",
		})
		assert.True(t, changed)
		assert.Equal(t, "info@hopehouse.org", existing.Email)
		assert.Equal(t, "https://hopehouse.org", existing.Website, "empty candidate field must not blank existing value")
	})

	t.Run("no change reports false", func(t *testing.T) {
		existing := &model.Resource{Name: "Hope House", Phone: "5035551234"}
		changed := MergeCandidate(existing, &model.ResourceCandidate{Name: "Hope House"})
		assert.False(t, changed)
	})

	t.Run("services union", func(t *testing.T) {
		existing := &model.Resource{Name: "Hope House", Services: []string{"Housing", "Meals"}}
		changed := MergeCandidate(existing, &model.ResourceCandidate{
			Name:     "Hope House",
			Services: []string{"meals", "Job Training"},
		})
		assert.True(t, changed)
		assert.Equal(t, []string{"Housing", "Meals", "Job Training"}, existing.Services)
	})
}
