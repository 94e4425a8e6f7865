package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCandidateStatusTerminal(t *testing.T) {
	t.Parallel()

	assert.True(t, CandidateApproved.Terminal())
	assert.True(t, CandidateRejected.Terminal())
	assert.False(t, CandidatePending.Terminal())
	assert.False(t, CandidateNeedsAttention.Terminal())
}

func TestAddressTypeRequirements(t *testing.T) {
	t.Parallel()

	assert.True(t, AddressPhysical.RequiresCoordinates())
	assert.True(t, AddressConfidential.RequiresCoordinates())
	assert.False(t, AddressOnline.RequiresCoordinates())

	assert.True(t, AddressRegional.RequiresServiceArea())
	assert.True(t, AddressOnline.RequiresServiceArea())
	assert.True(t, AddressMobile.RequiresServiceArea())
	assert.False(t, AddressPhysical.RequiresServiceArea())

	assert.True(t, ValidAddressType(AddressPhysical))
	assert.False(t, ValidAddressType("warehouse"))
}

func TestFullAddress(t *testing.T) {
	t.Parallel()

	c := &ResourceCandidate{Street: "123 Oak St", City: "Portland", State: "OR", ZipCode: "97201"}
	assert.Equal(t, "123 Oak St, Portland, OR, 97201", c.FullAddress())

	partial := &ResourceCandidate{City: "Portland", State: "OR"}
	assert.Equal(t, "Portland, OR", partial.FullAddress())
	assert.False(t, partial.HasAddress())
}
