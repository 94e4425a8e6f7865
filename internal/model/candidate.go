package model

import (
	"strings"
	"time"
)

// CandidateStatus represents the lifecycle state of a resource suggestion.
type CandidateStatus string

const (
	CandidatePending        CandidateStatus = "pending"
	CandidateApproved       CandidateStatus = "approved"
	CandidateRejected       CandidateStatus = "rejected"
	CandidateNeedsAttention CandidateStatus = "needs_attention"
)

// Terminal reports whether no further automatic transition is allowed.
// needs_attention is not terminal: a human may still approve or reject.
func (s CandidateStatus) Terminal() bool {
	return s == CandidateApproved || s == CandidateRejected
}

// AddressType describes how a resource relates to a physical location.
type AddressType string

const (
	AddressPhysical     AddressType = "physical"
	AddressConfidential AddressType = "confidential"
	AddressRegional     AddressType = "regional"
	AddressOnline       AddressType = "online"
	AddressMobile       AddressType = "mobile"
)

// ValidAddressType reports whether t is a known address type.
func ValidAddressType(t AddressType) bool {
	switch t {
	case AddressPhysical, AddressConfidential, AddressRegional, AddressOnline, AddressMobile:
		return true
	default:
		return false
	}
}

// RequiresCoordinates reports whether resources of this address type must
// carry latitude/longitude before publication.
func (t AddressType) RequiresCoordinates() bool {
	return t == AddressPhysical || t == AddressConfidential
}

// RequiresServiceArea reports whether resources of this address type need a
// service-area descriptor instead of coordinates.
func (t AddressType) RequiresServiceArea() bool {
	return t == AddressRegional || t == AddressOnline || t == AddressMobile
}

// Provenance records how a candidate was discovered.
type Provenance struct {
	DiscoveryMethod string `json:"discovery_method"`
	SourceName      string `json:"source_name,omitempty"`
	SourceURL       string `json:"source_url,omitempty"`
	Notes           string `json:"notes"`
}

// ResourceCandidate is an unpublished, proposed resource awaiting a decision.
// Candidates are never deleted; they are retained for audit.
type ResourceCandidate struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Street      string            `json:"street,omitempty"`
	City        string            `json:"city,omitempty"`
	State       string            `json:"state,omitempty"`
	ZipCode     string            `json:"zip_code,omitempty"`
	Phone       string            `json:"phone,omitempty"`
	Email       string            `json:"email,omitempty"`
	Website     string            `json:"website,omitempty"`
	Description string            `json:"description,omitempty"`
	Category    string            `json:"category,omitempty"`
	Services    []string          `json:"services,omitempty"`
	Hours       map[string]string `json:"hours,omitempty"`
	HoursText   string            `json:"hours_text,omitempty"`
	AddressType AddressType       `json:"address_type,omitempty"`
	ServiceArea string            `json:"service_area,omitempty"`
	Latitude    *float64          `json:"latitude,omitempty"`
	Longitude   *float64          `json:"longitude,omitempty"`

	Provenance Provenance `json:"provenance"`

	Status          CandidateStatus `json:"status"`
	StatusReason    string          `json:"status_reason,omitempty"`
	ReviewNotes     string          `json:"review_notes,omitempty"`
	CorrectionNotes string          `json:"correction_notes,omitempty"`
	ResourceID      string          `json:"resource_id,omitempty"` // resource it became or updated

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasAddress reports whether the candidate carries any street address.
func (c *ResourceCandidate) HasAddress() bool {
	return strings.TrimSpace(c.Street) != ""
}

// FullAddress joins the address fields into a single line for geocoding.
func (c *ResourceCandidate) FullAddress() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{c.Street, c.City, c.State, c.ZipCode} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, ", ")
}
