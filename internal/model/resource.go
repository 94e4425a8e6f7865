package model

import "time"

// ResourceStatus represents the publication state of a directory entry.
// Resources are logically deleted by flipping to inactive, never removed.
type ResourceStatus string

const (
	ResourceActive   ResourceStatus = "active"
	ResourceInactive ResourceStatus = "inactive"
)

// VerificationStatus marks whether a resource's contact data has been
// checked against external reality.
type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "unverified"
	VerificationVerified   VerificationStatus = "verified"
)

// ChangeLogEntry records one creation or correction of a resource.
// Entries are append-only; prior entries are never rewritten.
type ChangeLogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Actor     string         `json:"actor"`
	Source    string         `json:"source,omitempty"`
	Action    string         `json:"action"`
	Before    map[string]any `json:"before,omitempty"`
	After     map[string]any `json:"after,omitempty"`
}

// Change-log actions.
const (
	ChangeCreated     = "created"
	ChangeCorrected   = "corrected"
	ChangeMerged      = "merged"
	ChangeVerified    = "verified"
	ChangeDeactivated = "deactivated"
)

// Resource is a published, searchable directory entry.
type Resource struct {
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

	Status                 ResourceStatus     `json:"status"`
	VerificationStatus     VerificationStatus `json:"verification_status"`
	VerificationConfidence float64            `json:"verification_confidence"`
	VerifiedAt             *time.Time         `json:"verified_at,omitempty"`

	// Multi-location organization linkage. ParentResourceID is a weak
	// reference to the org's aggregate row, never an ownership relation.
	ParentResourceID string `json:"parent_resource_id,omitempty"`
	OrgName          string `json:"org_name,omitempty"`
	LocationName     string `json:"location_name,omitempty"`
	IsParent         bool   `json:"is_parent,omitempty"`

	// CandidateID links back to the suggestion that created this resource.
	// The store enforces at most one resource per candidate.
	CandidateID string `json:"candidate_id,omitempty"`

	ChangeLog []ChangeLogEntry `json:"change_log"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot captures the identity and contact fields for change-log entries.
func (r *Resource) Snapshot() map[string]any {
	snap := map[string]any{
		"name":     r.Name,
		"street":   r.Street,
		"city":     r.City,
		"state":    r.State,
		"zip_code": r.ZipCode,
		"phone":    r.Phone,
		"email":    r.Email,
		"website":  r.Website,
		"category": r.Category,
	}
	if r.Latitude != nil && r.Longitude != nil {
		snap["latitude"] = *r.Latitude
		snap["longitude"] = *r.Longitude
	}
	return snap
}
