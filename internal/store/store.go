// Package store defines the persistence port for the verification pipeline
// and its SQLite, Postgres, and in-memory backends.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/reentry-map/resource-verifier/internal/model"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = eris.New("store: not found")

// ErrConflict is returned when a second resource would be created for the
// same candidate. The losing racer must fail cleanly rather than publish a
// duplicate.
var ErrConflict = eris.New("store: resource already exists for candidate")

// CandidateFilter specifies criteria for listing candidates.
type CandidateFilter struct {
	Status model.CandidateStatus `json:"status,omitempty"`
	Limit  int                   `json:"limit,omitempty"`
	Offset int                   `json:"offset,omitempty"`
}

// ResourceFilter specifies criteria for listing resources.
type ResourceFilter struct {
	Status   model.ResourceStatus `json:"status,omitempty"`
	Category string               `json:"category,omitempty"`
	Limit    int                  `json:"limit,omitempty"`
	Offset   int                  `json:"offset,omitempty"`
}

// Store defines the persistence interface for the verification pipeline.
type Store interface {
	// Candidates
	CreateCandidate(ctx context.Context, c *model.ResourceCandidate) error
	GetCandidate(ctx context.Context, id string) (*model.ResourceCandidate, error)
	UpdateCandidate(ctx context.Context, c *model.ResourceCandidate) error
	ListCandidates(ctx context.Context, filter CandidateFilter) ([]model.ResourceCandidate, error)

	// Resources
	CreateResource(ctx context.Context, r *model.Resource) error
	GetResource(ctx context.Context, id string) (*model.Resource, error)
	UpdateResource(ctx context.Context, r *model.Resource) error
	ListResources(ctx context.Context, filter ResourceFilter) ([]model.Resource, error)
	FindParentByOrgName(ctx context.Context, orgName string) (*model.Resource, error)

	// Verification audit log (immutable rows)
	SaveCheckResults(ctx context.Context, candidateID string, checks []model.CheckResult) error
	SaveDecision(ctx context.Context, candidateID string, d *model.Decision) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
