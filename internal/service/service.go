// Package service is the application layer: it validates input, loads
// records, and delegates to the pipeline and lifecycle manager. Both the
// HTTP API and the CLI talk to it.
package service

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/reentry-map/resource-verifier/internal/lifecycle"
	"github.com/reentry-map/resource-verifier/internal/model"
	"github.com/reentry-map/resource-verifier/internal/orggroup"
	"github.com/reentry-map/resource-verifier/internal/queue"
	"github.com/reentry-map/resource-verifier/internal/store"
)

// Service exposes the application operations.
type Service struct {
	store        store.Store
	processor    *queue.Processor
	manager      *lifecycle.Manager
	defaultBatch int
	maxBatch     int
}

// New creates a Service.
func New(s store.Store, processor *queue.Processor, manager *lifecycle.Manager, defaultBatch, maxBatch int) *Service {
	if defaultBatch <= 0 {
		defaultBatch = 1
	}
	if maxBatch <= 0 {
		maxBatch = 50
	}
	return &Service{store: s, processor: processor, manager: manager, defaultBatch: defaultBatch, maxBatch: maxBatch}
}

// SubmitCandidate validates and stores a new suggestion in pending status.
// A candidate needs a name, at least one contact signal, and provenance
// describing where it came from.
func (s *Service) SubmitCandidate(ctx context.Context, cand *model.ResourceCandidate) (*model.ResourceCandidate, error) {
	if strings.TrimSpace(cand.Name) == "" {
		return nil, model.Validationf("name", "name is required")
	}
	if !cand.HasAddress() && strings.TrimSpace(cand.Website) == "" && strings.TrimSpace(cand.Phone) == "" {
		return nil, model.Validationf("", "at least one of street address, website, or phone is required")
	}
	if strings.TrimSpace(cand.Provenance.Notes) == "" && strings.TrimSpace(cand.Provenance.DiscoveryMethod) == "" {
		return nil, model.Validationf("provenance", "provenance notes or discovery method are required")
	}
	if cand.AddressType != "" && !model.ValidAddressType(cand.AddressType) {
		return nil, model.Validationf("address_type", "unknown address type %q", cand.AddressType)
	}

	cand.Status = model.CandidatePending
	cand.StatusReason = ""
	cand.ResourceID = ""
	if err := s.store.CreateCandidate(ctx, cand); err != nil {
		return nil, eris.Wrap(err, "service: create candidate")
	}

	zap.L().Info("service: candidate submitted",
		zap.String("candidate_id", cand.ID),
		zap.String("name", cand.Name),
	)
	return cand, nil
}

// ProcessQueue runs one batch through the verification pipeline. A limit of
// zero uses the configured default; limits above the maximum are clamped.
func (s *Service) ProcessQueue(ctx context.Context, limit int) (*queue.Summary, error) {
	if limit <= 0 {
		limit = s.defaultBatch
	}
	if limit > s.maxBatch {
		limit = s.maxBatch
	}
	return s.processor.ProcessBatch(ctx, limit)
}

// Approve publishes a candidate, optionally applying reviewer corrections
// first.
func (s *Service) Approve(ctx context.Context, candidateID string, corr lifecycle.Corrections, actor string) (*model.Resource, error) {
	cand, err := s.store.GetCandidate(ctx, candidateID)
	if err != nil {
		return nil, eris.Wrapf(err, "service: load candidate %s", candidateID)
	}
	return s.manager.ApproveWithCorrections(ctx, cand, corr, actor, s.linkFor(ctx, cand))
}

// Reject closes a candidate permanently with a taxonomy reason.
func (s *Service) Reject(ctx context.Context, candidateID string, reason model.RejectionReason, notes, actor string) error {
	cand, err := s.store.GetCandidate(ctx, candidateID)
	if err != nil {
		return eris.Wrapf(err, "service: load candidate %s", candidateID)
	}
	return s.manager.Reject(ctx, cand, reason, notes, actor)
}

// Flag routes a candidate to the attention queue.
func (s *Service) Flag(ctx context.Context, candidateID string, reason model.AttentionReason, notes, actor string) error {
	cand, err := s.store.GetCandidate(ctx, candidateID)
	if err != nil {
		return eris.Wrapf(err, "service: load candidate %s", candidateID)
	}
	return s.manager.Flag(ctx, cand, reason, notes, actor)
}

// GetCandidate loads a candidate by ID.
func (s *Service) GetCandidate(ctx context.Context, id string) (*model.ResourceCandidate, error) {
	return s.store.GetCandidate(ctx, id)
}

// ListCandidates lists candidates, optionally filtered by status.
func (s *Service) ListCandidates(ctx context.Context, filter store.CandidateFilter) ([]model.ResourceCandidate, error) {
	return s.store.ListCandidates(ctx, filter)
}

// GetResource loads a published resource by ID.
func (s *Service) GetResource(ctx context.Context, id string) (*model.Resource, error) {
	return s.store.GetResource(ctx, id)
}

// ListResources lists published resources.
func (s *Service) ListResources(ctx context.Context, filter store.ResourceFilter) ([]model.Resource, error) {
	if filter.Status == "" {
		filter.Status = model.ResourceActive
	}
	return s.store.ListResources(ctx, filter)
}

// linkFor derives an organization link for a manually approved candidate by
// grouping it with its open siblings. Only pending and needs_attention
// candidates count; a rejected twin must not pull anything into a group.
// Best effort: grouping failures just publish the resource unlinked.
func (s *Service) linkFor(ctx context.Context, cand *model.ResourceCandidate) *orggroup.Link {
	all := []*model.ResourceCandidate{cand}
	for _, status := range []model.CandidateStatus{model.CandidatePending, model.CandidateNeedsAttention} {
		siblings, err := s.store.ListCandidates(ctx, store.CandidateFilter{Status: status, Limit: 1000})
		if err != nil {
			zap.L().Warn("service: sibling lookup failed", zap.Error(err))
			return nil
		}
		for i := range siblings {
			if siblings[i].ID == cand.ID {
				continue
			}
			all = append(all, &siblings[i])
		}
	}

	if link, ok := orggroup.Links(orggroup.GroupLocations(all))[cand.ID]; ok {
		return &link
	}
	return nil
}
