package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/reentry-map/resource-verifier/internal/model"
)

// MemoryStore implements Store with in-process maps. It backs the "memory"
// driver for local development and is the default fake in tests.
type MemoryStore struct {
	mu         sync.Mutex
	candidates map[string]*model.ResourceCandidate
	resources  map[string]*model.Resource
	checks     map[string][]model.CheckResult
	decisions  map[string][]model.Decision
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		candidates: make(map[string]*model.ResourceCandidate),
		resources:  make(map[string]*model.Resource),
		checks:     make(map[string][]model.CheckResult),
		decisions:  make(map[string][]model.Decision),
	}
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }
func (s *MemoryStore) Close() error                  { return nil }

func (s *MemoryStore) CreateCandidate(_ context.Context, c *model.ResourceCandidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = model.CandidatePending
	}
	c.CreatedAt = now
	c.UpdatedAt = now

	s.candidates[c.ID] = clone(c)
	return nil
}

func (s *MemoryStore) GetCandidate(_ context.Context, id string) (*model.ResourceCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.candidates[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(c), nil
}

func (s *MemoryStore) UpdateCandidate(_ context.Context, c *model.ResourceCandidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.candidates[c.ID]; !ok {
		return eris.Wrapf(ErrNotFound, "candidate %s", c.ID)
	}
	c.UpdatedAt = time.Now().UTC()
	s.candidates[c.ID] = clone(c)
	return nil
}

func (s *MemoryStore) ListCandidates(_ context.Context, filter CandidateFilter) ([]model.ResourceCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.ResourceCandidate
	for _, c := range s.candidates {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		out = append(out, *clone(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	if filter.Offset > 0 && filter.Offset < len(out) {
		out = out[filter.Offset:]
	} else if filter.Offset >= len(out) {
		out = nil
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) CreateResource(_ context.Context, r *model.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.CandidateID != "" {
		for _, existing := range s.resources {
			if existing.CandidateID == r.CandidateID {
				return ErrConflict
			}
		}
	}

	now := time.Now().UTC()
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = model.ResourceActive
	}
	r.CreatedAt = now
	r.UpdatedAt = now

	s.resources[r.ID] = cloneResource(r)
	return nil
}

func (s *MemoryStore) GetResource(_ context.Context, id string) (*model.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.resources[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneResource(r), nil
}

func (s *MemoryStore) UpdateResource(_ context.Context, r *model.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resources[r.ID]; !ok {
		return eris.Wrapf(ErrNotFound, "resource %s", r.ID)
	}
	r.UpdatedAt = time.Now().UTC()
	s.resources[r.ID] = cloneResource(r)
	return nil
}

func (s *MemoryStore) ListResources(_ context.Context, filter ResourceFilter) ([]model.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Resource
	for _, r := range s.resources {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.Category != "" && r.Category != filter.Category {
			continue
		}
		out = append(out, *cloneResource(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	if filter.Offset > 0 && filter.Offset < len(out) {
		out = out[filter.Offset:]
	} else if filter.Offset >= len(out) {
		out = nil
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) FindParentByOrgName(_ context.Context, orgName string) (*model.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.resources {
		if r.IsParent && r.OrgName == orgName && r.Status == model.ResourceActive {
			return cloneResource(r), nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) SaveCheckResults(_ context.Context, candidateID string, checks []model.CheckResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checks[candidateID] = append(s.checks[candidateID], checks...)
	return nil
}

func (s *MemoryStore) SaveDecision(_ context.Context, candidateID string, d *model.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.decisions[candidateID] = append(s.decisions[candidateID], *d)
	return nil
}

// CheckResults returns the audit log rows recorded for a candidate (tests).
func (s *MemoryStore) CheckResults(candidateID string) []model.CheckResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.CheckResult(nil), s.checks[candidateID]...)
}

// Decisions returns the decisions recorded for a candidate (tests).
func (s *MemoryStore) Decisions(candidateID string) []model.Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Decision(nil), s.decisions[candidateID]...)
}

// clone deep-copies via JSON so callers never share map/slice internals
// with the store.
func clone(c *model.ResourceCandidate) *model.ResourceCandidate {
	data, _ := json.Marshal(c)
	var out model.ResourceCandidate
	_ = json.Unmarshal(data, &out)
	return &out
}

func cloneResource(r *model.Resource) *model.Resource {
	data, _ := json.Marshal(r)
	var out model.Resource
	_ = json.Unmarshal(data, &out)
	return &out
}
