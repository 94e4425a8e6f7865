package dedupe

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/reentry-map/resource-verifier/internal/model"
	"github.com/reentry-map/resource-verifier/internal/store"
)

// Action is the detector's recommendation for a candidate.
type Action string

const (
	ActionSkip    Action = "skip"    // exact duplicate, stop processing
	ActionUpdate  Action = "update"  // near-duplicate, merge into the existing row
	ActionProceed Action = "proceed" // treat as new
)

// MatchResult holds the duplicate-detection outcome for one candidate.
type MatchResult struct {
	IsDuplicate bool            `json:"is_duplicate"`
	Action      Action          `json:"suggested_action"`
	Existing    *model.Resource `json:"existing_resource,omitempty"`
	Score       float64         `json:"match_score"`
}

// Detector compares candidates against published resources.
type Detector struct {
	store          store.Store
	nameThreshold  float64
	maxComparisons int
}

// NewDetector creates a Detector. nameThreshold is the trigram similarity a
// name pair must reach before address/phone agreement can confirm a
// near-duplicate.
func NewDetector(s store.Store, nameThreshold float64, maxComparisons int) *Detector {
	if nameThreshold <= 0 {
		nameThreshold = 0.85
	}
	if maxComparisons <= 0 {
		maxComparisons = 5000
	}
	return &Detector{store: s, nameThreshold: nameThreshold, maxComparisons: maxComparisons}
}

// CheckForDuplicate compares the candidate against active resources.
//
// An exact duplicate (skip) requires agreement on two independent identity
// signals: normalized name AND normalized street address. A near-duplicate
// (update) requires name similarity at or above the threshold plus an exact
// address or phone match. A bare name match is never enough to skip — a
// false skip silently drops a legitimate resource, which is the worse
// failure mode.
func (d *Detector) CheckForDuplicate(ctx context.Context, cand *model.ResourceCandidate) (*MatchResult, error) {
	resources, err := d.store.ListResources(ctx, store.ResourceFilter{
		Status: model.ResourceActive,
		Limit:  d.maxComparisons,
	})
	if err != nil {
		return nil, eris.Wrap(err, "dedupe: list resources")
	}

	candName := NormalizeName(cand.Name)
	candStreet := NormalizeStreet(cand.Street)
	candPhone := NormalizePhone(cand.Phone)

	best := &MatchResult{Action: ActionProceed}
	for i := range resources {
		r := &resources[i]
		if r.IsParent {
			// Parent aggregates carry no independently meaningful address.
			continue
		}

		nameSim := Similarity(candName, NormalizeName(r.Name))
		if nameSim < d.nameThreshold {
			continue
		}

		addrMatch := candStreet != "" && candStreet == NormalizeStreet(r.Street)
		phoneMatch := candPhone != "" && candPhone == NormalizePhone(r.Phone)

		switch {
		case nameSim == 1.0 && addrMatch:
			zap.L().Info("dedupe: exact duplicate",
				zap.String("candidate", cand.Name),
				zap.String("resource_id", r.ID),
			)
			return &MatchResult{IsDuplicate: true, Action: ActionSkip, Existing: r, Score: 1.0}, nil

		case addrMatch || phoneMatch:
			if nameSim > best.Score {
				best = &MatchResult{IsDuplicate: true, Action: ActionUpdate, Existing: r, Score: nameSim}
			}

		default:
			// Name alone: note the score but keep proceeding.
			if best.Action == ActionProceed && nameSim > best.Score {
				best.Score = nameSim
			}
		}
	}

	if best.Action == ActionUpdate {
		zap.L().Info("dedupe: near-duplicate",
			zap.String("candidate", cand.Name),
			zap.String("resource_id", best.Existing.ID),
			zap.Float64("score", best.Score),
		)
	}
	return best, nil
}

// MergeCandidate merges candidate fields into an existing resource,
// preferring the candidate's values but never overwriting a non-empty
// existing field with an empty candidate field. Returns true if anything
// changed.
func MergeCandidate(existing *model.Resource, cand *model.ResourceCandidate) bool {
	changed := false

	merge := func(dst *string, src string) {
		if src != "" && src != *dst {
			*dst = src
			changed = true
		}
	}

	merge(&existing.Name, cand.Name)
	merge(&existing.Street, cand.Street)
	merge(&existing.City, cand.City)
	merge(&existing.State, cand.State)
	merge(&existing.ZipCode, cand.ZipCode)
	merge(&existing.Phone, cand.Phone)
	merge(&existing.Email, cand.Email)
	merge(&existing.Website, cand.Website)
	merge(&existing.Description, cand.Description)
	merge(&existing.Category, cand.Category)
	merge(&existing.HoursText, cand.HoursText)

	if len(cand.Services) > 0 {
		if merged := mergeServices(existing.Services, cand.Services); len(merged) != len(existing.Services) {
			existing.Services = merged
			changed = true
		}
	}
	if len(cand.Hours) > 0 && len(existing.Hours) == 0 {
		existing.Hours = cand.Hours
		changed = true
	}
	if cand.Latitude != nil && cand.Longitude != nil && existing.Latitude == nil {
		existing.Latitude = cand.Latitude
		existing.Longitude = cand.Longitude
		changed = true
	}

	return changed
}

// mergeServices appends candidate services not already present, preserving
// the existing order.
func mergeServices(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	out := append([]string(nil), existing...)
	for _, s := range existing {
		seen[NormalizeName(s)] = true
	}
	for _, s := range incoming {
		if !seen[NormalizeName(s)] {
			out = append(out, s)
			seen[NormalizeName(s)] = true
		}
	}
	return out
}
