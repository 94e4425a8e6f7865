// Package lifecycle moves candidates through the review state machine and
// publishes approved candidates as directory resources.
package lifecycle

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/reentry-map/resource-verifier/internal/dedupe"
	"github.com/reentry-map/resource-verifier/internal/model"
	"github.com/reentry-map/resource-verifier/internal/orggroup"
	"github.com/reentry-map/resource-verifier/internal/store"
	"github.com/reentry-map/resource-verifier/internal/verify"
	"github.com/reentry-map/resource-verifier/pkg/geocode"
)

// Manager owns candidate status transitions. All writes to candidate status
// and all resource publication go through it so the state machine and audit
// trail cannot be bypassed.
type Manager struct {
	store    store.Store
	geocoder geocode.Client
	emitter  verify.Emitter
	now      func() time.Time
}

// NewManager creates a Manager.
func NewManager(s store.Store, geocoder geocode.Client, emitter verify.Emitter) *Manager {
	if emitter == nil {
		emitter = verify.LogEmitter{}
	}
	return &Manager{store: s, geocoder: geocoder, emitter: emitter, now: time.Now}
}

// canTransition enforces the status machine: pending may move to any review
// outcome, needs_attention may be re-flagged, approved, or rejected, and the
// terminal states admit no exit.
func canTransition(from, to model.CandidateStatus) error {
	if from.Terminal() {
		return eris.Wrapf(model.ErrInvalidTransition, "%s -> %s", from, to)
	}
	return nil
}

// Approve publishes a candidate as a new resource. The decision supplies
// verification confidence and any geocoded coordinates; link, when non-nil,
// attaches the resource to a multi-location organization parent.
func (m *Manager) Approve(ctx context.Context, cand *model.ResourceCandidate, dec *model.Decision, actor string, link *orggroup.Link) (*model.Resource, error) {
	if err := canTransition(cand.Status, model.CandidateApproved); err != nil {
		return nil, err
	}

	r := resourceFromCandidate(cand)
	if err := m.resolveLocation(ctx, cand, dec, r); err != nil {
		return nil, err
	}

	if dec != nil {
		r.VerificationStatus = model.VerificationVerified
		r.VerificationConfidence = dec.Confidence
	} else {
		// Human approval without an engine run counts as verified.
		r.VerificationStatus = model.VerificationVerified
		r.VerificationConfidence = 1.0
	}
	verifiedAt := m.now().UTC()
	r.VerifiedAt = &verifiedAt

	if link != nil {
		parent, err := m.ensureParent(ctx, link.OrgName, cand.Category, actor)
		if err != nil {
			return nil, err
		}
		r.ParentResourceID = parent.ID
		r.OrgName = link.OrgName
		r.LocationName = link.LocationName
	}

	r.ChangeLog = append(r.ChangeLog, model.ChangeLogEntry{
		Timestamp: m.now().UTC(),
		Actor:     actor,
		Source:    cand.Provenance.DiscoveryMethod,
		Action:    model.ChangeCreated,
		After:     r.Snapshot(),
	})

	if err := m.store.CreateResource(ctx, r); err != nil {
		return nil, eris.Wrapf(err, "lifecycle: publish candidate %s", cand.ID)
	}

	cand.Status = model.CandidateApproved
	cand.StatusReason = approvalReason(dec)
	cand.ResourceID = r.ID
	if err := m.store.UpdateCandidate(ctx, cand); err != nil {
		return nil, eris.Wrapf(err, "lifecycle: mark candidate %s approved", cand.ID)
	}

	m.emitter.Emit(verify.Event{Type: verify.EventResourceCreated, CandidateID: cand.ID, ResourceID: r.ID, Decision: dec})
	return r, nil
}

// Corrections carries reviewer edits applied before approval. Empty fields
// leave the candidate's values unchanged; Notes must document how the
// corrected values were verified.
type Corrections struct {
	Name        string            `json:"name,omitempty"`
	Street      string            `json:"street,omitempty"`
	City        string            `json:"city,omitempty"`
	State       string            `json:"state,omitempty"`
	ZipCode     string            `json:"zip_code,omitempty"`
	Phone       string            `json:"phone,omitempty"`
	Email       string            `json:"email,omitempty"`
	Website     string            `json:"website,omitempty"`
	Description string            `json:"description,omitempty"`
	Category    string            `json:"category,omitempty"`
	AddressType model.AddressType `json:"address_type,omitempty"`
	ServiceArea string            `json:"service_area,omitempty"`
	Notes       string            `json:"notes"`
}

func (c Corrections) empty() bool {
	return c == Corrections{Notes: c.Notes}
}

// ApproveWithCorrections applies reviewer edits to the candidate and then
// publishes it. Any correction requires notes documenting the source of the
// corrected values.
func (m *Manager) ApproveWithCorrections(ctx context.Context, cand *model.ResourceCandidate, corr Corrections, actor string, link *orggroup.Link) (*model.Resource, error) {
	if err := canTransition(cand.Status, model.CandidateApproved); err != nil {
		return nil, err
	}

	if !corr.empty() {
		if err := ValidateCorrectionNotes(corr.Notes); err != nil {
			return nil, err
		}
		applyCorrections(cand, corr)
		cand.CorrectionNotes = corr.Notes
	}

	r, err := m.Approve(ctx, cand, nil, actor, link)
	if err != nil {
		return nil, err
	}

	if !corr.empty() {
		r.ChangeLog = append(r.ChangeLog, model.ChangeLogEntry{
			Timestamp: m.now().UTC(),
			Actor:     actor,
			Source:    corr.Notes,
			Action:    model.ChangeCorrected,
			After:     r.Snapshot(),
		})
		if err := m.store.UpdateResource(ctx, r); err != nil {
			return nil, eris.Wrapf(err, "lifecycle: record corrections for %s", r.ID)
		}
	}
	return r, nil
}

// Reject permanently closes a candidate. The reason must come from the
// rejection taxonomy; no resource is ever created.
func (m *Manager) Reject(ctx context.Context, cand *model.ResourceCandidate, reason model.RejectionReason, notes, actor string) error {
	if err := canTransition(cand.Status, model.CandidateRejected); err != nil {
		return err
	}
	if !model.ValidRejectionReason(reason) {
		return eris.Wrapf(model.ErrInvalidReason, "rejection reason %q", reason)
	}

	cand.Status = model.CandidateRejected
	cand.StatusReason = string(reason)
	cand.ReviewNotes = notes
	if err := m.store.UpdateCandidate(ctx, cand); err != nil {
		return eris.Wrapf(err, "lifecycle: reject candidate %s", cand.ID)
	}

	zap.L().Info("lifecycle: candidate rejected",
		zap.String("candidate_id", cand.ID),
		zap.String("reason", string(reason)),
		zap.String("actor", actor),
	)
	return nil
}

// Flag routes a candidate to human review with a recoverable reason. Notes
// are required so the next reviewer knows what to look at.
func (m *Manager) Flag(ctx context.Context, cand *model.ResourceCandidate, reason model.AttentionReason, notes, actor string) error {
	if err := canTransition(cand.Status, model.CandidateNeedsAttention); err != nil {
		return err
	}
	if !model.ValidAttentionReason(reason) {
		return eris.Wrapf(model.ErrInvalidReason, "attention reason %q", reason)
	}
	if strings.TrimSpace(notes) == "" {
		return model.Validationf("notes", "flag notes are required")
	}

	cand.Status = model.CandidateNeedsAttention
	cand.StatusReason = string(reason)
	cand.ReviewNotes = notes
	if err := m.store.UpdateCandidate(ctx, cand); err != nil {
		return eris.Wrapf(err, "lifecycle: flag candidate %s", cand.ID)
	}

	zap.L().Info("lifecycle: candidate flagged",
		zap.String("candidate_id", cand.ID),
		zap.String("reason", string(reason)),
		zap.String("actor", actor),
	)
	return nil
}

// UpdateExisting merges a near-duplicate candidate into the resource it
// matched instead of publishing a twin. The candidate is approved and linked
// to the existing resource.
func (m *Manager) UpdateExisting(ctx context.Context, cand *model.ResourceCandidate, existing *model.Resource, dec *model.Decision, actor string) (*model.Resource, error) {
	if err := canTransition(cand.Status, model.CandidateApproved); err != nil {
		return nil, err
	}

	before := existing.Snapshot()
	changed := dedupe.MergeCandidate(existing, cand)

	if dec != nil {
		existing.VerificationStatus = model.VerificationVerified
		existing.VerificationConfidence = dec.Confidence
		verifiedAt := m.now().UTC()
		existing.VerifiedAt = &verifiedAt
		if lat, lng := dec.Coordinates(); lat != nil && existing.Latitude == nil {
			existing.Latitude = lat
			existing.Longitude = lng
			changed = true
		}
	}

	if changed {
		existing.ChangeLog = append(existing.ChangeLog, model.ChangeLogEntry{
			Timestamp: m.now().UTC(),
			Actor:     actor,
			Source:    cand.Provenance.DiscoveryMethod,
			Action:    model.ChangeMerged,
			Before:    before,
			After:     existing.Snapshot(),
		})
	}
	if err := m.store.UpdateResource(ctx, existing); err != nil {
		return nil, eris.Wrapf(err, "lifecycle: merge into resource %s", existing.ID)
	}

	cand.Status = model.CandidateApproved
	cand.StatusReason = "merged into existing resource"
	cand.ResourceID = existing.ID
	if err := m.store.UpdateCandidate(ctx, cand); err != nil {
		return nil, eris.Wrapf(err, "lifecycle: mark candidate %s merged", cand.ID)
	}

	m.emitter.Emit(verify.Event{Type: verify.EventResourceUpdated, CandidateID: cand.ID, ResourceID: existing.ID, Decision: dec})
	return existing, nil
}

func applyCorrections(cand *model.ResourceCandidate, corr Corrections) {
	set := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	set(&cand.Name, corr.Name)
	set(&cand.Street, corr.Street)
	set(&cand.City, corr.City)
	set(&cand.State, corr.State)
	set(&cand.ZipCode, corr.ZipCode)
	set(&cand.Phone, corr.Phone)
	set(&cand.Email, corr.Email)
	set(&cand.Website, corr.Website)
	set(&cand.Description, corr.Description)
	set(&cand.Category, corr.Category)
	set(&cand.ServiceArea, corr.ServiceArea)
	if corr.AddressType != "" {
		cand.AddressType = corr.AddressType
	}
}

var urlRe = regexp.MustCompile(`https?://\S+`)

// verificationPhrases are the documented-method markers accepted in
// correction notes when no source URL is given.
var verificationPhrases = []string{
	"called", "phone call", "spoke with", "spoke to",
	"visited", "in person", "confirmed with", "verified with",
	"emailed", "email from", "per their website", "per website",
}

// ValidateCorrectionNotes requires that correction notes cite a source: a
// URL, or a phrase describing how the value was confirmed. A bare "looks
// fine" is not documentation.
func ValidateCorrectionNotes(notes string) error {
	trimmed := strings.TrimSpace(notes)
	if trimmed == "" {
		return model.Validationf("notes", "correction notes are required when fields are changed")
	}
	if urlRe.MatchString(trimmed) {
		return nil
	}
	lower := strings.ToLower(trimmed)
	for _, phrase := range verificationPhrases {
		if strings.Contains(lower, phrase) {
			return nil
		}
	}
	return model.Validationf("notes", "correction notes must cite a source URL or describe how the value was verified")
}

// resolveLocation fills in the resource's coordinates or service area
// according to its address type.
func (m *Manager) resolveLocation(ctx context.Context, cand *model.ResourceCandidate, dec *model.Decision, r *model.Resource) error {
	addrType := cand.AddressType
	if addrType == "" {
		if cand.HasAddress() {
			addrType = model.AddressPhysical
		} else {
			addrType = model.AddressOnline
		}
		r.AddressType = addrType
	}

	switch {
	case addrType == model.AddressConfidential:
		// Publish only a city-center point so the exact location stays
		// private. Any precise coordinates on the candidate are discarded.
		if strings.TrimSpace(cand.City) == "" {
			return model.Validationf("city", "confidential-address resources need a city for the public map point")
		}
		geo, err := m.geocoder.Geocode(ctx, geocode.AddressInput{City: cand.City, State: cand.State})
		if err != nil {
			return eris.Wrap(err, "lifecycle: geocode city center")
		}
		if !geo.Matched {
			return eris.Wrapf(model.ErrUngeocodable, "city %q", cand.City)
		}
		r.Latitude = &geo.Latitude
		r.Longitude = &geo.Longitude
		r.Street = ""

	case addrType.RequiresCoordinates():
		if r.Latitude != nil && r.Longitude != nil {
			return nil
		}
		if dec != nil {
			if lat, lng := dec.Coordinates(); lat != nil && lng != nil {
				r.Latitude = lat
				r.Longitude = lng
				return nil
			}
		}
		if !cand.HasAddress() {
			return model.Validationf("street", "physical resources need a street address")
		}
		geo, err := m.geocoder.Geocode(ctx, geocode.AddressInput{
			Street:  cand.Street,
			City:    cand.City,
			State:   cand.State,
			ZipCode: cand.ZipCode,
		})
		if err != nil {
			return eris.Wrap(err, "lifecycle: geocode address")
		}
		if !geo.Matched {
			return eris.Wrapf(model.ErrUngeocodable, "address %q", cand.FullAddress())
		}
		r.Latitude = &geo.Latitude
		r.Longitude = &geo.Longitude

	case addrType.RequiresServiceArea():
		if strings.TrimSpace(cand.ServiceArea) == "" {
			return model.Validationf("service_area", "%s resources need a service area", addrType)
		}
	}
	return nil
}

// ensureParent finds the organization's aggregate parent row, creating it on
// first use. The parent carries no address of its own.
func (m *Manager) ensureParent(ctx context.Context, orgName, category, actor string) (*model.Resource, error) {
	parent, err := m.store.FindParentByOrgName(ctx, orgName)
	if err != nil {
		return nil, eris.Wrapf(err, "lifecycle: find parent %q", orgName)
	}
	if parent != nil {
		return parent, nil
	}

	parent = &model.Resource{
		Name:               orgName,
		OrgName:            orgName,
		Category:           category,
		IsParent:           true,
		Status:             model.ResourceActive,
		VerificationStatus: model.VerificationUnverified,
		ChangeLog: []model.ChangeLogEntry{{
			Timestamp: m.now().UTC(),
			Actor:     actor,
			Action:    model.ChangeCreated,
		}},
	}
	if err := m.store.CreateResource(ctx, parent); err != nil {
		return nil, eris.Wrapf(err, "lifecycle: create parent %q", orgName)
	}
	zap.L().Info("lifecycle: created organization parent", zap.String("org", orgName), zap.String("id", parent.ID))
	return parent, nil
}

func resourceFromCandidate(c *model.ResourceCandidate) *model.Resource {
	return &model.Resource{
		Name:        c.Name,
		Street:      c.Street,
		City:        c.City,
		State:       c.State,
		ZipCode:     c.ZipCode,
		Phone:       c.Phone,
		Email:       c.Email,
		Website:     c.Website,
		Description: c.Description,
		Category:    c.Category,
		Services:    append([]string(nil), c.Services...),
		Hours:       c.Hours,
		HoursText:   c.HoursText,
		AddressType: c.AddressType,
		ServiceArea: c.ServiceArea,
		Latitude:    c.Latitude,
		Longitude:   c.Longitude,
		Status:      model.ResourceActive,
		CandidateID: c.ID,
	}
}

func approvalReason(dec *model.Decision) string {
	if dec == nil {
		return "approved by reviewer"
	}
	return dec.Reason
}
