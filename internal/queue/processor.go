// Package queue drives the verification pipeline over batches of pending
// candidates.
package queue

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/reentry-map/resource-verifier/internal/dedupe"
	"github.com/reentry-map/resource-verifier/internal/lifecycle"
	"github.com/reentry-map/resource-verifier/internal/model"
	"github.com/reentry-map/resource-verifier/internal/orggroup"
	"github.com/reentry-map/resource-verifier/internal/store"
	"github.com/reentry-map/resource-verifier/internal/verify"
)

// systemActor marks pipeline-made transitions in audit records.
const systemActor = "system"

// Summary aggregates the outcomes of one processing run.
type Summary struct {
	Processed int     `json:"processed"`
	Skipped   int     `json:"skipped"`
	Updated   int     `json:"updated"`
	Approved  int     `json:"approved"`
	Flagged   int     `json:"flagged"`
	Rejected  int     `json:"rejected"`
	Errors    int     `json:"errors"`
	CostUSD   float64 `json:"cost_usd"`
}

// Processor runs pending candidates through dedupe, verification, and
// lifecycle transition. Candidates are processed one at a time so each
// candidate sees the resources published by the ones before it.
type Processor struct {
	store    store.Store
	detector *dedupe.Detector
	checker  *verify.Checker
	engine   *verify.Engine
	manager  *lifecycle.Manager
	emitter  verify.Emitter
}

// NewProcessor creates a Processor.
func NewProcessor(s store.Store, detector *dedupe.Detector, checker *verify.Checker, engine *verify.Engine, manager *lifecycle.Manager, emitter verify.Emitter) *Processor {
	if emitter == nil {
		emitter = verify.LogEmitter{}
	}
	return &Processor{store: s, detector: detector, checker: checker, engine: engine, manager: manager, emitter: emitter}
}

// ProcessBatch takes up to limit pending candidates and runs each through
// the pipeline. One candidate's failure never aborts the batch; errors are
// counted and the remaining candidates still run. Context cancellation stops
// the batch between candidates.
func (p *Processor) ProcessBatch(ctx context.Context, limit int) (*Summary, error) {
	candidates, err := p.store.ListCandidates(ctx, store.CandidateFilter{
		Status: model.CandidatePending,
		Limit:  limit,
	})
	if err != nil {
		return nil, eris.Wrap(err, "queue: list pending candidates")
	}

	pending := make([]*model.ResourceCandidate, len(candidates))
	for i := range candidates {
		pending[i] = &candidates[i]
	}
	links := orggroup.Links(orggroup.GroupLocations(pending))

	summary := &Summary{}
	for _, cand := range pending {
		if ctx.Err() != nil {
			return summary, eris.Wrap(ctx.Err(), "queue: batch interrupted")
		}

		summary.Processed++
		p.processOne(ctx, cand, links, summary)
	}

	zap.L().Info("queue: batch complete",
		zap.Int("processed", summary.Processed),
		zap.Int("approved", summary.Approved),
		zap.Int("flagged", summary.Flagged),
		zap.Int("rejected", summary.Rejected),
		zap.Int("skipped", summary.Skipped),
		zap.Int("updated", summary.Updated),
		zap.Int("errors", summary.Errors),
	)
	return summary, nil
}

// processOne runs the full pipeline for a single candidate. A panic in any
// stage is contained to that candidate.
func (p *Processor) processOne(ctx context.Context, cand *model.ResourceCandidate, links map[string]orggroup.Link, summary *Summary) {
	defer func() {
		if rec := recover(); rec != nil {
			summary.Errors++
			zap.L().Error("queue: candidate panicked",
				zap.String("candidate_id", cand.ID),
				zap.Any("panic", rec),
			)
		}
	}()

	p.emitter.Emit(verify.Event{Type: verify.EventVerificationStarted, CandidateID: cand.ID})

	match, err := p.detector.CheckForDuplicate(ctx, cand)
	if err != nil {
		summary.Errors++
		p.emitter.Emit(verify.Event{Type: verify.EventCandidateFailed, CandidateID: cand.ID, Err: err})
		return
	}

	switch match.Action {
	case dedupe.ActionSkip:
		if err := p.manager.Reject(ctx, cand, model.RejectDuplicate, "exact duplicate of "+match.Existing.ID, systemActor); err != nil {
			summary.Errors++
			p.emitter.Emit(verify.Event{Type: verify.EventCandidateFailed, CandidateID: cand.ID, Err: err})
			return
		}
		summary.Skipped++
		summary.Rejected++
		return

	case dedupe.ActionUpdate:
		p.runUpdate(ctx, cand, match, summary)
		return
	}

	p.runNew(ctx, cand, links, summary)
}

// runUpdate verifies a near-duplicate and merges it into the matched
// resource when verification approves it.
func (p *Processor) runUpdate(ctx context.Context, cand *model.ResourceCandidate, match *dedupe.MatchResult, summary *Summary) {
	dec := p.verifyCandidate(ctx, cand, summary)
	if dec == nil {
		return
	}

	switch dec.Outcome {
	case model.OutcomeAutoApprove:
		if _, err := p.manager.UpdateExisting(ctx, cand, match.Existing, dec, systemActor); err != nil {
			summary.Errors++
			p.emitter.Emit(verify.Event{Type: verify.EventCandidateFailed, CandidateID: cand.ID, Err: err})
			return
		}
		summary.Updated++

	case model.OutcomeAutoReject:
		p.rejectFromDecision(ctx, cand, dec, summary)

	default:
		p.flagFromDecision(ctx, cand, dec, summary)
	}
}

// runNew verifies a novel candidate and publishes, flags, or rejects it.
func (p *Processor) runNew(ctx context.Context, cand *model.ResourceCandidate, links map[string]orggroup.Link, summary *Summary) {
	dec := p.verifyCandidate(ctx, cand, summary)
	if dec == nil {
		return
	}

	switch dec.Outcome {
	case model.OutcomeAutoApprove:
		var link *orggroup.Link
		if l, ok := links[cand.ID]; ok {
			link = &l
		}
		if _, err := p.manager.Approve(ctx, cand, dec, systemActor, link); err != nil {
			if eris.Is(err, model.ErrUngeocodable) {
				p.flagCandidate(ctx, cand, model.AttentionIncompleteAddress, err.Error(), summary)
				return
			}
			summary.Errors++
			p.emitter.Emit(verify.Event{Type: verify.EventCandidateFailed, CandidateID: cand.ID, Err: err})
			return
		}
		summary.Approved++

	case model.OutcomeAutoReject:
		p.rejectFromDecision(ctx, cand, dec, summary)

	default:
		p.flagFromDecision(ctx, cand, dec, summary)
	}
}

// verifyCandidate runs checks and the decision engine, persisting both.
// Returns nil after recording the error when any stage fails.
func (p *Processor) verifyCandidate(ctx context.Context, cand *model.ResourceCandidate, summary *Summary) *model.Decision {
	checks := p.checker.RunChecks(ctx, cand)
	for _, check := range checks {
		c := check
		p.emitter.Emit(verify.Event{Type: verify.EventCheckCompleted, CandidateID: cand.ID, Check: &c})
	}

	dec := p.engine.Decide(cand, checks)
	summary.CostUSD += dec.CostUSD

	if err := p.store.SaveCheckResults(ctx, cand.ID, dec.Checks); err != nil {
		summary.Errors++
		p.emitter.Emit(verify.Event{Type: verify.EventCandidateFailed, CandidateID: cand.ID, Err: err})
		return nil
	}
	if err := p.store.SaveDecision(ctx, cand.ID, dec); err != nil {
		summary.Errors++
		p.emitter.Emit(verify.Event{Type: verify.EventCandidateFailed, CandidateID: cand.ID, Err: err})
		return nil
	}

	p.emitter.Emit(verify.Event{Type: verify.EventDecisionMade, CandidateID: cand.ID, Decision: dec})
	return dec
}

func (p *Processor) rejectFromDecision(ctx context.Context, cand *model.ResourceCandidate, dec *model.Decision, summary *Summary) {
	reason := model.RejectDoesNotExist
	if dec.Confidence > 0 {
		reason = model.RejectInsufficientInfo
	}
	if err := p.manager.Reject(ctx, cand, reason, dec.Reason, systemActor); err != nil {
		summary.Errors++
		p.emitter.Emit(verify.Event{Type: verify.EventCandidateFailed, CandidateID: cand.ID, Err: err})
		return
	}
	summary.Rejected++
}

func (p *Processor) flagFromDecision(ctx context.Context, cand *model.ResourceCandidate, dec *model.Decision, summary *Summary) {
	p.flagCandidate(ctx, cand, model.AttentionNeedsVerification, dec.Reason, summary)
}

func (p *Processor) flagCandidate(ctx context.Context, cand *model.ResourceCandidate, reason model.AttentionReason, notes string, summary *Summary) {
	if err := p.manager.Flag(ctx, cand, reason, notes, systemActor); err != nil {
		summary.Errors++
		p.emitter.Emit(verify.Event{Type: verify.EventCandidateFailed, CandidateID: cand.ID, Err: err})
		return
	}
	summary.Flagged++
}
