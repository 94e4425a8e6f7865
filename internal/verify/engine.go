package verify

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/reentry-map/resource-verifier/internal/model"
)

// Engine combines check results into a verification decision.
type Engine struct {
	approveThreshold float64
	rejectThreshold  float64
	weights          map[model.CheckName]float64
}

// NewEngine creates an Engine. Candidates scoring at or above
// approveThreshold with no failing checks are auto-approved; candidates
// scoring below rejectThreshold are auto-rejected; everything else is
// flagged for human review.
func NewEngine(approveThreshold, rejectThreshold float64) *Engine {
	if approveThreshold <= 0 {
		approveThreshold = 0.85
	}
	if rejectThreshold <= 0 {
		rejectThreshold = 0.40
	}
	return &Engine{
		approveThreshold: approveThreshold,
		rejectThreshold:  rejectThreshold,
		weights: map[model.CheckName]float64{
			// A bad address makes a location resource unusable, so it
			// counts double.
			model.CheckAddressGeocodable: 2.0,
			model.CheckURLReachable:      1.0,
			model.CheckPhoneValid:        1.0,
		},
	}
}

// Decide computes the weighted confidence over the checks that actually ran
// and maps it to an outcome. Absent checks are excluded from the mean
// entirely; a candidate is never penalized for fields it does not have.
func (e *Engine) Decide(cand *model.ResourceCandidate, checks map[model.CheckName]model.CheckResult) *model.Decision {
	d := &model.Decision{DecidedAt: time.Now().UTC()}

	var weightSum, scoreSum float64
	var failed, transientFailed []string
	addressFailed := false

	for _, name := range orderedCheckNames(checks) {
		check := checks[name]
		d.Checks = append(d.Checks, check)
		d.CostUSD += check.CostUSD
		d.Tokens += check.Tokens

		w := e.weights[name]
		if w == 0 {
			w = 1.0
		}
		weightSum += w
		scoreSum += w * check.Confidence

		if !check.Pass {
			if check.Transient {
				transientFailed = append(transientFailed, string(name))
			} else {
				failed = append(failed, string(name))
				if name == model.CheckAddressGeocodable {
					addressFailed = true
				}
			}
		}
	}

	if weightSum > 0 {
		d.Confidence = scoreSum / weightSum
	}

	switch {
	case len(checks) == 0:
		// Nothing verifiable; only a human can judge this one.
		d.Outcome = model.OutcomeFlagForHuman
		d.Reason = "no verifiable fields"

	case addressFailed:
		d.Outcome = model.OutcomeAutoReject
		d.Reason = "address could not be geocoded"

	case len(transientFailed) > 0:
		// A collaborator outage must never auto-reject a candidate, however
		// low the score it left behind.
		d.Outcome = model.OutcomeFlagForHuman
		d.Reason = fmt.Sprintf("checks inconclusive (%s unavailable)", strings.Join(transientFailed, ", "))

	case d.Confidence < e.rejectThreshold:
		d.Outcome = model.OutcomeAutoReject
		d.Reason = fmt.Sprintf("confidence %.2f below reject threshold %.2f", d.Confidence, e.rejectThreshold)

	case len(failed) > 0:
		d.Outcome = model.OutcomeFlagForHuman
		d.Reason = fmt.Sprintf("checks failed: %s", strings.Join(failed, ", "))

	case d.Confidence >= e.approveThreshold:
		d.Outcome = model.OutcomeAutoApprove
		d.Reason = fmt.Sprintf("all checks passed with confidence %.2f", d.Confidence)

	default:
		d.Outcome = model.OutcomeFlagForHuman
		d.Reason = fmt.Sprintf("confidence %.2f in review band", d.Confidence)
	}

	zap.L().Info("verify: decision",
		zap.String("candidate_id", cand.ID),
		zap.String("outcome", string(d.Outcome)),
		zap.Float64("confidence", d.Confidence),
		zap.String("reason", d.Reason),
	)
	return d
}

// orderedCheckNames returns check names in stable order so decision output
// and logs are deterministic.
func orderedCheckNames(checks map[model.CheckName]model.CheckResult) []model.CheckName {
	names := make([]model.CheckName, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
