package verify

import (
	"go.uber.org/zap"

	"github.com/reentry-map/resource-verifier/internal/model"
)

// EventType labels a pipeline lifecycle event.
type EventType string

const (
	EventVerificationStarted EventType = "verification_started"
	EventCheckCompleted      EventType = "check_completed"
	EventDecisionMade        EventType = "decision_made"
	EventCandidateFailed     EventType = "candidate_failed"
	EventResourceCreated     EventType = "resource_created"
	EventResourceUpdated     EventType = "resource_updated"
)

// Event describes one pipeline occurrence for a candidate.
type Event struct {
	Type        EventType
	CandidateID string
	ResourceID  string
	Check       *model.CheckResult
	Decision    *model.Decision
	Err         error
}

// Emitter receives pipeline events. Emitters must not block; slow consumers
// should buffer internally.
type Emitter interface {
	Emit(e Event)
}

// LogEmitter writes events to the global zap logger. It is the default
// emitter wired in every environment.
type LogEmitter struct{}

func (LogEmitter) Emit(e Event) {
	fields := []zap.Field{zap.String("candidate_id", e.CandidateID)}
	if e.ResourceID != "" {
		fields = append(fields, zap.String("resource_id", e.ResourceID))
	}
	if e.Check != nil {
		fields = append(fields,
			zap.String("check", string(e.Check.Name)),
			zap.Bool("pass", e.Check.Pass),
			zap.Float64("check_confidence", e.Check.Confidence),
		)
	}
	if e.Decision != nil {
		fields = append(fields,
			zap.String("outcome", string(e.Decision.Outcome)),
			zap.Float64("confidence", e.Decision.Confidence),
		)
	}

	if e.Err != nil {
		zap.L().Error(string(e.Type), append(fields, zap.Error(e.Err))...)
		return
	}
	zap.L().Info(string(e.Type), fields...)
}

// MultiEmitter fans events out to several emitters in order.
type MultiEmitter []Emitter

func (m MultiEmitter) Emit(e Event) {
	for _, em := range m {
		em.Emit(e)
	}
}
