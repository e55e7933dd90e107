package reasoner

import (
	"time"

	"github.com/google/uuid"

	"github.com/concord-hq/concord/internal/agent"
	"github.com/concord-hq/concord/internal/model"
)

// Deterministic fallback values for every reasoner operation. Each matches
// the success schema of its operation so callers never need to branch on
// "was this a fallback": an open breaker degrades output quality, not
// output shape.

// FallbackFilter scores every pool member at zero. Downstream ranking
// becomes a stable pass-through of gate survivors.
func FallbackFilter(pool []agent.Profile) []ScoredAgent {
	scored := make([]ScoredAgent, 0, len(pool))
	for _, p := range pool {
		scored = append(scored, ScoredAgent{AgentID: p.ID, Score: 0})
	}
	return scored
}

// FallbackOffer declines the invitation with zero confidence.
func FallbackOffer(profile agent.Profile) model.Response {
	return model.Response{
		AgentID:     profile.ID,
		Decision:    model.DecisionDecline,
		Kind:        model.KindOffer,
		Confidence:  0,
		MessageID:   uuid.NewString(),
		SubmittedAt: time.Now(),
	}
}

// FallbackProposal builds a minimal proposal from whatever responses
// exist: participating agents become unconfirmed assignments, confidence
// is zero. The caller stamps the version.
func FallbackProposal(responses []model.Response) model.Proposal {
	assignments := make([]model.Assignment, 0, len(responses))
	for _, r := range responses {
		if r.Decision == model.DecisionDecline {
			continue
		}
		assignments = append(assignments, model.Assignment{
			AgentID:        r.AgentID,
			Role:           "participant",
			Responsibility: r.Contribution,
			IsConfirmed:    false,
		})
	}
	return model.Proposal{
		ID:          uuid.NewString(),
		Assignments: assignments,
		Confidence:  0,
	}
}

// FallbackFeedback keeps the agent in the negotiation without endorsing
// the proposal.
func FallbackFeedback(round int, profile agent.Profile) model.Feedback {
	return model.Feedback{
		AgentID:     profile.ID,
		Round:       round,
		Type:        model.FeedbackNegotiate,
		MessageID:   uuid.NewString(),
		SubmittedAt: time.Now(),
	}
}

// FallbackGaps reports no gaps. A degraded reasoner must not invent work.
func FallbackGaps() []model.Gap {
	return nil
}

// FallbackSignals reports zero on all signals, which never clears the
// recursion approval bar: no child negotiations spawn while degraded.
func FallbackSignals() Signals {
	return Signals{}
}
