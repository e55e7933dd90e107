// Package reasoner defines the abstract contract with the external
// reasoning collaborator that produces offers, proposals, and feedback
// evaluations from structured input.
//
// The negotiation core never inspects free text: every operation takes
// typed input and returns typed output that a deterministic fallback can
// also populate. Implementations may fail or time out; callers are
// expected to wrap a Reasoner with [Protected] so the shared circuit
// breaker contains those failures.
package reasoner

import (
	"context"

	"github.com/concord-hq/concord/internal/agent"
	"github.com/concord-hq/concord/internal/model"
)

// ScoredAgent is one pool member with its relevance to a demand.
type ScoredAgent struct {
	AgentID string  `json:"agent_id"`
	Score   float64 `json:"score"` // 0..1
}

// Signals are the three weighted inputs to a gap-recursion decision.
// Each is in [0, 1].
type Signals struct {
	Uplift      float64 `json:"uplift"`       // expected satisfaction uplift
	Support     float64 `json:"support"`      // stakeholder support
	CostBenefit float64 `json:"cost_benefit"` // cost/benefit ratio
}

// Reasoner provides reasoning operations for the negotiation core.
// All operations take structured input and return structured output or
// an error. Implementations must honor context cancellation.
type Reasoner interface {
	// Filter scores pool members for relevance to a demand.
	// Gating and fallback selection are core logic, not the reasoner's.
	Filter(ctx context.Context, demand model.Demand, pool []agent.Profile) ([]ScoredAgent, error)

	// GenerateOffer produces one agent's response to an invitation.
	GenerateOffer(ctx context.Context, demand model.Demand, profile agent.Profile) (model.Response, error)

	// Aggregate combines a round's responses into a proposal.
	Aggregate(ctx context.Context, demand model.Demand, responses []model.Response) (model.Proposal, error)

	// EvaluateProposal produces one agent's feedback on a proposal.
	EvaluateProposal(ctx context.Context, proposal model.Proposal, profile agent.Profile) (model.Feedback, error)

	// IdentifyGaps finds unmet capabilities in a proposal.
	IdentifyGaps(ctx context.Context, demand model.Demand, proposal model.Proposal, feedbacks []model.Feedback) ([]model.Gap, error)

	// RecursionSignals evaluates whether a gap merits a child negotiation.
	RecursionSignals(ctx context.Context, demand model.Demand, gap model.Gap) (Signals, error)
}
