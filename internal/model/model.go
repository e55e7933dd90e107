// Package model defines the data types shared across the negotiation
// core: demands, candidates, responses, proposals, feedback, and gaps.
//
// These types are plain data. Demand is immutable once accepted;
// Response and Feedback objects are immutable after creation (a new round
// produces new objects); Proposal versions accumulate append-only.
package model

import "time"

// Demand is a requester's broadcast need. Immutable once accepted.
// Keywords are opaque values supplied by the caller alongside the raw
// text; the core never derives them.
type Demand struct {
	ID             string            `json:"id"`
	RequesterID    string            `json:"requester_id"`
	RawText        string            `json:"raw_text"`
	CapabilityTags []string          `json:"capability_tags"`
	Keywords       []string          `json:"keywords"`
	Context        map[string]string `json:"context,omitempty"`
}

// Candidate is one agent selected for a demand, produced once per demand
// by the selector.
type Candidate struct {
	AgentID        string `json:"agent_id"`
	RelevanceScore int    `json:"relevance_score"` // 0-100
	IsFallback     bool   `json:"is_fallback"`
}

// ResponseDecision is an agent's participation decision.
type ResponseDecision string

const (
	// DecisionParticipate accepts the invitation unconditionally.
	DecisionParticipate ResponseDecision = "participate"

	// DecisionDecline rejects the invitation.
	DecisionDecline ResponseDecision = "decline"

	// DecisionConditional accepts subject to listed conditions.
	DecisionConditional ResponseDecision = "conditional"
)

// ResponseKind distinguishes a plain offer from a counter-position.
type ResponseKind string

const (
	// KindOffer is a direct contribution offer.
	KindOffer ResponseKind = "offer"

	// KindNegotiate raises negotiation points instead of a direct offer.
	KindNegotiate ResponseKind = "negotiate"
)

// Response is one agent's answer to a round's invitation.
// One per (agent, round); never mutated after creation.
type Response struct {
	AgentID           string           `json:"agent_id"`
	Round             int              `json:"round"`
	Decision          ResponseDecision `json:"decision"`
	Kind              ResponseKind     `json:"kind"`
	Contribution      string           `json:"contribution,omitempty"`
	Conditions        []string         `json:"conditions,omitempty"`
	NegotiationPoints []string         `json:"negotiation_points,omitempty"`
	Confidence        float64          `json:"confidence"`
	MessageID         string           `json:"message_id"` // dedup key
	SubmittedAt       time.Time        `json:"submitted_at"`
}

// Assignment is one agent's role in a proposal.
type Assignment struct {
	AgentID        string `json:"agent_id"`
	Role           string `json:"role"`
	Responsibility string `json:"responsibility"`
	IsConfirmed    bool   `json:"is_confirmed"`
}

// GapResolution records the outcome of gap recursion for a single gap.
type GapResolution string

const (
	// ResolutionNone means no child negotiation has concluded for the gap.
	ResolutionNone GapResolution = ""

	// ResolutionResolved means a child negotiation closed the gap.
	ResolutionResolved GapResolution = "resolved"

	// ResolutionUnresolved means the child negotiation failed or timed out.
	ResolutionUnresolved GapResolution = "unresolved"
)

// Gap is an unmet capability in a proposal.
type Gap struct {
	ID          string        `json:"id"`
	Capability  string        `json:"capability"`
	Description string        `json:"description,omitempty"`
	Importance  int           `json:"importance"` // 0-100
	Resolution  GapResolution `json:"resolution,omitempty"`
}

// Proposal is the aggregated outcome of one round. Versions accumulate;
// history is append-only and never overwritten.
type Proposal struct {
	ID                    string       `json:"id"`
	Version               int          `json:"version"` // = round number
	Assignments           []Assignment `json:"assignments"`
	Gaps                  []Gap        `json:"gaps,omitempty"`
	Confidence            float64      `json:"confidence"`
	IsForced              bool         `json:"is_forced"`
	ConfirmedParticipants []string     `json:"confirmed_participants,omitempty"`
	OptionalParticipants  []string     `json:"optional_participants,omitempty"`
}

// FeedbackType is an agent's reaction to a distributed proposal.
type FeedbackType string

const (
	// FeedbackAccept approves the proposal as distributed.
	FeedbackAccept FeedbackType = "accept"

	// FeedbackReject refuses the proposal outright.
	FeedbackReject FeedbackType = "reject"

	// FeedbackNegotiate requests adjustments before accepting.
	FeedbackNegotiate FeedbackType = "negotiate"

	// FeedbackWithdraw removes the agent from the negotiation.
	FeedbackWithdraw FeedbackType = "withdraw"
)

// Feedback is one agent's reaction to a round's proposal.
// Same per-round, dedup-by-MessageID semantics as Response.
type Feedback struct {
	AgentID           string       `json:"agent_id"`
	Round             int          `json:"round"`
	Type              FeedbackType `json:"type"`
	AdjustmentRequest string       `json:"adjustment_request,omitempty"`
	MessageID         string       `json:"message_id"` // dedup key
	SubmittedAt       time.Time    `json:"submitted_at"`
}

// Tally summarizes one round's feedback for the threshold evaluator.
type Tally struct {
	Expected  int `json:"expected"` // participants the round waited for
	Accept    int `json:"accept"`
	Reject    int `json:"reject"`
	Negotiate int `json:"negotiate"`
	Withdraw  int `json:"withdraw"`
}

// Active returns the number of participants still in the negotiation.
func (t Tally) Active() int {
	return t.Expected - t.Withdraw
}

// AcceptRate returns accept/active, or 0 when no one is active.
func (t Tally) AcceptRate() float64 {
	active := t.Active()
	if active <= 0 {
		return 0
	}
	return float64(t.Accept) / float64(active)
}

// TallyOf computes a Tally from a round's feedback.
func TallyOf(expected int, feedbacks []Feedback) Tally {
	t := Tally{Expected: expected}
	for _, fb := range feedbacks {
		switch fb.Type {
		case FeedbackAccept:
			t.Accept++
		case FeedbackReject:
			t.Reject++
		case FeedbackNegotiate:
			t.Negotiate++
		case FeedbackWithdraw:
			t.Withdraw++
		}
	}
	return t
}
