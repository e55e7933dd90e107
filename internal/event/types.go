package event

import "time"

// Event is the interface that all events must implement.
// Every event identifies the negotiation session it belongs to.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "offer.submitted", "proposal.finalized")
	EventType() string

	// NegotiationID returns the session the event belongs to.
	NegotiationID() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType     string
	negotiationID string
	timestamp     time.Time
}

func (e baseEvent) EventType() string     { return e.eventType }
func (e baseEvent) NegotiationID() string { return e.negotiationID }
func (e baseEvent) Timestamp() time.Time  { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType, negotiationID string) baseEvent {
	return baseEvent{
		eventType:     eventType,
		negotiationID: negotiationID,
		timestamp:     time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Demand & Selection Events
// -----------------------------------------------------------------------------

// DemandUnderstoodEvent is emitted when a submitted demand has been accepted
// and a session created for it.
type DemandUnderstoodEvent struct {
	baseEvent
	DemandID    string // The accepted demand
	RequesterID string // Who submitted it
}

// NewDemandUnderstoodEvent creates a DemandUnderstoodEvent.
func NewDemandUnderstoodEvent(negotiationID, demandID, requesterID string) DemandUnderstoodEvent {
	return DemandUnderstoodEvent{
		baseEvent:   newBaseEvent("demand.understood", negotiationID),
		DemandID:    demandID,
		RequesterID: requesterID,
	}
}

// FilterCompletedEvent is emitted when candidate selection finishes.
type FilterCompletedEvent struct {
	baseEvent
	CandidateIDs []string // Selected agent IDs, ranked
	UsedFallback bool     // Whether the random fallback path was taken
}

// NewFilterCompletedEvent creates a FilterCompletedEvent.
func NewFilterCompletedEvent(negotiationID string, candidateIDs []string, usedFallback bool) FilterCompletedEvent {
	return FilterCompletedEvent{
		baseEvent:    newBaseEvent("filter.completed", negotiationID),
		CandidateIDs: candidateIDs,
		UsedFallback: usedFallback,
	}
}

// -----------------------------------------------------------------------------
// Round Events
// -----------------------------------------------------------------------------

// RoundStartedEvent is emitted at the start of each negotiation round.
type RoundStartedEvent struct {
	baseEvent
	Round     int // 1-based round number
	MaxRounds int // The round cap for this session
}

// NewRoundStartedEvent creates a RoundStartedEvent.
func NewRoundStartedEvent(negotiationID string, round, maxRounds int) RoundStartedEvent {
	return RoundStartedEvent{
		baseEvent: newBaseEvent("negotiation.round_started", negotiationID),
		Round:     round,
		MaxRounds: maxRounds,
	}
}

// OfferSubmittedEvent is emitted when an agent's response to an invitation
// is recorded.
type OfferSubmittedEvent struct {
	baseEvent
	AgentID  string // Responding agent
	Decision string // participate, decline, or conditional
	Kind     string // offer or negotiate
}

// NewOfferSubmittedEvent creates an OfferSubmittedEvent.
func NewOfferSubmittedEvent(negotiationID, agentID, decision, kind string) OfferSubmittedEvent {
	return OfferSubmittedEvent{
		baseEvent: newBaseEvent("offer.submitted", negotiationID),
		AgentID:   agentID,
		Decision:  decision,
		Kind:      kind,
	}
}

// ProposalDistributedEvent is emitted when an aggregated proposal is sent
// to participants for feedback.
type ProposalDistributedEvent struct {
	baseEvent
	ProposalID string // The distributed proposal
	Round      int    // The round that produced it
}

// NewProposalDistributedEvent creates a ProposalDistributedEvent.
func NewProposalDistributedEvent(negotiationID, proposalID string, round int) ProposalDistributedEvent {
	return ProposalDistributedEvent{
		baseEvent:  newBaseEvent("proposal.distributed", negotiationID),
		ProposalID: proposalID,
		Round:      round,
	}
}

// FeedbackEvaluatedEvent is emitted after the threshold evaluator processes
// a round's feedback tally.
type FeedbackEvaluatedEvent struct {
	baseEvent
	AcceptRate float64 // accept / active participants
	Round      int     // The evaluated round
	Decision   string  // finalize, renegotiate, or fail
}

// NewFeedbackEvaluatedEvent creates a FeedbackEvaluatedEvent.
func NewFeedbackEvaluatedEvent(negotiationID string, acceptRate float64, round int, decision string) FeedbackEvaluatedEvent {
	return FeedbackEvaluatedEvent{
		baseEvent:  newBaseEvent("feedback.evaluated", negotiationID),
		AcceptRate: acceptRate,
		Round:      round,
		Decision:   decision,
	}
}

// -----------------------------------------------------------------------------
// Terminal Events
// -----------------------------------------------------------------------------

// ProposalFinalizedEvent is emitted when a session reaches full consensus.
type ProposalFinalizedEvent struct {
	baseEvent
	ProposalID string // The finalized proposal
	Round      int    // The round that reached consensus
}

// NewProposalFinalizedEvent creates a ProposalFinalizedEvent.
func NewProposalFinalizedEvent(negotiationID, proposalID string, round int) ProposalFinalizedEvent {
	return ProposalFinalizedEvent{
		baseEvent:  newBaseEvent("proposal.finalized", negotiationID),
		ProposalID: proposalID,
		Round:      round,
	}
}

// ForceFinalizedEvent is emitted when the round cap forces closure with
// partial consensus. It is a success variant, not a failure: the proposal
// stands, with non-accepting participants downgraded to optional.
type ForceFinalizedEvent struct {
	baseEvent
	ProposalID            string   // The forced proposal
	ConfirmedParticipants []string // Agents that accepted
	OptionalParticipants  []string // Remaining active agents
}

// NewForceFinalizedEvent creates a ForceFinalizedEvent.
func NewForceFinalizedEvent(negotiationID, proposalID string, confirmed, optional []string) ForceFinalizedEvent {
	return ForceFinalizedEvent{
		baseEvent:             newBaseEvent("negotiation.force_finalized", negotiationID),
		ProposalID:            proposalID,
		ConfirmedParticipants: confirmed,
		OptionalParticipants:  optional,
	}
}

// NegotiationFailedEvent is emitted when a session reaches the failed
// terminal state.
type NegotiationFailedEvent struct {
	baseEvent
	Reason string // Machine-readable failure reason
}

// NewNegotiationFailedEvent creates a NegotiationFailedEvent.
func NewNegotiationFailedEvent(negotiationID, reason string) NegotiationFailedEvent {
	return NegotiationFailedEvent{
		baseEvent: newBaseEvent("negotiation.failed", negotiationID),
		Reason:    reason,
	}
}

// -----------------------------------------------------------------------------
// Gap Recursion Events
// -----------------------------------------------------------------------------

// GapIdentifiedEvent is emitted for each capability gap found in a
// finalized proposal.
type GapIdentifiedEvent struct {
	baseEvent
	GapID      string // The gap
	Capability string // The unmet capability
	Importance int    // 0-100
}

// NewGapIdentifiedEvent creates a GapIdentifiedEvent.
func NewGapIdentifiedEvent(negotiationID, gapID, capability string, importance int) GapIdentifiedEvent {
	return GapIdentifiedEvent{
		baseEvent:  newBaseEvent("gap.identified", negotiationID),
		GapID:      gapID,
		Capability: capability,
		Importance: importance,
	}
}

// SubnetTriggeredEvent is emitted when a child negotiation is spawned to
// resolve a gap in a finalized proposal.
type SubnetTriggeredEvent struct {
	baseEvent
	ParentID string // The finalized parent session
	ChildID  string // The spawned child session
	GapID    string // The gap the child addresses
}

// NewSubnetTriggeredEvent creates a SubnetTriggeredEvent.
// The event is attributed to the parent session.
func NewSubnetTriggeredEvent(parentID, childID, gapID string) SubnetTriggeredEvent {
	return SubnetTriggeredEvent{
		baseEvent: newBaseEvent("subnet.triggered", parentID),
		ParentID:  parentID,
		ChildID:   childID,
		GapID:     gapID,
	}
}
