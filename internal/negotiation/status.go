package negotiation

// Status is a session's lifecycle state.
type Status string

const (
	// StatusCreated is the initial state before the requester confirms.
	StatusCreated Status = "created"

	// StatusBroadcasting means invitations are going out to candidates.
	StatusBroadcasting Status = "broadcasting"

	// StatusCollecting means the session is waiting on responses.
	StatusCollecting Status = "collecting"

	// StatusAggregating means responses are being combined into a proposal.
	StatusAggregating Status = "aggregating"

	// StatusProposalSent means the proposal has been distributed.
	StatusProposalSent Status = "proposal_sent"

	// StatusNegotiating means the session is waiting on feedback.
	StatusNegotiating Status = "negotiating"

	// StatusFinalized is terminal success by acceptance threshold.
	StatusFinalized Status = "finalized"

	// StatusForceFinalized is terminal success imposed at the round cap.
	StatusForceFinalized Status = "force_finalized"

	// StatusFailed is terminal failure, with a machine-readable reason.
	StatusFailed Status = "failed"
)

// transitions is the static legality table. Terminal states have no
// outgoing edges; every non-terminal state may fail.
var transitions = map[Status][]Status{
	StatusCreated:      {StatusBroadcasting, StatusFailed},
	StatusBroadcasting: {StatusCollecting, StatusFailed},
	StatusCollecting:   {StatusAggregating, StatusFailed},
	StatusAggregating:  {StatusProposalSent, StatusFailed},
	StatusProposalSent: {StatusNegotiating, StatusFailed},
	StatusNegotiating:  {StatusCollecting, StatusFinalized, StatusForceFinalized, StatusFailed},
}

// CanTransition reports whether from → to is a legal edge.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status has no outgoing transitions.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFinalized, StatusForceFinalized, StatusFailed:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }
