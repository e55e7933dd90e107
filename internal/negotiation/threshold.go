package negotiation

import "github.com/concord-hq/concord/internal/model"

// Decision is the threshold evaluator's verdict for one round.
type Decision string

const (
	// DecisionFinalize closes the session on sufficient acceptance.
	DecisionFinalize Decision = "finalize"

	// DecisionRenegotiate starts another round.
	DecisionRenegotiate Decision = "renegotiate"

	// DecisionForceFinalize closes the session at the round cap with a
	// confirmed/optional participant split.
	DecisionForceFinalize Decision = "force_finalize"

	// DecisionFail terminates the session.
	DecisionFail Decision = "fail"
)

// Machine-readable failure reasons carried on terminal sessions.
const (
	ReasonNoParticipants = "no_participants"
	ReasonLowAcceptance  = "low_acceptance"
	ReasonMaxRecovery    = "max_recovery_attempts"
	ReasonMaxRounds      = "max_rounds_reached"
	ReasonCancelled      = "cancelled"
)

// Outcome is one round's threshold evaluation.
type Outcome struct {
	Decision   Decision
	Reason     string  // set for Fail and ForceFinalize
	AcceptRate float64 // accept/active, 0 when no one is active
}

// Evaluate applies the acceptance thresholds to a round's tally.
//
// active = expected − withdrawn. Rate comparisons are done in integer
// arithmetic so the boundaries are exact: accept/active ≥ 4/5 finalizes
// and accept/active = 1/2 renegotiates rather than failing. Renegotiation
// at or past the round cap becomes a forced finalization instead.
func Evaluate(tally model.Tally, round, maxRounds int) Outcome {
	active := tally.Active()
	if active <= 0 {
		return Outcome{Decision: DecisionFail, Reason: ReasonNoParticipants}
	}

	rate := tally.AcceptRate()
	switch {
	case 5*tally.Accept >= 4*active:
		return Outcome{Decision: DecisionFinalize, AcceptRate: rate}
	case 2*tally.Accept < active:
		return Outcome{Decision: DecisionFail, Reason: ReasonLowAcceptance, AcceptRate: rate}
	case round >= maxRounds:
		return Outcome{Decision: DecisionForceFinalize, Reason: ReasonMaxRounds, AcceptRate: rate}
	default:
		return Outcome{Decision: DecisionRenegotiate, AcceptRate: rate}
	}
}

// partition splits the round's active participants into confirmed
// acceptors and optional others for a forced finalization. Withdrawn
// agents appear in neither list.
func partition(participants []string, feedbacks []model.Feedback) (confirmed, optional []string) {
	byAgent := make(map[string]model.FeedbackType, len(feedbacks))
	for _, fb := range feedbacks {
		byAgent[fb.AgentID] = fb.Type
	}
	for _, id := range participants {
		switch byAgent[id] {
		case model.FeedbackAccept:
			confirmed = append(confirmed, id)
		case model.FeedbackWithdraw:
			// dropped
		default:
			optional = append(optional, id)
		}
	}
	return confirmed, optional
}
