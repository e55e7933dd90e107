package negotiation

import (
	"testing"

	"github.com/concord-hq/concord/internal/model"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name       string
		tally      model.Tally
		round      int
		maxRounds  int
		want       Decision
		wantReason string
	}{
		{
			name:  "unanimous acceptance finalizes",
			tally: model.Tally{Expected: 5, Accept: 5},
			round: 1, maxRounds: 5,
			want: DecisionFinalize,
		},
		{
			name:  "exactly 0.8 finalizes",
			tally: model.Tally{Expected: 5, Accept: 4, Negotiate: 1},
			round: 1, maxRounds: 5,
			want: DecisionFinalize,
		},
		{
			name:  "just under 0.8 renegotiates",
			tally: model.Tally{Expected: 5, Accept: 3, Negotiate: 2},
			round: 1, maxRounds: 5,
			want: DecisionRenegotiate,
		},
		{
			name:  "exactly 0.5 renegotiates not fails",
			tally: model.Tally{Expected: 4, Accept: 2, Negotiate: 2},
			round: 1, maxRounds: 5,
			want: DecisionRenegotiate,
		},
		{
			name:  "just under 0.5 fails",
			tally: model.Tally{Expected: 5, Accept: 2, Reject: 3},
			round: 1, maxRounds: 5,
			want: DecisionFail, wantReason: ReasonLowAcceptance,
		},
		{
			name:  "low acceptance fails even at the round cap",
			tally: model.Tally{Expected: 5, Accept: 1, Reject: 4},
			round: 5, maxRounds: 5,
			want: DecisionFail, wantReason: ReasonLowAcceptance,
		},
		{
			name:  "middling rate at the round cap force finalizes",
			tally: model.Tally{Expected: 5, Accept: 3, Negotiate: 2},
			round: 5, maxRounds: 5,
			want: DecisionForceFinalize, wantReason: ReasonMaxRounds,
		},
		{
			name:  "withdrawals shrink the active base",
			tally: model.Tally{Expected: 5, Accept: 4, Withdraw: 1},
			round: 1, maxRounds: 5,
			want: DecisionFinalize, // 4/4, not 4/5
		},
		{
			name:  "everyone withdrawn fails with no participants",
			tally: model.Tally{Expected: 3, Withdraw: 3},
			round: 1, maxRounds: 5,
			want: DecisionFail, wantReason: ReasonNoParticipants,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.tally, tt.round, tt.maxRounds)
			if got.Decision != tt.want {
				t.Errorf("Evaluate() decision = %q, want %q", got.Decision, tt.want)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("Evaluate() reason = %q, want %q", got.Reason, tt.wantReason)
			}
		})
	}
}

func TestEvaluate_BoundaryExactness(t *testing.T) {
	// 4/5 is exactly 0.8 and must finalize; 799/1000 must not.
	if got := Evaluate(model.Tally{Expected: 1000, Accept: 800, Negotiate: 200}, 1, 5); got.Decision != DecisionFinalize {
		t.Errorf("800/1000: decision = %q, want finalize", got.Decision)
	}
	if got := Evaluate(model.Tally{Expected: 1000, Accept: 799, Negotiate: 201}, 1, 5); got.Decision != DecisionRenegotiate {
		t.Errorf("799/1000: decision = %q, want renegotiate", got.Decision)
	}
	// 1/2 is exactly 0.5 and must renegotiate; 499/1000 must fail.
	if got := Evaluate(model.Tally{Expected: 1000, Accept: 500, Negotiate: 500}, 1, 5); got.Decision != DecisionRenegotiate {
		t.Errorf("500/1000: decision = %q, want renegotiate", got.Decision)
	}
	if got := Evaluate(model.Tally{Expected: 1000, Accept: 499, Reject: 501}, 1, 5); got.Decision != DecisionFail {
		t.Errorf("499/1000: decision = %q, want fail", got.Decision)
	}
}

func TestPartition(t *testing.T) {
	participants := []string{"a1", "a2", "a3", "a4", "a5"}
	feedbacks := []model.Feedback{
		{AgentID: "a1", Type: model.FeedbackAccept},
		{AgentID: "a2", Type: model.FeedbackAccept},
		{AgentID: "a3", Type: model.FeedbackNegotiate},
		{AgentID: "a4", Type: model.FeedbackWithdraw},
		// a5 never answered
	}

	confirmed, optional := partition(participants, feedbacks)
	if len(confirmed) != 2 {
		t.Errorf("confirmed = %v, want the 2 acceptors", confirmed)
	}
	wantOptional := []string{"a3", "a5"}
	if len(optional) != len(wantOptional) {
		t.Fatalf("optional = %v, want %v", optional, wantOptional)
	}
	for i, id := range wantOptional {
		if optional[i] != id {
			t.Errorf("optional[%d] = %s, want %s", i, optional[i], id)
		}
	}
	for _, id := range append(confirmed, optional...) {
		if id == "a4" {
			t.Error("withdrawn agent appears in the split")
		}
	}
}
