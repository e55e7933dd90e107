package model

import "testing"

func TestTally_Active(t *testing.T) {
	tally := Tally{Expected: 5, Accept: 2, Withdraw: 2}
	if got := tally.Active(); got != 3 {
		t.Errorf("Active() = %d, want 3", got)
	}
}

func TestTally_AcceptRate(t *testing.T) {
	tests := []struct {
		name  string
		tally Tally
		want  float64
	}{
		{"four of five", Tally{Expected: 5, Accept: 4, Negotiate: 1}, 0.8},
		{"all withdrawn", Tally{Expected: 3, Withdraw: 3}, 0},
		{"half", Tally{Expected: 4, Accept: 2, Reject: 2}, 0.5},
		{"withdraw shrinks active", Tally{Expected: 5, Accept: 2, Withdraw: 1}, 0.5},
		{"empty", Tally{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tally.AcceptRate(); got != tt.want {
				t.Errorf("AcceptRate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTallyOf(t *testing.T) {
	feedbacks := []Feedback{
		{AgentID: "a", Type: FeedbackAccept},
		{AgentID: "b", Type: FeedbackAccept},
		{AgentID: "c", Type: FeedbackNegotiate},
		{AgentID: "d", Type: FeedbackReject},
		{AgentID: "e", Type: FeedbackWithdraw},
	}

	tally := TallyOf(5, feedbacks)

	if tally.Accept != 2 {
		t.Errorf("Accept = %d, want 2", tally.Accept)
	}
	if tally.Negotiate != 1 {
		t.Errorf("Negotiate = %d, want 1", tally.Negotiate)
	}
	if tally.Reject != 1 {
		t.Errorf("Reject = %d, want 1", tally.Reject)
	}
	if tally.Withdraw != 1 {
		t.Errorf("Withdraw = %d, want 1", tally.Withdraw)
	}
	if tally.Active() != 4 {
		t.Errorf("Active() = %d, want 4", tally.Active())
	}
}
