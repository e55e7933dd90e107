package negotiation

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusCreated, StatusBroadcasting, true},
		{StatusBroadcasting, StatusCollecting, true},
		{StatusCollecting, StatusAggregating, true},
		{StatusAggregating, StatusProposalSent, true},
		{StatusProposalSent, StatusNegotiating, true},
		{StatusNegotiating, StatusCollecting, true}, // renegotiation loop
		{StatusNegotiating, StatusFinalized, true},
		{StatusNegotiating, StatusForceFinalized, true},
		{StatusCreated, StatusFailed, true},
		{StatusNegotiating, StatusFailed, true},

		{StatusCreated, StatusCollecting, false},
		{StatusCollecting, StatusBroadcasting, false},
		{StatusCollecting, StatusFinalized, false},
		{StatusFinalized, StatusCollecting, false},
		{StatusFinalized, StatusFailed, false},
		{StatusForceFinalized, StatusNegotiating, false},
		{StatusFailed, StatusCreated, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	all := []Status{
		StatusCreated, StatusBroadcasting, StatusCollecting, StatusAggregating,
		StatusProposalSent, StatusNegotiating, StatusFinalized,
		StatusForceFinalized, StatusFailed,
	}
	for _, terminal := range []Status{StatusFinalized, StatusForceFinalized, StatusFailed} {
		if !terminal.IsTerminal() {
			t.Errorf("%s.IsTerminal() = false, want true", terminal)
		}
		for _, to := range all {
			if CanTransition(terminal, to) {
				t.Errorf("terminal state %s has an exit to %s", terminal, to)
			}
		}
	}
}

func TestSession_SetStatusRejectsIllegal(t *testing.T) {
	s := newSession("s1", testDemand(), 5)

	if s.setStatus(StatusNegotiating) {
		t.Error("created → negotiating accepted, want rejection")
	}
	if s.Status != StatusCreated {
		t.Errorf("status mutated to %s by a rejected transition", s.Status)
	}
	if !s.setStatus(StatusBroadcasting) {
		t.Error("created → broadcasting rejected, want acceptance")
	}
}
