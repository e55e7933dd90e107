// Package negotiation implements the round-bounded negotiation core: a
// per-session state machine driven by a single coordinator goroutine,
// threshold-based round decisions, and the session manager and registry
// that transports and background components consume.
package negotiation

import (
	"sync"
	"time"

	"github.com/concord-hq/concord/internal/model"
)

// Session is the mutable aggregate for one negotiation. The owning
// coordinator goroutine is the only writer; the mutex exists so Snapshot
// and the gap annotator can read and patch concurrently.
type Session struct {
	mu sync.Mutex

	ID              string
	Demand          model.Demand
	Depth           int
	ParentSessionID string
	ParentGapID     string

	Status     Status
	FailReason string
	Round      int
	MaxRounds  int

	Candidates   []model.Candidate
	UsedFallback bool

	// One response and one feedback per (agent, round); first write wins.
	Responses map[int][]model.Response
	Feedbacks map[int][]model.Feedback

	// Proposal history, one version per round, append-only.
	Proposals []model.Proposal

	seenMessages map[string]bool

	RecoveryAttempts int

	CreatedAt     time.Time
	LastUpdatedAt time.Time
}

func newSession(id string, demand model.Demand, maxRounds int) *Session {
	now := time.Now()
	return &Session{
		ID:            id,
		Demand:        demand,
		Status:        StatusCreated,
		MaxRounds:     maxRounds,
		Responses:     make(map[int][]model.Response),
		Feedbacks:     make(map[int][]model.Feedback),
		seenMessages:  make(map[string]bool),
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
}

// Snapshot is a point-in-time read-only view of a session.
type Snapshot struct {
	ID               string           `json:"id"`
	DemandID         string           `json:"demand_id"`
	Demand           model.Demand     `json:"demand"`
	Depth            int              `json:"depth"`
	ParentSessionID  string           `json:"parent_session_id,omitempty"`
	ParentGapID      string           `json:"parent_gap_id,omitempty"`
	Status           Status           `json:"status"`
	FailReason       string           `json:"fail_reason,omitempty"`
	Round            int              `json:"round"`
	MaxRounds        int              `json:"max_rounds"`
	CandidateIDs     []string         `json:"candidate_ids,omitempty"`
	UsedFallback     bool             `json:"used_fallback"`
	RoundResponses   int              `json:"round_responses"`
	RoundFeedbacks   int              `json:"round_feedbacks"`
	Proposals        []model.Proposal `json:"proposals,omitempty"`
	RecoveryAttempts int              `json:"recovery_attempts"`
	CreatedAt        time.Time        `json:"created_at"`
	LastUpdatedAt    time.Time        `json:"last_updated_at"`
}

// Snapshot copies the session's observable state under the lock.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.Candidates))
	for _, c := range s.Candidates {
		ids = append(ids, c.AgentID)
	}
	proposals := make([]model.Proposal, len(s.Proposals))
	copy(proposals, s.Proposals)

	return Snapshot{
		ID:               s.ID,
		DemandID:         s.Demand.ID,
		Demand:           s.Demand,
		Depth:            s.Depth,
		ParentSessionID:  s.ParentSessionID,
		ParentGapID:      s.ParentGapID,
		Status:           s.Status,
		FailReason:       s.FailReason,
		Round:            s.Round,
		MaxRounds:        s.MaxRounds,
		CandidateIDs:     ids,
		UsedFallback:     s.UsedFallback,
		RoundResponses:   len(s.Responses[s.Round]),
		RoundFeedbacks:   len(s.Feedbacks[s.Round]),
		Proposals:        proposals,
		RecoveryAttempts: s.RecoveryAttempts,
		CreatedAt:        s.CreatedAt,
		LastUpdatedAt:    s.LastUpdatedAt,
	}
}

// LatestProposal returns the newest proposal version, if any.
func (sn Snapshot) LatestProposal() (model.Proposal, bool) {
	if len(sn.Proposals) == 0 {
		return model.Proposal{}, false
	}
	return sn.Proposals[len(sn.Proposals)-1], true
}

// setStatus performs a table-checked transition under the lock.
func (s *Session) setStatus(to Status) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !CanTransition(s.Status, to) {
		return false
	}
	s.Status = to
	s.LastUpdatedAt = time.Now()
	return true
}

// touch bumps LastUpdatedAt without a status change.
func (s *Session) touch() {
	s.mu.Lock()
	s.LastUpdatedAt = time.Now()
	s.mu.Unlock()
}

// recordResponse stores a response if it is not a duplicate. Returns
// true when the response was recorded.
func (s *Session) recordResponse(r model.Response) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seenMessages[r.MessageID] {
		return false
	}
	for _, existing := range s.Responses[r.Round] {
		if existing.AgentID == r.AgentID {
			return false
		}
	}
	s.seenMessages[r.MessageID] = true
	s.Responses[r.Round] = append(s.Responses[r.Round], r)
	s.LastUpdatedAt = time.Now()
	return true
}

// recordFeedback stores feedback if it is not a duplicate.
func (s *Session) recordFeedback(fb model.Feedback) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seenMessages[fb.MessageID] {
		return false
	}
	for _, existing := range s.Feedbacks[fb.Round] {
		if existing.AgentID == fb.AgentID {
			return false
		}
	}
	s.seenMessages[fb.MessageID] = true
	s.Feedbacks[fb.Round] = append(s.Feedbacks[fb.Round], fb)
	s.LastUpdatedAt = time.Now()
	return true
}

// appendProposal stores the round's proposal version unless one already
// exists for that version. Recovery relies on this being idempotent.
func (s *Session) appendProposal(p model.Proposal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.Proposals {
		if existing.Version == p.Version {
			return false
		}
	}
	s.Proposals = append(s.Proposals, p)
	s.LastUpdatedAt = time.Now()
	return true
}

// proposalForRound returns the stored proposal version for a round.
func (s *Session) proposalForRound(round int) (model.Proposal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.Proposals {
		if p.Version == round {
			return p, true
		}
	}
	return model.Proposal{}, false
}

// annotateGap patches the resolution of a gap on the latest proposal.
func (s *Session) annotateGap(gapID string, res model.GapResolution) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.Proposals) - 1; i >= 0; i-- {
		for j := range s.Proposals[i].Gaps {
			if s.Proposals[i].Gaps[j].ID == gapID {
				s.Proposals[i].Gaps[j].Resolution = res
				return true
			}
		}
	}
	return false
}
