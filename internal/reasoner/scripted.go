package reasoner

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/concord-hq/concord/internal/agent"
	"github.com/concord-hq/concord/internal/model"
)

// Behavior scripts how one agent answers across a negotiation. The zero
// value participates immediately and accepts every proposal.
type Behavior struct {
	// DeclineInvite makes the agent decline the initial invitation.
	DeclineInvite bool

	// Conditions, when set, makes the offer conditional on them.
	Conditions []string

	// AcceptFromRound is the first round whose proposal the agent
	// accepts; earlier rounds get negotiate feedback. Zero means 1.
	AcceptFromRound int

	// RejectAlways makes every feedback a rejection.
	RejectAlways bool

	// WithdrawAtRound withdraws during that round's feedback.
	// Zero means never.
	WithdrawAtRound int

	// Contribution is the offer text. Defaults to a generated line.
	Contribution string

	// Confidence for offers. Zero means 0.8.
	Confidence float64
}

// Scripted is a deterministic Reasoner for tests and demos. It scores
// filter candidates by keyword overlap, generates offers and feedback
// from per-agent Behaviors, and reports preconfigured gaps and signals.
// Operations can be made to fail on demand to exercise the breaker path.
type Scripted struct {
	mu        sync.Mutex
	behaviors map[string]Behavior
	gaps      []model.Gap
	signals   map[string]Signals // keyed by gap capability
	failures  map[string]int     // operation -> remaining forced failures
}

// NewScripted returns an empty Scripted reasoner.
func NewScripted() *Scripted {
	return &Scripted{
		behaviors: make(map[string]Behavior),
		signals:   make(map[string]Signals),
		failures:  make(map[string]int),
	}
}

// SetBehavior scripts one agent's conduct.
func (s *Scripted) SetBehavior(agentID string, b Behavior) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.behaviors[agentID] = b
}

// SetGaps configures the gaps IdentifyGaps reports.
func (s *Scripted) SetGaps(gaps ...model.Gap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gaps = gaps
}

// SetSignals configures the recursion signals for a gap capability.
func (s *Scripted) SetSignals(capability string, sig Signals) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals[capability] = sig
}

// FailNext forces the next n calls to the named operation to fail.
func (s *Scripted) FailNext(operation string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[operation] = n
}

func (s *Scripted) maybeFail(operation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures[operation] > 0 {
		s.failures[operation]--
		return fmt.Errorf("scripted failure: %s", operation)
	}
	return nil
}

func (s *Scripted) behavior(agentID string) Behavior {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.behaviors[agentID]
}

func (s *Scripted) Filter(ctx context.Context, demand model.Demand, pool []agent.Profile) ([]ScoredAgent, error) {
	if err := s.maybeFail(OpFilter); err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(demand.Keywords)+len(demand.CapabilityTags))
	for _, kw := range demand.Keywords {
		wanted[strings.ToLower(kw)] = true
	}
	for _, tag := range demand.CapabilityTags {
		wanted[strings.ToLower(tag)] = true
	}

	scored := make([]ScoredAgent, 0, len(pool))
	for _, p := range pool {
		hits := 0
		terms := 0
		for _, kw := range append(append([]string{}, p.Keywords...), p.Capabilities...) {
			terms++
			if wanted[strings.ToLower(kw)] {
				hits++
			}
		}
		score := 0.0
		if terms > 0 {
			score = float64(hits) / float64(terms)
		}
		scored = append(scored, ScoredAgent{AgentID: p.ID, Score: score})
	}
	return scored, nil
}

func (s *Scripted) GenerateOffer(ctx context.Context, demand model.Demand, profile agent.Profile) (model.Response, error) {
	if err := s.maybeFail(OpGenerateOffer); err != nil {
		return model.Response{}, err
	}
	b := s.behavior(profile.ID)

	resp := model.Response{
		AgentID:     profile.ID,
		Decision:    model.DecisionParticipate,
		Kind:        model.KindOffer,
		Confidence:  b.Confidence,
		MessageID:   uuid.NewString(),
		SubmittedAt: time.Now(),
	}
	if resp.Confidence == 0 {
		resp.Confidence = 0.8
	}
	switch {
	case b.DeclineInvite:
		resp.Decision = model.DecisionDecline
		resp.Confidence = 0
	case len(b.Conditions) > 0:
		resp.Decision = model.DecisionConditional
		resp.Conditions = b.Conditions
	}
	if resp.Decision != model.DecisionDecline {
		resp.Contribution = b.Contribution
		if resp.Contribution == "" {
			resp.Contribution = fmt.Sprintf("%s covers %s", profile.Name, strings.Join(profile.Capabilities, ", "))
		}
	}
	return resp, nil
}

func (s *Scripted) Aggregate(ctx context.Context, demand model.Demand, responses []model.Response) (model.Proposal, error) {
	if err := s.maybeFail(OpAggregate); err != nil {
		return model.Proposal{}, err
	}
	assignments := make([]model.Assignment, 0, len(responses))
	var sum float64
	for _, r := range responses {
		if r.Decision == model.DecisionDecline {
			continue
		}
		assignments = append(assignments, model.Assignment{
			AgentID:        r.AgentID,
			Role:           "contributor",
			Responsibility: r.Contribution,
			IsConfirmed:    r.Decision == model.DecisionParticipate,
		})
		sum += r.Confidence
	}
	confidence := 0.0
	if len(assignments) > 0 {
		confidence = sum / float64(len(assignments))
	}

	s.mu.Lock()
	gaps := append([]model.Gap{}, s.gaps...)
	s.mu.Unlock()

	return model.Proposal{
		ID:          uuid.NewString(),
		Assignments: assignments,
		Gaps:        gaps,
		Confidence:  confidence,
	}, nil
}

func (s *Scripted) EvaluateProposal(ctx context.Context, proposal model.Proposal, profile agent.Profile) (model.Feedback, error) {
	if err := s.maybeFail(OpEvaluateProposal); err != nil {
		return model.Feedback{}, err
	}
	b := s.behavior(profile.ID)

	fb := model.Feedback{
		AgentID:     profile.ID,
		Round:       proposal.Version,
		MessageID:   uuid.NewString(),
		SubmittedAt: time.Now(),
	}
	acceptFrom := b.AcceptFromRound
	if acceptFrom == 0 {
		acceptFrom = 1
	}
	switch {
	case b.WithdrawAtRound != 0 && proposal.Version >= b.WithdrawAtRound:
		fb.Type = model.FeedbackWithdraw
	case b.RejectAlways:
		fb.Type = model.FeedbackReject
	case proposal.Version >= acceptFrom:
		fb.Type = model.FeedbackAccept
	default:
		fb.Type = model.FeedbackNegotiate
		fb.AdjustmentRequest = "refine assignments"
	}
	return fb, nil
}

func (s *Scripted) IdentifyGaps(ctx context.Context, demand model.Demand, proposal model.Proposal, feedbacks []model.Feedback) ([]model.Gap, error) {
	if err := s.maybeFail(OpIdentifyGaps); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Gap{}, s.gaps...), nil
}

func (s *Scripted) RecursionSignals(ctx context.Context, demand model.Demand, gap model.Gap) (Signals, error) {
	if err := s.maybeFail(OpRecursionSignals); err != nil {
		return Signals{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signals[gap.Capability], nil
}

var _ Reasoner = (*Scripted)(nil)
