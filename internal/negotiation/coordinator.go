package negotiation

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/concord-hq/concord/internal/agent"
	"github.com/concord-hq/concord/internal/config"
	"github.com/concord-hq/concord/internal/errors"
	"github.com/concord-hq/concord/internal/event"
	"github.com/concord-hq/concord/internal/logging"
	"github.com/concord-hq/concord/internal/model"
	"github.com/concord-hq/concord/internal/reasoner"
	"github.com/concord-hq/concord/internal/selector"
)

// inboxMsg is a message for a session's coordinator goroutine.
type inboxMsg interface{ isInboxMsg() }

type msgResponse struct{ resp model.Response }
type msgFeedback struct{ fb model.Feedback }
type msgCancel struct{}
type msgRecover struct{ anomaly string }

func (msgResponse) isInboxMsg() {}
func (msgFeedback) isInboxMsg() {}
func (msgCancel) isInboxMsg()   {}
func (msgRecover) isInboxMsg()  {}

// barrierResult describes how a collection barrier ended.
type barrierResult int

const (
	// barrierComplete: every expected participant was heard from.
	barrierComplete barrierResult = iota
	// barrierPartial: timeout or recovery ended the wait; partials kept.
	barrierPartial
	// barrierCancelled: the session was cancelled mid-wait.
	barrierCancelled
	// barrierAborted: recovery attempts exhausted.
	barrierAborted
)

// Coordinator drives one session through its rounds. A single goroutine
// owns all session mutation; everyone else talks to it through the
// inbox channel.
type Coordinator struct {
	session     *Session
	pool        *agent.Pool
	selector    *selector.Selector
	rsn         reasoner.Reasoner
	bus         *event.Bus
	cfg         config.NegotiationConfig
	maxRecovery int
	log         *logging.Logger

	inbox   chan inboxMsg
	started atomic.Bool
	done    chan struct{}

	onTerminal func(*Session)
}

func newCoordinator(
	session *Session,
	pool *agent.Pool,
	sel *selector.Selector,
	rsn reasoner.Reasoner,
	bus *event.Bus,
	cfg config.NegotiationConfig,
	maxRecovery int,
	log *logging.Logger,
	onTerminal func(*Session),
) *Coordinator {
	buffer := cfg.InboxBuffer
	if buffer < 1 {
		buffer = 64
	}
	return &Coordinator{
		session:     session,
		pool:        pool,
		selector:    sel,
		rsn:         rsn,
		bus:         bus,
		cfg:         cfg,
		maxRecovery: maxRecovery,
		log:         log.WithComponent("coordinator").WithSession(session.ID),
		inbox:       make(chan inboxMsg, buffer),
		done:        make(chan struct{}),
		onTerminal:  onTerminal,
	}
}

// Start launches the coordinator goroutine. Only the first call wins;
// a second call reports false so at-least-once confirmation can never
// put two writers on the same session.
func (c *Coordinator) Start(ctx context.Context) bool {
	if !c.started.CompareAndSwap(false, true) {
		return false
	}
	go c.run(ctx)
	return true
}

// failUnstarted terminates a session whose goroutine never launched.
// Claiming the start slot first guarantees run cannot begin afterwards,
// which makes closing done here safe.
func (c *Coordinator) failUnstarted(reason string) bool {
	if !c.started.CompareAndSwap(false, true) {
		return false
	}
	c.fail(reason)
	close(c.done)
	return true
}

// Done closes when the session reaches a terminal state.
func (c *Coordinator) Done() <-chan struct{} { return c.done }

// Deliver enqueues a message for the coordinator goroutine. Returns
// ErrSessionTerminal once the session has finished.
func (c *Coordinator) Deliver(m inboxMsg) error {
	select {
	case <-c.done:
		return errSessionTerminal(c.session.ID)
	default:
	}
	select {
	case c.inbox <- m:
		return nil
	case <-c.done:
		return errSessionTerminal(c.session.ID)
	}
}

func (c *Coordinator) run(ctx context.Context) {
	defer close(c.done)
	s := c.session

	candidates, usedFallback, err := c.selector.Select(ctx, s.Demand, c.pool)
	if err != nil {
		c.log.Error("candidate selection failed",
			"severity", errors.SeverityOf(err).String(), "error", err)
		c.fail(ReasonNoParticipants)
		return
	}
	if len(candidates) == 0 {
		c.fail(ReasonNoParticipants)
		return
	}

	s.mu.Lock()
	s.Candidates = candidates
	s.UsedFallback = usedFallback
	s.LastUpdatedAt = time.Now()
	s.mu.Unlock()

	ids := make([]string, 0, len(candidates))
	for _, cand := range candidates {
		ids = append(ids, cand.AgentID)
	}
	c.bus.Publish(event.NewFilterCompletedEvent(s.ID, ids, usedFallback))
	c.transition(StatusBroadcasting)

	for round := 1; ; round++ {
		s.mu.Lock()
		s.Round = round
		s.LastUpdatedAt = time.Now()
		s.mu.Unlock()
		c.bus.Publish(event.NewRoundStartedEvent(s.ID, round, s.MaxRounds))

		c.broadcastOffers(ctx, round, candidates)
		c.transition(StatusCollecting)

		expected := make(map[string]bool, len(candidates))
		for _, cand := range candidates {
			expected[cand.AgentID] = true
		}
		switch c.collect(ctx, round, expected, c.cfg.CollectTimeout(), true) {
		case barrierCancelled:
			c.fail(ReasonCancelled)
			return
		case barrierAborted:
			c.fail(ReasonMaxRecovery)
			return
		}

		responses := c.responsesFor(round)
		c.transition(StatusAggregating)

		// Recovery idempotence: an existing proposal version is reused,
		// never recreated.
		proposal, exists := s.proposalForRound(round)
		if !exists {
			proposal, err = c.rsn.Aggregate(ctx, s.Demand, responses)
			if err != nil {
				c.log.Warn("aggregation failed, using fallback proposal", "error", err)
				proposal = reasoner.FallbackProposal(responses)
			}
			proposal.Version = round
			if proposal.ID == "" {
				proposal.ID = uuid.NewString()
			}
			s.appendProposal(proposal)
		}

		c.transition(StatusProposalSent)
		c.bus.Publish(event.NewProposalDistributedEvent(s.ID, proposal.ID, round))

		participants := participantsOf(responses)
		if len(participants) == 0 {
			c.fail(ReasonNoParticipants)
			return
		}

		c.transition(StatusNegotiating)
		c.requestFeedback(ctx, round, proposal, participants)

		expected = make(map[string]bool, len(participants))
		for _, id := range participants {
			expected[id] = true
		}
		switch c.collect(ctx, round, expected, c.cfg.FeedbackTimeout(), false) {
		case barrierCancelled:
			c.fail(ReasonCancelled)
			return
		case barrierAborted:
			c.fail(ReasonMaxRecovery)
			return
		}

		feedbacks := c.feedbacksFor(round)
		tally := model.TallyOf(len(participants), feedbacks)
		outcome := Evaluate(tally, round, s.MaxRounds)
		c.bus.Publish(event.NewFeedbackEvaluatedEvent(s.ID, outcome.AcceptRate, round, string(outcome.Decision)))
		c.log.Info("round evaluated",
			"round", round,
			"accept_rate", outcome.AcceptRate,
			"decision", outcome.Decision)

		switch outcome.Decision {
		case DecisionFinalize:
			c.finalize(ctx, proposal, round, feedbacks)
			return
		case DecisionForceFinalize:
			c.forceFinalize(proposal, participants, feedbacks)
			return
		case DecisionFail:
			c.fail(outcome.Reason)
			return
		case DecisionRenegotiate:
			// Next iteration transitions Negotiating → Collecting.
		}
	}
}

// broadcastOffers fans out one offer task per candidate. Each task runs
// under its own timeout; a timed-out or failed agent is recorded as
// non-responsive and never holds up the barrier.
func (c *Coordinator) broadcastOffers(ctx context.Context, round int, candidates []model.Candidate) {
	g, gctx := errgroup.WithContext(ctx)
	for _, cand := range candidates {
		profile, ok := c.pool.Get(cand.AgentID)
		if !ok {
			c.log.Warn("candidate missing from pool", "agent_id", cand.AgentID)
			continue
		}
		g.Go(func() error {
			actx, cancel := context.WithTimeout(gctx, c.cfg.AgentTimeout())
			defer cancel()
			resp, err := c.rsn.GenerateOffer(actx, c.session.Demand, profile)
			if err != nil {
				c.log.Warn("agent non-responsive for offer",
					"agent_id", profile.ID, "round", round,
					"error", agentCallError("offer", profile.ID, err))
				return nil
			}
			resp.Round = round
			_ = c.Deliver(msgResponse{resp: resp})
			return nil
		})
	}
	go func() { _ = g.Wait() }()
}

// requestFeedback fans out one evaluation task per active participant.
func (c *Coordinator) requestFeedback(ctx context.Context, round int, proposal model.Proposal, participants []string) {
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range participants {
		profile, ok := c.pool.Get(id)
		if !ok {
			continue
		}
		g.Go(func() error {
			actx, cancel := context.WithTimeout(gctx, c.cfg.AgentTimeout())
			defer cancel()
			fb, err := c.rsn.EvaluateProposal(actx, proposal, profile)
			if err != nil {
				c.log.Warn("agent non-responsive for feedback",
					"agent_id", profile.ID, "round", round,
					"error", agentCallError("feedback", profile.ID, err))
				return nil
			}
			fb.Round = round
			_ = c.Deliver(msgFeedback{fb: fb})
			return nil
		})
	}
	go func() { _ = g.Wait() }()
}

// collect drains the inbox until every expected participant has been
// heard from, the timeout fires, or a control message ends the wait.
// Duplicates (same MessageID, or a second message for the same agent
// and round) are ignored silently.
func (c *Coordinator) collect(ctx context.Context, round int, expected map[string]bool, timeout time.Duration, wantResponses bool) barrierResult {
	s := c.session
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	heard := make(map[string]bool, len(expected))
	for len(heard) < len(expected) {
		select {
		case <-ctx.Done():
			return barrierCancelled
		case <-timer.C:
			c.log.Warn("collection barrier timed out",
				"round", round, "heard", len(heard), "expected", len(expected))
			return barrierPartial
		case m := <-c.inbox:
			switch m := m.(type) {
			case msgResponse:
				if !wantResponses || m.resp.Round != round || !expected[m.resp.AgentID] {
					continue
				}
				if !s.recordResponse(m.resp) {
					continue
				}
				heard[m.resp.AgentID] = true
				c.bus.Publish(event.NewOfferSubmittedEvent(
					s.ID, m.resp.AgentID, string(m.resp.Decision), string(m.resp.Kind)))
			case msgFeedback:
				if wantResponses || m.fb.Round != round || !expected[m.fb.AgentID] {
					continue
				}
				if !s.recordFeedback(m.fb) {
					continue
				}
				heard[m.fb.AgentID] = true
			case msgCancel:
				return barrierCancelled
			case msgRecover:
				if res := c.recover(m.anomaly); res != barrierComplete {
					return res
				}
			}
		}
	}
	return barrierComplete
}

// recover handles one recovery request. The attempt counter is bounded;
// within the bound the current barrier is released with whatever has
// been collected so the session recomputes from current state.
func (c *Coordinator) recover(anomaly string) barrierResult {
	s := c.session
	s.mu.Lock()
	s.RecoveryAttempts++
	attempts := s.RecoveryAttempts
	s.LastUpdatedAt = time.Now()
	s.mu.Unlock()

	if attempts >= c.maxRecovery {
		c.log.Error("recovery attempts exhausted",
			"anomaly", anomaly, "attempts", attempts)
		return barrierAborted
	}
	c.log.Warn("recovering session",
		"anomaly", anomaly, "attempt", attempts)
	return barrierPartial
}

func (c *Coordinator) finalize(ctx context.Context, proposal model.Proposal, round int, feedbacks []model.Feedback) {
	s := c.session

	gaps, err := c.rsn.IdentifyGaps(ctx, s.Demand, proposal, feedbacks)
	if err != nil {
		c.log.Warn("gap identification failed", "error", err)
		gaps = nil
	}
	if len(gaps) > 0 {
		s.mu.Lock()
		for i := range s.Proposals {
			if s.Proposals[i].Version == round {
				s.Proposals[i].Gaps = gaps
			}
		}
		s.mu.Unlock()
		for _, g := range gaps {
			c.bus.Publish(event.NewGapIdentifiedEvent(s.ID, g.ID, g.Capability, g.Importance))
		}
	}

	c.transition(StatusFinalized)
	c.bus.Publish(event.NewProposalFinalizedEvent(s.ID, proposal.ID, round))
	c.finish()
}

func (c *Coordinator) forceFinalize(proposal model.Proposal, participants []string, feedbacks []model.Feedback) {
	s := c.session
	confirmed, optional := partition(participants, feedbacks)

	s.mu.Lock()
	for i := range s.Proposals {
		if s.Proposals[i].Version == proposal.Version {
			s.Proposals[i].IsForced = true
			s.Proposals[i].ConfirmedParticipants = confirmed
			s.Proposals[i].OptionalParticipants = optional
		}
	}
	s.mu.Unlock()

	c.transition(StatusForceFinalized)
	c.bus.Publish(event.NewForceFinalizedEvent(s.ID, proposal.ID, confirmed, optional))
	c.finish()
}

func (c *Coordinator) fail(reason string) {
	s := c.session
	s.mu.Lock()
	if !s.Status.IsTerminal() {
		s.Status = StatusFailed
		s.FailReason = reason
		s.LastUpdatedAt = time.Now()
	}
	s.mu.Unlock()

	c.log.Info("session failed", "reason", reason)
	c.bus.Publish(event.NewNegotiationFailedEvent(s.ID, reason))
	c.finish()
}

// transition applies a table-checked status change. Illegal requests are
// logged and leave the state untouched.
func (c *Coordinator) transition(to Status) {
	if !c.session.setStatus(to) {
		c.log.Error("illegal status transition rejected",
			"from", c.session.Snapshot().Status, "to", to)
	}
}

func (c *Coordinator) finish() {
	if c.onTerminal != nil {
		c.onTerminal(c.session)
	}
}

func (c *Coordinator) responsesFor(round int) []model.Response {
	s := c.session
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Response, len(s.Responses[round]))
	copy(out, s.Responses[round])
	return out
}

func (c *Coordinator) feedbacksFor(round int) []model.Feedback {
	s := c.session
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Feedback, len(s.Feedbacks[round]))
	copy(out, s.Feedbacks[round])
	return out
}

// agentCallError types a deadline expiry so the log carries the
// operation and agent that timed out rather than a bare context error.
func agentCallError(op, agentID string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.NewTimeoutError(op + " from agent " + agentID)
	}
	return err
}

// participantsOf lists the agents that did not decline, in response order.
func participantsOf(responses []model.Response) []string {
	var out []string
	for _, r := range responses {
		if r.Decision != model.DecisionDecline {
			out = append(out, r.AgentID)
		}
	}
	return out
}
