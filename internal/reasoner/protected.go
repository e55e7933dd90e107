package reasoner

import (
	"context"

	"github.com/concord-hq/concord/internal/agent"
	"github.com/concord-hq/concord/internal/breaker"
	"github.com/concord-hq/concord/internal/logging"
	"github.com/concord-hq/concord/internal/model"
)

// Operation names recorded on breaker rejections.
const (
	OpFilter           = "filter"
	OpGenerateOffer    = "generate_offer"
	OpAggregate        = "aggregate"
	OpEvaluateProposal = "evaluate_proposal"
	OpIdentifyGaps     = "identify_gaps"
	OpRecursionSignals = "recursion_signals"
)

// Protected wraps a Reasoner with a circuit breaker and substitutes
// deterministic fallbacks when the inner reasoner fails or the breaker
// rejects the call. Every method returns a nil error: a reasoner outage
// degrades answers without aborting the negotiation that asked.
type Protected struct {
	inner Reasoner
	cb    *breaker.Breaker
	log   *logging.Logger
}

// NewProtected wraps inner with the given breaker.
func NewProtected(inner Reasoner, cb *breaker.Breaker, log *logging.Logger) *Protected {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Protected{inner: inner, cb: cb, log: log.WithComponent("reasoner")}
}

func (p *Protected) Filter(ctx context.Context, demand model.Demand, pool []agent.Profile) ([]ScoredAgent, error) {
	var scored []ScoredAgent
	err := p.cb.Call(ctx, OpFilter, func(ctx context.Context) error {
		var callErr error
		scored, callErr = p.inner.Filter(ctx, demand, pool)
		return callErr
	})
	if err != nil {
		p.degraded(OpFilter, err)
		return FallbackFilter(pool), nil
	}
	return scored, nil
}

func (p *Protected) GenerateOffer(ctx context.Context, demand model.Demand, profile agent.Profile) (model.Response, error) {
	var resp model.Response
	err := p.cb.Call(ctx, OpGenerateOffer, func(ctx context.Context) error {
		var callErr error
		resp, callErr = p.inner.GenerateOffer(ctx, demand, profile)
		return callErr
	})
	if err != nil {
		p.degraded(OpGenerateOffer, err)
		return FallbackOffer(profile), nil
	}
	return resp, nil
}

func (p *Protected) Aggregate(ctx context.Context, demand model.Demand, responses []model.Response) (model.Proposal, error) {
	var prop model.Proposal
	err := p.cb.Call(ctx, OpAggregate, func(ctx context.Context) error {
		var callErr error
		prop, callErr = p.inner.Aggregate(ctx, demand, responses)
		return callErr
	})
	if err != nil {
		p.degraded(OpAggregate, err)
		return FallbackProposal(responses), nil
	}
	return prop, nil
}

func (p *Protected) EvaluateProposal(ctx context.Context, proposal model.Proposal, profile agent.Profile) (model.Feedback, error) {
	var fb model.Feedback
	err := p.cb.Call(ctx, OpEvaluateProposal, func(ctx context.Context) error {
		var callErr error
		fb, callErr = p.inner.EvaluateProposal(ctx, proposal, profile)
		return callErr
	})
	if err != nil {
		p.degraded(OpEvaluateProposal, err)
		return FallbackFeedback(proposal.Version, profile), nil
	}
	return fb, nil
}

func (p *Protected) IdentifyGaps(ctx context.Context, demand model.Demand, proposal model.Proposal, feedbacks []model.Feedback) ([]model.Gap, error) {
	var gaps []model.Gap
	err := p.cb.Call(ctx, OpIdentifyGaps, func(ctx context.Context) error {
		var callErr error
		gaps, callErr = p.inner.IdentifyGaps(ctx, demand, proposal, feedbacks)
		return callErr
	})
	if err != nil {
		p.degraded(OpIdentifyGaps, err)
		return FallbackGaps(), nil
	}
	return gaps, nil
}

func (p *Protected) RecursionSignals(ctx context.Context, demand model.Demand, gap model.Gap) (Signals, error) {
	var sig Signals
	err := p.cb.Call(ctx, OpRecursionSignals, func(ctx context.Context) error {
		var callErr error
		sig, callErr = p.inner.RecursionSignals(ctx, demand, gap)
		return callErr
	})
	if err != nil {
		p.degraded(OpRecursionSignals, err)
		return FallbackSignals(), nil
	}
	return sig, nil
}

func (p *Protected) degraded(op string, err error) {
	p.log.Warn("reasoner degraded, using fallback", "operation", op, "error", err)
}

var _ Reasoner = (*Protected)(nil)
