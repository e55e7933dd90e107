// Package selector narrows the agent pool for a demand through a
// two-stage funnel: a coarse Bloom-filter keyword gate followed by
// similarity ranking, with a random fallback draw guaranteeing a
// non-empty result whenever the pool itself is non-empty.
package selector

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"github.com/concord-hq/concord/internal/agent"
	"github.com/concord-hq/concord/internal/config"
	"github.com/concord-hq/concord/internal/errors"
	"github.com/concord-hq/concord/internal/logging"
	"github.com/concord-hq/concord/internal/model"
	"github.com/concord-hq/concord/internal/reasoner"
)

// Selector runs the candidate funnel for one demand at a time.
// It is stateless between calls and safe for concurrent use.
type Selector struct {
	cfg     config.SelectorConfig
	scorer  reasoner.Reasoner
	log     *logging.Logger
	randInt func(n int) int // test seam for the fallback draw
}

// New builds a Selector. The scorer is normally a breaker-protected
// reasoner so a degraded scorer yields zero scores rather than errors.
func New(cfg config.SelectorConfig, scorer reasoner.Reasoner, log *logging.Logger) *Selector {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Selector{
		cfg:     cfg,
		scorer:  scorer,
		log:     log.WithComponent("selector"),
		randInt: rand.Intn,
	}
}

// Select funnels the pool down to at most max_candidates members.
//
// A non-empty pool always yields a non-empty result: when the gate and
// ranking leave nothing, fallback_count members are drawn uniformly at
// random and marked IsFallback. An empty pool returns an empty slice
// with usedFallback false; the caller treats that as no_participants.
func (s *Selector) Select(ctx context.Context, demand model.Demand, pool *agent.Pool) ([]model.Candidate, bool, error) {
	members := pool.All()
	if len(members) == 0 {
		return nil, false, nil
	}

	survivors := gate(demand, members, s.cfg.GateFalsePositiveRate)
	s.log.Debug("keyword gate applied",
		"pool_size", len(members),
		"survivors", len(survivors))

	if len(survivors) > 0 {
		scored, err := s.scorer.Filter(ctx, demand, survivors)
		if err != nil {
			return nil, false, errors.NewSelectorError("similarity ranking failed", err).
				WithDemandID(demand.ID).
				WithPoolSize(len(members))
		}
		candidates := rank(survivors, scored, s.cfg.MaxCandidates)
		if len(candidates) > 0 {
			return candidates, false, nil
		}
	}

	fallback := s.drawFallback(members)
	s.log.Info("no gated candidates, falling back to random draw",
		"demand_id", demand.ID,
		"drawn", len(fallback))
	return fallback, true, nil
}

// rank orders gate survivors by score descending, pool order on ties,
// and keeps the top k.
func rank(survivors []agent.Profile, scored []reasoner.ScoredAgent, k int) []model.Candidate {
	scores := make(map[string]float64, len(scored))
	for _, sa := range scored {
		scores[sa.AgentID] = sa.Score
	}

	candidates := make([]model.Candidate, 0, len(survivors))
	for _, p := range survivors {
		candidates = append(candidates, model.Candidate{
			AgentID:        p.ID,
			RelevanceScore: int(math.Round(scores[p.ID] * 100)),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].RelevanceScore > candidates[j].RelevanceScore
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

// drawFallback picks fallback_count distinct members uniformly at random.
func (s *Selector) drawFallback(members []agent.Profile) []model.Candidate {
	n := s.cfg.FallbackCount
	if n > len(members) {
		n = len(members)
	}
	if n < 1 {
		n = 1
	}

	idx := make([]int, len(members))
	for i := range idx {
		idx[i] = i
	}
	for i := len(idx) - 1; i > 0; i-- {
		j := s.randInt(i + 1)
		idx[i], idx[j] = idx[j], idx[i]
	}

	candidates := make([]model.Candidate, 0, n)
	for _, i := range idx[:n] {
		candidates = append(candidates, model.Candidate{
			AgentID:    members[i].ID,
			IsFallback: true,
		})
	}
	return candidates
}
