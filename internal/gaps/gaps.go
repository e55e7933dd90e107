// Package gaps watches finalized negotiations for important unmet
// capabilities and spawns one child negotiation to close the best
// candidate gap. Recursion is one level deep: children never spawn
// their own children, and a child's outcome only annotates the parent.
package gaps

import (
	"context"
	"fmt"
	"sort"

	"github.com/concord-hq/concord/internal/config"
	"github.com/concord-hq/concord/internal/event"
	"github.com/concord-hq/concord/internal/logging"
	"github.com/concord-hq/concord/internal/model"
	"github.com/concord-hq/concord/internal/negotiation"
	"github.com/concord-hq/concord/internal/reasoner"
)

// sessions is the slice of the session manager the gap manager needs.
type sessions interface {
	Get(sessionID string) (negotiation.Snapshot, error)
	SubmitChild(ctx context.Context, demand model.Demand, parentID, gapID string) (string, error)
	Confirm(sessionID string) error
	AnnotateGap(sessionID, gapID string, res model.GapResolution) error
}

// Manager subscribes to terminal session events and drives gap
// recursion decisions.
type Manager struct {
	mgr sessions
	rsn reasoner.Reasoner
	bus *event.Bus
	cfg config.GapsConfig
	log *logging.Logger

	ctx    context.Context
	subIDs []string
}

// New builds a gap manager. The reasoner should be breaker-protected:
// degraded recursion signals score zero and simply spawn nothing.
func New(mgr sessions, rsn reasoner.Reasoner, bus *event.Bus, cfg config.GapsConfig, log *logging.Logger) *Manager {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Manager{
		mgr: mgr,
		rsn: rsn,
		bus: bus,
		cfg: cfg,
		log: log.WithComponent("gaps"),
	}
}

// Start registers the bus subscriptions.
func (m *Manager) Start(ctx context.Context) {
	m.ctx = ctx
	m.subIDs = []string{
		m.bus.Subscribe("proposal.finalized", m.onFinalized),
		m.bus.Subscribe("negotiation.force_finalized", m.onChildTerminal),
		m.bus.Subscribe("negotiation.failed", m.onChildTerminal),
	}
}

// Stop removes the bus subscriptions.
func (m *Manager) Stop() {
	for _, id := range m.subIDs {
		m.bus.Unsubscribe(id)
	}
	m.subIDs = nil
}

func (m *Manager) onFinalized(e event.Event) {
	snap, err := m.mgr.Get(e.NegotiationID())
	if err != nil {
		m.log.Warn("finalized session not found", "session_id", e.NegotiationID())
		return
	}
	if snap.Depth > 0 {
		// A finalized child resolves its parent gap and stops there.
		m.annotateParent(snap, model.ResolutionResolved)
		return
	}
	m.maybeSpawn(snap)
}

// onChildTerminal marks the parent gap unresolved for failed children
// and resolved for force-finalized ones, which are a partial success.
func (m *Manager) onChildTerminal(e event.Event) {
	snap, err := m.mgr.Get(e.NegotiationID())
	if err != nil || snap.Depth == 0 {
		return
	}
	res := model.ResolutionUnresolved
	if snap.Status == negotiation.StatusForceFinalized {
		res = model.ResolutionResolved
	}
	m.annotateParent(snap, res)
}

func (m *Manager) annotateParent(child negotiation.Snapshot, res model.GapResolution) {
	if child.ParentSessionID == "" || child.ParentGapID == "" {
		return
	}
	if err := m.mgr.AnnotateGap(child.ParentSessionID, child.ParentGapID, res); err != nil {
		m.log.Warn("gap annotation failed",
			"parent_session_id", child.ParentSessionID,
			"gap_id", child.ParentGapID,
			"error", err)
		return
	}
	m.log.Info("parent gap annotated",
		"parent_session_id", child.ParentSessionID,
		"gap_id", child.ParentGapID,
		"resolution", res)
}

// maybeSpawn evaluates a finalized depth-0 session's gaps in importance
// order and spawns a child for the first one that clears the approval
// bar. At most one child per session.
func (m *Manager) maybeSpawn(snap negotiation.Snapshot) {
	proposal, ok := snap.LatestProposal()
	if !ok {
		return
	}
	for _, gap := range byImportance(proposal.Gaps) {
		if gap.Importance < m.cfg.ImportanceThreshold {
			continue
		}
		score := m.score(snap.Demand, gap)
		if score < m.cfg.ApprovalScore {
			m.log.Debug("gap below approval bar",
				"session_id", snap.ID, "gap_id", gap.ID, "score", score)
			continue
		}
		if m.spawn(snap, gap, score) {
			return
		}
	}
}

// score combines the three recursion signals with their configured
// weights.
func (m *Manager) score(demand model.Demand, gap model.Gap) float64 {
	sig, err := m.rsn.RecursionSignals(m.ctx, demand, gap)
	if err != nil {
		m.log.Warn("recursion signals unavailable", "gap_id", gap.ID, "error", err)
		return 0
	}
	return m.cfg.UpliftWeight*sig.Uplift +
		m.cfg.SupportWeight*sig.Support +
		m.cfg.CostBenefitWeight*sig.CostBenefit
}

func (m *Manager) spawn(parent negotiation.Snapshot, gap model.Gap, score float64) bool {
	childID, err := m.mgr.SubmitChild(m.ctx, deriveDemand(parent.Demand, gap), parent.ID, gap.ID)
	if err != nil {
		m.log.Warn("child session rejected",
			"parent_session_id", parent.ID, "gap_id", gap.ID, "error", err)
		return false
	}
	if err := m.mgr.Confirm(childID); err != nil {
		m.log.Warn("child session failed to start",
			"child_session_id", childID, "error", err)
		return false
	}
	m.log.Info("child negotiation spawned",
		"parent_session_id", parent.ID,
		"child_session_id", childID,
		"gap_id", gap.ID,
		"score", score)
	m.bus.Publish(event.NewSubnetTriggeredEvent(parent.ID, childID, gap.ID))
	return true
}

// deriveDemand builds the sub-demand a child negotiation works on.
func deriveDemand(parent model.Demand, gap model.Gap) model.Demand {
	text := gap.Description
	if text == "" {
		text = fmt.Sprintf("provide capability %q missing from negotiation for %q", gap.Capability, parent.RawText)
	}
	return model.Demand{
		RequesterID:    parent.RequesterID,
		RawText:        text,
		CapabilityTags: []string{gap.Capability},
		Keywords:       []string{gap.Capability},
		Context:        parent.Context,
	}
}

// byImportance returns the gaps ordered most important first, input
// order on ties.
func byImportance(gaps []model.Gap) []model.Gap {
	out := make([]model.Gap, len(gaps))
	copy(out, gaps)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Importance > out[j].Importance
	})
	return out
}
