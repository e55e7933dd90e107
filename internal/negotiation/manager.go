package negotiation

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/concord-hq/concord/internal/agent"
	"github.com/concord-hq/concord/internal/config"
	"github.com/concord-hq/concord/internal/errors"
	"github.com/concord-hq/concord/internal/event"
	"github.com/concord-hq/concord/internal/logging"
	"github.com/concord-hq/concord/internal/model"
	"github.com/concord-hq/concord/internal/reasoner"
	"github.com/concord-hq/concord/internal/selector"
)

// maxDepth caps gap recursion: a child session never spawns its own.
const maxDepth = 1

// Manager is the session API. It owns the registry and the lifecycle of
// every coordinator goroutine.
type Manager struct {
	cfg      *config.Config
	pool     *agent.Pool
	selector *selector.Selector
	rsn      reasoner.Reasoner
	bus      *event.Bus
	log      *logging.Logger
	registry *Registry

	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager builds a Manager over a shared pool, reasoner, and bus.
// The reasoner should already be breaker-protected.
func NewManager(cfg *config.Config, pool *agent.Pool, rsn reasoner.Reasoner, bus *event.Bus, log *logging.Logger) *Manager {
	if log == nil {
		log = logging.NopLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:      cfg,
		pool:     pool,
		selector: selector.New(cfg.Selector, rsn, log),
		rsn:      rsn,
		bus:      bus,
		log:      log.WithComponent("manager"),
		registry: NewRegistry(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Registry exposes the session registry for the checker and gap manager.
func (m *Manager) Registry() *Registry { return m.registry }

// ActiveSnapshots lists point-in-time views of every non-terminal
// session. The state checker sweeps these.
func (m *Manager) ActiveSnapshots() []Snapshot {
	coords := m.registry.activeCoordinators()
	out := make([]Snapshot, 0, len(coords))
	for _, c := range coords {
		out = append(out, c.session.Snapshot())
	}
	return out
}

// Submit validates and stores a demand as a new session in Created.
// The negotiation does not start until Confirm.
func (m *Manager) Submit(ctx context.Context, demand model.Demand) (string, error) {
	if strings.TrimSpace(demand.RawText) == "" {
		return "", errors.NewValidationError("raw_text", "demand text is required")
	}
	if demand.RequesterID == "" {
		return "", errors.NewValidationError("requester_id", "requester is required")
	}
	if demand.ID == "" {
		demand.ID = uuid.NewString()
	}

	session := newSession(uuid.NewString(), demand, m.cfg.Negotiation.MaxRounds)
	m.registerSession(session)

	m.log.Info("demand submitted",
		"session_id", session.ID,
		"demand_id", demand.ID,
		"requester_id", demand.RequesterID)
	m.bus.Publish(event.NewDemandUnderstoodEvent(session.ID, demand.ID, demand.RequesterID))
	return session.ID, nil
}

// SubmitChild creates a depth-1 session for a gap on a finalized parent.
func (m *Manager) SubmitChild(ctx context.Context, demand model.Demand, parentID, gapID string) (string, error) {
	parent, ok := m.registry.session(parentID)
	if !ok {
		return "", errSessionNotFound(parentID)
	}
	if parent.Snapshot().Depth >= maxDepth {
		return "", errors.NewValidationError("parent_session_id",
			fmt.Sprintf("session %s is already at maximum recursion depth", parentID))
	}
	if demand.ID == "" {
		demand.ID = uuid.NewString()
	}

	session := newSession(uuid.NewString(), demand, m.cfg.Negotiation.MaxRounds)
	session.Depth = parent.Snapshot().Depth + 1
	session.ParentSessionID = parentID
	session.ParentGapID = gapID
	m.registerSession(session)

	m.log.Info("child session submitted",
		"session_id", session.ID,
		"parent_session_id", parentID,
		"gap_id", gapID)
	m.bus.Publish(event.NewDemandUnderstoodEvent(session.ID, demand.ID, demand.RequesterID))
	return session.ID, nil
}

func (m *Manager) registerSession(session *Session) {
	coord := newCoordinator(
		session,
		m.pool,
		m.selector,
		m.rsn,
		m.bus,
		m.cfg.Negotiation,
		m.cfg.Checker.MaxRecoveryAttempts,
		m.log,
		m.registry.moveToTerminal,
	)
	m.registry.register(coord)
}

// Confirm starts the negotiation for a Created session.
func (m *Manager) Confirm(sessionID string) error {
	coord, ok := m.registry.coordinator(sessionID)
	if !ok {
		if s, found := m.registry.session(sessionID); found {
			return errSessionTerminal(s.ID)
		}
		return errSessionNotFound(sessionID)
	}

	s := coord.session
	s.mu.Lock()
	status := s.Status
	s.mu.Unlock()
	if status != StatusCreated {
		return fmt.Errorf("confirm session %s in status %s: %w",
			sessionID, status, errors.ErrIllegalTransition)
	}

	// Start claims the session atomically, so a duplicate Confirm that
	// raced past the status check still cannot launch a second writer.
	if !coord.Start(m.ctx) {
		return fmt.Errorf("confirm session %s: negotiation already started: %w",
			sessionID, errors.ErrIllegalTransition)
	}
	return nil
}

// Get returns a point-in-time view of any known session.
func (m *Manager) Get(sessionID string) (Snapshot, error) {
	s, ok := m.registry.session(sessionID)
	if !ok {
		return Snapshot{}, errSessionNotFound(sessionID)
	}
	return s.Snapshot(), nil
}

// Cancel stops an active session. Cancelling a session that never
// started fails it directly.
func (m *Manager) Cancel(sessionID string) error {
	coord, ok := m.registry.coordinator(sessionID)
	if !ok {
		if _, found := m.registry.session(sessionID); found {
			return errSessionTerminal(sessionID)
		}
		return errSessionNotFound(sessionID)
	}

	s := coord.session
	s.mu.Lock()
	created := s.Status == StatusCreated
	s.mu.Unlock()
	if created && coord.failUnstarted(ReasonCancelled) {
		return nil
	}
	return coord.Deliver(msgCancel{})
}

// SubmitResponse routes an externally produced response to its session.
// Duplicate deliveries are accepted and ignored downstream.
func (m *Manager) SubmitResponse(sessionID string, resp model.Response) error {
	coord, ok := m.registry.coordinator(sessionID)
	if !ok {
		if _, found := m.registry.session(sessionID); found {
			return errSessionTerminal(sessionID)
		}
		return errSessionNotFound(sessionID)
	}
	return coord.Deliver(msgResponse{resp: resp})
}

// SubmitFeedback routes externally produced feedback to its session.
func (m *Manager) SubmitFeedback(sessionID string, fb model.Feedback) error {
	coord, ok := m.registry.coordinator(sessionID)
	if !ok {
		if _, found := m.registry.session(sessionID); found {
			return errSessionTerminal(sessionID)
		}
		return errSessionNotFound(sessionID)
	}
	return coord.Deliver(msgFeedback{fb: fb})
}

// RequestRecovery asks a session's coordinator to recover from a
// detected anomaly. Used by the state checker.
func (m *Manager) RequestRecovery(sessionID, anomaly string) error {
	coord, ok := m.registry.coordinator(sessionID)
	if !ok {
		return errSessionNotFound(sessionID)
	}
	return coord.Deliver(msgRecover{anomaly: anomaly})
}

// AnnotateGap records a child negotiation's outcome on the parent's
// stored proposal. Valid on terminal sessions; status is untouched.
func (m *Manager) AnnotateGap(sessionID, gapID string, res model.GapResolution) error {
	s, ok := m.registry.session(sessionID)
	if !ok {
		return errSessionNotFound(sessionID)
	}
	if !s.annotateGap(gapID, res) {
		return errors.NewNotFoundError("gap", gapID)
	}
	return nil
}

// Wait blocks until the session terminates or the context is done.
func (m *Manager) Wait(ctx context.Context, sessionID string) error {
	coord, ok := m.registry.coordinator(sessionID)
	if !ok {
		if _, found := m.registry.session(sessionID); found {
			return nil
		}
		return errSessionNotFound(sessionID)
	}
	select {
	case <-coord.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels every active session and stops their goroutines.
func (m *Manager) Close() {
	m.cancel()
}

func errSessionNotFound(id string) error {
	return errors.NewNotFoundError("session", id)
}

func errSessionTerminal(id string) error {
	return fmt.Errorf("session %s: %w", id, errors.ErrSessionTerminal)
}
