// Package checker runs the background health sweep over non-terminal
// sessions. Sessions that sit in a waiting state past the stuck
// threshold get classified and handed to their coordinator for bounded,
// idempotent recovery.
package checker

import (
	"context"
	"sync"
	"time"

	"github.com/concord-hq/concord/internal/config"
	"github.com/concord-hq/concord/internal/logging"
	"github.com/concord-hq/concord/internal/negotiation"
)

// Anomaly classifications reported to coordinators.
const (
	AnomalyMissingResponses = "missing_responses"
	AnomalyStuckCollecting  = "stuck_in_collecting"
	AnomalyStuckNegotiating = "stuck_in_negotiating"
	AnomalyTimeout          = "timeout"
)

// sessions is the slice of the session manager the checker needs.
type sessions interface {
	ActiveSnapshots() []negotiation.Snapshot
	RequestRecovery(sessionID, anomaly string) error
}

// Checker periodically sweeps active sessions for stuck states.
type Checker struct {
	mgr  sessions
	log  *logging.Logger
	now  func() time.Time
	stop chan struct{}
	done chan struct{}

	mu  sync.Mutex
	cfg config.CheckerConfig
}

// New builds a Checker over the session manager.
func New(mgr sessions, cfg config.CheckerConfig, log *logging.Logger) *Checker {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Checker{
		mgr:  mgr,
		cfg:  cfg,
		log:  log.WithComponent("checker"),
		now:  time.Now,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Reconfigure swaps the sweep thresholds, typically from a config
// reload. The new stuck threshold applies from the next sweep; the
// sweep interval applies from the next Start.
func (c *Checker) Reconfigure(cfg config.CheckerConfig) {
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
}

func (c *Checker) maxStuck() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.MaxStuck()
}

// Start runs the sweep loop until Stop or context cancellation.
func (c *Checker) Start(ctx context.Context) {
	c.mu.Lock()
	interval := c.cfg.Interval()
	c.mu.Unlock()
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			case <-ticker.C:
				c.Sweep()
			}
		}
	}()
}

// Stop ends the sweep loop and waits for it to exit.
func (c *Checker) Stop() {
	close(c.stop)
	<-c.done
}

// Sweep examines every active session once and requests recovery for
// each stuck one.
func (c *Checker) Sweep() {
	now := c.now()
	maxStuck := c.maxStuck()
	for _, snap := range c.mgr.ActiveSnapshots() {
		anomaly, stuck := Classify(snap, now, maxStuck)
		if !stuck {
			continue
		}
		c.log.Warn("stuck session detected",
			"session_id", snap.ID,
			"status", snap.Status,
			"anomaly", anomaly,
			"idle", now.Sub(snap.LastUpdatedAt).String(),
			"attempts", snap.RecoveryAttempts)
		if err := c.mgr.RequestRecovery(snap.ID, anomaly); err != nil {
			c.log.Warn("recovery request rejected",
				"session_id", snap.ID, "error", err)
		}
	}
}

// Classify names the anomaly for a session that has made no progress
// within maxStuck. The second return is false for healthy sessions.
func Classify(snap negotiation.Snapshot, now time.Time, maxStuck time.Duration) (string, bool) {
	if snap.Status.IsTerminal() || snap.Status == negotiation.StatusCreated {
		return "", false
	}
	if now.Sub(snap.LastUpdatedAt) <= maxStuck {
		return "", false
	}
	switch snap.Status {
	case negotiation.StatusCollecting:
		if snap.RoundResponses == 0 {
			return AnomalyMissingResponses, true
		}
		return AnomalyStuckCollecting, true
	case negotiation.StatusNegotiating:
		return AnomalyStuckNegotiating, true
	default:
		return AnomalyTimeout, true
	}
}
