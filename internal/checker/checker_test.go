package checker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/concord-hq/concord/internal/config"
	"github.com/concord-hq/concord/internal/negotiation"
)

func TestClassify(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	maxStuck := 120 * time.Second
	fresh := now.Add(-30 * time.Second)
	stale := now.Add(-121 * time.Second)

	tests := []struct {
		name      string
		snap      negotiation.Snapshot
		want      string
		wantStuck bool
	}{
		{
			name: "fresh collecting is healthy",
			snap: negotiation.Snapshot{Status: negotiation.StatusCollecting, LastUpdatedAt: fresh},
		},
		{
			name:      "stale collecting with no responses",
			snap:      negotiation.Snapshot{Status: negotiation.StatusCollecting, LastUpdatedAt: stale},
			want:      AnomalyMissingResponses,
			wantStuck: true,
		},
		{
			name:      "stale collecting with partial responses",
			snap:      negotiation.Snapshot{Status: negotiation.StatusCollecting, RoundResponses: 2, LastUpdatedAt: stale},
			want:      AnomalyStuckCollecting,
			wantStuck: true,
		},
		{
			name:      "stale negotiating",
			snap:      negotiation.Snapshot{Status: negotiation.StatusNegotiating, LastUpdatedAt: stale},
			want:      AnomalyStuckNegotiating,
			wantStuck: true,
		},
		{
			name:      "stale aggregating falls under timeout",
			snap:      negotiation.Snapshot{Status: negotiation.StatusAggregating, LastUpdatedAt: stale},
			want:      AnomalyTimeout,
			wantStuck: true,
		},
		{
			name: "unconfirmed session is never stuck",
			snap: negotiation.Snapshot{Status: negotiation.StatusCreated, LastUpdatedAt: stale},
		},
		{
			name: "terminal session is never stuck",
			snap: negotiation.Snapshot{Status: negotiation.StatusFailed, LastUpdatedAt: stale},
		},
		{
			name: "exactly at the threshold is still healthy",
			snap: negotiation.Snapshot{Status: negotiation.StatusCollecting, LastUpdatedAt: now.Add(-maxStuck)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, stuck := Classify(tt.snap, now, maxStuck)
			if stuck != tt.wantStuck {
				t.Fatalf("Classify() stuck = %v, want %v", stuck, tt.wantStuck)
			}
			if got != tt.want {
				t.Errorf("Classify() anomaly = %q, want %q", got, tt.want)
			}
		})
	}
}

// fakeSessions records recovery requests for sweep tests.
type fakeSessions struct {
	mu        sync.Mutex
	snapshots []negotiation.Snapshot
	recovered map[string]string
}

func (f *fakeSessions) ActiveSnapshots() []negotiation.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]negotiation.Snapshot{}, f.snapshots...)
}

func (f *fakeSessions) RequestRecovery(sessionID, anomaly string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recovered == nil {
		f.recovered = make(map[string]string)
	}
	f.recovered[sessionID] = anomaly
	return nil
}

func testCheckerConfig() config.CheckerConfig {
	return config.CheckerConfig{
		IntervalSeconds:     5,
		MaxStuckSeconds:     120,
		MaxRecoveryAttempts: 3,
	}
}

func TestSweep_RequestsRecoveryForStuckOnly(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fake := &fakeSessions{
		snapshots: []negotiation.Snapshot{
			{ID: "healthy", Status: negotiation.StatusCollecting, LastUpdatedAt: now.Add(-10 * time.Second)},
			{ID: "stuck", Status: negotiation.StatusNegotiating, LastUpdatedAt: now.Add(-5 * time.Minute)},
			{ID: "silent", Status: negotiation.StatusCollecting, LastUpdatedAt: now.Add(-5 * time.Minute)},
		},
	}
	c := New(fake, testCheckerConfig(), nil)
	c.now = func() time.Time { return now }

	c.Sweep()

	if len(fake.recovered) != 2 {
		t.Fatalf("recovered = %v, want 2 entries", fake.recovered)
	}
	if fake.recovered["stuck"] != AnomalyStuckNegotiating {
		t.Errorf("stuck anomaly = %q, want %q", fake.recovered["stuck"], AnomalyStuckNegotiating)
	}
	if fake.recovered["silent"] != AnomalyMissingResponses {
		t.Errorf("silent anomaly = %q, want %q", fake.recovered["silent"], AnomalyMissingResponses)
	}
	if _, ok := fake.recovered["healthy"]; ok {
		t.Error("healthy session sent to recovery")
	}
}

func TestReconfigure_ChangesStuckThreshold(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fake := &fakeSessions{
		snapshots: []negotiation.Snapshot{
			{ID: "s1", Status: negotiation.StatusNegotiating, LastUpdatedAt: now.Add(-60 * time.Second)},
		},
	}
	c := New(fake, testCheckerConfig(), nil)
	c.now = func() time.Time { return now }

	// Idle for 60s: healthy under the default 120s threshold.
	c.Sweep()
	if len(fake.recovered) != 0 {
		t.Fatalf("recovered = %v before reconfigure, want none", fake.recovered)
	}

	cfg := testCheckerConfig()
	cfg.MaxStuckSeconds = 30
	c.Reconfigure(cfg)

	c.Sweep()
	if fake.recovered["s1"] != AnomalyStuckNegotiating {
		t.Errorf("recovered = %v after reconfigure, want s1 stuck", fake.recovered)
	}
}

func TestChecker_StartStop(t *testing.T) {
	c := New(&fakeSessions{}, testCheckerConfig(), nil)
	c.Start(context.Background())
	done := make(chan struct{})
	go func() {
		c.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
