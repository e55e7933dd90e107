package breaker

import (
	"context"
	"testing"
	"time"

	"github.com/concord-hq/concord/internal/errors"
)

var errBoom = errors.New("boom")

func failing(context.Context) error    { return errBoom }
func succeeding(context.Context) error { return nil }

// newTestBreaker returns a breaker with a controllable clock.
func newTestBreaker(threshold int, timeout time.Duration) (*Breaker, *time.Time) {
	b := New(threshold, timeout, nil)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b, _ := newTestBreaker(3, 30*time.Second)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := b.Call(ctx, "offer", failing); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: error = %v, want errBoom", i, err)
		}
		if b.State() != StateClosed {
			t.Fatalf("call %d: state = %v, want closed", i, b.State())
		}
	}

	if err := b.Call(ctx, "offer", failing); !errors.Is(err, errBoom) {
		t.Fatalf("third call: error = %v, want errBoom", err)
	}
	if b.State() != StateOpen {
		t.Errorf("state after 3 failures = %v, want open", b.State())
	}
}

func TestBreaker_SuccessResetsCounter(t *testing.T) {
	b, _ := newTestBreaker(3, 30*time.Second)
	ctx := context.Background()

	_ = b.Call(ctx, "offer", failing)
	_ = b.Call(ctx, "offer", failing)
	_ = b.Call(ctx, "offer", succeeding)

	if b.Failures() != 0 {
		t.Errorf("Failures() = %d, want 0 after success", b.Failures())
	}

	// Two more failures must not open: the run was broken.
	_ = b.Call(ctx, "offer", failing)
	_ = b.Call(ctx, "offer", failing)
	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed (only 2 consecutive failures)", b.State())
	}
}

func TestBreaker_OpenRejectsWithoutCalling(t *testing.T) {
	b, _ := newTestBreaker(1, 30*time.Second)
	ctx := context.Background()

	_ = b.Call(ctx, "offer", failing)
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	called := false
	err := b.Call(ctx, "offer", func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, errors.ErrBreakerOpen) {
		t.Errorf("error = %v, want ErrBreakerOpen", err)
	}
	if called {
		t.Error("fn should not run while the breaker is open")
	}
}

func TestBreaker_ProbeSuccessCloses(t *testing.T) {
	b, now := newTestBreaker(1, 30*time.Second)
	ctx := context.Background()

	_ = b.Call(ctx, "offer", failing)
	*now = now.Add(31 * time.Second)

	if err := b.Call(ctx, "offer", succeeding); err != nil {
		t.Fatalf("probe error = %v, want nil", err)
	}
	if b.State() != StateClosed {
		t.Errorf("state after successful probe = %v, want closed", b.State())
	}
	if b.Failures() != 0 {
		t.Errorf("Failures() = %d, want 0 after recovery", b.Failures())
	}
}

func TestBreaker_ProbeFailureReopens(t *testing.T) {
	b, now := newTestBreaker(1, 30*time.Second)
	ctx := context.Background()

	_ = b.Call(ctx, "offer", failing)
	*now = now.Add(31 * time.Second)

	if err := b.Call(ctx, "offer", failing); !errors.Is(err, errBoom) {
		t.Fatalf("probe error = %v, want errBoom", err)
	}
	if b.State() != StateOpen {
		t.Fatalf("state after failed probe = %v, want open", b.State())
	}

	// Timer restarted: still rejecting before another full window.
	*now = now.Add(15 * time.Second)
	if err := b.Call(ctx, "offer", succeeding); !errors.Is(err, errors.ErrBreakerOpen) {
		t.Errorf("error = %v, want ErrBreakerOpen before timer elapses again", err)
	}

	// Full window after reopen: probe allowed again.
	*now = now.Add(16 * time.Second)
	if err := b.Call(ctx, "offer", succeeding); err != nil {
		t.Errorf("second probe error = %v, want nil", err)
	}
	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed", b.State())
	}
}

func TestBreaker_SingleProbeInFlight(t *testing.T) {
	b, now := newTestBreaker(1, 30*time.Second)
	ctx := context.Background()

	_ = b.Call(ctx, "offer", failing)
	*now = now.Add(31 * time.Second)

	probeStarted := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- b.Call(ctx, "offer", func(context.Context) error {
			close(probeStarted)
			<-release
			return nil
		})
	}()

	<-probeStarted

	// A concurrent caller must be rejected while the probe is in flight.
	if err := b.Call(ctx, "offer", succeeding); !errors.Is(err, errors.ErrBreakerOpen) {
		t.Errorf("concurrent call error = %v, want ErrBreakerOpen", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("probe error = %v, want nil", err)
	}
	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed after probe", b.State())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half_open"},
		{State(9), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
