package errors

import (
	"fmt"
	"testing"
)

func TestSessionError_Format(t *testing.T) {
	err := NewSessionError("confirm rejected", ErrSessionTerminal).WithSessionID("abc123")

	want := "session error [session=abc123]: confirm rejected: session is terminal"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestSessionError_Is(t *testing.T) {
	err := NewSessionError("lookup failed", ErrSessionNotFound)

	if !Is(err, ErrSessionNotFound) {
		t.Error("expected Is(err, ErrSessionNotFound) to be true")
	}
	if Is(err, ErrSessionTerminal) {
		t.Error("expected Is(err, ErrSessionTerminal) to be false")
	}

	var sessionErr *SessionError
	if !As(err, &sessionErr) {
		t.Error("expected As to match *SessionError")
	}
}

func TestSelectorError_Format(t *testing.T) {
	err := NewSelectorError("gate rejected all members", ErrNoCandidates).
		WithDemandID("d-1").
		WithPoolSize(7)

	want := "selector error [demand=d-1, pool=7]: gate rejected all members: no candidates selected"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestReasonerError_Retryable(t *testing.T) {
	err := NewReasonerError("call failed", ErrReasonerUnavailable).WithOperation("aggregate")

	if !IsRetryable(err) {
		t.Error("reasoner errors should be retryable")
	}
	if IsUserFacing(err) {
		t.Error("reasoner errors should not be user-facing")
	}
	if got := err.Error(); got != "reasoner error [op=aggregate]: call failed: reasoner unavailable" {
		t.Errorf("Error() = %q", got)
	}
}

func TestNotFoundError_SessionSentinel(t *testing.T) {
	err := NewNotFoundError("session", "s-42")

	if !Is(err, ErrSessionNotFound) {
		t.Error("session NotFoundError should match ErrSessionNotFound")
	}

	other := NewNotFoundError("agent", "a-1")
	if Is(other, ErrSessionNotFound) {
		t.Error("non-session NotFoundError should not match ErrSessionNotFound")
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("demand.raw_text", "must not be empty")

	if !Is(err, ErrInvalidInput) {
		t.Error("validation errors should wrap ErrInvalidInput")
	}
	want := "validation error [field=demand.raw_text]: must not be empty"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestTimeoutError(t *testing.T) {
	err := NewTimeoutError("collect responses")

	if !Is(err, ErrTimeout) {
		t.Error("timeout errors should wrap ErrTimeout")
	}
	if !IsRetryable(err) {
		t.Error("timeout errors should be retryable")
	}
}

func TestSeverityOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Severity
	}{
		{"reasoner error", NewReasonerError("x", nil), SeverityWarning},
		{"session error", NewSessionError("x", nil), SeverityError},
		{"plain error", fmt.Errorf("plain"), SeverityError},
		{"elevated", NewSessionError("x", nil).WithSeverity(SeverityCritical), SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SeverityOf(tt.err); got != tt.want {
				t.Errorf("SeverityOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSeverityString(t *testing.T) {
	tests := []struct {
		s    Severity
		want string
	}{
		{SeverityDebug, "debug"},
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("Severity(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
