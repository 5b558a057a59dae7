package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityDebug, "debug"},
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.severity.String(); got != tt.want {
				t.Errorf("Severity.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// RegistryError Tests
// -----------------------------------------------------------------------------

func TestRegistryError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *RegistryError
		want string
	}{
		{
			name: "operation only",
			err:  NewRegistryError("select_winner", ErrNoBids),
			want: "registry error [op=select_winner]: no bids",
		},
		{
			name: "with task and abort code",
			err:  NewRegistryError("place_bid", ErrDeadlinePassed).WithTaskID("task-1").WithAbortCode(5),
			want: "registry error [op=place_bid, task=task-1, abort=5]: deadline passed",
		},
		{
			name: "nil cause",
			err:  NewRegistryError("", nil),
			want: "registry error: rejected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRegistryError_Is(t *testing.T) {
	err := NewRegistryError("place_bid", ErrDuplicateBid).WithTaskID("t")
	wrapped := fmt.Errorf("submit: %w", err)

	if !Is(wrapped, ErrDuplicateBid) {
		t.Error("wrapped registry error should match ErrDuplicateBid")
	}
	if Is(wrapped, ErrTaskNotOpen) {
		t.Error("registry error should not match an unrelated sentinel")
	}
	if !Is(wrapped, &RegistryError{}) {
		t.Error("should match the RegistryError type")
	}
	if IsRetryable(wrapped) {
		t.Error("registry rejections are not retryable")
	}
	if !IsRegistryRejection(wrapped) {
		t.Error("IsRegistryRejection() = false, want true")
	}
}

// -----------------------------------------------------------------------------
// LedgerError / FeedError Tests
// -----------------------------------------------------------------------------

func TestLedgerError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewLedgerError("submit transaction", cause).WithTxHash("0xabc").WithStatusCode(502)

	want := "ledger error [tx=0xabc, status=502]: submit transaction: connection refused"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !IsRetryable(err) {
		t.Error("ledger errors should default to retryable")
	}
	if !Is(err, cause) {
		t.Error("should unwrap to its cause")
	}
	if IsRetryable(err.WithRetryable(false)) {
		t.Error("WithRetryable(false) should clear retryable")
	}
	if IsRegistryRejection(err) {
		t.Error("ledger error is not a registry rejection")
	}
}

func TestFeedError(t *testing.T) {
	err := NewFeedError("graphql errors", ErrMalformedResponse).WithSince(42)
	want := "feed error [since=42]: graphql errors: malformed response"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !Is(err, ErrMalformedResponse) {
		t.Error("should match ErrMalformedResponse")
	}
	if GetSeverity(err) != SeverityWarning {
		t.Errorf("GetSeverity() = %v, want warning", GetSeverity(err))
	}
}

// -----------------------------------------------------------------------------
// Semantic Error Tests
// -----------------------------------------------------------------------------

func TestValidationError(t *testing.T) {
	err := NewValidationError("must be between 0 and 100").WithField("reputation").WithValue(140)
	want := "validation error [field=reputation, value=140]: must be between 0 and 100"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !Is(err, ErrInvalidInput) {
		t.Error("ValidationError should match ErrInvalidInput")
	}
	if !IsUserFacing(err) {
		t.Error("ValidationError should be user facing")
	}
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("task", "task-9")
	if got, want := err.Error(), "task 'task-9' not found"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	err = err.WithCause(ErrTaskNotFound)
	if !Is(err, ErrTaskNotFound) {
		t.Error("should match its cause")
	}
}

func TestTimeoutError(t *testing.T) {
	err := NewTimeoutError("wait for transaction", 30*time.Second)
	if got, want := err.Error(), "timeout error: wait for transaction (timeout: 30s)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !Is(err, ErrTimeout) {
		t.Error("TimeoutError should match ErrTimeout")
	}
	if !IsRetryable(err) {
		t.Error("timeouts are retryable")
	}
}

// -----------------------------------------------------------------------------
// Helper Tests
// -----------------------------------------------------------------------------

func TestIsRetryable_PlainErrors(t *testing.T) {
	if IsRetryable(nil) {
		t.Error("nil is not retryable")
	}
	if IsRetryable(errors.New("boom")) {
		t.Error("plain errors are not retryable")
	}
	if !IsRetryable(Wrap(ErrTimeout, "poll")) {
		t.Error("wrapped ErrTimeout is retryable")
	}
}

func TestGetSeverity_Defaults(t *testing.T) {
	if GetSeverity(nil) != SeverityDebug {
		t.Error("nil should map to debug")
	}
	if GetSeverity(errors.New("x")) != SeverityError {
		t.Error("unknown errors should map to error")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "ctx") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	if Wrapf(nil, "ctx %d", 1) != nil {
		t.Error("Wrapf(nil) should be nil")
	}
	err := Wrapf(ErrNoBids, "select %s", "task-1")
	if got, want := err.Error(), "select task-1: no bids"; got != want {
		t.Errorf("Wrapf() = %q, want %q", got, want)
	}
	if !Is(err, ErrNoBids) {
		t.Error("Wrapf should preserve the chain")
	}
}
