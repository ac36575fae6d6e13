package resilience

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestIsTransient_TransientError(t *testing.T) {
	err := NewTransientError(errors.New("upstream 503"), 503)
	if !IsTransient(err) {
		t.Error("TransientError should be transient")
	}

	wrapped := fmt.Errorf("call failed: %w", err)
	if !IsTransient(wrapped) {
		t.Error("wrapped TransientError should be transient")
	}
}

func TestIsTransient_Nil(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil should not be transient")
	}
}

func TestIsTransient_Syscall(t *testing.T) {
	if !IsTransient(syscall.ECONNRESET) {
		t.Error("ECONNRESET should be transient")
	}
	if !IsTransient(syscall.ECONNREFUSED) {
		t.Error("ECONNREFUSED should be transient")
	}
}

func TestIsTransient_Patterns(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"read tcp: connection reset by peer", true},
		{"dial tcp: i/o timeout", true},
		{"lookup host: no such host", true},
		{"invalid auth token", false},
		{"404 not found", false},
	}
	for _, tc := range cases {
		if got := IsTransient(errors.New(tc.msg)); got != tc.want {
			t.Errorf("IsTransient(%q) = %v, want %v", tc.msg, got, tc.want)
		}
	}
}

func TestIsRetryableStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		if !IsRetryableStatus(code) {
			t.Errorf("status %d should be retryable", code)
		}
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404, 408, 422} {
		if IsRetryableStatus(code) {
			t.Errorf("status %d should not be retryable", code)
		}
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	te := NewTransientError(inner, 500)
	if !errors.Is(te, inner) {
		t.Error("Unwrap should expose the inner error")
	}
	if te.Error() != "inner" {
		t.Errorf("Error() = %q", te.Error())
	}
}
