package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapNilReturnsNil(test *testing.T) {
	if Wrap(nil, CategoryIOFailure, "x", "y", false) != nil {
		test.Fatalf("expected nil for nil cause")
	}
}

func TestWrapPreservesCauseChain(test *testing.T) {
	cause := errors.New("disk full")
	wrapped := Wrap(fmt.Errorf("write archive: %w", cause), CategoryIOFailure, "export_write", "check destination is writable", false)
	if !errors.Is(wrapped, cause) {
		test.Fatalf("expected wrapped error to unwrap to cause")
	}
	if CategoryOf(wrapped) != CategoryIOFailure {
		test.Fatalf("unexpected category: %s", CategoryOf(wrapped))
	}
	if CodeOf(wrapped) != "export_write" {
		test.Fatalf("unexpected code: %s", CodeOf(wrapped))
	}
	if HintOf(wrapped) != "check destination is writable" {
		test.Fatalf("unexpected hint: %s", HintOf(wrapped))
	}
	if RetryableOf(wrapped) {
		test.Fatalf("expected non-retryable")
	}
}

func TestAccessorsOnPlainError(test *testing.T) {
	plain := errors.New("plain")
	if CategoryOf(plain) != "" || CodeOf(plain) != "" || HintOf(plain) != "" || RetryableOf(plain) {
		test.Fatalf("expected zero values for unclassified error")
	}
}
