package common

import (
	"errors"
	"testing"
)

func TestAppErrorUnwrapsToCause(t *testing.T) {
	err := NewAppError("FINALIZE_TX_FAILED", "failed to begin finalize transaction for match m1", ErrInvalidState)

	if !errors.Is(err, ErrInvalidState) {
		t.Error("Expected AppError to unwrap to its cause")
	}
	if got := err.Error(); got != "failed to begin finalize transaction for match m1: invalid state" {
		t.Errorf("Unexpected error string: %q", got)
	}
	if err.Code != "FINALIZE_TX_FAILED" {
		t.Errorf("Unexpected code: %q", err.Code)
	}
}

func TestAppErrorWithoutCause(t *testing.T) {
	err := NewAppError("BAD_INPUT", "missing match id", nil)

	if got := err.Error(); got != "missing match id" {
		t.Errorf("Unexpected error string: %q", got)
	}
	if errors.Unwrap(err) != nil {
		t.Error("Expected nil unwrap when there is no cause")
	}
}
