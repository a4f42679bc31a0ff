package soaperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := E(KindRateLimit, "ceiling reached for %s", "reddit")
	if got := KindOf(err); got != KindRateLimit {
		t.Errorf("KindOf() = %v, want %v", got, KindRateLimit)
	}

	if got := KindOf(errors.New("plain")); got != KindUnexpected {
		t.Errorf("KindOf(plain) = %v, want %v", got, KindUnexpected)
	}
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindPlatform, cause, "submit comment")

	if !errors.Is(err, cause) {
		t.Error("Wrap() lost the cause")
	}
	if !IsKind(err, KindPlatform) {
		t.Error("IsKind() = false, want true")
	}
}

func TestWrap_NilError(t *testing.T) {
	if err := Wrap(KindAuth, nil, "token refresh"); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
}

func TestKindOf_ThroughFmtWrap(t *testing.T) {
	inner := E(KindAuth, "missing credentials")
	outer := fmt.Errorf("discovery: %w", inner)

	if got := KindOf(outer); got != KindAuth {
		t.Errorf("KindOf(wrapped) = %v, want %v", got, KindAuth)
	}
}
