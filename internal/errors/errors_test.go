package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestIdentityByCode(t *testing.T) {
	t.Parallel()

	err := ErrNotFound().SetDetail("users/%s", "u1")

	if !errors.Is(err, ErrNotFound()) {
		t.Fatal("expected detail-carrying error to match its factory")
	}

	if errors.Is(err, ErrStoreFailure()) {
		t.Fatal("distinct codes must not match")
	}
}

func TestCauseUnwraps(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("connection reset")
	err := ErrStoreFailure().WithCause(cause)

	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to unwrap")
	}

	want := "Store Failure: connection reset"
	if err.Error() != want {
		t.Fatalf("expected %q got %q", want, err.Error())
	}
}

func TestFactoriesReturnFreshValues(t *testing.T) {
	t.Parallel()

	a := ErrNotFound().SetDetail("first")
	b := ErrNotFound()

	if b.Error() != "Not Found" {
		t.Fatalf("sentinel mutated: %q", b.Error())
	}

	if a.Error() == b.Error() {
		t.Fatal("detail should only apply to the value it was set on")
	}
}
