package policy

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	err := &Error{Kind: KindValidation, Message: "field x is required"}
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected errors.Is to match by kind against the sentinel")
	}
	if errors.Is(err, ErrCache) {
		t.Fatalf("expected a Validation error to not match the Cache sentinel")
	}
}

func TestErrorUnwrap(t *testing.T) {
	inner := fmt.Errorf("boom")
	err := Wrap(KindIo, "read file", inner)
	if !errors.Is(err, inner) {
		t.Fatalf("expected Wrap to preserve Unwrap chain to the inner error")
	}
}

func TestKindOfExtractsKind(t *testing.T) {
	err := &Error{Kind: KindEvaluation, Message: "boom"}
	kind, ok := KindOf(err)
	if !ok || kind != KindEvaluation {
		t.Fatalf("expected KindOf to report KindEvaluation, got (%v, %v)", kind, ok)
	}

	if _, ok := KindOf(fmt.Errorf("plain")); ok {
		t.Fatalf("expected KindOf to report false for a non-*Error")
	}
}

func TestErrorKindRecoverable(t *testing.T) {
	recoverable := []ErrorKind{KindCache, KindIntegration, KindTimeout}
	for _, k := range recoverable {
		if !k.Recoverable() {
			t.Fatalf("expected %s to be recoverable", k)
		}
	}
	notRecoverable := []ErrorKind{KindValidation, KindParse, KindEvaluation, KindExpression, KindConfig, KindIo, KindSerialization, KindInternal}
	for _, k := range notRecoverable {
		if k.Recoverable() {
			t.Fatalf("expected %s to not be recoverable", k)
		}
	}
}
