package apperr

import (
	"fmt"
	"testing"
)

func TestKindOfUnwrapsChain(t *testing.T) {
	base := Locked("document is locked", map[string]string{"id": "u1"})
	wrapped := fmt.Errorf("get document: %w", base)
	if KindOf(wrapped) != KindLocked {
		t.Fatalf("expected locked kind, got %s", KindOf(wrapped))
	}
	e, ok := As(wrapped)
	if !ok || e.Data == nil {
		t.Fatalf("expected data to survive wrapping")
	}
}

func TestKindOfPlainErrorIsInternal(t *testing.T) {
	if KindOf(fmt.Errorf("boom")) != KindInternal {
		t.Fatalf("expected internal for plain error")
	}
	if Is(nil, KindInternal) {
		t.Fatalf("nil error must not match any kind")
	}
}
