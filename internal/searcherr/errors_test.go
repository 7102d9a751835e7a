package searcherr

import (
	"errors"
	"testing"
)

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := VectorStore("search failed", cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
}

func TestErrorIsByKind(t *testing.T) {
	a := IndexNotBuilt()
	b := New(KindIndexNotBuilt, "different message", nil)
	if !errors.Is(a, b) {
		t.Error("expected Is to match on Kind regardless of message")
	}

	other := Config("bad config")
	if errors.Is(a, other) {
		t.Error("expected different kinds to not match")
	}
}

func TestIsIndexNotBuilt(t *testing.T) {
	if !IsIndexNotBuilt(IndexNotBuilt()) {
		t.Error("expected IsIndexNotBuilt to recognize its own sentinel")
	}
	if IsIndexNotBuilt(Config("x")) {
		t.Error("expected IsIndexNotBuilt to reject other kinds")
	}
	if IsIndexNotBuilt(errors.New("plain")) {
		t.Error("expected IsIndexNotBuilt to reject non-*Error values")
	}
}

func TestErrorMessage(t *testing.T) {
	err := Embedding("ollama down", errors.New("connection refused"))
	want := "embedding: ollama down: connection refused"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
