package api

import (
	"errors"
	"testing"
)

func historyABC() History {
	h := NewHistory(NewStep("/merge/start?personId=p1"))
	h, _ = h.Advance("/merge/start", NewStep("/merge/enter-trn?personId=p1"))
	h, _ = h.Advance("/merge/enter-trn", NewStep("/merge/confirm?personId=p1"))
	return h
}

func TestNewStep_StripsQueryAndFragment(t *testing.T) {
	s := NewStep("/merge/enter-trn?personId=p1#top")
	if s.Path != "/merge/enter-trn" {
		t.Fatalf("expected path /merge/enter-trn, got %q", s.Path)
	}
	if s.URL != "/merge/enter-trn?personId=p1#top" {
		t.Fatalf("expected full URL preserved, got %q", s.URL)
	}
}

func TestHistory_AdvanceTruncatesAbandonedBranch(t *testing.T) {
	h := historyABC()

	// Standing on the middle step and moving to a new step discards the
	// old future.
	h2, err := h.Advance("/merge/enter-trn", NewStep("/merge/different-branch?personId=p1"))
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	paths := stepPaths(h2)
	want := []string{"/merge/start", "/merge/enter-trn", "/merge/different-branch"}
	if len(paths) != len(want) {
		t.Fatalf("expected %v, got %v", want, paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, paths)
		}
	}

	// The original history is untouched.
	if len(h.Steps) != 3 || h.Steps[2].Path != "/merge/confirm" {
		t.Fatalf("expected original history unchanged, got %v", stepPaths(h))
	}
}

func TestHistory_AdvanceToRecordedStepIsIdempotent(t *testing.T) {
	h := NewHistory(NewStep("/merge/start"))
	h, _ = h.Advance("/merge/start", NewStep("/merge/enter-trn"))

	// Re-visiting the first step (back button) appends nothing and
	// truncates nothing.
	h2, err := h.Advance("/merge/enter-trn", NewStep("/merge/start"))
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if len(h2.Steps) != 2 {
		t.Fatalf("expected history unchanged, got %v", stepPaths(h2))
	}

	// Moving forward again over the same edge is also a no-op.
	h3, err := h2.Advance("/merge/start", NewStep("/merge/enter-trn"))
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if len(h3.Steps) != 2 {
		t.Fatalf("expected no duplicate step, got %v", stepPaths(h3))
	}
}

func TestHistory_AdvanceFromUnknownStep(t *testing.T) {
	h := historyABC()
	_, err := h.Advance("/never-recorded", NewStep("/merge/x"))
	if !errors.Is(err, ErrStepNotRecorded) {
		t.Fatalf("expected ErrStepNotRecorded, got %v", err)
	}
}

func TestHistory_Previous(t *testing.T) {
	h := historyABC()

	prev, err := h.Previous("/merge/confirm")
	if err != nil {
		t.Fatalf("Previous failed: %v", err)
	}
	if prev == nil || prev.Path != "/merge/enter-trn" {
		t.Fatalf("expected previous step /merge/enter-trn, got %+v", prev)
	}

	first, err := h.Previous("/merge/start")
	if err != nil {
		t.Fatalf("Previous failed: %v", err)
	}
	if first != nil {
		t.Fatalf("expected nil previous for the first step, got %+v", first)
	}

	_, err = h.Previous("/never-recorded")
	if !errors.Is(err, ErrStepNotRecorded) {
		t.Fatalf("expected ErrStepNotRecorded, got %v", err)
	}
}

func TestHistory_ContainsAndLast(t *testing.T) {
	h := historyABC()

	if !h.Contains("/merge/enter-trn") {
		t.Fatalf("expected history to contain /merge/enter-trn")
	}
	if h.Contains("/not-there") {
		t.Fatalf("did not expect /not-there")
	}

	last, ok := h.Last()
	if !ok || last.Path != "/merge/confirm" {
		t.Fatalf("expected last step /merge/confirm, got %+v ok=%v", last, ok)
	}

	if _, ok := (History{}).Last(); ok {
		t.Fatalf("expected no last step for empty history")
	}
}

func stepPaths(h History) []string {
	out := make([]string, len(h.Steps))
	for i, s := range h.Steps {
		out[i] = s.Path
	}
	return out
}
