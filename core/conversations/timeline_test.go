package conversations

import (
	"errors"
	"sync"
	"testing"
)

func TestAppendAssignsIncreasingSequence(t *testing.T) {
	timeline := NewTimeline()

	first, err := timeline.Append(UserTurn("hello"))
	if err != nil {
		t.Fatalf("append user turn: %v", err)
	}
	second, err := timeline.Append(AssistantTurn("hi there", ""))
	if err != nil {
		t.Fatalf("append assistant turn: %v", err)
	}

	if first.Sequence != 1 || second.Sequence != 2 {
		t.Fatalf("expected sequences 1 and 2, got %d and %d", first.Sequence, second.Sequence)
	}
	if first.ID == "" || first.ID == second.ID {
		t.Fatalf("expected distinct turn IDs, got %q and %q", first.ID, second.ID)
	}
	if second.MediaKind != MediaKindText {
		t.Fatalf("expected default media kind text, got %q", second.MediaKind)
	}
}

func TestAppendRejectsUnknownRole(t *testing.T) {
	timeline := NewTimeline()

	_, err := timeline.Append(TurnDraft{Role: "system", Content: "nope"})
	if !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	if timeline.Len() != 0 {
		t.Fatalf("expected rejected append to leave timeline empty")
	}
}

func TestTurnsReturnsCopy(t *testing.T) {
	timeline := NewTimeline()
	_, _ = timeline.Append(UserTurn("hello"))

	turns := timeline.Turns()
	turns[0].Content = "mutated"

	if got := timeline.Turns()[0].Content; got != "hello" {
		t.Fatalf("expected stored turn to be unaffected by caller mutation, got %q", got)
	}
}

func TestConcurrentAppendsKeepSequenceStrictlyIncreasing(t *testing.T) {
	timeline := NewTimeline()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = timeline.Append(UserTurn("x"))
		}()
	}
	wg.Wait()

	turns := timeline.Turns()
	if len(turns) != 50 {
		t.Fatalf("expected 50 turns, got %d", len(turns))
	}
	for i := 1; i < len(turns); i++ {
		if turns[i].Sequence <= turns[i-1].Sequence {
			t.Fatalf("sequence not strictly increasing at %d: %d <= %d", i, turns[i].Sequence, turns[i-1].Sequence)
		}
	}
}

func TestSinceReturnsTurnsAfterSequence(t *testing.T) {
	timeline := NewTimeline()
	for _, content := range []string{"a", "b", "c"} {
		_, _ = timeline.Append(UserTurn(content))
	}

	turns := timeline.Since(1)
	if len(turns) != 2 || turns[0].Content != "b" || turns[1].Content != "c" {
		t.Fatalf("unexpected turns since 1: %+v", turns)
	}
	if turns := timeline.Since(3); len(turns) != 0 {
		t.Fatalf("expected no turns after last sequence, got %d", len(turns))
	}
}
