package orchestration

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSessionBusyGateIsExclusive(t *testing.T) {
	session := NewSession()

	const contenders = 32
	var acquired atomic.Int32
	var wg sync.WaitGroup
	for range contenders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if session.setBusy() {
				acquired.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := acquired.Load(); got != 1 {
		t.Fatalf("expected exactly one contender to take the gate, got %d", got)
	}
	if !session.IsBusy() {
		t.Fatalf("expected session to be busy")
	}

	session.clearBusy()
	if session.IsBusy() {
		t.Fatalf("expected session to be idle")
	}

	// Clearing an idle gate is a no-op.
	session.clearBusy()
	if !session.setBusy() {
		t.Fatalf("expected gate to be free again")
	}
}

func TestSessionWaitBusyBlocksUntilCleared(t *testing.T) {
	session := NewSession()
	session.setBusy()

	acquired := make(chan error, 1)
	go func() { acquired <- session.waitBusy(context.Background()) }()

	select {
	case <-acquired:
		t.Fatalf("expected waitBusy to block while the gate is held")
	case <-time.After(20 * time.Millisecond):
	}

	session.clearBusy()
	select {
	case err := <-acquired:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for the gate")
	}
}

func TestSessionRetryBookkeeping(t *testing.T) {
	session := NewSession()

	first := errors.New("first")
	second := errors.New("second")
	session.incrementRetries(first)
	state := session.incrementRetries(second)
	if state.RetryCount != 2 || !errors.Is(state.LastError, second) {
		t.Fatalf("unexpected state after retries: %+v", state)
	}

	state = session.resetRetries()
	if state.RetryCount != 0 || state.LastError != nil {
		t.Fatalf("expected reset state, got %+v", state)
	}

	if got := session.setPassiveMode(PassiveModeHalted).Mode; got != PassiveModeHalted {
		t.Fatalf("expected halted mode, got %q", got)
	}
}

func TestSessionIDsAreUnique(t *testing.T) {
	first, second := NewSession(), NewSession()
	if first.ID() == "" || first.ID() == second.ID() {
		t.Fatalf("expected distinct session IDs, got %q and %q", first.ID(), second.ID())
	}
	if got := first.PassiveState().Mode; got != PassiveModeIdle {
		t.Fatalf("expected new session to be idle, got %q", got)
	}
}
