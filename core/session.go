package orchestration

import (
	"context"
	"sync"

	"github.com/koscakluka/ema-voice/core/conversations"
	"github.com/oklog/ulid/v2"
)

type PassiveMode string

const (
	PassiveModeIdle    PassiveMode = "idle"
	PassiveModePolling PassiveMode = "polling"
	PassiveModeHalted  PassiveMode = "halted"
)

// PassiveState is a point-in-time view of the passive supervisor.
type PassiveState struct {
	Mode       PassiveMode
	RetryCount int
	LastError  error
}

// Session owns the state of one live conversation: its timeline, the busy
// gate shared by all turn entry points, and the passive listening state.
// State only changes through the named operations below.
type Session struct {
	id       string
	timeline *conversations.Timeline

	// gate is a single-slot semaphore; holding the slot means a turn is in
	// flight.
	gate chan struct{}

	mu      sync.RWMutex
	passive PassiveState
}

func NewSession() *Session {
	return &Session{
		id:       ulid.Make().String(),
		timeline: conversations.NewTimeline(),
		gate:     make(chan struct{}, 1),
		passive:  PassiveState{Mode: PassiveModeIdle},
	}
}

func (s *Session) ID() string { return s.id }

// Timeline gives read access to the session's turns.
func (s *Session) Timeline() conversations.HistoryReader { return s.timeline }

func (s *Session) appendTurn(draft conversations.TurnDraft) (conversations.Turn, error) {
	return s.timeline.Append(draft)
}

// setBusy takes the turn slot if it is free. It never blocks.
func (s *Session) setBusy() bool {
	select {
	case s.gate <- struct{}{}:
		return true
	default:
		return false
	}
}

// waitBusy takes the turn slot, waiting for an in-flight turn to finish.
func (s *Session) waitBusy(ctx context.Context) error {
	select {
	case s.gate <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) clearBusy() {
	select {
	case <-s.gate:
	default:
	}
}

func (s *Session) IsBusy() bool { return len(s.gate) == cap(s.gate) }

func (s *Session) PassiveState() PassiveState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.passive
}

func (s *Session) setPassiveMode(mode PassiveMode) PassiveState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passive.Mode = mode
	return s.passive
}

func (s *Session) incrementRetries(err error) PassiveState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passive.RetryCount++
	s.passive.LastError = err
	return s.passive
}

// resetRetries zeroes the retry count and forgets the last poll error.
func (s *Session) resetRetries() PassiveState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passive.RetryCount = 0
	s.passive.LastError = nil
	return s.passive
}
