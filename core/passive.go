package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koscakluka/ema-voice/core/speechtotext"
	"github.com/koscakluka/ema-voice/core/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultPassivePollDelay  = time.Second
	DefaultPassiveRetryDelay = 5 * time.Second
	DefaultPassiveMaxRetries = 5
)

// PassiveConfig controls the passive listening loop.
type PassiveConfig struct {
	// PollDelay is the pause before the next poll after a successful cycle.
	PollDelay time.Duration
	// RetryDelay is the pause before the next poll after a failed cycle.
	RetryDelay time.Duration
	// MaxRetries is the number of consecutive failures after which passive
	// listening halts.
	MaxRetries int
}

func DefaultPassiveConfig() PassiveConfig {
	return PassiveConfig{
		PollDelay:  DefaultPassivePollDelay,
		RetryDelay: DefaultPassiveRetryDelay,
		MaxRetries: DefaultPassiveMaxRetries,
	}
}

func (c PassiveConfig) withDefaults() PassiveConfig {
	if c.PollDelay <= 0 {
		c.PollDelay = DefaultPassivePollDelay
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultPassiveRetryDelay
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultPassiveMaxRetries
	}
	return c
}

// PassiveSupervisor keeps a long-poll capture loop running while passive
// listening is on, feeding captured speech into turns. It stops itself after
// MaxRetries consecutive failures and stays halted until activated again.
type PassiveSupervisor struct {
	orchestrator *Orchestrator
	config       PassiveConfig

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	polls atomic.Int64
}

func newPassiveSupervisor(orchestrator *Orchestrator, config PassiveConfig) *PassiveSupervisor {
	done := make(chan struct{})
	close(done)

	return &PassiveSupervisor{
		orchestrator: orchestrator,
		config:       config.withDefaults(),
		done:         done,
	}
}

// Activate starts the loop from idle or halted. It is a no-op returning
// false while the loop is already polling.
func (s *PassiveSupervisor) Activate(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.orchestrator.session
	if session.PassiveState().Mode == PassiveModePolling {
		return false
	}

	// A halted loop has already exited; release its context.
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	session.resetRetries()
	s.orchestrator.emitPassiveState(session.setPassiveMode(PassiveModePolling))

	go s.run(loopCtx, done)
	return true
}

// Deactivate stops the loop, waits for it to exit and sets the mode to idle.
func (s *PassiveSupervisor) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return
	}

	s.cancel()
	<-s.done
	s.cancel = nil

	session := s.orchestrator.session
	if session.PassiveState().Mode != PassiveModeIdle {
		s.orchestrator.emitPassiveState(session.setPassiveMode(PassiveModeIdle))
	}
}

// State returns a snapshot of the passive listening state.
func (s *PassiveSupervisor) State() PassiveState {
	return s.orchestrator.session.PassiveState()
}

// Done is closed once the current loop has exited.
func (s *PassiveSupervisor) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Polls counts capture requests issued since the supervisor was created.
func (s *PassiveSupervisor) Polls() int64 { return s.polls.Load() }

func (s *PassiveSupervisor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	run := panicSafeNamedWorker("passive listening", func(ctx context.Context) error {
		for {
			delay, halted := s.pollOnce(ctx)
			if halted {
				return nil
			}
			if !sleepContext(ctx, delay) {
				return nil
			}
		}
	})

	session := s.orchestrator.session
	if err := run(ctx); err != nil {
		logger.Error("passive listening loop stopped", "error", err)
		s.orchestrator.emitPassiveState(session.setPassiveMode(PassiveModeHalted))
		return
	}

	if ctx.Err() != nil && session.PassiveState().Mode == PassiveModePolling {
		s.orchestrator.emitPassiveState(session.setPassiveMode(PassiveModeIdle))
	}
}

// pollOnce issues one capture request and handles its result. It returns the
// delay before the next poll, or halted when the loop must stop.
func (s *PassiveSupervisor) pollOnce(ctx context.Context) (delay time.Duration, halted bool) {
	ctx, span := tracer.Start(ctx, "passive poll")
	defer span.End()

	s.polls.Add(1)

	result, err := s.orchestrator.passiveCapture.ListenPassive(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return 0, true
		}
		return s.recordPollError(ctx, span, err)
	}

	span.SetAttributes(attribute.String("capture.status", string(result.Status())))

	switch r := result.(type) {
	case speechtotext.PassiveSuccess:
		s.resetRetries()
		if !r.HasSpeech() {
			return s.config.PollDelay, false
		}

		if _, err := s.orchestrator.RunTurn(context.WithoutCancel(ctx), r.Text); err != nil {
			if errors.Is(err, ErrTurnInFlight) {
				logger.InfoContext(ctx, "dropped passive utterance, turn already in flight",
					"session_id", s.orchestrator.session.ID())
			} else {
				logger.WarnContext(ctx, "passive turn failed", "error", err)
			}
		}
		return s.config.PollDelay, false

	case speechtotext.PassiveWaiting, speechtotext.PassiveTimeout,
		speechtotext.PassiveTooShort, speechtotext.PassiveNoSpeech:
		s.resetRetries()
		return s.config.PollDelay, false

	case speechtotext.PassiveError:
		return s.recordPollError(ctx, span, fmt.Errorf("capture service reported an error: %s", r.Detail))

	default:
		return s.recordPollError(ctx, span, fmt.Errorf("unknown passive capture result %T", result))
	}
}

func (s *PassiveSupervisor) recordPollError(ctx context.Context, span trace.Span, err error) (time.Duration, bool) {
	errorClass := transport.Classify(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("error.class", errorClass))
	pollErrorCounter.Add(ctx, 1)

	session := s.orchestrator.session
	state := session.incrementRetries(err)
	s.orchestrator.emitPassiveState(state)

	logger.WarnContext(ctx, "passive capture failed",
		"session_id", session.ID(),
		"retry_count", state.RetryCount,
		"error_class", errorClass,
		"error", err)

	if state.RetryCount < s.config.MaxRetries {
		return s.config.RetryDelay, false
	}

	s.halt(ctx)
	return 0, true
}

func (s *PassiveSupervisor) halt(ctx context.Context) {
	session := s.orchestrator.session
	s.orchestrator.emitPassiveState(session.setPassiveMode(PassiveModeHalted))

	logger.ErrorContext(ctx, "passive listening halted after repeated errors",
		"session_id", session.ID(),
		"max_retries", s.config.MaxRetries)

	if err := s.orchestrator.reportFailure(context.WithoutCancel(ctx), s.orchestrator.passiveHaltedMessage); err != nil {
		logger.ErrorContext(ctx, "failed to report passive halt", "error", err)
	}

	s.orchestrator.emitPassiveState(session.resetRetries())
}

func (s *PassiveSupervisor) resetRetries() {
	session := s.orchestrator.session
	state := session.PassiveState()
	if state.RetryCount == 0 && state.LastError == nil {
		return
	}
	s.orchestrator.emitPassiveState(session.resetRetries())
}
