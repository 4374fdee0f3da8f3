package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/koscakluka/ema-voice/core/conversations"
	"github.com/koscakluka/ema-voice/core/events"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultApologyMessage       = "Sorry, I encountered an error. Please try again."
	DefaultPassiveHaltedMessage = "Passive listening stopped after repeated errors. Turn it back on to keep listening."
)

var (
	// ErrTurnInFlight is returned when a turn is requested while another one
	// holds the busy gate. The request is dropped, not queued.
	ErrTurnInFlight         = errors.New("a turn is already in flight")
	ErrEmptyUtterance       = errors.New("utterance is empty")
	ErrManualCaptureActive  = errors.New("manual capture already in progress")
	ErrChatNotConfigured    = errors.New("chat client not configured")
	ErrCaptureNotConfigured = errors.New("capture client not configured")
)

type Orchestrator struct {
	session *Session

	chat           ChatClient
	passiveCapture PassiveCapture
	manualCapture  ManualCapture

	speech        speechDispatcher
	emitter       eventEmitter
	passive       *PassiveSupervisor
	passiveConfig PassiveConfig

	apologyMessage       string
	passiveHaltedMessage string

	manualActive atomic.Bool

	baseContext context.Context
	closeOnce   sync.Once
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		session:              NewSession(),
		baseContext:          context.Background(),
		passiveConfig:        DefaultPassiveConfig(),
		apologyMessage:       DefaultApologyMessage,
		passiveHaltedMessage: DefaultPassiveHaltedMessage,
		speech:               speechDispatcher{capacity: defaultSpeechQueueCapacity},
	}

	for _, opt := range opts {
		opt(o)
	}

	o.speech.init(o.baseContext, &o.emitter)
	o.passive = newPassiveSupervisor(o, o.passiveConfig)

	return o
}

// Close stops passive listening and the speech worker. Turns already accepted
// still complete.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.passive.Deactivate()
		o.speech.close()
	})
}

func (o *Orchestrator) Session() *Session { return o.session }

// Turns returns a copy of the timeline in append order.
func (o *Orchestrator) Turns() []conversations.Turn { return o.session.Timeline().Turns() }

// TurnsSince returns the turns recorded after the given sequence.
func (o *Orchestrator) TurnsSince(after int64) []conversations.Turn {
	return o.session.timeline.Since(after)
}

func (o *Orchestrator) IsBusy() bool { return o.session.IsBusy() }

func (o *Orchestrator) PassiveState() PassiveState { return o.session.PassiveState() }

// StartPassiveListening activates the passive supervisor. It reports false
// when the supervisor is already polling.
func (o *Orchestrator) StartPassiveListening(ctx context.Context) (bool, error) {
	if o.passiveCapture == nil {
		return false, ErrCaptureNotConfigured
	}
	return o.passive.Activate(ctx), nil
}

// StopPassiveListening stops the supervisor and waits for its loop to exit.
// A turn started from a passive capture is allowed to finish first.
func (o *Orchestrator) StopPassiveListening() {
	o.passive.Deactivate()
}

// PassiveDone is closed when the current passive loop exits, either because
// it halted or because it was stopped.
func (o *Orchestrator) PassiveDone() <-chan struct{} { return o.passive.Done() }

func (o *Orchestrator) appendTurn(draft conversations.TurnDraft) (conversations.Turn, error) {
	turn, err := o.session.appendTurn(draft)
	if err != nil {
		return conversations.Turn{}, err
	}

	o.emitter.emit(events.NewTurnAppended(turn))
	return turn, nil
}

func (o *Orchestrator) emitPassiveState(state PassiveState) {
	o.emitter.emit(passiveStateEvent(state))
}

// reportFailure appends a standalone assistant error notice. It waits for the
// busy gate so a notice never separates a user turn from its reply.
func (o *Orchestrator) reportFailure(ctx context.Context, message string) error {
	if err := o.session.waitBusy(ctx); err != nil {
		return fmt.Errorf("failed to wait for in-flight turn: %w", err)
	}
	defer o.session.clearBusy()

	if _, err := o.appendTurn(conversations.AssistantErrorTurn(message)); err != nil {
		recordedErr := fmt.Errorf("failed to append failure notice: %w", err)
		span := trace.SpanFromContext(ctx)
		span.RecordError(recordedErr)
		span.SetStatus(codes.Error, recordedErr.Error())
		return recordedErr
	}

	return nil
}
