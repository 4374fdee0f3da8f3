package orchestration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/koscakluka/ema-voice/core/conversations"
	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/llms"
	"github.com/koscakluka/ema-voice/core/speechtotext"
)

func waitForCondition(t *testing.T, timeout time.Duration, description string, condition func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Fatalf("timed out waiting for %s", description)
}

func fastPassiveConfig() PassiveConfig {
	return PassiveConfig{
		PollDelay:  time.Millisecond,
		RetryDelay: time.Millisecond,
		MaxRetries: DefaultPassiveMaxRetries,
	}
}

type chatStub struct {
	mu      sync.Mutex
	prompts []string

	response *llms.ChatResponse
	err      error
	// release, when set, blocks Prompt until it is closed.
	release chan struct{}
	started chan struct{}
}

func replyWith(content string) *chatStub {
	return &chatStub{response: &llms.ChatResponse{Content: content, Kind: conversations.MediaKindText}}
}

func (stub *chatStub) Prompt(ctx context.Context, prompt string) (*llms.ChatResponse, error) {
	stub.mu.Lock()
	stub.prompts = append(stub.prompts, prompt)
	release := stub.release
	started := stub.started
	stub.mu.Unlock()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if release != nil {
		<-release
	}

	return stub.response, stub.err
}

func (stub *chatStub) Prompts() []string {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	return append([]string(nil), stub.prompts...)
}

// passiveCaptureStub plays back scripted results in order, then keeps
// answering with fallback.
type passiveCaptureStub struct {
	mu       sync.Mutex
	script   []passiveStep
	fallback passiveStep
	calls    int
}

type passiveStep struct {
	result speechtotext.PassiveResult
	err    error
}

func (stub *passiveCaptureStub) ListenPassive(ctx context.Context) (speechtotext.PassiveResult, error) {
	stub.mu.Lock()
	stub.calls++
	step := stub.fallback
	if len(stub.script) > 0 {
		step = stub.script[0]
		stub.script = stub.script[1:]
	}
	stub.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if step.result == nil && step.err == nil {
		return speechtotext.PassiveWaiting{}, nil
	}
	return step.result, step.err
}

func (stub *passiveCaptureStub) Calls() int {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	return stub.calls
}

type manualCaptureStub struct {
	mu      sync.Mutex
	calls   int
	capture speechtotext.ManualCapture
	err     error
	release chan struct{}
	started chan struct{}
}

func (stub *manualCaptureStub) ListenManual(ctx context.Context) (speechtotext.ManualCapture, error) {
	stub.mu.Lock()
	stub.calls++
	release := stub.release
	started := stub.started
	stub.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return speechtotext.ManualCapture{}, ctx.Err()
		}
	}

	return stub.capture, stub.err
}

func (stub *manualCaptureStub) Calls() int {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	return stub.calls
}

type speechStub struct {
	mu     sync.Mutex
	texts  []string
	err    error
	active int
	// overlapped is set if two Speak calls ever ran at the same time.
	overlapped bool
	delay      time.Duration
	release    chan struct{}
}

func (stub *speechStub) Speak(ctx context.Context, text string) error {
	stub.mu.Lock()
	stub.active++
	if stub.active > 1 {
		stub.overlapped = true
	}
	release := stub.release
	stub.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
		}
	}
	if stub.delay > 0 {
		time.Sleep(stub.delay)
	}

	stub.mu.Lock()
	defer stub.mu.Unlock()
	stub.active--
	stub.texts = append(stub.texts, text)
	return stub.err
}

func (stub *speechStub) Texts() []string {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	return append([]string(nil), stub.texts...)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) handle(event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

func (r *eventRecorder) Kinds() []events.Kind {
	recorded := r.Events()
	kinds := make([]events.Kind, 0, len(recorded))
	for _, event := range recorded {
		kinds = append(kinds, event.Kind())
	}
	return kinds
}
