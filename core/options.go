package orchestration

import (
	"context"

	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/llms"
	"github.com/koscakluka/ema-voice/core/speechtotext"
)

type OrchestratorOption func(*Orchestrator)

// ChatClient sends a single utterance to the chat backend. Implementations
// must not carry conversation history between calls.
type ChatClient interface {
	Prompt(ctx context.Context, prompt string) (*llms.ChatResponse, error)
}

func WithChatClient(client ChatClient) OrchestratorOption {
	return func(o *Orchestrator) { o.chat = client }
}

type PassiveCapture interface {
	ListenPassive(ctx context.Context) (speechtotext.PassiveResult, error)
}

type ManualCapture interface {
	ListenManual(ctx context.Context) (speechtotext.ManualCapture, error)
}

// CaptureClient provides both passive long-poll and manual fixed-duration
// capture.
type CaptureClient interface {
	PassiveCapture
	ManualCapture
}

func WithCaptureClient(client CaptureClient) OrchestratorOption {
	return func(o *Orchestrator) {
		o.passiveCapture = client
		o.manualCapture = client
	}
}

// WithPassiveCapture sets only the passive capture source, e.g. when manual
// capture goes through a different service.
func WithPassiveCapture(client PassiveCapture) OrchestratorOption {
	return func(o *Orchestrator) { o.passiveCapture = client }
}

func WithManualCapture(client ManualCapture) OrchestratorOption {
	return func(o *Orchestrator) { o.manualCapture = client }
}

type SpeechSynthesizer interface {
	Speak(ctx context.Context, text string) error
}

func WithSpeechSynthesizer(client SpeechSynthesizer) OrchestratorOption {
	return func(o *Orchestrator) { o.speech.client = client }
}

// WithSpeechQueueCapacity bounds the number of assistant replies waiting to
// be spoken. Replies beyond the bound are not spoken.
func WithSpeechQueueCapacity(capacity int) OrchestratorOption {
	return func(o *Orchestrator) {
		if capacity > 0 {
			o.speech.capacity = capacity
		}
	}
}

func WithPassiveConfig(config PassiveConfig) OrchestratorOption {
	return func(o *Orchestrator) { o.passiveConfig = config.withDefaults() }
}

// WithApologyMessage replaces the text shown when a turn fails.
func WithApologyMessage(message string) OrchestratorOption {
	return func(o *Orchestrator) {
		if message != "" {
			o.apologyMessage = message
		}
	}
}

// WithPassiveHaltedMessage replaces the text shown when passive listening
// gives up after repeated errors.
func WithPassiveHaltedMessage(message string) OrchestratorOption {
	return func(o *Orchestrator) {
		if message != "" {
			o.passiveHaltedMessage = message
		}
	}
}

// WithEventHandler registers a handler for orchestrator events. Handlers run
// inline on the emitting goroutine and should not block. Multiple handlers
// are called in registration order.
func WithEventHandler(handler func(events.Event)) OrchestratorOption {
	return func(o *Orchestrator) { o.emitter.add(handler) }
}

// WithBaseContext sets the context used by entry points that do not take one,
// such as SendPrompt, and by speech dispatch.
func WithBaseContext(ctx context.Context) OrchestratorOption {
	return func(o *Orchestrator) {
		if ctx != nil {
			o.baseContext = ctx
		}
	}
}
