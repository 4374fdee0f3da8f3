package orchestration

import (
	"context"
	"fmt"
	"strings"

	"github.com/koscakluka/ema-voice/core/conversations"
	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Exchange is the pair of turns recorded by one accepted RunTurn call.
type Exchange struct {
	User      conversations.Turn
	Assistant conversations.Turn

	// Err is the chat failure the assistant turn stands in for, if any. It is
	// kept for callers that log; the timeline only ever shows the apology.
	Err error
}

// Failed reports whether the assistant turn is an error notice.
func (e Exchange) Failed() bool { return e.Assistant.IsError }

// SendPrompt runs a turn for typed text using the orchestrator's base context.
func (o *Orchestrator) SendPrompt(prompt string) (Exchange, error) {
	return o.RunTurn(o.baseContext, prompt)
}

// RunTurn records one user utterance, asks the chat service for a reply and
// records the reply. Only the utterance is sent; prior turns are not.
//
// A turn is rejected with ErrTurnInFlight when another is running and with
// ErrEmptyUtterance when there is nothing to send; in both cases the timeline
// is left untouched. Chat failures are not returned as errors: the assistant
// turn carries the apology message instead.
func (o *Orchestrator) RunTurn(ctx context.Context, utterance string) (Exchange, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return Exchange{}, ErrEmptyUtterance
	}
	if o.chat == nil {
		return Exchange{}, ErrChatNotConfigured
	}

	if !o.session.setBusy() {
		return Exchange{}, ErrTurnInFlight
	}
	o.emitter.emit(events.NewTurnBusyChanged(true))
	defer func() {
		o.session.clearBusy()
		o.emitter.emit(events.NewTurnBusyChanged(false))
	}()

	ctx, span := tracer.Start(ctx, "run turn", trace.WithAttributes(
		attribute.String("session.id", o.session.ID()),
	))
	defer span.End()

	turnCounter.Add(ctx, 1)

	userTurn, err := o.appendTurn(conversations.UserTurn(utterance))
	if err != nil {
		err = fmt.Errorf("failed to append user turn: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Exchange{}, err
	}

	draft, chatErr := o.promptChat(ctx, utterance)
	if chatErr != nil {
		errorClass := transport.Classify(chatErr)
		span.RecordError(chatErr)
		span.SetStatus(codes.Error, "chat request failed")
		span.SetAttributes(attribute.String("error.class", errorClass))
		turnFailureCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("error.class", errorClass)))
		logger.ErrorContext(ctx, "chat request failed",
			"session_id", o.session.ID(),
			"error_class", errorClass,
			"error", chatErr)
	}

	assistantTurn, err := o.appendTurn(draft)
	if err != nil {
		err = fmt.Errorf("failed to append assistant turn: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Exchange{User: userTurn}, err
	}

	if !assistantTurn.IsError && assistantTurn.MediaKind == conversations.MediaKindText {
		o.speech.dispatch(assistantTurn.Content)
	}

	return Exchange{User: userTurn, Assistant: assistantTurn, Err: chatErr}, nil
}

func (o *Orchestrator) promptChat(ctx context.Context, utterance string) (conversations.TurnDraft, error) {
	response, err := o.chat.Prompt(ctx, utterance)
	if err == nil && response == nil {
		err = &transport.MalformedResponseError{Reason: "empty chat response"}
	}
	if err != nil {
		return conversations.AssistantErrorTurn(o.apologyMessage), err
	}

	return conversations.AssistantTurn(response.Content, response.Kind), nil
}
