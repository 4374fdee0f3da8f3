package orchestration

import (
	"context"
	"fmt"

	"github.com/koscakluka/ema-voice/core/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TriggerManualCapture records one short utterance and runs a turn with it.
// It works regardless of the passive supervisor's mode.
//
// An empty transcript is not an error and records nothing. A capture failure
// records a single assistant error notice and is returned wrapped.
func (o *Orchestrator) TriggerManualCapture(ctx context.Context) error {
	if o.manualCapture == nil {
		return ErrCaptureNotConfigured
	}
	if !o.manualActive.CompareAndSwap(false, true) {
		return ErrManualCaptureActive
	}
	defer o.manualActive.Store(false)

	if o.session.IsBusy() {
		return ErrTurnInFlight
	}

	ctx, span := tracer.Start(ctx, "manual capture")
	defer span.End()

	capture, err := o.manualCapture.ListenManual(ctx)
	if err != nil {
		err = fmt.Errorf("manual capture failed: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.class", transport.Classify(err)))

		if ctx.Err() != nil {
			return err
		}

		logger.WarnContext(ctx, "manual capture failed",
			"session_id", o.session.ID(),
			"error_class", transport.Classify(err),
			"error", err)
		if reportErr := o.reportFailure(ctx, o.apologyMessage); reportErr != nil {
			logger.ErrorContext(ctx, "failed to report manual capture failure", "error", reportErr)
		}
		return err
	}

	if capture.IsEmpty() {
		span.SetAttributes(attribute.Bool("capture.empty", true))
		return nil
	}

	if _, err := o.RunTurn(ctx, capture.Text); err != nil {
		return fmt.Errorf("failed to run turn for manual capture: %w", err)
	}

	return nil
}
