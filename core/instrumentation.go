package orchestration

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/ema-voice/core"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)

	turnCounter, _ = meter.Int64Counter("ema.turns",
		metric.WithDescription("Turns accepted by the orchestrator"))
	turnFailureCounter, _ = meter.Int64Counter("ema.turn.failures",
		metric.WithDescription("Turns answered with an apology instead of a chat response"))
	pollErrorCounter, _ = meter.Int64Counter("ema.passive.poll_errors",
		metric.WithDescription("Passive capture polls that failed"))
	speechFailureCounter, _ = meter.Int64Counter("ema.speech.failures",
		metric.WithDescription("Speech synthesis requests that failed"))
)
