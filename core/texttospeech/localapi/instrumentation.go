package localapi

import "go.opentelemetry.io/otel"

const scopeName = "github.com/koscakluka/ema-voice/core/texttospeech/localapi"

var tracer = otel.Tracer(scopeName)
