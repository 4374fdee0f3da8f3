package feed

import "go.opentelemetry.io/contrib/bridges/otelslog"

const scopeName = "github.com/koscakluka/ema-voice/core/feed"

var logger = otelslog.NewLogger(scopeName)
