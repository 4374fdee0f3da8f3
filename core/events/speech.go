package events

// KindSpeechDispatchFailed identifies failed synthesis requests.
const KindSpeechDispatchFailed Kind = "assistant_speech.dispatch_failed"

// SpeechDispatchFailed reports a synthesis failure. It never affects the
// timeline.
type SpeechDispatchFailed struct {
	Base
	Text string
	Err  error
}

// NewSpeechDispatchFailed creates a speech dispatch failed event.
func NewSpeechDispatchFailed(text string, err error) SpeechDispatchFailed {
	return SpeechDispatchFailed{Base: NewBase(KindSpeechDispatchFailed), Text: text, Err: err}
}
