package speechtotext

import "strings"

type CaptureMode string

const (
	CaptureModePassive CaptureMode = "passive"
	CaptureModeManual  CaptureMode = "manual"
)

type PassiveStatus string

const (
	PassiveStatusSuccess  PassiveStatus = "success"
	PassiveStatusWaiting  PassiveStatus = "waiting"
	PassiveStatusTimeout  PassiveStatus = "timeout"
	PassiveStatusTooShort PassiveStatus = "too_short"
	PassiveStatusNoSpeech PassiveStatus = "no_speech"
	PassiveStatusError    PassiveStatus = "error"
)

// PassiveResult is the classified outcome of one passive long-poll. It is
// implemented only by the types in this package; consumers switch over them
// exhaustively.
type PassiveResult interface {
	Status() PassiveStatus
	passiveResult()
}

// PassiveSuccess carries the captured transcript. Text may be empty when the
// capture produced no usable words.
type PassiveSuccess struct{ Text string }

// PassiveWaiting means the service is still waiting for a wake word.
type PassiveWaiting struct{}

// PassiveTimeout means the service's own capture window elapsed.
type PassiveTimeout struct{}

// PassiveTooShort means speech was detected but too short to transcribe.
type PassiveTooShort struct{}

// PassiveNoSpeech means audio was captured but contained no speech.
type PassiveNoSpeech struct{}

// PassiveError is a capture failure reported by the service itself.
type PassiveError struct{ Detail string }

func (PassiveSuccess) Status() PassiveStatus  { return PassiveStatusSuccess }
func (PassiveWaiting) Status() PassiveStatus  { return PassiveStatusWaiting }
func (PassiveTimeout) Status() PassiveStatus  { return PassiveStatusTimeout }
func (PassiveTooShort) Status() PassiveStatus { return PassiveStatusTooShort }
func (PassiveNoSpeech) Status() PassiveStatus { return PassiveStatusNoSpeech }
func (PassiveError) Status() PassiveStatus    { return PassiveStatusError }

func (PassiveSuccess) passiveResult()  {}
func (PassiveWaiting) passiveResult()  {}
func (PassiveTimeout) passiveResult()  {}
func (PassiveTooShort) passiveResult() {}
func (PassiveNoSpeech) passiveResult() {}
func (PassiveError) passiveResult()    {}

// HasSpeech reports whether the success carries a usable utterance.
func (r PassiveSuccess) HasSpeech() bool { return strings.TrimSpace(r.Text) != "" }

// NewPassiveResult maps a wire status to its variant. ok is false for
// statuses this package does not know.
func NewPassiveResult(status PassiveStatus, text, message string) (result PassiveResult, ok bool) {
	switch status {
	case PassiveStatusSuccess:
		return PassiveSuccess{Text: text}, true
	case PassiveStatusWaiting:
		return PassiveWaiting{}, true
	case PassiveStatusTimeout:
		return PassiveTimeout{}, true
	case PassiveStatusTooShort:
		return PassiveTooShort{}, true
	case PassiveStatusNoSpeech:
		return PassiveNoSpeech{}, true
	case PassiveStatusError:
		return PassiveError{Detail: message}, true
	default:
		return nil, false
	}
}

// ManualCapture is the transcript of one fixed-duration manual recording.
type ManualCapture struct {
	Text string
}

func (c ManualCapture) IsEmpty() bool { return strings.TrimSpace(c.Text) == "" }
