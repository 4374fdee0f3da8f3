package events

// KindPassiveListeningChanged identifies passive supervisor state updates.
const KindPassiveListeningChanged Kind = "passive_listening.state_changed"

// PassiveListeningChanged is a snapshot of the passive supervisor state.
type PassiveListeningChanged struct {
	Base
	// Mode is one of "idle", "polling" or "halted".
	Mode       string
	RetryCount int
	// LastError is the most recent poll failure, empty once a poll succeeds.
	LastError string
}

// NewPassiveListeningChanged creates a passive listening changed event.
func NewPassiveListeningChanged(mode string, retryCount int, lastError string) PassiveListeningChanged {
	return PassiveListeningChanged{
		Base:       NewBase(KindPassiveListeningChanged),
		Mode:       mode,
		RetryCount: retryCount,
		LastError:  lastError,
	}
}
