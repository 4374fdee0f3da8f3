package events

// KindTurnBusyChanged identifies busy gate transitions.
const KindTurnBusyChanged Kind = "turn_state.busy_changed"

// TurnBusyChanged reports whether a turn is in flight.
type TurnBusyChanged struct {
	Base
	IsBusy bool
}

// NewTurnBusyChanged creates a busy changed event.
func NewTurnBusyChanged(isBusy bool) TurnBusyChanged {
	return TurnBusyChanged{Base: NewBase(KindTurnBusyChanged), IsBusy: isBusy}
}
