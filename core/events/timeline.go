package events

import "github.com/koscakluka/ema-voice/core/conversations"

// KindTurnAppended identifies a newly recorded turn.
const KindTurnAppended Kind = "timeline.turn_appended"

// TurnAppended carries a turn just appended to the session timeline.
type TurnAppended struct {
	Base
	Turn conversations.Turn
}

// NewTurnAppended creates a turn appended event.
func NewTurnAppended(turn conversations.Turn) TurnAppended {
	return TurnAppended{Base: NewBase(KindTurnAppended), Turn: turn}
}
