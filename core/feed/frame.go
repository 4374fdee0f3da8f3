package feed

import (
	"fmt"
	"time"

	"github.com/jinzhu/copier"
	orchestration "github.com/koscakluka/ema-voice/core"
	"github.com/koscakluka/ema-voice/core/conversations"
	"github.com/koscakluka/ema-voice/core/events"
)

// KindSnapshot is sent once to every client right after it connects.
const KindSnapshot = "snapshot"

// Frame is one JSON message sent to feed clients.
type Frame struct {
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`

	Turn    *TurnMessage    `json:"turn,omitempty"`
	Turns   []TurnMessage   `json:"turns,omitempty"`
	Passive *PassiveMessage `json:"passive,omitempty"`
	Busy    *bool           `json:"busy,omitempty"`

	// Error is set on speech failure frames.
	Error string `json:"error,omitempty"`
}

type TurnMessage struct {
	ID        string                  `json:"id"`
	Sequence  int64                   `json:"sequence"`
	Role      conversations.Role      `json:"role"`
	Content   string                  `json:"content"`
	MediaKind conversations.MediaKind `json:"media_kind"`
	IsError   bool                    `json:"is_error"`
	CreatedAt time.Time               `json:"created_at"`
}

type PassiveMessage struct {
	Mode       string `json:"mode"`
	RetryCount int    `json:"retry_count"`
	LastError  string `json:"last_error,omitempty"`
}

func newTurnMessage(turn conversations.Turn) (TurnMessage, error) {
	var message TurnMessage
	if err := copier.Copy(&message, &turn); err != nil {
		return TurnMessage{}, fmt.Errorf("failed to convert turn %s: %w", turn.ID, err)
	}
	return message, nil
}

func newTurnMessages(turns []conversations.Turn) ([]TurnMessage, error) {
	messages := make([]TurnMessage, 0, len(turns))
	if err := copier.Copy(&messages, &turns); err != nil {
		return nil, fmt.Errorf("failed to convert turns: %w", err)
	}
	return messages, nil
}

func newPassiveMessage(state orchestration.PassiveState) *PassiveMessage {
	message := &PassiveMessage{Mode: string(state.Mode), RetryCount: state.RetryCount}
	if state.LastError != nil {
		message.LastError = state.LastError.Error()
	}
	return message
}

// newEventFrame converts an orchestrator event to a frame. ok is false for
// events the feed does not forward.
func newEventFrame(event events.Event) (frame Frame, ok bool, err error) {
	frame = Frame{Kind: string(event.Kind()), Timestamp: event.Timestamp()}

	switch e := event.(type) {
	case events.TurnAppended:
		turn, err := newTurnMessage(e.Turn)
		if err != nil {
			return Frame{}, false, err
		}
		frame.Turn = &turn
	case events.TurnBusyChanged:
		busy := e.IsBusy
		frame.Busy = &busy
	case events.PassiveListeningChanged:
		frame.Passive = &PassiveMessage{Mode: e.Mode, RetryCount: e.RetryCount, LastError: e.LastError}
	case events.SpeechDispatchFailed:
		if e.Err != nil {
			frame.Error = e.Err.Error()
		}
	default:
		return Frame{}, false, nil
	}

	return frame, true, nil
}
