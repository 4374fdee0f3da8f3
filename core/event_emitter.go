package orchestration

import (
	"sync"

	"github.com/koscakluka/ema-voice/core/events"
)

type eventEmitter struct {
	mu       sync.RWMutex
	handlers []func(events.Event)
}

func (e *eventEmitter) add(handler func(events.Event)) {
	if handler == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
}

func (e *eventEmitter) emit(event events.Event) {
	e.mu.RLock()
	handlers := e.handlers
	e.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}

func passiveStateEvent(state PassiveState) events.PassiveListeningChanged {
	lastError := ""
	if state.LastError != nil {
		lastError = state.LastError.Error()
	}
	return events.NewPassiveListeningChanged(string(state.Mode), state.RetryCount, lastError)
}
