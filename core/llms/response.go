package llms

import "github.com/koscakluka/ema-voice/core/conversations"

// ChatRequest is the single-utterance prompt sent to the chat service. No
// conversation history is carried.
type ChatRequest struct {
	Prompt string `json:"prompt"`
}

// ChatResponse is a successful reply from the chat service.
type ChatResponse struct {
	Content string
	Kind    conversations.MediaKind
}
