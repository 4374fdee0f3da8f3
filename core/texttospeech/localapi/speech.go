package localapi

import (
	"context"
	"time"

	"github.com/koscakluka/ema-voice/core/texttospeech"
	"github.com/koscakluka/ema-voice/core/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultTimeout = 15 * time.Second

	speakPath = "speak"
)

type SpeechClient struct {
	transport *transport.Client
	timeout   time.Duration
}

type SpeechClientOption func(*SpeechClient)

func WithTimeout(timeout time.Duration) SpeechClientOption {
	return func(c *SpeechClient) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func NewSpeechClient(client *transport.Client, opts ...SpeechClientOption) *SpeechClient {
	c := &SpeechClient{transport: client, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Speak asks the synthesis service to speak text. It returns once the service
// has accepted the request.
func (c *SpeechClient) Speak(ctx context.Context, text string) error {
	ctx, span := tracer.Start(ctx, "speak")
	defer span.End()

	span.SetAttributes(attribute.Int("request.text_length", len(text)))
	err := c.transport.PostJSON(ctx, transport.Request{
		Op:      "speak",
		Path:    speakPath,
		Body:    texttospeech.SpeakRequest{Text: text},
		Timeout: c.timeout,
	}, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
