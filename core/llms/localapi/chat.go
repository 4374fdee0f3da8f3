package localapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/koscakluka/ema-voice/core/conversations"
	"github.com/koscakluka/ema-voice/core/llms"
	"github.com/koscakluka/ema-voice/core/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultTimeout = 120 * time.Second

	chatPath        = "chat"
	dataURLPrefix   = "data:image"
	pngDataURLStart = "data:image/png;base64,"
)

type chatResponseBody struct {
	Response string `json:"response"`
}

// typedChatResponseBody is the older reply shape that distinguishes text from
// generated images.
type typedChatResponseBody struct {
	Type    string `json:"type" jsonschema:"enum=chat,enum=image"`
	Message string `json:"message"`
}

var (
	chatResponseSchema      = transport.MustReflectSchema[chatResponseBody]("chat response")
	typedChatResponseSchema = transport.MustReflectSchema[typedChatResponseBody]("typed chat response")
)

// ChatClient prompts the local chat service.
type ChatClient struct {
	transport *transport.Client
	timeout   time.Duration
}

type ChatClientOption func(*ChatClient)

func WithTimeout(timeout time.Duration) ChatClientOption {
	return func(c *ChatClient) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func NewChatClient(client *transport.Client, opts ...ChatClientOption) *ChatClient {
	c := &ChatClient{transport: client, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Prompt sends prompt on its own and returns the service's reply.
func (c *ChatClient) Prompt(ctx context.Context, prompt string) (*llms.ChatResponse, error) {
	ctx, span := tracer.Start(ctx, "prompt chat")
	defer span.End()

	span.SetAttributes(attribute.Int("request.prompt_length", len(prompt)))

	var raw json.RawMessage
	if err := c.transport.PostJSON(ctx, transport.Request{
		Op:      "chat",
		Path:    chatPath,
		Body:    llms.ChatRequest{Prompt: prompt},
		Timeout: c.timeout,
	}, &raw); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	response, err := decodeChatResponse(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.WarnContext(ctx, "chat service returned malformed response", "error", err)
		return nil, err
	}

	span.SetAttributes(attribute.String("response.kind", string(response.Kind)))
	return response, nil
}

func decodeChatResponse(raw []byte) (*llms.ChatResponse, error) {
	schemaErr := chatResponseSchema.Validate(raw)
	if schemaErr == nil {
		var body chatResponseBody
		if err := json.Unmarshal(raw, &body); err != nil {
			return nil, &transport.MalformedResponseError{Reason: "error unmarshalling chat response", Err: err}
		}
		return &llms.ChatResponse{Content: body.Response, Kind: conversations.MediaKindText}, nil
	}

	if typedChatResponseSchema.Validate(raw) != nil {
		return nil, schemaErr
	}

	var body typedChatResponseBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, &transport.MalformedResponseError{Reason: "error unmarshalling typed chat response", Err: err}
	}

	if body.Message == "" {
		return nil, &transport.MalformedResponseError{Reason: fmt.Sprintf("%s response without message", body.Type)}
	}

	switch body.Type {
	case "image":
		content := body.Message
		if !strings.HasPrefix(content, dataURLPrefix) {
			content = pngDataURLStart + content
		}
		return &llms.ChatResponse{Content: content, Kind: conversations.MediaKindImage}, nil
	default:
		return &llms.ChatResponse{Content: body.Message, Kind: conversations.MediaKindText}, nil
	}
}
