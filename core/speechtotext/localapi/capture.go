package localapi

import (
	"context"
	"time"

	"github.com/koscakluka/ema-voice/core/speechtotext"
	"github.com/koscakluka/ema-voice/core/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	// DefaultPassiveTimeout leaves headroom over the service's own wake word
	// wait so that its timeout status arrives before ours fires.
	DefaultPassiveTimeout = 90 * time.Second
	DefaultManualTimeout  = 30 * time.Second

	passivePath = "passive-listen"
	manualPath  = "listen"
)

type captureRequestBody struct {
	Mode speechtotext.CaptureMode `json:"mode"`
}

type passiveResponseBody struct {
	Status  string `json:"status" jsonschema:"enum=success,enum=waiting,enum=timeout,enum=too_short,enum=no_speech,enum=error"`
	Text    string `json:"text,omitempty"`
	Message string `json:"message,omitempty"`
}

type manualResponseBody struct {
	Text string `json:"text"`
}

var (
	passiveResponseSchema = transport.MustReflectSchema[passiveResponseBody]("passive capture response")
	manualResponseSchema  = transport.MustReflectSchema[manualResponseBody]("manual capture response")
)

// CaptureClient requests captured and transcribed utterances from the local
// capture service.
type CaptureClient struct {
	transport      *transport.Client
	passiveTimeout time.Duration
	manualTimeout  time.Duration
}

type CaptureClientOption func(*CaptureClient)

func WithPassiveTimeout(timeout time.Duration) CaptureClientOption {
	return func(c *CaptureClient) {
		if timeout > 0 {
			c.passiveTimeout = timeout
		}
	}
}

func WithManualTimeout(timeout time.Duration) CaptureClientOption {
	return func(c *CaptureClient) {
		if timeout > 0 {
			c.manualTimeout = timeout
		}
	}
}

func NewCaptureClient(client *transport.Client, opts ...CaptureClientOption) *CaptureClient {
	c := &CaptureClient{
		transport:      client,
		passiveTimeout: DefaultPassiveTimeout,
		manualTimeout:  DefaultManualTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListenPassive issues one long-poll and classifies the reply.
func (c *CaptureClient) ListenPassive(ctx context.Context) (speechtotext.PassiveResult, error) {
	ctx, span := tracer.Start(ctx, "capture passive")
	defer span.End()

	var body passiveResponseBody
	if err := c.transport.PostJSON(ctx, transport.Request{
		Op:      "passive capture",
		Path:    passivePath,
		Body:    captureRequestBody{Mode: speechtotext.CaptureModePassive},
		Timeout: c.passiveTimeout,
		Schema:  passiveResponseSchema,
	}, &body); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result, ok := speechtotext.NewPassiveResult(speechtotext.PassiveStatus(body.Status), body.Text, body.Message)
	if !ok {
		err := &transport.MalformedResponseError{Reason: "unknown passive capture status " + body.Status}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.WarnContext(ctx, "capture service returned unknown status", "status", body.Status)
		return nil, err
	}

	span.SetAttributes(attribute.String("response.status", string(result.Status())))
	return result, nil
}

// ListenManual records one short fixed-duration utterance.
func (c *CaptureClient) ListenManual(ctx context.Context) (speechtotext.ManualCapture, error) {
	ctx, span := tracer.Start(ctx, "capture manual")
	defer span.End()

	var body manualResponseBody
	if err := c.transport.PostJSON(ctx, transport.Request{
		Op:      "manual capture",
		Path:    manualPath,
		Body:    captureRequestBody{Mode: speechtotext.CaptureModeManual},
		Timeout: c.manualTimeout,
		Schema:  manualResponseSchema,
	}, &body); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return speechtotext.ManualCapture{}, err
	}

	span.SetAttributes(attribute.Int("response.text_length", len(body.Text)))
	return speechtotext.ManualCapture{Text: body.Text}, nil
}
