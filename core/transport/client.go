package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const DefaultBaseURL = "http://localhost:8000/api"

const maxErrorBodyBytes = 64 * 1024

// Client sends JSON requests to the local assistant services.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type ClientOption func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// Request describes one JSON call.
type Request struct {
	// Op names the call in errors and spans, e.g. "chat".
	Op   string
	Path string
	Body any

	// Timeout bounds the whole call including reading the body. Zero means
	// the caller's context alone decides.
	Timeout time.Duration

	// Schema, when set, validates the response body before decoding.
	Schema *Schema
}

// PostJSON posts req.Body and decodes the response into out. out may be nil
// when the response body is not consumed.
func (c *Client) PostJSON(ctx context.Context, req Request, out any) error {
	ctx, span := tracer.Start(ctx, "post "+req.Op)
	defer span.End()

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	err := c.postJSON(ctx, req, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.class", Classify(err)))
	}
	return err
}

func (c *Client) postJSON(ctx context.Context, req Request, out any) error {
	requestBodyBytes, err := json.Marshal(req.Body)
	if err != nil {
		return fmt.Errorf("%s: error marshalling JSON: %w", req.Op, err)
	}

	url := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBodyBytes))
	if err != nil {
		return fmt.Errorf("%s: error creating HTTP request: %w", req.Op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &TransportError{Op: req.Op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errorBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		if readErr != nil {
			logger.WarnContext(ctx, "error reading error body", "op", req.Op, "error", readErr)
		}
		return &ServiceError{StatusCode: resp.StatusCode, Status: resp.Status, Detail: errorDetail(errorBody)}
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return &TransportError{Op: req.Op, Err: err}
		}
		return &TransportError{Op: req.Op, Err: fmt.Errorf("error reading response body: %w", err)}
	}

	if out == nil {
		return nil
	}

	if req.Schema != nil {
		if err := req.Schema.Validate(bodyBytes); err != nil {
			return err
		}
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return &MalformedResponseError{Reason: "error unmarshalling " + req.Op + " response", Err: err}
	}
	return nil
}

// errorDetail extracts the `detail` field from an error body. Non-string
// details are kept in their JSON form.
func errorDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}

	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err == nil {
		return detail
	}
	return string(payload.Detail)
}
