package localapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/koscakluka/ema-voice/core/speechtotext"
	"github.com/koscakluka/ema-voice/core/transport"
)

func newCaptureServer(t *testing.T, path string, status int, body string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			t.Errorf("expected path %q, got %q", path, r.URL.Path)
		}
		var request captureRequestBody
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if path == "/api/passive-listen" && request.Mode != speechtotext.CaptureModePassive {
			t.Errorf("expected passive mode, got %q", request.Mode)
		}
		if path == "/api/listen" && request.Mode != speechtotext.CaptureModeManual {
			t.Errorf("expected manual mode, got %q", request.Mode)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestListenPassiveClassifiesStatuses(t *testing.T) {
	tests := []struct {
		body string
		want speechtotext.PassiveResult
	}{
		{body: `{"status":"success","text":"hello"}`, want: speechtotext.PassiveSuccess{Text: "hello"}},
		{body: `{"status":"waiting"}`, want: speechtotext.PassiveWaiting{}},
		{body: `{"status":"timeout"}`, want: speechtotext.PassiveTimeout{}},
		{body: `{"status":"too_short"}`, want: speechtotext.PassiveTooShort{}},
		{body: `{"status":"no_speech"}`, want: speechtotext.PassiveNoSpeech{}},
		{body: `{"status":"error","message":"device busy"}`, want: speechtotext.PassiveError{Detail: "device busy"}},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			server := newCaptureServer(t, "/api/passive-listen", http.StatusOK, tt.body)

			got, err := NewCaptureClient(transport.NewClient(server.URL + "/api")).ListenPassive(context.Background())
			if err != nil {
				t.Fatalf("expected success, got %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %#v, got %#v", tt.want, got)
			}
		})
	}
}

func TestListenPassiveUnknownStatusIsMalformed(t *testing.T) {
	server := newCaptureServer(t, "/api/passive-listen", http.StatusOK, `{"status":"dreaming"}`)

	_, err := NewCaptureClient(transport.NewClient(server.URL + "/api")).ListenPassive(context.Background())
	if !transport.IsMalformed(err) {
		t.Fatalf("expected malformed response error, got %v", err)
	}
}

func TestListenPassiveServiceError(t *testing.T) {
	server := newCaptureServer(t, "/api/passive-listen", http.StatusInternalServerError, `{"detail":"Timeout waiting for speech after wake word."}`)

	_, err := NewCaptureClient(transport.NewClient(server.URL + "/api")).ListenPassive(context.Background())
	if !transport.IsService(err) {
		t.Fatalf("expected service error, got %v", err)
	}
}

func TestListenManualReturnsTranscript(t *testing.T) {
	server := newCaptureServer(t, "/api/listen", http.StatusOK, `{"text":"turn on the lights"}`)

	capture, err := NewCaptureClient(transport.NewClient(server.URL + "/api")).ListenManual(context.Background())
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if capture.Text != "turn on the lights" {
		t.Fatalf("unexpected transcript %q", capture.Text)
	}
}

func TestListenManualMissingTextIsMalformed(t *testing.T) {
	server := newCaptureServer(t, "/api/listen", http.StatusOK, `{}`)

	_, err := NewCaptureClient(transport.NewClient(server.URL + "/api")).ListenManual(context.Background())
	if !transport.IsMalformed(err) {
		t.Fatalf("expected malformed response error, got %v", err)
	}
}
