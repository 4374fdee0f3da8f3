package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	orchestration "github.com/koscakluka/ema-voice/core"
	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/feed"
	llmlocal "github.com/koscakluka/ema-voice/core/llms/localapi"
	sttlocal "github.com/koscakluka/ema-voice/core/speechtotext/localapi"
	ttslocal "github.com/koscakluka/ema-voice/core/texttospeech/localapi"
	"github.com/koscakluka/ema-voice/core/transport"
	"github.com/koscakluka/ema-voice/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ema-voice: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logs, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer logs.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := transport.NewClient(cfg.BaseURL)
	forwarder := &eventForwarder{}

	var hub atomic.Pointer[feed.Hub]
	orchestrator := orchestration.NewOrchestrator(
		orchestration.WithBaseContext(ctx),
		orchestration.WithChatClient(llmlocal.NewChatClient(client, llmlocal.WithTimeout(cfg.ChatTimeout))),
		orchestration.WithCaptureClient(sttlocal.NewCaptureClient(client,
			sttlocal.WithPassiveTimeout(cfg.PassiveTimeout),
			sttlocal.WithManualTimeout(cfg.ManualTimeout),
		)),
		orchestration.WithSpeechSynthesizer(ttslocal.NewSpeechClient(client, ttslocal.WithTimeout(cfg.SpeakTimeout))),
		orchestration.WithSpeechQueueCapacity(cfg.SpeechQueueCapacity),
		orchestration.WithPassiveConfig(orchestration.PassiveConfig{
			PollDelay:  cfg.PollDelay,
			RetryDelay: cfg.RetryDelay,
			MaxRetries: cfg.MaxRetries,
		}),
		orchestration.WithEventHandler(logEvent),
		orchestration.WithEventHandler(forwarder.handle),
		orchestration.WithEventHandler(func(event events.Event) {
			if h := hub.Load(); h != nil {
				h.Handle(event)
			}
		}),
	)
	defer orchestrator.Close()
	orchestrator.SetSpeechMuted(!cfg.SpeechEnabled)

	slog.Info("session started",
		"session_id", orchestrator.Session().ID(),
		"base_url", client.BaseURL(),
		"headless", cfg.Headless)

	if cfg.FeedAddr != "" {
		feedHub := feed.NewHub(orchestrator)
		hub.Store(feedHub)
		server := newFeedServer(cfg.FeedAddr, feedHub)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("feed server stopped", "error", err)
			}
		}()
		defer func() {
			feedHub.Close()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
		slog.Info("timeline feed listening", "addr", cfg.FeedAddr)
	}

	if cfg.PassiveOnStart || cfg.Headless {
		if _, err := orchestrator.StartPassiveListening(ctx); err != nil {
			return fmt.Errorf("start passive listening: %w", err)
		}
	}

	if cfg.Headless {
		return runHeadless(ctx, orchestrator)
	}
	return runTUI(ctx, orchestrator, forwarder)
}

func newFeedServer(addr string, hub *feed.Hub) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/feed", hub)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// runHeadless keeps passive listening on until the process is interrupted.
func runHeadless(ctx context.Context, orchestrator *orchestration.Orchestrator) error {
	select {
	case <-ctx.Done():
	case <-orchestrator.PassiveDone():
		if state := orchestrator.PassiveState(); state.Mode == orchestration.PassiveModeHalted {
			slog.Warn("passive listening halted, waiting for interrupt")
		}
		<-ctx.Done()
	}

	slog.Info("shutting down")
	return nil
}

func logEvent(event events.Event) {
	switch e := event.(type) {
	case events.TurnAppended:
		slog.Info("turn appended",
			"sequence", e.Turn.Sequence,
			"role", e.Turn.Role,
			"media_kind", e.Turn.MediaKind,
			"is_error", e.Turn.IsError)
	case events.PassiveListeningChanged:
		slog.Info("passive listening changed",
			"mode", e.Mode,
			"retry_count", e.RetryCount,
			"last_error", e.LastError)
	case events.SpeechDispatchFailed:
		slog.Warn("speech dispatch failed", "error", e.Err)
	}
}
