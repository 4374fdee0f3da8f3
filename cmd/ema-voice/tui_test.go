package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	orchestration "github.com/koscakluka/ema-voice/core"
	"github.com/koscakluka/ema-voice/core/conversations"
	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/llms"
)

type chatStub struct {
	reply string
	err   error
}

func (stub chatStub) Prompt(context.Context, string) (*llms.ChatResponse, error) {
	if stub.err != nil {
		return nil, stub.err
	}
	return &llms.ChatResponse{Content: stub.reply, Kind: conversations.MediaKindText}, nil
}

func TestModelRendersTurnsAfterEvent(t *testing.T) {
	o := orchestration.NewOrchestrator(orchestration.WithChatClient(chatStub{reply: "hi there"}))
	defer o.Close()

	var m tea.Model = newModel(context.Background(), o)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	if _, err := o.RunTurn(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, _ = m.Update(eventMsg{event: events.NewTurnAppended(o.Turns()[1])})

	view := m.View()
	if !strings.Contains(view, "hello") || !strings.Contains(view, "hi there") {
		t.Fatalf("expected both turns in view, got:\n%s", view)
	}
	if !strings.Contains(view, "passive: idle") {
		t.Fatalf("expected passive state in header, got:\n%s", view)
	}
}

func TestSendPromptCmdReportsOutcome(t *testing.T) {
	o := orchestration.NewOrchestrator(orchestration.WithChatClient(chatStub{err: errors.New("down")}))
	defer o.Close()

	m := newModel(context.Background(), o)
	msg := m.sendPromptCmd("hello")()

	done, ok := msg.(actionDoneMsg)
	if !ok {
		t.Fatalf("expected actionDoneMsg, got %T", msg)
	}
	if done.err != nil || done.status != "request failed" {
		t.Fatalf("unexpected outcome: %+v", done)
	}
	if turns := o.Turns(); len(turns) != 2 || !turns[1].IsError {
		t.Fatalf("expected apology turn, got %+v", turns)
	}
}

func TestManualCaptureCmdWithoutCaptureReportsError(t *testing.T) {
	o := orchestration.NewOrchestrator()
	defer o.Close()

	msg := newModel(context.Background(), o).manualCaptureCmd()()
	done, ok := msg.(actionDoneMsg)
	if !ok || !errors.Is(done.err, orchestration.ErrCaptureNotConfigured) {
		t.Fatalf("expected capture not configured error, got %#v", msg)
	}
}

func TestEnterWithEmptyInputDoesNothing(t *testing.T) {
	o := orchestration.NewOrchestrator(orchestration.WithChatClient(chatStub{reply: "unused"}))
	defer o.Close()

	_, cmd := newModel(context.Background(), o).Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatalf("expected no command for empty input")
	}
	if len(o.Turns()) != 0 {
		t.Fatalf("expected no turns")
	}
}

func TestRefreshAppendsOnlyNewTurns(t *testing.T) {
	o := orchestration.NewOrchestrator(orchestration.WithChatClient(chatStub{reply: "first"}))
	defer o.Close()

	if _, err := o.RunTurn(context.Background(), "one"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := newModel(context.Background(), o)
	if len(m.turns) != 2 {
		t.Fatalf("expected initial turns, got %d", len(m.turns))
	}

	if _, err := o.RunTurn(context.Background(), "two"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.refresh()

	if len(m.turns) != 4 {
		t.Fatalf("expected 4 turns after refresh, got %d", len(m.turns))
	}
	for i, turn := range m.turns {
		if turn.Sequence != int64(i+1) {
			t.Fatalf("expected sequence %d at %d, got %d", i+1, i, turn.Sequence)
		}
	}
}
