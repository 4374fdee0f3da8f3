package orchestration

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/koscakluka/ema-voice/core/events"
)

func TestSpeechIsSpokenInOrderOneAtATime(t *testing.T) {
	speech := &speechStub{delay: 5 * time.Millisecond}
	o := NewOrchestrator(WithChatClient(replyWith("unused")), WithSpeechSynthesizer(speech))
	defer o.Close()

	want := []string{"one", "two", "three"}
	for _, text := range want {
		if !o.speech.dispatch(text) {
			t.Fatalf("expected %q to be queued", text)
		}
	}

	waitForCondition(t, time.Second, "all replies to be spoken", func() bool {
		return len(speech.Texts()) == len(want)
	})
	if got := speech.Texts(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	speech.mu.Lock()
	overlapped := speech.overlapped
	speech.mu.Unlock()
	if overlapped {
		t.Fatalf("expected synthesis requests not to overlap")
	}
}

func TestSpeechFailureIsReportedAsEventOnly(t *testing.T) {
	recorder := &eventRecorder{}
	speech := &speechStub{err: errors.New("speaker unplugged")}
	o := NewOrchestrator(
		WithChatClient(replyWith("hi there")),
		WithSpeechSynthesizer(speech),
		WithEventHandler(recorder.handle),
	)
	defer o.Close()

	exchange, err := o.RunTurn(context.Background(), "hello")
	if err != nil || exchange.Failed() {
		t.Fatalf("expected speech failure not to affect the turn, got %v", err)
	}

	var failure events.SpeechDispatchFailed
	waitForCondition(t, time.Second, "speech failure event", func() bool {
		for _, event := range recorder.Events() {
			if failed, ok := event.(events.SpeechDispatchFailed); ok {
				failure = failed
				return true
			}
		}
		return false
	})

	if failure.Text != "hi there" || failure.Err == nil {
		t.Fatalf("unexpected failure event: %+v", failure)
	}
	if len(o.Turns()) != 2 {
		t.Fatalf("expected speech failure to leave the timeline alone")
	}
}

func TestSpeechQueueDropsWhenFull(t *testing.T) {
	speech := &speechStub{release: make(chan struct{})}
	o := NewOrchestrator(WithSpeechSynthesizer(speech), WithSpeechQueueCapacity(1))
	defer o.Close()

	if !o.speech.dispatch("first") {
		t.Fatalf("expected first reply to be queued")
	}
	waitForCondition(t, time.Second, "worker to pick up the first reply", func() bool {
		return len(o.speech.queue) == 0
	})

	if !o.speech.dispatch("second") {
		t.Fatalf("expected second reply to be queued")
	}
	if o.speech.dispatch("third") {
		t.Fatalf("expected third reply to be dropped")
	}
	if got := o.speech.dropped.Load(); got != 1 {
		t.Fatalf("expected one dropped reply, got %d", got)
	}

	close(speech.release)
	waitForCondition(t, time.Second, "queued replies to be spoken", func() bool {
		return len(speech.Texts()) == 2
	})
}

func TestSpeechMutedRepliesAreNotSpoken(t *testing.T) {
	speech := &speechStub{}
	o := NewOrchestrator(WithChatClient(replyWith("quiet")), WithSpeechSynthesizer(speech))
	defer o.Close()

	o.SetSpeechMuted(true)
	if !o.IsSpeechMuted() {
		t.Fatalf("expected speech to be muted")
	}
	if _, err := o.RunTurn(context.Background(), "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	if got := speech.Texts(); len(got) != 0 {
		t.Fatalf("expected nothing spoken while muted, got %v", got)
	}
}

func TestSpeechDispatchAfterCloseIsIgnored(t *testing.T) {
	speech := &speechStub{}
	o := NewOrchestrator(WithSpeechSynthesizer(speech))
	o.Close()

	if o.speech.dispatch("too late") {
		t.Fatalf("expected dispatch after close to be ignored")
	}
}

func TestSpeechCloseCancelsInFlightRequest(t *testing.T) {
	speech := &speechStub{release: make(chan struct{})}
	o := NewOrchestrator(WithSpeechSynthesizer(speech))

	o.speech.dispatch("long reply")
	waitForCondition(t, time.Second, "speech to start", func() bool {
		speech.mu.Lock()
		defer speech.mu.Unlock()
		return speech.active == 1
	})

	closed := make(chan struct{})
	go func() {
		o.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for close")
	}
}
