package orchestration

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/koscakluka/ema-voice/core/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const defaultSpeechQueueCapacity = 10

// speechDispatcher speaks assistant replies without holding up the turn that
// produced them. Replies are spoken one at a time in the order they arrive.
type speechDispatcher struct {
	client   SpeechSynthesizer
	capacity int
	emitter  *eventEmitter

	queue   chan string
	closeCh chan struct{}
	done    chan struct{}

	baseContext context.Context
	cancel      context.CancelFunc

	startOnce sync.Once
	closeOnce sync.Once

	started atomic.Bool
	// isMuted drops replies instead of queueing them.
	isMuted atomic.Bool
	dropped atomic.Int64
}

func (d *speechDispatcher) init(ctx context.Context, emitter *eventEmitter) {
	if d.capacity <= 0 {
		d.capacity = defaultSpeechQueueCapacity
	}
	d.emitter = emitter
	d.queue = make(chan string, d.capacity)
	d.closeCh = make(chan struct{})
	d.done = make(chan struct{})
	d.baseContext, d.cancel = context.WithCancel(ctx)
}

// dispatch queues text for synthesis and returns immediately. It reports
// whether the text was queued.
func (d *speechDispatcher) dispatch(text string) bool {
	if d.client == nil || d.isMuted.Load() || d.isClosed() {
		return false
	}
	if strings.TrimSpace(text) == "" {
		return false
	}

	d.start()

	select {
	case d.queue <- text:
		return true
	default:
		d.dropped.Add(1)
		logger.Warn("speech queue full, reply will not be spoken", "capacity", d.capacity)
		return false
	}
}

func (d *speechDispatcher) start() {
	d.startOnce.Do(func() {
		if d.isClosed() {
			return
		}

		d.started.Store(true)
		go func() {
			defer close(d.done)

			for {
				select {
				case <-d.closeCh:
					return
				case text := <-d.queue:
					if d.isClosed() {
						return
					}
					d.speak(d.baseContext, text)
				}
			}
		}()
	})
}

func (d *speechDispatcher) speak(ctx context.Context, text string) {
	ctx, span := tracer.Start(ctx, "speak")
	defer span.End()
	span.SetAttributes(attribute.Int("speech.text_length", len(text)))

	speak := panicSafeNamedWorker("speech", func(ctx context.Context) error {
		return d.client.Speak(ctx, text)
	})
	if err := speak(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}

		err = fmt.Errorf("failed to synthesize speech: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		speechFailureCounter.Add(ctx, 1)
		logger.WarnContext(ctx, "speech synthesis failed", "error", err)
		d.emitter.emit(events.NewSpeechDispatchFailed(text, err))
	}
}

func (d *speechDispatcher) isClosed() bool {
	select {
	case <-d.closeCh:
		return true
	default:
		return false
	}
}

// close stops the worker and drops anything still queued.
func (d *speechDispatcher) close() {
	d.closeOnce.Do(func() {
		close(d.closeCh)
		d.cancel()
	})

	if d.started.Load() {
		<-d.done
	}
}

// SetSpeechMuted turns speaking of assistant replies off or on. Replies
// produced while muted are not spoken later.
func (o *Orchestrator) SetSpeechMuted(muted bool) { o.speech.isMuted.Store(muted) }

func (o *Orchestrator) IsSpeechMuted() bool { return o.speech.isMuted.Load() }
