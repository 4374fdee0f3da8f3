package conversations

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidRole = errors.New("invalid turn role")

// HistoryReader exposes read-only access to recorded turns.
type HistoryReader interface {
	// Past turns only. Ordering: oldest -> newest.
	Turns() []Turn
	Len() int
}

var _ HistoryReader = (*Timeline)(nil)

// Timeline is the append-only, ordered log of a session's turns.
type Timeline struct {
	mu sync.RWMutex

	turns        []Turn
	lastSequence int64

	now func() time.Time
}

func NewTimeline() *Timeline {
	return &Timeline{now: time.Now}
}

// Append records a new turn and returns it with its assigned sequence.
func (t *Timeline) Append(draft TurnDraft) (Turn, error) {
	if draft.Role != RoleUser && draft.Role != RoleAssistant {
		return Turn{}, fmt.Errorf("%w: %q", ErrInvalidRole, draft.Role)
	}
	if draft.MediaKind == "" {
		draft.MediaKind = MediaKindText
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastSequence++
	turn := Turn{
		ID:        uuid.NewString(),
		Sequence:  t.lastSequence,
		Role:      draft.Role,
		Content:   draft.Content,
		MediaKind: draft.MediaKind,
		IsError:   draft.IsError,
		CreatedAt: t.now(),
	}
	t.turns = append(t.turns, turn)
	return turn, nil
}

func (t *Timeline) Turns() []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()

	turns := make([]Turn, len(t.turns))
	copy(turns, t.turns)
	return turns
}

func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

// Since returns the turns with a sequence greater than after.
func (t *Timeline) Since(after int64) []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i, turn := range t.turns {
		if turn.Sequence > after {
			turns := make([]Turn, len(t.turns)-i)
			copy(turns, t.turns[i:])
			return turns
		}
	}
	return nil
}
