package conversations

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type MediaKind string

const (
	MediaKindText  MediaKind = "text"
	MediaKindImage MediaKind = "image"
)

// Turn is a single recorded exchange unit in the timeline. Turns are values;
// once appended they are never edited or reordered.
type Turn struct {
	ID string
	// Sequence is assigned by the timeline on append. The first turn of a
	// session has sequence 1.
	Sequence int64
	Role     Role

	// Content is the prompt in user turns and the visible response in
	// assistant turns. Image turns carry a data URL.
	Content   string
	MediaKind MediaKind

	// IsError marks assistant turns that replace a failed response with a
	// user-safe notice.
	IsError bool

	CreatedAt time.Time
}

// TurnDraft is the caller-provided part of a turn; identity, sequence and
// creation time are filled in by the timeline.
type TurnDraft struct {
	Role      Role
	Content   string
	MediaKind MediaKind
	IsError   bool
}

func UserTurn(content string) TurnDraft {
	return TurnDraft{Role: RoleUser, Content: content, MediaKind: MediaKindText}
}

func AssistantTurn(content string, kind MediaKind) TurnDraft {
	if kind == "" {
		kind = MediaKindText
	}
	return TurnDraft{Role: RoleAssistant, Content: content, MediaKind: kind}
}

func AssistantErrorTurn(content string) TurnDraft {
	return TurnDraft{Role: RoleAssistant, Content: content, MediaKind: MediaKindText, IsError: true}
}
