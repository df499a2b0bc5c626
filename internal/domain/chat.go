package domain

import "encoding/json"

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Mode selects the system prompt variant for a turn
type Mode string

const (
	ModeNarrate   Mode = "narrate"
	ModeInterpret Mode = "interpret"
)

// ChatMessage is one entry of the conversation sent by the client
type ChatMessage struct {
	Role    string `json:"role" binding:"required,oneof=user assistant system"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /chat
type ChatRequest struct {
	Messages []ChatMessage `json:"messages" binding:"required,min=1,dive"`
	Stream   bool          `json:"stream"`
	Mode     Mode          `json:"mode,omitempty" binding:"omitempty,oneof=narrate interpret"`
}

// LastUserMessage returns the content of the final message, which must come from the user.
func (r *ChatRequest) LastUserMessage() (string, error) {
	if len(r.Messages) == 0 {
		return "", ErrEmptyConversation
	}
	last := r.Messages[len(r.Messages)-1]
	if last.Role != RoleUser {
		return "", ErrLastMessageNotUser
	}
	return last.Content, nil
}

// Scene is the detected scene shown as a banner before a turn streams
type Scene struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

// ChatResponse is the non-streaming reply
type ChatResponse struct {
	Response   string   `json:"response"`
	Narration  string   `json:"narration,omitempty"`
	Narrations []string `json:"narrations,omitempty"`
	Scene      *Scene   `json:"scene,omitempty"`
}

// EventKind identifies which variant a StreamEvent carries
type EventKind int

const (
	EventScene EventKind = iota + 1
	EventContent
	EventScript
	EventError
	EventDone
)

// String returns the wire name of the kind
func (k EventKind) String() string {
	switch k {
	case EventScene:
		return "scene"
	case EventContent:
		return "content"
	case EventScript:
		return "script"
	case EventError:
		return "error"
	case EventDone:
		return "done"
	default:
		return "unknown"
	}
}

// StreamEvent is one frame of the SSE chat stream.
// Build it with the constructors below so the kind is always set.
type StreamEvent struct {
	Kind      EventKind
	Scene     *Scene
	Content   string
	Script    string
	SceneName string
	Error     string
}

// SceneEvent announces the scene the turn is grounded in
func SceneEvent(scene *Scene) StreamEvent {
	return StreamEvent{Kind: EventScene, Scene: scene}
}

// ContentEvent carries plain assistant text
func ContentEvent(text string) StreamEvent {
	return StreamEvent{Kind: EventContent, Content: text}
}

// ScriptEvent carries one complete narration block
func ScriptEvent(script, sceneName string) StreamEvent {
	return StreamEvent{Kind: EventScript, Script: script, SceneName: sceneName}
}

// ErrorEvent reports a failure after the stream has started
func ErrorEvent(msg string) StreamEvent {
	return StreamEvent{Kind: EventError, Error: msg}
}

// DoneEvent ends the stream
func DoneEvent() StreamEvent {
	return StreamEvent{Kind: EventDone}
}

// IsTerminal reports whether no further events follow this one
func (e StreamEvent) IsTerminal() bool {
	return e.Kind == EventDone
}

// MarshalJSON writes the wire shape of the variant
func (e StreamEvent) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case EventScene:
		return json.Marshal(struct {
			Scene *Scene `json:"scene"`
		}{e.Scene})
	case EventContent:
		return json.Marshal(struct {
			Content string `json:"content"`
		}{e.Content})
	case EventScript:
		return json.Marshal(struct {
			Type   string `json:"type"`
			Script string `json:"script"`
			Scene  string `json:"scene"`
		}{"script", e.Script, e.SceneName})
	case EventError:
		return json.Marshal(struct {
			Error string `json:"error"`
		}{e.Error})
	case EventDone:
		return []byte(`{"done":true}`), nil
	default:
		return nil, ErrUnknownEvent
	}
}
