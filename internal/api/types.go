package api

import (
	"fmt"
	"strings"
	"time"
)

// ── Wire types ───────────────────────────────────────────────────────────────

// Task is a single to-do item as the backend represents it. Ids are
// server-assigned; the client never invents one.
type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   Timestamp `json:"created_at"`
	UpdatedAt   Timestamp `json:"updated_at"`
}

// User identifies the authenticated account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Credentials is the payload of a successful login or signup.
type Credentials struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// TaskDraft is the body of a create call.
type TaskDraft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// TaskPatch selects fields for an update call. Nil fields are omitted
// from the request and the server keeps their current values.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// ChatReply is the assistant's answer to one chat message. ConversationID
// echoes the thread the message was stored under; on the first message of
// a new thread it carries the freshly assigned id.
type ChatReply struct {
	Response       string      `json:"response"`
	ConversationID int64       `json:"conversation_id"`
	Intent         string      `json:"intent"`
	ToolResult     *ToolResult `json:"tool_result,omitempty"`
}

// Chat intents reported by the backend agent.
const (
	IntentAdd      = "add"
	IntentList     = "list"
	IntentComplete = "complete"
	IntentDelete   = "delete"
	IntentUpdate   = "update"
	IntentClarify  = "clarify"
	IntentGreeting = "greeting"
)

// ToolResult reports what the backend agent did on behalf of a chat
// message. Task is set for single-task operations, Tasks for listings.
type ToolResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Task    *Task  `json:"task,omitempty"`
	Tasks   []Task `json:"tasks,omitempty"`
}

// Conversation is one stored chat thread.
type Conversation struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`
}

// ConversationMessage is one stored turn of a conversation.
type ConversationMessage struct {
	ID        int64     `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt Timestamp `json:"created_at"`
}

// Message roles used in stored conversations.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Health is the root endpoint's liveness payload.
type Health struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID int64  `json:"conversation_id,omitempty"`
}

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// ── Timestamps ───────────────────────────────────────────────────────────────

// Timestamp wraps time.Time to accept the backend's naive ISO-8601
// timestamps, which omit the timezone suffix.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Format(time.RFC3339Nano) + `"`), nil
}
