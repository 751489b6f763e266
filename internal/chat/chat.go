// Package chat is the client-side model of one assistant conversation.
//
// A Thread owns an append-only transcript plus the server-assigned
// conversation id. User turns are appended optimistically before the
// network call; the asymmetry with the task collection (which only adopts
// confirmed server state) is deliberate, matching how the two surfaces
// behave in the web client. Failures become synthetic assistant turns
// rather than banners, so the conversation itself tells the user what
// went wrong.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/taskdeck/taskdeck/internal/api"
)

// ErrBusy reports a second operation while a send is still in flight.
// Threads are strictly single-flight.
var ErrBusy = errors.New("a message is already in flight")

// Role of a transcript turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the transcript. Failed marks synthetic assistant
// turns that carry a delivery error instead of a real reply.
type Message struct {
	Role      Role
	Content   string
	CreatedAt time.Time
	Failed    bool
}

// Service is the slice of the api client a thread drives.
type Service interface {
	Chat(ctx context.Context, userID, message string, conversationID int64) (*api.ChatReply, error)
	Conversations(ctx context.Context, userID string) ([]api.Conversation, error)
	ConversationMessages(ctx context.Context, userID string, id int64) ([]api.ConversationMessage, error)
}

// Thread is one conversation with the assistant.
type Thread struct {
	mu             sync.Mutex
	svc            Service
	userID         string
	conversationID int64
	transcript     []Message
	sending        bool
	staleList      bool
}

// NewThread returns an empty thread for the given user.
func NewThread(svc Service, userID string) *Thread {
	return &Thread{svc: svc, userID: userID}
}

// Send posts one user message and appends the assistant's reply. Empty
// input is a no-op. While a send is unresolved any further Send returns
// ErrBusy and changes nothing; exactly one chat request is outbound at a
// time per thread.
func (t *Thread) Send(ctx context.Context, text string) (*api.ChatReply, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	t.mu.Lock()
	if t.sending {
		t.mu.Unlock()
		return nil, ErrBusy
	}
	t.sending = true
	t.transcript = append(t.transcript, Message{
		Role:      RoleUser,
		Content:   text,
		CreatedAt: time.Now(),
	})
	convID := t.conversationID
	t.mu.Unlock()

	reply, err := t.svc.Chat(ctx, t.userID, text, convID)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.sending = false

	if err != nil {
		t.transcript = append(t.transcript, Message{
			Role:      RoleAssistant,
			Content:   "Sorry, I couldn't reach the assistant: " + err.Error(),
			CreatedAt: time.Now(),
			Failed:    true,
		})
		return nil, err
	}

	if reply.ConversationID != 0 && reply.ConversationID != t.conversationID {
		t.conversationID = reply.ConversationID
		t.staleList = true
	}
	t.transcript = append(t.transcript, Message{
		Role:      RoleAssistant,
		Content:   reply.Response,
		CreatedAt: time.Now(),
	})
	return reply, nil
}

// LoadConversation replaces the transcript with the stored messages of id
// and adopts it as the current thread.
func (t *Thread) LoadConversation(ctx context.Context, id int64) error {
	t.mu.Lock()
	if t.sending {
		t.mu.Unlock()
		return ErrBusy
	}
	t.mu.Unlock()

	msgs, err := t.svc.ConversationMessages(ctx, t.userID, id)
	if err != nil {
		return err
	}

	transcript := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		role := Role(m.Role)
		if role != RoleUser && role != RoleAssistant {
			continue
		}
		transcript = append(transcript, Message{
			Role:      role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt.Time,
		})
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sending {
		return ErrBusy
	}
	t.transcript = transcript
	t.conversationID = id
	return nil
}

// StartNew clears the transcript and conversation id. Server-side history
// stays untouched.
func (t *Thread) StartNew() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sending {
		return ErrBusy
	}
	t.transcript = nil
	t.conversationID = 0
	return nil
}

// Conversations lists the user's stored threads, newest first, and clears
// the refresh flag.
func (t *Thread) Conversations(ctx context.Context) ([]api.Conversation, error) {
	convs, err := t.svc.Conversations(ctx, t.userID)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.staleList = false
	t.mu.Unlock()
	return convs, nil
}

// Transcript returns a copy of the turns so far.
func (t *Thread) Transcript() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Message, len(t.transcript))
	copy(out, t.transcript)
	return out
}

// ConversationID returns the current thread id, 0 before the first reply.
func (t *Thread) ConversationID() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conversationID
}

// Sending reports whether a send is currently in flight.
func (t *Thread) Sending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sending
}

// NeedsConversationRefresh reports whether a new conversation id was
// adopted since the list was last fetched.
func (t *Thread) NeedsConversationRefresh() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.staleList
}
