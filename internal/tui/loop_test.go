package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/taskdeck/taskdeck/internal/api"
	"github.com/taskdeck/taskdeck/internal/chat"
	"github.com/taskdeck/taskdeck/internal/tasklist"
)

// scriptIO feeds a fixed input script to the loop and records every
// visual event it would have rendered.
type scriptIO struct {
	inputs []string
	next   int
	events []string
	pick   int // index PickConversation chooses, -1 cancels
}

func (s *scriptIO) ReadInput() (string, error) {
	if s.next >= len(s.inputs) {
		return "", io.EOF
	}
	line := s.inputs[s.next]
	s.next++
	return line, nil
}

func (s *scriptIO) UserMessage(text string)      { s.events = append(s.events, "user: "+text) }
func (s *scriptIO) SendStart()                   { s.events = append(s.events, "sending") }
func (s *scriptIO) AssistantMessage(text string) { s.events = append(s.events, "assistant: "+text) }
func (s *scriptIO) SystemMessage(text string)    { s.events = append(s.events, "system: "+text) }
func (s *scriptIO) Error(msg string)             { s.events = append(s.events, "error: "+msg) }

func (s *scriptIO) SetConversation(id int64) {
	s.events = append(s.events, fmt.Sprintf("conversation: %d", id))
}

func (s *scriptIO) TaskTable(tasks []api.Task) {
	s.events = append(s.events, fmt.Sprintf("tasks: %d", len(tasks)))
}

func (s *scriptIO) PickConversation(convs []api.Conversation) (int64, error) {
	if s.pick < 0 || s.pick >= len(convs) {
		return 0, fmt.Errorf("cancelled")
	}
	return convs[s.pick].ID, nil
}

func (s *scriptIO) has(event string) bool {
	for _, e := range s.events {
		if strings.Contains(e, event) {
			return true
		}
	}
	return false
}

// fakeBackend implements both chat.Service and tasklist.Service.
type fakeBackend struct {
	chatErr  error
	convID   int64
	convs    []api.Conversation
	messages []api.ConversationMessage
	tasks    []api.Task
	tasksErr error
}

func (f *fakeBackend) Chat(_ context.Context, _ string, message string, _ int64) (*api.ChatReply, error) {
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return &api.ChatReply{Response: "echo: " + message, ConversationID: f.convID}, nil
}

func (f *fakeBackend) Conversations(context.Context, string) ([]api.Conversation, error) {
	return f.convs, nil
}

func (f *fakeBackend) ConversationMessages(context.Context, string, int64) ([]api.ConversationMessage, error) {
	return f.messages, nil
}

func (f *fakeBackend) Tasks(context.Context) ([]api.Task, error) {
	return f.tasks, f.tasksErr
}

func (f *fakeBackend) TaskByID(context.Context, int64) (*api.Task, error) {
	return nil, &api.Error{Status: 404, Message: "Task not found"}
}

func (f *fakeBackend) CreateTask(context.Context, api.TaskDraft) (*api.Task, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeBackend) UpdateTask(context.Context, int64, api.TaskPatch) (*api.Task, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeBackend) ToggleTask(context.Context, int64) (*api.Task, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeBackend) DeleteTask(context.Context, int64) (string, error) {
	return "", errors.New("not implemented")
}

func newTestLoop(ui *scriptIO, backend *fakeBackend) *Loop {
	thread := chat.NewThread(backend, "u1")
	tasks := tasklist.NewStore(backend)
	return NewLoop(ui, thread, tasks)
}

func TestLoop_SendRendersBothTurns(t *testing.T) {
	ui := &scriptIO{inputs: []string{"add buy milk"}}
	backend := &fakeBackend{convID: 7}

	if err := newTestLoop(ui, backend).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !ui.has("user: add buy milk") {
		t.Errorf("expected user turn, got %v", ui.events)
	}
	if !ui.has("sending") {
		t.Errorf("expected send indicator, got %v", ui.events)
	}
	if !ui.has("assistant: echo: add buy milk") {
		t.Errorf("expected assistant turn, got %v", ui.events)
	}
	if !ui.has("conversation: 7") {
		t.Errorf("expected adopted conversation id, got %v", ui.events)
	}
}

func TestLoop_BlankAndEOFQuitCleanly(t *testing.T) {
	ui := &scriptIO{inputs: []string{"", "   "}}
	backend := &fakeBackend{}

	if err := newTestLoop(ui, backend).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ui.has("sending") {
		t.Errorf("blank input must not reach the server, got %v", ui.events)
	}
}

func TestLoop_QuitCommand(t *testing.T) {
	ui := &scriptIO{inputs: []string{"/quit", "never sent"}}
	backend := &fakeBackend{}

	if err := newTestLoop(ui, backend).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ui.has("never sent") {
		t.Errorf("loop kept reading after /quit: %v", ui.events)
	}
}

func TestLoop_SendFailureShowsAssistantTurn(t *testing.T) {
	ui := &scriptIO{inputs: []string{"hello"}}
	backend := &fakeBackend{chatErr: errors.New("connection refused")}

	if err := newTestLoop(ui, backend).Run(context.Background()); err != nil {
		t.Fatalf("network failure must not abort the loop: %v", err)
	}
	if !ui.has("assistant: Sorry, I couldn't reach the assistant") {
		t.Errorf("expected failure rendered as assistant turn, got %v", ui.events)
	}
}

func TestLoop_AuthExpiryAbortsLoop(t *testing.T) {
	ui := &scriptIO{inputs: []string{"hello", "never sent"}}
	backend := &fakeBackend{chatErr: fmt.Errorf("token rejected: %w", api.ErrUnauthorized)}

	err := newTestLoop(ui, backend).Run(context.Background())
	if !errors.Is(err, api.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized from Run, got %v", err)
	}
	if !ui.has("taskdeck login") {
		t.Errorf("expected login hint, got %v", ui.events)
	}
	if ui.has("never sent") {
		t.Errorf("loop kept reading after auth expiry: %v", ui.events)
	}
}

func TestLoop_NewCommandResetsConversation(t *testing.T) {
	ui := &scriptIO{inputs: []string{"hello", "/new"}}
	backend := &fakeBackend{convID: 3}

	loop := newTestLoop(ui, backend)
	if err := loop.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !ui.has("conversation: 3") {
		t.Errorf("expected conversation 3 adopted first, got %v", ui.events)
	}
	last := ui.events[len(ui.events)-2:]
	if last[0] != "conversation: 0" {
		t.Errorf("expected conversation reset to 0, got %v", ui.events)
	}
	if !ui.has("Started a new conversation") {
		t.Errorf("expected /new feedback, got %v", ui.events)
	}
	if loop.thread.ConversationID() != 0 {
		t.Errorf("expected thread reset, got id %d", loop.thread.ConversationID())
	}
}

func TestLoop_TasksCommand(t *testing.T) {
	ui := &scriptIO{inputs: []string{"/tasks"}}
	backend := &fakeBackend{tasks: []api.Task{
		{ID: 1, Title: "buy milk", Completed: true},
		{ID: 2, Title: "write report"},
	}}

	if err := newTestLoop(ui, backend).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !ui.has("tasks: 2") {
		t.Errorf("expected task table with 2 rows, got %v", ui.events)
	}
}

func TestLoop_TasksCommandLoadFailure(t *testing.T) {
	ui := &scriptIO{inputs: []string{"/tasks"}}
	backend := &fakeBackend{tasksErr: errors.New("boom")}

	if err := newTestLoop(ui, backend).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !ui.has("error: Could not load tasks") {
		t.Errorf("expected load error, got %v", ui.events)
	}
	if ui.has("tasks:") {
		t.Errorf("must not render a table on failure, got %v", ui.events)
	}
}

func TestLoop_ResumeReplaysTranscript(t *testing.T) {
	ui := &scriptIO{inputs: []string{"/conversations"}, pick: 0}
	backend := &fakeBackend{
		convs: []api.Conversation{{ID: 5, Title: "groceries"}},
		messages: []api.ConversationMessage{
			{ID: 1, Role: "user", Content: "add eggs"},
			{ID: 2, Role: "assistant", Content: "Added."},
			{ID: 3, Role: "system", Content: "hidden"},
		},
	}

	loop := newTestLoop(ui, backend)
	if err := loop.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !ui.has("conversation: 5") {
		t.Errorf("expected conversation 5 adopted, got %v", ui.events)
	}
	if !ui.has("user: add eggs") || !ui.has("assistant: Added.") {
		t.Errorf("expected replayed transcript, got %v", ui.events)
	}
	if ui.has("hidden") {
		t.Errorf("system turns must not replay, got %v", ui.events)
	}
}

func TestLoop_ResumeCancelKeepsThread(t *testing.T) {
	ui := &scriptIO{inputs: []string{"hello", "/conversations"}, pick: -1}
	backend := &fakeBackend{
		convID: 2,
		convs:  []api.Conversation{{ID: 5}},
	}

	loop := newTestLoop(ui, backend)
	if err := loop.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if loop.thread.ConversationID() != 2 {
		t.Errorf("cancelled pick must keep conversation 2, got %d", loop.thread.ConversationID())
	}
}

func TestLoop_NoConversationsToResume(t *testing.T) {
	ui := &scriptIO{inputs: []string{"/conversations"}}
	backend := &fakeBackend{}

	if err := newTestLoop(ui, backend).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !ui.has("No previous conversations") {
		t.Errorf("expected empty-state notice, got %v", ui.events)
	}
}

func TestLoop_UnknownCommand(t *testing.T) {
	ui := &scriptIO{inputs: []string{"/compact"}}
	backend := &fakeBackend{}

	if err := newTestLoop(ui, backend).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !ui.has("Unknown command /compact") {
		t.Errorf("expected unknown command notice, got %v", ui.events)
	}
	if ui.has("sending") {
		t.Errorf("slash input must not reach the server, got %v", ui.events)
	}
}

func TestHelpText_ListsEveryCommand(t *testing.T) {
	text := helpText()
	for _, it := range BuiltinSlashCommands() {
		if !strings.Contains(text, it.Name) {
			t.Errorf("help text missing %s", it.Name)
		}
	}
}
