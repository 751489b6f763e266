package tui

import (
	"context"
	"fmt"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/taskdeck/taskdeck/internal/api"
)

// maxPickerOptions caps the conversation picker at single-digit selection.
const maxPickerOptions = 9

// TuiIO implements the IO interface by sending messages to a bubbletea
// Program. All methods are safe to call from any goroutine.
type TuiIO struct {
	program *tea.Program
	inputCh chan inputResult
	done    chan struct{}
	closeMu sync.Once

	mu         sync.Mutex
	cancelSend context.CancelFunc
}

var _ IO = (*TuiIO)(nil)
var _ SendCanceller = (*TuiIO)(nil)

// send is a nil-safe helper that sends a message to the bubbletea program.
// Fire-and-forget methods use this to avoid panicking when program is nil.
func (t *TuiIO) send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// Close unblocks any pending ReadInput or PickConversation once the
// program has exited. Safe to call more than once.
func (t *TuiIO) Close() {
	t.closeMu.Do(func() {
		if t.done != nil {
			close(t.done)
		}
	})
}

func (t *TuiIO) ReadInput() (string, error) {
	if t.program == nil {
		return "", io.EOF
	}
	// Tell the TUI to activate the text input
	t.program.Send(readInputMsg{})

	// Block until the user submits or the TUI exits
	select {
	case res := <-t.inputCh:
		if res.err != nil {
			return "", io.EOF
		}
		return res.text, nil
	case <-t.done:
		return "", io.EOF
	}
}

func (t *TuiIO) UserMessage(text string) {
	t.send(userMsg{text: text})
}

func (t *TuiIO) SendStart() {
	t.send(sendStartMsg{})
}

func (t *TuiIO) AssistantMessage(text string) {
	t.send(assistantMsg{text: text})
}

func (t *TuiIO) SystemMessage(text string) {
	t.send(systemMsg{text: text})
}

func (t *TuiIO) Error(msg string) {
	t.send(errorMsg{text: msg})
}

func (t *TuiIO) SetConversation(id int64) {
	t.send(conversationMsg{id: id})
}

func (t *TuiIO) TaskTable(tasks []api.Task) {
	t.send(taskTableMsg{tasks: tasks})
}

// PickConversation shows the numbered picker and blocks until the user
// chooses or cancels. Only the newest maxPickerOptions threads are offered.
func (t *TuiIO) PickConversation(convs []api.Conversation) (int64, error) {
	if t.program == nil {
		return 0, fmt.Errorf("no TUI program available")
	}
	if len(convs) > maxPickerOptions {
		convs = convs[:maxPickerOptions]
	}
	opts := make([]pickOption, len(convs))
	for i, c := range convs {
		opts[i] = conversationOption(c)
	}
	replyCh := make(chan int, 1)
	t.program.Send(pickMsg{
		title:   "Resume a conversation",
		options: opts,
		replyCh: replyCh,
	})
	select {
	case idx, ok := <-replyCh:
		if !ok || idx < 0 || idx >= len(convs) {
			return 0, fmt.Errorf("cancelled")
		}
		return convs[idx].ID, nil
	case <-t.done:
		return 0, fmt.Errorf("cancelled")
	}
}

// --- SendCanceller implementation ---

// SetSendCancel registers the cancel function for the in-flight request.
func (t *TuiIO) SetSendCancel(cancel context.CancelFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelSend = cancel
}

// ClearSendCancel clears the cancel function after the request resolves.
func (t *TuiIO) ClearSendCancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelSend = nil
}

// CancelSend aborts the in-flight chat request. Returns true if a request
// was actually cancelled.
func (t *TuiIO) CancelSend() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelSend != nil {
		t.cancelSend()
		t.cancelSend = nil
		return true
	}
	return false
}
