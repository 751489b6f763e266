// Package tui defines the IO contract between the chat loop and the
// user interface layer, plus PlainIO (line-mode fallback) and TuiIO (bubbletea).
package tui

import (
	"context"

	"github.com/taskdeck/taskdeck/internal/api"
)

// IO is the contract between the chat loop and the UI layer.
// Every method maps to a distinct visual event — this separation keeps
// the loop independent of any specific rendering implementation.
type IO interface {
	// ReadInput blocks until the user submits a line of input.
	// Returns ("", io.EOF) when the user quits.
	ReadInput() (string, error)

	// UserMessage displays the user's submitted message in the transcript.
	UserMessage(text string)

	// SendStart signals that a chat request has gone out.
	// Implementations should show a spinner or equivalent indicator.
	SendStart()

	// AssistantMessage displays one assistant turn. TUI implementations
	// render the text as Markdown; plain implementations print it as is.
	AssistantMessage(text string)

	// SystemMessage displays a system-level notice (slash command
	// feedback, conversation switches, status changes).
	SystemMessage(text string)

	// Error displays an error message with prominent styling.
	Error(msg string)

	// SetConversation updates the conversation indicator in the status
	// area. Zero means no server-side conversation exists yet.
	SetConversation(id int64)

	// TaskTable renders a snapshot of the user's task list.
	TaskTable(tasks []api.Task)

	// PickConversation shows a numbered conversation picker and returns
	// the id the user chose. Returns an error when the user cancels.
	PickConversation(convs []api.Conversation) (int64, error)
}

// SendCanceller is implemented by IO layers that can abort an in-flight
// chat request (esc in the TUI). The loop registers the request's cancel
// function before sending and clears it after.
type SendCanceller interface {
	SetSendCancel(cancel context.CancelFunc)
	ClearSendCancel()
}
