package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/taskdeck/taskdeck/internal/api"
	"github.com/taskdeck/taskdeck/internal/chat"
	"github.com/taskdeck/taskdeck/internal/tasklist"
)

// Loop drives one interactive chat session: it reads lines from the IO
// layer, routes slash commands, and forwards everything else to the
// conversation thread. The same loop runs under the TUI and under PlainIO.
type Loop struct {
	ui     IO
	thread *chat.Thread
	tasks  *tasklist.Store
}

// NewLoop wires a chat loop over the given IO and stores.
func NewLoop(ui IO, thread *chat.Thread, tasks *tasklist.Store) *Loop {
	return &Loop{ui: ui, thread: thread, tasks: tasks}
}

// Run blocks until the user quits or the session expires. A nil return
// means a normal exit; api.ErrUnauthorized means the stored token was
// rejected and the user has to log in again.
func (l *Loop) Run(ctx context.Context) error {
	l.ui.SetConversation(l.thread.ConversationID())

	// A thread resumed before the loop started brings its history along.
	if len(l.thread.Transcript()) > 0 {
		l.replay()
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := l.ui.ReadInput()
		if err != nil {
			return nil // io.EOF: user quit
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := l.handleSlash(ctx, line); quit {
				return nil
			}
			continue
		}
		if err := l.send(ctx, line); err != nil {
			return err
		}
	}
}

// send posts one message and renders the outcome. Failures show up as
// assistant turns; an expired session additionally aborts the loop.
func (l *Loop) send(ctx context.Context, text string) error {
	l.ui.UserMessage(text)
	l.ui.SendStart()

	sendCtx, cancel := context.WithCancel(ctx)
	if sc, ok := l.ui.(SendCanceller); ok {
		sc.SetSendCancel(cancel)
		defer sc.ClearSendCancel()
	}
	defer cancel()

	reply, err := l.thread.Send(sendCtx, text)

	switch {
	case errors.Is(err, chat.ErrBusy):
		l.ui.SystemMessage("Still waiting on the previous reply.")
		return nil
	case err != nil:
		if turn, ok := lastAssistantTurn(l.thread); ok {
			l.ui.AssistantMessage(turn.Content)
		} else {
			l.ui.Error(err.Error())
		}
		if errors.Is(err, api.ErrUnauthorized) {
			l.ui.Error("Session expired. Run 'taskdeck login' and start chat again.")
			return err
		}
		return nil
	}

	l.ui.AssistantMessage(reply.Response)
	l.ui.SetConversation(l.thread.ConversationID())
	return nil
}

// handleSlash routes one slash command. Returns true when the loop
// should exit.
func (l *Loop) handleSlash(ctx context.Context, line string) bool {
	name, _, _ := strings.Cut(line, " ")
	switch strings.ToLower(name) {
	case "/quit", "/exit":
		return true
	case "/help":
		l.ui.SystemMessage(helpText())
	case "/new":
		if err := l.thread.StartNew(); err != nil {
			l.ui.SystemMessage("Still waiting on the previous reply.")
			return false
		}
		l.ui.SetConversation(0)
		l.ui.SystemMessage("Started a new conversation.")
	case "/tasks":
		l.showTasks(ctx)
	case "/conversations", "/resume":
		l.pickConversation(ctx)
	default:
		l.ui.SystemMessage(fmt.Sprintf("Unknown command %s. Try /help.", name))
	}
	return false
}

func (l *Loop) showTasks(ctx context.Context) {
	if err := l.tasks.Load(ctx); err != nil {
		l.ui.Error("Could not load tasks: " + err.Error())
		return
	}
	l.ui.TaskTable(l.tasks.Tasks())
}

func (l *Loop) pickConversation(ctx context.Context) {
	convs, err := l.thread.Conversations(ctx)
	if err != nil {
		l.ui.Error("Could not list conversations: " + err.Error())
		return
	}
	if len(convs) == 0 {
		l.ui.SystemMessage("No previous conversations.")
		return
	}
	id, err := l.ui.PickConversation(convs)
	if err != nil {
		return // cancelled
	}
	if err := l.thread.LoadConversation(ctx, id); err != nil {
		l.ui.Error("Could not load conversation: " + err.Error())
		return
	}
	l.ui.SetConversation(l.thread.ConversationID())
	l.replay()
}

// replay reprints the loaded transcript so a resumed conversation reads
// like it was typed in this session.
func (l *Loop) replay() {
	for _, m := range l.thread.Transcript() {
		switch m.Role {
		case chat.RoleUser:
			l.ui.UserMessage(m.Content)
		case chat.RoleAssistant:
			l.ui.AssistantMessage(m.Content)
		}
	}
}

// lastAssistantTurn returns the newest assistant message, if any.
func lastAssistantTurn(t *chat.Thread) (chat.Message, bool) {
	tr := t.Transcript()
	for i := len(tr) - 1; i >= 0; i-- {
		if tr[i].Role == chat.RoleAssistant {
			return tr[i], true
		}
	}
	return chat.Message{}, false
}

// helpText lists the built-in slash commands, aligned like the menu.
func helpText() string {
	items := BuiltinSlashCommands()
	maxName := 0
	for _, it := range items {
		if len(it.Name) > maxName {
			maxName = len(it.Name)
		}
	}
	var b strings.Builder
	b.WriteString("Commands:")
	for _, it := range items {
		b.WriteString(fmt.Sprintf("\n  %-*s  %s", maxName, it.Name, it.Desc))
	}
	b.WriteString("\nAnything else is sent to the assistant.")
	return b.String()
}
