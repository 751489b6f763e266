package tui

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
)

// RunChat starts the bubbletea program and runs loopFn concurrently.
// It blocks until the loop finishes or the user quits the TUI. The ctx
// handed to loopFn is cancelled on Ctrl+C, TUI exit, or OS signal.
func RunChat(cfg ChatConfig, loopFn func(ui IO, ctx context.Context) error) error {
	inputCh := make(chan inputResult, 1)
	model := NewModel(inputCh, cfg)

	// Create TuiIO early so we can wire cancelSendFn before the model
	// is copied into the tea.Program.
	tuiIO := &TuiIO{
		inputCh: inputCh,
		done:    make(chan struct{}),
	}
	model.cancelSendFn = tuiIO.CancelSend

	p := tea.NewProgram(model)
	tuiIO.program = p

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
			p.Quit()
		case <-ctx.Done():
		}
	}()

	var (
		loopErr error
		wg      sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		loopErr = loopFn(tuiIO, ctx)
		// Signal the TUI that the loop is done
		p.Send(chatDoneMsg{err: loopErr})
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	// Unblock and wait for the loop goroutine after the TUI exits.
	cancel()
	tuiIO.Close()
	wg.Wait()

	return loopErr
}
