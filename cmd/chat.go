package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/taskdeck/taskdeck/internal/chat"
	"github.com/taskdeck/taskdeck/internal/tasklist"
	"github.com/taskdeck/taskdeck/internal/tui"
	"golang.org/x/term"
)

func newChatCmd() *cobra.Command {
	var (
		message string
		plain   bool
		resume  int64
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Manage tasks by talking to the assistant",
		Long: "Opens an interactive conversation with the task assistant.\n" +
			"Messages like \"add buy milk\" or \"what's still open?\" are\n" +
			"interpreted server-side and acted on your task list.",
		Example: `  taskdeck chat
  taskdeck chat -m "add buy milk"
  taskdeck chat --resume 12`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.requireAuth(); err != nil {
				return err
			}
			userID, err := a.sess.UserID()
			if err != nil {
				return err
			}

			thread := chat.NewThread(a.client, userID)
			if resume > 0 {
				if err := thread.LoadConversation(context.Background(), resume); err != nil {
					return err
				}
			}

			// One-shot mode: send, print the reply, exit. A blank
			// message is a no-op, matching the thread's contract.
			if cmd.Flags().Changed("message") {
				if message = strings.TrimSpace(message); message == "" {
					return nil
				}
				reply, err := thread.Send(context.Background(), message)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), reply.Response)
				return nil
			}

			tasks := tasklist.NewStore(a.client)
			user, _ := a.sess.User()

			usePlain := plain || a.cfg.Plain || !term.IsTerminal(int(os.Stdout.Fd()))
			if !usePlain {
				chatCfg := tui.ChatConfig{
					Version:     displayVersion(),
					Server:      a.client.BaseURL(),
					UserEmail:   user.Email,
					ShowWelcome: resume == 0,
				}
				// ctx is managed by RunChat: cancelled on Ctrl+C, TUI
				// exit, or OS signal.
				return tui.RunChat(chatCfg, func(ui tui.IO, ctx context.Context) error {
					return tui.NewLoop(ui, thread, tasks).Run(ctx)
				})
			}

			ui := tui.NewPlainIO()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			go func() {
				<-sigCh
				cancel()
			}()

			return tui.NewLoop(ui, thread, tasks).Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "send one message and print the reply")
	cmd.Flags().BoolVar(&plain, "plain", false, "line-based prompt instead of the full-screen interface")
	cmd.Flags().Int64Var(&resume, "resume", 0, "resume a stored conversation by id")
	return cmd
}
