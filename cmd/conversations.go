package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newConversationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"convs"},
		Short:   "List stored chat conversations",
		Long: "Lists your chat history with the assistant. Resume one with\n" +
			"'taskdeck chat --resume <id>'.",
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

			convs, err := a.client.Conversations(context.Background(), userID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if jsonFlag {
				return printJSON(out, convs)
			}
			if len(convs) == 0 {
				if !quietFlag {
					fmt.Fprintln(out, "no conversations yet")
				}
				return nil
			}

			for _, c := range convs {
				title := c.Title
				if title == "" {
					title = fmt.Sprintf("Conversation #%d", c.ID)
				}
				stamp := ""
				if !c.UpdatedAt.Time.IsZero() {
					stamp = c.UpdatedAt.Time.Format(time.DateTime)
				}
				fmt.Fprintf(out, "#%-5d %-44s %s\n", c.ID, title, stamp)
			}
			return nil
		},
	}
}
