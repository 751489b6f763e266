package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/taskdeck/taskdeck/internal/api"
	"github.com/taskdeck/taskdeck/internal/tasklist"
)

func newAddCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add <title>...",
		Short: "Add a task",
		Example: `  taskdeck add buy milk
  taskdeck add "call the dentist" -d "ask about the Thursday slot"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.requireAuth(); err != nil {
				return err
			}

			store := tasklist.NewStore(a.client)
			task, err := store.Create(context.Background(), api.TaskDraft{
				Title:       strings.Join(args, " "),
				Description: description,
			})
			if err != nil {
				return err
			}
			if !quietFlag {
				fmt.Fprintln(cmd.OutOrStdout(), store.Notice().Text)
			}
			if jsonFlag {
				return printJSON(cmd.OutOrStdout(), task)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "longer free-form note")
	return cmd
}

func newListCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := tasklist.ParseFilter(status)
			if err != nil {
				return err
			}
			return runList(cmd, filter)
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "pending", "all, pending or completed")
	return cmd
}

// runList is shared by 'taskdeck list' and the bare 'taskdeck' invocation.
func runList(cmd *cobra.Command, filter tasklist.StatusFilter) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.requireAuth(); err != nil {
		return err
	}

	store := tasklist.NewStore(a.client)
	if err := store.Load(context.Background()); err != nil {
		return err
	}

	tasks := store.Filtered(filter)
	if jsonFlag {
		return printJSON(cmd.OutOrStdout(), tasks)
	}

	out := cmd.OutOrStdout()
	if len(tasks) == 0 {
		if !quietFlag {
			fmt.Fprintln(out, "no tasks found")
		}
		return nil
	}

	for _, t := range tasks {
		printTaskLine(out, t)
	}
	if !quietFlag {
		total, done := store.Counts()
		fmt.Fprintf(out, "\n%d open, %d total\n", total-done, total)
	}
	return nil
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.requireAuth(); err != nil {
				return err
			}

			task, err := a.client.TaskByID(context.Background(), id)
			if err != nil {
				return err
			}
			if jsonFlag {
				return printJSON(cmd.OutOrStdout(), task)
			}
			printTaskDetail(cmd.OutOrStdout(), task)
			return nil
		},
	}
}

func newDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle a task between done and not done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.requireAuth(); err != nil {
				return err
			}

			store := tasklist.NewStore(a.client)
			if _, err := store.Toggle(context.Background(), id); err != nil {
				return err
			}
			if !quietFlag {
				fmt.Fprintln(cmd.OutOrStdout(), store.Notice().Text)
			}
			return nil
		},
	}
}

func newEditCmd() *cobra.Command {
	var (
		title       string
		description string
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task's title or description",
		Example: `  taskdeck edit 3 --title "buy oat milk"
  taskdeck edit 3 --desc ""`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}

			// Only fields whose flag was given end up in the patch; the
			// server keeps current values for the rest.
			var patch api.TaskPatch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("desc") {
				patch.Description = &description
			}
			if patch.Title == nil && patch.Description == nil {
				return fmt.Errorf("nothing to change: pass --title or --desc")
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.requireAuth(); err != nil {
				return err
			}

			store := tasklist.NewStore(a.client)
			if _, err := store.Update(context.Background(), id, patch); err != nil {
				return err
			}
			if !quietFlag {
				fmt.Fprintln(cmd.OutOrStdout(), store.Notice().Text)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "desc", "", "new description")
	return cmd
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.requireAuth(); err != nil {
				return err
			}

			store := tasklist.NewStore(a.client)
			if err := store.Delete(context.Background(), id); err != nil {
				return err
			}
			if !quietFlag {
				fmt.Fprintln(cmd.OutOrStdout(), store.Notice().Text)
			}
			return nil
		},
	}
}

func parseTaskID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", arg)
	}
	return id, nil
}

// printTaskLine writes the one-line listing form: a checkbox, the id and
// the title.
func printTaskLine(w io.Writer, t api.Task) {
	mark := "[ ]"
	if t.Completed {
		mark = "[x]"
	}
	fmt.Fprintf(w, "%s #%d  %s\n", mark, t.ID, t.Title)
}

func printTaskDetail(w io.Writer, t *api.Task) {
	state := "open"
	if t.Completed {
		state = "done"
	}
	fmt.Fprintf(w, "Task #%d\n", t.ID)
	fmt.Fprintf(w, "  Title:    %s\n", t.Title)
	fmt.Fprintf(w, "  State:    %s\n", state)
	if t.Description != "" {
		fmt.Fprintf(w, "  Note:     %s\n", t.Description)
	}
	if !t.CreatedAt.Time.IsZero() {
		fmt.Fprintf(w, "  Created:  %s\n", t.CreatedAt.Time.Format(time.DateTime))
	}
	if !t.UpdatedAt.Time.IsZero() && !t.UpdatedAt.Time.Equal(t.CreatedAt.Time) {
		fmt.Fprintf(w, "  Updated:  %s\n", t.UpdatedAt.Time.Format(time.DateTime))
	}
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
