package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show backend reachability and session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			health, healthErr := a.client.Health(context.Background())

			if jsonFlag {
				report := statusReport{
					Server:    a.client.BaseURL(),
					Reachable: healthErr == nil,
				}
				if health != nil {
					report.Backend = health.Message
					report.Version = health.Version
				}
				if user, ok := a.sess.User(); ok && a.sess.IsAuthenticated() {
					report.Email = user.Email
				}
				return printJSON(out, report)
			}

			fmt.Fprintf(out, "Server:   %s\n", a.client.BaseURL())
			if healthErr != nil {
				fmt.Fprintf(out, "Backend:  unreachable (%v)\n", healthErr)
			} else if health.Version != "" {
				fmt.Fprintf(out, "Backend:  ok (%s %s)\n", health.Message, health.Version)
			} else {
				fmt.Fprintf(out, "Backend:  ok (%s)\n", health.Message)
			}

			if user, ok := a.sess.User(); ok && a.sess.IsAuthenticated() {
				line := fmt.Sprintf("Session:  %s", user.Email)
				if claims, err := a.sess.Claims(); err == nil && !claims.ExpiresAt.IsZero() {
					line += ", token " + describeExpiry(claims, time.Now())
				}
				fmt.Fprintln(out, line)
			} else {
				fmt.Fprintln(out, "Session:  not logged in")
			}
			return nil
		},
	}
}

// statusReport is the --json shape of the status command.
type statusReport struct {
	Server    string `json:"server"`
	Reachable bool   `json:"reachable"`
	Backend   string `json:"backend,omitempty"`
	Version   string `json:"version,omitempty"`
	Email     string `json:"email,omitempty"`
}
