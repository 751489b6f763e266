package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/taskdeck/taskdeck/internal/session"
	"golang.org/x/term"
)

func newLoginCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Long: "Obtains a bearer token from the backend and stores it in the\n" +
			"config directory. Later commands reuse it until it expires or\n" +
			"you run 'taskdeck logout'.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			if email == "" {
				email, err = promptLine(out, in, "Email: ")
				if err != nil {
					return err
				}
			}
			password, err := promptPassword(out, in, "Password: ")
			if err != nil {
				return err
			}

			if err := a.sess.Login(context.Background(), a.client, email, password); err != nil {
				return err
			}
			if !quietFlag {
				user, _ := a.sess.User()
				fmt.Fprintf(out, "Logged in as %s\n", user.Email)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email (prompted when omitted)")
	return cmd
}

func newSignupCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			if email == "" {
				email, err = promptLine(out, in, "Email: ")
				if err != nil {
					return err
				}
			}
			password, err := promptPassword(out, in, "Password: ")
			if err != nil {
				return err
			}
			confirm, err := promptPassword(out, in, "Confirm password: ")
			if err != nil {
				return err
			}
			if password != confirm {
				return fmt.Errorf("passwords do not match")
			}

			if err := a.sess.Signup(context.Background(), a.client, email, password); err != nil {
				return err
			}
			if !quietFlag {
				user, _ := a.sess.User()
				fmt.Fprintf(out, "Account created. Logged in as %s\n", user.Email)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email (prompted when omitted)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.sess.Logout(); err != nil {
				return err
			}
			if !quietFlag {
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			}
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if err := a.requireAuth(); err != nil {
				return err
			}

			user, _ := a.sess.User()
			out := cmd.OutOrStdout()

			if jsonFlag {
				return printJSON(out, user)
			}
			if quietFlag {
				fmt.Fprintln(out, user.Email)
				return nil
			}

			fmt.Fprintf(out, "Email:    %s\n", user.Email)
			fmt.Fprintf(out, "User ID:  %s\n", user.ID)
			if claims, err := a.sess.Claims(); err == nil && !claims.ExpiresAt.IsZero() {
				fmt.Fprintf(out, "Token:    %s\n", describeExpiry(claims, time.Now()))
			}
			return nil
		},
	}
}

func describeExpiry(c *session.Claims, now time.Time) string {
	if c.Expired(now) {
		return fmt.Sprintf("expired %s ago", now.Sub(c.ExpiresAt).Round(time.Minute))
	}
	return fmt.Sprintf("expires in %s", c.ExpiresAt.Sub(now).Round(time.Minute))
}

// promptLine reads one line after echoing the label. EOF with a partial
// line still yields the line, so piped input without a trailing newline
// works.
func promptLine(out io.Writer, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads without echo when stdin is a terminal. Piped
// input falls back to a plain line read so scripts and tests work.
func promptPassword(out io.Writer, in *bufio.Reader, label string) (string, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprint(out, label)
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	return promptLine(out, in, label)
}
