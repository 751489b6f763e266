package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/taskdeck/taskdeck/internal/api"
	"github.com/taskdeck/taskdeck/internal/config"
	"github.com/taskdeck/taskdeck/internal/exitcode"
	"github.com/taskdeck/taskdeck/internal/session"
	"github.com/taskdeck/taskdeck/internal/tasklist"
)

var (
	cfgFile    string
	serverFlag string
	quietFlag  bool
	jsonFlag   bool

	// Package-level version info, set by Execute().
	appVersion string
	appCommit  string
	appDate    string
)

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	rootCmd := newRootCmd(version, commit, date)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

func newRootCmd(version, commit, date string) *cobra.Command {
	appVersion = version
	appCommit = commit
	appDate = date

	var allFlag bool

	rootCmd := &cobra.Command{
		Use:   "taskdeck",
		Short: "Task manager with a chat assistant",
		Long: "taskdeck manages your tasks against a taskdeck backend.\n" +
			"Run it with no arguments to see your open tasks, or use\n" +
			"'taskdeck chat' to manage them in plain words.",
		// Running taskdeck with no subcommand lists open tasks.
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := tasklist.FilterPending
			if allFlag {
				filter = tasklist.FilterAll
			}
			return runList(cmd, filter)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default <config dir>/taskdeck/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "backend base URL (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "suppress confirmations and empty-list notices")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "machine-readable JSON output where supported")
	rootCmd.Flags().BoolVarP(&allFlag, "all", "a", false, "include completed tasks")

	// Subcommands
	rootCmd.AddCommand(newAddCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newDoneCmd())
	rootCmd.AddCommand(newEditCmd())
	rootCmd.AddCommand(newRmCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newSignupCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newWhoamiCmd())
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newConversationsCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newVersionCmd(version, commit, date))

	return rootCmd
}

// exitCode maps a command error to the process exit code. Auth failures
// and unreachable backends get dedicated codes so shell scripts can react
// without parsing stderr.
func exitCode(err error) int {
	if err == nil {
		return exitcode.Success
	}
	if errors.Is(err, api.ErrUnauthorized) || errors.Is(err, session.ErrNotAuthenticated) {
		return exitcode.AuthError
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return exitcode.AuthError
		case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
			return exitcode.UserError
		}
		return exitcode.BackendError
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return exitcode.BackendError
	}
	return exitcode.UserError
}

// displayVersion returns a formatted version string for the chat welcome
// page, e.g. "v0.3.1 (abc1234)".
func displayVersion() string {
	v := "v" + appVersion
	if appCommit != "" && appCommit != "none" {
		v += " (" + appCommit + ")"
	}
	return v
}

// app bundles what every command needs: the merged config, the persisted
// session and an API client that reads its bearer token from that session.
type app struct {
	cfg    *config.Config
	sess   *session.Store
	client *api.Client
}

// newApp loads config and session state, applying CLI flag overrides.
func newApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if serverFlag != "" {
		cfg.Server = strings.TrimRight(serverFlag, "/")
	}

	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	sess := session.New(dir)
	if err := sess.Load(); err != nil {
		return nil, err
	}

	client := api.New(cfg.Server, time.Duration(cfg.Timeout), sess)
	return &app{cfg: cfg, sess: sess, client: client}, nil
}

// requireAuth fails fast before a network call when no session exists.
// An expired token still passes here; the backend's 401 catches that.
func (a *app) requireAuth() error {
	if !a.sess.IsAuthenticated() {
		return session.ErrNotAuthenticated
	}
	return nil
}
