package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/taskdeck/taskdeck/internal/api"
	"github.com/taskdeck/taskdeck/internal/config"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactive configuration wizard",
		Long:  "Guides you through setting up taskdeck: backend URL, request timeout, chat mode.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd)
		},
	}
}

func runInit(cmd *cobra.Command) error {
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Welcome to the taskdeck configuration wizard!")
	fmt.Fprintln(out)

	// Start from the effective config so rerunning keeps prior answers
	// as defaults.
	cfg, err := config.Load(cfgFile)
	if err != nil {
		cfg = config.DefaultConfig()
	}

	fmt.Fprintf(out, "Backend URL [%s]: ", cfg.Server)
	if line := readLine(in); line != "" {
		cfg.Server = strings.TrimRight(line, "/")
	}

	fmt.Fprintf(out, "Request timeout [%s]: ", time.Duration(cfg.Timeout))
	if line := readLine(in); line != "" {
		parsed, err := time.ParseDuration(line)
		if err != nil || parsed <= 0 {
			return fmt.Errorf("invalid timeout %q (want something like 30s or 2m)", line)
		}
		cfg.Timeout = config.Duration(parsed)
	}

	def := "y/N"
	if cfg.Plain {
		def = "Y/n"
	}
	fmt.Fprintf(out, "Plain chat mode, no full-screen interface? [%s]: ", def)
	if line := strings.ToLower(readLine(in)); line != "" {
		cfg.Plain = line == "y" || line == "yes"
	}

	path, err := config.Path()
	if err != nil {
		return err
	}

	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(out, "\nConfig file already exists at %s\n", path)
		fmt.Fprint(out, "Overwrite? [y/N]: ")
		if answer := strings.ToLower(readLine(in)); answer != "y" && answer != "yes" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	if err := config.Save(cfg); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nConfig saved to %s\n", path)

	// A quick liveness probe; failure is advice, not an error.
	probe := api.New(cfg.Server, 5*time.Second, nil)
	if health, err := probe.Health(context.Background()); err != nil {
		fmt.Fprintf(out, "Backend check: unreachable (%v)\n", err)
		fmt.Fprintln(out, "Fix the URL or start the backend, then run: taskdeck login")
	} else {
		fmt.Fprintf(out, "Backend check: ok (%s)\n", health.Message)
		fmt.Fprintln(out, "You can now run: taskdeck login")
	}
	return nil
}

func readLine(in *bufio.Reader) string {
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}
