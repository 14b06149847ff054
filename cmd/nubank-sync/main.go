package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/nubank-ynab-sync/internal/cli"
	"github.com/eshaffer321/nubank-ynab-sync/internal/infrastructure/config"
)

// app carries the configuration shared by every command
type app struct {
	configPath string
	cfg        *config.Config
}

// loadConfig reads the config file, falling back to the environment when it
// does not exist. validate is false for commands that never reach the APIs.
func (a *app) loadConfig(validate bool) error {
	cfg, err := config.LoadOrEnv(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}
	a.cfg = cfg
	return nil
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "nubank-sync",
		Short:         "Import Nubank card and checking transactions into YNAB",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "config.yaml", "Configuration file path")

	root.AddCommand(syncCommand(a), serveCommand(a), runsCommand(a))
	return root
}

func syncCommand(a *app) *cobra.Command {
	var flags cli.SyncFlags

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync and print its summary",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(true)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			flags.ConfigPath = a.configPath
			return cli.RunSync(ctx, a.cfg, flags, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "Normalize and report without importing")
	cmd.Flags().StringVar(&flags.Since, "since", "", "Import start date YYYY-MM-DD (overrides the configured start)")
	cmd.Flags().BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	return cmd
}

func serveCommand(a *app) *cobra.Command {
	var flags cli.ServeFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API for triggering and inspecting syncs",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(true)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.ConfigPath = a.configPath
			return cli.RunServe(a.cfg, flags)
		},
	}

	cmd.Flags().IntVar(&flags.Port, "port", 8080, "Port to listen on")
	cmd.Flags().BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	return cmd
}

func runsCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent sync runs",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(false)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.PrintRuns(cmd.OutOrStdout(), a.cfg, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to show")
	return cmd
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
