// Command gitnotify polls GitHub for review requests on the current project's
// repository and surfaces them as notices.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/gitnotify/internal/config"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("fatal error", "error", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg *config.Config

	cmd := &cobra.Command{
		Use:   "gitnotify",
		Short: "Notify about GitHub pull requests awaiting your review",
		Long: `gitnotify watches the GitHub repository behind the current project's origin
remote and raises a notice for every open pull request that requests your review.`,
		Version:       fmt.Sprintf("%s (built: %s)", Version, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			cfg = loaded
			setupLogging(cfg.LogLevel)
			slog.Debug("config loaded",
				"config_file", cfg.ConfigFile,
				"project_dir", cfg.ProjectDir,
				"rc_file", cfg.RCFile,
				"listen_addr", cfg.ListenAddr,
				"db_path", cfg.DBPath,
				"base_delay", cfg.BaseDelay,
			)
			return nil
		},
	}

	// Subcommands read cfg lazily; it is set by PersistentPreRunE.
	current := func() *config.Config { return cfg }

	cmd.AddCommand(
		newRunCmd(current),
		newCheckCmd(current),
		newPollOnceCmd(current),
		newTokenCmd(current),
		newVersionCmd(),
	)

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gitnotify %s (built: %s)\n", Version, BuildTime)
		},
	}
}

func setupLogging(level slog.Level) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
