package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/gitnotify/internal/adapter/driven/console"
	"github.com/ericfisherdev/gitnotify/internal/application"
	"github.com/ericfisherdev/gitnotify/internal/config"
)

func newCheckCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate connectivity, the origin remote and the GitHub token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := checkConfig(cmd.Context(), cfg())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s\n", result.Repository.FullName())
			return nil
		},
	}
}

func newPollOnceCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "poll-once",
		Short: "Run a single reconciliation cycle and print the next delay",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := cfg()

			result, err := checkConfig(cmd.Context(), c)
			if err != nil {
				return err
			}

			terminal := console.NewNotifier(os.Stdout)
			bus := application.NewEventBus()
			bus.Subscribe(terminal.Publish)

			reconciler := application.NewReconciler(terminal, bus, pollSettings(c), nil)
			state := application.NewPollState(time.Now(), c.BaseDelay)

			delay, next, err := reconciler.PollOnce(cmd.Context(), result.Gateway, state)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "next poll in %s\n", delay)
			for _, tr := range next.TrackedReviews() {
				fmt.Fprintf(out, "tracking thread %s (PR #%d)\n", tr.ThreadID, tr.Number)
			}
			return nil
		},
	}
}

func checkConfig(ctx context.Context, c *config.Config) (application.CheckResult, error) {
	checker := newConfigChecker(c, tokenSources(c), console.NewNotifier(os.Stdout))
	return checker.Check(ctx)
}
