// Command proxy-check probes a running Kalshi proxy and prints a status report.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/mentionproxy/internal/smoke"
	"github.com/okian/mentionproxy/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfg     smoke.Config
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "proxy-check",
		Short: "Probe a running Kalshi proxy",
		Long: `proxy-check calls the proxy's read-only endpoints concurrently and prints
the status and latency of each. It exits non-zero when /api/health fails.

Portfolio probes need the proxy to be configured with an API key. Orders are
never placed.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var sink io.Writer = io.Discard
			if verbose {
				sink = cmd.ErrOrStderr()
			}
			if err := logger.Init(logger.WithWriter(sink)); err != nil {
				return err
			}
			if verbose {
				return logger.SetLevelString("debug")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := smoke.Run(cmd.Context(), cfg, nil)
			if report.BaseURL != "" {
				if werr := smoke.WriteReport(cmd.OutOrStdout(), report); werr != nil {
					return werr
				}
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&cfg.BaseURL, "url", "u", smoke.DefaultBaseURL, "Base URL of the proxy")
	flags.DurationVarP(&cfg.Timeout, "timeout", "t", smoke.DefaultTimeout, "Per-request timeout")
	flags.IntVarP(&cfg.Concurrency, "concurrency", "c", smoke.DefaultConcurrency, "Maximum probes in flight")
	flags.StringVar(&cfg.Ticker, "ticker", "", "Market ticker to look up")
	flags.BoolVar(&cfg.Portfolio, "portfolio", false, "Also probe balance, positions, fills and orders")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log each probe to stderr")
	cmd.CompletionOptions.DisableDefaultCmd = true

	return cmd
}
