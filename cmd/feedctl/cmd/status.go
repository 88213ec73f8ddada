package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/msto63/chainfeed/internal/feed"
	"github.com/msto63/chainfeed/pkg/core/health"
)

var statusText bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Connect every service and show a health report",
	Long: `Connects the blocks, currency and kraken services concurrently and
reports connection and gRPC health per service. Services that cannot be
reached within --timeout are reported as unhealthy.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusText, "text", false, "plain text report")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	r := feed.New(appConfig)
	defer r.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	err := r.ConnectAll(ctx)
	cancel()
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	report := r.Health().CheckWithTimeout(timeout)
	if statusText {
		fmt.Fprintln(cmd.OutOrStdout(), report.String())
	} else if err := writeValue(cmd.OutOrStdout(), outputFormat, report); err != nil {
		return err
	}

	if report.Status == health.StatusUnhealthy {
		return errors.New("services unhealthy")
	}
	return nil
}
