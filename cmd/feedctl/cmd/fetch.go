package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/msto63/chainfeed/internal/feed"
	"github.com/msto63/chainfeed/internal/kraken"
	"github.com/msto63/chainfeed/pkg/core/config"
)

var (
	tickerInterval int32
	ohlcInterval   int32
)

// fetchCommand builds a command that connects one service and prints the
// value returned by get
func fetchCommand(use, short, service string, args cobra.PositionalArgs, get func(ctx context.Context, r *feed.Registry, args []string) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := connect(cmd.Context(), service)
			if err != nil {
				printError("connection failed", err)
				return err
			}
			defer r.Close()

			v, err := get(cmd.Context(), r, args)
			if err != nil {
				return err
			}
			return writeValue(cmd.OutOrStdout(), outputFormat, v)
		},
	}
}

var blockCmd = fetchCommand("block <height>", "Show the block at a height", config.ServiceBlocks, cobra.ExactArgs(1),
	func(ctx context.Context, r *feed.Registry, args []string) (any, error) {
		height, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid height %q: %w", args[0], err)
		}
		return r.Blocks.Block(ctx, height), nil
	})

var latestBlockCmd = fetchCommand("latest-block", "Show the newest block", config.ServiceBlocks, cobra.NoArgs,
	func(ctx context.Context, r *feed.Registry, _ []string) (any, error) {
		return r.Blocks.LatestBlock(ctx), nil
	})

var currencyCmd = fetchCommand("currency", "Show the latest exchange rates", config.ServiceCurrency, cobra.NoArgs,
	func(ctx context.Context, r *feed.Registry, _ []string) (any, error) {
		return r.Currency.Currency(ctx), nil
	})

var tickerCmd = fetchCommand("ticker", "Show the ticker for an interval", config.ServiceKraken, cobra.NoArgs,
	func(ctx context.Context, r *feed.Registry, _ []string) (any, error) {
		return r.Kraken.Ticker(ctx, tickerInterval), nil
	})

var mondayCmd = fetchCommand("monday", "Show the ticker taken at the start of the week", config.ServiceKraken, cobra.NoArgs,
	func(ctx context.Context, r *feed.Registry, _ []string) (any, error) {
		return r.Kraken.MondayTicker(ctx), nil
	})

var tickerDayCmd = fetchCommand("ticker-day", "Show the first ticker of the day stream", config.ServiceKraken, cobra.NoArgs,
	func(ctx context.Context, r *feed.Registry, _ []string) (any, error) {
		return r.Kraken.TickerDayFirst(ctx), nil
	})

var ohlcCmd = fetchCommand("ohlc", "Show the first OHLC bar for an interval", config.ServiceKraken, cobra.NoArgs,
	func(ctx context.Context, r *feed.Registry, _ []string) (any, error) {
		return r.Kraken.FirstOhlcBar(ctx, ohlcInterval), nil
	})

func init() {
	tickerCmd.Flags().Int32Var(&tickerInterval, "interval", kraken.IntervalDay, "ticker interval")
	ohlcCmd.Flags().Int32Var(&ohlcInterval, "interval", 60, "bar interval")

	rootCmd.AddCommand(blockCmd, latestBlockCmd, currencyCmd, tickerCmd, mondayCmd, tickerDayCmd, ohlcCmd)
}
