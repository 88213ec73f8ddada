package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/msto63/chainfeed/internal/feed"
	"github.com/msto63/chainfeed/pkg/core/config"
	"github.com/msto63/chainfeed/pkg/core/logging"
)

var (
	cfgFile      string
	verbose      bool
	outputFormat string
	timeout      time.Duration

	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "feedctl",
	Short: "chainfeed - query the blocks, currency and kraken services",
	Long: `feedctl talks to the blocks, currency and kraken gRPC services.

Endpoints come from the config file, SERVER_URL and the per service
BLOCKS_SERVER_URL, CURRENCY_SERVER_URL and KRAKEN_SERVER_URL variables.
A failed query prints the empty value of the requested type.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $CHAINFEED_CONFIG or ./configs/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "json", "output format: json or yaml")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "how long to keep retrying the connection")
}

func setup(cmd *cobra.Command, args []string) error {
	if outputFormat != "json" && outputFormat != "yaml" {
		return fmt.Errorf("unsupported output format %q", outputFormat)
	}

	var err error
	if cfgFile != "" {
		appConfig, err = config.Load(cfgFile)
	} else {
		appConfig, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}

	level := appConfig.General.LogLevel
	if verbose {
		level = "debug"
	}
	logging.SetDefaults(logging.LoggerConfig{
		Level:  level,
		Format: appConfig.General.LogFormat,
		File:   appConfig.General.LogFile,
		Output: os.Stderr,
	})
	return nil
}

// connect builds a registry and connects the named services within --timeout
func connect(ctx context.Context, services ...string) (*feed.Registry, error) {
	return connectWith(ctx, nil, services...)
}

func connectWith(ctx context.Context, opts []feed.Option, services ...string) (*feed.Registry, error) {
	r := feed.New(appConfig, opts...)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for _, name := range services {
		if err := r.Connect(ctx, name); err != nil {
			r.Close()
			return nil, fmt.Errorf("connect %s: %w", name, err)
		}
	}
	return r, nil
}

func printError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
}
