package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/msto63/chainfeed/internal/feed"
	"github.com/msto63/chainfeed/pkg/core/config"
	"github.com/msto63/chainfeed/pkg/core/health"
	"github.com/msto63/chainfeed/pkg/core/logging"
	"github.com/msto63/chainfeed/pkg/core/metrics"
)

var (
	watchRate        float64
	watchCount       int
	watchMetricsAddr string
	watchInterval    int32
)

// watchTargets maps a watch target to its service and accessor
var watchTargets = map[string]struct {
	service string
	get     func(ctx context.Context, r *feed.Registry) any
}{
	"ticker": {config.ServiceKraken, func(ctx context.Context, r *feed.Registry) any {
		return r.Kraken.Ticker(ctx, watchInterval)
	}},
	"currency": {config.ServiceCurrency, func(ctx context.Context, r *feed.Registry) any {
		return r.Currency.Currency(ctx)
	}},
	"latest-block": {config.ServiceBlocks, func(ctx context.Context, r *feed.Registry) any {
		return r.Blocks.LatestBlock(ctx)
	}},
}

var watchCmd = &cobra.Command{
	Use:       "watch ticker|currency|latest-block",
	Short:     "Poll a value at a fixed rate",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"ticker", "currency", "latest-block"},
	RunE:      runWatch,
}

func init() {
	watchCmd.Flags().Float64Var(&watchRate, "rate", 1, "polls per second")
	watchCmd.Flags().IntVar(&watchCount, "count", 0, "stop after this many polls (0 = until interrupted)")
	watchCmd.Flags().Int32Var(&watchInterval, "interval", 1, "ticker interval")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchRate <= 0 {
		return errors.New("--rate must be positive")
	}
	target := watchTargets[args[0]]
	logger := logging.New("feedctl")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r, err := connectWith(ctx, []feed.Option{feed.WithRegisterer(reg)}, target.service)
	if err != nil {
		printError("connection failed", err)
		return err
	}
	defer r.Close()

	if addr := metricsAddr(); addr != "" {
		srv := &http.Server{Addr: addr, Handler: metricsMux(reg, r), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", "address", addr, "error", err)
			}
		}()
		defer srv.Close()
		logger.Info("Serving metrics", "address", addr)
	}

	limiter := rate.NewLimiter(rate.Limit(watchRate), 1)
	for n := 0; watchCount == 0 || n < watchCount; n++ {
		if err := limiter.Wait(ctx); err != nil {
			// interrupted
			return nil
		}
		if err := writeValue(cmd.OutOrStdout(), outputFormat, target.get(ctx, r)); err != nil {
			return err
		}
	}
	return nil
}

// metricsAddr prefers the flag, then the metrics section of the config
func metricsAddr() string {
	if watchMetricsAddr != "" {
		return watchMetricsAddr
	}
	if appConfig.Metrics.Enabled {
		return appConfig.Metrics.Address
	}
	return ""
}

func metricsMux(reg *prometheus.Registry, r *feed.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		report := r.Health().Check(req.Context())
		w.Header().Set("Content-Type", "application/json")
		if report.Status == health.StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		writeValue(w, "json", report)
	})
	return mux
}
