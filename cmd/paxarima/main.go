// Command paxarima cleans monthly airport passenger tables, selects a
// seasonal ARIMA order per airport and writes forecasts with diagnostics.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "paxarima",
		Short: "Seasonal ARIMA forecasts of monthly airport passenger traffic",
		Long: `paxarima loads a monthly passenger table, builds one series per airport,
tests it for stationarity, searches the seasonal ARIMA order grid by AIC and
BIC, and forecasts the chosen order with confidence intervals.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML config file (default $PAXARIMA_CONFIG)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&opts.logJSON, "log-json", false, "log as JSON")
	flags.StringSliceVarP(&opts.airports, "airport", "a", nil, "airports to process (default every airport)")
	flags.StringVarP(&opts.output, "output", "o", "", "output directory")

	root.AddCommand(
		cleanCmd(opts),
		analyzeCmd(opts),
		searchCmd(opts),
		forecastCmd(opts),
		runCmd(opts),
	)
	return root
}
