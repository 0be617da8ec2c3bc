package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sartorproj/paxarima/internal/config"
	"github.com/sartorproj/paxarima/internal/logging"
	"github.com/sartorproj/paxarima/internal/metrics"
	"github.com/sartorproj/paxarima/internal/telemetry"
	"github.com/sartorproj/paxarima/report"
	"github.com/sartorproj/paxarima/sarima"
	"github.com/sartorproj/paxarima/timeseries"
	"github.com/sartorproj/paxarima/traffic"
)

// options holds the persistent flags. Zero values leave the config alone.
type options struct {
	configPath string
	logLevel   string
	logJSON    bool
	airports   []string
	output     string
}

// app is what every subcommand needs once the config is resolved.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	runner   *report.Runner
	writer   *report.Writer
	shutdown telemetry.ShutdownFunc
}

func (o *options) setup(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logJSON {
		cfg.Logging.JSON = true
	}
	if len(o.airports) > 0 {
		cfg.Input.Airports = o.airports
	}
	if o.output != "" {
		cfg.Output.Dir = o.output
	}

	logger := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.JSON)
	shutdown, err := telemetry.Init(cmd.Context(), telemetry.Config{
		Enabled:           cfg.Tracing.Enabled,
		ServiceName:       "paxarima",
		ServiceVersion:    version,
		Environment:       cfg.Tracing.Environment,
		CollectorEndpoint: cfg.Tracing.Endpoint,
		CollectorInsecure: cfg.Tracing.Insecure,
		SamplingRate:      cfg.Tracing.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	runner, err := report.New(cfg, logger, metrics.New())
	if err != nil {
		_ = shutdown(context.Background())
		return nil, err
	}
	return &app{
		cfg:      cfg,
		logger:   logger,
		runner:   runner,
		writer:   report.NewWriter(cfg.Output.Dir),
		shutdown: shutdown,
	}, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.shutdown(ctx); err != nil {
		a.logger.Warn("tracer shutdown failed", "error", err)
	}
}

// each runs fn for every selected airport in turn. A failing airport is
// logged and the rest still run; cancellation stops the loop.
func (a *app) each(ctx context.Context, tbl *traffic.Table, fn func(airport string, s *timeseries.Series) error) error {
	var errs []error
	for _, airport := range a.runner.Airports(tbl) {
		if err := ctx.Err(); err != nil {
			return err
		}
		s, err := a.runner.Series(tbl, airport)
		if err == nil {
			err = fn(airport, s)
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.Error("airport failed", "airport", airport, "error", err)
			errs = append(errs, fmt.Errorf("airport %s: %w", airport, err))
		}
	}
	return errors.Join(errs...)
}

// command wraps a subcommand body with setup and teardown.
func command(opts *options, run func(ctx context.Context, a *app, out io.Writer) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		a, err := opts.setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		return run(cmd.Context(), a, cmd.OutOrStdout())
	}
}

func cleanCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Load the traffic table and write cleaned.csv",
		Long: `Reads the long or wide passenger table, resolves missing markers, attaches
countries and writes the normalized long table to <output>/cleaned.csv.`,
		Args: cobra.NoArgs,
		RunE: command(opts, func(ctx context.Context, a *app, out io.Writer) error {
			tbl, err := a.runner.LoadTable()
			if err != nil {
				return err
			}
			if err := a.writer.Cleaned(tbl); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d records, %d airports written to %s/cleaned.csv\n",
				tbl.Len(), len(tbl.Airports()), a.cfg.Output.Dir)
			return nil
		}),
	}
}

func analyzeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Report stationarity evidence per airport",
		Args:  cobra.NoArgs,
		RunE: command(opts, func(ctx context.Context, a *app, out io.Writer) error {
			tbl, err := a.runner.LoadTable()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "AIRPORT\tN\tADF p\tKPSS p\tUNIT ROOT\tSEASONAL STRENGTH\tSEASONAL PEAK")
			err = a.each(ctx, tbl, func(airport string, s *timeseries.Series) error {
				r, err := a.runner.Analyze(ctx, s)
				if err != nil {
					return err
				}
				adf, kpss := "-", "-"
				if r.ADF != nil {
					adf = fmt.Sprintf("%.3f", r.ADF.PValue)
				}
				if r.KPSS != nil {
					kpss = fmt.Sprintf("%.3f", r.KPSS.PValue)
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%t\t%.3f\t%t\n",
					airport, r.N, adf, kpss, !r.UnitRootRejected(), r.SeasonalStrength, r.SeasonalPeak())
				return nil
			})
			if ferr := tw.Flush(); err == nil {
				err = ferr
			}
			return err
		}),
	}
}

func searchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "search",
		Short: "Score the order grid per airport and write fits.csv",
		Args:  cobra.NoArgs,
		RunE: command(opts, func(ctx context.Context, a *app, out io.Writer) error {
			tbl, err := a.runner.LoadTable()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "AIRPORT\tEVALUATED\tFAILED\tBEST AIC\tAIC\tBEST BIC\tBIC")
			err = a.each(ctx, tbl, func(airport string, s *timeseries.Series) error {
				res, err := a.runner.Search(ctx, s)
				if err != nil {
					return err
				}
				if err := a.writer.Fits(airport, res.Fits); err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%.2f\t%s\t%.2f\n", airport, res.Evaluated, len(res.Failed),
					res.ByAIC.Order, res.ByAIC.Value, res.ByBIC.Order, res.ByBIC.Value)
				return nil
			})
			if ferr := tw.Flush(); err == nil {
				err = ferr
			}
			return err
		}),
	}
}

func forecastCmd(opts *options) *cobra.Command {
	var (
		order   string
		horizon int
	)
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast each airport and write forecast.csv",
		Long: `Fits the order given by --order or forecast.order, or the search winner
under search.criterion when neither is set, and forecasts the horizon.`,
		Args: cobra.NoArgs,
		RunE: command(opts, func(ctx context.Context, a *app, out io.Writer) error {
			if horizon > 0 {
				a.cfg.Forecast.Horizon = horizon
			}
			fixed, ok := a.cfg.FixedOrder()
			if order != "" {
				o, err := sarima.ParseOrder(order)
				if err != nil {
					return fmt.Errorf("--order: %w", err)
				}
				fixed, ok = o, true
			}

			tbl, err := a.runner.LoadTable()
			if err != nil {
				return err
			}
			return a.each(ctx, tbl, func(airport string, s *timeseries.Series) error {
				o := fixed
				if !ok {
					res, err := a.runner.Search(ctx, s)
					if err != nil {
						return err
					}
					o = a.runner.Selected(res).Order
				}
				fc, err := a.runner.Forecast(ctx, s, o)
				if err != nil {
					return err
				}
				if err := a.writer.Forecast(airport, fc.Points); err != nil {
					return err
				}
				fmt.Fprintf(out, "%s %s\n", airport, o)
				for _, p := range fc.Points {
					fmt.Fprintf(out, "  %s  %.0f  [%.0f, %.0f]\n", timeseries.FormatMonth(p.Time), p.Value, p.Lower, p.Upper)
				}
				return nil
			})
		}),
	}
	cmd.Flags().StringVar(&order, "order", "", `fixed order, e.g. "(0,1,1)(0,1,1)[12]"`)
	cmd.Flags().IntVar(&horizon, "horizon", 0, "months to forecast (default forecast.horizon)")
	return cmd
}

func runCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the whole pipeline and write every artifact",
		Args:  cobra.NoArgs,
		RunE: command(opts, func(ctx context.Context, a *app, out io.Writer) error {
			sum, err := a.runner.Run(ctx)
			if sum != nil {
				fmt.Fprintf(out, "run %s: %d airports, %d failed, artifacts in %s\n",
					sum.RunID, len(sum.Airports), len(sum.Failed()), a.cfg.Output.Dir)
			}
			return err
		}),
	}
}
