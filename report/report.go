package report

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sartorproj/paxarima/analysis"
	"github.com/sartorproj/paxarima/forecast"
	"github.com/sartorproj/paxarima/internal/config"
	"github.com/sartorproj/paxarima/internal/metrics"
	"github.com/sartorproj/paxarima/internal/telemetry"
	"github.com/sartorproj/paxarima/sarima"
	"github.com/sartorproj/paxarima/search"
	"github.com/sartorproj/paxarima/timeseries"
	"github.com/sartorproj/paxarima/traffic"
)

// Runner executes pipeline stages with one configuration. The fit cache is
// shared by every airport of the run.
type Runner struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *metrics.Recorder
	cache    *search.CachingFitter
	searcher *search.Searcher
	forecast *forecast.Runner
}

// New builds a Runner. rec may be nil.
func New(cfg *config.Config, logger *slog.Logger, rec *metrics.Recorder) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	bounds := cfg.Bounds()
	cache, err := search.NewCachingFitter(search.SARIMAFitter{Condition: bounds.Condition()}, cfg.Cache.Size)
	if err != nil {
		return nil, fmt.Errorf("fit cache: %w", err)
	}

	searcher := &search.Searcher{
		Fitter:  cache,
		Bounds:  bounds,
		Workers: cfg.Search.Workers,
		Logger:  logger,
	}
	if rec != nil {
		searcher.Recorder = rec
	}

	return &Runner{
		cfg:      cfg,
		logger:   logger,
		metrics:  rec,
		cache:    cache,
		searcher: searcher,
		forecast: &forecast.Runner{
			Fitter:       cache,
			Confidence:   cfg.Forecast.Confidence,
			LjungBoxLags: cfg.Forecast.LjungBoxLags,
			Logger:       logger,
		},
	}, nil
}

// LoadTable reads the traffic table and attaches countries when a mapping
// is configured.
func (r *Runner) LoadTable() (*traffic.Table, error) {
	tbl, err := traffic.LoadFile(r.cfg.Input.Traffic, r.cfg.Input.Wide, r.cfg.LoadOptions())
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", r.cfg.Input.Traffic, err)
	}
	if r.cfg.Input.Countries != "" {
		mapping, err := traffic.LoadCountriesFile(r.cfg.Input.Countries)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", r.cfg.Input.Countries, err)
		}
		if err := tbl.AttachCountries(mapping); err != nil {
			return nil, err
		}
	}
	r.logger.Info("traffic table loaded",
		"path", r.cfg.Input.Traffic,
		"records", tbl.Len(),
		"airports", len(tbl.Airports()),
	)
	return tbl, nil
}

// Airports returns the configured airports, or every airport of tbl.
func (r *Runner) Airports(tbl *traffic.Table) []string {
	if len(r.cfg.Input.Airports) > 0 {
		return r.cfg.Input.Airports
	}
	return tbl.Airports()
}

// Series builds the series of airport under the configured window and
// missing-value policy.
func (r *Runner) Series(tbl *traffic.Table, airport string) (*timeseries.Series, error) {
	w, err := r.cfg.TrafficWindow()
	if err != nil {
		return nil, err
	}
	policy, err := traffic.ParseMissingPolicy(r.cfg.Input.MissingPolicy)
	if err != nil {
		return nil, err
	}
	return tbl.Series(airport, w, policy)
}

// Analyze reports stationarity evidence for s.
func (r *Runner) Analyze(ctx context.Context, s *timeseries.Series) (*analysis.Report, error) {
	_, span := telemetry.StartSpan(ctx, "stage.analyze",
		telemetry.AttrStage.String("analyze"),
		telemetry.AttrAirport.String(s.Name),
	)
	defer span.End()

	rep, err := analysis.Analyze(s, analysis.Options{Period: r.cfg.Search.Period})
	telemetry.RecordError(span, err)
	return rep, err
}

// Search runs the order search on s.
func (r *Runner) Search(ctx context.Context, s *timeseries.Series) (*search.Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "stage.search",
		telemetry.AttrStage.String("search"),
		telemetry.AttrAirport.String(s.Name),
	)
	defer span.End()

	res, err := r.searcher.Search(ctx, s)
	telemetry.RecordError(span, err)
	return res, err
}

// Forecast fits order to s and forecasts the configured horizon.
func (r *Runner) Forecast(ctx context.Context, s *timeseries.Series, order sarima.Order) (*forecast.Output, error) {
	ctx, span := telemetry.StartSpan(ctx, "stage.forecast",
		telemetry.AttrStage.String("forecast"),
		telemetry.AttrAirport.String(s.Name),
		telemetry.AttrOrder.String(order.String()),
	)
	defer span.End()

	out, err := r.forecast.Run(ctx, s, order, r.cfg.Forecast.Horizon)
	telemetry.RecordError(span, err)
	return out, err
}

// Selected returns the search winner under the configured criterion.
func (r *Runner) Selected(res *search.Result) search.Best {
	if r.cfg.Search.Criterion == "bic" {
		return res.ByBIC
	}
	return res.ByAIC
}

// Summary is the outcome of a full run.
type Summary struct {
	RunID    string           `json:"run_id"`
	Started  time.Time        `json:"started"`
	Finished time.Time        `json:"finished"`
	Airports []*AirportReport `json:"airports"`
}

// Failed returns the airports whose pipeline failed.
func (s *Summary) Failed() []*AirportReport {
	var out []*AirportReport
	for _, a := range s.Airports {
		if a.Error != "" {
			out = append(out, a)
		}
	}
	return out
}

// Run executes the whole pipeline: load, clean, then per airport analyze,
// search, forecast and write. Airports run concurrently up to
// search.parallelism; a failing airport is reported and the others go on.
// The returned error joins every airport failure.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	sum := &Summary{RunID: uuid.NewString(), Started: time.Now().UTC()}
	ctx, span := telemetry.StartSpan(ctx, "report", telemetry.AttrRunID.String(sum.RunID))
	defer span.End()

	logger := r.logger.With("run_id", sum.RunID)
	logger.Info("run started", "output", r.cfg.Output.Dir)

	tbl, err := r.LoadTable()
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	out := NewWriter(r.cfg.Output.Dir)
	if err := out.Cleaned(tbl); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var ind *traffic.Indicators
	if r.cfg.Input.Indicators != "" {
		if ind, err = traffic.LoadIndicatorsFile(r.cfg.Input.Indicators); err != nil {
			err = fmt.Errorf("load %s: %w", r.cfg.Input.Indicators, err)
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	airports := r.Airports(tbl)
	reports := make([]*AirportReport, len(airports))
	var (
		mu   sync.Mutex
		errs []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Search.Parallelism)
	for i, airport := range airports {
		i, airport := i, airport
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rep, err := r.airport(gctx, sum.RunID, tbl, ind, airport)
			if err != nil {
				rep.Error = err.Error()
			}
			if werr := out.Airport(rep); err == nil {
				err = werr
			}
			if r.metrics != nil {
				r.metrics.ObserveAirport(err)
			}
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				rep.Error = err.Error()
				logger.Error("airport failed", "airport", airport, "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("airport %s: %w", airport, err))
				mu.Unlock()
			}
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	sum.Airports = reports
	sum.Finished = time.Now().UTC()
	if err := out.Summary(sum); err != nil {
		return sum, err
	}
	if r.metrics != nil {
		r.metrics.SetCacheStats(r.cache.Stats())
		if r.cfg.Metrics.Enabled {
			if err := r.metrics.WriteTextfile(r.cfg.Metrics.Textfile); err != nil {
				logger.Warn("metrics textfile not written", "path", r.cfg.Metrics.Textfile, "error", err)
			}
		}
	}

	slices.SortFunc(errs, func(a, b error) int { return cmp.Compare(a.Error(), b.Error()) })
	err = errors.Join(errs...)
	telemetry.RecordError(span, err)
	logger.Info("run finished",
		"airports", len(airports),
		"failed", len(errs),
		"duration", sum.Finished.Sub(sum.Started),
	)
	return sum, err
}

// airport runs every stage for one airport. The report is never nil.
func (r *Runner) airport(ctx context.Context, runID string, tbl *traffic.Table, ind *traffic.Indicators, airport string) (rep *AirportReport, err error) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "airport",
		telemetry.AttrRunID.String(runID),
		telemetry.AttrAirport.String(airport),
	)
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	rep = &AirportReport{RunID: runID, Airport: airport, Country: tbl.Country(airport)}
	logger := r.logger.With("run_id", runID, "airport", airport)

	s, err := r.Series(tbl, airport)
	if err != nil {
		return rep, err
	}
	rep.setSeries(s)
	if !rep.Consecutive {
		logger.Warn("series has gaps, lags span missing months", "missing_months", rep.Missing)
	}

	a, err := r.Analyze(ctx, s)
	if err != nil {
		return rep, err
	}
	rep.Stationarity = newStationarity(a)
	logger.Info("analysis complete", "n", a.N, "seasonal_strength", a.SeasonalStrength)

	order, fixed := r.cfg.FixedOrder()
	if !fixed {
		res, err := r.Search(ctx, s)
		if err != nil {
			return rep, err
		}
		rep.setSearch(res)
		order = r.Selected(res).Order
	}
	rep.Order = order.String()
	rep.Criterion = r.criterion(fixed)
	span.SetAttributes(telemetry.AttrOrder.String(rep.Order))

	out, err := r.Forecast(ctx, s, order)
	if err != nil {
		return rep, err
	}
	rep.setForecast(out)

	if h := r.cfg.Forecast.Holdout; h > 0 {
		acc, err := r.forecast.Evaluate(ctx, s, order, h)
		if err != nil {
			logger.Warn("holdout evaluation skipped", "holdout", h, "error", err)
		} else {
			rep.Accuracy = acc
		}
	}

	if ind != nil {
		anns, err := ind.Annotate(s, airport, r.cfg.Input.StrictIndicators)
		if err != nil {
			return rep, err
		}
		rep.Indicators = traffic.ActiveMonths(anns)
	}

	logger.Info("airport complete", "order", rep.Order, "duration", time.Since(start))
	return rep, nil
}

func (r *Runner) criterion(fixed bool) string {
	if fixed {
		return "fixed"
	}
	return r.cfg.Search.Criterion
}
