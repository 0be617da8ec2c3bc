package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/sartorproj/paxarima/sarima"
	"github.com/sartorproj/paxarima/timeseries"
)

const tracerName = "github.com/sartorproj/paxarima/search"

// ScoredFit is the outcome of fitting one candidate. Err is set when the fit
// failed or produced non-finite criteria; such fits carry +Inf criteria and
// never win.
type ScoredFit struct {
	Index int
	Order sarima.Order
	AIC   float64
	BIC   float64
	Err   error
}

// OK reports whether the fit produced usable criteria.
func (f ScoredFit) OK() bool {
	return f.Err == nil
}

// Best is the minimizing candidate for one criterion.
type Best struct {
	Order sarima.Order
	Value float64
	Index int
}

// Result is the outcome of one search.
type Result struct {
	ByAIC     Best
	ByBIC     Best
	Fits      []ScoredFit // every candidate, in enumeration order
	Failed    []ScoredFit
	Evaluated int
}

// Recorder observes search activity. A nil Recorder is ignored.
type Recorder interface {
	ObserveFit(d time.Duration, err error)
	ObserveSearch(d time.Duration, err error)
}

// Searcher runs the grid for one series at a time. It holds no per-search
// state and may be shared.
type Searcher struct {
	Fitter   Fitter
	Bounds   Bounds
	Workers  int // default GOMAXPROCS
	Logger   *slog.Logger
	Recorder Recorder
}

// NewSearcher returns a Searcher over bounds using the SARIMA estimator
// conditioned on bounds.Condition.
func NewSearcher(bounds Bounds) *Searcher {
	return &Searcher{Fitter: SARIMAFitter{Condition: bounds.Condition()}, Bounds: bounds}
}

func (s *Searcher) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Searcher) workers() int {
	if s.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return s.Workers
}

// Search fits every candidate of the grid to series concurrently and folds
// the scores in enumeration order. Failed candidates are recorded in the
// result and logged. If every candidate fails it returns
// *sarima.FitConvergenceError. Cancelling ctx aborts outstanding fits.
func (s *Searcher) Search(ctx context.Context, series *timeseries.Series) (res *Result, err error) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "search")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if s.Recorder != nil {
			s.Recorder.ObserveSearch(time.Since(start), err)
		}
	}()

	if err := s.Bounds.Validate(); err != nil {
		return nil, err
	}
	if err := timeseries.RequireLen(series, "search", 2*s.Bounds.period()); err != nil {
		return nil, err
	}
	fitter := s.Fitter
	if fitter == nil {
		fitter = SARIMAFitter{Condition: s.Bounds.Condition()}
	}

	candidates := Enumerate(s.Bounds)
	span.SetAttributes(
		attribute.String("series", series.Name),
		attribute.Int("candidates", len(candidates)),
	)

	slots := make([]ScoredFit, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers())
	for i, order := range candidates {
		i, order := i, order
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = s.score(gctx, fitter, series, i, order)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("search %q: %w", series.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("search %q: %w", series.Name, err)
	}

	res, ok := Reduce(slots)
	if !ok {
		return nil, &sarima.FitConvergenceError{
			Series: series.Name,
			Err:    fmt.Errorf("all %d candidates failed, first: %w", len(slots), slots[0].Err),
		}
	}

	s.logger().Info("order search complete",
		"series", series.Name,
		"evaluated", res.Evaluated,
		"failed", len(res.Failed),
		"best_aic", res.ByAIC.Order.String(),
		"best_bic", res.ByBIC.Order.String(),
		"duration", time.Since(start),
	)
	span.SetAttributes(
		attribute.String("best_aic", res.ByAIC.Order.String()),
		attribute.String("best_bic", res.ByBIC.Order.String()),
		attribute.Int("failed", len(res.Failed)),
	)
	return res, nil
}

func (s *Searcher) score(ctx context.Context, fitter Fitter, series *timeseries.Series, index int, order sarima.Order) ScoredFit {
	start := time.Now()
	fit := ScoredFit{Index: index, Order: order, AIC: math.Inf(1), BIC: math.Inf(1)}

	model, err := fitter.Fit(ctx, series, order)
	switch {
	case err != nil:
		fit.Err = err
	case model == nil:
		fit.Err = errors.New("fitter returned no model")
	case !finite(model.AIC) || !finite(model.BIC):
		fit.Err = fmt.Errorf("non-finite criteria AIC=%v BIC=%v: %w", model.AIC, model.BIC, sarima.ErrNotConverged)
	default:
		fit.AIC, fit.BIC = model.AIC, model.BIC
	}

	if s.Recorder != nil {
		s.Recorder.ObserveFit(time.Since(start), fit.Err)
	}
	if fit.Err != nil && ctx.Err() == nil {
		s.logger().Warn("candidate fit failed",
			"series", series.Name,
			"order", order.String(),
			"error", fit.Err,
		)
	}
	return fit
}

// bestPair is the running (best-AIC, best-BIC) state of the fold.
type bestPair struct {
	aic, bic Best
	found    bool
}

// with returns the pair after considering f. Strict comparison keeps the
// earlier candidate on ties.
func (p bestPair) with(f ScoredFit) bestPair {
	if !f.OK() {
		return p
	}
	candidate := func(v float64) Best { return Best{Order: f.Order, Value: v, Index: f.Index} }
	if !p.found {
		return bestPair{aic: candidate(f.AIC), bic: candidate(f.BIC), found: true}
	}
	next := p
	if f.AIC < p.aic.Value {
		next.aic = candidate(f.AIC)
	}
	if f.BIC < p.bic.Value {
		next.bic = candidate(f.BIC)
	}
	return next
}

// Reduce folds fits in slice order into the minimal-AIC and minimal-BIC
// candidates. ok is false when no fit succeeded.
func Reduce(fits []ScoredFit) (res *Result, ok bool) {
	var pair bestPair
	res = &Result{Fits: fits, Evaluated: len(fits)}
	for _, f := range fits {
		pair = pair.with(f)
		if !f.OK() {
			res.Failed = append(res.Failed, f)
		}
	}
	if !pair.found {
		return nil, false
	}
	res.ByAIC, res.ByBIC = pair.aic, pair.bic
	return res, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
