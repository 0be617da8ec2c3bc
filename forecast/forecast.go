package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/paxarima/sarima"
	"github.com/sartorproj/paxarima/search"
	"github.com/sartorproj/paxarima/stats"
	"github.com/sartorproj/paxarima/timeseries"
)

const tracerName = "github.com/sartorproj/paxarima/forecast"

const (
	// DefaultConfidence is the coverage of the forecast intervals.
	DefaultConfidence = 0.95
	// DefaultLjungBoxLags is the number of residual autocorrelations the
	// Ljung-Box statistic pools, two seasonal cycles of a monthly series.
	DefaultLjungBoxLags = 24
)

// Point is one forecast month.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
	Lower float64   `json:"lower"`
	Upper float64   `json:"upper"`
}

// Diagnostics describes the in-sample residuals of a fit.
type Diagnostics struct {
	LjungBox     *stats.LjungBoxResult `json:"ljung_box,omitempty"`
	Residuals    []float64             `json:"-"`
	ResidualMean float64               `json:"residual_mean"`
	ResidualStd  float64               `json:"residual_std"`
}

// Output is the result of Run.
type Output struct {
	Series      string
	Order       sarima.Order
	Confidence  float64
	Model       *sarima.Model
	Points      []Point
	Diagnostics Diagnostics
}

// Values returns the point forecasts.
func (o *Output) Values() []float64 {
	out := make([]float64, len(o.Points))
	for i, p := range o.Points {
		out[i] = p.Value
	}
	return out
}

// Runner fits and forecasts single orders.
type Runner struct {
	Fitter       search.Fitter
	Confidence   float64 // default DefaultConfidence
	LjungBoxLags int     // default DefaultLjungBoxLags
	Logger       *slog.Logger
}

// NewRunner returns a Runner with default confidence and diagnostics lags.
func NewRunner(f search.Fitter) *Runner {
	return &Runner{Fitter: f, Confidence: DefaultConfidence, LjungBoxLags: DefaultLjungBoxLags}
}

func (r *Runner) fitter() search.Fitter {
	if r.Fitter == nil {
		return search.SARIMAFitter{}
	}
	return r.Fitter
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func (r *Runner) confidence() float64 {
	if r.Confidence <= 0 || r.Confidence >= 1 {
		return DefaultConfidence
	}
	return r.Confidence
}

func (r *Runner) ljungBoxLags() int {
	if r.LjungBoxLags <= 0 {
		return DefaultLjungBoxLags
	}
	return r.LjungBoxLags
}

// Run fits order to series and forecasts h months past its last
// observation. A failed fit yields *sarima.FitConvergenceError naming the
// series and order.
func (r *Runner) Run(ctx context.Context, series *timeseries.Series, order sarima.Order, h int) (out *Output, err error) {
	if h < 1 {
		return nil, fmt.Errorf("forecast %q: horizon must be at least 1, got %d", series.Name, h)
	}

	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "forecast")
	span.SetAttributes(
		attribute.String("series", series.Name),
		attribute.String("order", order.String()),
		attribute.Int("horizon", h),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	model, err := r.fitter().Fit(ctx, series, order)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("forecast %q: %w", series.Name, ctxErr)
		}
		return nil, &sarima.FitConvergenceError{Series: series.Name, Order: &order, Err: err}
	}

	conf := r.confidence()
	values, lower, upper, err := model.PredictWithInterval(h, conf)
	if err != nil {
		return nil, &sarima.FitConvergenceError{Series: series.Name, Order: &order, Err: err}
	}

	times := series.NextMonths(h)
	if len(times) != h {
		return nil, errors.New("forecast: series has no timestamps")
	}
	points := make([]Point, h)
	for i := range points {
		points[i] = Point{Time: times[i], Value: values[i], Lower: lower[i], Upper: upper[i]}
	}

	out = &Output{
		Series:      series.Name,
		Order:       order,
		Confidence:  conf,
		Model:       model,
		Points:      points,
		Diagnostics: r.diagnose(model),
	}

	r.logger().Info("forecast complete",
		"series", series.Name,
		"order", order.String(),
		"horizon", h,
		"duration", time.Since(start),
	)
	return out, nil
}

func (r *Runner) diagnose(model *sarima.Model) Diagnostics {
	resid := model.Residuals()
	d := Diagnostics{Residuals: resid}
	if len(resid) > 1 {
		d.ResidualMean, d.ResidualStd = stat.MeanStdDev(resid, nil)
	}
	if sum := model.Summary(r.ljungBoxLags()); sum != nil {
		d.LjungBox = sum.LjungBox
	}
	return d
}
