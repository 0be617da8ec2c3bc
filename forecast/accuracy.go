package forecast

import (
	"context"
	"fmt"
	"math"

	"github.com/sartorproj/paxarima/sarima"
	"github.com/sartorproj/paxarima/timeseries"
)

// Accuracy compares a forecast against held-out observations.
type Accuracy struct {
	Holdout  int     `json:"holdout"`
	RMSE     float64 `json:"rmse"`
	MAE      float64 `json:"mae"`
	MAPE     float64 `json:"mape"` // percent; zero actuals are skipped
	Forecast *Output `json:"-"`
}

// Evaluate fits order on all but the last holdout observations of series
// and scores the forecast of those months.
func (r *Runner) Evaluate(ctx context.Context, series *timeseries.Series, order sarima.Order, holdout int) (*Accuracy, error) {
	if holdout < 1 {
		return nil, fmt.Errorf("evaluate %q: holdout must be at least 1, got %d", series.Name, holdout)
	}
	if err := timeseries.RequireLen(series, "evaluate", holdout+order.MinObservations()); err != nil {
		return nil, err
	}

	n := series.Len()
	train := series.Slice(0, n-holdout)
	out, err := r.Run(ctx, train, order, holdout)
	if err != nil {
		return nil, err
	}

	rmse, mae, mape := Metrics(series.Values[n-holdout:], out.Values())
	return &Accuracy{Holdout: holdout, RMSE: rmse, MAE: mae, MAPE: mape, Forecast: out}, nil
}

// Metrics calculates forecast accuracy metrics over the common prefix of
// actual and predicted.
func Metrics(actual, predicted []float64) (rmse, mae, mape float64) {
	n := min(len(actual), len(predicted))
	if n == 0 {
		return
	}
	counted := 0
	for i := 0; i < n; i++ {
		d := actual[i] - predicted[i]
		rmse += d * d
		mae += math.Abs(d)
		if actual[i] != 0 {
			mape += math.Abs(d) / math.Abs(actual[i]) * 100
			counted++
		}
	}
	if counted > 0 {
		mape /= float64(counted)
	}
	return math.Sqrt(rmse / float64(n)), mae / float64(n), mape
}
