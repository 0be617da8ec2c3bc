package analysis

import (
	"errors"

	"github.com/sartorproj/paxarima/timeseries"
)

// Differenced is a series after an optional seasonal difference followed by
// an optional first difference. Seeds[k] holds the leading observations
// consumed by stage k, in application order, so the original can be rebuilt.
type Differenced struct {
	Series   *timeseries.Series
	Lag      int // seasonal lag
	Seasonal bool
	First    bool
	Seeds    [][]float64
}

// Difference applies the differencing the caller chose. lag <= 0 uses the
// series period. The result has n - lag (if seasonal) - 1 (if first) observations.
func Difference(s *timeseries.Series, first, seasonal bool, lag int) (*Differenced, error) {
	if lag <= 0 {
		lag = s.Period()
	}

	need := 1
	if seasonal {
		need += lag
	}
	if first {
		need++
	}
	if err := timeseries.RequireLen(s, "difference", need); err != nil {
		return nil, err
	}

	d := &Differenced{Lag: lag, Seasonal: seasonal, First: first}
	cur := s
	if seasonal {
		d.Seeds = append(d.Seeds, append([]float64(nil), cur.Values[:lag]...))
		cur = cur.SeasonalDiff(lag)
	}
	if first {
		d.Seeds = append(d.Seeds, append([]float64(nil), cur.Values[:1]...))
		cur = cur.Diff()
	}
	if !seasonal && !first {
		cur = cur.Copy()
	}
	d.Series = cur
	return d, nil
}

// Undo rebuilds the undifferenced values from the seeds.
func (d *Differenced) Undo() ([]float64, error) {
	lags := make([]int, 0, 2)
	if d.Seasonal {
		lags = append(lags, d.Lag)
	}
	if d.First {
		lags = append(lags, 1)
	}
	if len(lags) != len(d.Seeds) {
		return nil, errors.New("seeds do not match differencing stages")
	}

	values := d.Series.Values
	for k := len(lags) - 1; k >= 0; k-- {
		rest, err := timeseries.Integrate(values, d.Seeds[k], lags[k])
		if err != nil {
			return nil, err
		}
		values = append(append([]float64(nil), d.Seeds[k]...), rest...)
	}
	return values, nil
}
