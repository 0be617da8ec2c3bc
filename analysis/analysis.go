package analysis

import (
	"github.com/sartorproj/paxarima/stats"
	"github.com/sartorproj/paxarima/timeseries"
)

// DefaultMaxLag is the largest ACF/PACF lag reported.
const DefaultMaxLag = 36

// Options controls Analyze. Zero values select the defaults.
type Options struct {
	Period         int    // seasonal period, default timeseries.Monthly
	MaxLag         int    // correlogram depth, default DefaultMaxLag
	ADFLags        int    // lagged differences in the ADF regression, 0 for the default rule
	KPSSRegression string // "c" (default) or "ct"
}

func (o Options) withDefaults(s *timeseries.Series) Options {
	if o.Period <= 0 {
		o.Period = s.Period()
	}
	if o.MaxLag <= 0 {
		o.MaxLag = DefaultMaxLag
	}
	if o.KPSSRegression != "ct" {
		o.KPSSRegression = "c"
	}
	return o
}

// Report is the stationarity evidence for one series.
type Report struct {
	Series           string
	N                int
	Period           int
	Decomposition    *stats.DecompositionResult
	ADF              *stats.ADFResult // nil when the regression is singular
	KPSS             *stats.KPSSResult
	ACF              *stats.Correlogram
	PACF             *stats.Correlogram
	SeasonalStrength float64
}

// Analyze computes the decomposition, unit-root tests and correlograms of s.
// ACF and PACF cover lags 1..MaxLag, capped at n-1.
func Analyze(s *timeseries.Series, opts Options) (*Report, error) {
	opts = opts.withDefaults(s)

	if err := timeseries.RequireLen(s, "analyze", 2*opts.Period); err != nil {
		return nil, err
	}
	if s.IsConstant() {
		return nil, &timeseries.DegenerateSeriesError{Series: s.Name, Op: "analyze"}
	}

	maxLag := min(opts.MaxLag, s.Len()-1)

	r := &Report{
		Series:        s.Name,
		N:             s.Len(),
		Period:        opts.Period,
		Decomposition: stats.Decompose(s, opts.Period),
		ADF:           stats.ADF(s, opts.ADFLags),
		KPSS:          stats.KPSS(s, opts.KPSSRegression, 0),
		ACF:           stats.ACFCorrelogram(s, maxLag),
		PACF:          stats.PACFCorrelogram(s, maxLag),
	}
	if r.Decomposition != nil {
		r.SeasonalStrength = r.Decomposition.SeasonalStrength()
	}
	return r, nil
}

// UnitRootRejected reports whether the ADF test rejects the unit-root null at 5%.
func (r *Report) UnitRootRejected() bool {
	return r.ADF != nil && r.ADF.PValue < 0.05
}

// SeasonalPeak reports whether the ACF at the seasonal lag is a local maximum
// above the significance band.
func (r *Report) SeasonalPeak() bool {
	if r.ACF == nil || r.Period+1 > len(r.ACF.Values) {
		return false
	}
	at := r.ACF.At(r.Period)
	return at > r.ACF.Band && at > r.ACF.At(r.Period-1) && at > r.ACF.At(r.Period+1)
}
