package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/sartorproj/paxarima/analysis"
	"github.com/sartorproj/paxarima/forecast"
	"github.com/sartorproj/paxarima/search"
	"github.com/sartorproj/paxarima/stats"
	"github.com/sartorproj/paxarima/timeseries"
	"github.com/sartorproj/paxarima/traffic"
)

// Stationarity is the evidence reported for a series. The tests never set
// the differencing orders.
type Stationarity struct {
	ADFStatistic     *float64 `json:"adf_statistic,omitempty"`
	ADFPValue        *float64 `json:"adf_p_value,omitempty"`
	ADFLags          int      `json:"adf_lags"`
	UnitRootRejected bool     `json:"unit_root_rejected"`
	KPSSStatistic    *float64 `json:"kpss_statistic,omitempty"`
	KPSSPValue       *float64 `json:"kpss_p_value,omitempty"`
	SeasonalStrength float64  `json:"seasonal_strength"`
	SeasonalPeak     bool     `json:"seasonal_peak"`
	ACFBand          float64  `json:"acf_band"`
	SignificantACF   []int    `json:"significant_acf"`
	SignificantPACF  []int    `json:"significant_pacf"`
}

func newStationarity(a *analysis.Report) *Stationarity {
	st := &Stationarity{
		UnitRootRejected: a.UnitRootRejected(),
		SeasonalStrength: a.SeasonalStrength,
		SeasonalPeak:     a.SeasonalPeak(),
	}
	if a.ADF != nil {
		st.ADFStatistic, st.ADFPValue = ptr(a.ADF.Statistic), ptr(a.ADF.PValue)
		st.ADFLags = a.ADF.Lags
	}
	if a.KPSS != nil {
		st.KPSSStatistic, st.KPSSPValue = ptr(a.KPSS.Statistic), ptr(a.KPSS.PValue)
	}
	if a.ACF != nil {
		st.ACFBand = a.ACF.Band
		st.SignificantACF = a.ACF.Significant
	}
	if a.PACF != nil {
		st.SignificantPACF = a.PACF.Significant
	}
	return st
}

func ptr(v float64) *float64 {
	return &v
}

// Score is one criterion's winner.
type Score struct {
	Order string  `json:"order"`
	Value float64 `json:"value"`
}

// SearchSummary condenses a search result.
type SearchSummary struct {
	Evaluated int   `json:"evaluated"`
	Failed    int   `json:"failed"`
	BestAIC   Score `json:"best_aic"`
	BestBIC   Score `json:"best_bic"`
}

// AirportReport is everything the run learned about one airport.
type AirportReport struct {
	RunID        string                `json:"run_id"`
	Airport      string                `json:"airport"`
	Country      string                `json:"country,omitempty"`
	Observations int                   `json:"observations"`
	First        string                `json:"first,omitempty"`
	Last         string                `json:"last,omitempty"`
	Consecutive  bool                  `json:"consecutive"`
	Missing      int                   `json:"missing_months,omitempty"`
	Stationarity *Stationarity         `json:"stationarity,omitempty"`
	Search       *SearchSummary        `json:"search,omitempty"`
	Order        string                `json:"order,omitempty"`
	Criterion    string                `json:"criterion,omitempty"`
	Forecast     []forecast.Point      `json:"forecast,omitempty"`
	LjungBox     *stats.LjungBoxResult `json:"ljung_box,omitempty"`
	ResidualMean float64               `json:"residual_mean"`
	ResidualStd  float64               `json:"residual_std"`
	Accuracy     *forecast.Accuracy    `json:"accuracy,omitempty"`
	Indicators   map[string]int        `json:"indicator_months,omitempty"`
	Error        string                `json:"error,omitempty"`

	Fits []search.ScoredFit `json:"-"`
}

func (a *AirportReport) setSeries(s *timeseries.Series) {
	a.Observations = s.Len()
	a.Consecutive = s.Consecutive()
	a.Missing = s.MissingMonths()
	if s.Len() > 0 && len(s.Timestamps) == s.Len() {
		a.First = timeseries.FormatMonth(s.Timestamps[0])
		a.Last = timeseries.FormatMonth(s.Timestamps[s.Len()-1])
	}
}

func (a *AirportReport) setSearch(res *search.Result) {
	a.Fits = res.Fits
	a.Search = &SearchSummary{
		Evaluated: res.Evaluated,
		Failed:    len(res.Failed),
		BestAIC:   Score{Order: res.ByAIC.Order.String(), Value: res.ByAIC.Value},
		BestBIC:   Score{Order: res.ByBIC.Order.String(), Value: res.ByBIC.Value},
	}
}

func (a *AirportReport) setForecast(out *forecast.Output) {
	a.Forecast = out.Points
	a.LjungBox = out.Diagnostics.LjungBox
	a.ResidualMean = out.Diagnostics.ResidualMean
	a.ResidualStd = out.Diagnostics.ResidualStd
}

// Writer lays out run artifacts under one directory.
type Writer struct {
	Dir string
}

// NewWriter returns a Writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir}
}

// AirportDir returns the directory holding the artifacts of airport.
func (w *Writer) AirportDir(airport string) string {
	return filepath.Join(w.Dir, safeName(airport))
}

func safeName(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, s)
	if s == "" || s == "." || s == ".." {
		return "_" + s
	}
	return s
}

func (w *Writer) create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.Create(path)
}

func (w *Writer) writeFrame(path string, df dataframe.DataFrame) error {
	if df.Err != nil {
		return fmt.Errorf("build %s: %w", path, df.Err)
	}
	f, err := w.create(path)
	if err != nil {
		return err
	}
	if err := df.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func (w *Writer) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Cleaned writes cleaned.csv.
func (w *Writer) Cleaned(tbl *traffic.Table) error {
	path := filepath.Join(w.Dir, "cleaned.csv")
	f, err := w.create(path)
	if err != nil {
		return err
	}
	if err := tbl.WriteCleaned(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// Fits writes the fits.csv of airport.
func (w *Writer) Fits(airport string, fits []search.ScoredFit) error {
	return w.writeFrame(filepath.Join(w.AirportDir(airport), "fits.csv"), FitsFrame(fits))
}

// Forecast writes the forecast.csv of airport.
func (w *Writer) Forecast(airport string, points []forecast.Point) error {
	return w.writeFrame(filepath.Join(w.AirportDir(airport), "forecast.csv"), ForecastFrame(points))
}

// Airport writes fits.csv and forecast.csv when present, and summary.json.
func (w *Writer) Airport(rep *AirportReport) error {
	if len(rep.Fits) > 0 {
		if err := w.Fits(rep.Airport, rep.Fits); err != nil {
			return err
		}
	}
	if len(rep.Forecast) > 0 {
		if err := w.Forecast(rep.Airport, rep.Forecast); err != nil {
			return err
		}
	}
	return w.writeJSON(filepath.Join(w.AirportDir(rep.Airport), "summary.json"), rep)
}

// Summary writes run.json.
func (w *Writer) Summary(sum *Summary) error {
	return w.writeJSON(filepath.Join(w.Dir, "run.json"), sum)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FitsFrame tabulates every scored candidate in enumeration order. Failed
// candidates have empty criteria and carry their error.
func FitsFrame(fits []search.ScoredFit) dataframe.DataFrame {
	n := len(fits)
	index := make([]int, n)
	orders := make([]string, n)
	aic := make([]string, n)
	bic := make([]string, n)
	errs := make([]string, n)
	for i, f := range fits {
		index[i] = f.Index
		orders[i] = f.Order.String()
		if f.OK() {
			aic[i], bic[i] = formatFloat(f.AIC), formatFloat(f.BIC)
		} else {
			errs[i] = f.Err.Error()
		}
	}
	return dataframe.New(
		series.New(index, series.Int, "Index"),
		series.New(orders, series.String, "Order"),
		series.New(aic, series.String, "AIC"),
		series.New(bic, series.String, "BIC"),
		series.New(errs, series.String, "Error"),
	)
}

// ForecastFrame tabulates forecast points by month.
func ForecastFrame(points []forecast.Point) dataframe.DataFrame {
	n := len(points)
	dates := make([]string, n)
	values := make([]float64, n)
	lower := make([]float64, n)
	upper := make([]float64, n)
	for i, p := range points {
		dates[i] = timeseries.FormatMonth(p.Time)
		values[i], lower[i], upper[i] = p.Value, p.Lower, p.Upper
	}
	return dataframe.New(
		series.New(dates, series.String, "Date"),
		series.New(values, series.Float, "Forecast"),
		series.New(lower, series.Float, "Lower"),
		series.New(upper, series.Float, "Upper"),
	)
}
