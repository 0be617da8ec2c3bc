package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/sartorproj/paxarima/internal/config"
	"github.com/sartorproj/paxarima/internal/metrics"
	"github.com/sartorproj/paxarima/internal/telemetry"
	"github.com/sartorproj/paxarima/timeseries"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// writeInputs lays out a long traffic table with a 120-month airport (VIE)
// and a 12-month one (SHORT), plus a country mapping and indicators.
func writeInputs(t *testing.T, dir string) (trafficPath, countriesPath, indicatorsPath string) {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	start := time.Date(2010, time.January, 1, 0, 0, 0, 0, time.UTC)

	var b strings.Builder
	b.WriteString("Airport,Country,Date,Passengers\n")
	for i := 0; i < 120; i++ {
		v := 30000 + 90*float64(i) + 7000*math.Sin(2*math.Pi*float64(i)/12) + 500*rng.NormFloat64()
		fmt.Fprintf(&b, "VIE,,%s,%.0f\n", timeseries.FormatMonth(start.AddDate(0, i, 0)), v)
	}
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&b, "SHORT,,%s,%d\n", timeseries.FormatMonth(start.AddDate(0, i, 0)), 100+i)
	}
	trafficPath = filepath.Join(dir, "traffic.csv")
	require.NoError(t, os.WriteFile(trafficPath, []byte(b.String()), 0o600))

	countriesPath = filepath.Join(dir, "countries.csv")
	require.NoError(t, os.WriteFile(countriesPath, []byte("Airport,Country\nVIE,AT\nSHORT,XX\n"), 0o600))

	indicatorsPath = filepath.Join(dir, "indicators.csv")
	require.NoError(t, os.WriteFile(indicatorsPath, []byte(
		"Airport,Date,BordersMainEUPeriod,BordersNonEUPeriod,NegativeTestsPeriod\n"+
			"VIE,2018-03,1,0,0\n"+
			"VIE,2018-04,1,1,0\n"), 0o600))
	return trafficPath, countriesPath, indicatorsPath
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	in := t.TempDir()
	trafficPath, countriesPath, indicatorsPath := writeInputs(t, in)

	cfg := config.Default()
	cfg.Input.Traffic = trafficPath
	cfg.Input.Countries = countriesPath
	cfg.Input.Indicators = indicatorsPath
	cfg.Search.MaxPQ = 1
	cfg.Search.Parallelism = 2
	cfg.Forecast.Holdout = 12
	cfg.Output.Dir = filepath.Join(t.TempDir(), "out")
	cfg.Metrics.Enabled = true
	cfg.Metrics.Textfile = filepath.Join(cfg.Output.Dir, "paxarima.prom")
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRun(t *testing.T) {
	cfg := testConfig(t)
	r, err := New(cfg, quiet, metrics.New())
	require.NoError(t, err)

	sum, err := r.Run(context.Background())
	require.Error(t, err, "the short airport fails")
	assert.Contains(t, err.Error(), "airport SHORT")
	var insufficient *timeseries.InsufficientDataError
	assert.ErrorAs(t, err, &insufficient)

	require.NotNil(t, sum)
	assert.NotEmpty(t, sum.RunID)
	require.Len(t, sum.Airports, 2)
	require.Len(t, sum.Failed(), 1)
	assert.Equal(t, "SHORT", sum.Failed()[0].Airport)

	var vie *AirportReport
	for _, a := range sum.Airports {
		if a.Airport == "VIE" {
			vie = a
		}
	}
	require.NotNil(t, vie)
	assert.Empty(t, vie.Error)
	assert.Equal(t, "AT", vie.Country)
	assert.Equal(t, 120, vie.Observations)
	assert.Equal(t, "2010-01", vie.First)
	assert.Equal(t, "2019-12", vie.Last)
	assert.True(t, vie.Consecutive)
	assert.Zero(t, vie.Missing)
	require.NotNil(t, vie.Search)
	assert.Equal(t, 32, vie.Search.Evaluated)
	assert.Equal(t, vie.Search.BestAIC.Order, vie.Order)
	assert.Equal(t, "aic", vie.Criterion)
	require.Len(t, vie.Forecast, 12)
	assert.True(t, vie.Forecast[0].Time.Equal(time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)))
	require.NotNil(t, vie.Stationarity)
	assert.Greater(t, vie.Stationarity.SeasonalStrength, 0.5)
	require.NotNil(t, vie.Accuracy)
	assert.Equal(t, 12, vie.Accuracy.Holdout)
	assert.Equal(t, map[string]int{"BordersMainEUPeriod": 2, "BordersNonEUPeriod": 1, "NegativeTestsPeriod": 0}, vie.Indicators)

	out := cfg.Output.Dir
	cleaned, err := os.ReadFile(filepath.Join(out, "cleaned.csv"))
	require.NoError(t, err)
	assert.Equal(t, 133, strings.Count(string(cleaned), "\n"))
	assert.Contains(t, string(cleaned), "VIE,AT,2010-01,")

	fits, err := os.ReadFile(filepath.Join(out, "VIE", "fits.csv"))
	require.NoError(t, err)
	assert.Equal(t, 33, strings.Count(string(fits), "\n"))
	assert.True(t, strings.HasPrefix(string(fits), "Index,Order,AIC,BIC,Error\n"))

	fc, err := os.ReadFile(filepath.Join(out, "VIE", "forecast.csv"))
	require.NoError(t, err)
	assert.Equal(t, 13, strings.Count(string(fc), "\n"))
	assert.Contains(t, string(fc), "2020-12,")

	var written AirportReport
	data, err := os.ReadFile(filepath.Join(out, "VIE", "summary.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &written))
	assert.Equal(t, vie.Order, written.Order)
	assert.Equal(t, sum.RunID, written.RunID)

	data, err = os.ReadFile(filepath.Join(out, "SHORT", "summary.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"error"`)

	_, err = os.Stat(filepath.Join(out, "run.json"))
	assert.NoError(t, err)

	prom, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `paxarima_airports_total{outcome="error"} 1`)
	assert.Contains(t, string(prom), `paxarima_airports_total{outcome="success"} 1`)
	assert.Contains(t, string(prom), "paxarima_fit_cache_hits")
}

func TestRunFixedOrder(t *testing.T) {
	cfg := testConfig(t)
	cfg.Input.Airports = []string{"VIE"}
	cfg.Forecast.Order = "(0,1,1)(0,1,1)[12]"
	cfg.Forecast.Holdout = 0
	cfg.Metrics.Enabled = false

	r, err := New(cfg, quiet, nil)
	require.NoError(t, err)
	sum, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sum.Airports, 1)
	vie := sum.Airports[0]
	assert.Equal(t, "fixed", vie.Criterion)
	assert.Equal(t, "(0,1,1)(0,1,1)[12]", vie.Order)
	assert.Nil(t, vie.Search)
	assert.Nil(t, vie.Accuracy)

	_, err = os.Stat(filepath.Join(cfg.Output.Dir, "VIE", "fits.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunFlagsGaps(t *testing.T) {
	cfg := testConfig(t)
	cfg.Input.Airports = []string{"VIE"}
	cfg.Forecast.Order = "(0,1,1)(0,1,1)[12]"
	cfg.Forecast.Holdout = 0

	data, err := os.ReadFile(cfg.Input.Traffic)
	require.NoError(t, err)
	var kept []string
	for _, line := range strings.SplitAfter(string(data), "\n") {
		if !strings.HasPrefix(line, "VIE,,2015-06,") {
			kept = append(kept, line)
		}
	}
	require.NoError(t, os.WriteFile(cfg.Input.Traffic, []byte(strings.Join(kept, "")), 0o600))

	r, err := New(cfg, quiet, nil)
	require.NoError(t, err)
	sum, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sum.Airports, 1)
	vie := sum.Airports[0]
	assert.Equal(t, 119, vie.Observations)
	assert.False(t, vie.Consecutive)
	assert.Equal(t, 1, vie.Missing)

	written, err := os.ReadFile(filepath.Join(cfg.Output.Dir, "VIE", "summary.json"))
	require.NoError(t, err)
	assert.Contains(t, string(written), `"consecutive": false`)
	assert.Contains(t, string(written), `"missing_months": 1`)
}

func TestRunSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	cfg := testConfig(t)
	cfg.Input.Airports = []string{"VIE"}
	cfg.Forecast.Holdout = 0

	r, err := New(cfg, quiet, nil)
	require.NoError(t, err)
	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	order := sum.Airports[0].Order

	byName := map[string]sdktrace.ReadOnlySpan{}
	for _, span := range recorder.Ended() {
		byName[span.Name()] = span
	}
	for name, stage := range map[string]string{
		"stage.analyze":  "analyze",
		"stage.search":   "search",
		"stage.forecast": "forecast",
	} {
		span, ok := byName[name]
		require.True(t, ok, "span %s not recorded", name)
		assert.Contains(t, span.Attributes(), telemetry.AttrStage.String(stage))
		assert.Contains(t, span.Attributes(), telemetry.AttrAirport.String("VIE"))
	}
	assert.Contains(t, byName["stage.forecast"].Attributes(), telemetry.AttrOrder.String(order))
	require.Contains(t, byName, "airport")
	assert.Contains(t, byName["airport"].Attributes(), telemetry.AttrOrder.String(order))
}

func TestRunMissingCountry(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.Input.Countries, []byte("Airport,Country\nVIE,AT\n"), 0o600))

	r, err := New(cfg, quiet, nil)
	require.NoError(t, err)
	_, err = r.Run(context.Background())
	assert.ErrorContains(t, err, "no country mapping for airport SHORT")
}

func TestRunCancelled(t *testing.T) {
	cfg := testConfig(t)
	r, err := New(cfg, quiet, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "LHR", safeName("LHR"))
	assert.Equal(t, "UK_EGLL", safeName("UK/EGLL"))
	assert.Equal(t, "_..", safeName(".."))
}
