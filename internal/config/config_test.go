package config

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/paxarima/sarima"
	"github.com/sartorproj/paxarima/search"
	"github.com/sartorproj/paxarima/traffic"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "paxarima.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, search.DefaultBounds(), cfg.Bounds())
	assert.Equal(t, 12, cfg.Forecast.Horizon)
	assert.Equal(t, 0.95, cfg.Forecast.Confidence)
	assert.Equal(t, 24, cfg.Forecast.LjungBoxLags)
	assert.Equal(t, "aic", cfg.Search.Criterion)
	assert.Equal(t, string(traffic.Drop), cfg.Input.MissingPolicy)
	assert.Equal(t, []string{":", "NA", ""}, cfg.LoadOptions().MissingMarkers)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, 1024, cfg.Cache.Size)

	_, fixed := cfg.FixedOrder()
	assert.False(t, fixed)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
input:
  traffic: raw/avia_paoa.csv
  wide: true
  missingPolicy: interpolate
  airports: [LHR, CDG]
window:
  start: 2002-01
  end: 2019M12
search:
  maxPQ: 1
  seasonalAR: true
  criterion: bic
forecast:
  horizon: 24
  order: (0,1,1)(0,1,1)[12]
logging:
  level: debug
  json: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "raw/avia_paoa.csv", cfg.Input.Traffic)
	assert.True(t, cfg.Input.Wide)
	assert.Equal(t, []string{"LHR", "CDG"}, cfg.Input.Airports)
	assert.Equal(t, search.Bounds{MaxPQ: 1, MaxDiff: 1, SeasonalAR: true, Period: 12}, cfg.Bounds())
	assert.Equal(t, "bic", cfg.Search.Criterion)
	assert.Equal(t, 24, cfg.Forecast.Horizon)
	assert.Equal(t, 0.95, cfg.Forecast.Confidence, "unset keys keep defaults")
	assert.True(t, cfg.Logging.JSON)

	w, err := cfg.TrafficWindow()
	require.NoError(t, err)
	assert.True(t, w.Start.Equal(time.Date(2002, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, w.End.Equal(time.Date(2019, 12, 1, 0, 0, 0, 0, time.UTC)))

	o, ok := cfg.FixedOrder()
	require.True(t, ok)
	assert.Equal(t, sarima.Order{D: 1, Q: 1, SD: 1, SQ: 1, M: 12}, o)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "search:\n  maxPQ: 1\n")
	t.Setenv("PAXARIMA_MAX_PQ", "3")
	t.Setenv("PAXARIMA_HORIZON", "6")
	t.Setenv("PAXARIMA_AIRPORTS", "LHR, AMS,")
	t.Setenv("PAXARIMA_LOG_FORMAT", "json")
	t.Setenv("PAXARIMA_METRICS_TEXTFILE", "/var/lib/node_exporter/paxarima.prom")
	t.Setenv("PAXARIMA_TRACING_ENABLED", "1")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Search.MaxPQ)
	assert.Equal(t, 6, cfg.Forecast.Horizon)
	assert.Equal(t, []string{"LHR", "AMS"}, cfg.Input.Airports)
	assert.True(t, cfg.Logging.JSON)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/var/lib/node_exporter/paxarima.prom", cfg.Metrics.Textfile)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, 0.95, cfg.Forecast.Confidence)
}

func TestLoadEnvMalformed(t *testing.T) {
	path := writeConfig(t, "search:\n  maxPQ: 1\n")
	t.Setenv("PAXARIMA_CONFIDENCE", "not-a-number")
	t.Setenv("PAXARIMA_WORKERS", "four")
	t.Setenv("PAXARIMA_TRACING_ENABLED", "yes")
	t.Setenv("PAXARIMA_HORIZON", "0")

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorContains(t, err, `PAXARIMA_CONFIDENCE="not-a-number"`)
	assert.ErrorContains(t, err, `PAXARIMA_WORKERS="four"`)
	assert.ErrorContains(t, err, `PAXARIMA_TRACING_ENABLED="yes"`)
	assert.ErrorIs(t, err, strconv.ErrSyntax)
	assert.ErrorContains(t, err, "forecast.horizon must be at least 1", "validation still runs")
}

func TestLoadPathFromEnv(t *testing.T) {
	t.Setenv(EnvConfigPath, writeConfig(t, "output:\n  dir: reports\n"))
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "reports", cfg.Output.Dir)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "search: [not, a, map]\n"))
	assert.ErrorContains(t, err, "parse config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"negative pq", func(c *Config) { c.Search.MaxPQ = -1 }, "search.maxPQ"},
		{"period", func(c *Config) { c.Search.Period = 1 }, "search.period"},
		{"criterion", func(c *Config) { c.Search.Criterion = "hqic" }, "search.criterion"},
		{"horizon", func(c *Config) { c.Forecast.Horizon = 0 }, "forecast.horizon"},
		{"confidence", func(c *Config) { c.Forecast.Confidence = 1 }, "forecast.confidence"},
		{"order", func(c *Config) { c.Forecast.Order = "(1,1)" }, "forecast.order"},
		{"policy", func(c *Config) { c.Input.MissingPolicy = "guess" }, "input.missingPolicy"},
		{"window", func(c *Config) { c.Window.Start, c.Window.End = "2019-01", "2018-01" }, "precedes"},
		{"bad month", func(c *Config) { c.Window.Start = "soon" }, "window.start"},
		{"textfile", func(c *Config) { c.Metrics.Enabled = true }, "metrics.textfile"},
		{"cache", func(c *Config) { c.Cache.Size = 0 }, "cache.size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.NoError(t, Default().Validate())
}
