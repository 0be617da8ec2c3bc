// Package config loads pipeline settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sartorproj/paxarima/sarima"
	"github.com/sartorproj/paxarima/search"
	"github.com/sartorproj/paxarima/timeseries"
	"github.com/sartorproj/paxarima/traffic"
)

// EnvConfigPath names the config file when no path is given.
const EnvConfigPath = "PAXARIMA_CONFIG"

// Config holds every setting of a pipeline run.
type Config struct {
	Input    InputConfig    `yaml:"input"`
	Window   WindowConfig   `yaml:"window"`
	Search   SearchConfig   `yaml:"search"`
	Forecast ForecastConfig `yaml:"forecast"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Cache    CacheConfig    `yaml:"cache"`
}

// InputConfig locates the source tables.
type InputConfig struct {
	Traffic          string   `yaml:"traffic"`
	Wide             bool     `yaml:"wide"`
	Countries        string   `yaml:"countries"`
	Indicators       string   `yaml:"indicators"`
	StrictIndicators bool     `yaml:"strictIndicators"`
	MissingMarkers   []string `yaml:"missingMarkers"`
	MissingPolicy    string   `yaml:"missingPolicy"`
	Airports         []string `yaml:"airports"` // empty means every airport in the table
}

// WindowConfig bounds the analysed months, inclusive. Empty is open.
type WindowConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// SearchConfig bounds the order grid.
type SearchConfig struct {
	MaxPQ       int    `yaml:"maxPQ"`
	MaxDiff     int    `yaml:"maxDiff"`
	SeasonalAR  bool   `yaml:"seasonalAR"`
	Period      int    `yaml:"period"`
	Workers     int    `yaml:"workers"`     // candidate fits in flight per airport, 0 = GOMAXPROCS
	Parallelism int    `yaml:"parallelism"` // airports processed concurrently
	Criterion   string `yaml:"criterion"`   // aic or bic; picks the order that is forecast
}

// ForecastConfig controls the final fit.
type ForecastConfig struct {
	Horizon      int     `yaml:"horizon"`
	Confidence   float64 `yaml:"confidence"`
	LjungBoxLags int     `yaml:"ljungBoxLags"`
	Holdout      int     `yaml:"holdout"` // 0 disables holdout evaluation
	Order        string  `yaml:"order"`   // fixed order, skips the search
}

// OutputConfig locates the report artifacts.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Textfile string `yaml:"textfile"`
}

// TracingConfig controls OTLP trace export.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Endpoint     string  `yaml:"endpoint"`
	Insecure     bool    `yaml:"insecure"`
	SamplingRate float64 `yaml:"samplingRate"`
	Environment  string  `yaml:"environment"`
}

// CacheConfig sizes the fit cache.
type CacheConfig struct {
	Size int `yaml:"size"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	envErr := applyEnvOverrides(cfg)
	if err := errors.Join(envErr, cfg.Validate()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Traffic:        "data/passengers.csv",
			MissingMarkers: traffic.DefaultLoadOptions().MissingMarkers,
			MissingPolicy:  string(traffic.Drop),
		},
		Search: SearchConfig{
			MaxPQ:       2,
			MaxDiff:     1,
			Period:      timeseries.Monthly,
			Parallelism: 1,
			Criterion:   "aic",
		},
		Forecast: ForecastConfig{
			Horizon:      12,
			Confidence:   0.95,
			LjungBoxLags: 24,
		},
		Output:  OutputConfig{Dir: "out"},
		Logging: LoggingConfig{Level: "info"},
		Tracing: TracingConfig{
			Endpoint:     "localhost:4317",
			Insecure:     true,
			SamplingRate: 1.0,
			Environment:  "development",
		},
		Cache: CacheConfig{Size: 1024},
	}
}

// applyEnvOverrides applies the PAXARIMA_* variables to cfg. Values that do
// not parse are collected and returned joined; the others still apply.
func applyEnvOverrides(cfg *Config) error {
	env := &envParser{}

	env.string("PAXARIMA_TRAFFIC", &cfg.Input.Traffic)
	env.bool("PAXARIMA_TRAFFIC_WIDE", &cfg.Input.Wide)
	env.string("PAXARIMA_COUNTRIES", &cfg.Input.Countries)
	env.string("PAXARIMA_INDICATORS", &cfg.Input.Indicators)
	env.string("PAXARIMA_MISSING_POLICY", &cfg.Input.MissingPolicy)
	if v := os.Getenv("PAXARIMA_AIRPORTS"); v != "" {
		cfg.Input.Airports = splitList(v)
	}
	env.string("PAXARIMA_WINDOW_START", &cfg.Window.Start)
	env.string("PAXARIMA_WINDOW_END", &cfg.Window.End)

	env.int("PAXARIMA_MAX_PQ", &cfg.Search.MaxPQ)
	env.int("PAXARIMA_MAX_DIFF", &cfg.Search.MaxDiff)
	env.bool("PAXARIMA_SEASONAL_AR", &cfg.Search.SeasonalAR)
	env.int("PAXARIMA_WORKERS", &cfg.Search.Workers)
	env.int("PAXARIMA_PARALLELISM", &cfg.Search.Parallelism)
	env.string("PAXARIMA_CRITERION", &cfg.Search.Criterion)

	env.int("PAXARIMA_HORIZON", &cfg.Forecast.Horizon)
	env.float("PAXARIMA_CONFIDENCE", &cfg.Forecast.Confidence)
	env.int("PAXARIMA_HOLDOUT", &cfg.Forecast.Holdout)
	env.string("PAXARIMA_ORDER", &cfg.Forecast.Order)

	env.string("PAXARIMA_OUTPUT_DIR", &cfg.Output.Dir)
	env.string("PAXARIMA_LOG_LEVEL", &cfg.Logging.Level)
	if v := os.Getenv("PAXARIMA_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("PAXARIMA_METRICS_TEXTFILE"); v != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Textfile = v
	}
	env.bool("PAXARIMA_TRACING_ENABLED", &cfg.Tracing.Enabled)
	env.string("PAXARIMA_OTLP_ENDPOINT", &cfg.Tracing.Endpoint)
	env.int("PAXARIMA_CACHE_SIZE", &cfg.Cache.Size)

	return errors.Join(env.errs...)
}

// envParser reads typed variables, remembering the ones that fail to parse.
type envParser struct {
	errs []error
}

func (p *envParser) string(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (p *envParser) int(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (p *envParser) float(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = f
	}
}

func (p *envParser) bool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = b
	}
}

func (p *envParser) fail(key, v string, err error) {
	if ne, ok := err.(*strconv.NumError); ok {
		err = ne.Err
	}
	p.errs = append(p.errs, fmt.Errorf("%s=%q: %w", key, v, err))
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks bounds and parses every textual setting once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Input.Traffic != "", "input.traffic is required")
	if _, err := traffic.ParseMissingPolicy(c.Input.MissingPolicy); err != nil {
		errs = append(errs, fmt.Errorf("input.missingPolicy: %w", err))
	}
	if _, err := c.TrafficWindow(); err != nil {
		errs = append(errs, err)
	}
	check(c.Search.MaxPQ >= 0, "search.maxPQ must be non-negative, got %d", c.Search.MaxPQ)
	check(c.Search.MaxDiff >= 0, "search.maxDiff must be non-negative, got %d", c.Search.MaxDiff)
	check(c.Search.Period >= 2, "search.period must be at least 2, got %d", c.Search.Period)
	check(c.Search.Workers >= 0, "search.workers must be non-negative, got %d", c.Search.Workers)
	check(c.Search.Parallelism >= 1, "search.parallelism must be at least 1, got %d", c.Search.Parallelism)
	check(c.Search.Criterion == "aic" || c.Search.Criterion == "bic",
		"search.criterion must be aic or bic, got %q", c.Search.Criterion)
	check(c.Forecast.Horizon >= 1, "forecast.horizon must be at least 1, got %d", c.Forecast.Horizon)
	check(c.Forecast.Confidence > 0 && c.Forecast.Confidence < 1,
		"forecast.confidence must lie in (0,1), got %v", c.Forecast.Confidence)
	check(c.Forecast.LjungBoxLags >= 1, "forecast.ljungBoxLags must be at least 1, got %d", c.Forecast.LjungBoxLags)
	check(c.Forecast.Holdout >= 0, "forecast.holdout must be non-negative, got %d", c.Forecast.Holdout)
	if c.Forecast.Order != "" {
		if _, err := sarima.ParseOrder(c.Forecast.Order); err != nil {
			errs = append(errs, fmt.Errorf("forecast.order: %w", err))
		}
	}
	check(c.Output.Dir != "", "output.dir is required")
	check(!c.Metrics.Enabled || c.Metrics.Textfile != "", "metrics.textfile is required when metrics are enabled")
	check(c.Tracing.SamplingRate >= 0 && c.Tracing.SamplingRate <= 1,
		"tracing.samplingRate must lie in [0,1], got %v", c.Tracing.SamplingRate)
	check(c.Cache.Size >= 1, "cache.size must be at least 1, got %d", c.Cache.Size)

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Bounds returns the search grid.
func (c *Config) Bounds() search.Bounds {
	return search.Bounds{
		MaxPQ:      c.Search.MaxPQ,
		MaxDiff:    c.Search.MaxDiff,
		SeasonalAR: c.Search.SeasonalAR,
		Period:     c.Search.Period,
	}
}

// TrafficWindow parses the window bounds.
func (c *Config) TrafficWindow() (traffic.Window, error) {
	var w traffic.Window
	var err error
	if c.Window.Start != "" {
		if w.Start, err = timeseries.ParseMonth(c.Window.Start); err != nil {
			return w, fmt.Errorf("window.start: %w", err)
		}
	}
	if c.Window.End != "" {
		if w.End, err = timeseries.ParseMonth(c.Window.End); err != nil {
			return w, fmt.Errorf("window.end: %w", err)
		}
	}
	if !w.Start.IsZero() && !w.End.IsZero() && w.End.Before(w.Start) {
		return w, fmt.Errorf("window.end %s precedes window.start %s", c.Window.End, c.Window.Start)
	}
	return w, nil
}

// LoadOptions returns the traffic table options.
func (c *Config) LoadOptions() traffic.LoadOptions {
	opts := traffic.DefaultLoadOptions()
	if c.Input.MissingMarkers != nil {
		opts.MissingMarkers = c.Input.MissingMarkers
	}
	return opts
}

// FixedOrder returns the configured forecast order, if any.
func (c *Config) FixedOrder() (sarima.Order, bool) {
	if c.Forecast.Order == "" {
		return sarima.Order{}, false
	}
	o, err := sarima.ParseOrder(c.Forecast.Order)
	return o, err == nil
}
