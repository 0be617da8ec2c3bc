package traffic

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sartorproj/paxarima/timeseries"
)

// MissingMappingError reports an airport or (airport, month) key absent from
// a lookup table.
type MissingMappingError struct {
	Airport string
	Key     string
	Kind    string // "country" or "indicator"
}

func (e *MissingMappingError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("no %s mapping for airport %s", e.Kind, e.Airport)
	}
	return fmt.Sprintf("no %s mapping for airport %s at %s", e.Kind, e.Airport, e.Key)
}

// LoadCountries reads an Airport,Country mapping.
func LoadCountries(r io.Reader) (map[string]string, error) {
	df, err := DefaultLoadOptions().read(r)
	if err != nil {
		return nil, fmt.Errorf("read country mapping: %w", err)
	}
	ai, ci := columnIndex(df, ColAirport), columnIndex(df, ColCountry)
	if ai < 0 || ci < 0 {
		return nil, errors.New("country mapping: need Airport and Country columns")
	}

	airports, countries := df.Col(df.Names()[ai]), df.Col(df.Names()[ci])
	out := make(map[string]string, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		airport, na := cell(airports, i)
		if na || airport == "" {
			return nil, &RowError{Row: i + 2, Column: ColAirport, Err: errors.New("empty airport")}
		}
		country, na := cell(countries, i)
		if na || country == "" {
			return nil, &RowError{Row: i + 2, Column: ColCountry, Value: airport, Err: errors.New("empty country")}
		}
		if prev, ok := out[airport]; ok && prev != country {
			return nil, &RowError{Row: i + 2, Column: ColCountry, Value: country,
				Err: fmt.Errorf("airport %s already mapped to %s", airport, prev)}
		}
		out[airport] = country
	}
	return out, nil
}

// LoadCountriesFile reads a country mapping from path.
func LoadCountriesFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCountries(f)
}

// AttachCountries fills empty Country fields from mapping. The first airport
// left without a country yields *MissingMappingError and t is left unchanged.
func (t *Table) AttachCountries(mapping map[string]string) error {
	for _, r := range t.Records {
		if _, ok := mapping[r.Airport]; r.Country == "" && !ok {
			return &MissingMappingError{Airport: r.Airport, Kind: "country"}
		}
	}
	for i := range t.Records {
		if r := &t.Records[i]; r.Country == "" {
			r.Country = mapping[r.Airport]
		}
	}
	return nil
}

// Column names of the policy indicator table.
const (
	ColBordersMainEU = "BordersMainEUPeriod"
	ColBordersNonEU  = "BordersNonEUPeriod"
	ColNegativeTests = "NegativeTestsPeriod"
)

// Indicator holds the policy dummies of one airport and month.
type Indicator struct {
	Airport             string    `json:"airport"`
	Date                time.Time `json:"date"`
	BordersMainEUPeriod bool      `json:"borders_main_eu_period"`
	BordersNonEUPeriod  bool      `json:"borders_non_eu_period"`
	NegativeTestsPeriod bool      `json:"negative_tests_period"`
}

type indicatorKey struct {
	airport string
	month   time.Time
}

// Indicators is a lookup of policy dummies by airport and month. They
// annotate reports and never enter a fit.
type Indicators struct {
	byKey map[indicatorKey]Indicator
}

// LoadIndicators reads Airport, Date and the three 0/1 indicator columns.
func LoadIndicators(r io.Reader) (*Indicators, error) {
	df, err := DefaultLoadOptions().read(r)
	if err != nil {
		return nil, fmt.Errorf("read indicators: %w", err)
	}

	cols := []string{ColAirport, ColDate, ColBordersMainEU, ColBordersNonEU, ColNegativeTests}
	idx := make([]int, len(cols))
	for k, name := range cols {
		if idx[k] = columnIndex(df, name); idx[k] < 0 {
			return nil, fmt.Errorf("indicators: missing column %s", name)
		}
	}

	ind := &Indicators{byKey: make(map[indicatorKey]Indicator, df.Nrow())}
	for i := 0; i < df.Nrow(); i++ {
		row := i + 2
		fields := make([]string, len(cols))
		for k := range cols {
			v, na := cell(df.Col(df.Names()[idx[k]]), i)
			if na {
				return nil, &RowError{Row: row, Column: cols[k], Err: errors.New("empty cell")}
			}
			fields[k] = v
		}

		date, err := timeseries.ParseMonth(fields[1])
		if err != nil {
			return nil, &RowError{Row: row, Column: ColDate, Value: fields[1], Err: err}
		}
		flags := make([]bool, 3)
		for k := range flags {
			switch fields[2+k] {
			case "0":
			case "1":
				flags[k] = true
			default:
				return nil, &RowError{Row: row, Column: cols[2+k], Value: fields[2+k], Err: errors.New("indicator must be 0 or 1")}
			}
		}

		key := indicatorKey{airport: fields[0], month: date}
		if _, dup := ind.byKey[key]; dup {
			return nil, &RowError{Row: row, Column: ColDate, Value: fields[1], Err: fmt.Errorf("duplicate indicator for %s", fields[0])}
		}
		ind.byKey[key] = Indicator{
			Airport:             fields[0],
			Date:                date,
			BordersMainEUPeriod: flags[0],
			BordersNonEUPeriod:  flags[1],
			NegativeTestsPeriod: flags[2],
		}
	}
	return ind, nil
}

// LoadIndicatorsFile reads indicators from path.
func LoadIndicatorsFile(path string) (*Indicators, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadIndicators(f)
}

// Len returns the number of indicator rows.
func (ind *Indicators) Len() int {
	return len(ind.byKey)
}

// Lookup returns the indicator row of airport in the month of t.
func (ind *Indicators) Lookup(airport string, t time.Time) (Indicator, bool) {
	v, ok := ind.byKey[indicatorKey{airport: airport, month: timeseries.MonthStart(t)}]
	return v, ok
}

// Annotation aligns one observation of a series with its indicators.
type Annotation struct {
	Time      time.Time
	Indicator Indicator
	Present   bool
}

// Annotate aligns the indicators of airport to the timestamps of s. With
// strict set, a month without an indicator row yields *MissingMappingError;
// otherwise it is annotated as not present.
func (ind *Indicators) Annotate(s *timeseries.Series, airport string, strict bool) ([]Annotation, error) {
	out := make([]Annotation, len(s.Timestamps))
	for i, ts := range s.Timestamps {
		v, ok := ind.Lookup(airport, ts)
		if !ok && strict {
			return nil, &MissingMappingError{Airport: airport, Key: timeseries.FormatMonth(ts), Kind: "indicator"}
		}
		out[i] = Annotation{Time: ts, Indicator: v, Present: ok}
	}
	return out, nil
}

// ActiveMonths counts the annotated months during which each indicator was
// set, keyed by indicator column name.
func ActiveMonths(anns []Annotation) map[string]int {
	out := map[string]int{ColBordersMainEU: 0, ColBordersNonEU: 0, ColNegativeTests: 0}
	for _, a := range anns {
		if a.Indicator.BordersMainEUPeriod {
			out[ColBordersMainEU]++
		}
		if a.Indicator.BordersNonEUPeriod {
			out[ColBordersNonEU]++
		}
		if a.Indicator.NegativeTestsPeriod {
			out[ColNegativeTests]++
		}
	}
	return out
}
