package traffic

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/sartorproj/paxarima/timeseries"
)

// Column names of the long-format table.
const (
	ColAirport    = "Airport"
	ColCountry    = "Country"
	ColDate       = "Date"
	ColPassengers = "Passengers"
)

// Record is one (airport, month) observation of the long-format table.
type Record struct {
	Airport    string
	Country    string
	Date       time.Time // month start, UTC
	Passengers float64
	Missing    bool // the source carried a missing marker
	Row        int  // 1-based source line, 0 when synthesized
}

// Table is a long-format traffic table ordered by airport, then month.
type Table struct {
	Records []Record
}

// NewTable returns a table over records, sorted.
func NewTable(records []Record) *Table {
	t := &Table{Records: records}
	t.sort()
	return t
}

func (t *Table) sort() {
	slices.SortStableFunc(t.Records, func(a, b Record) int {
		if c := cmp.Compare(a.Airport, b.Airport); c != 0 {
			return c
		}
		return a.Date.Compare(b.Date)
	})
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.Records)
}

// Airports returns the distinct airport codes in order.
func (t *Table) Airports() []string {
	var out []string
	for _, r := range t.Records {
		if len(out) == 0 || out[len(out)-1] != r.Airport {
			out = append(out, r.Airport)
		}
	}
	return out
}

// Country returns the country recorded for airport, if any.
func (t *Table) Country(airport string) string {
	for _, r := range t.Records {
		if r.Airport == airport && r.Country != "" {
			return r.Country
		}
	}
	return ""
}

// LoadOptions controls how traffic tables are read.
type LoadOptions struct {
	MissingMarkers []string // cell values meaning "no observation"
	Delimiter      rune
}

// DefaultLoadOptions accepts the Eurostat ':' marker, NA and empty cells.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{MissingMarkers: []string{":", "NA", ""}, Delimiter: ','}
}

func (o LoadOptions) markers() []string {
	if o.MissingMarkers == nil {
		return DefaultLoadOptions().MissingMarkers
	}
	return o.MissingMarkers
}

func (o LoadOptions) isMissing(v string) bool {
	return slices.Contains(o.markers(), strings.TrimSpace(v))
}

func (o LoadOptions) read(r io.Reader) (dataframe.DataFrame, error) {
	opts := []dataframe.LoadOption{
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(o.markers()),
	}
	if o.Delimiter != 0 {
		opts = append(opts, dataframe.WithDelimiter(o.Delimiter))
	}
	df := dataframe.ReadCSV(r, opts...)
	return df, df.Err
}

// RowError reports a cell that could not be parsed.
type RowError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d, column %s: value %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// columnIndex finds name among the frame's columns, ignoring case and
// surrounding space.
func columnIndex(df dataframe.DataFrame, name string) int {
	for i, n := range df.Names() {
		if strings.EqualFold(strings.TrimSpace(n), name) {
			return i
		}
	}
	return -1
}

func cell(col series.Series, i int) (string, bool) {
	e := col.Elem(i)
	if e.IsNA() {
		return "", true
	}
	return strings.TrimSpace(e.String()), false
}

func parsePassengers(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
	if err != nil {
		return 0, errors.New("not a passenger count")
	}
	if f < 0 {
		return 0, errors.New("negative passenger count")
	}
	return f, nil
}

// LoadLong reads a long-format table with columns Airport, Country
// (optional), Date and Passengers. A Passengers cell that is neither a
// number nor a missing marker rejects the load with its row number.
func LoadLong(r io.Reader, opts LoadOptions) (*Table, error) {
	df, err := opts.read(r)
	if err != nil {
		return nil, fmt.Errorf("read long table: %w", err)
	}

	idx := map[string]int{}
	for _, name := range []string{ColAirport, ColDate, ColPassengers} {
		i := columnIndex(df, name)
		if i < 0 {
			return nil, fmt.Errorf("long table: missing column %s", name)
		}
		idx[name] = i
	}
	airports := df.Col(df.Names()[idx[ColAirport]])
	dates := df.Col(df.Names()[idx[ColDate]])
	passengers := df.Col(df.Names()[idx[ColPassengers]])
	var countries *series.Series
	if i := columnIndex(df, ColCountry); i >= 0 {
		c := df.Col(df.Names()[i])
		countries = &c
	}

	records := make([]Record, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		row := i + 2
		rec := Record{Row: row}

		airport, na := cell(airports, i)
		if na || airport == "" {
			return nil, &RowError{Row: row, Column: ColAirport, Err: errors.New("empty airport")}
		}
		rec.Airport = airport
		if countries != nil {
			rec.Country, _ = cell(*countries, i)
		}

		date, na := cell(dates, i)
		if na {
			return nil, &RowError{Row: row, Column: ColDate, Err: errors.New("empty date")}
		}
		if rec.Date, err = timeseries.ParseMonth(date); err != nil {
			return nil, &RowError{Row: row, Column: ColDate, Value: date, Err: err}
		}

		v, na := cell(passengers, i)
		switch {
		case na || opts.isMissing(v):
			rec.Missing = true
		default:
			if rec.Passengers, err = parsePassengers(v); err != nil {
				return nil, &RowError{Row: row, Column: ColPassengers, Value: v, Err: err}
			}
		}
		records = append(records, rec)
	}
	return NewTable(records), nil
}

// LoadWide reads the raw spreadsheet layout: the first column holds the
// airport, an optional Country column follows, and every other column is a
// month header. The table is melted to one record per (airport, month) cell.
func LoadWide(r io.Reader, opts LoadOptions) (*Table, error) {
	df, err := opts.read(r)
	if err != nil {
		return nil, fmt.Errorf("read wide table: %w", err)
	}
	names := df.Names()
	if len(names) < 2 {
		return nil, fmt.Errorf("wide table: need an airport column and at least one month column")
	}

	countryIdx := columnIndex(df, ColCountry)
	type monthCol struct {
		col   series.Series
		name  string
		month time.Time
	}
	var months []monthCol
	for i, name := range names[1:] {
		if i+1 == countryIdx {
			continue
		}
		m, err := timeseries.ParseMonth(name)
		if err != nil {
			return nil, &RowError{Row: 1, Column: name, Value: name, Err: err}
		}
		months = append(months, monthCol{col: df.Col(name), name: name, month: m})
	}

	airports := df.Col(names[0])
	records := make([]Record, 0, df.Nrow()*len(months))
	for i := 0; i < df.Nrow(); i++ {
		row := i + 2
		airport, na := cell(airports, i)
		if na || airport == "" {
			return nil, &RowError{Row: row, Column: names[0], Err: errors.New("empty airport")}
		}
		country := ""
		if countryIdx >= 0 {
			country, _ = cell(df.Col(names[countryIdx]), i)
		}

		for _, mc := range months {
			rec := Record{Airport: airport, Country: country, Date: mc.month, Row: row}
			v, na := cell(mc.col, i)
			if na || opts.isMissing(v) {
				rec.Missing = true
			} else if rec.Passengers, err = parsePassengers(v); err != nil {
				return nil, &RowError{Row: row, Column: mc.name, Value: v, Err: err}
			}
			records = append(records, rec)
		}
	}
	return NewTable(records), nil
}

// LoadFile reads a long or wide table from path.
func LoadFile(path string, wide bool, opts LoadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if wide {
		return LoadWide(f, opts)
	}
	return LoadLong(f, opts)
}

// DataFrame returns the table as a gota frame with the long-format columns.
// Missing passenger counts are empty cells.
func (t *Table) DataFrame() dataframe.DataFrame {
	n := len(t.Records)
	airports := make([]string, n)
	countries := make([]string, n)
	dates := make([]string, n)
	passengers := make([]string, n)
	for i, r := range t.Records {
		airports[i] = r.Airport
		countries[i] = r.Country
		dates[i] = timeseries.FormatMonth(r.Date)
		if !r.Missing {
			passengers[i] = strconv.FormatFloat(r.Passengers, 'f', -1, 64)
		}
	}
	return dataframe.New(
		series.New(airports, series.String, ColAirport),
		series.New(countries, series.String, ColCountry),
		series.New(dates, series.String, ColDate),
		series.New(passengers, series.String, ColPassengers),
	)
}

// WriteCleaned writes the table as long-format CSV.
func (t *Table) WriteCleaned(w io.Writer) error {
	return t.DataFrame().WriteCSV(w)
}
