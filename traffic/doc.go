// Package traffic loads airport passenger tables and builds the monthly
// series the rest of the pipeline works on.
//
// Tables arrive either in long format (Airport, Country, Date, Passengers)
// or in the wide spreadsheet layout with one column per month, which
// LoadWide melts to long. Cells carrying a missing marker such as the
// Eurostat ':' are kept as missing records; Table.Series applies a
// MissingPolicy when the series is built:
//
//	tbl, err := traffic.LoadFile("passengers.csv", false, traffic.DefaultLoadOptions())
//	if err != nil {
//	    return err
//	}
//	s, err := tbl.Series("LHR", traffic.Window{}, traffic.Drop)
//
// Country mappings and policy indicators are joined by airport (and month);
// a key without a match is reported as *MissingMappingError.
package traffic
