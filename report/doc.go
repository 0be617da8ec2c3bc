// Package report drives the per-airport pipeline and writes its artifacts.
//
// A Runner loads the traffic table once, then runs every stage for each
// airport concurrently. A failing airport does not stop the others. Writer lays the results out as
//
//	<dir>/cleaned.csv
//	<dir>/run.json
//	<dir>/<airport>/fits.csv
//	<dir>/<airport>/forecast.csv
//	<dir>/<airport>/summary.json
//
// summary.json flags series whose months are not consecutive, which happens
// when the drop policy removes undefined months.
package report
