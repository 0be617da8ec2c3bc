package sarima

import (
	"errors"
	"fmt"
)

// ErrNotConverged is returned when estimation ends with a non-finite sum of
// squares, variance or likelihood.
var ErrNotConverged = errors.New("sarima: estimation did not converge")

// ErrNotFitted is returned by prediction methods on an unfitted model.
var ErrNotFitted = errors.New("sarima: model must be fitted before prediction")

// FitConvergenceError reports that no usable fit exists for a series.
type FitConvergenceError struct {
	Series string
	Order  *Order // nil when every candidate of a search failed
	Err    error
}

func (e *FitConvergenceError) Error() string {
	if e.Order == nil {
		return fmt.Sprintf("fit %q: no candidate order converged: %v", e.Series, e.Err)
	}
	return fmt.Sprintf("fit %q with %s: %v", e.Series, e.Order, e.Err)
}

func (e *FitConvergenceError) Unwrap() error {
	return e.Err
}
