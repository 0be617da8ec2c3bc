package timeseries

import "fmt"

// InsufficientDataError reports a series too short for the requested operation.
type InsufficientDataError struct {
	Series string
	Op     string
	Have   int
	Need   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: series %q has %d observations, need at least %d", e.Op, e.Series, e.Have, e.Need)
}

// DegenerateSeriesError reports a zero-variance series.
type DegenerateSeriesError struct {
	Series string
	Op     string
}

func (e *DegenerateSeriesError) Error() string {
	return fmt.Sprintf("%s: series %q is constant", e.Op, e.Series)
}

// RequireLen returns an InsufficientDataError when s has fewer than need observations.
func RequireLen(s *Series, op string, need int) error {
	if s.Len() < need {
		return &InsufficientDataError{Series: s.Name, Op: op, Have: s.Len(), Need: need}
	}
	return nil
}
