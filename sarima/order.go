package sarima

import (
	"errors"
	"fmt"
	"strings"
)

// Order represents SARIMA model order (p, d, q) x (P, D, Q, m).
type Order struct {
	P int `json:"p" yaml:"p"` // Non-seasonal AR order
	D int `json:"d" yaml:"d"` // Non-seasonal differencing order
	Q int `json:"q" yaml:"q"` // Non-seasonal MA order
	// Seasonal components
	SP int `json:"P" yaml:"P"` // Seasonal AR order
	SD int `json:"D" yaml:"D"` // Seasonal differencing order
	SQ int `json:"Q" yaml:"Q"` // Seasonal MA order
	M  int `json:"m" yaml:"m"` // Seasonal period (12 for monthly data)
}

// String formats the order as (p,d,q)(P,D,Q)[m].
func (o Order) String() string {
	return fmt.Sprintf("(%d,%d,%d)(%d,%d,%d)[%d]", o.P, o.D, o.Q, o.SP, o.SD, o.SQ, o.M)
}

// NumParams returns the number of ARMA coefficients, p+q+P+Q.
func (o Order) NumParams() int {
	return o.P + o.Q + o.SP + o.SQ
}

// MinObservations returns the shortest series Fit accepts for this order.
func (o Order) MinObservations() int {
	return o.P + o.Q + o.D + (o.SP+o.SD+o.SQ)*o.M + 20
}

// Conditioning returns the leading observations the conditional likelihood
// of this order needs: the differencing span d+D*m plus the AR span p+P*m.
func (o Order) Conditioning() int {
	return o.D + o.SD*o.M + o.P + o.SP*o.M
}

// minResiduals is the fewest residuals a fit scores beyond its parameters.
const minResiduals = 10

// Validate rejects negative orders and a non-positive period.
func (o Order) Validate() error {
	if o.P < 0 || o.D < 0 || o.Q < 0 || o.SP < 0 || o.SD < 0 || o.SQ < 0 {
		return fmt.Errorf("order %s: negative component", o)
	}
	if o.M < 1 {
		return fmt.Errorf("order %s: seasonal period must be positive", o)
	}
	return nil
}

// ParseOrder parses the String form "(p,d,q)(P,D,Q)[m]". The "[m]" suffix
// may be omitted, in which case m defaults to 12.
func ParseOrder(s string) (Order, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return Order{}, errors.New("empty order")
	}
	if !strings.Contains(s, "[") {
		s += "[12]"
	}

	var o Order
	_, err := fmt.Sscanf(s, "(%d,%d,%d)(%d,%d,%d)[%d]", &o.P, &o.D, &o.Q, &o.SP, &o.SD, &o.SQ, &o.M)
	if err != nil {
		return Order{}, fmt.Errorf("parse order %q: %w", s, err)
	}
	return o, o.Validate()
}
