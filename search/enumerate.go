package search

import (
	"fmt"

	"github.com/sartorproj/paxarima/sarima"
	"github.com/sartorproj/paxarima/timeseries"
)

// Bounds limits the order grid.
type Bounds struct {
	MaxPQ      int  // maximum p, q and seasonal Q (and seasonal P with SeasonalAR)
	MaxDiff    int  // maximum d and D
	SeasonalAR bool // search seasonal P too; otherwise P is fixed at 0
	Period     int  // seasonal period, default 12
}

// DefaultBounds returns PQmax=2, Imax=1 with seasonal P fixed at 0.
func DefaultBounds() Bounds {
	return Bounds{MaxPQ: 2, MaxDiff: 1, Period: timeseries.Monthly}
}

// Validate rejects negative bounds.
func (b Bounds) Validate() error {
	if b.MaxPQ < 0 || b.MaxDiff < 0 {
		return fmt.Errorf("search bounds must be non-negative: MaxPQ=%d MaxDiff=%d", b.MaxPQ, b.MaxDiff)
	}
	return nil
}

func (b Bounds) period() int {
	if b.Period <= 0 {
		return timeseries.Monthly
	}
	return b.Period
}

// Condition returns the observations every candidate's likelihood
// conditions on: the longest differencing span plus the longest AR span of
// the grid. Fitting all candidates with it scores them on the same months.
func (b Bounds) Condition() int {
	m := b.period()
	cond := b.MaxDiff*(1+m) + b.MaxPQ
	if b.SeasonalAR {
		cond += b.MaxPQ * m
	}
	return cond
}

// Size returns the number of candidates Enumerate yields.
func (b Bounds) Size() int {
	pq := b.MaxPQ + 1
	n := pq * pq * pq
	if b.SeasonalAR {
		n *= pq
	}
	return n * (b.MaxDiff + 1) * (b.MaxDiff + 1)
}

// Enumerate lists every candidate order. Loops nest outermost first as
// p, q, P, Q, d, D, all ascending; a candidate's position is its tie-break rank.
func Enumerate(b Bounds) []sarima.Order {
	maxSP := 0
	if b.SeasonalAR {
		maxSP = b.MaxPQ
	}
	m := b.period()

	orders := make([]sarima.Order, 0, b.Size())
	for p := 0; p <= b.MaxPQ; p++ {
		for q := 0; q <= b.MaxPQ; q++ {
			for sp := 0; sp <= maxSP; sp++ {
				for sq := 0; sq <= b.MaxPQ; sq++ {
					for d := 0; d <= b.MaxDiff; d++ {
						for sd := 0; sd <= b.MaxDiff; sd++ {
							orders = append(orders, sarima.Order{
								P: p, D: d, Q: q,
								SP: sp, SD: sd, SQ: sq, M: m,
							})
						}
					}
				}
			}
		}
	}
	return orders
}
