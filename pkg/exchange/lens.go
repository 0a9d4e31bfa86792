package exchange

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/domino14/econsim/pkg/numeric"
)

// CurvePoint is the excess demand at one price on a grid.
type CurvePoint struct {
	P1 float64
	E1 float64
	E2 float64
}

// ExcessDemandCurve evaluates excess demand at n evenly spaced prices in
// [lo, hi].
func ExcessDemandCurve(params Params, lo, hi float64, n int) ([]CurvePoint, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if !(lo > 0) || !(hi > lo) || !numeric.Finite(hi) {
		return nil, fmt.Errorf("price range [%v, %v] must be positive and increasing: %w",
			lo, hi, numeric.ErrInvalidParameter)
	}
	if n < 2 {
		return nil, fmt.Errorf("grid needs at least 2 points, got %d: %w", n, numeric.ErrInvalidParameter)
	}
	prices := floats.Span(make([]float64, n), lo, hi)
	points := make([]CurvePoint, 0, n)
	for _, p1 := range prices {
		e1, e2, err := params.ExcessDemand(p1)
		if err != nil {
			return nil, err
		}
		points = append(points, CurvePoint{P1: p1, E1: e1, E2: e2})
	}
	return points, nil
}

// BestGridPrice returns the point whose good-1 excess demand is smallest in
// absolute value. ok is false for an empty curve.
func BestGridPrice(points []CurvePoint) (best CurvePoint, ok bool) {
	if len(points) == 0 {
		return CurvePoint{}, false
	}
	abs := make([]float64, len(points))
	for i, pt := range points {
		abs[i] = math.Abs(pt.E1)
	}
	return points[floats.MinIdx(abs)], true
}

// ExchangeLens enumerates agent A's allocations on the grid {0, 1/n, ..., 1}²
// that leave both agents at least as well off as at their endowments. Agent
// B consumes the remainder of each good.
func ExchangeLens(params Params, n int) ([]Allocation, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("grid size %d must be positive: %w", n, numeric.ErrInvalidParameter)
	}
	uA0, err := params.UtilityA(params.W1A, params.W2A)
	if err != nil {
		return nil, err
	}
	uB0, err := params.UtilityB(params.W1B(), params.W2B())
	if err != nil {
		return nil, err
	}

	grid := floats.Span(make([]float64, n+1), 0, 1)
	lens := []Allocation{}
	for _, x1A := range grid {
		for _, x2A := range grid {
			uA, err := params.UtilityA(x1A, x2A)
			if err != nil {
				return nil, err
			}
			// 1-x can dip just below zero at the grid's upper end
			uB, err := params.UtilityB(math.Max(0, 1-x1A), math.Max(0, 1-x2A))
			if err != nil {
				return nil, err
			}
			if uA >= uA0 && uB >= uB0 {
				lens = append(lens, Allocation{X1: x1A, X2: x2A})
			}
		}
	}
	return lens, nil
}
