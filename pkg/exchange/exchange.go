// package exchange implements a pure-exchange economy with two goods and two
// Cobb-Douglas agents. Total endowment of each good is normalized to 1 and
// good 2 is the numeraire.

package exchange

import (
	"fmt"
	"math"

	"github.com/domino14/econsim/pkg/numeric"
)

// Params describes the economy. Agent B's endowment is whatever agent A
// does not hold.
type Params struct {
	Alpha float64
	Beta  float64
	W1A   float64
	W2A   float64
}

// Allocation is one agent's consumption bundle.
type Allocation struct {
	X1 float64
	X2 float64
}

func DefaultParams() Params {
	return Params{Alpha: 1.0 / 3, Beta: 2.0 / 3, W1A: 0.8, W2A: 0.3}
}

// NewParams validates and returns an economy. Exponents must lie in (0,1)
// and agent A's endowments in [0,1].
func NewParams(alpha, beta, w1A, w2A float64) (Params, error) {
	p := Params{Alpha: alpha, Beta: beta, W1A: w1A, W2A: w2A}
	return p, p.Validate()
}

func (p Params) Validate() error {
	if !numeric.OpenUnit(p.Alpha) {
		return fmt.Errorf("alpha %v not in (0,1): %w", p.Alpha, numeric.ErrInvalidParameter)
	}
	if !numeric.OpenUnit(p.Beta) {
		return fmt.Errorf("beta %v not in (0,1): %w", p.Beta, numeric.ErrInvalidParameter)
	}
	if !numeric.ClosedUnit(p.W1A) {
		return fmt.Errorf("w1A %v not in [0,1]: %w", p.W1A, numeric.ErrInvalidParameter)
	}
	if !numeric.ClosedUnit(p.W2A) {
		return fmt.Errorf("w2A %v not in [0,1]: %w", p.W2A, numeric.ErrInvalidParameter)
	}
	return nil
}

func (p Params) W1B() float64 { return 1 - p.W1A }
func (p Params) W2B() float64 { return 1 - p.W2A }

// EndowmentA and EndowmentB return each agent's initial bundle.
func (p Params) EndowmentA() Allocation { return Allocation{X1: p.W1A, X2: p.W2A} }
func (p Params) EndowmentB() Allocation { return Allocation{X1: p.W1B(), X2: p.W2B()} }

func cobbDouglas(share, x1, x2 float64) (float64, error) {
	if x1 < 0 || x2 < 0 {
		return 0, fmt.Errorf("negative consumption (%v, %v): %w", x1, x2, numeric.ErrInvalidParameter)
	}
	return math.Pow(x1, share) * math.Pow(x2, 1-share), nil
}

func (p Params) UtilityA(x1, x2 float64) (float64, error) {
	return cobbDouglas(p.Alpha, x1, x2)
}

func (p Params) UtilityB(x1, x2 float64) (float64, error) {
	return cobbDouglas(p.Beta, x1, x2)
}

// demand is the closed-form Cobb-Douglas demand of an agent holding
// (w1, w2) when good 1 costs p1.
func demand(share, w1, w2, p1 float64) (Allocation, error) {
	if !(p1 > 0) || !numeric.Finite(p1) {
		return Allocation{}, fmt.Errorf("price %v must be positive and finite: %w", p1, numeric.ErrDegenerate)
	}
	income := w1*p1 + w2
	return Allocation{X1: share * income / p1, X2: (1 - share) * income}, nil
}

func (p Params) DemandA(p1 float64) (Allocation, error) {
	return demand(p.Alpha, p.W1A, p.W2A, p1)
}

func (p Params) DemandB(p1 float64) (Allocation, error) {
	return demand(p.Beta, p.W1B(), p.W2B(), p1)
}

// ExcessDemand returns aggregate demand minus aggregate endowment for each
// good. By Walras' law e2 vanishes once e1 does.
func (p Params) ExcessDemand(p1 float64) (e1, e2 float64, err error) {
	a, err := p.DemandA(p1)
	if err != nil {
		return 0, 0, err
	}
	b, err := p.DemandB(p1)
	if err != nil {
		return 0, 0, err
	}
	e1 = a.X1 - p.W1A + b.X1 - p.W1B()
	e2 = a.X2 - p.W2A + b.X2 - p.W2B()
	return e1, e2, nil
}

// MarketClearing reports the clearing errors for both markets at p1.
func (p Params) MarketClearing(p1 float64) (e1, e2 float64, err error) {
	return p.ExcessDemand(p1)
}

// AnalyticPrice is the closed-form market-clearing price of good 1. It is
// always positive for valid parameters.
func (p Params) AnalyticPrice() float64 {
	num := p.Alpha*p.W2A + p.Beta*p.W2B()
	den := 1 - p.Alpha*p.W1A - p.Beta*p.W1B()
	return num / den
}
