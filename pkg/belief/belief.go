// package belief implements an investor's Bayesian forecast of a hidden
// two-state regime from a stream of binary shocks. q is the probability the
// investor assigns to the low state.

package belief

import (
	"fmt"

	"github.com/domino14/econsim/pkg/numeric"
)

// Signal is a binary shock.
type Signal int

const (
	Down Signal = -1
	Up   Signal = 1
)

// Params holds the signal-emission and regime-transition probabilities and
// the initial belief.
type Params struct {
	PiL  float64
	PiH  float64
	Lam1 float64
	Lam2 float64
	QIni float64
}

func DefaultParams() Params {
	return Params{PiL: 0.4, PiH: 0.6, Lam1: 0.4, Lam2: 0.4, QIni: 0.5}
}

// NewParams validates and returns a belief model. The four probabilities
// must lie in (0,1); the initial belief in [0,1].
func NewParams(piL, piH, lam1, lam2, qIni float64) (Params, error) {
	p := Params{PiL: piL, PiH: piH, Lam1: lam1, Lam2: lam2, QIni: qIni}
	return p, p.Validate()
}

func (p Params) Validate() error {
	probs := []struct {
		name string
		v    float64
	}{{"pi_L", p.PiL}, {"pi_H", p.PiH}, {"lam_1", p.Lam1}, {"lam_2", p.Lam2}}
	for _, pr := range probs {
		if !numeric.OpenUnit(pr.v) {
			return fmt.Errorf("%s %v not in (0,1): %w", pr.name, pr.v, numeric.ErrInvalidParameter)
		}
	}
	if !numeric.ClosedUnit(p.QIni) {
		return fmt.Errorf("q_ini %v not in [0,1]: %w", p.QIni, numeric.ErrInvalidParameter)
	}
	return nil
}

// Forecast updates belief q after observing newSignal following oldSignal.
// A repeated shock is evidence for the low state with likelihood pi_L
// against pi_H; a reversal uses the complements.
func (p Params) Forecast(oldSignal, newSignal Signal, q float64) (float64, error) {
	if !numeric.ClosedUnit(q) {
		return 0, fmt.Errorf("belief %v not in [0,1]: %w", q, numeric.ErrInvalidParameter)
	}
	// prior probability of the low state next period
	m := (1-p.Lam1)*q + p.Lam2*(1-q)
	// and of the high state
	h := p.Lam1*q + (1-p.Lam2)*(1-q)

	likeL, likeH := p.PiL, p.PiH
	if oldSignal != newSignal {
		likeL, likeH = 1-p.PiL, 1-p.PiH
	}
	den := likeL*m + likeH*h
	if den == 0 || !numeric.Finite(den) {
		return 0, fmt.Errorf("update denominator %v for q=%v: %w", den, q, numeric.ErrDegenerate)
	}
	newQ := likeL * m / den
	if !numeric.Finite(newQ) {
		return 0, fmt.Errorf("update produced %v: %w", newQ, numeric.ErrDegenerate)
	}
	return newQ, nil
}
