package solver

import (
	"context"
	"fmt"
	"math"

	"gitlab.com/emaxgrid.net/internal/core/ports/secondary"
	"gitlab.com/emaxgrid.net/internal/domain"
)

// years of schooling after which the tuition term of the education payoff
// applies
const postSecondaryEdu = 12

var _ secondary.PayoffEvaluator = (*PayoffEvaluator)(nil)

// PayoffEvaluator computes the systematic part of each alternative's payoff
type PayoffEvaluator struct{}

// NewPayoffEvaluator creates a payoff evaluator
func NewPayoffEvaluator() *PayoffEvaluator {
	return &PayoffEvaluator{}
}

// SystematicPayoffs evaluates the deterministic payoff per period, state and
// alternative. The two working alternatives use an exponentiated log-wage
// index over schooling and quadratic sector experience; schooling and home
// are linear utilities.
func (e *PayoffEvaluator) SystematicPayoffs(ctx context.Context, spec *domain.ModelSpecification, ss *domain.StateSpace) ([][][]float64, error) {
	if ss == nil {
		return nil, fmt.Errorf("state space missing")
	}

	payoffs := make([][][]float64, spec.NumPeriods)
	for period := 0; period < spec.NumPeriods; period++ {
		payoffs[period] = make([][]float64, len(ss.States[period]))
		for k, st := range ss.States[period] {
			edu := spec.EduStart + st.Edu

			row := make([]float64, spec.NumChoices())
			row[domain.ChoiceOccA] = math.Exp(wageIndex(spec.CoeffsA, edu, st.ExpA, st.ExpB))
			row[domain.ChoiceOccB] = math.Exp(wageIndex(spec.CoeffsB, edu, st.ExpA, st.ExpB))

			eduPayoff := spec.CoeffsEdu[0]
			if edu >= postSecondaryEdu {
				eduPayoff += spec.CoeffsEdu[1]
			}
			if !st.LaggedEdu {
				eduPayoff += spec.CoeffsEdu[2]
			}
			row[domain.ChoiceEdu] = eduPayoff
			row[domain.ChoiceHome] = spec.CoeffsHome

			payoffs[period][k] = row
		}
	}

	return payoffs, nil
}

// wageIndex evaluates the log-wage linear index: intercept, schooling and
// quadratic terms in both sector experiences.
func wageIndex(coeffs []float64, edu, expA, expB int) float64 {
	return coeffs[0] +
		coeffs[1]*float64(edu) +
		coeffs[2]*float64(expA) +
		coeffs[3]*float64(expA*expA) +
		coeffs[4]*float64(expB) +
		coeffs[5]*float64(expB*expB)
}
