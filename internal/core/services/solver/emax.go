package solver

import (
	"context"
	"fmt"
	"math"

	"gitlab.com/emaxgrid.net/internal/core/ports/secondary"
	"gitlab.com/emaxgrid.net/internal/domain"
	"gitlab.com/emaxgrid.net/internal/draws"
)

// largest exponent fed to math.Exp when transforming wage shocks, keeping
// the result finite
const maxLogFloat = 709.0

var _ secondary.EmaxSolver = (*EmaxSolver)(nil)

// EmaxSolver computes expected maximum continuation values by Monte Carlo
// integration, backward from the final period
type EmaxSolver struct{}

// NewEmaxSolver creates an EMAX solver
func NewEmaxSolver() *EmaxSolver {
	return &EmaxSolver{}
}

// SolveEmax runs the backward recursion. Per state and draw it computes the
// total value of each alternative (ex-post payoff plus discounted
// continuation value) and averages the per-draw maxima. The draw block is
// read-only; correlation between the choice shocks is applied here through
// the Cholesky factor of the shock covariance.
func (s *EmaxSolver) SolveEmax(ctx context.Context, spec *domain.ModelSpecification, ss *domain.StateSpace, payoffs [][][]float64, block *draws.Block) ([][]float64, error) {
	if ss == nil || payoffs == nil || block == nil {
		return nil, fmt.Errorf("incomplete solver inputs")
	}

	chol, err := cholesky(spec.ShockCov)
	if err != nil {
		return nil, fmt.Errorf("shock covariance is not positive definite: %w", err)
	}

	dim := spec.NumChoices()
	emax := make([][]float64, spec.NumPeriods)
	for period := range emax {
		emax[period] = make([]float64, len(ss.States[period]))
	}

	shocks := make([]float64, dim)
	for period := spec.NumPeriods - 1; period >= 0; period-- {
		for k := range ss.States[period] {
			sum := 0.0
			for d := 0; d < block.NumDraws; d++ {
				transformShocks(shocks, chol, block.Data[period][d])
				best, err := maxTotalValue(spec, ss, payoffs, emax, period, k, shocks)
				if err != nil {
					return nil, err
				}
				sum += best
			}
			emax[period][k] = sum / float64(block.NumDraws)
		}
	}

	return emax, nil
}

// transformShocks correlates one row of standard-normal draws and applies
// the level transformation: multiplicative lognormal shocks for the wage
// alternatives, additive for schooling and home.
func transformShocks(dst []float64, chol [][]float64, draw []float64) {
	for j := range dst {
		x := 0.0
		for l := 0; l <= j; l++ {
			x += chol[j][l] * draw[l]
		}
		if j == domain.ChoiceOccA || j == domain.ChoiceOccB {
			if x > maxLogFloat {
				x = maxLogFloat
			}
			dst[j] = math.Exp(x)
		} else {
			dst[j] = x
		}
	}
}

// maxTotalValue returns the maximum over alternatives of ex-post payoff plus
// discounted continuation value for one state and one shock realization.
func maxTotalValue(spec *domain.ModelSpecification, ss *domain.StateSpace, payoffs [][][]float64, emax [][]float64, period, k int, shocks []float64) (float64, error) {
	systematic := payoffs[period][k]

	exPost := [4]float64{
		systematic[domain.ChoiceOccA] * shocks[domain.ChoiceOccA],
		systematic[domain.ChoiceOccB] * shocks[domain.ChoiceOccB],
		systematic[domain.ChoiceEdu] + shocks[domain.ChoiceEdu],
		systematic[domain.ChoiceHome] + shocks[domain.ChoiceHome],
	}

	var future [4]float64
	if period < spec.NumPeriods-1 {
		f, err := futurePayoffs(spec, ss, emax, period, k)
		if err != nil {
			return 0, err
		}
		future = f
	}

	best := math.Inf(-1)
	for j := 0; j < len(exPost); j++ {
		total := exPost[j] + spec.Delta*future[j]
		// with myopic agents -inf * 0 turns into NaN, keep the schooling
		// cap binding
		if spec.Delta == 0 && math.IsInf(future[j], -1) {
			total = math.Inf(-1)
		}
		if total > best {
			best = total
		}
	}

	return best, nil
}

// futurePayoffs resolves the continuation value of each alternative through
// the state index mapping of the following period. Schooling beyond the cap
// is inadmissible and carries a continuation of -inf.
func futurePayoffs(spec *domain.ModelSpecification, ss *domain.StateSpace, emax [][]float64, period, k int) ([4]float64, error) {
	st := ss.States[period][k]
	next := period + 1

	var future [4]float64

	idx, ok := ss.Lookup(next, st.ExpA+1, st.ExpB, st.Edu, false)
	if !ok {
		return future, lookupError(next, st, "occupation a")
	}
	future[domain.ChoiceOccA] = emax[next][idx]

	idx, ok = ss.Lookup(next, st.ExpA, st.ExpB+1, st.Edu, false)
	if !ok {
		return future, lookupError(next, st, "occupation b")
	}
	future[domain.ChoiceOccB] = emax[next][idx]

	if st.Edu < spec.EduMax-spec.EduStart {
		idx, ok = ss.Lookup(next, st.ExpA, st.ExpB, st.Edu+1, true)
		if !ok {
			return future, lookupError(next, st, "schooling")
		}
		future[domain.ChoiceEdu] = emax[next][idx]
	} else {
		future[domain.ChoiceEdu] = math.Inf(-1)
	}

	idx, ok = ss.Lookup(next, st.ExpA, st.ExpB, st.Edu, false)
	if !ok {
		return future, lookupError(next, st, "home")
	}
	future[domain.ChoiceHome] = emax[next][idx]

	return future, nil
}

func lookupError(period int, st domain.State, choice string) error {
	return fmt.Errorf("no successor state in period %d for %+v via %s", period, st, choice)
}

// cholesky returns the lower-triangular factor of a symmetric positive
// definite matrix.
func cholesky(m [][]float64) ([][]float64, error) {
	n := len(m)
	chol := make([][]float64, n)
	for i := range chol {
		chol[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sum := m[i][j]
			for l := 0; l < j; l++ {
				sum -= chol[i][l] * chol[j][l]
			}
			if i == j {
				if sum <= 0 {
					return nil, fmt.Errorf("leading minor %d is not positive", i+1)
				}
				chol[i][j] = math.Sqrt(sum)
			} else {
				chol[i][j] = sum / chol[j][j]
			}
		}
	}

	return chol, nil
}
