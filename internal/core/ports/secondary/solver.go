package secondary

import (
	"context"

	"gitlab.com/emaxgrid.net/internal/domain"
	"gitlab.com/emaxgrid.net/internal/draws"
)

// SolverPipeline is the numeric collaborator invoked once per solve round.
// It is a pure function of its inputs: same specification, slice and draw
// block produce bit-identical output, and nothing is retained between calls.
type SolverPipeline interface {
	Run(ctx context.Context, spec *domain.ModelSpecification, slice domain.WorkloadSlice, block *draws.Block) (*domain.SolveOutput, error)
}

// StateSpaceBuilder enumerates the admissible states per period
type StateSpaceBuilder interface {
	BuildStateSpace(ctx context.Context, spec *domain.ModelSpecification) (*domain.StateSpace, error)
}

// PayoffEvaluator computes the systematic payoff per period, state and choice
type PayoffEvaluator interface {
	SystematicPayoffs(ctx context.Context, spec *domain.ModelSpecification, ss *domain.StateSpace) ([][][]float64, error)
}

// EmaxSolver runs the Monte Carlo backward recursion over the state space
type EmaxSolver interface {
	SolveEmax(ctx context.Context, spec *domain.ModelSpecification, ss *domain.StateSpace, payoffs [][][]float64, block *draws.Block) ([][]float64, error)
}
