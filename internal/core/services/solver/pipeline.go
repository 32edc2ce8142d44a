package solver

import (
	"context"
	"fmt"

	"gitlab.com/emaxgrid.net/internal/core/ports/primary"
	"gitlab.com/emaxgrid.net/internal/core/ports/secondary"
	"gitlab.com/emaxgrid.net/internal/domain"
	"gitlab.com/emaxgrid.net/internal/draws"
)

// the reference pipeline models the four-alternative specification: two
// working sectors, schooling and home
const numAlternatives = 4

var _ secondary.SolverPipeline = (*Pipeline)(nil)

// Pipeline chains state-space enumeration, systematic payoff evaluation and
// the EMAX backward recursion into one solve pass.
type Pipeline struct {
	builder secondary.StateSpaceBuilder
	payoffs secondary.PayoffEvaluator
	emax    secondary.EmaxSolver
	logger  primary.Logger
}

// NewPipeline creates the reference solver pipeline
func NewPipeline(logger primary.Logger) *Pipeline {
	return &Pipeline{
		builder: NewStateSpaceBuilder(),
		payoffs: NewPayoffEvaluator(),
		emax:    NewEmaxSolver(),
		logger:  logger,
	}
}

// Run executes one full solve pass. It holds no state between calls, so
// repeated invocations with the same specification, slice and draw block
// yield identical output.
func (p *Pipeline) Run(ctx context.Context, spec *domain.ModelSpecification, slice domain.WorkloadSlice, block *draws.Block) (*domain.SolveOutput, error) {
	if spec.NumChoices() != numAlternatives {
		return nil, fmt.Errorf("pipeline supports %d alternatives, specification has %d",
			numAlternatives, spec.NumChoices())
	}
	if slice.Start < 0 || slice.Stop > spec.NumAgents || slice.Start > slice.Stop {
		return nil, fmt.Errorf("agent slice %+v outside workload of %d agents", slice, spec.NumAgents)
	}

	p.logger.Debug("Starting solve pass", "agents", slice.Len(), "periods", spec.NumPeriods)

	ss, err := p.builder.BuildStateSpace(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to build state space: %w", err)
	}

	payoffs, err := p.payoffs.SystematicPayoffs(ctx, spec, ss)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate systematic payoffs: %w", err)
	}

	emax, err := p.emax.SolveEmax(ctx, spec, ss, payoffs, block)
	if err != nil {
		return nil, fmt.Errorf("failed to solve emax recursion: %w", err)
	}

	out := &domain.SolveOutput{
		StateSpace: ss,
		Payoffs:    payoffs,
		Emax:       emax,
		Checksum:   checksum(emax),
	}

	p.logger.Debug("Solve pass finished", "states", ss.Size(), "checksum", out.Checksum)
	return out, nil
}

// checksum folds the emax table into one value for cheap comparison of
// repeated runs.
func checksum(emax [][]float64) float64 {
	total := 0.0
	for _, period := range emax {
		for _, v := range period {
			total += v
		}
	}
	return total
}
