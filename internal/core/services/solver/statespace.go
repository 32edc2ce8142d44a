package solver

import (
	"context"
	"fmt"

	"gitlab.com/emaxgrid.net/internal/core/ports/secondary"
	"gitlab.com/emaxgrid.net/internal/domain"
)

var _ secondary.StateSpaceBuilder = (*StateSpaceBuilder)(nil)

// StateSpaceBuilder enumerates the admissible states of the four-alternative
// model per period
type StateSpaceBuilder struct{}

// NewStateSpaceBuilder creates a state space builder
func NewStateSpaceBuilder() *StateSpaceBuilder {
	return &StateSpaceBuilder{}
}

// BuildStateSpace enumerates every admissible combination of sector
// experience, additional schooling and lagged schooling per period. A state
// is admissible when its components sum to no more than the elapsed periods
// and its lagged-schooling flag is consistent with the schooling level:
// everyone enters the model from school, lagged schooling requires some
// schooling after the first period, and an agent that did nothing but attend
// school must carry the flag.
func (b *StateSpaceBuilder) BuildStateSpace(ctx context.Context, spec *domain.ModelSpecification) (*domain.StateSpace, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid specification: %w", err)
	}

	eduRange := spec.EduMax - spec.EduStart
	ss := domain.NewStateSpace(spec.NumPeriods)

	for period := 0; period < spec.NumPeriods; period++ {
		for expA := 0; expA <= period; expA++ {
			for expB := 0; expB <= period-expA; expB++ {
				maxEdu := period - expA - expB
				if maxEdu > eduRange {
					maxEdu = eduRange
				}
				for edu := 0; edu <= maxEdu; edu++ {
					for _, lagged := range []bool{false, true} {
						if period == 0 && !lagged {
							continue
						}
						if period > 0 && lagged && edu == 0 {
							continue
						}
						if period > 0 && !lagged && edu == period {
							continue
						}
						ss.Add(period, domain.State{
							ExpA:      expA,
							ExpB:      expB,
							Edu:       edu,
							LaggedEdu: lagged,
						})
					}
				}
			}
		}

		if spec.MaxStates > 0 && len(ss.States[period]) > spec.MaxStates {
			return nil, fmt.Errorf("period %d has %d states, exceeding the limit of %d",
				period, len(ss.States[period]), spec.MaxStates)
		}
	}

	return ss, nil
}
