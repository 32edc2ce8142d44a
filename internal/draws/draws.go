// package draws builds the worker-private block of Monte Carlo disturbances.
// The block is generated once per process and reused unchanged by every
// later solve round; regenerating it between rounds would let repeated
// evaluations of the same parameters see different simulated noise.
package draws

import (
	"fmt"
	"math/rand"

	"gitlab.com/emaxgrid.net/internal/domain"
)

// Block is an immutable [period][draw][dimension] array of standard-normal
// disturbances, or of a constant when the specification asks for debug draws.
type Block struct {
	NumPeriods int
	NumDraws   int
	Dim        int
	Data       [][][]float64
}

// NewBlock generates the draw block for one worker. The stream is seeded
// with the specification seed offset by rank, so distinct ranks produce
// independent streams while any (seed, rank) pair reproduces exactly.
func NewBlock(spec *domain.ModelSpecification, rank int) (*Block, error) {
	if spec == nil {
		return nil, fmt.Errorf("specification missing")
	}
	if rank < 0 {
		return nil, fmt.Errorf("rank must be non-negative, got %d", rank)
	}

	dim := spec.NumChoices()
	block := &Block{
		NumPeriods: spec.NumPeriods,
		NumDraws:   spec.NumDrawsEmax,
		Dim:        dim,
		Data:       make([][][]float64, spec.NumPeriods),
	}

	rng := rand.New(rand.NewSource(spec.Seed + int64(rank)))

	for p := 0; p < spec.NumPeriods; p++ {
		block.Data[p] = make([][]float64, spec.NumDrawsEmax)
		for d := 0; d < spec.NumDrawsEmax; d++ {
			row := make([]float64, dim)
			for j := 0; j < dim; j++ {
				if spec.DebugDraws {
					row[j] = spec.DebugValue
				} else {
					row[j] = rng.NormFloat64()
				}
			}
			block.Data[p][d] = row
		}
	}

	return block, nil
}
