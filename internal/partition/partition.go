// package partition computes the workload slice a worker owns. The split is
// a pure function of rank, pool size and workload size, so workers never
// need to coordinate to avoid overlapping work.
package partition

import (
	"fmt"

	"gitlab.com/emaxgrid.net/internal/domain"
)

// Slice returns the half-open index range [start, stop) owned by the given
// rank when a workload of size w is split across poolSize workers. Shares
// differ by at most one element; ranks below w % poolSize take the extra one.
func Slice(rank, poolSize, w int) (domain.WorkloadSlice, error) {
	if poolSize < 1 {
		return domain.WorkloadSlice{}, fmt.Errorf("pool size must be at least 1, got %d", poolSize)
	}
	if rank < 0 || rank >= poolSize {
		return domain.WorkloadSlice{}, fmt.Errorf("rank %d outside pool of size %d", rank, poolSize)
	}
	if w < 0 {
		return domain.WorkloadSlice{}, fmt.Errorf("workload size must be non-negative, got %d", w)
	}

	share := w / poolSize
	extra := w % poolSize

	start := rank*share + min(rank, extra)
	stop := start + share
	if rank < extra {
		stop++
	}

	return domain.WorkloadSlice{Start: start, Stop: stop}, nil
}
