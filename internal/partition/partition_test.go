package partition

import (
	"testing"

	"gitlab.com/emaxgrid.net/internal/domain"
)

func TestSliceCoversWorkloadExactly(t *testing.T) {
	for poolSize := 1; poolSize <= 8; poolSize++ {
		for w := 0; w <= 50; w++ {
			owned := make([]int, w)
			minLen, maxLen := w+1, -1

			for rank := 0; rank < poolSize; rank++ {
				slice, err := Slice(rank, poolSize, w)
				if err != nil {
					t.Fatalf("Slice(%d, %d, %d) returned error: %v", rank, poolSize, w, err)
				}
				if slice.Start > slice.Stop {
					t.Fatalf("Slice(%d, %d, %d) is inverted: %+v", rank, poolSize, w, slice)
				}
				if slice.Start < 0 || slice.Stop > w {
					t.Fatalf("Slice(%d, %d, %d) out of bounds: %+v", rank, poolSize, w, slice)
				}
				for i := slice.Start; i < slice.Stop; i++ {
					owned[i]++
				}
				if n := slice.Len(); n < minLen {
					minLen = n
				}
				if n := slice.Len(); n > maxLen {
					maxLen = n
				}
			}

			for i, count := range owned {
				if count != 1 {
					t.Fatalf("element %d owned %d times for poolSize=%d w=%d", i, count, poolSize, w)
				}
			}
			if maxLen-minLen > 1 {
				t.Fatalf("share sizes differ by %d for poolSize=%d w=%d", maxLen-minLen, poolSize, w)
			}
		}
	}
}

func TestSliceTieBreak(t *testing.T) {
	// 10 elements over 4 workers: ranks 0 and 1 take 3, ranks 2 and 3 take 2
	tests := []domain.WorkloadSlice{
		{Start: 0, Stop: 3},
		{Start: 3, Stop: 6},
		{Start: 6, Stop: 8},
		{Start: 8, Stop: 10},
	}
	for rank, want := range tests {
		got, err := Slice(rank, 4, 10)
		if err != nil {
			t.Fatalf("Slice(%d, 4, 10) returned error: %v", rank, err)
		}
		if got != want {
			t.Errorf("Slice(%d, 4, 10) = %+v, want %+v", rank, got, want)
		}
	}
}

func TestSliceInvalidArguments(t *testing.T) {
	tests := []struct {
		name              string
		rank, poolSize, w int
	}{
		{"zero pool", 0, 0, 10},
		{"negative rank", -1, 4, 10},
		{"rank beyond pool", 4, 4, 10},
		{"negative workload", 0, 4, -1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Slice(tc.rank, tc.poolSize, tc.w); err == nil {
				t.Fatalf("Slice(%d, %d, %d) expected error", tc.rank, tc.poolSize, tc.w)
			}
		})
	}
}

func TestSliceEmptySharesOnHighRanks(t *testing.T) {
	// 2 elements over 5 workers: ranks 2..4 own nothing but stay valid
	for rank := 2; rank < 5; rank++ {
		slice, err := Slice(rank, 5, 2)
		if err != nil {
			t.Fatalf("Slice(%d, 5, 2) returned error: %v", rank, err)
		}
		if slice.Len() != 0 {
			t.Errorf("Slice(%d, 5, 2) = %+v, want empty", rank, slice)
		}
	}
}
