package solver

import (
	"context"
	"math"
	"testing"

	"gitlab.com/emaxgrid.net/internal/domain"
	"gitlab.com/emaxgrid.net/internal/draws"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Warn(msg string, args ...interface{})  {}

func mustBlock(t *testing.T, spec *domain.ModelSpecification, rank int) *draws.Block {
	t.Helper()
	block, err := draws.NewBlock(spec, rank)
	if err != nil {
		t.Fatalf("NewBlock returned error: %v", err)
	}
	return block
}

func fullSlice(spec *domain.ModelSpecification) domain.WorkloadSlice {
	return domain.WorkloadSlice{Start: 0, Stop: spec.NumAgents}
}

func TestPipelineDeterministic(t *testing.T) {
	spec := testSpec()
	block := mustBlock(t, spec, 0)
	pipeline := NewPipeline(nopLogger{})

	first, err := pipeline.Run(context.Background(), spec, fullSlice(spec), block)
	if err != nil {
		t.Fatalf("first run returned error: %v", err)
	}
	second, err := pipeline.Run(context.Background(), spec, fullSlice(spec), block)
	if err != nil {
		t.Fatalf("second run returned error: %v", err)
	}

	if first.Checksum != second.Checksum {
		t.Fatalf("checksums differ between identical runs: %v vs %v", first.Checksum, second.Checksum)
	}
	for period := range first.Emax {
		for k := range first.Emax[period] {
			if first.Emax[period][k] != second.Emax[period][k] {
				t.Fatalf("emax[%d][%d] differs between identical runs", period, k)
			}
		}
	}
}

func TestEmaxTerminalPeriodWithDebugDraws(t *testing.T) {
	spec := testSpec()
	spec.DebugDraws = true
	spec.DebugValue = 0

	block := mustBlock(t, spec, 0)
	out, err := NewPipeline(nopLogger{}).Run(context.Background(), spec, fullSlice(spec), block)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	// with zero draws the wage shocks are exp(0) = 1 and the additive
	// shocks vanish, so the last period's emax is exactly the best
	// systematic payoff
	last := spec.NumPeriods - 1
	for k, row := range out.Payoffs[last] {
		want := math.Inf(-1)
		for _, v := range row {
			if v > want {
				want = v
			}
		}
		if got := out.Emax[last][k]; math.Abs(got-want) > 1e-6*math.Abs(want) {
			t.Fatalf("emax[%d][%d] = %v, want %v", last, k, got, want)
		}
	}
}

func TestMyopicSolutionIgnoresContinuation(t *testing.T) {
	spec := testSpec()
	spec.Delta = 0
	spec.DebugDraws = true
	spec.DebugValue = 0

	block := mustBlock(t, spec, 0)
	out, err := NewPipeline(nopLogger{}).Run(context.Background(), spec, fullSlice(spec), block)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	for period := range out.Emax {
		for k, row := range out.Payoffs[period] {
			want := math.Inf(-1)
			for _, v := range row {
				if v > want {
					want = v
				}
			}
			if got := out.Emax[period][k]; math.Abs(got-want) > 1e-6*math.Abs(want) {
				t.Fatalf("myopic emax[%d][%d] = %v, want %v", period, k, got, want)
			}
		}
	}
}

func TestPipelineRejectsBadCovariance(t *testing.T) {
	spec := testSpec()
	spec.ShockCov[0][0] = -1

	block := mustBlock(t, spec, 0)
	if _, err := NewPipeline(nopLogger{}).Run(context.Background(), spec, fullSlice(spec), block); err == nil {
		t.Fatal("expected error for non positive definite covariance")
	}
}

func TestPipelineRejectsBadSlice(t *testing.T) {
	spec := testSpec()
	block := mustBlock(t, spec, 0)

	bad := domain.WorkloadSlice{Start: 0, Stop: spec.NumAgents + 1}
	if _, err := NewPipeline(nopLogger{}).Run(context.Background(), spec, bad, block); err == nil {
		t.Fatal("expected error for slice outside the workload")
	}
}

func TestSystematicPayoffsInitialState(t *testing.T) {
	spec := testSpec()
	ss, err := NewStateSpaceBuilder().BuildStateSpace(context.Background(), spec)
	if err != nil {
		t.Fatalf("BuildStateSpace returned error: %v", err)
	}
	payoffs, err := NewPayoffEvaluator().SystematicPayoffs(context.Background(), spec, ss)
	if err != nil {
		t.Fatalf("SystematicPayoffs returned error: %v", err)
	}

	row := payoffs[0][0]

	wantWageA := math.Exp(spec.CoeffsA[0] + spec.CoeffsA[1]*float64(spec.EduStart))
	if math.Abs(row[domain.ChoiceOccA]-wantWageA) > 1e-9 {
		t.Errorf("occupation a payoff = %v, want %v", row[domain.ChoiceOccA], wantWageA)
	}

	// the initial state carries lagged schooling, so no re-enrollment cost
	// applies, and ten years of schooling stay below the tuition threshold
	if row[domain.ChoiceEdu] != spec.CoeffsEdu[0] {
		t.Errorf("schooling payoff = %v, want %v", row[domain.ChoiceEdu], spec.CoeffsEdu[0])
	}
	if row[domain.ChoiceHome] != spec.CoeffsHome {
		t.Errorf("home payoff = %v, want %v", row[domain.ChoiceHome], spec.CoeffsHome)
	}
}
