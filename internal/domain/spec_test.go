package domain

import (
	"strings"
	"testing"
)

func validSpec() *ModelSpecification {
	return &ModelSpecification{
		NumPeriods: 5,
		Delta:      0.95,
		EduStart:   10,
		EduMax:     20,
		CoeffsA:    []float64{9.21, 0.04, 0.033, -0.0005, 0, 0},
		CoeffsB:    []float64{8.48, 0.07, 0.067, -0.001, 0.022, -0.0005},
		CoeffsEdu:  []float64{0, -4000, -15000},
		CoeffsHome: 17750,
		ShockCov: [][]float64{
			{0.2, 0, 0, 0},
			{0, 0.25, 0, 0},
			{0, 0, 1500, 0},
			{0, 0, 0, 1500},
		},
		NumDrawsEmax: 100,
		NumAgents:    1000,
		Seed:         423,
		Tolerance:    1e-8,
	}
}

func TestValidateAcceptsCompleteSpecification(t *testing.T) {
	if err := validSpec().Validate(); err != nil {
		t.Fatalf("expected specification to validate, got %v", err)
	}
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ModelSpecification)
		msg    string
	}{
		{"zero periods", func(s *ModelSpecification) { s.NumPeriods = 0 }, "num_periods"},
		{"negative delta", func(s *ModelSpecification) { s.Delta = -0.1 }, "delta"},
		{"delta above one", func(s *ModelSpecification) { s.Delta = 1.5 }, "delta"},
		{"negative edu start", func(s *ModelSpecification) { s.EduStart = -1 }, "edu_start"},
		{"edu max below start", func(s *ModelSpecification) { s.EduMax = 9 }, "edu_max"},
		{"truncated coeffs a", func(s *ModelSpecification) { s.CoeffsA = s.CoeffsA[:4] }, "coeffs_a"},
		{"truncated coeffs b", func(s *ModelSpecification) { s.CoeffsB = nil }, "coeffs_b"},
		{"truncated coeffs edu", func(s *ModelSpecification) { s.CoeffsEdu = s.CoeffsEdu[:1] }, "coeffs_edu"},
		{"missing shock cov", func(s *ModelSpecification) { s.ShockCov = nil }, "shock_cov"},
		{"ragged shock cov", func(s *ModelSpecification) { s.ShockCov[2] = s.ShockCov[2][:2] }, "square"},
		{"zero draws", func(s *ModelSpecification) { s.NumDrawsEmax = 0 }, "num_draws_emax"},
		{"negative agents", func(s *ModelSpecification) { s.NumAgents = -5 }, "num_agents"},
		{"zero tolerance", func(s *ModelSpecification) { s.Tolerance = 0 }, "tolerance"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			spec := validSpec()
			tc.mutate(spec)
			err := spec.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.msg) {
				t.Fatalf("expected error containing %q, got %v", tc.msg, err)
			}
		})
	}
}

func TestNumChoicesFollowsShockCov(t *testing.T) {
	spec := validSpec()
	if got := spec.NumChoices(); got != 4 {
		t.Fatalf("NumChoices() = %d, want 4", got)
	}
}
