package domain

import (
	"errors"
	"fmt"
)

// Choice indices of the four alternatives. The shock covariance fixes the
// dimensionality at runtime; the reference pipeline expects this ordering.
const (
	ChoiceOccA = 0
	ChoiceOccB = 1
	ChoiceEdu  = 2
	ChoiceHome = 3
)

// wage equations carry an intercept, education and two quadratic
// experience terms
const numWageCoeffs = 6

// education utility carries an intercept, a post-secondary tuition term
// and a re-enrollment cost
const numEduCoeffs = 3

// ModelSpecification is the immutable model configuration broadcast once by
// the controller to every pool member. No field changes after intake.
type ModelSpecification struct {
	NumPeriods int     `json:"num_periods" yaml:"num_periods"`
	Delta      float64 `json:"delta" yaml:"delta"`

	EduStart int `json:"edu_start" yaml:"edu_start"`
	EduMax   int `json:"edu_max" yaml:"edu_max"`

	// Wage equation coefficients for the two working alternatives and the
	// utility parameters for schooling and home
	CoeffsA    []float64 `json:"coeffs_a" yaml:"coeffs_a"`
	CoeffsB    []float64 `json:"coeffs_b" yaml:"coeffs_b"`
	CoeffsEdu  []float64 `json:"coeffs_edu" yaml:"coeffs_edu"`
	CoeffsHome float64   `json:"coeffs_home" yaml:"coeffs_home"`

	// Covariance of the choice-specific shocks, square in the number of
	// alternatives
	ShockCov [][]float64 `json:"shock_cov" yaml:"shock_cov"`

	NumDrawsEmax int `json:"num_draws_emax" yaml:"num_draws_emax"`
	NumAgents    int `json:"num_agents" yaml:"num_agents"`

	Seed      int64 `json:"seed" yaml:"seed"`
	MaxStates int   `json:"max_states" yaml:"max_states"`

	// DebugDraws replaces sampled disturbances with DebugValue so repeated
	// runs can be checked exactly
	DebugDraws bool    `json:"debug_draws" yaml:"debug_draws"`
	DebugValue float64 `json:"debug_value" yaml:"debug_value"`

	Tolerance float64 `json:"tolerance" yaml:"tolerance"`
}

// NumChoices returns the number of alternatives, driven by the shock
// covariance rather than a compile-time constant.
func (s *ModelSpecification) NumChoices() int {
	return len(s.ShockCov)
}

// Validate enforces all-or-nothing intake: a specification that fails any
// check is unusable and the receiving process must not start a task round.
func (s *ModelSpecification) Validate() error {
	if s == nil {
		return errors.New("specification missing")
	}
	if s.NumPeriods < 1 {
		return fmt.Errorf("num_periods must be at least 1, got %d", s.NumPeriods)
	}
	if s.Delta < 0 || s.Delta > 1 {
		return fmt.Errorf("delta must be within [0, 1], got %f", s.Delta)
	}
	if s.EduStart < 0 {
		return fmt.Errorf("edu_start must be non-negative, got %d", s.EduStart)
	}
	if s.EduMax <= s.EduStart {
		return fmt.Errorf("edu_max (%d) must exceed edu_start (%d)", s.EduMax, s.EduStart)
	}
	if len(s.CoeffsA) != numWageCoeffs {
		return fmt.Errorf("coeffs_a must have %d entries, got %d", numWageCoeffs, len(s.CoeffsA))
	}
	if len(s.CoeffsB) != numWageCoeffs {
		return fmt.Errorf("coeffs_b must have %d entries, got %d", numWageCoeffs, len(s.CoeffsB))
	}
	if len(s.CoeffsEdu) != numEduCoeffs {
		return fmt.Errorf("coeffs_edu must have %d entries, got %d", numEduCoeffs, len(s.CoeffsEdu))
	}
	if len(s.ShockCov) == 0 {
		return errors.New("shock_cov missing")
	}
	for i, row := range s.ShockCov {
		if len(row) != len(s.ShockCov) {
			return fmt.Errorf("shock_cov must be square, row %d has %d entries for dimension %d",
				i, len(row), len(s.ShockCov))
		}
	}
	if s.NumDrawsEmax < 1 {
		return fmt.Errorf("num_draws_emax must be at least 1, got %d", s.NumDrawsEmax)
	}
	if s.NumAgents < 0 {
		return fmt.Errorf("num_agents must be non-negative, got %d", s.NumAgents)
	}
	if s.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive, got %f", s.Tolerance)
	}
	return nil
}
