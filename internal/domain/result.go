package domain

import (
	"time"

	"github.com/google/uuid"
)

// SolveOutput is the result of one full pass of the numeric pipeline. The
// tables are owned by the caller; the pipeline retains nothing between calls.
type SolveOutput struct {
	StateSpace *StateSpace
	// Payoffs holds the systematic payoff per period, state and choice
	Payoffs [][][]float64
	// Emax holds the expected maximum continuation value per period and state
	Emax [][]float64
	// Checksum summarizes the Emax table for cheap cross-run comparison
	Checksum float64
}

// RoundRecord is the persisted summary of one worker's part in one task round
type RoundRecord struct {
	RunID           uuid.UUID `db:"run_id"`
	Round           int       `db:"round"`
	Code            int       `db:"code"`
	Rank            int       `db:"rank"`
	ExecutionTimeMs int64     `db:"execution_time_ms"`
	EmaxChecksum    float64   `db:"emax_checksum"`
	CompletedAt     time.Time `db:"completed_at"`
}
