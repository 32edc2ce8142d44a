// package resultstore contains the PostgreSQL implementation of the round
// summary repository
package resultstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gitlab.com/emaxgrid.net/internal/core/ports/primary"
	"gitlab.com/emaxgrid.net/internal/core/ports/secondary"
	"gitlab.com/emaxgrid.net/internal/domain"
)

var _ secondary.RoundRepository = (*RoundRepository)(nil)

// RoundRepository persists per-round result summaries with PostgreSQL
type RoundRepository struct {
	db     *sqlx.DB
	logger primary.Logger
}

// NewRoundRepository creates a new PostgreSQL round repository
func NewRoundRepository(db *sqlx.DB, logger primary.Logger) *RoundRepository {
	return &RoundRepository{
		db:     db,
		logger: logger,
	}
}

// SaveRound saves one worker's summary for one round
func (r *RoundRepository) SaveRound(ctx context.Context, record *domain.RoundRecord) error {
	query := `
		INSERT INTO task_rounds (
			run_id, round, code, rank, execution_time_ms, emax_checksum, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (run_id, round, rank) DO UPDATE SET
			code = EXCLUDED.code,
			execution_time_ms = EXCLUDED.execution_time_ms,
			emax_checksum = EXCLUDED.emax_checksum,
			completed_at = EXCLUDED.completed_at
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		record.RunID,
		record.Round,
		record.Code,
		record.Rank,
		record.ExecutionTimeMs,
		record.EmaxChecksum,
		record.CompletedAt,
	)

	if err != nil {
		r.logger.Error("Failed to save round record", "error", err)
		return fmt.Errorf("failed to save round record: %w", err)
	}

	return nil
}

// GetRounds retrieves every stored summary of a run, oldest round first
func (r *RoundRepository) GetRounds(ctx context.Context, runID uuid.UUID) ([]*domain.RoundRecord, error) {
	query := `
		SELECT run_id, round, code, rank, execution_time_ms, emax_checksum, completed_at
		FROM task_rounds
		WHERE run_id = $1
		ORDER BY round, rank
	`

	var records []*domain.RoundRecord
	if err := r.db.SelectContext(ctx, &records, query, runID); err != nil {
		r.logger.Error("Failed to get round records", "error", err)
		return nil, fmt.Errorf("failed to get round records: %w", err)
	}

	return records, nil
}
