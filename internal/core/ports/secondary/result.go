package secondary

import (
	"context"

	"github.com/google/uuid"

	"gitlab.com/emaxgrid.net/internal/domain"
)

// RoundRepository stores per-round result summaries for later inspection
type RoundRepository interface {
	// SaveRound saves one worker's summary for one round
	SaveRound(ctx context.Context, record *domain.RoundRecord) error

	// GetRounds retrieves every stored summary of a run
	GetRounds(ctx context.Context, runID uuid.UUID) ([]*domain.RoundRecord, error)
}
