package secondary

import (
	"context"

	"gitlab.com/emaxgrid.net/internal/domain"
)

// PoolRegistry mirrors pool membership into an external store so tooling
// outside the controller process can observe the pool.
type PoolRegistry interface {
	// SaveMember records a pool member
	SaveMember(ctx context.Context, member *domain.MemberInfo) error

	// GetMember retrieves a member by rank
	GetMember(ctx context.Context, rank int) (*domain.MemberInfo, error)

	// GetAllMembers retrieves every recorded member
	GetAllMembers(ctx context.Context) ([]*domain.MemberInfo, error)

	// RemoveMember removes a member record
	RemoveMember(ctx context.Context, rank int) error
}
