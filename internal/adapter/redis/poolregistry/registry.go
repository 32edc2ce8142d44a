package poolregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"gitlab.com/emaxgrid.net/internal/core/ports/primary"
	"gitlab.com/emaxgrid.net/internal/core/ports/secondary"
	"gitlab.com/emaxgrid.net/internal/domain"
)

const (
	memberKeyPrefix  = "pool:member:"
	memberExpiration = 24 * time.Hour
)

var _ secondary.PoolRegistry = (*PoolRegistry)(nil)

// PoolRegistry mirrors pool membership into Redis so external tooling can
// observe the pool without talking to the controller process.
type PoolRegistry struct {
	redisClient *redis.Client
	logger      primary.Logger
}

// NewPoolRegistry creates a new Redis pool registry
func NewPoolRegistry(redisClient *redis.Client, logger primary.Logger) *PoolRegistry {
	return &PoolRegistry{
		redisClient: redisClient,
		logger:      logger,
	}
}

// SaveMember records a pool member
func (r *PoolRegistry) SaveMember(ctx context.Context, member *domain.MemberInfo) error {
	memberJSON, err := json.Marshal(member)
	if err != nil {
		r.logger.Error("Failed to marshal member info", "error", err)
		return fmt.Errorf("failed to marshal member info: %w", err)
	}

	key := memberKey(member.Rank)
	if err := r.redisClient.Set(ctx, key, memberJSON, memberExpiration).Err(); err != nil {
		r.logger.Error("Failed to save member info", "error", err)
		return fmt.Errorf("failed to save member info: %w", err)
	}

	return nil
}

// GetMember retrieves a member by rank
func (r *PoolRegistry) GetMember(ctx context.Context, rank int) (*domain.MemberInfo, error) {
	memberJSON, err := r.redisClient.Get(ctx, memberKey(rank)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("no member with rank %d", rank)
		}
		return nil, fmt.Errorf("failed to get member info: %w", err)
	}

	var member domain.MemberInfo
	if err := json.Unmarshal(memberJSON, &member); err != nil {
		return nil, fmt.Errorf("failed to unmarshal member info: %w", err)
	}

	return &member, nil
}

// GetAllMembers retrieves every recorded member
func (r *PoolRegistry) GetAllMembers(ctx context.Context) ([]*domain.MemberInfo, error) {
	var cursor uint64
	var memberKeys []string
	var members []*domain.MemberInfo
	var err error

	// Use SCAN to iterate over keys with the member prefix
	for {
		var keys []string
		keys, cursor, err = r.redisClient.Scan(ctx, cursor, memberKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan member keys: %w", err)
		}
		memberKeys = append(memberKeys, keys...)
		if cursor == 0 {
			break
		}
	}

	if len(memberKeys) == 0 {
		return members, nil // No members recorded
	}

	memberData, err := r.redisClient.MGet(ctx, memberKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve member data: %w", err)
	}

	for _, data := range memberData {
		if data == nil {
			continue
		}
		var member domain.MemberInfo
		if err := json.Unmarshal([]byte(data.(string)), &member); err != nil {
			return nil, fmt.Errorf("failed to unmarshal member data: %w", err)
		}
		members = append(members, &member)
	}

	return members, nil
}

// RemoveMember removes a member record
func (r *PoolRegistry) RemoveMember(ctx context.Context, rank int) error {
	if err := r.redisClient.Del(ctx, memberKey(rank)).Err(); err != nil {
		return fmt.Errorf("failed to remove member info: %w", err)
	}
	return nil
}

func memberKey(rank int) string {
	return fmt.Sprintf("%s%d", memberKeyPrefix, rank)
}
