// package controller implements the pool side of the worker protocol: rank
// assignment on join, the one-time specification broadcast, lockstep task
// rounds with a done-barrier, and the final pool drain.
package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"gitlab.com/emaxgrid.net/internal/core/ports/primary"
	"gitlab.com/emaxgrid.net/internal/core/ports/secondary"
	"gitlab.com/emaxgrid.net/internal/domain"
	"gitlab.com/emaxgrid.net/internal/tcp/connectionmanager"
	"gitlab.com/emaxgrid.net/internal/tcp/defs"
	"gitlab.com/emaxgrid.net/internal/tcp/wire"
)

// IPoolService is the pool contract the transport handlers talk to
type IPoolService interface {
	HandleJoin(ctx context.Context, conn net.Conn, data defs.JoinData) (int, error)
	HandleTaskDone(ctx context.Context, data defs.TaskDoneData) error
	HandleLeave(ctx context.Context, rank int)
}

// PoolStatus is a snapshot of the pool for the status surface
type PoolStatus struct {
	RunID    uuid.UUID            `json:"run_id"`
	PoolSize int                  `json:"pool_size"`
	Launched bool                 `json:"launched"`
	Round    int                  `json:"round"`
	Members  []*domain.MemberInfo `json:"members"`
}

var _ IPoolService = (*Service)(nil)

// Service drives the fixed-size worker pool through its lifecycle
type Service struct {
	spec     *domain.ModelSpecification
	poolSize int
	connMgr  *connectionmanager.ConnectionManager
	logger   primary.Logger
	registry secondary.PoolRegistry
	rounds   secondary.RoundRepository
	runID    uuid.UUID

	mu       sync.Mutex
	members  map[int]*domain.MemberInfo
	nextRank int
	launched bool
	round    int

	// roundMu serializes task rounds; the pool has one barrier, so only one
	// round may be in flight at a time
	roundMu sync.Mutex

	full   chan struct{}
	doneCh chan defs.TaskDoneData
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithRegistry mirrors pool membership into an external registry
func WithRegistry(registry secondary.PoolRegistry) ServiceOption {
	return func(s *Service) {
		s.registry = registry
	}
}

// WithRoundRepository persists per-round result summaries
func WithRoundRepository(rounds secondary.RoundRepository) ServiceOption {
	return func(s *Service) {
		s.rounds = rounds
	}
}

// NewService creates the pool service for one run
func NewService(
	spec *domain.ModelSpecification,
	poolSize int,
	connMgr *connectionmanager.ConnectionManager,
	logger primary.Logger,
	options ...ServiceOption,
) (*Service, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid specification: %w", err)
	}
	if poolSize < 1 {
		return nil, fmt.Errorf("pool size must be at least 1, got %d", poolSize)
	}

	service := &Service{
		spec:     spec,
		poolSize: poolSize,
		connMgr:  connMgr,
		logger:   logger,
		runID:    uuid.New(),
		members:  make(map[int]*domain.MemberInfo),
		full:     make(chan struct{}),
		doneCh:   make(chan defs.TaskDoneData, poolSize),
	}

	for _, option := range options {
		option(service)
	}

	return service, nil
}

// HandleJoin assigns the next free rank to a joining worker, acknowledges
// it, and broadcasts the specification once the pool is complete. The pool
// topology is fixed at launch; joins after launch are refused.
func (s *Service) HandleJoin(ctx context.Context, conn net.Conn, data defs.JoinData) (int, error) {
	s.mu.Lock()
	if s.launched {
		s.mu.Unlock()
		return -1, fmt.Errorf("pool already launched")
	}
	if s.nextRank >= s.poolSize {
		s.mu.Unlock()
		return -1, fmt.Errorf("pool is full with %d members", s.poolSize)
	}

	rank := s.nextRank
	member := &domain.MemberInfo{
		Rank:     rank,
		WorkerID: data.WorkerID,
		Host:     data.Host,
		JoinedAt: time.Now(),
	}

	// registration and the ack stay under the lock: the pool-completing join
	// broadcasts the specification, and no member may see that frame before
	// its own ack, nor miss it for want of a registered connection
	s.connMgr.RegisterMember(rank, conn)
	ack := defs.JoinAckData{RunID: s.runID, Rank: rank, PoolSize: s.poolSize}
	if err := wire.SendJSON(conn, defs.MsgJoinAck, ack); err != nil {
		s.connMgr.RemoveMember(rank)
		s.mu.Unlock()
		return -1, fmt.Errorf("failed to acknowledge join: %w", err)
	}

	s.nextRank++
	s.members[rank] = member
	complete := s.nextRank == s.poolSize
	s.mu.Unlock()

	if s.registry != nil {
		if err := s.registry.SaveMember(ctx, member); err != nil {
			s.logger.Warn("Failed to mirror member into registry", "rank", rank, "error", err)
		}
	}

	s.logger.Info("Worker joined", "rank", rank, "workerID", data.WorkerID, "host", data.Host)

	if complete {
		if err := s.broadcastSpecification(); err != nil {
			return rank, err
		}
	}

	return rank, nil
}

// broadcastSpecification sends the identical specification aggregate to
// every member, exactly once, and marks the pool launched.
func (s *Service) broadcastSpecification() error {
	payload, err := json.Marshal(s.spec)
	if err != nil {
		return fmt.Errorf("failed to marshal specification: %w", err)
	}
	if err := s.connMgr.Broadcast(defs.MsgSpec, payload); err != nil {
		return fmt.Errorf("failed to broadcast specification: %w", err)
	}

	s.mu.Lock()
	s.launched = true
	s.mu.Unlock()

	close(s.full)
	s.logger.Info("Pool complete, specification broadcast", "poolSize", s.poolSize)
	return nil
}

// HandleTaskDone feeds a worker's round acknowledgement into the barrier
func (s *Service) HandleTaskDone(ctx context.Context, data defs.TaskDoneData) error {
	select {
	case s.doneCh <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleLeave records a member dropping its connection. Mid-run this leaves
// the pool stalled by design; the run has to be failed as a whole.
func (s *Service) HandleLeave(ctx context.Context, rank int) {
	s.connMgr.RemoveMember(rank)
	if s.registry != nil {
		if err := s.registry.RemoveMember(ctx, rank); err != nil {
			s.logger.Warn("Failed to remove member from registry", "rank", rank, "error", err)
		}
	}

	s.mu.Lock()
	launched := s.launched
	s.mu.Unlock()
	if launched {
		s.logger.Error("Pool member disconnected mid-run", "rank", rank)
	}
}

// AwaitPool blocks until every rank has joined
func (s *Service) AwaitPool(ctx context.Context) error {
	select {
	case <-s.full:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("pool incomplete: %w", ctx.Err())
	}
}

// RunRound broadcasts one task signal to the whole pool and blocks until
// every member acknowledged the round. This is the collective barrier: no
// member can run ahead of its peers.
func (s *Service) RunRound(ctx context.Context, code int) ([]defs.TaskDoneData, error) {
	s.roundMu.Lock()
	defer s.roundMu.Unlock()

	s.mu.Lock()
	if !s.launched {
		s.mu.Unlock()
		return nil, fmt.Errorf("pool not launched")
	}
	s.round++
	round := s.round
	s.mu.Unlock()

	payload, err := json.Marshal(defs.TaskData{Round: round, Code: code})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task signal: %w", err)
	}
	if err := s.connMgr.Broadcast(defs.MsgTask, payload); err != nil {
		return nil, fmt.Errorf("failed to broadcast task signal: %w", err)
	}

	s.logger.Info("Task round started", "round", round, "code", code)

	results := make([]defs.TaskDoneData, 0, s.poolSize)
	for len(results) < s.poolSize {
		select {
		case done := <-s.doneCh:
			if done.Round != round {
				s.logger.Warn("Discarding stale round acknowledgement", "round", done.Round, "rank", done.Rank)
				continue
			}
			results = append(results, done)
		case <-ctx.Done():
			return nil, fmt.Errorf("round %d incomplete after %d of %d acknowledgements: %w",
				round, len(results), s.poolSize, ctx.Err())
		}
	}

	s.persistRound(ctx, round, code, results)
	s.logger.Info("Task round complete", "round", round, "code", code)
	return results, nil
}

// persistRound stores the round summaries; persistence is observability,
// not part of the protocol, so failures only log.
func (s *Service) persistRound(ctx context.Context, round, code int, results []defs.TaskDoneData) {
	if s.rounds == nil {
		return
	}
	for _, done := range results {
		record := &domain.RoundRecord{
			RunID:           s.runID,
			Round:           round,
			Code:            code,
			Rank:            done.Rank,
			ExecutionTimeMs: done.ExecutionTimeMs,
			EmaxChecksum:    done.EmaxChecksum,
			CompletedAt:     time.Now(),
		}
		if err := s.rounds.SaveRound(ctx, record); err != nil {
			s.logger.Warn("Failed to persist round record", "round", round, "rank", done.Rank, "error", err)
		}
	}
}

// Shutdown runs the terminal round and drains the pool: every member
// acknowledges the shutdown code, receives the final leave frame and the
// connections close.
func (s *Service) Shutdown(ctx context.Context) error {
	if _, err := s.RunRound(ctx, defs.TaskShutdown); err != nil {
		return fmt.Errorf("shutdown round failed: %w", err)
	}

	if err := s.connMgr.Broadcast(defs.MsgLeave, nil); err != nil {
		s.logger.Warn("Failed to send leave frames", "error", err)
	}
	s.connMgr.CloseAll()

	if s.registry != nil {
		for rank := range s.members {
			if err := s.registry.RemoveMember(ctx, rank); err != nil {
				s.logger.Warn("Failed to remove member from registry", "rank", rank, "error", err)
			}
		}
	}

	s.logger.Info("Pool drained", "rounds", s.round)
	return nil
}

// Status returns a snapshot for the HTTP surface
func (s *Service) Status() PoolStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	members := make([]*domain.MemberInfo, 0, len(s.members))
	for rank := 0; rank < s.poolSize; rank++ {
		if member, ok := s.members[rank]; ok {
			members = append(members, member)
		}
	}

	return PoolStatus{
		RunID:    s.runID,
		PoolSize: s.poolSize,
		Launched: s.launched,
		Round:    s.round,
		Members:  members,
	}
}
