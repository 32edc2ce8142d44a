// package worker implements the worker side of the pool protocol: join the
// pool once, receive the model specification once, fix the owned workload
// slice and draw block, then execute task rounds until told to shut down.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"gitlab.com/emaxgrid.net/internal/core/ports/primary"
	"gitlab.com/emaxgrid.net/internal/core/ports/secondary"
	"gitlab.com/emaxgrid.net/internal/domain"
	"gitlab.com/emaxgrid.net/internal/draws"
	"gitlab.com/emaxgrid.net/internal/partition"
	"gitlab.com/emaxgrid.net/internal/tcp/defs"
	"gitlab.com/emaxgrid.net/internal/tcp/wire"
)

// State is the dispatch loop state
type State int

const (
	AwaitingTask State = iota
	Executing
	Terminated
)

func (s State) String() string {
	switch s {
	case AwaitingTask:
		return "awaiting_task"
	case Executing:
		return "executing"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// leaveWait bounds how long the worker waits for the controller's final
// leave frame after acknowledging shutdown
const leaveWait = 2 * time.Second

// Worker is one pool member. Identity, specification, workload slice and
// draw block are fixed during Setup and never change afterwards.
type Worker struct {
	conn     net.Conn
	workerID string
	host     string
	pipeline secondary.SolverPipeline
	logger   primary.Logger

	identity    domain.WorkerIdentity
	spec        *domain.ModelSpecification
	slice       domain.WorkloadSlice
	block       *draws.Block
	state       State
	solveRounds int
}

// New creates a worker bound to an established controller connection
func New(conn net.Conn, workerID, host string, pipeline secondary.SolverPipeline, logger primary.Logger) *Worker {
	return &Worker{
		conn:     conn,
		workerID: workerID,
		host:     host,
		pipeline: pipeline,
		logger:   logger,
	}
}

// Setup performs the one-time sequence before the dispatch loop: join the
// pool, receive the specification, derive the owned slice and build the draw
// cache. Every failure here is fatal, the process cannot do useful work
// without a complete setup.
func (w *Worker) Setup(ctx context.Context) error {
	if err := w.join(); err != nil {
		return fmt.Errorf("failed to join pool: %w", err)
	}
	if err := w.receiveSpecification(); err != nil {
		return fmt.Errorf("failed specification intake: %w", err)
	}

	slice, err := partition.Slice(w.identity.Rank, w.identity.PoolSize, w.spec.NumAgents)
	if err != nil {
		return fmt.Errorf("failed to partition workload: %w", err)
	}
	w.slice = slice

	block, err := draws.NewBlock(w.spec, w.identity.Rank)
	if err != nil {
		return fmt.Errorf("failed to build draw cache: %w", err)
	}
	w.block = block

	w.state = AwaitingTask
	w.logger.Info(
		"Worker setup complete",
		"rank", w.identity.Rank,
		"poolSize", w.identity.PoolSize,
		"agentSlice", fmt.Sprintf("[%d,%d)", slice.Start, slice.Stop),
		"draws", w.spec.NumDrawsEmax,
	)
	return nil
}

// join sends the join frame and blocks for the rank assignment
func (w *Worker) join() error {
	joinData := defs.JoinData{WorkerID: w.workerID, Host: w.host}
	if err := wire.SendJSON(w.conn, defs.MsgJoin, joinData); err != nil {
		return err
	}

	msgType, payload, err := wire.ReadMessage(w.conn)
	if err != nil {
		return err
	}

	switch msgType {
	case defs.MsgJoinAck:
	case defs.MsgError:
		var errData defs.ErrorData
		if err := json.Unmarshal(payload, &errData); err == nil {
			return fmt.Errorf("controller rejected join: %s", errData.Message)
		}
		return fmt.Errorf("controller rejected join")
	default:
		return fmt.Errorf("expected join ack, got message type %d", msgType)
	}

	var ack defs.JoinAckData
	if err := json.Unmarshal(payload, &ack); err != nil {
		return fmt.Errorf("malformed join ack: %w", err)
	}
	if ack.PoolSize < 1 || ack.Rank < 0 || ack.Rank >= ack.PoolSize {
		return fmt.Errorf("invalid rank assignment %d in pool of %d", ack.Rank, ack.PoolSize)
	}

	w.identity = domain.WorkerIdentity{Rank: ack.Rank, PoolSize: ack.PoolSize}
	return nil
}

// receiveSpecification blocks for the one-time specification broadcast.
// Intake is all-or-nothing, a specification failing any validation check is
// fatal before the first task frame is read.
func (w *Worker) receiveSpecification() error {
	msgType, payload, err := wire.ReadMessage(w.conn)
	if err != nil {
		return err
	}
	if msgType != defs.MsgSpec {
		return fmt.Errorf("expected specification, got message type %d", msgType)
	}

	var spec domain.ModelSpecification
	if err := json.Unmarshal(payload, &spec); err != nil {
		return fmt.Errorf("malformed specification: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("incomplete specification: %w", err)
	}

	w.spec = &spec
	return nil
}

// Run executes the dispatch loop. It returns nil only after a shutdown
// round; any transport or pipeline failure is fatal because the pool runs
// in lockstep and has no path for a single member to recover alone.
func (w *Worker) Run(ctx context.Context) error {
	if w.spec == nil {
		return fmt.Errorf("worker not set up")
	}

	for {
		msgType, payload, err := wire.ReadMessage(w.conn)
		if err != nil {
			return fmt.Errorf("lost controller channel: %w", err)
		}

		switch msgType {
		case defs.MsgTask:
			var task defs.TaskData
			if err := json.Unmarshal(payload, &task); err != nil {
				return fmt.Errorf("malformed task frame: %w", err)
			}
			terminated, err := w.dispatch(ctx, task)
			if err != nil {
				return err
			}
			if terminated {
				w.awaitLeave()
				return nil
			}
		case defs.MsgError:
			var errData defs.ErrorData
			if err := json.Unmarshal(payload, &errData); err == nil {
				w.logger.Warn("Controller reported error", "code", errData.Code, "message", errData.Message)
			}
		default:
			w.logger.Warn("Ignoring unexpected frame", "type", msgType)
		}
	}
}

// dispatch executes one task round and reports whether the loop is done
func (w *Worker) dispatch(ctx context.Context, task defs.TaskData) (bool, error) {
	switch task.Code {
	case defs.TaskShutdown:
		w.state = Terminated
		w.logger.Info("Shutdown signal received", "round", task.Round)
		if err := w.sendDone(task, 0, 0, 0); err != nil {
			return true, fmt.Errorf("failed to acknowledge shutdown: %w", err)
		}
		return true, nil

	case defs.TaskSolve:
		w.state = Executing
		start := time.Now()

		out, err := w.pipeline.Run(ctx, w.spec, w.slice, w.block)
		if err != nil {
			// no local retry: peers are blocked on this round, the whole
			// pool has to abort
			return false, fmt.Errorf("solve round %d failed: %w", task.Round, err)
		}

		elapsed := time.Since(start)
		if err := w.sendDone(task, elapsed, out.Checksum, out.StateSpace.Size()); err != nil {
			return false, err
		}

		// out goes out of scope here: nothing of the round survives except
		// the cached draw block
		w.solveRounds++
		w.state = AwaitingTask
		w.logger.Debug("Solve round finished", "round", task.Round, "elapsed", elapsed)
		return false, nil

	default:
		// unknown codes are reserved for future task kinds; acknowledge the
		// round so the controller barrier still counts the full pool
		w.logger.Debug("No-op round for unrecognized task code", "round", task.Round, "code", task.Code)
		if err := w.sendDone(task, 0, 0, 0); err != nil {
			return false, err
		}
		w.state = AwaitingTask
		return false, nil
	}
}

func (w *Worker) sendDone(task defs.TaskData, elapsed time.Duration, checksum float64, states int) error {
	done := defs.TaskDoneData{
		Round:           task.Round,
		Rank:            w.identity.Rank,
		Code:            task.Code,
		ExecutionTimeMs: elapsed.Milliseconds(),
		EmaxChecksum:    checksum,
		StatesVisited:   states,
	}
	if err := wire.SendJSON(w.conn, defs.MsgTaskDone, done); err != nil {
		return fmt.Errorf("failed to send round acknowledgement: %w", err)
	}
	return nil
}

// awaitLeave waits briefly for the controller's leave frame so both sides
// agree the pool drained. A missing frame is tolerated, the connection may
// already be closing.
func (w *Worker) awaitLeave() {
	if err := w.conn.SetReadDeadline(time.Now().Add(leaveWait)); err != nil {
		return
	}
	msgType, _, err := wire.ReadMessage(w.conn)
	if err != nil {
		w.logger.Debug("No leave frame before close", "error", err)
		return
	}
	if msgType != defs.MsgLeave {
		w.logger.Debug("Unexpected final frame", "type", msgType)
	}
}

// Identity returns the worker's fixed pool identity
func (w *Worker) Identity() domain.WorkerIdentity {
	return w.identity
}

// Slice returns the owned workload slice
func (w *Worker) Slice() domain.WorkloadSlice {
	return w.slice
}

// Specification returns the received model specification
func (w *Worker) Specification() *domain.ModelSpecification {
	return w.spec
}

// Block returns the cached draw block
func (w *Worker) Block() *draws.Block {
	return w.block
}

// State returns the dispatch loop state
func (w *Worker) State() State {
	return w.state
}

// SolveRounds returns how many solve rounds completed
func (w *Worker) SolveRounds() int {
	return w.solveRounds
}
