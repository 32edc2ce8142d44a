package defs

import (
	"github.com/google/uuid"
)

// Protocol data structures
type (
	// JoinData is sent by a worker when it joins the pool
	JoinData struct {
		WorkerID string `json:"worker_id"`
		Host     string `json:"host"`
	}

	// JoinAckData is the controller's answer to a join, fixing the worker's
	// place in the pool for the process lifetime
	JoinAckData struct {
		RunID    uuid.UUID `json:"run_id"`
		Rank     int       `json:"rank"`
		PoolSize int       `json:"pool_size"`
	}

	// TaskData is one task round signal
	TaskData struct {
		Round int `json:"round"`
		Code  int `json:"code"`
	}

	// TaskDoneData is the worker's barrier acknowledgement for one round
	TaskDoneData struct {
		Round           int     `json:"round"`
		Rank            int     `json:"rank"`
		Code            int     `json:"code"`
		ExecutionTimeMs int64   `json:"execution_time_ms"`
		EmaxChecksum    float64 `json:"emax_checksum,omitempty"`
		StatesVisited   int     `json:"states_visited,omitempty"`
	}

	// ErrorData is sent with protocol-level error responses
	ErrorData struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
)
