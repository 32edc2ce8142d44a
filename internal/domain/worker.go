package domain

import "time"

// WorkerIdentity is assigned once when the worker joins the pool and never
// changes afterwards.
type WorkerIdentity struct {
	Rank     int `json:"rank"`
	PoolSize int `json:"pool_size"`
}

// WorkloadSlice is the contiguous half-open index range [Start, Stop) owned
// exclusively by one worker.
type WorkloadSlice struct {
	Start int `json:"start"`
	Stop  int `json:"stop"`
}

// Len returns the number of elements in the slice.
func (s WorkloadSlice) Len() int {
	return s.Stop - s.Start
}

// MemberInfo describes one pool member as seen by the controller
type MemberInfo struct {
	Rank     int       `json:"rank"`
	WorkerID string    `json:"worker_id"`
	Host     string    `json:"host"`
	JoinedAt time.Time `json:"joined_at"`
}
