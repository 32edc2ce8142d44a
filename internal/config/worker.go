package config

import (
	"os"
	"strconv"
	"time"
)

type WorkerConfig struct {
	ControllerAddr string
	WorkerID       string
	// DialAttempts bounds how often the worker retries the initial dial
	// before giving up on joining the pool
	DialAttempts int
	// FlushDelay is a brief pause before process exit so in-flight
	// diagnostics can drain
	FlushDelay time.Duration
}

func NewWorkerConfig() *WorkerConfig {
	attempts, err := strconv.Atoi(os.Getenv("WORKER_DIAL_ATTEMPTS"))
	if err != nil || attempts < 1 {
		attempts = 5
	}
	flushMs, err := strconv.Atoi(os.Getenv("WORKER_FLUSH_DELAY_MS"))
	if err != nil || flushMs < 0 {
		flushMs = 100
	}
	return &WorkerConfig{
		ControllerAddr: getEnv("CONTROLLER_ADDR", "localhost:9100"),
		WorkerID:       os.Getenv("WORKER_ID"),
		DialAttempts:   attempts,
		FlushDelay:     time.Duration(flushMs) * time.Millisecond,
	}
}
