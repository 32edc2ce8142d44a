package main

import (
	"context"
	"log"
	"net"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"gitlab.com/emaxgrid.net/internal/adapter/logging"
	"gitlab.com/emaxgrid.net/internal/config"
	"gitlab.com/emaxgrid.net/internal/core/services/solver"
	"gitlab.com/emaxgrid.net/internal/tcp/defs"
	"gitlab.com/emaxgrid.net/internal/worker"
)

func main() {
	InitReader()

	logger := logging.NewZapLogger()
	logger.Info("Starting pool worker")

	sysCfg := config.NewSystemConfig()
	cfg := sysCfg.WorkerCfg

	workerID := cfg.WorkerID
	if workerID == "" {
		workerID = uuid.NewString()
	}
	host, _ := os.Hostname()

	conn, err := dial(cfg, logger)
	if err != nil {
		logger.Error("Failed to reach controller", "addr", cfg.ControllerAddr, "error", err)
		logger.Sync()
		os.Exit(1)
	}
	defer conn.Close()

	pipeline := solver.NewPipeline(logger)
	w := worker.New(conn, workerID, host, pipeline, logger)

	ctx := context.Background()
	if err := w.Setup(ctx); err != nil {
		logger.Error("Worker setup failed", "error", err)
		logger.Sync()
		os.Exit(1)
	}

	if err := w.Run(ctx); err != nil {
		logger.Error("Worker aborted", "rank", w.Identity().Rank, "error", err)
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("Worker exited cleanly", "rank", w.Identity().Rank, "solveRounds", w.SolveRounds())
	logger.Sync()
	// give in-flight diagnostics a moment to drain
	time.Sleep(cfg.FlushDelay)
}

// dial connects to the controller, retrying a bounded number of times so a
// worker launched slightly before the controller still joins.
func dial(cfg *config.WorkerConfig, logger *logging.ZapLogger) (net.Conn, error) {
	var conn net.Conn
	var err error
	for attempt := 1; attempt <= cfg.DialAttempts; attempt++ {
		conn, err = net.DialTimeout("tcp", cfg.ControllerAddr, defs.JoinTimeout)
		if err == nil {
			return conn, nil
		}
		logger.Warn("Dial failed", "attempt", attempt, "error", err)
		time.Sleep(defs.ConnectionRetryDelay)
	}
	return nil, err
}

func InitReader() {
	environment := ""
	if len(os.Args) < 2 {
		log.Fatalf("Env not supplied in argument")
	} else {
		environment = os.Args[1]
	}

	err := godotenv.Load(environment + ".env")
	if err != nil {
		log.Fatalf("Error loading %s.env file", environment)
	}
}
