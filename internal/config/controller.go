package config

import (
	"os"
	"strconv"
)

type ControllerConfig struct {
	ListenAddr string
	HTTPPort   int
	PoolSize   int
	// SpecPath points at the YAML model specification broadcast to the pool
	SpecPath string
}

func NewControllerConfig() *ControllerConfig {
	poolSize, err := strconv.Atoi(os.Getenv("POOL_SIZE"))
	if err != nil || poolSize < 1 {
		poolSize = 2
	}
	httpPort, err := strconv.Atoi(os.Getenv("CONTROLLER_HTTP_PORT"))
	if err != nil {
		httpPort = 9102
	}
	return &ControllerConfig{
		ListenAddr: getEnv("CONTROLLER_LISTEN_ADDR", ":9100"),
		HTTPPort:   httpPort,
		PoolSize:   poolSize,
		SpecPath:   getEnv("MODEL_SPEC_PATH", "model.yaml"),
	}
}
