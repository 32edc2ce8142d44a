package config

import "os"

type PostgresConfig struct {
	DSN string
	// Enabled controls whether round summaries are persisted
	Enabled bool
}

func NewPostgresConfig() *PostgresConfig {
	dsn := os.Getenv("DATABASE_URL")
	return &PostgresConfig{
		DSN:     dsn,
		Enabled: dsn != "",
	}
}
