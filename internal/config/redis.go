package config

import (
	"os"
	"strconv"
)

type RedisConfig struct {
	Url      string
	Password string
	DB       int
	// Enabled controls whether pool membership is mirrored into redis
	Enabled bool
}

func NewRedisConfig() *RedisConfig {
	db, err := strconv.Atoi(os.Getenv("REDIS_DB"))
	if err != nil {
		db = 0
	}
	url := os.Getenv("REDIS_ADDR")
	return &RedisConfig{
		Url:      url,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
		Enabled:  url != "",
	}
}
