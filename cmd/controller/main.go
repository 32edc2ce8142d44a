package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"gitlab.com/emaxgrid.net/internal/adapter/postgres/resultstore"
	"gitlab.com/emaxgrid.net/internal/adapter/redis/poolregistry"
	"gitlab.com/emaxgrid.net/internal/config"
	"gitlab.com/emaxgrid.net/internal/controller"
	logger2 "gitlab.com/emaxgrid.net/internal/global/logger"
	http2 "gitlab.com/emaxgrid.net/internal/http"
	"gitlab.com/emaxgrid.net/internal/tcp"
	"gitlab.com/emaxgrid.net/internal/tcp/connectionmanager"
)

func main() {
	InitReader()
	// Set up graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	logger2.Info("Starting pool controller")

	logger := logger2.Logger

	sysCfg := config.NewSystemConfig()
	cfg := sysCfg.ControllerCfg

	spec, err := config.LoadModelSpecification(cfg.SpecPath)
	if err != nil {
		panic(err)
	}

	connMgr := connectionmanager.NewConnectionManager(logger)

	var options []controller.ServiceOption
	if sysCfg.RedisConfig.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     sysCfg.RedisConfig.Url,
			Password: sysCfg.RedisConfig.Password,
			DB:       sysCfg.RedisConfig.DB,
		})
		options = append(options, controller.WithRegistry(poolregistry.NewPoolRegistry(redisClient, logger)))
	}
	if sysCfg.PostgresConfig.Enabled {
		db, err := setupDatabase(sysCfg.PostgresConfig.DSN)
		if err != nil {
			panic(err)
		}
		options = append(options, controller.WithRoundRepository(resultstore.NewRoundRepository(db, logger)))
	}

	pool, err := controller.NewService(spec, cfg.PoolSize, connMgr, logger, options...)
	if err != nil {
		panic(err)
	}

	tcpServer := tcp.NewServer(pool, connMgr, logger, tcp.WithAddress(cfg.ListenAddr))
	if err := tcpServer.Start(); err != nil {
		panic(err)
	}

	httpServer := http2.NewServer(cfg.HTTPPort, pool, logger)
	if err := httpServer.Init(); err != nil {
		panic(err)
	}
	ctxBg := context.Background()
	httpServer.Start(ctxBg)

	go func() {
		if err := pool.AwaitPool(ctxBg); err == nil {
			logger.Info("Pool ready for task rounds", "poolSize", cfg.PoolSize)
		}
	}()

	<-quit
	logger.Info("Shutting down controller...")

	ctx, cancel := context.WithTimeout(ctxBg, 30*time.Second)
	defer cancel()

	if pool.Status().Launched {
		if err := pool.Shutdown(ctx); err != nil {
			logger.Error("Failed to drain pool", "error", err)
		}
	}

	httpServer.Stop()
	stopCtx, stopCancel := context.WithTimeout(ctxBg, 5*time.Second)
	defer stopCancel()
	tcpServer.Stop(stopCtx)

	logger.Info("successfully shutdown controller")
}

// setupDatabase sets up the PostgreSQL connection
func setupDatabase(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
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
