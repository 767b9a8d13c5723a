package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"greenscore/pkg/api"
	"greenscore/pkg/calllog"
	"greenscore/pkg/config"
	"greenscore/pkg/kafka"
	"greenscore/pkg/probe"
	"greenscore/pkg/storage"
	"greenscore/pkg/storage/memdb"
	"greenscore/pkg/storage/mongo"
	"greenscore/pkg/storage/postgres"
	"greenscore/pkg/storage/sqlite"
)

func main() {
	var (
		configPath   string
		httpAddr     string
		logLevel     string
		storageKind  string
		probeTimeout time.Duration
		dev          bool
	)

	flag.StringVar(&configPath, "config", "cmd/server/config.toml", "Path to TOML config file.")
	flag.StringVar(&httpAddr, "http", "", "HTTP server address in the form 'host:port'.")
	flag.StringVar(&logLevel, "log", "", "Log level: debug, info, warn, error.")
	flag.StringVar(&storageKind, "storage", "", "Call log storage: memory, postgres, sqlite, mongo.")
	flag.DurationVar(&probeTimeout, "timeout", 0, "Timeout of outbound probe requests.")
	flag.BoolVar(&dev, "dev", false, "Run the server in development mode with in-memory DB.")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("[server] failed to load .env file: %v", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("[server] %v", err)
	}

	// Override config with flags if set
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if storageKind != "" {
		cfg.Storage = storageKind
	}
	if probeTimeout != 0 {
		cfg.ProbeTimeout = probeTimeout
	}
	if dev {
		cfg.Storage = config.StorageMemory
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[server] invalid config: %v", err)
	}

	logger := log.StandardLogger()
	logger.SetLevel(cfg.Level())

	db, err := openStorage(cfg)
	if err != nil {
		log.Fatalf("[server] %v", err)
	}
	defer db.Close()

	var opts []calllog.Option
	if cfg.Kafka.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := kafka.CreateTopic(ctx, cfg.Kafka.Addr, cfg.Kafka.Topic); err != nil {
			log.Warnf("[server] failed to create Kafka topic: %v", err)
		}
		cancel()

		pub := kafka.NewPublisher(cfg.Kafka)
		defer pub.Close()
		opts = append(opts, calllog.WithPublisher(pub))
	} else {
		log.Warn("[server] kafka was not configured, call log entries will not be mirrored")
	}

	rec := calllog.New(db, logger, opts...)
	api := api.New(cfg.ServiceName, db, rec, probe.New(cfg.ProbeTimeout), logger)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Infof("[server] starting on %v", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[server] failed to start: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	shutdownCtx, shutdownRelease := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownRelease()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("[server] HTTP server shutdown error: %v", err)
	} else {
		log.Info("[server] HTTP server shut down gracefully")
	}
}

func openStorage(cfg config.Config) (storage.Storage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cfg.Storage {
	case config.StoragePostgres:
		conf := cfg.Postgres
		conf.Password = os.Getenv("POSTGRES_PASSWORD")
		if host := os.Getenv("POSTGRES_HOST"); host != "" {
			conf.Host = host
		}
		if port := os.Getenv("POSTGRES_PORT"); port != "" {
			conf.Port = port
		}
		if !conf.IsValid() {
			return nil, fmt.Errorf("invalid postgres config: %v", conf)
		}

		db, err := postgres.New(ctx, conf.ConString())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", storage.ErrConnectDB, err)
		}
		if err := db.Ping(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: %v", storage.ErrDBNotResponding, err)
		}
		log.Infof("[server] connected to postgres: %v", conf)
		return db, nil

	case config.StorageMongo:
		conf := cfg.Mongo
		if err := conf.FromEnv(); err != nil {
			return nil, err
		}

		db, err := mongo.New(ctx, &conf)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", storage.ErrConnectDB, err)
		}
		if err := db.Ping(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: %v", storage.ErrDBNotResponding, err)
		}
		log.Infof("[server] connected to mongo %s:%s/%s", conf.Host, conf.Port, conf.DBName)
		return db, nil

	case config.StorageSQLite:
		db, err := sqlite.New(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		log.Infof("[server] using sqlite database %s", cfg.SQLite.Path)
		return db, nil

	default:
		log.Info("[server] run server with in memory DB")
		return memdb.New(), nil
	}
}
