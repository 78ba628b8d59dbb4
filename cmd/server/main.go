package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/avatarctic/timecache/configs"
	"github.com/avatarctic/timecache/internal/application/services"
	"github.com/avatarctic/timecache/internal/core/ports"
	"github.com/avatarctic/timecache/internal/infrastructure/bolt"
	"github.com/avatarctic/timecache/internal/infrastructure/clock"
	"github.com/avatarctic/timecache/internal/infrastructure/codec"
	"github.com/avatarctic/timecache/internal/infrastructure/events"
	"github.com/avatarctic/timecache/internal/infrastructure/health"
	"github.com/avatarctic/timecache/internal/infrastructure/httpserver"
	"github.com/avatarctic/timecache/internal/infrastructure/memory"
	"github.com/avatarctic/timecache/internal/infrastructure/redis"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Starting timecache...")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metricsSink, err := events.NewMetricsSink(registry)
	if err != nil {
		logger.Fatal("Failed to register cache metrics:", err)
	}
	sink := events.Multi{metricsSink, events.NewLogrusSink(logger)}

	clk := clock.System{}

	// Initialize the remote backend
	var (
		store     ports.ScalarStore
		hcSlice   []ports.HealthChecker
		closeFunc func() error
	)
	switch cfg.Cache.Backend {
	case config.BackendBolt:
		boltStore, err := bolt.Open(cfg.Bolt.Path, clk, bolt.Options{Bucket: cfg.Bolt.Bucket, Timeout: 5 * time.Second})
		if err != nil {
			logger.Fatal("Failed to open bolt store:", err)
		}
		store, closeFunc = boltStore, boltStore.Close
		hcSlice = append(hcSlice, health.NewStoreHealthChecker("bolt", boltStore))
		logger.WithField("path", cfg.Bolt.Path).Info("Opened bolt store successfully")
	default:
		redisClient, err := redis.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis:", err)
		}
		store, closeFunc = redis.NewStore(redisClient), redisClient.Close
		hcSlice = append(hcSlice, health.NewRedisHealthChecker(redisClient))
		logger.Info("Connected to Redis successfully")
	}
	defer func() {
		if err := closeFunc(); err != nil {
			logger.WithError(err).Warn("Failed to close cache backend")
		}
	}()

	remote, err := services.NewRemoteCache(store, codec.NewJSON(), clk, services.RemoteCacheConfig{
		KeyPrefix:  cfg.Cache.KeyPrefix,
		DefaultTTL: cfg.Cache.RemoteDefaultTTL,
		OpTimeout:  cfg.Cache.OpTimeout,
	}, sink)
	if err != nil {
		logger.Fatal("Failed to create remote cache:", err)
	}

	local, err := memory.New[string](clk, cfg.Cache.LocalDefaultTTL, memory.WithEventSink(sink))
	if err != nil {
		logger.Fatal("Failed to create in-process cache:", err)
	}
	loader := services.NewLoader(local, cfg.Cache.LocalDefaultTTL, logger)

	if err := selfCheck(remote, loader, logger); err != nil {
		logger.WithError(err).Warn("Cache self-check failed")
	}

	// Create server configuration
	serverConfig := &httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		TLSCertFile:  cfg.Server.TLSCertFile,
		TLSKeyFile:   cfg.Server.TLSKeyFile,
	}

	server := httpserver.NewServer(serverConfig, logger, httpserver.ServerDeps{
		HealthCheckers: hcSlice,
		Registry:       registry,
		Stats:          local.Stats,
	})

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

// selfCheck writes a value under a run-scoped key, reads it back through the
// in-process loader and removes it.
func selfCheck(remote *services.RemoteCache, loader *services.Loader[string], logger *logrus.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runID := uuid.NewString()
	key := "selfcheck:" + runID

	if err := remote.SetStringWithTTL(ctx, key, runID, time.Minute); err != nil {
		return err
	}
	got, err := loader.Get(ctx, key, func(ctx context.Context) (string, error) {
		v, err := services.GetString[string](ctx, remote, key)
		if err != nil {
			return "", err
		}
		if v.IsAbsent() {
			return "", fmt.Errorf("self-check key %q missing after write", key)
		}
		return v.MustGet(), nil
	})
	if err != nil {
		return err
	}
	if got != runID {
		return fmt.Errorf("self-check read %q, want %q", got, runID)
	}
	if _, err := remote.Delete(ctx, key); err != nil {
		return err
	}

	logger.WithField("run_id", runID).Info("Cache self-check passed")
	return nil
}
