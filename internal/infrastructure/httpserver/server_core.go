package httpserver

import (
	"time"

	"github.com/avatarctic/timecache/internal/core/ports"
	customMiddleware "github.com/avatarctic/timecache/internal/infrastructure/httpserver/middleware"
	"github.com/avatarctic/timecache/internal/infrastructure/memory"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TLSCertFile  string
	TLSKeyFile   string
}

type ServerDeps struct {
	HealthCheckers []ports.HealthChecker
	// Registry backs /metrics and the HTTP collectors. A fresh one is used when nil.
	Registry *prometheus.Registry
	// Stats reports the in-process cache counters on /stats. Optional.
	Stats func() memory.Snapshot
}

type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	registry       *prometheus.Registry
	stats          func() memory.Snapshot
	middleware     *customMiddleware.MiddlewareCollection
	healthCheckers []ports.HealthChecker
}

func NewServer(serverConfig *ServerConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true

	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	requestsTotal, requestDuration := newHTTPMetrics(reg)

	server := &Server{
		echo:           e,
		config:         serverConfig,
		logger:         logger,
		registry:       reg,
		stats:          deps.Stats,
		healthCheckers: deps.HealthCheckers,
		middleware:     customMiddleware.NewMiddlewareCollection(logger, requestsTotal, requestDuration),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
