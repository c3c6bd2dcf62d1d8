// Command gateway runs the HTTP/websocket host for the flow execution
// engine and scenario execution service: a thin listener exposing the push
// protocol (/ws) and a health probe, wired against a Postgres repository and
// (by default) the deterministic fake scenario runner. HTTP CRUD over
// scenarios, sessions, and flows is a collaborator this binary does not
// implement; it only hosts the execution surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/scenarioflow/control-plane/infrastructure/middleware"
	"github.com/scenarioflow/control-plane/internal/driver"
	"github.com/scenarioflow/control-plane/internal/metrics"
	"github.com/scenarioflow/control-plane/internal/ratelimit"
	"github.com/scenarioflow/control-plane/internal/scenarioexec"
	"github.com/scenarioflow/control-plane/internal/storage"
	"github.com/scenarioflow/control-plane/internal/ws"
	"github.com/scenarioflow/control-plane/pkg/config"
	"github.com/scenarioflow/control-plane/pkg/logging"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (JSON or YAML)")
	dsnFlag := flag.String("dsn", "", "PostgreSQL DSN (overrides config/env)")
	addrFlag := flag.String("addr", "", "HTTP listen address (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.New("scenarioflow-gateway", cfg.Logging.Level, cfg.Logging.Format)
	m := metrics.New("scenarioflow-gateway")

	dsn := resolveDSN(*dsnFlag, cfg)
	if dsn == "" {
		log.Fatal("no database DSN configured (set -dsn, DATABASE_URL, or database.dsn in config)")
	}

	rootCtx := context.Background()
	pg, err := storage.Open(rootCtx, dsn)
	if err != nil {
		log.Fatalf("connect to postgres: %v", err)
	}
	defer pg.Close()

	driverFactory := driver.Factory(func(opts driver.Options) driver.ScenarioRunner {
		return driver.NewFake(opts)
	})

	execSvc := scenarioexec.New(pg.Scenarios(), driverFactory, logger, m)

	// The flow engine itself is driven by whatever triggers a UserFlow run
	// (a scheduler, an HTTP collaborator, a CLI); this gateway only hosts the
	// scenario execution push protocol, so engine.New is not called here.

	limiterCfg := ratelimit.Config{
		RequestsPerSecond: cfg.Engine.SubscribeRequestsPerSecond,
		Burst:             cfg.Engine.SubscribeBurst,
	}
	hub := ws.NewHub(execSvc, logger, limiterCfg)

	health := middleware.NewHealthChecker("scenarioflow-gateway")
	health.RegisterCheck("postgres", func() error {
		ctx, cancel := context.WithTimeout(rootCtx, 2*time.Second)
		defer cancel()
		return pg.Ping(ctx)
	})

	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.MetricsMiddleware("scenarioflow-gateway", m))
	router.Use(middleware.NewRecoveryMiddleware(logger).Handler)

	router.Handle("/healthz", health.Handler())
	router.Handle("/livez", middleware.LivenessHandler())
	router.HandleFunc("/ws", hub.ServeHTTP)

	addr := resolveAddr(*addrFlag, cfg)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // websocket connections are long-lived
		IdleTimeout:  60 * time.Second,
	}

	shutdown := middleware.NewGracefulShutdown(server, 10*time.Second)
	shutdown.ListenForSignals()

	logger.WithContext(rootCtx).Infof("scenarioflow gateway listening on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("serve: %v", err)
	}
	shutdown.Wait()
}

func loadConfig(path string) (*config.Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return config.Load()
	}
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		return config.LoadConfig(path)
	}
	return config.LoadFile(path)
}

func resolveDSN(flagDSN string, cfg *config.Config) string {
	if trimmed := strings.TrimSpace(flagDSN); trimmed != "" {
		return trimmed
	}
	if cfg == nil {
		return ""
	}
	if cfg.Database.DSN != "" {
		return cfg.Database.DSN
	}
	if cfg.Database.Host != "" && cfg.Database.Name != "" {
		return cfg.Database.ConnectionString()
	}
	return ""
}

func resolveAddr(flagAddr string, cfg *config.Config) string {
	if trimmed := strings.TrimSpace(flagAddr); trimmed != "" {
		return trimmed
	}
	if cfg != nil && cfg.Server.Port != 0 {
		host := cfg.Server.Host
		if host == "" {
			host = "0.0.0.0"
		}
		return fmt.Sprintf("%s:%d", host, cfg.Server.Port)
	}
	return ":8080"
}
