/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the vacation balance server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, flags)
  2. Build the logger
  3. Initialize the store (SQLite or memory)
  4. Connect the AMQP publisher when AMQP_URL is set
  5. Start the year-opening scheduler
  6. Configure HTTP router and serve

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for in-memory database

ENVIRONMENT:
  PORT, DB_PATH, STORE_BACKEND, LOG_LEVEL, LOG_FORMAT, CORS_ORIGINS,
  AMQP_URL, AMQP_EXCHANGE, YEAR_OPEN_ENABLED, YEAR_OPEN_INTERVAL
  See config/config.go for defaults.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close AMQP and database connections

EXAMPLES:
  # Run with file database
  ./server -db="./data/vacation.db"

  # Run with in-memory store and JSON logs
  STORE_BACKEND=memory LOG_FORMAT=json ./server

SEE ALSO:
  - api/server.go: Router configuration
  - vacation/engine.go: Balance operations
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/vacation-engine/api"
	"github.com/warp/vacation-engine/config"
	"github.com/warp/vacation-engine/events/amqp"
	"github.com/warp/vacation-engine/logging"
	"github.com/warp/vacation-engine/store/sqlite"
	"github.com/warp/vacation-engine/vacation"
	"github.com/warp/vacation-engine/vacation/store"
)

func main() {
	if err := run(); err != nil {
		logrus.WithError(err).Fatal("server failed")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Flags
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()
	cfg.Port = *port
	cfg.DBPath = *dbPath

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	log := logger.WithField(logging.FieldComponent, logging.ComponentApp)

	// Initialize store
	buckets, employees, closer, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer closer.Close()

	engine := vacation.NewEngine(buckets, employees, logger)

	if cfg.AMQPURL != "" {
		publisher, err := amqp.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			return fmt.Errorf("connect AMQP: %w", err)
		}
		defer publisher.Close()
		engine.Publisher = publisher
		log.WithField("exchange", cfg.AMQPExchange).Info("publishing consumption events")
	}

	scheduler := vacation.NewYearOpeningScheduler(engine)
	scheduler.CheckInterval = cfg.YearOpenInterval
	scheduler.Enabled = cfg.YearOpenEnabled
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(engine, logger)
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.CORSOrigins,
		Log:            logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Infof("server starting on http://localhost:%d/api", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("listen: %w", err)
	}

	log.Info("shutting down server")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

// openStore returns the configured backend. Both backends serve buckets and
// employees from the same object.
func openStore(cfg *config.Config, logger *logrus.Logger) (vacation.TxStore, vacation.EmployeeStore, io.Closer, error) {
	log := logger.WithField(logging.FieldComponent, logging.ComponentStorage)

	switch cfg.StoreBackend {
	case config.BackendMemory:
		log.Warn("using in-memory store; data is lost on exit")
		mem := store.NewMemory()
		return mem, mem, closerFunc(func() error { return nil }), nil
	default:
		db, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, nil, nil, err
		}
		log.WithField("path", cfg.DBPath).Info("sqlite store ready")
		return db, db, db, nil
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
