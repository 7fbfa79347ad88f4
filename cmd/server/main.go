/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the payroll engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load environment configuration and parse flags
  2. Initialize SQLite store
  3. Wire ledger, calculator, and access gate
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT env)
  -db      SQLite database path (overrides DB_PATH env)
           Use ":memory:" for an in-memory database
  -seed    Load a demo roster and rule set on startup

ENVIRONMENT (see config/config.go):
  PORT, DB_PATH, JWT_SECRET, ENTRY_MERGE_POLICY, ENTRY_GRACE_DAYS

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, wait up to 30s for
  in-flight requests, close the database, exit.

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/payroll-engine/access"
	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

func main() {
	cfg := config.Load()

	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	seed := flag.Bool("seed", false, "load demo roster and rule set")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	ledger := payroll.NewWorkLedger(store, store, store, payroll.LedgerConfig{
		MergePolicy: cfg.MergePolicy,
		GraceDays:   cfg.GraceDays,
	})
	calculator := payroll.NewCalculator(store, ledger, payroll.NewRateResolver(store))
	gate := access.NewGate(ledger, calculator, store, store, store)

	if *seed {
		if err := seedDemo(context.Background(), gate, logger); err != nil {
			logger.Fatal("failed to seed demo data", zap.Error(err))
		}
	}

	handler := api.NewHandler(gate, logger)
	router := api.NewRouter(handler, logger, []byte(cfg.JWTSecret))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.Int("port", *port),
			zap.String("db", *dbPath),
			zap.String("merge_policy", string(cfg.MergePolicy)),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
