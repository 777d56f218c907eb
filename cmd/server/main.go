/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the shiftledger server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (optional) and parse command-line flags
  2. Configure logging
  3. Initialize SQLite store and resolve the business region
  4. Wire shift lifecycle and payroll services into the API handler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: shiftledger.db)
           Use ":memory:" for in-memory database

ENVIRONMENT:
  BUSINESS_TZ   IANA zone all business dates are anchored to
                (default: America/Chicago)
  LOG_LEVEL     logrus level name (default: info)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/shiftledger.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
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

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/storeops/shiftledger/api"
	"github.com/storeops/shiftledger/engine"
	"github.com/storeops/shiftledger/payroll"
	"github.com/storeops/shiftledger/shifts"
	"github.com/storeops/shiftledger/store/sqlite"
)

const defaultBusinessTZ = "America/Chicago"

func main() {
	// .env is optional; flags and real env still win.
	godotenv.Load()

	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "shiftledger.db", "SQLite database path")
	flag.Parse()

	// Logging
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(envOr("LOG_LEVEL", "info")); err == nil {
		log.SetLevel(lvl)
	}
	engine.SetLogger(log)

	// Business region
	tz := envOr("BUSINESS_TZ", defaultBusinessTZ)
	region, err := engine.NewRegion(tz)
	if err != nil {
		log.WithError(err).Fatalf("Invalid BUSINESS_TZ %q", tz)
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer store.Close()

	// Store buckets come from stored labels, refreshed per process start.
	bucket, err := store.BucketFunc(context.Background())
	if err != nil {
		log.WithError(err).Fatal("Failed to load store buckets")
	}

	// Services
	shiftSvc := shifts.NewService(store, log)
	payrollSvc := payroll.NewService(store, region, bucket, log)

	// Handler and router
	handler := api.NewHandler(store, shiftSvc, payrollSvc, region, log)
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.WithFields(logrus.Fields{"port": *port, "business_tz": tz}).
			Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}

	log.Info("Server stopped")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
