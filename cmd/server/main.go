/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the policy engine server: SQLite store, HTTP
  handlers, the expiration sweeper, and graceful shutdown.

COMMAND-LINE FLAGS:
  -port            HTTP server port (default: 8080)
  -db              SQLite database path (default: policies.db)
                   Use ":memory:" for an in-memory database
  -sweep-interval  Expiration sweep cadence (default: 24h)
  -no-sweep        Disable the background expiration sweep

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the sweeper
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close the database connection

SEE ALSO:
  - api/server.go: Router configuration
  - api/sweeper.go: Expiration sweep
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aegis/policy-engine/api"
	"github.com/aegis/policy-engine/store/sqlite"
)

func main() {
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "policies.db", "SQLite database path")
	sweepInterval := flag.Duration("sweep-interval", 24*time.Hour, "expiration sweep cadence")
	noSweep := flag.Bool("no-sweep", false, "disable the background expiration sweep")
	flag.Parse()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	handler := api.NewHandler(store)

	sweeper := api.NewExpirationSweeper(store)
	sweeper.CheckInterval = *sweepInterval
	sweeper.Enabled = !*noSweep
	handler.Sweeper = sweeper
	sweeper.Start()
	defer sweeper.Stop()

	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Policy engine listening on http://localhost:%d", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
