/*
main.go - Application entry point

PURPOSE:

	Initializes and starts the rental billing server. Handles
	configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
 1. Parse command-line flags
 2. Load optional YAML config (pricing policy, schedule)
 3. Initialize SQLite store
 4. Create API handler and router
 5. Start the overdue scanner
 6. Start server with graceful shutdown

COMMAND-LINE FLAGS:

	-port    HTTP server port (default: 8080)
	-db      SQLite database path (default: rentals.db)
	         Use ":memory:" for an in-memory database
	-config  Optional YAML config path

CONFIG FILE:

	pricing:
	  late_fee_per_day: "10.00"
	  free_week_threshold: "40.00"
	  consume_on_full_cover: false
	overdue_scan: "0 6 * * *"

GRACEFUL SHUTDOWN:

	On SIGINT/SIGTERM:
	1. Stop accepting new connections
	2. Wait for active requests to complete (30s timeout)
	3. Stop the scanner, close the database
	4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - pricing/policy.go: Pricing configuration parsing
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

	"gopkg.in/yaml.v3"

	"github.com/1024ZettaBytes/servi-hogar-sub002/api"
	"github.com/1024ZettaBytes/servi-hogar-sub002/billing"
	"github.com/1024ZettaBytes/servi-hogar-sub002/pricing"
	"github.com/1024ZettaBytes/servi-hogar-sub002/store/sqlite"
)

// Config is the optional YAML configuration file.
type Config struct {
	Pricing     pricing.PolicyJSON `yaml:"pricing"`
	OverdueScan string             `yaml:"overdue_scan"`
}

func loadConfig(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "rentals.db", "SQLite database path")
	configPath := flag.String("config", "", "YAML config path")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	policy := billing.DefaultPricingPolicy()
	if *configPath != "" {
		factory := pricing.NewPolicyFactory()
		if policy, _, err = factory.FromJSON(cfg.Pricing); err != nil {
			log.Fatalf("Invalid pricing config: %v", err)
		}
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize handler and router
	handler := api.NewHandler(store, policy)
	router := api.NewRouter(handler)

	// Start the overdue scanner
	scanner := api.NewOverdueScanner(store)
	if cfg.OverdueScan != "" {
		scanner.Schedule = cfg.OverdueScan
	}
	if err := scanner.Start(); err != nil {
		log.Fatalf("Failed to start overdue scanner: %v", err)
	}
	defer scanner.Stop()

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
		log.Printf("Server starting on http://localhost:%d", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
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
