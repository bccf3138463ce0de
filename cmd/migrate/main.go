// migrate applies or rolls back the embedded schema migrations.
//
// Usage:
//
//	go run ./cmd/migrate           # apply all pending migrations
//	go run ./cmd/migrate down 1    # roll back one migration
//	go run ./cmd/migrate version   # print the current version
package main

import (
	"errors"
	"log"
	"os"
	"strconv"

	"hotel-inventory/internal/config"
	"hotel-inventory/internal/db"

	"github.com/golang-migrate/migrate/v4"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[CONFIG] %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("[CONFIG] DATABASE_URL is not set")
	}

	m, err := db.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[CONNECT] %v", err)
	}
	defer m.Close()

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("[UP] %v", err)
		}
	case "down":
		steps := 1
		if len(os.Args) > 2 {
			if steps, err = strconv.Atoi(os.Args[2]); err != nil || steps <= 0 {
				log.Fatalf("[DOWN] steps must be a positive integer, got %q", os.Args[2])
			}
		}
		if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("[DOWN] %v", err)
		}
	case "version":
	default:
		log.Fatalf("Unknown command: %s\nAvailable: up, down [n], version", cmd)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		log.Println("[DONE] no migrations applied")
	case err != nil:
		log.Fatalf("[VERSION] %v", err)
	case dirty:
		log.Fatalf("[VERSION] %d (dirty: fix the failed migration and force the version)", version)
	default:
		log.Printf("[DONE] schema at version %d", version)
	}
}
