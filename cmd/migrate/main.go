package main

import (
	"errors"
	"os"

	"roundjudge/internal/platform/config"
	"roundjudge/internal/platform/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	log := logger.NewNamedLogger("migrate")
	defer logger.Sync()

	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate [up|down]")
	}
	config.Load()

	m, err := migrate.New(config.AppConfig.MigrationsPath, config.AppConfig.DBURL)
	if err != nil {
		log.Fatalf("Cannot create migrate instance: %v", err)
	}
	defer m.Close()

	command := os.Args[1]
	log.Infof("Running migration command: %s", command)

	switch command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	default:
		log.Fatalf("Unknown command: %s", command)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Info("Migration finished successfully")
}
