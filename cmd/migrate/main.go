package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/rollout/backend/internal/infrastructure/config"
	"github.com/rollout/backend/internal/infrastructure/logger"
	"github.com/rollout/backend/internal/infrastructure/persistence"
)

// Applies the schema to the configured database and exits. The server does
// the same on boot; this command exists for provisioning pipelines that
// migrate before rolling out a new binary.
func main() {
	var logLevel string
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	if err := persistence.AutoMigrate(db.DB); err != nil {
		log.Fatal("Migration failed", zap.Error(err))
	}

	log.Info("Schema is up to date",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.DBName),
	)
}
