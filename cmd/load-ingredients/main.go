// Command load-ingredients seeds the ingredient catalogue from a
// "name,measurement_unit" CSV file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Ivan-Edokov/kitchen-assistant/internal/catalog"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/config"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/db"
	"github.com/Ivan-Edokov/kitchen-assistant/internal/logging"
)

func main() {
	path := flag.String("file", getEnv("INGREDIENTS_FILE", "data/ingredients.csv"), "path to the ingredients CSV")
	timeout := flag.Duration("timeout", 5*time.Minute, "import timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}, "load-ingredients")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if cfg.Database.RunMigrations {
		if err := db.RunMigrations(cfg.Database.DSN, logger); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
	}

	f, err := os.Open(*path)
	if err != nil {
		logger.Fatal().Err(err).Str("file", *path).Msg("open ingredients file")
	}
	defer f.Close()

	conn, err := db.Open(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect db")
	}
	defer conn.Close()

	inserted, err := catalog.ImportIngredients(ctx, conn, f)
	if err != nil {
		logger.Fatal().Err(err).Str("file", *path).Msg("import ingredients")
	}
	logger.Info().Int64("inserted", inserted).Str("file", *path).Msg("ingredients loaded")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
