// migrate applies the embedded SQL migrations: go run ./cmd/migrate -direction up|down|version.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/lmittmann/tint"

	"github.com/Badrul886/riverside/internal/config"
	"github.com/Badrul886/riverside/internal/db/migrate"
	"github.com/Badrul886/riverside/internal/logger"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up, down or version")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.ForEnv(cfg.Env, cfg.LogLevel)
	if cfg.DatabaseURL == "" {
		log.Error("DATABASE_URL is not set; create a .env or export DATABASE_URL")
		os.Exit(1)
	}

	if *direction == "version" {
		v, dirty, err := migrate.Version(cfg.DatabaseURL)
		if err != nil {
			log.Error("read migration version", tint.Err(err))
			os.Exit(1)
		}
		log.Info("migration version", "version", v, "dirty", dirty)
		return
	}

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		log.Error("migrate", "direction", *direction, tint.Err(err))
		os.Exit(1)
	}
	log.Info("migrations applied", "direction", *direction)
}
