// Package config loads host settings from the environment and entity
// definitions from a TOML file, and watches that file for changes.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Host holds process level settings.
type Host struct {
	ListenAddr      string        `env:"MONGOPLUG_LISTEN_ADDR" envDefault:":8080"`
	EntitiesFile    string        `env:"MONGOPLUG_ENTITIES_FILE" envDefault:"entities.toml"`
	WatchEntities   bool          `env:"MONGOPLUG_WATCH_ENTITIES" envDefault:"true"`
	LogFile         string        `env:"MONGOPLUG_LOG_FILE"`
	Debug           bool          `env:"MONGOPLUG_DEBUG" envDefault:"false"`
	ShutdownTimeout time.Duration `env:"MONGOPLUG_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// LoadHost reads optional dotenv files, then parses the environment.
// Missing dotenv files are ignored; with no files given ".env" is tried.
func LoadHost(envFiles ...string) (Host, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Host{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	var h Host
	if err := env.Parse(&h); err != nil {
		return Host{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return h, nil
}
