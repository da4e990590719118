package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type envOverrides struct {
	Environment            string `env:"PIPELINE_ENV"`
	DBDriver               string `env:"PIPELINE_DB_DRIVER"`
	DBPath                 string `env:"PIPELINE_DB_PATH"`
	DefaultDurationMinutes int    `env:"PIPELINE_DEFAULT_DURATION_MINUTES"`
	Workers                int    `env:"PIPELINE_WORKERS"`
}

func parseEnv() (envOverrides, error) {
	var raw envOverrides
	if err := env.Parse(&raw); err != nil {
		return envOverrides{}, fmt.Errorf("environment variables are invalid: %w", err)
	}
	return raw, nil
}

// apply overrides p with every variable that was set.
func (o envOverrides) apply(p *Pipeline) {
	if o.DBDriver != "" {
		p.DBDriver = o.DBDriver
	}
	if o.DBPath != "" {
		p.DBPath = o.DBPath
	}
	if o.DefaultDurationMinutes != 0 {
		p.DefaultSessionDuration = time.Duration(o.DefaultDurationMinutes) * time.Minute
	}
	if o.Workers != 0 {
		p.Workers = o.Workers
	}
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables already set. Missing files are
// ignored.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}
