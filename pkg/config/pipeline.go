package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"
)

// Environments.
const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

var defaultDBPaths = map[string]string{
	EnvDev:     "warehouse_dev.db",
	EnvStaging: "warehouse_staging.db",
	EnvProd:    "warehouse.db",
}

// Pipeline is the effective configuration of one run.
type Pipeline struct {
	Environment            string
	DefaultSessionDuration time.Duration
	MaxOrphanRate          float64
	MaxDurationMinutes     int
	DBDriver               string
	DBPath                 string
	KnownTiers             []string
	TierGroupA             []string
	TierGroupB             []string
	StepTimeout            time.Duration
	Workers                int
	EventsPath             string
	UsersPath              string
	MentorsPath            string
}

// Defaults returns the configuration used when no file is present.
func Defaults(environment string) Pipeline {
	return Pipeline{
		Environment:            environment,
		DefaultSessionDuration: 30 * time.Minute,
		MaxOrphanRate:          0.05,
		MaxDurationMinutes:     240,
		DBDriver:               "sqlite",
		DBPath:                 defaultDBPaths[environment],
		KnownTiers:             []string{"Gold", "Silver", "Bronze"},
		TierGroupA:             []string{"Gold"},
		TierGroupB:             []string{"Silver", "Bronze"},
		StepTimeout:            300 * time.Second,
		Workers:                runtime.GOMAXPROCS(0),
		EventsPath:             "data/booking_events.json",
		UsersPath:              "data/users_db_export.csv",
		MentorsPath:            "data/mentor_tiers.csv",
	}
}

// FromConfig reads a Pipeline out of c, falling back to the defaults of the
// environment named in c (or dev).
func FromConfig(c Config) Pipeline {
	d := Defaults(c.String("environment", EnvDev))
	return Pipeline{
		Environment:            d.Environment,
		DefaultSessionDuration: c.Duration("session.default_duration_minutes", time.Minute, d.DefaultSessionDuration),
		MaxOrphanRate:          c.Float("data_quality.max_orphan_rate", d.MaxOrphanRate),
		MaxDurationMinutes:     c.Int("data_quality.max_duration_minutes", d.MaxDurationMinutes),
		DBDriver:               c.String("database.driver", d.DBDriver),
		DBPath:                 c.String("database.path", d.DBPath),
		KnownTiers:             c.StringSlice("known_tiers", d.KnownTiers),
		TierGroupA:             c.StringSlice("tiers.group_a", d.TierGroupA),
		TierGroupB:             c.StringSlice("tiers.group_b", d.TierGroupB),
		StepTimeout:            c.Duration("guardrails.step_timeout_seconds", time.Second, d.StepTimeout),
		Workers:                c.Int("reconcile.workers", d.Workers),
		EventsPath:             c.String("inputs.events", d.EventsPath),
		UsersPath:              c.String("inputs.users", d.UsersPath),
		MentorsPath:            c.String("inputs.mentors", d.MentorsPath),
	}
}

// Validate reports every problem with p at once.
func (p Pipeline) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if _, ok := defaultDBPaths[p.Environment]; !ok {
		add("environment %q is not one of dev, staging, prod", p.Environment)
	}
	if p.DefaultSessionDuration <= 0 {
		add("session.default_duration_minutes must be positive, got %s", p.DefaultSessionDuration)
	}
	if p.MaxOrphanRate < 0 || p.MaxOrphanRate > 1 {
		add("data_quality.max_orphan_rate must be within [0, 1], got %g", p.MaxOrphanRate)
	}
	if p.MaxDurationMinutes <= 0 {
		add("data_quality.max_duration_minutes must be positive, got %d", p.MaxDurationMinutes)
	}
	switch p.DBDriver {
	case "sqlite", "postgres":
	default:
		add("database.driver %q is not one of sqlite, postgres", p.DBDriver)
	}
	if p.DBPath == "" {
		add("database.path is required")
	}
	if len(p.TierGroupA) == 0 || len(p.TierGroupB) == 0 {
		add("tiers.group_a and tiers.group_b must both be non-empty")
	}
	inA := make(map[string]bool, len(p.TierGroupA))
	for _, t := range p.TierGroupA {
		inA[t] = true
	}
	for _, t := range p.TierGroupB {
		if inA[t] {
			add("tier %q is in both tier groups", t)
		}
	}
	if p.StepTimeout < 0 {
		add("guardrails.step_timeout_seconds must not be negative")
	}
	if p.Workers < 1 {
		add("reconcile.workers must be at least 1, got %d", p.Workers)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// JSON renders the effective configuration for the run log.
func (p Pipeline) JSON() string {
	view := map[string]any{
		"environment":              p.Environment,
		"default_duration_minutes": int(p.DefaultSessionDuration / time.Minute),
		"max_orphan_rate":          p.MaxOrphanRate,
		"max_duration_minutes":     p.MaxDurationMinutes,
		"db_driver":                p.DBDriver,
		"db_path":                  p.DBPath,
		"known_tiers":              p.KnownTiers,
		"tier_group_a":             p.TierGroupA,
		"tier_group_b":             p.TierGroupB,
		"step_timeout_seconds":     int(p.StepTimeout / time.Second),
		"workers":                  p.Workers,
		"events_path":              p.EventsPath,
		"users_path":               p.UsersPath,
		"mentors_path":             p.MentorsPath,
	}
	b, err := json.Marshal(view)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Load builds the effective configuration: the file at path (missing file
// means defaults), then environment overrides. It returns warnings for
// conditions worth logging, such as the missing file.
func Load(path string) (Pipeline, []string, error) {
	var warnings []string

	c := New(nil)
	if path != "" {
		loaded, err := FromFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			warnings = append(warnings, fmt.Sprintf("config file %s not found, using defaults", path))
		case err != nil:
			return Pipeline{}, nil, err
		default:
			c = loaded
		}
	}

	overrides, err := parseEnv()
	if err != nil {
		return Pipeline{}, nil, err
	}
	if overrides.Environment != "" {
		c.data["environment"] = overrides.Environment
	}

	p := FromConfig(c)
	overrides.apply(&p)

	if err := p.Validate(); err != nil {
		return Pipeline{}, nil, err
	}
	return p, warnings, nil
}
