package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// clearEnv unsets every override for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PIPELINE_ENV", "PIPELINE_DB_DRIVER", "PIPELINE_DB_PATH",
		"PIPELINE_DEFAULT_DURATION_MINUTES", "PIPELINE_WORKERS",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestDefaults(t *testing.T) {
	d := Defaults(EnvDev)
	assert.Equal(t, 30*time.Minute, d.DefaultSessionDuration)
	assert.Equal(t, 0.05, d.MaxOrphanRate)
	assert.Equal(t, 240, d.MaxDurationMinutes)
	assert.Equal(t, "sqlite", d.DBDriver)
	assert.Equal(t, "warehouse_dev.db", d.DBPath)
	assert.Equal(t, []string{"Gold"}, d.TierGroupA)
	assert.Equal(t, []string{"Silver", "Bronze"}, d.TierGroupB)
	assert.Equal(t, 300*time.Second, d.StepTimeout)
	assert.Equal(t, runtime.GOMAXPROCS(0), d.Workers)
	require.NoError(t, d.Validate())

	assert.Equal(t, "warehouse.db", Defaults(EnvProd).DBPath)
	assert.Equal(t, "warehouse_staging.db", Defaults(EnvStaging).DBPath)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	p, warnings, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(EnvDev), p)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "not found")
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
environment: prod
session:
  default_duration_minutes: 45
data_quality:
  max_orphan_rate: 0.1
  max_duration_minutes: 120
tiers:
  group_a: [Gold, Platinum]
  group_b: [Silver]
guardrails:
  step_timeout_seconds: 60
reconcile:
  workers: 3
known_tiers: [Gold, Silver, Platinum]
inputs:
  events: in/events.json
  users: in/users.csv
`)

	p, warnings, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, EnvProd, p.Environment)
	assert.Equal(t, "warehouse.db", p.DBPath, "path follows the environment")
	assert.Equal(t, 45*time.Minute, p.DefaultSessionDuration)
	assert.Equal(t, 0.1, p.MaxOrphanRate)
	assert.Equal(t, 120, p.MaxDurationMinutes)
	assert.Equal(t, []string{"Gold", "Platinum"}, p.TierGroupA)
	assert.Equal(t, time.Minute, p.StepTimeout)
	assert.Equal(t, 3, p.Workers)
	assert.Equal(t, "in/events.json", p.EventsPath)
	assert.Equal(t, "in/users.csv", p.UsersPath)
	assert.Equal(t, "data/mentor_tiers.csv", p.MentorsPath)
	assert.Equal(t, []string{"Gold", "Silver", "Platinum"}, p.KnownTiers)
}

func TestLoad_JSONFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.json", `{"session": {"default_duration_minutes": 50}}`)

	p, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50*time.Minute, p.DefaultSessionDuration)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
environment: dev
database:
  path: from-file.db
session:
  default_duration_minutes: 45
`)
	t.Setenv("PIPELINE_ENV", "staging")
	t.Setenv("PIPELINE_DB_PATH", "from-env.db")
	t.Setenv("PIPELINE_DEFAULT_DURATION_MINUTES", "20")
	t.Setenv("PIPELINE_WORKERS", "2")

	p, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, EnvStaging, p.Environment)
	assert.Equal(t, "from-env.db", p.DBPath)
	assert.Equal(t, 20*time.Minute, p.DefaultSessionDuration)
	assert.Equal(t, 2, p.Workers)
}

func TestLoad_EnvSelectsEnvironmentDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("PIPELINE_ENV", "prod")

	p, _, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warehouse.db", p.DBPath)
}

func TestLoad_InvalidEnvValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("PIPELINE_WORKERS", "many")

	_, _, err := Load("")
	assert.Error(t, err)
}

func TestLoad_InvalidFile(t *testing.T) {
	clearEnv(t)

	_, _, err := Load(writeFile(t, "config.yaml", "session: [unclosed"))
	assert.Error(t, err)

	_, _, err = Load(writeFile(t, "config.toml", "a = 1"))
	assert.ErrorContains(t, err, "unsupported extension")
}

func TestPipeline_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Pipeline)
		want   string
	}{
		{"zero duration", func(p *Pipeline) { p.DefaultSessionDuration = 0 }, "default_duration_minutes"},
		{"orphan rate above one", func(p *Pipeline) { p.MaxOrphanRate = 1.5 }, "max_orphan_rate"},
		{"negative orphan rate", func(p *Pipeline) { p.MaxOrphanRate = -0.1 }, "max_orphan_rate"},
		{"unknown driver", func(p *Pipeline) { p.DBDriver = "mysql" }, "database.driver"},
		{"unknown environment", func(p *Pipeline) { p.Environment = "qa" }, "environment"},
		{"empty group", func(p *Pipeline) { p.TierGroupB = nil }, "non-empty"},
		{"overlapping groups", func(p *Pipeline) { p.TierGroupB = []string{"Gold"} }, "both tier groups"},
		{"no workers", func(p *Pipeline) { p.Workers = 0 }, "workers"},
		{"non-positive max duration", func(p *Pipeline) { p.MaxDurationMinutes = 0 }, "max_duration_minutes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Defaults(EnvDev)
			tt.mutate(&p)
			err := p.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestPipeline_ValidateReportsAllProblems(t *testing.T) {
	p := Defaults(EnvDev)
	p.DefaultSessionDuration = 0
	p.DBDriver = "mysql"

	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default_duration_minutes")
	assert.Contains(t, err.Error(), "database.driver")
}

func TestPipeline_JSON(t *testing.T) {
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(Defaults(EnvDev).JSON()), &got))
	assert.Equal(t, "dev", got["environment"])
	assert.Equal(t, float64(30), got["default_duration_minutes"])
	assert.Equal(t, float64(300), got["step_timeout_seconds"])
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, ".env", "PIPELINE_DB_DRIVER=postgres\n")

	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"), path))
	t.Cleanup(func() { os.Unsetenv("PIPELINE_DB_DRIVER") })

	assert.Equal(t, "postgres", os.Getenv("PIPELINE_DB_DRIVER"))
}
