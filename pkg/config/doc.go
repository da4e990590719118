/*
Package config loads the pipeline configuration.

A YAML or JSON file provides nested settings, read through Config's typed
accessors with dotted keys:

	cfg, err := config.FromFile("config.yaml")
	minutes := cfg.Int("session.default_duration_minutes", 30)

Load combines the file with defaults and environment overrides into a
validated Pipeline. Precedence, lowest first: built-in defaults for the
environment, the file, then PIPELINE_* variables (optionally seeded from a
.env file by LoadDotEnv).

	PIPELINE_ENV                        dev | staging | prod
	PIPELINE_DB_DRIVER                  sqlite | postgres
	PIPELINE_DB_PATH                    file path or connection URL
	PIPELINE_DEFAULT_DURATION_MINUTES   estimated session length
	PIPELINE_WORKERS                    concurrent partitions

A missing file is not an error: Load returns defaults and a warning.
Config values are read-only after creation and safe for concurrent reads.
*/
package config
