package ingest

import (
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/diegopettorossi/pack-data-challenge/pkg/observability"
)

// Loader parses input files. It is safe for concurrent use.
type Loader struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewLoader creates a loader. A nil logger disables warning logs.
func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{validate: newValidator(), logger: logger}
}

func (l *Loader) warn(source, message string) {
	observability.LogDataWarning(l.logger, source, message)
}
