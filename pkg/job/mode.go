package job

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects which steps a run executes.
type Mode string

// Run modes.
const (
	// ModeFull ingests the input files, rebuilds facts and the mentor
	// dimension, then runs the quality checks.
	ModeFull Mode = "full"
	// ModeIngestOnly validates the inputs and appends them to the raw tables.
	ModeIngestOnly Mode = "ingest-only"
	// ModeTransformOnly rebuilds facts and the dimension from the raw tables.
	ModeTransformOnly Mode = "transform-only"
	// ModeQualityOnly re-runs the quality checks over stored facts.
	ModeQualityOnly Mode = "quality-only"
)

// Modes lists every run mode.
var Modes = []Mode{ModeFull, ModeIngestOnly, ModeTransformOnly, ModeQualityOnly}

// ErrUnknownMode indicates an unsupported run mode.
var ErrUnknownMode = errors.New("unknown run mode")

// ParseMode parses a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}
