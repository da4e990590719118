package job

import (
	"time"

	"github.com/diegopettorossi/pack-data-challenge/pkg/dimension"
	"github.com/diegopettorossi/pack-data-challenge/pkg/facts"
	"github.com/diegopettorossi/pack-data-challenge/pkg/quality"
	"github.com/diegopettorossi/pack-data-challenge/pkg/reconcile"
)

// State flows through the steps of one run.
type State struct {
	Mode       Mode
	DetectedAt time.Time

	Events    []reconcile.Event
	Mentors   []dimension.Snapshot
	NewEvents int
	NewUsers  int
	Warnings  []string

	Result    reconcile.Result
	Merged    []facts.MergeStats
	Dimension dimension.TrackStats

	Quality *quality.Report
}

func (s State) factCounts() (inserted, skipped int) {
	for _, m := range s.Merged {
		inserted += m.Inserted
		skipped += m.Skipped
	}
	return inserted, skipped
}
