package job

import (
	"fmt"
	"log/slog"

	"github.com/diegopettorossi/pack-data-challenge/pkg/observability"
	"github.com/diegopettorossi/pack-data-challenge/pkg/pipeline"
	"github.com/diegopettorossi/pack-data-challenge/pkg/quality"
	"go.opentelemetry.io/otel/attribute"
)

// Step IDs.
const (
	StepPlan         = "plan"
	StepIngest       = "ingest"
	StepLoadRaw      = "load_raw"
	StepReconcile    = "reconcile"
	StepMergeFacts   = "merge_facts"
	StepTrackMentors = "track_mentors"
	StepQuality      = "quality"
)

// buildGraph wires the steps. plan routes by mode:
//
//	full            ingest → load_raw → reconcile → merge_facts → track_mentors → quality
//	ingest-only     ingest
//	transform-only  load_raw → reconcile → merge_facts → track_mentors
//	quality-only    quality
//
// reconcile always reads the whole raw_events table, never just the file
// ingested in this run: the next-opener bound needs every stored event of a
// pair.
func (j *Job) buildGraph() *pipeline.Graph[State] {
	return pipeline.New[State]().
		AddStep(StepPlan, j.plan).
		AddStep(StepIngest, j.ingest).
		AddStep(StepLoadRaw, j.loadRaw).
		AddStep(StepReconcile, j.reconcile).
		AddStep(StepMergeFacts, j.mergeFacts).
		AddStep(StepTrackMentors, j.trackMentors).
		AddStep(StepQuality, j.quality).
		AddConditionalEdge(StepPlan, routeFromPlan).
		AddConditionalEdge(StepIngest, routeAfterIngest).
		AddEdge(StepLoadRaw, StepReconcile).
		AddEdge(StepReconcile, StepMergeFacts).
		AddEdge(StepMergeFacts, StepTrackMentors).
		AddConditionalEdge(StepTrackMentors, routeAfterTransform).
		AddEdge(StepQuality, pipeline.Done).
		SetEntry(StepPlan)
}

func routeFromPlan(_ pipeline.Context, s State) string {
	switch s.Mode {
	case ModeTransformOnly:
		return StepLoadRaw
	case ModeQualityOnly:
		return StepQuality
	default:
		return StepIngest
	}
}

func routeAfterIngest(_ pipeline.Context, s State) string {
	if s.Mode == ModeIngestOnly {
		return pipeline.Done
	}
	return StepLoadRaw
}

func routeAfterTransform(_ pipeline.Context, s State) string {
	if s.Mode == ModeTransformOnly {
		return pipeline.Done
	}
	return StepQuality
}

func (j *Job) plan(ctx pipeline.Context, s State) (State, error) {
	ctx.Logger().Info("run planned",
		slog.String("mode", string(s.Mode)),
		slog.String("environment", j.deps.Config.Environment),
		slog.String("db_driver", j.deps.Config.DBDriver),
	)
	return s, nil
}

func (j *Job) ingest(ctx pipeline.Context, s State) (State, error) {
	users, err := j.deps.Loader.LoadUsers(j.deps.Config.UsersPath)
	if err != nil {
		return s, err
	}
	batch, err := j.deps.Loader.LoadEvents(j.deps.Config.EventsPath)
	if err != nil {
		return s, err
	}
	mentors, err := j.deps.Loader.LoadMentors(j.deps.Config.MentorsPath)
	if err != nil {
		return s, err
	}

	newUsers, err := j.deps.Raw.AppendUsers(ctx, users.Users)
	if err != nil {
		return s, err
	}
	added, err := j.deps.Raw.AppendEvents(ctx, batch.Events)
	if err != nil {
		return s, err
	}
	if err := j.deps.Raw.ReplaceMentors(ctx, mentors); err != nil {
		return s, err
	}

	s.Mentors = mentors
	s.NewEvents = added
	s.NewUsers = newUsers
	s.Warnings = append(s.Warnings, users.Warnings()...)
	s.Warnings = append(s.Warnings, batch.Warnings()...)

	ctx.Logger().Info("inputs ingested",
		slog.Int("users", len(users.Users)),
		slog.Int("new_users", newUsers),
		slog.Int("events", len(batch.Events)),
		slog.Int("new_events", added),
		slog.Int("mentors", len(mentors)),
	)
	return s, nil
}

func (j *Job) loadRaw(ctx pipeline.Context, s State) (State, error) {
	events, err := j.deps.Raw.Events(ctx)
	if err != nil {
		return s, err
	}
	mentors, err := j.deps.Raw.Mentors(ctx)
	if err != nil {
		return s, err
	}
	s.Events = events
	s.Mentors = mentors

	ctx.Logger().Info("raw tables loaded",
		slog.Int("events", len(events)),
		slog.Int("mentors", len(mentors)),
	)
	return s, nil
}

func (j *Job) reconcile(ctx pipeline.Context, s State) (State, error) {
	res, err := j.deps.Reconciler.Reconcile(ctx, s.Events)
	if err != nil {
		return s, err
	}
	s.Result = res
	j.deps.Metrics.RecordReconcile(ctx, res.Stats.Sessions, res.Stats.EstimatedDurations,
		res.Stats.Bookings, res.Stats.Orphans)
	observability.AddSpanEvent(ctx, "reconciled",
		attribute.Int("partitions", res.Stats.Partitions),
		attribute.Int("sessions", res.Stats.Sessions),
		attribute.Int("bookings", res.Stats.Bookings),
		attribute.Int("orphans", res.Stats.Orphans),
	)
	return s, nil
}

func (j *Job) mergeFacts(ctx pipeline.Context, s State) (State, error) {
	merged, err := j.deps.Deriver.Merge(ctx, s.Result)
	s.Merged = merged
	for _, m := range merged {
		if m.Collisions > 0 {
			s.Warnings = append(s.Warnings, fmt.Sprintf(
				"%d %s record(s) share a pair and opening timestamp with an earlier record and were not stored",
				m.Collisions, m.Kind))
		}
		observability.AddSpanEvent(ctx, "facts.merged",
			attribute.String("kind", string(m.Kind)),
			attribute.Int("inserted", m.Inserted),
			attribute.Int("skipped", m.Skipped),
		)
	}
	return s, err
}

func (j *Job) trackMentors(ctx pipeline.Context, s State) (State, error) {
	stats, err := j.deps.Tracker.Apply(ctx, s.Mentors, s.DetectedAt)
	s.Dimension = stats
	return s, err
}

func (j *Job) quality(ctx pipeline.Context, s State) (State, error) {
	sessions, err := j.deps.Facts.Sessions(ctx)
	if err != nil {
		return s, fmt.Errorf("read session facts: %w", err)
	}
	bookings, err := j.deps.Facts.Bookings(ctx)
	if err != nil {
		return s, fmt.Errorf("read booking facts: %w", err)
	}
	tiers, err := j.deps.Tracker.CurrentTiers(ctx)
	if err != nil {
		return s, err
	}

	report := j.deps.Checker.Run(ctx, quality.Input{
		Sessions:     sessions,
		Bookings:     bookings,
		CurrentTiers: tiers,
	})
	s.Quality = &report
	s.Warnings = append(s.Warnings, report.Warnings()...)
	return s, report.Err()
}
