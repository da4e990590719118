package benchmarks

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/diegopettorossi/pack-data-challenge/pkg/reconcile"
)

func benchmarkReconcile(b *testing.B, partitions, workers int) {
	events := generateEvents(partitions)
	r, err := reconcile.New(30*time.Minute, reconcile.WithWorkers(workers))
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.Reconcile(ctx, events); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkReconcile_100 reconciles 100 partitions on one worker.
func BenchmarkReconcile_100(b *testing.B) { benchmarkReconcile(b, 100, 1) }

// BenchmarkReconcile_1000 reconciles 1000 partitions on one worker.
func BenchmarkReconcile_1000(b *testing.B) { benchmarkReconcile(b, 1000, 1) }

// BenchmarkReconcile_1000_Parallel reconciles 1000 partitions on eight workers.
func BenchmarkReconcile_1000_Parallel(b *testing.B) { benchmarkReconcile(b, 1000, 8) }

// BenchmarkMatch pairs a long run of openers and closers in one partition.
func BenchmarkMatch(b *testing.B) {
	var openers, closers []reconcile.Event
	for i := 0; i < 1000; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		openers = append(openers, reconcile.Event{ID: fmt.Sprintf("o%04d", i), UserID: "1", MentorID: "M01",
			Type: reconcile.SessionStarted, Timestamp: at})
		if i%3 != 0 {
			closers = append(closers, reconcile.Event{ID: fmt.Sprintf("c%04d", i), UserID: "1", MentorID: "M01",
				Type: reconcile.SessionEnded, Timestamp: at.Add(30 * time.Minute)})
		}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = reconcile.Match(openers, closers)
	}
}

// BenchmarkPartitionEvents groups a shuffled log by pair key.
func BenchmarkPartitionEvents(b *testing.B) {
	events := generateEvents(1000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = reconcile.PartitionEvents(events)
	}
}
