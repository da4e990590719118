package benchmarks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/diegopettorossi/pack-data-challenge/pkg/pipeline"
)

type counter struct {
	N int
}

func incr(_ pipeline.Context, s counter) (counter, error) {
	s.N++
	return s, nil
}

func buildLinear(n int) *pipeline.Graph[counter] {
	g := pipeline.New[counter]()
	for i := 0; i < n; i++ {
		g.AddStep(fmt.Sprintf("step%d", i), incr)
	}
	for i := 0; i < n-1; i++ {
		g.AddEdge(fmt.Sprintf("step%d", i), fmt.Sprintf("step%d", i+1))
	}
	g.AddEdge(fmt.Sprintf("step%d", n-1), pipeline.Done)
	g.SetEntry("step0")
	return g
}

func mustCompile(b *testing.B, g *pipeline.Graph[counter]) *pipeline.Compiled[counter] {
	b.Helper()
	c, err := g.Compile()
	if err != nil {
		b.Fatal(err)
	}
	return c
}

func quietContext() pipeline.Context {
	return pipeline.NewContext(context.Background(),
		pipeline.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		pipeline.WithContextRunID("bench"),
	)
}

// BenchmarkCompile_Linear_7 compiles a graph the size of a full run.
func BenchmarkCompile_Linear_7(b *testing.B) {
	g := buildLinear(7)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = g.Compile()
	}
}

// BenchmarkCompile_Linear_50 compiles a 50-step linear graph.
func BenchmarkCompile_Linear_50(b *testing.B) {
	g := buildLinear(50)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = g.Compile()
	}
}

// BenchmarkRun_Linear_7 runs a 7-step linear graph.
func BenchmarkRun_Linear_7(b *testing.B) {
	compiled := mustCompile(b, buildLinear(7))
	ctx := quietContext()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, counter{})
	}
}

// BenchmarkRun_Linear_7_StepTimeout runs the same graph with a per-step deadline.
func BenchmarkRun_Linear_7_StepTimeout(b *testing.B) {
	compiled := mustCompile(b, buildLinear(7))
	ctx := quietContext()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, counter{}, pipeline.WithStepTimeout(time.Second))
	}
}
