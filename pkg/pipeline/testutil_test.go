package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"
)

type counter struct {
	Value int
	Path  []string
}

func add(id string) StepFunc[counter] {
	return func(_ Context, s counter) (counter, error) {
		s.Value++
		s.Path = append(append([]string(nil), s.Path...), id)
		return s, nil
	}
}

var errBoom = errors.New("boom")

func failing(_ Context, s counter) (counter, error) {
	return s, errBoom
}

func testCtx() Context {
	return NewContext(context.Background(), WithContextRunID("run-test"))
}

type recordedRun struct {
	mode, status string
}

type recordingMetrics struct {
	mu    sync.Mutex
	steps map[string]error
	runs  []recordedRun
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{steps: map[string]error{}}
}

func (m *recordingMetrics) RecordStep(_ context.Context, stepID string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps[stepID] = err
}

func (m *recordingMetrics) RecordRun(_ context.Context, mode, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, recordedRun{mode, status})
}

func (m *recordingMetrics) RecordReconcile(context.Context, int, int, int, int) {}
func (m *recordingMetrics) RecordMerge(context.Context, string, int, int) {}
func (m *recordingMetrics) RecordDimension(context.Context, int, int, int) {}
func (m *recordingMetrics) RecordQualityCheck(context.Context, string, string) {}
