package exportprobe_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	exportprobe "github.com/framelab/exportprobe"
	"github.com/framelab/exportprobe/core"
	"github.com/framelab/exportprobe/summary"
)

// fakeSource is an in-process EventSource driven directly by the test
type fakeSource struct {
	mu       sync.Mutex
	handlers map[core.Channel][]func(core.Event)
}

func newFakeSource() *fakeSource {
	return &fakeSource{handlers: make(map[core.Channel][]func(core.Event))}
}

func (f *fakeSource) Subscribe(channel core.Channel, handler func(core.Event)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[channel] = append(f.handlers[channel], handler)
}

func (f *fakeSource) Emit(event core.Event) {
	f.mu.Lock()
	handlers := append([]func(core.Event){}, f.handlers[event.Channel()]...)
	f.mu.Unlock()
	for _, handler := range handlers {
		handler(event)
	}
}

// memorySink records summary documents in memory
type memorySink struct {
	mu   sync.Mutex
	docs map[string]map[string]any
}

func newMemorySink() *memorySink {
	return &memorySink{docs: make(map[string]map[string]any)}
}

func (s *memorySink) Write(ctx context.Context, attemptID string, doc map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[attemptID] = doc
	return nil
}

func (s *memorySink) single(t *testing.T) map[string]any {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.Len(t, s.docs, 1, "expected exactly one summary document")
	for _, doc := range s.docs {
		return doc
	}
	return nil
}

// MockComparator is a testify mock for the quality comparator
type MockComparator struct{ mock.Mock }

func (m *MockComparator) Compare(ctx context.Context, referencePath, outputPath string) (float64, error) {
	args := m.Called(ctx, referencePath, outputPath)
	return args.Get(0).(float64), args.Error(1)
}

func TestRunnerSuccessfulExport(t *testing.T) {
	src := newFakeSource()
	sink := newMemorySink()

	comparator := &MockComparator{}
	comparator.On("Compare", mock.Anything, "/media/source.mp4", mock.Anything).Return(0.97, nil)

	starter := exportprobe.StartFunc(func(ctx context.Context, outputPath string) error {
		go func() {
			time.Sleep(10 * time.Millisecond)
			src.Emit(core.DecoderMetricsEvent{DecodedFrames: 60})
			src.Emit(core.CompletedEvent{
				Result: core.ExportResult{VideoFrameCount: 60, DurationMs: 2000, FileSizeBytes: 1 << 20},
			})
		}()
		return nil
	})

	runner := exportprobe.NewRunnerBuilder(src, starter).
		SetTimeout(2 * time.Second).
		SetQualityComparator(comparator).
		SetOutputDir(t.TempDir()).
		SetInputValues(map[string]any{"device": "test-rig"}).
		SetSummarySink(sink).
		Build()

	result, err := runner.Run(context.Background(), "success", "/media/source.mp4")
	require.NoError(t, err)
	require.NotNil(t, result)

	ssim, ok := result.SSIM()
	assert.True(t, ok)
	assert.Equal(t, 0.97, ssim)
	assert.NotEmpty(t, result.FilePath())
	_, ok = result.ElapsedTime()
	assert.True(t, ok)
	assert.Nil(t, result.AnalysisError())
	comparator.AssertExpectations(t)

	doc := sink.single(t)
	assert.Equal(t, map[string]any{"device": "test-rig"}, doc["inputValues"])
	require.NoError(t, summary.ValidateSummaryMap(doc))
}

func TestRunnerTimeout(t *testing.T) {
	src := newFakeSource()
	sink := newMemorySink()

	runner := exportprobe.NewRunnerBuilder(src, exportprobe.StartFunc(
		func(ctx context.Context, outputPath string) error { return nil },
	)).
		SetTimeout(50 * time.Millisecond).
		SetOutputDir(t.TempDir()).
		SetSummarySink(sink).
		Build()

	result, err := runner.Run(context.Background(), "timeout", "/media/source.mp4")
	assert.Nil(t, result)
	var timeoutErr *exportprobe.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)

	doc := sink.single(t)
	exportResult, ok := doc["exportResult"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, exportResult, "testException")
}

func TestRunnerPipelineError(t *testing.T) {
	src := newFakeSource()
	sink := newMemorySink()
	cause := errors.New("muxer rejected sample")

	starter := exportprobe.StartFunc(func(ctx context.Context, outputPath string) error {
		go func() {
			time.Sleep(10 * time.Millisecond)
			src.Emit(core.ErrorEvent{
				Result: core.ExportResult{DurationMs: 300, ExportError: cause},
				Err:    cause,
			})
		}()
		return nil
	})

	runner := exportprobe.NewRunnerBuilder(src, starter).
		SetTimeout(2 * time.Second).
		SetOutputDir(t.TempDir()).
		SetSummarySink(sink).
		Build()

	result, err := runner.Run(context.Background(), "pipeline-error", "/media/source.mp4")
	require.ErrorIs(t, err, cause)
	var propagated *exportprobe.PropagatedError
	assert.ErrorAs(t, err, &propagated)

	// The attempt still yields an inspectable record with the partial result.
	require.NotNil(t, result)
	_, ok := result.ElapsedTime()
	assert.True(t, ok)
	assert.Empty(t, result.FilePath())
}

func TestRunnerAnalysisFailureSwallowed(t *testing.T) {
	src := newFakeSource()
	sink := newMemorySink()

	comparator := &MockComparator{}
	comparator.On("Compare", mock.Anything, mock.Anything, mock.Anything).
		Return(0.0, errors.New("reference decode failed"))

	starter := exportprobe.StartFunc(func(ctx context.Context, outputPath string) error {
		go func() {
			src.Emit(core.CompletedEvent{Result: core.ExportResult{VideoFrameCount: 30, DurationMs: 1000}})
		}()
		return nil
	})

	runner := exportprobe.NewRunnerBuilder(src, starter).
		SetTimeout(2 * time.Second).
		SetQualityComparator(comparator).
		SetOutputDir(t.TempDir()).
		SetSummarySink(sink).
		Build()

	result, err := runner.Run(context.Background(), "analysis-failure", "/media/source.mp4")
	require.NoError(t, err, "analysis failures must not fail the attempt")
	require.NotNil(t, result)
	assert.EqualError(t, result.AnalysisError(), "reference decode failed")
	_, ok := result.SSIM()
	assert.False(t, ok)

	doc := sink.single(t)
	exportResult := doc["exportResult"].(map[string]any)
	assert.Contains(t, exportResult, "analysisException")
	require.NoError(t, summary.ValidateSummaryMap(doc))
}

func TestRunnerSkipsAnalysisOnResolutionFallback(t *testing.T) {
	src := newFakeSource()
	sink := newMemorySink()

	comparator := &MockComparator{}

	starter := exportprobe.StartFunc(func(ctx context.Context, outputPath string) error {
		go func() {
			src.Emit(core.FallbackEvent{
				Requested: core.EncodingRequest{OutputHeight: 1080},
				Applied:   core.EncodingRequest{OutputHeight: 720},
			})
			src.Emit(core.CompletedEvent{Result: core.ExportResult{VideoFrameCount: 60, DurationMs: 2000}})
		}()
		return nil
	})

	runner := exportprobe.NewRunnerBuilder(src, starter).
		SetTimeout(2 * time.Second).
		SetQualityComparator(comparator).
		SetOutputDir(t.TempDir()).
		SetSummarySink(sink).
		Build()

	result, err := runner.Run(context.Background(), "resolution-fallback", "/media/source.mp4")
	require.NoError(t, err)
	require.NotNil(t, result)

	_, ok := result.SSIM()
	assert.False(t, ok, "analysis must be skipped after a resolution fallback")
	require.NotNil(t, result.FallbackDetails())
	comparator.AssertNotCalled(t, "Compare", mock.Anything, mock.Anything, mock.Anything)

	doc := sink.single(t)
	exportResult := doc["exportResult"].(map[string]any)
	assert.Contains(t, exportResult, "fallbackDetails")
}

func TestRunnerWaitsForPlayback(t *testing.T) {
	src := newFakeSource()

	starter := exportprobe.StartFunc(func(ctx context.Context, outputPath string) error {
		go func() {
			src.Emit(core.CompletedEvent{Result: core.ExportResult{VideoFrameCount: 30, DurationMs: 1000}})
			time.Sleep(10 * time.Millisecond)
			src.Emit(core.StateEvent{Condition: core.ConditionReady})
			src.Emit(core.StateEvent{Condition: core.ConditionEnded})
		}()
		return nil
	})

	runner := exportprobe.NewRunnerBuilder(src, starter).
		SetTimeout(2 * time.Second).
		SetWaitForPlayback(true).
		SetOutputDir(t.TempDir()).
		Build()

	result, err := runner.Run(context.Background(), "playback", "/media/source.mp4")
	require.NoError(t, err)
	require.NotNil(t, result)
}

func TestRunnerStartFailure(t *testing.T) {
	src := newFakeSource()
	sink := newMemorySink()
	cause := errors.New("output file not writable")

	runner := exportprobe.NewRunnerBuilder(src, exportprobe.StartFunc(
		func(ctx context.Context, outputPath string) error { return cause },
	)).
		SetTimeout(time.Second).
		SetOutputDir(t.TempDir()).
		SetSummarySink(sink).
		Build()

	result, err := runner.Run(context.Background(), "start-failure", "/media/source.mp4")
	assert.Nil(t, result)
	require.ErrorIs(t, err, cause)

	doc := sink.single(t)
	exportResult := doc["exportResult"].(map[string]any)
	assert.Contains(t, exportResult, "testException")
}
