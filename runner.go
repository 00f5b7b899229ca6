package exportprobe

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/framelab/exportprobe/core"
	"github.com/framelab/exportprobe/metrics"
	"github.com/framelab/exportprobe/summary"
)

// EventSource delivers the external pipeline's notifications to subscribed
// handlers, per logical channel
type EventSource interface {
	Subscribe(channel core.Channel, handler func(core.Event))
}

// Starter triggers an export on the external pipeline. The pipeline reports
// progress and termination through the EventSource, never through the
// return value; Start only fails when the export could not be kicked off.
type Starter interface {
	Start(ctx context.Context, outputPath string) error
}

// StartFunc adapts a function to the Starter interface
type StartFunc func(ctx context.Context, outputPath string) error

func (f StartFunc) Start(ctx context.Context, outputPath string) error {
	return f(ctx, outputPath)
}

// QualityComparator computes a similarity score between the source media
// and the exported output. It is an external collaborator; SSIM is the
// typical implementation.
type QualityComparator interface {
	Compare(ctx context.Context, referencePath, outputPath string) (float64, error)
}

// Runner drives one export attempt at a time against an external pipeline:
// it subscribes a listener, starts the export, waits on the completion gate,
// assembles the Result, runs optional post-export quality analysis, and
// persists a summary document.
type Runner struct {
	source          EventSource
	starter         Starter
	timeout         time.Duration
	comparator      QualityComparator
	waitForPlayback bool
	outputDir       string
	inputValues     map[string]any
	sink            summary.Sink
	collector       *metrics.Collector
	logger          zerolog.Logger
}

// RunnerBuilder configures a Runner
type RunnerBuilder struct {
	runner Runner
}

// NewRunnerBuilder creates a builder around the pipeline's event source and
// start trigger
func NewRunnerBuilder(source EventSource, starter Starter) *RunnerBuilder {
	return &RunnerBuilder{
		runner: Runner{
			source:  source,
			starter: starter,
			timeout: DefaultGateTimeout,
			logger:  zerolog.Nop(),
		},
	}
}

// SetTimeout sets the bounded wait for a single export attempt.
// The default is DefaultGateTimeout.
func (b *RunnerBuilder) SetTimeout(timeout time.Duration) *RunnerBuilder {
	b.runner.timeout = timeout
	return b
}

// SetQualityComparator enables post-export quality analysis. Analysis
// failures never fail the attempt; they are recorded on the Result.
func (b *RunnerBuilder) SetQualityComparator(comparator QualityComparator) *RunnerBuilder {
	b.runner.comparator = comparator
	return b
}

// SetWaitForPlayback makes the runner additionally wait for the pipeline's
// playback verification to report ready and ended before assembling the
// result
func (b *RunnerBuilder) SetWaitForPlayback(wait bool) *RunnerBuilder {
	b.runner.waitForPlayback = wait
	return b
}

// SetOutputDir sets the directory exported files are written into
func (b *RunnerBuilder) SetOutputDir(dir string) *RunnerBuilder {
	b.runner.outputDir = dir
	return b
}

// SetInputValues attaches caller-provided values that are propagated
// verbatim into the summary document
func (b *RunnerBuilder) SetInputValues(values map[string]any) *RunnerBuilder {
	b.runner.inputValues = values
	return b
}

// SetSummarySink sets where attempt summaries are written
func (b *RunnerBuilder) SetSummarySink(sink summary.Sink) *RunnerBuilder {
	b.runner.sink = sink
	return b
}

// SetMetrics sets the Prometheus collector for attempt counters
func (b *RunnerBuilder) SetMetrics(collector *metrics.Collector) *RunnerBuilder {
	b.runner.collector = collector
	return b
}

// SetLogger sets the structured logger
func (b *RunnerBuilder) SetLogger(logger zerolog.Logger) *RunnerBuilder {
	b.runner.logger = logger
	return b
}

// Build returns the configured Runner
func (b *RunnerBuilder) Build() *Runner {
	runner := b.runner
	return &runner
}

// Run performs one export attempt. testID identifies the test invoking the
// export; sourcePath is the reference media handed to the quality
// comparator. The returned Result is non-nil whenever the pipeline produced
// a base result, including when it reported an export error; in that case
// the error is carried inside the result, not returned.
func (r *Runner) Run(ctx context.Context, testID, sourcePath string) (*Result, error) {
	attemptID := fmt.Sprintf("%s-%s", testID, uuid.NewString())
	outputPath := filepath.Join(r.outputDir, attemptID+"-output.mp4")
	logger := r.logger.With().Str("attempt_id", attemptID).Logger()

	gate := NewGate(r.timeout,
		core.ConditionReady, core.ConditionEnded, core.ConditionCompleted)
	listener := NewExportListener(gate)
	r.source.Subscribe(core.ChannelLifecycle, listener.Handle)
	r.source.Subscribe(core.ChannelMetrics, listener.Handle)

	r.collector.ExportStarted()
	startTime := time.Now()

	if err := r.starter.Start(ctx, outputPath); err != nil {
		err = fmt.Errorf("start export: %w", err)
		r.writeSummary(ctx, attemptID, r.testExceptionSummary(err))
		return nil, err
	}

	if err := gate.Await(ctx, core.ConditionCompleted); err != nil {
		return r.handleAwaitFailure(ctx, attemptID, logger, listener, startTime, err)
	}
	if r.waitForPlayback {
		for _, condition := range []core.Condition{core.ConditionReady, core.ConditionEnded} {
			if err := gate.Await(ctx, condition); err != nil {
				return r.handleAwaitFailure(ctx, attemptID, logger, listener, startTime, err)
			}
		}
	}

	elapsed := time.Since(startTime)
	base, ok := listener.Result()
	if !ok {
		err := fmt.Errorf("pipeline signaled completion without a result")
		r.writeSummary(ctx, attemptID, r.testExceptionSummary(err))
		return nil, err
	}
	fallback := listener.FallbackDetails()
	if fallback != nil {
		r.collector.FallbackApplied()
	}

	builder := NewBuilder(base).
		SetElapsedTime(elapsed).
		SetFallbackDetails(fallback)

	if base.ExportError != nil {
		logger.Warn().Err(base.ExportError).Msg("export terminated with pipeline error")
		r.collector.ExportFailed()
		result := builder.Build()
		r.writeSummary(ctx, attemptID, r.resultSummary(result))
		return result, nil
	}

	builder.SetFilePath(outputPath)
	r.analyze(ctx, logger, builder, fallback, sourcePath, outputPath)

	result := builder.Build()
	r.collector.ExportCompleted(elapsed)
	r.writeSummary(ctx, attemptID, r.resultSummary(result))
	logger.Info().
		Dur("elapsed", elapsed).
		Str("output", outputPath).
		Msg("export attempt completed")
	return result, nil
}

// analyze runs the quality comparison, recording failures on the builder
// instead of returning them
func (r *Runner) analyze(
	ctx context.Context,
	logger zerolog.Logger,
	builder *Builder,
	fallback *FallbackDetails,
	sourcePath, outputPath string,
) {
	if r.comparator == nil {
		return
	}
	if fallback != nil && fallback.HasResolutionFallback() {
		logger.Info().Msg("skipping quality analysis: encoder resolution fallback was applied")
		return
	}
	score, err := r.comparator.Compare(ctx, sourcePath, outputPath)
	if err != nil {
		logger.Error().Err(err).Msg("quality analysis failed")
		builder.SetAnalysisError(err)
		return
	}
	builder.SetSSIM(score)
}

func (r *Runner) handleAwaitFailure(
	ctx context.Context,
	attemptID string,
	logger zerolog.Logger,
	listener *ExportListener,
	startTime time.Time,
	err error,
) (*Result, error) {
	switch failure := err.(type) {
	case *TimeoutError:
		logger.Error().Err(err).Msg("export attempt timed out")
		r.collector.ExportTimedOut()
		r.writeSummary(ctx, attemptID, r.testExceptionSummary(err))
		return nil, err
	case *PropagatedError:
		logger.Error().Err(failure.Err).Msg("pipeline reported terminal error")
		r.collector.ExportFailed()
		base, ok := listener.Result()
		if !ok {
			r.writeSummary(ctx, attemptID, r.testExceptionSummary(err))
			return nil, err
		}
		result := NewBuilder(base).
			SetElapsedTime(time.Since(startTime)).
			SetFallbackDetails(listener.FallbackDetails()).
			Build()
		r.writeSummary(ctx, attemptID, r.resultSummary(result))
		return result, err
	default:
		// context cancellation or an unknown condition
		r.writeSummary(ctx, attemptID, r.testExceptionSummary(err))
		return nil, err
	}
}

func (r *Runner) resultSummary(result *Result) map[string]any {
	doc := map[string]any{"exportResult": result.AsMap()}
	if r.inputValues != nil {
		doc["inputValues"] = r.inputValues
	}
	return doc
}

func (r *Runner) testExceptionSummary(err error) map[string]any {
	doc := map[string]any{
		"exportResult": map[string]any{
			"testException": core.ErrorAsMap(err),
		},
	}
	if r.inputValues != nil {
		doc["inputValues"] = r.inputValues
	}
	return doc
}

func (r *Runner) writeSummary(ctx context.Context, attemptID string, doc map[string]any) {
	if r.sink == nil {
		return
	}
	if err := r.sink.Write(ctx, attemptID, doc); err != nil {
		r.logger.Warn().Err(err).Str("attempt_id", attemptID).Msg("failed to write export summary")
	}
}
