package exportprobe

import (
	"time"

	"github.com/framelab/exportprobe/core"
)

// Result is an immutable snapshot of one export attempt's outcome: the
// pipeline's base result plus whatever optional measurements the attempt
// produced. Optional fields expose (value, ok) accessors instead of magic
// sentinel values.
type Result struct {
	base core.ExportResult

	filePath string

	elapsedTime time.Duration
	hasElapsed  bool

	ssim    float64
	hasSSIM bool

	throughputFPS float64
	hasThroughput bool

	fallback    *FallbackDetails
	analysisErr error
}

// Base returns the pipeline's own result record
func (r *Result) Base() core.ExportResult { return r.base }

// FilePath returns the output file path, or "" when no file was written
func (r *Result) FilePath() string { return r.filePath }

// ElapsedTime returns the measured export duration, if known
func (r *Result) ElapsedTime() (time.Duration, bool) { return r.elapsedTime, r.hasElapsed }

// SSIM returns the structural-similarity score of the output against the
// input, if it was calculated
func (r *Result) SSIM() (float64, bool) { return r.ssim, r.hasSSIM }

// ThroughputFPS returns the derived export throughput in frames per second.
// It is known only when both the elapsed time and a positive frame count
// are known.
func (r *Result) ThroughputFPS() (float64, bool) { return r.throughputFPS, r.hasThroughput }

// FallbackDetails returns the fallback record, or nil when no fallback
// notification was received
func (r *Result) FallbackDetails() *FallbackDetails { return r.fallback }

// AnalysisError returns the post-export analysis failure, if one occurred.
// Analysis failures are carried as data so the export's primary outcome is
// still reported.
func (r *Result) AnalysisError() error { return r.analysisErr }

// AsMap renders the snapshot for the summary document. Base-result fields
// are merged at the top level; optional keys appear only when the value is
// known. fallbackDetails is emitted whenever a fallback record was attached,
// even when no axis changed.
func (r *Result) AsMap() map[string]any {
	m := r.base.AsMap()
	if r.filePath != "" {
		m["filePath"] = r.filePath
	}
	if r.hasElapsed {
		m["elapsedTimeMs"] = r.elapsedTime.Milliseconds()
	}
	if r.hasSSIM {
		m["ssim"] = r.ssim
	}
	if r.hasThroughput {
		m["throughputFps"] = r.throughputFPS
	}
	if r.fallback != nil {
		m["fallbackDetails"] = r.fallback.AsMap()
	}
	if r.analysisErr != nil {
		m["analysisException"] = core.ErrorAsMap(r.analysisErr)
	}
	return m
}

// Builder assembles a Result across the stages of an export attempt: the
// core export first, then post-export analysis. Setters are last-write-wins
// and Build is non-destructive, so one builder can produce successive
// snapshots as more signals arrive. Builders are single-writer; callers
// serialize their own access.
type Builder struct {
	base core.ExportResult

	filePath string

	elapsedTime time.Duration
	hasElapsed  bool

	ssim    float64
	hasSSIM bool

	fallback    *FallbackDetails
	analysisErr error
}

// NewBuilder creates a Builder around the mandatory base result
func NewBuilder(base core.ExportResult) *Builder {
	return &Builder{base: base}
}

// SetFilePath sets the output file path
func (b *Builder) SetFilePath(path string) *Builder {
	b.filePath = path
	return b
}

// SetElapsedTime sets the measured duration of the export
func (b *Builder) SetElapsedTime(elapsed time.Duration) *Builder {
	b.elapsedTime = elapsed
	b.hasElapsed = true
	return b
}

// SetSSIM sets the structural-similarity score, in [-1, 1]
func (b *Builder) SetSSIM(ssim float64) *Builder {
	b.ssim = ssim
	b.hasSSIM = true
	return b
}

// SetFallbackDetails attaches the fallback record. Passing nil detaches it.
func (b *Builder) SetFallbackDetails(details *FallbackDetails) *Builder {
	b.fallback = details
	return b
}

// SetAnalysisError records a post-export analysis failure
func (b *Builder) SetAnalysisError(err error) *Builder {
	b.analysisErr = err
	return b
}

// Build produces an immutable snapshot of the current builder state. It is
// total: no combination of fields fails. Throughput is derived here, and
// only when the elapsed time is known and positive and the base result
// reports a positive frame count.
func (b *Builder) Build() *Result {
	r := &Result{
		base:        b.base,
		filePath:    b.filePath,
		elapsedTime: b.elapsedTime,
		hasElapsed:  b.hasElapsed,
		ssim:        b.ssim,
		hasSSIM:     b.hasSSIM,
		fallback:    b.fallback,
		analysisErr: b.analysisErr,
	}
	elapsedMs := b.elapsedTime.Milliseconds()
	if b.hasElapsed && elapsedMs > 0 && b.base.VideoFrameCount > 0 {
		r.throughputFPS = float64(b.base.VideoFrameCount) * 1000 / float64(elapsedMs)
		r.hasThroughput = true
	}
	return r
}
