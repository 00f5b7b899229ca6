package exportprobe

import (
	"sync"

	"github.com/framelab/exportprobe/core"
)

// ExportListener receives the external pipeline's notifications for one
// export attempt and drives the attempt's Gate. One listener instance is
// registered under both the lifecycle and metrics channels; events carry
// their own discriminator, so a single Handle method serves both.
//
// The listener is the only writer of the captured result and fallback
// record; the consumer reads them after the gate releases it.
type ExportListener struct {
	gate *Gate

	mu       sync.Mutex
	result   core.ExportResult
	hasRes   bool
	fallback *FallbackDetails
	decoded  int
	dropped  int
	skipped  int
}

// NewExportListener creates a listener driving the given gate
func NewExportListener(gate *Gate) *ExportListener {
	return &ExportListener{gate: gate}
}

// Handle dispatches one pipeline event. It is safe to call from the
// pipeline's event thread while the consumer blocks in Gate.Await.
func (l *ExportListener) Handle(event core.Event) {
	switch e := event.(type) {
	case core.StateEvent:
		l.gate.Signal(e.Condition)

	case core.CompletedEvent:
		l.mu.Lock()
		l.result = e.Result
		l.hasRes = true
		l.mu.Unlock()
		l.gate.Signal(core.ConditionCompleted)

	case core.ErrorEvent:
		l.mu.Lock()
		l.result = e.Result
		l.hasRes = true
		l.mu.Unlock()
		l.gate.SignalError(e.Err)

	case core.FallbackEvent:
		l.mu.Lock()
		l.fallback = NewFallbackDetails(e.Requested, e.Applied)
		l.mu.Unlock()

	case core.DecoderMetricsEvent:
		l.mu.Lock()
		l.decoded = e.DecodedFrames
		l.dropped = e.DroppedFrames
		l.skipped = e.SkippedFrames
		l.mu.Unlock()
	}
}

// Result returns the export result captured from the completion or error
// notification, and whether one arrived
func (l *ExportListener) Result() (core.ExportResult, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.result, l.hasRes
}

// FallbackDetails returns the captured fallback record, or nil
func (l *ExportListener) FallbackDetails() *FallbackDetails {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fallback
}

// DecoderCounters returns the last reported decoder counters
func (l *ExportListener) DecoderCounters() (decoded, dropped, skipped int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.decoded, l.dropped, l.skipped
}
