package core

// Event represents any notification emitted by the external pipeline
type Event interface {
	EventType() EventType
	Channel() Channel
}

// EventType categorizes pipeline notifications
type EventType string

const (
	EventTypeState          EventType = "state"
	EventTypeCompleted      EventType = "completed"
	EventTypeError          EventType = "error"
	EventTypeFallback       EventType = "fallback"
	EventTypeDecoderMetrics EventType = "decoder_metrics"
)

// StateEvent reports that the pipeline reached a terminal playback state
type StateEvent struct {
	Condition Condition
}

func (e StateEvent) EventType() EventType { return EventTypeState }
func (e StateEvent) Channel() Channel     { return ChannelLifecycle }

// CompletedEvent reports that the export finished successfully
type CompletedEvent struct {
	Result ExportResult
}

func (e CompletedEvent) EventType() EventType { return EventTypeCompleted }
func (e CompletedEvent) Channel() Channel     { return ChannelLifecycle }

// ErrorEvent reports that the export terminated with a failure. The partial
// result is still attached so the attempt can be reported.
type ErrorEvent struct {
	Result ExportResult
	Err    error
}

func (e ErrorEvent) EventType() EventType { return EventTypeError }
func (e ErrorEvent) Channel() Channel     { return ChannelLifecycle }

// FallbackEvent reports that capability negotiation substituted parts of the
// requested encoding configuration
type FallbackEvent struct {
	Requested EncodingRequest
	Applied   EncodingRequest
}

func (e FallbackEvent) EventType() EventType { return EventTypeFallback }
func (e FallbackEvent) Channel() Channel     { return ChannelLifecycle }

// DecoderMetricsEvent reports decoder counter updates during the export
type DecoderMetricsEvent struct {
	DecodedFrames int
	DroppedFrames int
	SkippedFrames int
}

func (e DecoderMetricsEvent) EventType() EventType { return EventTypeDecoderMetrics }
func (e DecoderMetricsEvent) Channel() Channel     { return ChannelMetrics }
