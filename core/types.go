package core

// Condition names a terminal state of one export attempt. Conditions are
// one-way: once reached they stay reached for the lifetime of the attempt.
type Condition string

const (
	// ConditionReady signals that the pipeline produced its first renderable output
	ConditionReady Condition = "ready"

	// ConditionEnded signals that playback of the exported media ran to completion
	ConditionEnded Condition = "ended"

	// ConditionCompleted signals that the export itself finished, successfully or not
	ConditionCompleted Condition = "completed"
)

// Channel names a logical notification channel of the external pipeline
type Channel string

const (
	// ChannelLifecycle carries state changes, completion, errors and fallbacks
	ChannelLifecycle Channel = "lifecycle"

	// ChannelMetrics carries decoder counter updates
	ChannelMetrics Channel = "metrics"
)

// HDRMode identifies how the pipeline handles HDR input
type HDRMode int

const (
	HDRModeKeepHDR HDRMode = iota
	HDRModeToneMapUsingOpenGL
	HDRModeToneMapUsingMediaCodec
	HDRModeForceInterpretAsSDR
)

// HeightUnset marks an output height the caller never requested explicitly,
// leaving the pipeline to infer it from the source
const HeightUnset = -1

// EncodingRequest holds the configuration axes the pipeline may substitute
// during capability negotiation. An empty MIME type means the axis was left
// to be inferred from the source.
type EncodingRequest struct {
	OutputHeight  int
	AudioMimeType string
	VideoMimeType string
	HDRMode       HDRMode
}
