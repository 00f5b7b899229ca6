// Package protocol defines the wire format of the external pipeline's
// notifications and its conversion into the core event model.
package protocol

import "encoding/json"

// MessageType defines pipeline-to-consumer notification types
type MessageType string

const (
	// Lifecycle notifications
	MessageStateChanged MessageType = "lifecycle.state"     // Terminal playback state reached
	MessageCompleted    MessageType = "lifecycle.completed" // Export finished successfully
	MessageError        MessageType = "lifecycle.error"     // Export terminated with a failure
	MessageFallback     MessageType = "lifecycle.fallback"  // Encoder applied a configuration fallback

	// Metrics notifications
	MessageDecoderMetrics MessageType = "metrics.decoder" // Decoder counter update
)

// Message represents one notification from the pipeline
type Message struct {
	Type      MessageType     `json:"type"`
	ID        string          `json:"id"`        // Pipeline-generated message ID
	SessionID string          `json:"sessionId"` // Export session identifier
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

// StatePayload for lifecycle.state
type StatePayload struct {
	State string `json:"state"` // "ready" or "ended"
}

// ResultPayload carries the pipeline's base result fields. Zero values mean
// the pipeline did not report the field.
type ResultPayload struct {
	DurationMs          int64  `json:"durationMs,omitempty"`
	FileSizeBytes       int64  `json:"fileSizeBytes,omitempty"`
	AverageAudioBitrate int    `json:"averageAudioBitrate,omitempty"`
	AverageVideoBitrate int    `json:"averageVideoBitrate,omitempty"`
	ChannelCount        int    `json:"channelCount,omitempty"`
	SampleRate          int    `json:"sampleRate,omitempty"`
	Width               int    `json:"width,omitempty"`
	Height              int    `json:"height,omitempty"`
	VideoFrameCount     int    `json:"videoFrameCount,omitempty"`
	AudioEncoderName    string `json:"audioEncoderName,omitempty"`
	VideoEncoderName    string `json:"videoEncoderName,omitempty"`
}

// CompletedPayload for lifecycle.completed
type CompletedPayload struct {
	Result ResultPayload `json:"result"`
}

// ErrorPayload for lifecycle.error
type ErrorPayload struct {
	Code    string        `json:"code,omitempty"`
	Message string        `json:"message"`
	Result  ResultPayload `json:"result"` // Partial result at failure time
}

// EncodingRequestPayload mirrors one side of a fallback notification
type EncodingRequestPayload struct {
	OutputHeight  int    `json:"outputHeight"`
	AudioMimeType string `json:"audioMimeType,omitempty"`
	VideoMimeType string `json:"videoMimeType,omitempty"`
	HdrMode       int    `json:"hdrMode"`
}

// FallbackPayload for lifecycle.fallback
type FallbackPayload struct {
	Original EncodingRequestPayload `json:"original"`
	Fallback EncodingRequestPayload `json:"fallback"`
}

// DecoderMetricsPayload for metrics.decoder
type DecoderMetricsPayload struct {
	DecodedFrames int `json:"decodedFrames"`
	DroppedFrames int `json:"droppedFrames"`
	SkippedFrames int `json:"skippedFrames"`
}
