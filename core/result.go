package core

import "fmt"

// ExportResult is the base outcome record emitted by the external pipeline
// when an export attempt terminates. It is treated as opaque data: the
// pipeline owns its content, this package only carries and serializes it.
type ExportResult struct {
	DurationMs          int64
	FileSizeBytes       int64
	AverageAudioBitrate int
	AverageVideoBitrate int
	ChannelCount        int
	SampleRate          int
	Width               int
	Height              int
	VideoFrameCount     int
	AudioEncoderName    string
	VideoEncoderName    string

	// ExportError is the pipeline's own failure, carried as data so the
	// attempt still produces an inspectable record.
	ExportError error
}

// AsMap renders the result as a serializable mapping, emitting only
// populated fields
func (r ExportResult) AsMap() map[string]any {
	m := make(map[string]any)
	if r.DurationMs > 0 {
		m["durationMs"] = r.DurationMs
	}
	if r.FileSizeBytes > 0 {
		m["fileSizeBytes"] = r.FileSizeBytes
	}
	if r.AverageAudioBitrate > 0 {
		m["averageAudioBitrate"] = r.AverageAudioBitrate
	}
	if r.AverageVideoBitrate > 0 {
		m["averageVideoBitrate"] = r.AverageVideoBitrate
	}
	if r.ChannelCount > 0 {
		m["channelCount"] = r.ChannelCount
	}
	if r.SampleRate > 0 {
		m["sampleRate"] = r.SampleRate
	}
	if r.Width > 0 {
		m["width"] = r.Width
	}
	if r.Height > 0 {
		m["height"] = r.Height
	}
	if r.VideoFrameCount > 0 {
		m["videoFrameCount"] = r.VideoFrameCount
	}
	if r.AudioEncoderName != "" {
		m["audioEncoderName"] = r.AudioEncoderName
	}
	if r.VideoEncoderName != "" {
		m["videoEncoderName"] = r.VideoEncoderName
	}
	if r.ExportError != nil {
		m["exportException"] = ErrorAsMap(r.ExportError)
	}
	return m
}

// ErrorAsMap renders an error as a structured mapping for summary documents
func ErrorAsMap(err error) map[string]any {
	return map[string]any{
		"message": err.Error(),
		"type":    fmt.Sprintf("%T", err),
	}
}
