package exportprobe

import (
	"github.com/framelab/exportprobe/core"
)

// InferredFromSource replaces an absent "original" value in fallback
// reports: the caller never requested the axis explicitly, the pipeline
// inferred it from the source media.
const InferredFromSource = "Inferred from source."

// FallbackDetails records, per configuration axis, what the caller requested
// and what the pipeline actually used after capability negotiation. It is
// immutable and attached to exactly one Result.
type FallbackDetails struct {
	OriginalOutputHeight int
	FallbackOutputHeight int

	OriginalAudioMimeType string
	FallbackAudioMimeType string

	OriginalVideoMimeType string
	FallbackVideoMimeType string

	OriginalHDRMode core.HDRMode
	FallbackHDRMode core.HDRMode
}

// NewFallbackDetails builds a FallbackDetails from the requested and applied
// encoding configurations
func NewFallbackDetails(requested, applied core.EncodingRequest) *FallbackDetails {
	return &FallbackDetails{
		OriginalOutputHeight:  requested.OutputHeight,
		FallbackOutputHeight:  applied.OutputHeight,
		OriginalAudioMimeType: requested.AudioMimeType,
		FallbackAudioMimeType: applied.AudioMimeType,
		OriginalVideoMimeType: requested.VideoMimeType,
		FallbackVideoMimeType: applied.VideoMimeType,
		OriginalHDRMode:       requested.HDRMode,
		FallbackHDRMode:       applied.HDRMode,
	}
}

// HasResolutionFallback reports whether the encoder substituted the output
// height. Quality analysis against the source is meaningless after a
// resolution change.
func (d *FallbackDetails) HasResolutionFallback() bool {
	return d.OriginalOutputHeight != d.FallbackOutputHeight
}

// AsMap renders only the axes where the requested and applied values differ.
// Unchanged axes are omitted entirely; a configuration that was honored on
// every axis renders as an empty mapping. Absent original heights and MIME
// types render as InferredFromSource rather than leaking the unset marker.
func (d *FallbackDetails) AsMap() map[string]any {
	m := make(map[string]any)
	if d.OriginalOutputHeight != d.FallbackOutputHeight {
		if d.OriginalOutputHeight == core.HeightUnset {
			m["originalOutputHeight"] = InferredFromSource
		} else {
			m["originalOutputHeight"] = d.OriginalOutputHeight
		}
		m["fallbackOutputHeight"] = d.FallbackOutputHeight
	}
	if d.OriginalAudioMimeType != d.FallbackAudioMimeType {
		if d.OriginalAudioMimeType == "" {
			m["originalAudioMimeType"] = InferredFromSource
		} else {
			m["originalAudioMimeType"] = d.OriginalAudioMimeType
		}
		m["fallbackAudioMimeType"] = d.FallbackAudioMimeType
	}
	if d.OriginalVideoMimeType != d.FallbackVideoMimeType {
		if d.OriginalVideoMimeType == "" {
			m["originalVideoMimeType"] = InferredFromSource
		} else {
			m["originalVideoMimeType"] = d.OriginalVideoMimeType
		}
		m["fallbackVideoMimeType"] = d.FallbackVideoMimeType
	}
	if d.OriginalHDRMode != d.FallbackHDRMode {
		m["originalHdrMode"] = int(d.OriginalHDRMode)
		m["fallbackHdrMode"] = int(d.FallbackHDRMode)
	}
	return m
}
