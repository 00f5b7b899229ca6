package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/framelab/exportprobe/core"
)

// PipelineError is an export failure reconstructed from a wire message
type PipelineError struct {
	Code    string
	Message string
}

func (e *PipelineError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// MessageToEvent converts a wire message to a core event
func MessageToEvent(msg *Message) (core.Event, error) {
	switch msg.Type {
	case MessageStateChanged:
		var payload StatePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return nil, fmt.Errorf("protocol: decode state payload: %w", err)
		}
		condition, err := parseCondition(payload.State)
		if err != nil {
			return nil, err
		}
		return core.StateEvent{Condition: condition}, nil

	case MessageCompleted:
		var payload CompletedPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return nil, fmt.Errorf("protocol: decode completed payload: %w", err)
		}
		return core.CompletedEvent{Result: toExportResult(payload.Result, nil)}, nil

	case MessageError:
		var payload ErrorPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return nil, fmt.Errorf("protocol: decode error payload: %w", err)
		}
		pipelineErr := &PipelineError{Code: payload.Code, Message: payload.Message}
		return core.ErrorEvent{
			Result: toExportResult(payload.Result, pipelineErr),
			Err:    pipelineErr,
		}, nil

	case MessageFallback:
		var payload FallbackPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return nil, fmt.Errorf("protocol: decode fallback payload: %w", err)
		}
		return core.FallbackEvent{
			Requested: toEncodingRequest(payload.Original),
			Applied:   toEncodingRequest(payload.Fallback),
		}, nil

	case MessageDecoderMetrics:
		var payload DecoderMetricsPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return nil, fmt.Errorf("protocol: decode decoder metrics payload: %w", err)
		}
		return core.DecoderMetricsEvent{
			DecodedFrames: payload.DecodedFrames,
			DroppedFrames: payload.DroppedFrames,
			SkippedFrames: payload.SkippedFrames,
		}, nil

	default:
		return nil, fmt.Errorf("protocol: unknown message type %q", msg.Type)
	}
}

func parseCondition(state string) (core.Condition, error) {
	switch core.Condition(state) {
	case core.ConditionReady, core.ConditionEnded, core.ConditionCompleted:
		return core.Condition(state), nil
	default:
		return "", fmt.Errorf("protocol: unknown state %q", state)
	}
}

func toExportResult(payload ResultPayload, exportErr error) core.ExportResult {
	return core.ExportResult{
		DurationMs:          payload.DurationMs,
		FileSizeBytes:       payload.FileSizeBytes,
		AverageAudioBitrate: payload.AverageAudioBitrate,
		AverageVideoBitrate: payload.AverageVideoBitrate,
		ChannelCount:        payload.ChannelCount,
		SampleRate:          payload.SampleRate,
		Width:               payload.Width,
		Height:              payload.Height,
		VideoFrameCount:     payload.VideoFrameCount,
		AudioEncoderName:    payload.AudioEncoderName,
		VideoEncoderName:    payload.VideoEncoderName,
		ExportError:         exportErr,
	}
}

func toEncodingRequest(payload EncodingRequestPayload) core.EncodingRequest {
	return core.EncodingRequest{
		OutputHeight:  payload.OutputHeight,
		AudioMimeType: payload.AudioMimeType,
		VideoMimeType: payload.VideoMimeType,
		HDRMode:       core.HDRMode(payload.HdrMode),
	}
}

// ParseMessage decodes one wire frame
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("protocol: decode message: %w", err)
	}
	if msg.Type == "" {
		return nil, errors.New("protocol: message has no type")
	}
	return &msg, nil
}
