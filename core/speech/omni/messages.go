package omni

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/eidolonlabs/eidolon-core/core/audio"
)

// Client-to-server messages.

type sessionUpdate struct {
	Type    string        `json:"type"`
	Session sessionConfig `json:"session"`
}

type sessionConfig struct {
	Modalities        []string      `json:"modalities"`
	InputAudioFormat  string        `json:"input_audio_format"`
	OutputAudioFormat string        `json:"output_audio_format"`
	SampleRate        int           `json:"sample_rate"`
	TurnDetection     turnDetection `json:"turn_detection"`
}

type turnDetection struct {
	Type string `json:"type"`
}

func sessionUpdateMessage(encoding audio.EncodingInfo) any {
	return sessionUpdate{
		Type: "session.update",
		Session: sessionConfig{
			Modalities:        []string{"text", "audio"},
			InputAudioFormat:  encoding.Format.Name(),
			OutputAudioFormat: encoding.Format.Name(),
			SampleRate:        encoding.SampleRate,
			TurnDetection:     turnDetection{Type: "server_vad"},
		},
	}
}

func appendAudioMessage(pcm []byte) any {
	return struct {
		Type  string `json:"type"`
		Audio string `json:"audio"`
	}{
		Type:  "input_audio_buffer.append",
		Audio: base64.StdEncoding.EncodeToString(pcm),
	}
}

// handleMessage decodes one server event and routes it to the configured
// callbacks. Unknown event types are ignored.
func (c *Client) handleMessage(msg []byte) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &envelope); err != nil {
		logger.Warn("failed to decode realtime message", "error", err)
		return
	}

	switch envelope.Type {
	case "input_audio_buffer.speech_started":
		c.options.SpeechStartedCallback()

	case "input_audio_buffer.speech_stopped":
		c.options.SpeechEndedCallback()

	case "conversation.item.input_audio_transcription.delta":
		var event struct {
			Delta string `json:"delta"`
		}
		if err := json.Unmarshal(msg, &event); err != nil {
			logger.Warn("failed to decode transcription delta", "error", err)
			return
		}
		c.options.InterimTranscriptionCallback(event.Delta)

	case "conversation.item.input_audio_transcription.completed":
		var event struct {
			Transcript string `json:"transcript"`
		}
		if err := json.Unmarshal(msg, &event); err != nil {
			logger.Warn("failed to decode transcription", "error", err)
			return
		}
		if event.Transcript != "" {
			c.options.TranscriptionCallback(event.Transcript)
		}

	case "response.audio.delta":
		var event struct {
			Delta string `json:"delta"`
		}
		if err := json.Unmarshal(msg, &event); err != nil {
			logger.Warn("failed to decode audio delta", "error", err)
			return
		}
		pcm, err := base64.StdEncoding.DecodeString(event.Delta)
		if err != nil {
			logger.Warn("failed to decode audio payload", "error", err)
			return
		}
		c.options.AudioCallback(pcm)

	case "error":
		var event struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(msg, &event); err != nil {
			logger.Warn("failed to decode error event", "error", err)
			return
		}
		c.options.ErrorCallback(fmt.Errorf("realtime server error: %s", event.Error.Message), false)
	}
}
