package omni

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eidolonlabs/eidolon-core/core/model"
)

func sseHandler(lines ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range lines {
			fmt.Fprintf(w, "data: %s\n\n", line)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}
}

func collectChunks(t *testing.T, stream model.Stream) []model.Chunk {
	t.Helper()
	var chunks []model.Chunk
	for chunk, err := range stream.Chunks(context.Background()) {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

func TestStreamReassemblesToolCallFragmentsWithSequences(t *testing.T) {
	server := httptest.NewServer(sseHandler(
		`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call-1","function":{"name":"move_to","arguments":"{\"tar"}}]}}]}`,
		`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"get\":\"door\"}"}}]}}]}`,
		`{"choices":[{"delta":{},"finish_reason":"tool_calls"}]}`,
	))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	stream, err := client.Stream(context.Background(), model.Request{
		Modalities: []model.Modality{model.ModalityText},
	})
	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}

	chunks := collectChunks(t, stream)

	var deltas []model.ToolCallDelta
	var doneIDs []string
	for _, chunk := range chunks {
		switch typed := chunk.(type) {
		case model.ToolCallChunk:
			deltas = append(deltas, typed.ToolCall())
		case model.ToolCallDoneChunk:
			doneIDs = append(doneIDs, typed.CallID())
		}
	}

	if len(deltas) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(deltas))
	}
	if deltas[0].ID != "call-1" || deltas[1].ID != "call-1" {
		t.Fatalf("id must propagate to id-less fragments, got %+v", deltas)
	}
	if deltas[0].Seq != 0 || deltas[1].Seq != 1 {
		t.Fatalf("sequence numbers must increase per call, got %+v", deltas)
	}
	if deltas[0].ArgumentsFragment+deltas[1].ArgumentsFragment != `{"target":"door"}` {
		t.Fatalf("fragments must concatenate to the full arguments, got %+v", deltas)
	}
	if len(doneIDs) != 1 || doneIDs[0] != "call-1" {
		t.Fatalf("expected one synthesized done signal, got %v", doneIDs)
	}
}

func TestStreamDecodesAudioDeltasAndTranscript(t *testing.T) {
	pcm := []byte{0x10, 0x20, 0x30, 0x40}
	server := httptest.NewServer(sseHandler(
		`{"choices":[{"delta":{"audio":{"data":"`+base64.StdEncoding.EncodeToString(pcm)+`","transcript":"Hi "}}}]}`,
		`{"choices":[{"delta":{"audio":{"transcript":"there."}}}]}`,
		`{"choices":[{"delta":{},"finish_reason":"stop"}]}`,
	))
	defer server.Close()

	client := NewClient(server.URL, "")
	stream, err := client.Stream(context.Background(), model.Request{
		Modalities: []model.Modality{model.ModalityText, model.ModalityAudio},
		Voice:      "Chelsie",
	})
	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}

	var audio []byte
	var transcript string
	for _, chunk := range collectChunks(t, stream) {
		switch typed := chunk.(type) {
		case model.AudioChunk:
			audio = append(audio, typed.Audio()...)
		case model.AudioTranscriptChunk:
			transcript += typed.Transcript()
		}
	}

	if string(audio) != string(pcm) {
		t.Fatalf("expected decoded pcm %v, got %v", pcm, audio)
	}
	if transcript != "Hi there." {
		t.Fatalf("unexpected transcript %q", transcript)
	}
}

func TestRequestCarriesModalitiesToolsAndAuth(t *testing.T) {
	var captured wireRequest
	var authorization string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		sseHandler(`{"choices":[{"delta":{"content":"ok"},"finish_reason":"stop"}]}`)(w, r)
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret", WithModel("qwen-omni-test"))
	stream, err := client.Stream(context.Background(), model.Request{
		Instructions: "be brief",
		Modalities:   []model.Modality{model.ModalityText},
		Messages:     []model.Message{{Role: model.RoleUser, Content: "hello"}},
		Tools: []model.ToolSpec{{
			Name:        "wave",
			Description: "Wave at the user",
			Parameters:  json.RawMessage(`{"type":"object"}`),
		}},
	})
	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}
	collectChunks(t, stream)

	if authorization != "Bearer secret" {
		t.Fatalf("unexpected authorization header %q", authorization)
	}
	if captured.Model != "qwen-omni-test" || !captured.Stream {
		t.Fatalf("unexpected request envelope %+v", captured)
	}
	if len(captured.Modalities) != 1 || captured.Modalities[0] != "text" {
		t.Fatalf("unexpected modalities %v", captured.Modalities)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Fatalf("instructions must lead the message list, got %+v", captured.Messages)
	}
	if len(captured.Tools) != 1 || captured.Tools[0].Function.Name != "wave" {
		t.Fatalf("tool specs must map onto the wire, got %+v", captured.Tools)
	}
	if string(captured.Tools[0].Function.Parameters) != `{"type":"object"}` {
		t.Fatalf("tool schema must pass through, got %s", captured.Tools[0].Function.Parameters)
	}
}
