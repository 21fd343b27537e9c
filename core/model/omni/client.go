// Package omni streams turn-scoped requests against an OpenAI-compatible
// chat completions endpoint with multimodal output, as served by Qwen-omni
// style deployments. PLAN turns request text only; SPEAK turns request text
// plus base64 audio deltas.
package omni

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/eidolonlabs/eidolon-core/core/model"
	"github.com/jinzhu/copier"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Client struct {
	endpoint string
	apiKey   string
	model    string

	httpClient *http.Client
}

type ClientOption func(*Client)

func WithModel(name string) ClientOption {
	return func(c *Client) { c.model = name }
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

func NewClient(endpoint, apiKey string, opts ...ClientOption) *Client {
	client := &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    "qwen-omni-turbo",
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   5 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (c *Client) Stream(ctx context.Context, request model.Request) (model.Stream, error) {
	ctx, span := tracer.Start(ctx, "model stream")

	body, err := json.Marshal(c.wireRequest(request))
	if err != nil {
		span.End()
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		span.End()
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		httpRequest.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	response, err := c.httpClient.Do(httpRequest)
	if err != nil {
		span.End()
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(response.Body, 4096))
		response.Body.Close()
		span.End()
		return nil, fmt.Errorf("model endpoint returned %s: %s", response.Status, detail)
	}

	return newSSEStream(response.Body, span), nil
}

func (c *Client) wireRequest(request model.Request) wireRequest {
	wire := wireRequest{
		Model:  c.model,
		Stream: true,
	}

	for _, modality := range request.Modalities {
		wire.Modalities = append(wire.Modalities, string(modality))
	}
	if request.Voice != "" {
		wire.Audio = &wireAudioConfig{Voice: request.Voice, Format: "pcm16"}
	}

	if request.Instructions != "" {
		wire.Messages = append(wire.Messages, wireMessage{Role: "system", Content: request.Instructions})
	}
	for _, message := range request.Messages {
		wire.Messages = append(wire.Messages, wireMessageFrom(message))
	}

	for _, spec := range request.Tools {
		var function wireFunction
		// Field-for-field mapping; the wire shape mirrors the spec shape.
		if err := copier.Copy(&function, &spec); err != nil {
			continue
		}
		wire.Tools = append(wire.Tools, wireTool{Type: "function", Function: function})
	}
	return wire
}
