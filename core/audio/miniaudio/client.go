// Package miniaudio drives default capture and playback devices through
// malgo. Both device callbacks delegate to functions supplied at Start, so
// the caller decides what happens on the real-time threads.
package miniaudio

import (
	"fmt"

	"github.com/eidolonlabs/eidolon-core/core/audio"
	"github.com/gen2brain/malgo"
)

type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext

	captureClient
	playbackClient
}

func NewClient() (*Client, error) {
	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	return &Client{audioContext: audioCtx}, nil
}

// Start initializes and starts both devices. capture receives each captured
// buffer; render must fill its buffer completely on every call.
func (c *Client) Start(capture func(pcm []byte), render func(out []byte)) error {
	if err := c.captureClient.Init(c.audioContext, capture); err != nil {
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}
	if err := c.playbackClient.Init(c.audioContext, render); err != nil {
		_ = c.captureClient.Uninit()
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := c.captureClient.Start(); err != nil {
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	if err := c.playbackClient.Start(); err != nil {
		_ = c.captureClient.Stop()
		return fmt.Errorf("failed to start playback device: %w", err)
	}
	return nil
}

func (c *Client) Stop() error {
	captureErr := c.captureClient.Stop()
	playbackErr := c.playbackClient.Stop()
	if captureErr != nil {
		return captureErr
	}
	return playbackErr
}

func (c *Client) Close() error {
	_ = c.captureClient.Uninit()
	_ = c.playbackClient.Uninit()
	if c.audioContext != nil {
		_ = c.audioContext.Uninit()
		c.audioContext.Free()
		c.audioContext = nil
	}
	return nil
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: audio.DefaultSampleRate,
		Format:     audio.EncodingLinear16,
	}
}
