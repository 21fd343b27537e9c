// Package portaudio is an alternative device backend driving a single
// full-duplex stream through a blocking read/write loop instead of device
// callbacks.
package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/eidolonlabs/eidolon-core/core/audio"
	"github.com/gordonklaus/portaudio"
)

type Client struct {
	bufferSize int
	stream     *portaudio.Stream

	in  []int16
	out []int16

	cancel    context.CancelFunc
	closeOnce sync.Once
}

func NewClient(bufferSize int) (*Client, error) {
	if bufferSize <= 0 {
		bufferSize = audio.DefaultSampleRate / 100
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	in := make([]int16, bufferSize)
	out := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 1, audio.DefaultSampleRate, bufferSize, in, out)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to open portaudio stream: %w", err)
	}

	return &Client{
		bufferSize: bufferSize,
		stream:     stream,
		in:         in,
		out:        out,
	}, nil
}

// Start runs the duplex loop on its own goroutine. Each iteration reads one
// capture buffer, hands it to capture, asks render to fill the playback
// buffer and writes it out.
func (c *Client) Start(capture func(pcm []byte), render func(out []byte)) error {
	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("failed to start portaudio stream: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	go func() {
		captured := make([]byte, c.bufferSize*2)
		rendered := make([]byte, c.bufferSize*2)
		for ctx.Err() == nil {
			if err := c.stream.Read(); err == nil {
				buffer := bytes.Buffer{}
				_ = binary.Write(&buffer, binary.LittleEndian, c.in)
				copy(captured, buffer.Bytes())
				capture(captured)
			}

			render(rendered)
			_ = binary.Read(bytes.NewReader(rendered), binary.LittleEndian, c.out)
			_ = c.stream.Write()
		}
	}()
	return nil
}

func (c *Client) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return c.stream.Stop()
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		err = c.stream.Close()
		_ = portaudio.Terminate()
	})
	return err
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: audio.DefaultSampleRate,
		Format:     audio.EncodingLinear16,
	}
}
