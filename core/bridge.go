package orchestration

import (
	"context"
	"sync"

	"github.com/eidolonlabs/eidolon-core/core/audio"
	"github.com/eidolonlabs/eidolon-core/core/events"
)

// audioBridge shields the real-time capture/render boundary from the rest of
// the system. The capture callback copies the device buffer and does a
// non-blocking send; the render callback drains frames or fills silence.
// Neither ever suspends, and a panic across the callback boundary is a
// defect, not a recoverable condition.
type audioBridge struct {
	encoding audio.EncodingInfo

	inbound  *bounded[audio.Frame]
	outbound *bounded[audio.Frame]

	emit eventEmitter

	mu           sync.Mutex
	turnID       string
	onFirstAudio func()
	leftover     []byte

	closeOnce sync.Once
}

type audioBridgeConfig struct {
	Encoding       audio.EncodingInfo
	InboundCap     int
	InboundPolicy  OverflowPolicy
	OutboundCap    int
	OutboundPolicy OverflowPolicy
}

func newAudioBridge(config audioBridgeConfig, emit eventEmitter) *audioBridge {
	if config.Encoding.IsZero() {
		config.Encoding = audio.GetDefaultEncodingInfo()
	}
	if emit == nil {
		emit = noopEventEmitter
	}

	return &audioBridge{
		encoding: config.Encoding,
		inbound:  newBounded[audio.Frame](config.InboundCap, config.InboundPolicy),
		outbound: newBounded[audio.Frame](config.OutboundCap, config.OutboundPolicy),
		emit:     emit,
	}
}

// CaptureCallback runs on the real-time capture thread. It copies pcm into a
// fresh frame and hands it over without blocking; under backpressure the
// channel policy drops frames rather than stalling capture.
func (b *audioBridge) CaptureCallback(pcm []byte) {
	if len(pcm) == 0 {
		return
	}
	b.inbound.Send(audio.NewFrame(pcm, b.encoding))
}

// RenderCallback runs on the real-time render thread. It fills out from
// queued frames and silence-fills on underrun instead of blocking.
func (b *audioBridge) RenderCallback(out []byte) {
	b.mu.Lock()
	filled := copy(out, b.leftover)
	b.leftover = b.leftover[filled:]
	b.mu.Unlock()

	for filled < len(out) {
		frame, ok := b.outbound.TryReceive()
		if !ok {
			break
		}
		n := copy(out[filled:], frame.PCM)
		filled += n
		if n < len(frame.PCM) {
			b.mu.Lock()
			b.leftover = append(b.leftover, frame.PCM[n:]...)
			b.mu.Unlock()
		}
	}

	silence := b.encoding.SilenceValue()
	for i := filled; i < len(out); i++ {
		out[i] = silence
	}
}

// PlayModelAudio queues one model-originated audio frame for rendering. The
// first successful write after ArmTurn is the observable "speaking has
// started" signal for that turn.
func (b *audioBridge) PlayModelAudio(pcm []byte) bool {
	if !b.outbound.Send(audio.NewFrame(pcm, b.encoding)) {
		return false
	}

	b.mu.Lock()
	onFirstAudio := b.onFirstAudio
	turnID := b.turnID
	b.onFirstAudio = nil
	b.mu.Unlock()

	if onFirstAudio != nil {
		b.emit(events.NewAssistantSpeechStarted(events.ForTurn(turnID)))
		onFirstAudio()
	}
	return true
}

// ArmTurn arms the first-audio latch for a new turn. onFirstAudio fires at
// most once, on the first successful model audio write that follows.
func (b *audioBridge) ArmTurn(turnID string, onFirstAudio func()) {
	b.mu.Lock()
	b.turnID = turnID
	b.onFirstAudio = onFirstAudio
	b.mu.Unlock()
}

// DisarmTurn clears an unfired latch at turn teardown.
func (b *audioBridge) DisarmTurn() {
	b.mu.Lock()
	b.turnID = ""
	b.onFirstAudio = nil
	b.mu.Unlock()
}

// NextCapturedFrame suspends the cooperative caller until a captured frame
// is available or the bridge closes.
func (b *audioBridge) NextCapturedFrame(ctx context.Context) (audio.Frame, bool) {
	return b.inbound.Receive(ctx)
}

// ReportDeviceError publishes a device failure as an event. Device clients
// call it from the cooperative domain, never from a callback.
func (b *audioBridge) ReportDeviceError(device string, err error) {
	b.emit(events.NewDeviceError(device, err.Error()))
}

func (b *audioBridge) EncodingInfo() audio.EncodingInfo { return b.encoding }

func (b *audioBridge) DroppedCaptureFrames() uint64 { return b.inbound.Dropped() }
func (b *audioBridge) DroppedRenderFrames() uint64  { return b.outbound.Dropped() }

func (b *audioBridge) Close() {
	b.closeOnce.Do(func() {
		b.inbound.Close()
		b.outbound.Close()
	})
}
