package audio

import "time"

// Frame is a single captured or synthesized audio buffer. It is immutable
// after creation; producers must hand over a buffer they no longer touch.
type Frame struct {
	PCM       []byte
	Encoding  EncodingInfo
	Timestamp time.Time
}

// NewFrame copies pcm into a fresh buffer so the caller can keep reusing its
// own. Capture callbacks hand us a slice owned by the device layer.
func NewFrame(pcm []byte, encoding EncodingInfo) Frame {
	buf := make([]byte, len(pcm))
	copy(buf, pcm)
	return Frame{PCM: buf, Encoding: encoding, Timestamp: time.Now()}
}

// Duration reports how long the frame plays for at its encoding.
func (f Frame) Duration() time.Duration {
	byteRate := f.Encoding.SampleRate * f.Encoding.Format.ByteSize()
	if byteRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(f.PCM)) / float64(byteRate) * float64(time.Second))
}
