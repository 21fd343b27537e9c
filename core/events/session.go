package events

import "time"

const (
	// KindSessionExpiring identifies a duplex session nearing its lifetime bound.
	KindSessionExpiring Kind = "session.expiring"
	// KindSessionRotated identifies a completed session hand-off.
	KindSessionRotated Kind = "session.rotated"
	// KindSessionError identifies a transport failure on the duplex session.
	KindSessionError Kind = "session.error"
	// KindDeviceError identifies an audio device failure.
	KindDeviceError Kind = "audio_device.error"
)

// SessionExpiring announces that the duplex session will be rotated before
// Deadline. A replacement session is already being opened.
type SessionExpiring struct {
	Base
	Deadline time.Time
}

func NewSessionExpiring(deadline time.Time, opts ...BaseOption) SessionExpiring {
	return SessionExpiring{Base: NewBase(KindSessionExpiring, opts...), Deadline: deadline}
}

// SessionRotated marks completion of a session hand-off.
type SessionRotated struct {
	Base
	ReplacedSessionID string
}

func NewSessionRotated(replacedSessionID string, opts ...BaseOption) SessionRotated {
	return SessionRotated{Base: NewBase(KindSessionRotated, opts...), ReplacedSessionID: replacedSessionID}
}

// SessionError reports a transport failure. Fatal is set only once the
// adapter has exhausted its reconnect budget.
type SessionError struct {
	Base
	Error string
	Fatal bool
}

func NewSessionError(err string, fatal bool, opts ...BaseOption) SessionError {
	return SessionError{Base: NewBase(KindSessionError, opts...), Error: err, Fatal: fatal}
}

// DeviceError reports an audio device failure. It is always emitted from the
// cooperative domain, never from inside a real-time callback.
type DeviceError struct {
	Base
	Device string
	Error  string
}

func NewDeviceError(device, err string, opts ...BaseOption) DeviceError {
	return DeviceError{Base: NewBase(KindDeviceError, opts...), Device: device, Error: err}
}
