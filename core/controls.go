package orchestration

import (
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// RateLimit configures a per-tool limiter.
type RateLimit struct {
	PerSecond float64
	Burst     int
}

// GovernorControls is the process-wide governance state shared by every
// turn: the kill switch and the per-tool rate limiters. It is initialized
// once at startup and passed by reference to the governor; limiter state
// survives across turns and resets only on process restart. Reads are
// lock-free on the hot path and it is never touched from the real-time
// domain.
type GovernorControls struct {
	killSwitch atomic.Bool

	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

func NewGovernorControls(killSwitch bool, limits map[string]RateLimit) *GovernorControls {
	controls := &GovernorControls{limiters: make(map[string]*rate.Limiter, len(limits))}
	controls.killSwitch.Store(killSwitch)

	for name, limit := range limits {
		if limit.PerSecond <= 0 {
			continue
		}
		burst := limit.Burst
		if burst < 1 {
			burst = 1
		}
		controls.limiters[name] = rate.NewLimiter(rate.Limit(limit.PerSecond), burst)
	}
	return controls
}

// KillSwitch reports whether all tool execution is short-circuited.
func (c *GovernorControls) KillSwitch() bool { return c.killSwitch.Load() }

// SetKillSwitch flips the process-wide kill switch.
func (c *GovernorControls) SetKillSwitch(on bool) { c.killSwitch.Store(on) }

// allowRate consumes one token from the tool's limiter, failing fast when
// the configured rate is exceeded. Tools without a limiter are unthrottled.
func (c *GovernorControls) allowRate(tool string) bool {
	c.mu.RLock()
	limiter, ok := c.limiters[tool]
	c.mu.RUnlock()

	if !ok {
		return true
	}
	return limiter.Allow()
}
