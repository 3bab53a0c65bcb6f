// Package clock provides wall-clock pacing for the machine's frame loop:
// FPS tracking and optional real-time frame limiting. It does not drive
// component timing; the CPU's Tick hook does that (see internal/machine).
package clock

import "time"

// Clock tracks achieved frames-per-second and can sleep to cap the host
// loop at a target rate.
type Clock struct {
	FrameLimitEnabled bool
	TargetFPS         float64
	FrameTime         time.Duration
	LastFrameTime     time.Time

	FPS           float64
	FrameCount    uint64
	FPSUpdateTime time.Time
}

// New constructs a clock targeting 59.7 Hz, the DMG's real frame rate
// (2^22 T-cycles/sec / 70224 T-cycles per frame), with frame limiting enabled.
func New() *Clock {
	dmgFPS := 4194304.0 / 70224.0
	now := time.Now()
	return &Clock{
		FrameLimitEnabled: true,
		TargetFPS:         dmgFPS,
		FrameTime:         time.Duration(float64(time.Second) / dmgFPS),
		LastFrameTime:     now,
		FPSUpdateTime:     now,
	}
}

// EndFrame records that one frame completed, updates the rolling FPS
// counter, and sleeps if frame limiting is on and the frame ran ahead of
// schedule.
func (c *Clock) EndFrame() {
	c.FrameCount++
	now := time.Now()
	if now.Sub(c.FPSUpdateTime) >= time.Second {
		c.FPS = float64(c.FrameCount) / now.Sub(c.FPSUpdateTime).Seconds()
		c.FrameCount = 0
		c.FPSUpdateTime = now
	}

	if c.FrameLimitEnabled {
		elapsed := now.Sub(c.LastFrameTime)
		if elapsed < c.FrameTime {
			time.Sleep(c.FrameTime - elapsed)
		}
		c.LastFrameTime = time.Now()
	} else {
		c.LastFrameTime = now
	}
}

// SetFrameLimit toggles real-time pacing (disable for headless/fast-forward
// runs).
func (c *Clock) SetFrameLimit(enabled bool) {
	c.FrameLimitEnabled = enabled
}

// Reset restarts FPS accounting, used after a ROM reload.
func (c *Clock) Reset() {
	now := time.Now()
	c.FPS = 0
	c.FrameCount = 0
	c.FPSUpdateTime = now
	c.LastFrameTime = now
}
