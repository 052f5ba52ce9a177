// Package host defines the contracts an external front end implements
// to drive an internal/system.System: how it receives finished frames,
// how it reports controller state, and how it would pull audio samples
// if synthesis were in scope. None of internal/system imports this
// package; it exists so front ends (internal/render/terminal, tests,
// or a future GUI) share one vocabulary instead of each inventing
// their own callback shapes.
package host

import "github.com/dmg-core/sharpboy/internal/video"

// FrameSink receives a completed frame. Implementations must copy the
// buffer (or otherwise establish exclusive access) before returning,
// since the PPU overwrites it in place starting the next frame.
type FrameSink interface {
	SubmitFrame(*video.FrameBuffer)
}

// FrameSinkFunc adapts a plain function to a FrameSink.
type FrameSinkFunc func(*video.FrameBuffer)

func (f FrameSinkFunc) SubmitFrame(fb *video.FrameBuffer) { f(fb) }

// Button identifies one of the eight physical inputs, independent of
// any particular front end's key bindings.
type Button uint8

const (
	Right Button = iota
	Left
	Up
	Down
	A
	B
	Select
	Start
)

// InputSource is polled once per frame by the scheduler's caller; it
// reports the currently pressed set of buttons as two bitmasks using
// the bit layout System.SetInput expects (bit0=A/Right, bit1=B/Left,
// bit2=Select/Up, bit3=Start/Down).
type InputSource interface {
	PollInput() (actionMask, directionMask uint8)
}

// AudioSink would receive synthesized samples if audio synthesis were
// in scope; it is defined here so a future implementation has a home
// without changing internal/apu's register-file contract. No shipped
// front end in this repository implements it.
type AudioSink interface {
	SubmitSamples(samples []int16)
}
