// Package video implements the PPU: the mode state machine, scanline
// renderer, OAM search, OAM-DMA and (for CGB carts) HDMA/GDMA described
// in spec.md §4.3.
package video

// Width and Height are the fixed DMG/CGB screen dimensions.
const (
	Width  = 160
	Height = 144
)

// Color is a packed 0xAARRGGBB pixel, matching the little host-facing
// contract in pkg/host: callers can hand the buffer straight to an
// image.RGBA-compatible sink without a conversion pass.
type Color uint32

// FrameBuffer holds one composited 160x144 frame.
type FrameBuffer struct {
	pixels [Width * Height]Color
}

// NewFrameBuffer creates a black frame buffer.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{}
}

// Set stores the color of pixel (x, y).
func (f *FrameBuffer) Set(x, y int, c Color) {
	f.pixels[y*Width+x] = c
}

// At returns the color of pixel (x, y).
func (f *FrameBuffer) At(x, y int) Color {
	return f.pixels[y*Width+x]
}

// Pixels exposes the backing array for host consumption; callers must
// not retain it past the next frame (the PPU overwrites rows in place).
func (f *FrameBuffer) Pixels() []Color {
	return f.pixels[:]
}
