package video

import (
	"github.com/dmg-core/sharpboy/internal/addr"
	"github.com/dmg-core/sharpboy/internal/bit"
)

// sprite is one entry read out of OAM for the current scanline.
type sprite struct {
	y, x      int
	tileIndex uint8
	oamIndex  int
	height    int

	paletteOBP1 bool // DMG only: false selects OBP0, true OBP1
	cgbPalette  uint8
	cgbBank     int
	flipX       bool
	flipY       bool
	behindBG    bool
}

func (s *sprite) parseFlags(flags byte, cgb bool) {
	s.paletteOBP1 = bit.IsSet(4, flags)
	s.flipX = bit.IsSet(5, flags)
	s.flipY = bit.IsSet(6, flags)
	s.behindBG = bit.IsSet(7, flags)
	if cgb {
		s.cgbBank = 0
		if bit.IsSet(3, flags) {
			s.cgbBank = 1
		}
		s.cgbPalette = flags & 0x07
	}
}

// oamBus is the address-space slice OAM search needs.
type oamBus interface {
	ReadOAM(address uint16) byte
}

// spritePriority resolves per-pixel sprite ownership for a scanline
// using the same X-then-OAM-index rule real DMG hardware applies: the
// sprite with the lowest X wins, ties broken by lower OAM index. This
// pixel-ownership model avoids sorting sprites outright.
type spritePriority struct {
	owner  [Width]int
	ownerX [Width]int
}

func (p *spritePriority) reset() {
	for i := range p.owner {
		p.owner[i] = -1
		p.ownerX[i] = 0xFF
	}
}

func (p *spritePriority) claim(pixelX, spriteIndex, spriteX int) {
	if pixelX < 0 || pixelX >= Width {
		return
	}
	current := p.owner[pixelX]
	if current == -1 || spriteX < p.ownerX[pixelX] ||
		(spriteX == p.ownerX[pixelX] && spriteIndex < current) {
		p.owner[pixelX] = spriteIndex
		p.ownerX[pixelX] = spriteX
	}
}

// oamSearch scans the 40 OAM entries for a scanline, returning at most
// 10 sprites (the hardware limit) with DMG-style priority pre-resolved
// as a per-pixel ownership set. CGB priority (OAM index order only,
// ignoring X) is applied by the caller when cgb is true.
type oamSearch struct {
	bus      oamBus
	priority spritePriority
	buffer   [10]sprite
}

func newOAMSearch(bus oamBus) *oamSearch {
	return &oamSearch{bus: bus}
}

// scanline returns the sprites overlapping the given line, in OAM
// order, along with the resolved priority table (nil when cgb is
// true, since CGB resolves priority by draw order instead).
func (o *oamSearch) scanline(line int, spriteHeight int, cgb bool) []sprite {
	sprites := o.buffer[:0]
	o.priority.reset()

	for i := 0; i < 40; i++ {
		base := addr.OAMStart + uint16(i*4)
		rawY := int(o.bus.ReadOAM(base)) - 16
		if line < rawY || line >= rawY+spriteHeight {
			continue
		}

		rawX := int(o.bus.ReadOAM(base + 1))
		s := sprite{
			y:         rawY,
			x:         rawX - 8,
			tileIndex: o.bus.ReadOAM(base + 2),
			oamIndex:  i,
			height:    spriteHeight,
		}
		s.parseFlags(o.bus.ReadOAM(base+3), cgb)
		sprites = append(sprites, s)

		if !cgb {
			for px := 0; px < 8; px++ {
				o.priority.claim(s.x+px, s.oamIndex, s.x)
			}
		}

		if len(sprites) == 10 {
			break
		}
	}

	copy(o.buffer[:], sprites)
	return o.buffer[:len(sprites)]
}
