package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmg-core/sharpboy/internal/addr"
)

type fakeBus struct {
	vram [2][0x2000]byte
	oam  [0xA0]byte
}

func (f *fakeBus) ReadVRAMBank(bank int, address uint16) byte {
	return f.vram[bank][address-addr.VRAMStart]
}
func (f *fakeBus) WriteVRAMBank(bank int, address uint16, value byte) {
	f.vram[bank][address-addr.VRAMStart] = value
}
func (f *fakeBus) ReadOAM(address uint16) byte  { return f.oam[address-addr.OAMStart] }
func (f *fakeBus) WriteOAM(address uint16, value byte) { f.oam[address-addr.OAMStart] = value }
func (f *fakeBus) ReadHDMASource(address uint16) byte {
	if address >= addr.VRAMStart && address <= addr.VRAMEnd {
		return f.ReadVRAMBank(0, address)
	}
	return 0
}

type fakeIRQ struct {
	requested []addr.Interrupt
}

func (f *fakeIRQ) RequestInterrupt(i addr.Interrupt) { f.requested = append(f.requested, i) }

func TestPPUModeCycleAndVBlankInterrupt(t *testing.T) {
	bus := &fakeBus{}
	irq := &fakeIRQ{}
	p := New(bus, irq, false)
	p.Write(addr.LCDC, 0x91)

	assert.Equal(t, ModeOAMSearch, p.Mode())

	p.Tick(oamSearchDots)
	assert.Equal(t, ModePixelTransfer, p.Mode())

	p.Tick(pixelTransferDots)
	assert.Equal(t, ModeHBlank, p.Mode())

	p.Tick(hblankDots)
	assert.Equal(t, byte(1), p.Read(addr.LY))

	// advance to line 144: entering vblank raises the interrupt.
	for i := 0; i < 143; i++ {
		p.Tick(dotsPerLine)
	}
	require.NotEmpty(t, irq.requested)
	assert.Contains(t, irq.requested, addr.VBlank)
	assert.Equal(t, ModeVBlank, p.Mode())
}

func TestPPULYCInterruptOnMatch(t *testing.T) {
	bus := &fakeBus{}
	irq := &fakeIRQ{}
	p := New(bus, irq, false)
	p.Write(addr.LCDC, 0x91)
	p.Write(addr.STAT, 0x40) // enable LYC=LY STAT interrupt source
	p.Write(addr.LYC, 0x01)

	p.Tick(dotsPerLine) // line 0 -> 1, LY == LYC

	assert.Contains(t, irq.requested, addr.LCDStat)
}

func TestOAMDMACopiesIntoOAM(t *testing.T) {
	bus := &fakeBus{}
	for i := 0; i < 0xA0; i++ {
		bus.vram[0][i] = byte(i + 1)
	}
	p := New(bus, nil, false)
	p.startOAMDMA(0x80) // source 0x8000, which is VRAM start

	for i := 0; i < 0xA0; i++ {
		assert.Equal(t, byte(i+1), bus.oam[i])
	}
	assert.True(t, p.OAMBlocked())
}

func TestHDMADestinationRegistersResolveIntoVRAMBase(t *testing.T) {
	bus := &fakeBus{}
	p := New(bus, nil, true)

	p.Write(addr.HDMA3, 0x00) // dest high nibble 0x00: must still resolve into 0x8000-0x9FF0
	p.Write(addr.HDMA4, 0x00)
	assert.Equal(t, uint16(0x8000), p.hdmaDst, "destination must never underflow below 0x8000")

	p.Write(addr.HDMA3, 0x1F)
	p.Write(addr.HDMA4, 0xFF)
	assert.Equal(t, uint16(0x9FF0), p.hdmaDst, "destination high bits and base must combine correctly")
}

func TestGDMATransferCopiesIntoVRAMWithoutPanicking(t *testing.T) {
	bus := &fakeBus{}
	p := New(bus, nil, true)

	for i := range bus.vram[0] {
		bus.vram[0][i] = 0
	}
	bus.vram[0][0] = 0xAA // source byte at VRAM 0x8000, read back through ReadHDMASource

	p.Write(addr.HDMA1, 0x80) // source 0x8000
	p.Write(addr.HDMA2, 0x00)
	p.Write(addr.HDMA3, 0x01) // destination 0x9000
	p.Write(addr.HDMA4, 0x00)
	p.Write(addr.HDMA5, 0x00) // GDMA, one 0x10-byte block

	assert.Equal(t, byte(0xAA), bus.vram[0][0x1000], "block must land at destination 0x9000, not underflow")
}

func TestSpritePriorityLowerXWins(t *testing.T) {
	bus := &fakeBus{}
	search := newOAMSearch(oamBusAdapter{bus})

	writeSprite := func(index int, y, x, tile, flags byte) {
		base := addr.OAMStart + uint16(index*4)
		bus.oam[base-addr.OAMStart] = y
		bus.oam[base-addr.OAMStart+1] = x
		bus.oam[base-addr.OAMStart+2] = tile
		bus.oam[base-addr.OAMStart+3] = flags
	}

	writeSprite(0, 16, 13, 0, 0) // x=5 on-screen
	writeSprite(1, 16, 18, 0, 0) // x=10 on-screen

	sprites := search.scanline(0, 8, false)
	require.Len(t, sprites, 2)
	assert.Equal(t, 0, search.priority.owner[5])
	assert.Equal(t, 1, search.priority.owner[13])
}
