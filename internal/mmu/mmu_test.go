package mmu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmg-core/sharpboy/internal/addr"
	"github.com/dmg-core/sharpboy/internal/cartridge"
)

func romOnlyCartridge(t *testing.T) *cartridge.Cartridge {
	t.Helper()
	rom := make([]byte, 0x8000)
	rom[0x0147] = 0x00 // ROM ONLY
	rom[0x0148] = 0x00 // 32 KiB, no banking
	copy(rom[0x0134:], []byte("TESTROM"))
	cart, err := cartridge.New(rom)
	require.NoError(t, err)
	return cart
}

func TestEchoRAMMirrorsWorkRAM(t *testing.T) {
	m := New(false)
	m.LoadCartridge(romOnlyCartridge(t))

	m.Write(0xC010, 0x77)
	assert.Equal(t, byte(0x77), m.Read(0xE010), "echo RAM must mirror work RAM reads")

	m.Write(0xE020, 0x99)
	assert.Equal(t, byte(0x99), m.Read(0xC020), "writes through echo RAM land in work RAM")
}

func TestBootROMOverlayUnmapsOnBankWrite(t *testing.T) {
	m := New(false)
	m.LoadCartridge(romOnlyCartridge(t))
	m.SetBootROM([]byte{0xAA, 0xBB})

	assert.Equal(t, byte(0xAA), m.Read(0x0000), "boot ROM shadows cartridge ROM while mapped")

	m.Write(addr.BANK, 0x01)
	assert.NotEqual(t, byte(0xAA), m.Read(0x0000), "writing BANK unmaps the boot ROM")
}

func TestInterruptFlagUpperBitsReadAsOne(t *testing.T) {
	m := New(false)
	m.LoadCartridge(romOnlyCartridge(t))

	m.Write(addr.IF, 0x01)
	assert.Equal(t, byte(0xE1), m.Read(addr.IF), "unused IF bits always read as 1")
}

func TestWorkRAMBankSwitchOnCGB(t *testing.T) {
	m := New(true)
	m.LoadCartridge(romOnlyCartridge(t))

	m.Write(0xD000, 0x11) // bank 1 (default)
	m.Write(addr.SVBK, 0x02)
	m.Write(0xD000, 0x22)

	m.Write(addr.SVBK, 0x01)
	assert.Equal(t, byte(0x11), m.Read(0xD000))

	m.Write(addr.SVBK, 0x02)
	assert.Equal(t, byte(0x22), m.Read(0xD000))
}

func TestSVBKZeroAliasesToBankOne(t *testing.T) {
	m := New(true)
	m.LoadCartridge(romOnlyCartridge(t))

	m.Write(addr.SVBK, 0x01)
	m.Write(0xD000, 0x55)
	m.Write(addr.SVBK, 0x00)
	assert.Equal(t, byte(0x55), m.Read(0xD000), "SVBK=0 must alias to bank 1")
}

func TestUnusableOAMRangeReadsHighImpedance(t *testing.T) {
	m := New(false)
	m.LoadCartridge(romOnlyCartridge(t))
	assert.Equal(t, byte(0xFF), m.Read(0xFEA0))
}

// fakePPU lets mmu_test.go force the OAM/VRAM/DMA gates on without
// driving a real PPU through a full scanline.
type fakePPU struct {
	oamBlocked, vramBlocked, dmaActive bool
}

func (f *fakePPU) Read(address uint16) byte         { return 0 }
func (f *fakePPU) Write(address uint16, value byte) {}
func (f *fakePPU) Tick(cycles int)                  {}
func (f *fakePPU) VRAMBank() int                    { return 0 }
func (f *fakePPU) OAMBlocked() bool                 { return f.oamBlocked }
func (f *fakePPU) VRAMBlocked() bool                { return f.vramBlocked }
func (f *fakePPU) DMAActive() bool                  { return f.dmaActive }

func TestOAMGateBlocksAccessByDefault(t *testing.T) {
	m := New(false)
	m.LoadCartridge(romOnlyCartridge(t))
	m.AttachPPU(&fakePPU{oamBlocked: true})

	m.Write(addr.OAMStart, 0x42)
	assert.Equal(t, byte(0xFF), m.Read(addr.OAMStart), "OAM writes/reads are gated off during PIXEL_XFER/OAM_SCAN")
}

func TestRespectIllegalReadsWritesRelaxesOAMGate(t *testing.T) {
	m := New(false)
	m.LoadCartridge(romOnlyCartridge(t))
	m.AttachPPU(&fakePPU{oamBlocked: true})
	m.SetRespectIllegalReadsWrites(true)

	m.Write(addr.OAMStart, 0x42)
	assert.Equal(t, byte(0x42), m.Read(addr.OAMStart), "the relaxation flag lets a test ROM see through the OAM gate")
}

func TestRespectIllegalReadsWritesRelaxesDMABlackout(t *testing.T) {
	m := New(false)
	m.LoadCartridge(romOnlyCartridge(t))
	m.AttachPPU(&fakePPU{dmaActive: true})
	m.SetRespectIllegalReadsWrites(true)

	m.Write(0xC001, 0x99)
	assert.Equal(t, byte(0x99), m.Read(0xC001), "the relaxation flag lets writes through the OAM-DMA blackout")
}
