package system

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// romOnly builds a minimal, valid 32 KiB ROM_ONLY image with the given
// title and code bytes starting at 0x0150 (right after the header).
func romOnly(t *testing.T, title string, code []byte) []byte {
	t.Helper()
	rom := make([]byte, 32*1024)
	copy(rom[0x0134:0x0134+16], title)
	rom[0x0143] = 0x00 // DMG only
	rom[0x0147] = 0x00 // ROM_ONLY
	rom[0x0148] = 0x00 // 32 KiB
	rom[0x0149] = 0x00 // no RAM
	copy(rom[0x0150:], code)
	return rom
}

func writeROM(t *testing.T, rom []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.gb")
	require.NoError(t, os.WriteFile(path, rom, 0o644))
	return path
}

func TestBootROMHandOffUnmapsBootImage(t *testing.T) {
	// The guest ROM's byte 0 differs from the boot ROM's byte 0; after
	// the boot ROM writes 0x01 to 0xFF50, reading 0x0000 must return the
	// cartridge's byte, not the boot ROM's (spec.md §8 scenario 1).
	rom := romOnly(t, "TEST", nil)
	rom[0x0000] = 0xAA

	bootROM := make([]byte, 0x100)
	bootROM[0x0000] = 0x3E // LD A,0x01
	bootROM[0x0001] = 0x01
	bootROM[0x0002] = 0xE0 // LDH (0xFF50),A -- unmap boot ROM
	bootROM[0x0003] = 0x50

	path := writeROM(t, rom)

	s := New(false)
	require.NoError(t, s.LoadCartridge(path))
	s.SetBootROM(bootROM)

	require.Equal(t, uint16(0x0000), s.cpu.PC())
	require.Equal(t, byte(0x3E), s.mmu.Read(0x0000), "boot ROM should be mapped at start")

	for i := 0; i < 4; i++ {
		s.StepOneInstruction()
	}

	require.Equal(t, byte(0xAA), s.mmu.Read(0x0000), "cartridge byte 0 must be visible once the boot ROM unmaps")
}

func TestMBC1BankSwitchExposesBank2At0x4000(t *testing.T) {
	rom := make([]byte, 128*1024) // 8 banks
	copy(rom[0x0134:0x0134+16], "TEST")
	rom[0x0143] = 0x00
	rom[0x0147] = 0x01 // MBC1
	rom[0x0148] = 0x03 // 128 KiB (8 banks)
	rom[0x0149] = 0x00
	rom[0x8000] = 0xAA // bank 2, offset 0

	path := writeROM(t, rom)

	s := New(false)
	require.NoError(t, s.LoadCartridge(path))

	s.mmu.Write(0x2100, 0x02) // select ROM bank 2
	require.Equal(t, byte(0xAA), s.mmu.Read(0x4000))
}

func TestOAMDMABlackoutDropsWritesOutsideHRAM(t *testing.T) {
	rom := romOnly(t, "TEST", nil)
	path := writeROM(t, rom)

	s := New(false)
	require.NoError(t, s.LoadCartridge(path))

	s.mmu.Write(0xC001, 0x11)
	s.mmu.Write(0xFF46, 0xC0) // start OAM-DMA from 0xC000

	s.mmu.Write(0xC001, 0x22) // dropped: DMA active, address outside HRAM
	s.mmu.Write(0xFF80, 0x33) // must still succeed

	require.Equal(t, byte(0x11), s.mmu.Read(0xC001), "write during active DMA must be dropped")
	require.Equal(t, byte(0x33), s.mmu.Read(0xFF80))
}
