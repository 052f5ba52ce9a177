package savestate_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmg-core/sharpboy/internal/savestate"
	"github.com/dmg-core/sharpboy/internal/system"
)

// romOnly builds a minimal, valid 32 KiB ROM_ONLY image with code
// starting at 0x0150 (right after the header).
func romOnly(t *testing.T, code []byte) string {
	t.Helper()
	rom := make([]byte, 32*1024)
	copy(rom[0x0134:0x0134+16], "TEST")
	rom[0x0147] = 0x00 // ROM_ONLY
	rom[0x0148] = 0x00 // 32 KiB
	rom[0x0149] = 0x00 // no RAM
	copy(rom[0x0150:], code)

	path := filepath.Join(t.TempDir(), "test.gb")
	require.NoError(t, os.WriteFile(path, rom, 0o644))
	return path
}

func TestSaveLoadRoundTripsCPUAndMemoryState(t *testing.T) {
	// LD A,0x42; LD (0xC000),A; LD SP,0x1234
	code := []byte{0x3E, 0x42, 0xEA, 0x00, 0xC0, 0x31, 0x34, 0x12}

	sys := system.New(false)
	require.NoError(t, sys.LoadCartridge(romOnly(t, code)))

	for i := 0; i < 4; i++ {
		sys.StepOneInstruction()
	}

	var buf bytes.Buffer
	require.NoError(t, savestate.Save(&buf, sys))

	fresh := system.New(false)
	require.NoError(t, fresh.LoadCartridge(romOnly(t, code)))
	require.NoError(t, savestate.Load(&buf, fresh))

	snapOriginal := sys.ExportState()
	snapRestored := fresh.ExportState()
	require.Equal(t, snapOriginal, snapRestored)
}

func TestLoadRejectsCorruptChecksum(t *testing.T) {
	sys := system.New(false)
	require.NoError(t, sys.LoadCartridge(romOnly(t, nil)))

	var buf bytes.Buffer
	require.NoError(t, savestate.Save(&buf, sys))

	corrupt := buf.Bytes()
	corrupt[len(corrupt)-1] ^= 0xFF

	err := savestate.Load(bytes.NewReader(corrupt), sys)
	require.Error(t, err)
}

func TestLoadRejectsTruncatedFile(t *testing.T) {
	sys := system.New(false)
	require.NoError(t, sys.LoadCartridge(romOnly(t, nil)))

	err := savestate.Load(bytes.NewReader([]byte{0x01, 0x02, 0x03}), sys)
	require.Error(t, err)
}
