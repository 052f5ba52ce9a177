package apu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmg-core/sharpboy/internal/addr"
)

func TestNR52PowerOffClearsRegistersExceptWaveRAM(t *testing.T) {
	a := New()
	a.WriteRegister(0xFF10, 0x80)
	a.WriteRegister(waveRAMStart, 0x42)

	a.WriteRegister(addr.NR52, 0x00) // power off

	assert.Equal(t, byte(0), a.ReadRegister(0xFF10)&0x80, "registers clear on power-off")
	assert.Equal(t, byte(0x42), a.ReadRegister(waveRAMStart), "wave RAM survives power-off")
}

func TestNR52ReadReflectsPowerBitWithUnusedBitsSet(t *testing.T) {
	a := New()
	assert.Equal(t, byte(0xF1), a.ReadRegister(addr.NR52), "power-on default reads back with unused bits set")

	a.WriteRegister(addr.NR52, 0x00)
	assert.Equal(t, byte(0x70), a.ReadRegister(addr.NR52), "powered off, status bit clear")
}

func TestWritesDroppedWhilePoweredOff(t *testing.T) {
	a := New()
	a.WriteRegister(addr.NR52, 0x00) // power off

	a.WriteRegister(0xFF12, 0xFF)
	assert.Equal(t, byte(0x00), a.ReadRegister(0xFF12), "register writes are dropped while powered off")

	a.WriteRegister(waveRAMStart, 0x5A)
	assert.Equal(t, byte(0x5A), a.ReadRegister(waveRAMStart), "wave RAM stays writable while powered off")
}
