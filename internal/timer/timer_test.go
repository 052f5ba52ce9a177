package timer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmg-core/sharpboy/internal/addr"
)

type fakeIRQ struct {
	requested []addr.Interrupt
}

func (f *fakeIRQ) RequestInterrupt(i addr.Interrupt) { f.requested = append(f.requested, i) }

func TestTIMAIncrementsAtSelectedRate(t *testing.T) {
	irq := &fakeIRQ{}
	tm := New(irq)
	tm.Write(addr.TAC, 0x05) // enabled, rate select 01 -> bit 3, period 16 dots

	tm.Tick(16)
	assert.Equal(t, byte(1), tm.Read(addr.TIMA), "one falling edge in 16 dots must increment TIMA once")
}

func TestTIMAOverflowReloadsFromTMAAfterFourDots(t *testing.T) {
	irq := &fakeIRQ{}
	tm := New(irq)
	tm.Write(addr.TMA, 0x7F)
	tm.Write(addr.TAC, 0x05)
	tm.tima = 0xFF

	tm.incrementTIMA()
	assert.Equal(t, byte(0x00), tm.Read(addr.TIMA), "TIMA reads 0x00 during the reload delay window")

	tm.Tick(3)
	assert.Equal(t, byte(0x00), tm.Read(addr.TIMA), "reload has not yet landed")

	tm.Tick(1)
	assert.Equal(t, byte(0x7F), tm.Read(addr.TIMA), "TIMA reloads from TMA exactly 4 dots after overflow")
	assert.Contains(t, irq.requested, addr.Timer, "overflow raises the timer interrupt")
}

func TestDIVWriteResetsCounter(t *testing.T) {
	irq := &fakeIRQ{}
	tm := New(irq)
	tm.Write(addr.TAC, 0x05)
	tm.Tick(8)

	tm.Write(addr.DIV, 0x42) // any value: DIV always resets to 0 on write
	assert.Equal(t, byte(0x00), tm.Read(addr.DIV))
}

func TestDIVWriteWithSelectedBitHighSpuriouslyIncrementsTIMA(t *testing.T) {
	irq := &fakeIRQ{}
	tm := New(irq)
	tm.Write(addr.TAC, 0x05) // enabled, bit 3
	tm.Tick(8) // counter=8 (0b1000): bit 3 is high

	tm.Write(addr.DIV, 0x00)
	assert.Equal(t, byte(1), tm.Read(addr.TIMA), "resetting DIV while the selected bit is high is itself a falling edge")
}

func TestDIVWriteWithSelectedBitLowDoesNotIncrementTIMA(t *testing.T) {
	irq := &fakeIRQ{}
	tm := New(irq)
	tm.Write(addr.TAC, 0x05) // enabled, bit 3
	tm.Tick(4) // counter=4 (0b0100): bit 3 is low

	tm.Write(addr.DIV, 0x00)
	assert.Equal(t, byte(0), tm.Read(addr.TIMA))
}

func TestTACOnlyStoresLowThreeBits(t *testing.T) {
	tm := New(nil)
	tm.Write(addr.TAC, 0xFF)
	assert.Equal(t, byte(0xFF), tm.Read(addr.TAC), "unused TAC bits read back as 1")
	assert.Equal(t, byte(0x07), tm.tac, "only the low 3 bits are stored")
}
