package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmg-core/sharpboy/internal/addr"
)

type fakeIRQ struct {
	requested []addr.Interrupt
}

func (f *fakeIRQ) RequestInterrupt(i addr.Interrupt) { f.requested = append(f.requested, i) }

func TestInternalClockTransferCompletesAndRaisesInterrupt(t *testing.T) {
	irq := &fakeIRQ{}
	p := New(irq)

	p.Write(addr.SB, 0x41)
	p.Write(addr.SC, 0x81) // start bit + internal clock

	assert.True(t, p.transferActive)

	p.Tick(bytesPerTransfer - 1)
	assert.True(t, p.transferActive, "transfer must not complete before its full duration")

	p.Tick(1)
	assert.False(t, p.transferActive)
	assert.Equal(t, byte(0xFF), p.Read(addr.SB), "no peer answers, SB reads back 0xFF")
	assert.Contains(t, irq.requested, addr.Serial)
}

func TestExternalClockNeverCompletes(t *testing.T) {
	p := New(nil)
	p.Write(addr.SB, 0x41)
	p.Write(addr.SC, 0x80) // start bit, external clock (bit0 clear)

	assert.False(t, p.transferActive, "no peer ever supplies an external clock")
}

func TestSecondTransferIgnoredWhileOneIsActive(t *testing.T) {
	p := New(nil)
	p.Write(addr.SC, 0x81)
	countdownAfterFirstStart := p.countdown

	p.Write(addr.SC, 0x81) // re-trigger while active
	assert.Equal(t, countdownAfterFirstStart, p.countdown, "an in-flight transfer is not restarted")
}
