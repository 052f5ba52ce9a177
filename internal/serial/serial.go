// Package serial provides the SB/SC register pass-through described in
// spec.md §1: full link-cable emulation is a Non-goal, but guest code
// that pokes the serial registers must still see well-defined behavior
// (a transfer eventually completes and raises the Serial interrupt)
// rather than an unmapped address.
package serial

import (
	"log/slog"

	"github.com/dmg-core/sharpboy/internal/addr"
	"github.com/dmg-core/sharpboy/internal/bit"
)

// InterruptRequester is the one-way callback used to raise the serial
// interrupt on transfer completion.
type InterruptRequester interface {
	RequestInterrupt(i addr.Interrupt)
}

// bytesPerTransfer approximates the ~8192Hz DMG internal serial clock:
// one byte (8 bits) takes roughly 4096 CPU dots to shift out.
const bytesPerTransfer = 4096

// Port is a no-peer serial device: it accepts transfers, completes them
// after a fixed delay (no external clock ever arrives), and logs the
// outgoing byte stream. This mirrors what test ROMs that print progress
// over the link port expect: SB reads back 0xFF once no peer answers.
type Port struct {
	sb, sc byte

	transferActive bool
	countdown      int

	irq    InterruptRequester
	logger *slog.Logger
	line   []byte
}

// New creates a Port that raises the serial interrupt through irq.
func New(irq InterruptRequester) *Port {
	p := &Port{irq: irq, logger: slog.Default()}
	p.Reset()
	return p
}

// Reset returns the port to its power-on state.
func (p *Port) Reset() {
	p.sb = 0x00
	p.sc = 0x7E
	p.transferActive = false
	p.countdown = 0
	p.line = p.line[:0]
}

// Read services 0xFF01-0xFF02.
func (p *Port) Read(address uint16) byte {
	switch address {
	case addr.SB:
		return p.sb
	case addr.SC:
		return p.sc
	default:
		return 0xFF
	}
}

// Write services 0xFF01-0xFF02.
func (p *Port) Write(address uint16, value byte) {
	switch address {
	case addr.SB:
		p.sb = value
	case addr.SC:
		p.sc = value
		p.maybeStartTransfer()
	}
}

// Tick advances any in-flight transfer by cycles dots.
func (p *Port) Tick(cycles int) {
	if !p.transferActive {
		return
	}
	p.countdown -= cycles
	if p.countdown <= 0 {
		p.completeTransfer()
	}
}

func (p *Port) maybeStartTransfer() {
	if p.transferActive {
		return
	}
	// A transfer starts when bit 7 (start) and bit 0 (internal clock) of
	// SC are both set; external-clock transfers never complete since no
	// peer is ever connected.
	if !bit.IsSet(7, p.sc) || !bit.IsSet(0, p.sc) {
		return
	}

	p.bufferForLog(p.sb)
	p.transferActive = true
	p.countdown = bytesPerTransfer
}

func (p *Port) bufferForLog(b byte) {
	if b == '\n' || b == '\r' || b == 0 {
		if len(p.line) > 0 {
			p.logger.Info("serial output", "line", string(p.line))
			p.line = p.line[:0]
		}
		return
	}
	p.line = append(p.line, b)
}

func (p *Port) completeTransfer() {
	p.sb = 0xFF // no peer answers
	p.sc = bit.Clear(7, p.sc)
	p.transferActive = false
	p.countdown = 0
	if p.irq != nil {
		p.irq.RequestInterrupt(addr.Serial)
	}
}

// State is the gob-serializable snapshot of a Port, for
// internal/savestate. The output line buffer is intentionally excluded:
// it is a logging convenience, not emulated state.
type State struct {
	SB, SC         byte
	TransferActive bool
	Countdown      int
}

// ExportState snapshots the port's registers and in-flight transfer.
func (p *Port) ExportState() State {
	return State{p.sb, p.sc, p.transferActive, p.countdown}
}

// ImportState restores a previously exported snapshot.
func (p *Port) ImportState(s State) {
	p.sb, p.sc, p.transferActive, p.countdown = s.SB, s.SC, s.TransferActive, s.Countdown
}
