// Package cpu implements the Sharp-LR35902 opcode interpreter: the
// register file, both 256-entry opcode tables, interrupt dispatch and
// the HALT/HALT-bug and EI-delay edge cases from spec.md §4.1.
package cpu

import (
	"github.com/dmg-core/sharpboy/internal/addr"
	"github.com/dmg-core/sharpboy/internal/bit"
)

// Bus is everything the CPU needs from the rest of the system: address
// space access and the peripheral tick that keeps the timer/PPU/APU in
// sync with instruction execution.
type Bus interface {
	Read(address uint16) byte
	Write(address uint16, value byte)
	Tick(cycles int)
	InterruptFlags() byte
	InterruptEnable() byte
	ClearInterruptFlag(i addr.Interrupt)
}

// CPU holds the full Sharp-LR35902 register file and execution state.
type CPU struct {
	a, f       uint8
	b, c       uint8
	d, e       uint8
	h, l       uint8
	sp, pc     uint16

	ime       bool // interrupt master enable
	eiPending bool // EI takes effect after the *next* instruction completes
	halted    bool
	haltBug   bool

	cycles uint64

	bus Bus
}

// interruptOrder lists the five sources from highest to lowest
// priority (spec.md §4.1: lowest IE/IF bit wins ties).
var interruptOrder = [5]addr.Interrupt{
	addr.VBlank, addr.LCDStat, addr.Timer, addr.Serial, addr.Joypad,
}

// New creates a CPU with the documented DMG post-boot-ROM register
// state (spec.md §3) and wires it to bus.
func New(bus Bus) *CPU {
	c := &CPU{bus: bus}
	c.setAF(0x01B0)
	c.setBC(0x0013)
	c.setDE(0x00D8)
	c.setHL(0x014D)
	c.sp = 0xFFFE
	c.pc = 0x0100
	return c
}

// Reset reinitializes the CPU to the boot-ROM entry state (PC=0x0000,
// SP=0x0000, all registers zero), for use when a boot ROM is mapped
// and expected to perform the real hardware handoff itself.
func (c *CPU) Reset() {
	c.a, c.f = 0, 0
	c.b, c.c = 0, 0
	c.d, c.e = 0, 0
	c.h, c.l = 0, 0
	c.sp, c.pc = 0, 0
	c.ime, c.eiPending, c.halted, c.haltBug = false, false, false, false
	c.cycles = 0
}

// PC, SP and Cycles are exposed for the disassembler and save states.
func (c *CPU) PC() uint16     { return c.pc }
func (c *CPU) SP() uint16     { return c.sp }
func (c *CPU) Cycles() uint64 { return c.cycles }
func (c *CPU) Halted() bool   { return c.halted }
func (c *CPU) IME() bool      { return c.ime }

// SetPC forcibly relocates execution; used by the scheduler to jump
// past an already-run boot ROM straight to a cartridge's entry point.
func (c *CPU) SetPC(pc uint16) { c.pc = pc }

// Step executes exactly one instruction (or one HALT-stall tick) and
// returns the number of dots it consumed; the caller is responsible
// for ticking the rest of the system (Bus.Tick) by that same amount.
// Interrupt servicing happens at the top of every step, matching
// spec.md §4.1's dispatch timing.
func (c *CPU) Step() int {
	pending := c.interruptsPending()

	if c.halted {
		if pending {
			c.halted = false
		} else {
			return 4
		}
	}

	if c.ime && pending {
		cycles := c.dispatchInterrupt()
		c.cycles += uint64(cycles)
		return cycles
	}

	enable := c.eiPending

	opcode := c.fetchOpcode()
	cycles := c.execute(opcode)
	c.cycles += uint64(cycles)

	if enable && c.eiPending {
		c.ime = true
		c.eiPending = false
	}

	return cycles
}

// interruptsPending reports whether IE&IF has any bit set, regardless
// of IME; this is what wakes the CPU from HALT even with interrupts
// globally disabled.
func (c *CPU) interruptsPending() bool {
	return c.bus.InterruptEnable()&c.bus.InterruptFlags()&0x1F != 0
}

// fetchOpcode reads the opcode byte at PC, advancing PC — except when
// the HALT bug is active, in which case the byte at PC is re-read
// without advancing (the classic "next instruction reads its own
// opcode twice" hardware bug).
func (c *CPU) fetchOpcode() uint8 {
	opcode := c.bus.Read(c.pc)
	if c.haltBug {
		c.haltBug = false
	} else {
		c.pc++
	}
	return opcode
}

// dispatchInterrupt pushes PC and jumps to the highest-priority pending
// vector. Callers must have already confirmed IME is set and at least
// one enabled interrupt is pending; it does not fetch or execute the
// ISR's first instruction, which happens on the following Step call.
// The 5 M-cycle (20 dot) cost is real hardware's interrupt dispatch
// latency: two internal delay cycles, the two-byte PC push, and the
// jump to the vector.
func (c *CPU) dispatchInterrupt() int {
	pending := c.bus.InterruptEnable() & c.bus.InterruptFlags() & 0x1F

	for _, source := range interruptOrder {
		if pending&uint8(source) == 0 {
			continue
		}
		c.ime = false
		c.eiPending = false
		c.bus.ClearInterruptFlag(source)
		c.pushStack(c.pc)
		c.pc = source.Vector()
		return 20
	}
	return 0
}

func (c *CPU) pushStack(value uint16) {
	c.sp--
	c.bus.Write(c.sp, bit.High(value))
	c.sp--
	c.bus.Write(c.sp, bit.Low(value))
}

func (c *CPU) popStack() uint16 {
	low := c.bus.Read(c.sp)
	c.sp++
	high := c.bus.Read(c.sp)
	c.sp++
	return bit.Combine(high, low)
}

func (c *CPU) readImmediate8() uint8 {
	v := c.bus.Read(c.pc)
	c.pc++
	return v
}

func (c *CPU) readImmediate16() uint16 {
	low := c.bus.Read(c.pc)
	high := c.bus.Read(c.pc + 1)
	c.pc += 2
	return bit.Combine(high, low)
}

func (c *CPU) readImmediateSigned() int8 {
	return int8(c.readImmediate8())
}

func (c *CPU) jumpRelative(offset int8) {
	c.pc = uint16(int32(c.pc) + int32(offset))
}

// State is the gob-serializable snapshot of a CPU, for internal/savestate.
type State struct {
	A, F             uint8
	B, C             uint8
	D, E             uint8
	H, L             uint8
	SP, PC           uint16
	IME, EIPending   bool
	Halted, HaltBug  bool
	Cycles           uint64
}

// ExportState snapshots the full register file and execution state.
func (c *CPU) ExportState() State {
	return State{
		A: c.a, F: c.f,
		B: c.b, C: c.c,
		D: c.d, E: c.e,
		H: c.h, L: c.l,
		SP: c.sp, PC: c.pc,
		IME: c.ime, EIPending: c.eiPending,
		Halted: c.halted, HaltBug: c.haltBug,
		Cycles: c.cycles,
	}
}

// ImportState restores a previously exported snapshot.
func (c *CPU) ImportState(s State) {
	c.a, c.f = s.A, s.F
	c.b, c.c = s.B, s.C
	c.d, c.e = s.D, s.E
	c.h, c.l = s.H, s.L
	c.sp, c.pc = s.SP, s.PC
	c.ime, c.eiPending = s.IME, s.EIPending
	c.halted, c.haltBug = s.Halted, s.HaltBug
	c.cycles = s.Cycles
}
