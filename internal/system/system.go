// Package system composes the CPU, PPU and MMU into the single-threaded
// scheduler described in spec.md §4.7: it owns every component, wires
// the borrowed back-references between them at construction, and drives
// the frame loop the host calls into.
package system

import (
	"fmt"

	"github.com/dmg-core/sharpboy/internal/apu"
	"github.com/dmg-core/sharpboy/internal/cartridge"
	"github.com/dmg-core/sharpboy/internal/cpu"
	"github.com/dmg-core/sharpboy/internal/joypad"
	"github.com/dmg-core/sharpboy/internal/mmu"
	"github.com/dmg-core/sharpboy/internal/serial"
	"github.com/dmg-core/sharpboy/internal/timer"
	"github.com/dmg-core/sharpboy/internal/video"
)

// DotsPerFrame is the fixed per-frame dot budget the host accumulates
// against before sleeping until the next 60 Hz tick (spec.md §4.7).
const DotsPerFrame = 70224

// FrameReadyFunc is the host's one-way "vblank" callback (spec.md §6):
// it is handed the just-completed frame and must copy it, or otherwise
// arrange exclusive access, before returning.
type FrameReadyFunc func(*video.FrameBuffer)

// System is the root emulator instance: the component graph the
// scheduler drives one instruction at a time.
type System struct {
	cpu *cpu.CPU
	mmu *mmu.MMU
	ppu *video.PPU

	onFrame FrameReadyFunc
}

// New constructs an un-cartridged System. MMU/PPU/CPU have a circular
// construction dependency (the PPU needs the MMU as its bus, the CPU
// needs the MMU as its bus, and the MMU needs to hand out the PPU to
// satisfy CPU-facing register reads/writes) so it is broken with an
// explicit wiring phase: build the MMU first, then the PPU against it,
// then attach the PPU back onto the MMU (spec.md §9 "Back-pointers").
func New(cgb bool) *System {
	m := mmu.New(cgb)
	p := video.New(m, m, cgb)
	m.AttachPPU(p)
	c := cpu.New(m)

	return &System{cpu: c, mmu: m, ppu: p}
}

// OnFrame installs the host's frame-ready callback.
func (s *System) OnFrame(fn FrameReadyFunc) { s.onFrame = fn }

// LoadCartridge reads a ROM image (optionally zipped) from path and
// swaps it in as the running cartridge. Load-time errors are returned
// as user-readable strings per spec.md §7's "load-time" category.
func (s *System) LoadCartridge(path string) error {
	cart, err := cartridge.LoadFile(path)
	if err != nil {
		return fmt.Errorf("system: failed to load cartridge: %w", err)
	}
	s.mmu.LoadCartridge(cart)
	return nil
}

// SetBootROM installs an opaque boot-ROM image and resets the CPU to
// the pre-boot register state so it runs the boot ROM from 0x0000
// instead of jumping straight to the cartridge entry point.
func (s *System) SetBootROM(rom []byte) {
	s.mmu.SetBootROM(rom)
	s.cpu.Reset()
}

// SetRespectIllegalReadsWrites toggles the Recoverable relaxation flag
// from spec.md §7, letting a test ROM observe VRAM/OAM/OAM-DMA accesses
// the emulator would otherwise gate off with a soft-warning fallback.
func (s *System) SetRespectIllegalReadsWrites(respect bool) {
	s.mmu.SetRespectIllegalReadsWrites(respect)
}

// SetInput latches the host's polled controller state; masks use the
// bit layout documented in spec.md §6 (bit0=A/Right, 1=B/Left,
// 2=Select/Up, 3=Start/Down).
func (s *System) SetInput(actionMask, directionMask uint8) {
	s.mmu.Joypad().SetInput(actionMask, directionMask)
}

// Frame returns the PPU's current front buffer, valid until the next
// StepOneInstruction call that completes a frame.
func (s *System) Frame() *video.FrameBuffer { return s.ppu.Frame() }

// PC exposes the CPU's program counter for debug tooling (internal/disasm).
func (s *System) PC() uint16 { return s.cpu.PC() }

// Read exposes a side-effect-free memory read for debug tooling
// (internal/disasm); it satisfies disasm.Reader.
func (s *System) Read(address uint16) byte { return s.mmu.Read(address) }

// StepOneInstruction runs exactly one CPU step (an instruction, a
// HALT-stall tick, or an interrupt dispatch) and ticks every peripheral
// by the same number of dots, matching spec.md §4.7 and its ordering
// guarantee: CPU → PPU/Timer/Audio → IRQ dispatch is visible at the
// start of the *next* call. It returns the number of dots consumed.
func (s *System) StepOneInstruction() int {
	cycles := s.cpu.Step()
	s.mmu.Tick(cycles)

	if s.ppu.FrameReady() && s.onFrame != nil {
		s.onFrame(s.ppu.Frame())
	}

	return cycles
}

// RunFrame steps the system until it has consumed at least one full
// frame's dot budget, returning the total number of dots actually
// consumed (which may overshoot DotsPerFrame by up to one instruction's
// worth of cycles, since steps are not subdivided).
func (s *System) RunFrame() int {
	consumed := 0
	for consumed < DotsPerFrame {
		consumed += s.StepOneInstruction()
	}
	return consumed
}

// Close flushes the cartridge's battery save, if any.
func (s *System) Close() error {
	if cart := s.mmu.Cartridge(); cart != nil {
		return cart.Close()
	}
	return nil
}

// Snapshot is the full gob-serializable state of a System, composed
// from every component's own State type. internal/savestate wraps this
// with a checksum and (de)serializes it; System itself only knows how
// to produce and consume one.
type Snapshot struct {
	CPU    cpu.State
	MMU    mmu.State
	PPU    video.State
	Timer  timer.State
	Joypad joypad.State
	Serial serial.State
	APU    apu.State

	Bank        cartridge.BankState
	ExternalRAM []byte
}

// ExportState snapshots every component. It panics if no cartridge is
// loaded, since a snapshot without a running game is meaningless.
func (s *System) ExportState() Snapshot {
	cart := s.mmu.Cartridge()
	if cart == nil {
		panic("system: ExportState called with no cartridge loaded")
	}

	ram := cart.ExternalRAM()
	ramCopy := make([]byte, len(ram))
	copy(ramCopy, ram)

	return Snapshot{
		CPU:         s.cpu.ExportState(),
		MMU:         s.mmu.ExportState(),
		PPU:         s.ppu.ExportState(),
		Timer:       s.mmu.Timer().ExportState(),
		Joypad:      s.mmu.Joypad().ExportState(),
		Serial:      s.mmu.Serial().ExportState(),
		APU:         s.mmu.APU().ExportState(),
		Bank:        cart.ExportBankState(),
		ExternalRAM: ramCopy,
	}
}

// ImportState restores a previously exported snapshot onto a System
// that already has a cartridge of the same kind loaded.
func (s *System) ImportState(snap Snapshot) {
	s.cpu.ImportState(snap.CPU)
	s.mmu.ImportState(snap.MMU)
	s.ppu.ImportState(snap.PPU)
	s.mmu.Timer().ImportState(snap.Timer)
	s.mmu.Joypad().ImportState(snap.Joypad)
	s.mmu.Serial().ImportState(snap.Serial)
	s.mmu.APU().ImportState(snap.APU)

	if cart := s.mmu.Cartridge(); cart != nil {
		cart.ImportBankState(snap.Bank)
		copy(cart.ExternalRAM(), snap.ExternalRAM)
	}
}
