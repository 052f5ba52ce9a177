// Package mmu implements the address-space decode/dispatch described in
// spec.md §4.2: boot-ROM overlay, echo RAM, CGB WRAM/VRAM banking, and
// routing each I/O register write to the owning peripheral.
package mmu

import (
	"fmt"
	"log/slog"

	"github.com/dmg-core/sharpboy/internal/addr"
	"github.com/dmg-core/sharpboy/internal/apu"
	"github.com/dmg-core/sharpboy/internal/bit"
	"github.com/dmg-core/sharpboy/internal/cartridge"
	"github.com/dmg-core/sharpboy/internal/joypad"
	"github.com/dmg-core/sharpboy/internal/serial"
	"github.com/dmg-core/sharpboy/internal/timer"
)

type region uint8

const (
	regionROM region = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionUnusable
	regionIO
)

// PPU is the slice of *video.PPU the MMU dispatches register accesses
// to. Declared as an interface so mmu_test.go can substitute a fake.
type PPU interface {
	Read(address uint16) byte
	Write(address uint16, value byte)
	Tick(cycles int)
	VRAMBank() int
	OAMBlocked() bool
	VRAMBlocked() bool
	DMAActive() bool
}

// MMU owns the flat address space and every peripheral's register
// dispatch. It never runs opcodes itself; the CPU package drives Tick
// indirectly through the scheduler.
type MMU struct {
	cart *cartridge.Cartridge

	bootROM     []byte
	bootMapped  bool
	vram        [2][0x2000]byte // bank 0 always DMG; bank 1 CGB only
	wram        [8][0x1000]byte // bank 0 fixed, 1-7 switchable (CGB); DMG only uses 0-1
	oam         [0xA0]byte
	hram        [0x7F]byte
	ioUnmodeled [0x80]byte // registers with no dedicated owner (undocumented/unused)

	svbk byte // CGB WRAM bank select, low 3 bits (0 aliases to 1)
	cgb  bool

	ifReg, ieReg byte

	ppu    PPU
	timer  *timer.Timer
	joypad *joypad.Joypad
	serial *serial.Port
	apu    *apu.APU

	regionMap [256]region

	logger *slog.Logger

	// respectIllegalReadsWrites, when true, relaxes the VRAM/OAM/OAM-DMA
	// access gates below so a test ROM can observe the under-specified
	// real-hardware behaviour those gates would otherwise mask
	// (spec.md §7, Recoverable category). Default false enforces the
	// documented soft-warning fallbacks.
	respectIllegalReadsWrites bool
}

// New creates an MMU with no cartridge loaded; LoadCartridge installs
// one. cgb selects CGB WRAM/VRAM banking and register visibility.
func New(cgb bool) *MMU {
	m := &MMU{cgb: cgb, logger: slog.Default()}
	m.timer = timer.New(m)
	m.joypad = joypad.New(m)
	m.serial = serial.New(m)
	m.apu = apu.New()
	m.initRegionMap()
	return m
}

// AttachPPU wires the PPU after construction; the scheduler owns
// creation order since the PPU also needs the MMU as its Bus.
func (m *MMU) AttachPPU(p PPU) { m.ppu = p }

// SetRespectIllegalReadsWrites toggles the Recoverable relaxation flag
// from spec.md §7: when true, the VRAM/OAM/OAM-DMA access gates below
// stop masking guest reads and writes.
func (m *MMU) SetRespectIllegalReadsWrites(respect bool) {
	m.respectIllegalReadsWrites = respect
}

// SetBootROM installs an opaque boot-ROM image; nil unmaps immediately.
func (m *MMU) SetBootROM(rom []byte) {
	m.bootROM = rom
	m.bootMapped = rom != nil
}

// LoadCartridge installs a cartridge, replacing any previous one.
func (m *MMU) LoadCartridge(cart *cartridge.Cartridge) {
	m.cart = cart
}

// Timer, Joypad, Serial and APU expose the owned peripherals so the
// scheduler can Tick them and the host can feed input.
func (m *MMU) Cartridge() *cartridge.Cartridge { return m.cart }
func (m *MMU) Timer() *timer.Timer   { return m.timer }
func (m *MMU) Joypad() *joypad.Joypad { return m.joypad }
func (m *MMU) Serial() *serial.Port  { return m.serial }
func (m *MMU) APU() *apu.APU         { return m.apu }

func (m *MMU) initRegionMap() {
	for i := 0x00; i <= 0x7F; i++ {
		m.regionMap[i] = regionROM
	}
	for i := 0x80; i <= 0x9F; i++ {
		m.regionMap[i] = regionVRAM
	}
	for i := 0xA0; i <= 0xBF; i++ {
		m.regionMap[i] = regionExtRAM
	}
	for i := 0xC0; i <= 0xDF; i++ {
		m.regionMap[i] = regionWRAM
	}
	for i := 0xE0; i <= 0xFD; i++ {
		m.regionMap[i] = regionEcho
	}
	m.regionMap[0xFE] = regionOAM
	m.regionMap[0xFF] = regionIO
}

// RequestInterrupt sets the corresponding bit of IF. Every peripheral
// that can raise an interrupt is handed the MMU through this
// single-method interface (satisfies timer/joypad/serial's
// InterruptRequester and video's InterruptRequester).
func (m *MMU) RequestInterrupt(i addr.Interrupt) {
	m.ifReg = bit.Set(i.Bit(), m.ifReg)
}

// InterruptFlags and InterruptEnable expose IF/IE for the CPU's
// dispatch logic without going through the general Read path.
func (m *MMU) InterruptFlags() byte { return m.ifReg & 0x1F }
func (m *MMU) InterruptEnable() byte { return m.ieReg }
func (m *MMU) ClearInterruptFlag(i addr.Interrupt) {
	m.ifReg = bit.Clear(i.Bit(), m.ifReg)
}

// Tick advances every ticking peripheral by cycles dots.
func (m *MMU) Tick(cycles int) {
	m.timer.Tick(cycles)
	m.serial.Tick(cycles)
	m.apu.Tick(cycles)
	if m.ppu != nil {
		m.ppu.Tick(cycles)
	}
	if m.cart != nil {
		m.cart.Tick(cycles)
	}
}

// Read dispatches a CPU-visible read.
func (m *MMU) Read(address uint16) byte {
	if m.bootMapped && address <= addr.BootROMEnd && address < uint16(len(m.bootROM)) {
		return m.bootROM[address]
	}

	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		if m.cart == nil {
			return 0xFF
		}
		return m.cart.Read(address)
	case regionVRAM:
		if !m.respectIllegalReadsWrites && m.ppu != nil && m.ppu.VRAMBlocked() {
			return 0xFF
		}
		return m.vram[m.vramBank()][address-addr.VRAMStart]
	case regionWRAM:
		return m.readWRAM(address)
	case regionEcho:
		return m.readWRAM(address - 0x2000)
	case regionOAM:
		if address > addr.OAMEnd {
			if m.respectIllegalReadsWrites {
				return 0
			}
			return 0xFF // 0xFEA0-0xFEFF is unusable
		}
		if !m.respectIllegalReadsWrites && m.ppu != nil && m.ppu.OAMBlocked() {
			return 0xFF
		}
		return m.oam[address-addr.OAMStart]
	case regionIO:
		return m.readIO(address)
	default:
		panic(fmt.Sprintf("mmu: unmapped read at 0x%04X", address))
	}
}

func (m *MMU) vramBank() int {
	if m.ppu == nil {
		return 0
	}
	return m.ppu.VRAMBank()
}

func (m *MMU) readWRAM(address uint16) byte {
	offset := address - 0xC000
	if offset < 0x1000 {
		return m.wram[0][offset]
	}
	return m.wram[m.wramBank()][offset-0x1000]
}

func (m *MMU) wramBank() int {
	if !m.cgb {
		return 1
	}
	bank := int(m.svbk & 0x07)
	if bank == 0 {
		bank = 1
	}
	return bank
}

func (m *MMU) readIO(address uint16) byte {
	switch {
	case address == addr.P1:
		return m.joypad.Read()
	case address == addr.SB || address == addr.SC:
		return m.serial.Read(address)
	case address == addr.DIV || address == addr.TIMA || address == addr.TMA || address == addr.TAC:
		return m.timer.Read(address)
	case address == addr.IF:
		return m.ifReg | 0xE0
	case address >= addr.AudioStart && address <= addr.AudioEnd:
		return m.apu.ReadRegister(address)
	case address >= 0xFF40 && address <= 0xFF4B, address == addr.VBK,
		address >= addr.HDMA1 && address <= addr.HDMA5,
		address == addr.BCPS || address == addr.BCPD || address == addr.OCPS || address == addr.OCPD:
		if m.ppu != nil {
			return m.ppu.Read(address)
		}
		return 0xFF
	case address == addr.SVBK:
		if !m.cgb {
			return 0xFF
		}
		return m.svbk | 0xF8
	case address == addr.BANK:
		if m.bootMapped {
			return 0x00
		}
		return 0x01
	case address == addr.IE:
		return m.ieReg
	case address >= 0xFF80 && address <= 0xFFFE:
		return m.hram[address-0xFF80]
	default:
		return m.ioUnmodeled[address&0x7F]
	}
}

// Write dispatches a CPU-visible write. During an active OAM-DMA
// transfer, only HRAM (and IE) remain writable; everything else is
// silently dropped for the transfer's 640-dot blackout window
// (spec.md §7, §8 scenario 4).
func (m *MMU) Write(address uint16, value byte) {
	if address == addr.IE {
		m.ieReg = value
		return
	}

	if !m.respectIllegalReadsWrites && m.ppu != nil && m.ppu.DMAActive() && !(address >= 0xFF80 && address <= 0xFFFE) {
		return
	}

	switch m.regionMap[address>>8] {
	case regionROM:
		if m.cart != nil {
			m.cart.Write(address, value)
		}
	case regionExtRAM:
		if m.cart != nil {
			m.cart.Write(address, value)
		}
	case regionVRAM:
		if !m.respectIllegalReadsWrites && m.ppu != nil && m.ppu.VRAMBlocked() {
			return
		}
		m.vram[m.vramBank()][address-addr.VRAMStart] = value
	case regionWRAM:
		m.writeWRAM(address, value)
	case regionEcho:
		m.writeWRAM(address-0x2000, value)
	case regionOAM:
		if address > addr.OAMEnd {
			return
		}
		if !m.respectIllegalReadsWrites && m.ppu != nil && m.ppu.OAMBlocked() {
			return
		}
		m.oam[address-addr.OAMStart] = value
	case regionIO:
		m.writeIO(address, value)
	default:
		panic(fmt.Sprintf("mmu: unmapped write at 0x%04X", address))
	}
}

func (m *MMU) writeWRAM(address uint16, value byte) {
	offset := address - 0xC000
	if offset < 0x1000 {
		m.wram[0][offset] = value
		return
	}
	m.wram[m.wramBank()][offset-0x1000] = value
}

func (m *MMU) writeIO(address uint16, value byte) {
	switch {
	case address == addr.P1:
		m.joypad.Write(value)
	case address == addr.SB || address == addr.SC:
		m.serial.Write(address, value)
	case address == addr.DIV || address == addr.TIMA || address == addr.TMA || address == addr.TAC:
		m.timer.Write(address, value)
	case address == addr.IF:
		m.ifReg = value & 0x1F
	case address >= addr.AudioStart && address <= addr.AudioEnd:
		m.apu.WriteRegister(address, value)
	case address == addr.BANK:
		if value != 0 {
			m.bootMapped = false
		}
	case address >= 0xFF40 && address <= 0xFF4B, address == addr.VBK,
		address >= addr.HDMA1 && address <= addr.HDMA5,
		address == addr.BCPS || address == addr.BCPD || address == addr.OCPS || address == addr.OCPD:
		if m.ppu != nil {
			m.ppu.Write(address, value)
		}
	case address == addr.SVBK:
		if m.cgb {
			m.svbk = value & 0x07
		}
	case address >= 0xFF80 && address <= 0xFFFE:
		m.hram[address-0xFF80] = value
	default:
		m.ioUnmodeled[address&0x7F] = value
	}
}

// video.Bus implementation: the PPU reaches VRAM/OAM through the MMU
// instead of owning its own backing arrays, so CGB HDMA can read from
// WRAM/ROM as its source without a second copy of memory.

// ReadVRAMBank reads VRAM bank 0 or 1 directly, bypassing the
// VRAMBlocked gate the CPU-facing Read enforces (the PPU itself is the
// only caller during pixel transfer).
func (m *MMU) ReadVRAMBank(bank int, address uint16) byte {
	return m.vram[bank&0x01][address-addr.VRAMStart]
}

// WriteVRAMBank is the HDMA/GDMA write path into VRAM.
func (m *MMU) WriteVRAMBank(bank int, address uint16, value byte) {
	m.vram[bank&0x01][address-addr.VRAMStart] = value
}

// ReadOAM/WriteOAM bypass the OAMBlocked gate for OAM-DMA, which is the
// one path allowed to touch OAM regardless of PPU mode.
func (m *MMU) ReadOAM(address uint16) byte {
	if address > addr.OAMEnd {
		return 0xFF
	}
	return m.oam[address-addr.OAMStart]
}

func (m *MMU) WriteOAM(address uint16, value byte) {
	if address > addr.OAMEnd {
		return
	}
	m.oam[address-addr.OAMStart] = value
}

// ReadHDMASource reads a byte from ROM, external RAM, VRAM or WRAM for
// use as an OAM-DMA or HDMA/GDMA source; echo RAM and I/O are not
// valid HDMA sources on real hardware and read back as 0xFF here.
func (m *MMU) ReadHDMASource(address uint16) byte {
	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		if m.cart == nil {
			return 0xFF
		}
		return m.cart.Read(address)
	case regionVRAM:
		return m.vram[m.vramBank()][address-addr.VRAMStart]
	case regionWRAM:
		return m.readWRAM(address)
	default:
		return 0xFF
	}
}

// State is the gob-serializable snapshot of the MMU's own owned memory
// and registers, for internal/savestate. Peripheral and cartridge state
// live in their own packages' State types and are composed alongside
// this one by internal/savestate, not embedded here.
type State struct {
	BootMapped  bool
	VRAM        [2][0x2000]byte
	WRAM        [8][0x1000]byte
	OAM         [0xA0]byte
	HRAM        [0x7F]byte
	IOUnmodeled [0x80]byte
	SVBK        byte
	IFReg, IEReg byte
}

// ExportState snapshots every byte the MMU itself owns.
func (m *MMU) ExportState() State {
	return State{
		BootMapped:  m.bootMapped,
		VRAM:        m.vram,
		WRAM:        m.wram,
		OAM:         m.oam,
		HRAM:        m.hram,
		IOUnmodeled: m.ioUnmodeled,
		SVBK:        m.svbk,
		IFReg:       m.ifReg,
		IEReg:       m.ieReg,
	}
}

// ImportState restores a previously exported snapshot.
func (m *MMU) ImportState(s State) {
	m.bootMapped = s.BootMapped
	m.vram = s.VRAM
	m.wram = s.WRAM
	m.oam = s.OAM
	m.hram = s.HRAM
	m.ioUnmodeled = s.IOUnmodeled
	m.svbk = s.SVBK
	m.ifReg = s.IFReg
	m.ieReg = s.IEReg
}
