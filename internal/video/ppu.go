package video

import (
	"github.com/dmg-core/sharpboy/internal/addr"
	"github.com/dmg-core/sharpboy/internal/bit"
)

// Mode is one of the four PPU states from spec.md §4.3.
type Mode uint8

const (
	ModeHBlank Mode = iota
	ModeVBlank
	ModeOAMSearch
	ModePixelTransfer
)

// Fixed per-scanline dot budget (spec.md §4.3): OAM search is a fixed
// 80 dots, pixel transfer a fixed 172 (the simplified, non-penalty
// model the source convention uses), and the remainder of the 456-dot
// line is h-blank.
const (
	oamSearchDots     = 80
	pixelTransferDots = 172
	hblankDots        = 456 - oamSearchDots - pixelTransferDots
	dotsPerLine       = 456
	visibleLines      = 144
	totalLines        = 154

	oamDMADots = 640 // 160 M-cycles

	// hdmaChunkDots is the fixed cost of copying one 0x10-byte HDMA
	// chunk during an active h-blank, before the CPU is unstalled.
	hdmaChunkDots = 32
)

// Bus is the memory access the PPU needs beyond its own registers:
// VRAM (both CGB banks), OAM, and CGB WRAM (bank-aware, for HDMA
// source reads that may originate from WRAM).
type Bus interface {
	ReadVRAMBank(bank int, address uint16) byte
	WriteVRAMBank(bank int, address uint16, value byte)
	ReadOAM(address uint16) byte
	WriteOAM(address uint16, value byte)
	ReadHDMASource(address uint16) byte
}

// InterruptRequester is the one-way callback used to raise VBlank and
// STAT interrupts.
type InterruptRequester interface {
	RequestInterrupt(i addr.Interrupt)
}

// PPU implements the LCD mode state machine, scanline renderer, OAM
// search, OAM-DMA and CGB HDMA/GDMA described in spec.md §4.3.
type PPU struct {
	bus Bus
	irq InterruptRequester
	oam *oamSearch

	cgb bool

	lcdc, stat        byte
	scy, scx          byte
	ly, lyc           byte
	wy, wx            byte
	bgp, obp0, obp1   byte
	windowLineCounter int
	windowWasVisible  bool

	mode     Mode
	dotClock int

	statLine bool // last computed STAT-interrupt line level, for edge detection

	frame *FrameBuffer

	// OAM-DMA.
	dmaActive    bool
	dmaSource    uint16
	dmaCountdown int

	// CGB VRAM bank select and palette RAM.
	vbk       byte
	bgPalette cgbPaletteRAM
	fgPalette cgbPaletteRAM

	// CGB HDMA/GDMA.
	hdmaSrc, hdmaDst   uint16
	hdmaLength         int // remaining 0x10-byte blocks, -1 when idle
	hdmaHBlankMode     bool
	hdmaChunkCountdown int

	frameReady bool
}

// New creates a PPU. cgb selects CGB register/priority semantics.
func New(bus Bus, irq InterruptRequester, cgb bool) *PPU {
	p := &PPU{
		bus:   bus,
		irq:   irq,
		cgb:   cgb,
		frame: NewFrameBuffer(),
		mode:  ModeOAMSearch,
	}
	p.oam = newOAMSearch(oamBusAdapter{bus})
	p.hdmaLength = -1
	p.lcdc = 0x91
	p.bgp = 0xFC
	return p
}

// oamBusAdapter narrows Bus down to the oamBus interface oam.go wants.
type oamBusAdapter struct{ Bus }

func (a oamBusAdapter) ReadOAM(address uint16) byte { return a.Bus.ReadOAM(address) }

// Frame returns the most recently completed frame.
func (p *PPU) Frame() *FrameBuffer { return p.frame }

// FrameReady reports (and clears) whether a new frame completed since
// the last call, matching the pkg/host frame-ready contract.
func (p *PPU) FrameReady() bool {
	ready := p.frameReady
	p.frameReady = false
	return ready
}

// Tick advances the PPU by cycles dots, running the OAM-DMA and
// HDMA/GDMA copy engines and the mode state machine.
func (p *PPU) Tick(cycles int) {
	p.tickOAMDMA(cycles)
	if p.lcdc&0x80 == 0 {
		return
	}
	for i := 0; i < cycles; i++ {
		p.tickDot()
	}
}

func (p *PPU) tickOAMDMA(cycles int) {
	if !p.dmaActive {
		return
	}
	p.dmaCountdown -= cycles
	if p.dmaCountdown <= 0 {
		p.dmaActive = false
	}
}

func (p *PPU) tickDot() {
	p.dotClock++

	switch p.mode {
	case ModeOAMSearch:
		if p.dotClock >= oamSearchDots {
			p.dotClock = 0
			p.setMode(ModePixelTransfer)
		}
	case ModePixelTransfer:
		if p.dotClock >= pixelTransferDots {
			p.dotClock = 0
			p.renderScanline()
			p.setMode(ModeHBlank)
			p.runHDMAChunkIfDue()
		}
	case ModeHBlank:
		if p.dotClock >= hblankDots {
			p.dotClock = 0
			p.advanceLine()
		}
	case ModeVBlank:
		if p.dotClock >= dotsPerLine {
			p.dotClock = 0
			p.advanceLine()
		}
	}
}

func (p *PPU) advanceLine() {
	p.ly++
	if p.ly == visibleLines {
		p.setMode(ModeVBlank)
		p.windowLineCounter = 0
		p.windowWasVisible = false
		if p.irq != nil {
			p.irq.RequestInterrupt(addr.VBlank)
		}
		p.completeFrame()
	} else if p.ly == totalLines {
		p.ly = 0
		p.setMode(ModeOAMSearch)
	} else if p.mode == ModeVBlank {
		// stay in vblank until line 154
	} else {
		p.setMode(ModeOAMSearch)
	}
	p.checkLYC()
}

func (p *PPU) setMode(m Mode) {
	p.mode = m
	p.updateStatLine()
}

// updateStatLine recomputes the STAT-interrupt OR line and requests an
// interrupt on its rising edge, matching real hardware's "STAT
// blocking" behavior where multiple simultaneous sources only produce
// one edge.
func (p *PPU) updateStatLine() {
	line := false
	switch p.mode {
	case ModeHBlank:
		line = bit.IsSet(3, p.stat)
	case ModeVBlank:
		line = bit.IsSet(4, p.stat)
	case ModeOAMSearch:
		line = bit.IsSet(5, p.stat)
	}
	line = line || (bit.IsSet(6, p.stat) && p.ly == p.lyc)

	if line && !p.statLine {
		if p.irq != nil {
			p.irq.RequestInterrupt(addr.LCDStat)
		}
	}
	p.statLine = line
}

func (p *PPU) checkLYC() {
	p.updateStatLine()
}

func (p *PPU) completeFrame() {
	p.frameReady = true
}

// Read services the PPU's register window (LCDC..WX, plus the CGB
// extensions when cgb is true).
func (p *PPU) Read(address uint16) byte {
	switch address {
	case addr.LCDC:
		return p.lcdc
	case addr.STAT:
		return 0x80 | p.stat&0x78 | uint8(p.mode)&0x03 | p.lycEqualBit()
	case addr.SCY:
		return p.scy
	case addr.SCX:
		return p.scx
	case addr.LY:
		return p.ly
	case addr.LYC:
		return p.lyc
	case addr.DMA:
		return byte(p.dmaSource >> 8)
	case addr.BGP:
		return p.bgp
	case addr.OBP0:
		return p.obp0
	case addr.OBP1:
		return p.obp1
	case addr.WY:
		return p.wy
	case addr.WX:
		return p.wx
	case addr.VBK:
		return p.vbk | 0xFE
	case addr.HDMA5:
		return p.readHDMA5()
	case addr.BCPS:
		return p.bgPalette.readIndex()
	case addr.BCPD:
		return p.bgPalette.readData()
	case addr.OCPS:
		return p.fgPalette.readIndex()
	case addr.OCPD:
		return p.fgPalette.readData()
	default:
		return 0xFF
	}
}

func (p *PPU) lycEqualBit() byte {
	if p.ly == p.lyc {
		return 0x04
	}
	return 0
}

// Write services the PPU's register window.
func (p *PPU) Write(address uint16, value byte) {
	switch address {
	case addr.LCDC:
		wasOn := p.lcdc&0x80 != 0
		p.lcdc = value
		nowOn := value&0x80 != 0
		if wasOn && !nowOn {
			p.ly = 0
			p.dotClock = 0
			p.setMode(ModeHBlank)
		} else if !wasOn && nowOn {
			p.updateStatLine()
		}
	case addr.STAT:
		p.stat = value & 0x78
		p.updateStatLine()
	case addr.SCY:
		p.scy = value
	case addr.SCX:
		p.scx = value
	case addr.LY:
		// read-only on real hardware
	case addr.LYC:
		p.lyc = value
		p.updateStatLine()
	case addr.DMA:
		p.startOAMDMA(value)
	case addr.BGP:
		p.bgp = value
	case addr.OBP0:
		p.obp0 = value
	case addr.OBP1:
		p.obp1 = value
	case addr.WY:
		p.wy = value
	case addr.WX:
		p.wx = value
	case addr.VBK:
		if p.cgb {
			p.vbk = value & 0x01
		}
	case addr.HDMA1:
		p.hdmaSrc = bit.Combine(value, bit.Low(p.hdmaSrc)) &^ 0x000F
	case addr.HDMA2:
		p.hdmaSrc = bit.Combine(bit.High(p.hdmaSrc), value) &^ 0x000F
	case addr.HDMA3:
		p.hdmaDst = 0x8000 | bit.Combine(value&0x1F, bit.Low(p.hdmaDst))
	case addr.HDMA4:
		p.hdmaDst = 0x8000 | (bit.Combine(bit.High(p.hdmaDst), value) &^ 0x000F)
	case addr.HDMA5:
		p.writeHDMA5(value)
	case addr.BCPS:
		p.bgPalette.writeIndex(value)
	case addr.BCPD:
		p.bgPalette.writeData(value)
	case addr.OCPS:
		p.fgPalette.writeIndex(value)
	case addr.OCPD:
		p.fgPalette.writeData(value)
	}
}

// VRAMBank returns the currently selected CGB VRAM bank (always 0 on
// DMG carts).
func (p *PPU) VRAMBank() int {
	if !p.cgb {
		return 0
	}
	return int(p.vbk)
}

// Mode reports the PPU's current mode; the MMU uses this to gate VRAM
// and OAM access during pixel transfer / OAM search.
func (p *PPU) Mode() Mode { return p.mode }

// OAMBlocked reports whether OAM is inaccessible to the CPU: during
// active search/transfer, or while an OAM-DMA transfer is running.
func (p *PPU) OAMBlocked() bool {
	return p.dmaActive || p.mode == ModeOAMSearch || p.mode == ModePixelTransfer
}

// VRAMBlocked reports whether VRAM is inaccessible to the CPU.
func (p *PPU) VRAMBlocked() bool {
	return p.mode == ModePixelTransfer
}

// DMAActive reports whether an OAM-DMA transfer's 640-dot blackout
// window is still running; the MMU uses this to drop CPU writes to
// anything outside HRAM for its duration (spec.md §7).
func (p *PPU) DMAActive() bool { return p.dmaActive }

func (p *PPU) startOAMDMA(highByte byte) {
	p.dmaSource = uint16(highByte) << 8
	p.dmaActive = true
	p.dmaCountdown = oamDMADots
	for i := uint16(0); i < 0xA0; i++ {
		p.bus.WriteOAM(addr.OAMStart+i, p.bus.ReadHDMASource(p.dmaSource+i))
	}
}

func (p *PPU) readHDMA5() byte {
	if p.hdmaLength < 0 {
		return 0xFF
	}
	return byte(p.hdmaLength - 1)
}

func (p *PPU) writeHDMA5(value byte) {
	if !p.cgb {
		return
	}
	if p.hdmaLength >= 0 && p.hdmaHBlankMode && value&0x80 == 0 {
		p.hdmaLength = -1 // stop an in-progress h-blank transfer
		return
	}

	p.hdmaHBlankMode = value&0x80 != 0
	p.hdmaLength = int(value&0x7F) + 1

	if !p.hdmaHBlankMode {
		p.runGDMA()
		p.hdmaLength = -1
	}
}

func (p *PPU) runGDMA() {
	for p.hdmaLength > 0 {
		p.copyHDMABlock()
	}
}

func (p *PPU) runHDMAChunkIfDue() {
	if p.hdmaLength <= 0 || !p.hdmaHBlankMode {
		return
	}
	p.copyHDMABlock()
}

func (p *PPU) copyHDMABlock() {
	for i := uint16(0); i < 0x10; i++ {
		value := p.bus.ReadHDMASource(p.hdmaSrc + i)
		p.bus.WriteVRAMBank(p.VRAMBank(), p.hdmaDst+i, value)
	}
	p.hdmaSrc += 0x10
	p.hdmaDst += 0x10
	p.hdmaLength--
}

// PaletteState is the gob-serializable snapshot of one CGB palette RAM.
type PaletteState struct {
	Data     [64]byte
	Index    uint8
	AutoIncr bool
}

// State is the gob-serializable snapshot of a PPU's registers and
// in-flight DMA/HDMA state, for internal/savestate. VRAM and OAM are
// owned by the MMU, not the PPU, and are captured separately.
type State struct {
	LCDC, STAT        byte
	SCY, SCX          byte
	LY, LYC           byte
	WY, WX            byte
	BGP, OBP0, OBP1   byte
	WindowLineCounter int
	WindowWasVisible  bool

	Mode     Mode
	DotClock int
	StatLine bool

	DMAActive    bool
	DMASource    uint16
	DMACountdown int

	VBK       byte
	BGPalette PaletteState
	FGPalette PaletteState

	HDMASrc, HDMADst   uint16
	HDMALength         int
	HDMAHBlankMode     bool
	HDMAChunkCountdown int

	FrameReady bool
}

// ExportState snapshots the PPU's register and DMA/HDMA state.
func (p *PPU) ExportState() State {
	return State{
		LCDC: p.lcdc, STAT: p.stat,
		SCY: p.scy, SCX: p.scx,
		LY: p.ly, LYC: p.lyc,
		WY: p.wy, WX: p.wx,
		BGP: p.bgp, OBP0: p.obp0, OBP1: p.obp1,
		WindowLineCounter: p.windowLineCounter,
		WindowWasVisible:  p.windowWasVisible,
		Mode:              p.mode,
		DotClock:          p.dotClock,
		StatLine:          p.statLine,
		DMAActive:         p.dmaActive,
		DMASource:         p.dmaSource,
		DMACountdown:      p.dmaCountdown,
		VBK:               p.vbk,
		BGPalette:         PaletteState{p.bgPalette.data, p.bgPalette.index, p.bgPalette.autoIncr},
		FGPalette:         PaletteState{p.fgPalette.data, p.fgPalette.index, p.fgPalette.autoIncr},
		HDMASrc:           p.hdmaSrc, HDMADst: p.hdmaDst,
		HDMALength:         p.hdmaLength,
		HDMAHBlankMode:     p.hdmaHBlankMode,
		HDMAChunkCountdown: p.hdmaChunkCountdown,
		FrameReady:         p.frameReady,
	}
}

// ImportState restores a previously exported snapshot.
func (p *PPU) ImportState(s State) {
	p.lcdc, p.stat = s.LCDC, s.STAT
	p.scy, p.scx = s.SCY, s.SCX
	p.ly, p.lyc = s.LY, s.LYC
	p.wy, p.wx = s.WY, s.WX
	p.bgp, p.obp0, p.obp1 = s.BGP, s.OBP0, s.OBP1
	p.windowLineCounter = s.WindowLineCounter
	p.windowWasVisible = s.WindowWasVisible
	p.mode = s.Mode
	p.dotClock = s.DotClock
	p.statLine = s.StatLine
	p.dmaActive = s.DMAActive
	p.dmaSource = s.DMASource
	p.dmaCountdown = s.DMACountdown
	p.vbk = s.VBK
	p.bgPalette = cgbPaletteRAM{data: s.BGPalette.Data, index: s.BGPalette.Index, autoIncr: s.BGPalette.AutoIncr}
	p.fgPalette = cgbPaletteRAM{data: s.FGPalette.Data, index: s.FGPalette.Index, autoIncr: s.FGPalette.AutoIncr}
	p.hdmaSrc, p.hdmaDst = s.HDMASrc, s.HDMADst
	p.hdmaLength = s.HDMALength
	p.hdmaHBlankMode = s.HDMAHBlankMode
	p.hdmaChunkCountdown = s.HDMAChunkCountdown
	p.frameReady = s.FrameReady
}
