package cartridge

import (
	"fmt"
	"strings"
	"unicode"
)

// Header offsets, per spec.md §6.
const (
	titleOffset      = 0x0134
	titleLength      = 16
	cgbFlagOffset    = 0x0143
	typeOffset       = 0x0147
	romSizeOffset    = 0x0148
	ramSizeOffset    = 0x0149
	headerChecksumOffset = 0x014D
)

// CGBSupport describes what the cartridge declares about Game Boy Color
// support via the byte at 0x0143.
type CGBSupport uint8

const (
	// DMGOnly carts run in monochrome mode unconditionally.
	DMGOnly CGBSupport = iota
	// CGBBackwardsCompatible carts (flag 0x80) run on CGB with color
	// features enabled, and on DMG in monochrome mode.
	CGBBackwardsCompatible
	// CGBOnly carts (flag 0xC0) require a CGB to run.
	CGBOnly
)

// Kind identifies the MBC family a cartridge type byte maps to.
type Kind uint8

const (
	KindROMOnly Kind = iota
	KindMBC1
	KindMBC2
	KindMBC3
	KindMBC5
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindROMOnly:
		return "ROM_ONLY"
	case KindMBC1:
		return "MBC1"
	case KindMBC2:
		return "MBC2"
	case KindMBC3:
		return "MBC3"
	case KindMBC5:
		return "MBC5"
	default:
		return "UNSUPPORTED"
	}
}

// Header is the parsed subset of the 0x0134-0x0149 cartridge header this
// emulator needs to pick an MBC and size its RAM.
type Header struct {
	Title      string
	CGB        CGBSupport
	TypeByte   byte
	Kind       Kind
	HasRAM     bool
	HasBattery bool
	HasRTC     bool
	HasRumble  bool
	ROMBanks   int // 16 KiB banks
	RAMBytes   int
}

// ramSizeTable maps the RAM-size code at 0x0149 to a total byte count.
// The 0x01 code (2 KiB) is obsolete/unused by any licensed cartridge and
// is treated as 0, matching spec.md's {0, 0, 8, 32, 128, 64} KiB table.
var ramSizeTable = [6]int{0, 0, 8 * 1024, 32 * 1024, 128 * 1024, 64 * 1024}

// cartTypeTable maps the byte at 0x0147 to its MBC kind and feature bits.
var cartTypeTable = map[byte]struct {
	kind                        Kind
	hasRAM, hasBattery, hasRTC  bool
	hasRumble                   bool
}{
	0x00: {KindROMOnly, false, false, false, false},
	0x01: {KindMBC1, false, false, false, false},
	0x02: {KindMBC1, true, false, false, false},
	0x03: {KindMBC1, true, true, false, false},
	0x05: {KindMBC2, false, false, false, false},
	0x06: {KindMBC2, false, true, false, false},
	0x08: {KindROMOnly, true, false, false, false},
	0x09: {KindROMOnly, true, true, false, false},
	0x0F: {KindMBC3, false, true, true, false},
	0x10: {KindMBC3, true, true, true, false},
	0x11: {KindMBC3, false, false, false, false},
	0x12: {KindMBC3, true, false, false, false},
	0x13: {KindMBC3, true, true, false, false},
	0x19: {KindMBC5, false, false, false, false},
	0x1A: {KindMBC5, true, false, false, false},
	0x1B: {KindMBC5, true, true, false, false},
	0x1C: {KindMBC5, false, false, false, true},
	0x1D: {KindMBC5, true, false, false, true},
	0x1E: {KindMBC5, true, true, false, true},
}

// ParseHeader reads the cartridge header out of a full ROM image. It
// returns an error (rather than panicking) for images too short to
// contain a header or for an unrecognized cartridge-type byte, per
// spec.md §7's load-time error category.
func ParseHeader(rom []byte) (Header, error) {
	if len(rom) < 0x150 {
		return Header{}, fmt.Errorf("cartridge: image too short (%d bytes) to contain a header", len(rom))
	}

	h := Header{
		Title:    cleanTitle(rom[titleOffset : titleOffset+titleLength]),
		TypeByte: rom[typeOffset],
	}

	switch rom[cgbFlagOffset] {
	case 0x80:
		h.CGB = CGBBackwardsCompatible
	case 0xC0:
		h.CGB = CGBOnly
	default:
		h.CGB = DMGOnly
	}

	entry, ok := cartTypeTable[h.TypeByte]
	if !ok {
		return Header{}, fmt.Errorf("cartridge: unsupported cartridge type byte 0x%02X", h.TypeByte)
	}
	h.Kind = entry.kind
	h.HasRAM = entry.hasRAM
	h.HasBattery = entry.hasBattery
	h.HasRTC = entry.hasRTC
	h.HasRumble = entry.hasRumble

	romCode := rom[romSizeOffset]
	h.ROMBanks = 2 << romCode // 32KiB << code, in 16KiB banks == 2<<code

	ramCode := int(rom[ramSizeOffset])
	if ramCode < len(ramSizeTable) {
		h.RAMBytes = ramSizeTable[ramCode]
	}
	if h.Kind == KindMBC2 {
		// MBC2 has 512x4-bit built-in RAM regardless of the header byte.
		h.RAMBytes = 512
		h.HasRAM = true
	}
	if !h.HasRAM {
		h.RAMBytes = 0
	}

	return h, nil
}

func cleanTitle(raw []byte) string {
	runes := make([]rune, 0, len(raw))
	for _, b := range raw {
		switch {
		case b == 0:
			continue
		case unicode.IsPrint(rune(b)) && b < 0x80:
			runes = append(runes, rune(b))
		}
	}
	title := strings.TrimSpace(string(runes))
	if title == "" {
		title = "(untitled)"
	}
	return title
}
