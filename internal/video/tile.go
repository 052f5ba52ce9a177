package video

import "github.com/dmg-core/sharpboy/internal/bit"

// tileRow is one 8-pixel row of a tile, stored as the two bit-plane
// bytes VRAM uses natively: bit 7 of each byte is the leftmost pixel.
type tileRow struct {
	low, high byte
}

// colorIndex returns the 2-bit palette index (0-3) of pixel x (0-7).
// When flip is true, x is read right-to-left instead.
func (t tileRow) colorIndex(x int, flip bool) uint8 {
	bitIndex := uint8(7 - x)
	if flip {
		bitIndex = uint8(x)
	}
	idx := uint8(0)
	if bit.IsSet(bitIndex, t.low) {
		idx |= 1
	}
	if bit.IsSet(bitIndex, t.high) {
		idx |= 2
	}
	return idx
}

// tileReader is the minimal VRAM access the renderer needs; bank
// selects VRAM bank 0 or 1 (CGB only, always 0 on DMG carts).
type tileReader interface {
	ReadVRAMBank(bank int, address uint16) byte
}

// fetchTileRow reads the row-th line (0-7) of the tile at tileDataAddr.
func fetchTileRow(vram tileReader, bank int, tileDataAddr uint16, row int) tileRow {
	base := tileDataAddr + uint16(row*2)
	return tileRow{
		low:  vram.ReadVRAMBank(bank, base),
		high: vram.ReadVRAMBank(bank, base+1),
	}
}

// tileDataAddress resolves a tile index to its byte address in VRAM
// according to the LCDC bit-4 addressing mode: unsigned indexing from
// 0x8000, or signed indexing from 0x9000 (spec.md §4.3).
func tileDataAddress(unsignedMode bool, tileIndex uint8) uint16 {
	if unsignedMode {
		return 0x8000 + uint16(tileIndex)*16
	}
	return uint16(int32(0x9000) + int32(int8(tileIndex))*16)
}
