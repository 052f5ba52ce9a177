package video

import "github.com/dmg-core/sharpboy/internal/bit"

// renderScanline composites background, window and sprites for the
// current line (p.ly) into the frame buffer. It runs once per line at
// the OAM-search/pixel-transfer boundary, rather than pixel-by-pixel,
// since nothing downstream needs mid-scanline fidelity.
func (p *PPU) renderScanline() {
	if p.ly >= visibleLines {
		return
	}

	line := int(p.ly)
	bgColorIndex := [Width]uint8{}
	bgAttrs := [Width]byte{}

	if bit.IsSet(0, p.lcdc) || p.cgb {
		p.renderBackground(line, &bgColorIndex, &bgAttrs)
	} else {
		for x := range bgColorIndex {
			p.frame.Set(x, line, dmgShades[0])
		}
	}

	if bit.IsSet(5, p.lcdc) && p.windowVisibleAt(line) {
		p.renderWindow(line, &bgColorIndex, &bgAttrs)
	}

	if bit.IsSet(1, p.lcdc) {
		p.renderSprites(line, &bgColorIndex, &bgAttrs)
	}
}

func (p *PPU) windowVisibleAt(line int) bool {
	return line >= int(p.wy) && int(p.wx) <= 166
}

func (p *PPU) bgTileMapBase(useMap1 bool) uint16 {
	if useMap1 {
		return 0x9C00
	}
	return 0x9800
}

func (p *PPU) renderBackground(line int, colorIdx *[Width]uint8, attrs *[Width]byte) {
	unsignedMode := bit.IsSet(4, p.lcdc)
	mapBase := p.bgTileMapBase(bit.IsSet(3, p.lcdc))

	y := (line + int(p.scy)) & 0xFF
	tileRow := y / 8
	rowInTile := y % 8

	for x := 0; x < Width; x++ {
		scrolledX := (x + int(p.scx)) & 0xFF
		tileCol := scrolledX / 8
		colInTile := scrolledX % 8

		mapAddr := mapBase + uint16(tileRow*32+tileCol)
		tileIndex := p.bus.ReadVRAMBank(0, mapAddr)

		attr := byte(0)
		bank := 0
		if p.cgb {
			attr = p.bus.ReadVRAMBank(1, mapAddr)
			if bit.IsSet(3, attr) {
				bank = 1
			}
		}

		flipY := p.cgb && bit.IsSet(6, attr)
		flipX := p.cgb && bit.IsSet(5, attr)

		effRow := rowInTile
		if flipY {
			effRow = 7 - rowInTile
		}

		tileAddr := tileDataAddress(unsignedMode, tileIndex)
		row := fetchTileRow(vramReader{p.bus}, bank, tileAddr, effRow)
		idx := row.colorIndex(colInTile, flipX)

		colorIdx[x] = idx
		attrs[x] = attr

		p.frame.Set(x, line, p.resolveBGColor(idx, attr))
	}
}

func (p *PPU) renderWindow(line int, colorIdx *[Width]uint8, attrs *[Width]byte) {
	unsignedMode := bit.IsSet(4, p.lcdc)
	mapBase := p.bgTileMapBase(bit.IsSet(6, p.lcdc))

	windowY := p.windowLineCounter
	tileRow := windowY / 8
	rowInTile := windowY % 8

	startX := int(p.wx) - 7
	drew := false

	for x := 0; x < Width; x++ {
		wx := x - startX
		if wx < 0 {
			continue
		}
		drew = true

		tileCol := wx / 8
		colInTile := wx % 8

		mapAddr := mapBase + uint16(tileRow*32+tileCol)
		tileIndex := p.bus.ReadVRAMBank(0, mapAddr)

		attr := byte(0)
		bank := 0
		if p.cgb {
			attr = p.bus.ReadVRAMBank(1, mapAddr)
			if bit.IsSet(3, attr) {
				bank = 1
			}
		}

		flipY := p.cgb && bit.IsSet(6, attr)
		flipX := p.cgb && bit.IsSet(5, attr)

		effRow := rowInTile
		if flipY {
			effRow = 7 - rowInTile
		}

		tileAddr := tileDataAddress(unsignedMode, tileIndex)
		row := fetchTileRow(vramReader{p.bus}, bank, tileAddr, effRow)
		idx := row.colorIndex(colInTile, flipX)

		colorIdx[x] = idx
		attrs[x] = attr
		p.frame.Set(x, line, p.resolveBGColor(idx, attr))
	}

	if drew {
		p.windowLineCounter++
		p.windowWasVisible = true
	}
}

func (p *PPU) resolveBGColor(colorIndex uint8, attr byte) Color {
	if p.cgb {
		return p.bgPalette.color(attr&0x07, colorIndex)
	}
	return decodeDMGPalette(p.bgp)[colorIndex]
}

func (p *PPU) renderSprites(line int, bgColorIdx *[Width]uint8, bgAttrs *[Width]byte) {
	spriteHeight := 8
	if bit.IsSet(2, p.lcdc) {
		spriteHeight = 16
	}

	sprites := p.oam.scanline(line, spriteHeight, p.cgb)
	if p.cgb {
		// CGB priority: later OAM entries draw on top, so iterate in
		// reverse OAM order.
		for i := len(sprites) - 1; i >= 0; i-- {
			p.drawSprite(&sprites[i], line, bgColorIdx, bgAttrs)
		}
		return
	}
	for i := range sprites {
		p.drawSprite(&sprites[i], line, bgColorIdx, bgAttrs)
	}
}

func (p *PPU) drawSprite(s *sprite, line int, bgColorIdx *[Width]uint8, bgAttrs *[Width]byte) {
	rowInSprite := line - s.y
	if s.flipY {
		rowInSprite = s.height - 1 - rowInSprite
	}

	tileIndex := s.tileIndex
	if s.height == 16 {
		tileIndex &^= 0x01
		if rowInSprite >= 8 {
			tileIndex |= 0x01
			rowInSprite -= 8
		}
	}

	tileAddr := uint16(0x8000) + uint16(tileIndex)*16
	bank := 0
	if p.cgb {
		bank = s.cgbBank
	}
	row := fetchTileRow(vramReader{p.bus}, bank, tileAddr, rowInSprite)

	for px := 0; px < 8; px++ {
		x := s.x + px
		if x < 0 || x >= Width {
			continue
		}
		if !p.cgb && !p.priorityOwnsPixel(x, s) {
			continue
		}

		idx := row.colorIndex(px, s.flipX)
		if idx == 0 {
			continue // transparent
		}

		if s.behindBG && bgColorIdx[x] != 0 {
			continue
		}
		if p.cgb && bgAttrs[x]&0x80 != 0 && bgColorIdx[x] != 0 && bit.IsSet(0, p.lcdc) {
			continue // CGB BG-priority attribute overrides sprite
		}

		p.frame.Set(x, line, p.resolveSpriteColor(idx, s))
	}
}

func (p *PPU) priorityOwnsPixel(x int, s *sprite) bool {
	return p.oam.priority.owner[x] == s.oamIndex
}

func (p *PPU) resolveSpriteColor(colorIndex uint8, s *sprite) Color {
	if p.cgb {
		return p.fgPalette.color(s.cgbPalette, colorIndex)
	}
	if s.paletteOBP1 {
		return decodeDMGPalette(p.obp1)[colorIndex]
	}
	return decodeDMGPalette(p.obp0)[colorIndex]
}

// vramReader adapts Bus to the tileReader interface tile.go expects.
type vramReader struct{ bus Bus }

func (v vramReader) ReadVRAMBank(bank int, address uint16) byte {
	return v.bus.ReadVRAMBank(bank, address)
}
