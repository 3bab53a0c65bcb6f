package ppu

// beginMode3 resets the scanline's pixel pipeline: both FIFOs, the
// fetcher state machine, the window-active flag and the discard count
// that absorbs the first fetch plus SCX's sub-tile scroll offset.
func (p *PPU) beginMode3() {
	p.bgFIFO = p.bgFIFO[:0]
	p.spriteFIFO = p.spriteFIFO[:0]
	p.lx = 0
	p.discard = 8 + int(p.SCX%8)
	p.fetchState = 0
	p.fetchClock = 0
	p.fetchTileX = 0
	p.usingWindow = false
	p.windowPixelThisLine = false
	p.mode3Active = true
	for k := range p.spritesDone {
		delete(p.spritesDone, k)
	}
}

// stepMode3 runs one dot of the drawing pipeline: service an in-flight
// sprite fetch first (which pauses the BG/window fetcher), otherwise
// advance the BG/window fetcher and, once it has pixels queued, try to
// pop a combined pixel to the LCD.
func (p *PPU) stepMode3() {
	if p.spriteFetchActive {
		p.stepSpriteFetch()
		return
	}

	if p.checkSpriteTrigger() {
		return
	}

	p.stepBGFetcher()

	if len(p.bgFIFO) > 0 {
		p.popPixel()
	}

	if p.lx >= ScreenWidth {
		p.mode3Active = false
	}
}

// checkSpriteTrigger starts a sprite fetch when an un-fetched sprite's X
// lines up with the next pixel this scanline would emit. Returns true if
// a fetch was started (which consumes this dot).
func (p *PPU) checkSpriteTrigger() bool {
	if p.LCDC&0x02 == 0 {
		return false
	}
	outputX := p.lx
	for i, s := range p.scanlineSprites {
		if p.spritesDone[i] {
			continue
		}
		if int(s.x)-8 == outputX {
			p.spritesDone[i] = true
			p.pendingSprite = s
			p.spriteFetchActive = true
			p.spriteFetchState = 0
			p.spriteFetchClock = 0
			return true
		}
	}
	return false
}

func (p *PPU) stepSpriteFetch() {
	p.spriteFetchClock++
	if p.spriteFetchClock < 2 {
		return
	}
	p.spriteFetchClock = 0
	p.spriteFetchState++
	if p.spriteFetchState < 3 {
		return
	}

	s := p.pendingSprite
	height := 8
	if p.LCDC&0x04 != 0 {
		height = 16
	}
	line := int(p.LY) + 16 - int(s.y)
	if s.attr&0x40 != 0 { // Y-flip
		line = height - 1 - line
	}
	tile := s.tile
	if height == 16 {
		tile &^= 0x01
		if line >= 8 {
			tile |= 0x01
			line -= 8
		}
	}
	addr := uint16(tile)*16 + uint16(line)*2
	low := p.VRAM[addr]
	high := p.VRAM[addr+1]

	var pixels [8]fifoPixel
	for col := 0; col < 8; col++ {
		bit := col
		if s.attr&0x20 == 0 { // no X-flip: bit 7 is leftmost
			bit = 7 - col
		}
		lo := (low >> uint(bit)) & 1
		hi := (high >> uint(bit)) & 1
		color := lo | (hi << 1)
		palette := uint8(0)
		if s.attr&0x10 != 0 {
			palette = 1
		}
		pixels[col] = fifoPixel{color: color, bgPriority: s.attr&0x80 != 0, palette: palette}
	}
	p.mergeSpritePixels(pixels)
	p.spriteFetchActive = false
}

func (p *PPU) mergeSpritePixels(pixels [8]fifoPixel) {
	for i := 0; i < 8; i++ {
		np := pixels[i]
		if i < len(p.spriteFIFO) {
			existing := p.spriteFIFO[i]
			if np.color == 0 {
				continue
			}
			if existing.color == 0 || b2i(existing.bgPriority) > b2i(np.bgPriority) {
				p.spriteFIFO[i] = np
			}
		} else {
			p.spriteFIFO = append(p.spriteFIFO, np)
		}
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// stepBGFetcher advances the 4-phase BG/window tile fetcher. Phases 0-2
// take 2 dots each; phase 3 (push) retries every dot until the BG FIFO
// is empty, then the state machine restarts at phase 0 for the next
// tile column.
func (p *PPU) stepBGFetcher() {
	p.checkWindowActivation()

	if p.fetchState == 3 {
		if len(p.bgFIFO) == 0 {
			p.pushFetchedTile()
			p.fetchState = 0
			p.fetchClock = 0
			p.fetchTileX++
		}
		return
	}

	p.fetchClock++
	if p.fetchClock < 2 {
		return
	}
	p.fetchClock = 0

	switch p.fetchState {
	case 0:
		p.tileIndex = p.fetchTileIndex()
		p.fetchState = 1
	case 1:
		p.lowByte = p.fetchTileDataByte(false)
		p.fetchState = 2
	case 2:
		p.highByte = p.fetchTileDataByte(true)
		p.fetchState = 3
	}
}

// checkWindowActivation switches the fetcher onto the window tile map
// once WY has matched some LY this frame and the scanline's output
// pixel reaches WX-7, restarting the fetcher at tile column 0.
func (p *PPU) checkWindowActivation() {
	if p.usingWindow || p.LCDC&0x20 == 0 || !p.wyEqualedLYThisFrame {
		return
	}
	if p.lx+7 >= int(p.WX) && p.WX <= 166 {
		p.usingWindow = true
		p.windowPixelThisLine = true
		p.bgFIFO = p.bgFIFO[:0]
		p.fetchState = 0
		p.fetchClock = 0
		p.fetchTileX = 0
	}
}

func (p *PPU) fetchTileIndex() uint8 {
	var mapBase uint16
	var tileX, tileY int
	if p.usingWindow {
		if p.LCDC&0x40 != 0 {
			mapBase = 0x9C00
		} else {
			mapBase = 0x9800
		}
		tileX = p.fetchTileX
		tileY = p.windowLineCounter / 8
	} else {
		if p.LCDC&0x08 != 0 {
			mapBase = 0x9C00
		} else {
			mapBase = 0x9800
		}
		tileX = (int(p.SCX)/8 + p.fetchTileX) & 0x1F
		tileY = (int(p.LY) + int(p.SCY)) & 0xFF / 8
	}
	offset := (tileY%32)*32 + (tileX % 32)
	return p.VRAM[mapBase-0x8000+uint16(offset)]
}

func (p *PPU) fetchTileDataByte(high bool) uint8 {
	var line int
	if p.usingWindow {
		line = p.windowLineCounter % 8
	} else {
		line = (int(p.LY) + int(p.SCY)) % 8
	}

	var base uint16
	if p.LCDC&0x10 != 0 {
		base = 0x8000 + uint16(p.tileIndex)*16
	} else {
		base = uint16(0x9000 + int(int8(p.tileIndex))*16)
	}
	addr := base - 0x8000 + uint16(line)*2
	if high {
		return p.VRAM[addr+1]
	}
	return p.VRAM[addr]
}

func (p *PPU) pushFetchedTile() {
	for col := 0; col < 8; col++ {
		bit := 7 - col
		lo := (p.lowByte >> uint(bit)) & 1
		hi := (p.highByte >> uint(bit)) & 1
		color := lo | (hi << 1)
		p.bgFIFO = append(p.bgFIFO, fifoPixel{color: color})
	}
}

// popPixel drains one pixel from each FIFO, mixes BG/window against any
// queued sprite pixel honoring the OBJ-to-BG priority bit, and writes
// the result to the framebuffer once the per-scanline discard count has
// been exhausted.
func (p *PPU) popPixel() {
	bg := p.bgFIFO[0]
	p.bgFIFO = p.bgFIFO[1:]

	var sp fifoPixel
	if len(p.spriteFIFO) > 0 {
		sp = p.spriteFIFO[0]
		p.spriteFIFO = p.spriteFIFO[1:]
	}

	if p.discard > 0 {
		p.discard--
		return
	}

	bgColor := bg.color
	if p.LCDC&0x01 == 0 {
		bgColor = 0
	}

	var shade uint8
	if sp.color != 0 && (!sp.bgPriority || bgColor == 0) {
		shade = p.obp(sp.palette, sp.color)
	} else {
		shade = p.bgp(bgColor)
	}

	if p.lx < ScreenWidth {
		p.Framebuffer[int(p.LY)*ScreenWidth+p.lx] = shade
	}
	p.lx++
	if p.usingWindow && p.lx == ScreenWidth {
		p.windowLineCounter++
	}
}
