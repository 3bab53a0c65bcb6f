// Package ppu implements the per-dot pixel-processing-unit pipeline: OAM
// scan, the BG/window fetcher and sprite fetcher state machines, the two
// pixel FIFOs, STAT rising-edge interrupt detection, and the 160x144
// grayscale framebuffer.
package ppu

// InterruptRequester lets the PPU raise VBlank/STAT without depending on
// the bus's concrete type.
type InterruptRequester interface {
	RequestInterrupt(bit uint8)
}

const (
	intVBlank uint8 = 1 << 0
	intSTAT   uint8 = 1 << 1
)

const (
	ScreenWidth  = 160
	ScreenHeight = 144
	dotsPerLine  = 456
)

var shadeTable = [4]uint8{0xFF, 0xAA, 0x55, 0x00}

type spriteEntry struct {
	y, x, tile, attr uint8
	oamIndex         int
}

type fifoPixel struct {
	color      uint8
	bgPriority bool
	palette    uint8
}

// PPU owns the register file, the VRAM/OAM it was constructed with
// (shared storage with the bus), and all per-scanline/per-frame pipeline
// state.
type PPU struct {
	VRAM *[0x2000]byte
	OAM  *[0xA0]byte

	LCDC, STAT, SCY, SCX, LY, LYC, WY, WX, BGP, OBP0, OBP1 uint8

	mode int
	dot  int // 1..456

	mode3Active bool
	lx          int // pixels pushed to the LCD this scanline
	discard     int // pending discarded FIFO pops at the start of mode 3

	bgFIFO     []fifoPixel
	spriteFIFO []fifoPixel

	fetchState  int // 0=tile 1=low 2=high 3=push
	fetchClock  int
	fetchTileX  int
	tileIndex   uint8
	lowByte     uint8
	highByte    uint8
	usingWindow bool

	wyEqualedLYThisFrame bool
	windowLineCounter    int
	windowPixelThisLine  bool

	spriteFetchActive bool
	spriteFetchState  int
	spriteFetchClock  int
	pendingSprite     spriteEntry
	scanlineSprites   []spriteEntry
	spritesDone       map[int]bool

	prevStatLine bool

	Framebuffer [ScreenWidth * ScreenHeight]uint8
	FrameReady  bool

	irq InterruptRequester
}

// New constructs a PPU sharing the given VRAM/OAM backing arrays.
func New(vram *[0x2000]byte, oam *[0xA0]byte, irq InterruptRequester) *PPU {
	p := &PPU{VRAM: vram, OAM: oam, irq: irq, spritesDone: make(map[int]bool)}
	for i := range p.Framebuffer {
		p.Framebuffer[i] = 0xFF
	}
	p.dot = 1
	return p
}

// ReadRegister implements mmu.PPUPorts.
func (p *PPU) ReadRegister(addr uint16) uint8 {
	switch addr {
	case 0xFF40:
		return p.LCDC
	case 0xFF41:
		return p.STAT | 0x80
	case 0xFF42:
		return p.SCY
	case 0xFF43:
		return p.SCX
	case 0xFF44:
		return p.LY
	case 0xFF45:
		return p.LYC
	case 0xFF46:
		return 0xFF // DMA is a write-only trigger
	case 0xFF47:
		return p.BGP
	case 0xFF48:
		return p.OBP0
	case 0xFF49:
		return p.OBP1
	case 0xFF4A:
		return p.WY
	case 0xFF4B:
		return p.WX
	default:
		return 0xFF
	}
}

// WriteRegister implements mmu.PPUPorts.
func (p *PPU) WriteRegister(addr uint16, value uint8) {
	switch addr {
	case 0xFF40:
		wasEnabled := p.LCDC&0x80 != 0
		p.LCDC = value
		if wasEnabled && value&0x80 == 0 {
			p.disableDisplay()
		} else if !wasEnabled && value&0x80 != 0 {
			p.enableDisplay()
		}
	case 0xFF41:
		p.STAT = (p.STAT & 0x07) | (value &^ 0x07)
	case 0xFF42:
		p.SCY = value
	case 0xFF43:
		p.SCX = value
	case 0xFF45:
		p.LYC = value
		p.updateLYCFlag()
	case 0xFF47:
		p.BGP = value
	case 0xFF48:
		p.OBP0 = value
	case 0xFF49:
		p.OBP1 = value
	case 0xFF4A:
		p.WY = value
	case 0xFF4B:
		p.WX = value
	}
}

// disableDisplay forces LY=0, Mode 0, clears STAT's low bits and drops
// all in-flight fetcher state, per a guest clearing LCDC bit 7.
func (p *PPU) disableDisplay() {
	p.LY = 0
	p.dot = 1
	p.mode = 0
	p.STAT &^= 0x07
	p.mode3Active = false
	p.spriteFetchActive = false
	p.bgFIFO = nil
	p.spriteFIFO = nil
	p.updateLYCFlag()
}

func (p *PPU) enableDisplay() {
	p.LY = 0
	p.dot = 1
	p.mode = 2
	p.wyEqualedLYThisFrame = p.WY == p.LY
	p.windowLineCounter = 0
	p.updateLYCFlag()
}

func (p *PPU) updateLYCFlag() {
	if p.LY == p.LYC {
		p.STAT |= 0x04
	} else {
		p.STAT &^= 0x04
	}
	p.updateStatLine()
}

func (p *PPU) setMode(mode int) {
	p.mode = mode
	p.STAT = (p.STAT &^ 0x03) | uint8(mode)
	p.updateStatLine()
}

// updateStatLine recomputes the composite STAT line and requests an
// interrupt only on its 0->1 transition.
func (p *PPU) updateStatLine() {
	line := p.STAT&0x04 != 0 && p.STAT&0x40 != 0
	switch p.mode {
	case 0:
		line = line || p.STAT&0x08 != 0
	case 1:
		line = line || p.STAT&0x10 != 0
	case 2:
		line = line || p.STAT&0x20 != 0
	}
	if line && !p.prevStatLine && p.irq != nil {
		p.irq.RequestInterrupt(intSTAT)
	}
	p.prevStatLine = line
}

// Tick advances the PPU by one T-cycle. The CPU Tick closure installed by
// Machine calls this four times per CPU M-cycle.
func (p *PPU) Tick() {
	if p.LCDC&0x80 == 0 {
		return
	}

	if p.LY < 144 {
		switch {
		case p.dot == 1:
			p.beginOAMScan()
			p.setMode(2)
			p.stepOAMScan()
		case p.dot <= 80:
			p.stepOAMScan()
		case p.dot == 81:
			p.beginMode3()
			p.setMode(3)
			p.stepMode3()
		case p.mode3Active:
			p.stepMode3()
		default:
			p.setMode(0)
		}
	} else if p.dot == 1 {
		p.setMode(1)
	}

	p.dot++
	if p.dot > dotsPerLine {
		p.dot = 1
		p.advanceLY()
	}
}

func (p *PPU) advanceLY() {
	p.LY++
	if p.LY == 144 {
		p.requestVBlank()
	}
	if p.LY > 153 {
		p.LY = 0
		p.wyEqualedLYThisFrame = false
		p.windowLineCounter = 0
	}
	if p.LY < 144 && p.WY == p.LY {
		p.wyEqualedLYThisFrame = true
	}
	p.mode3Active = false
	p.updateLYCFlag()
}

func (p *PPU) requestVBlank() {
	p.FrameReady = true
	if p.irq != nil {
		p.irq.RequestInterrupt(intVBlank)
	}
}

func (p *PPU) beginOAMScan() {
	p.scanlineSprites = p.scanlineSprites[:0]
}

func (p *PPU) stepOAMScan() {
	if p.dot%2 != 1 {
		return
	}
	idx := (p.dot - 1) / 2
	if idx >= 40 {
		return
	}
	entry := idx * 4
	y := int((*p.OAM)[entry])
	x := (*p.OAM)[entry+1]
	tile := (*p.OAM)[entry+2]
	attr := (*p.OAM)[entry+3]

	height := 8
	if p.LCDC&0x04 != 0 {
		height = 16
	}

	if len(p.scanlineSprites) < 10 && int(p.LY)+16 >= y && int(p.LY)+16 < y+height {
		p.scanlineSprites = append(p.scanlineSprites, spriteEntry{y: uint8(y), x: x, tile: tile, attr: attr, oamIndex: idx})
	}
}

// CurrentLine and FrameIsReady implement debug.PPUStateReader for the
// cycle logger.
func (p *PPU) CurrentLine() uint8         { return p.LY }
func (p *PPU) FrameIsReady() bool         { return p.FrameReady }
func (p *PPU) ReadOAM(offset uint8) uint8 { return p.OAM[offset] }

func (p *PPU) bgp(color uint8) uint8 { return shadeTable[(p.BGP>>(color*2))&0x03] }

func (p *PPU) obp(pal, color uint8) uint8 {
	reg := p.OBP0
	if pal == 1 {
		reg = p.OBP1
	}
	return shadeTable[(reg>>(color*2))&0x03]
}
