package ppu

import "testing"

type fakeIRQ struct {
	vblank int
	stat   int
}

func (f *fakeIRQ) RequestInterrupt(bit uint8) {
	switch bit {
	case intVBlank:
		f.vblank++
	case intSTAT:
		f.stat++
	}
}

func newTestPPU() (*PPU, *fakeIRQ) {
	var vram [0x2000]byte
	var oam [0xA0]byte
	irq := &fakeIRQ{}
	return New(&vram, &oam, irq), irq
}

func stepTicks(p *PPU, n int) {
	for i := 0; i < n; i++ {
		p.Tick()
	}
}

func TestModeSequenceOverOneScanline(t *testing.T) {
	p, _ := newTestPPU()
	p.WriteRegister(0xFF40, 0x91) // LCD on, BG on, BG map 9800, BG tiles 8000

	p.Tick() // dot 1 -> mode 2 begins
	if got := p.STAT & 0x03; got != 2 {
		t.Fatalf("mode after dot 1 = %d, want 2 (OAM scan)", got)
	}

	stepTicks(p, 79) // dots 2..80 remain in OAM scan
	if got := p.STAT & 0x03; got != 2 {
		t.Fatalf("mode at dot 80 = %d, want 2", got)
	}

	p.Tick() // dot 81 -> mode 3 begins
	if got := p.STAT & 0x03; got != 3 {
		t.Fatalf("mode after dot 81 = %d, want 3 (drawing)", got)
	}

	sawHBlank := false
	for i := 0; i < 456-81; i++ {
		p.Tick()
		if p.STAT&0x03 == 0 {
			sawHBlank = true
		}
	}
	if !sawHBlank {
		t.Error("scanline never reached HBlank (mode 0) before the line ended")
	}
	if p.LY != 1 {
		t.Errorf("LY = %d, want 1 after exactly 456 dots", p.LY)
	}
}

func TestVBlankFiresAtLine144AndSetsFrameReady(t *testing.T) {
	p, irq := newTestPPU()
	p.WriteRegister(0xFF40, 0x91)

	stepTicks(p, 144*dotsPerLine)

	if p.LY != 144 {
		t.Fatalf("LY = %d, want 144", p.LY)
	}
	if !p.FrameReady {
		t.Error("FrameReady should be set once LY reaches 144")
	}
	if irq.vblank != 1 {
		t.Errorf("vblank interrupt count = %d, want 1", irq.vblank)
	}
}

func TestFrameWrapsAfter154Lines(t *testing.T) {
	p, _ := newTestPPU()
	p.WriteRegister(0xFF40, 0x91)

	stepTicks(p, 154*dotsPerLine)

	if p.LY != 0 {
		t.Errorf("LY = %d, want 0 after a full 154-line frame", p.LY)
	}
}

func TestLYCInterruptFiresOnRisingEdge(t *testing.T) {
	p, irq := newTestPPU()
	p.WriteRegister(0xFF45, 5)    // LYC = 5
	p.WriteRegister(0xFF41, 0x40) // enable LYC=LY STAT interrupt
	p.WriteRegister(0xFF40, 0x91)

	stepTicks(p, 5*dotsPerLine)

	if irq.stat == 0 {
		t.Error("expected a STAT interrupt once LY reached LYC")
	}
}

func TestOAMScanSelectsAtMostTenSpritesInOrder(t *testing.T) {
	p, _ := newTestPPU()
	p.LCDC = 0x91 // 8-pixel sprites
	p.LY = 50
	for i := 0; i < 12; i++ {
		base := i * 4
		p.OAM[base] = 50 + 16   // Y: visible at LY=50 (LY+16 >= y, LY+16 < y+8)
		p.OAM[base+1] = uint8(i + 8)
		p.OAM[base+2] = uint8(i)
		p.OAM[base+3] = 0
	}
	p.beginOAMScan()
	for dot := 1; dot <= 80; dot++ {
		p.dot = dot
		p.stepOAMScan()
	}
	if len(p.scanlineSprites) != 10 {
		t.Fatalf("selected %d sprites, want 10 (OAM scan caps at 10)", len(p.scanlineSprites))
	}
	for i, s := range p.scanlineSprites {
		if s.oamIndex != i {
			t.Errorf("sprite %d has oamIndex %d, want %d (first-in-OAM-order selection)", i, s.oamIndex, i)
		}
	}
}

func TestOAMScanRespectsDoubleHeightSprites(t *testing.T) {
	p, _ := newTestPPU()
	p.LCDC = 0x91 | 0x04 // 16-pixel sprites
	p.LY = 40
	p.OAM[0] = 48          // y=48: 16-tall sprite covers screen rows 32..47
	p.OAM[1] = 10
	p.OAM[2] = 0
	p.OAM[3] = 0
	p.beginOAMScan()
	for dot := 1; dot <= 80; dot++ {
		p.dot = dot
		p.stepOAMScan()
	}
	if len(p.scanlineSprites) != 1 {
		t.Fatalf("expected the 16-tall sprite to be visible at LY=40, got %d sprites", len(p.scanlineSprites))
	}
}

func TestSpritePixelWinsOverNonZeroBackgroundWhenNotBehindBG(t *testing.T) {
	p, _ := newTestPPU()
	p.LCDC = 0x91
	p.BGP = 0xE4
	p.OBP0 = 0xE4
	p.bgFIFO = []fifoPixel{{color: 2}}
	p.mergeSpritePixels([8]fifoPixel{{color: 3, bgPriority: false}})
	p.discard = 0
	p.popPixel()
	want := p.obp(0, 3)
	if got := p.Framebuffer[0]; got != want {
		t.Errorf("pixel = %02X, want sprite color %02X (sprite above BG)", got, want)
	}
}

func TestBackgroundWinsWhenSpriteMarkedBehindBGAndBGNonZero(t *testing.T) {
	p, _ := newTestPPU()
	p.LCDC = 0x91
	p.BGP = 0xE4
	p.OBP0 = 0xE4
	p.bgFIFO = []fifoPixel{{color: 2}}
	p.mergeSpritePixels([8]fifoPixel{{color: 3, bgPriority: true}})
	p.discard = 0
	p.popPixel()
	want := p.bgp(2)
	if got := p.Framebuffer[0]; got != want {
		t.Errorf("pixel = %02X, want BG color %02X (sprite marked behind non-zero BG)", got, want)
	}
}

func TestTransparentSpritePixelNeverShows(t *testing.T) {
	p, _ := newTestPPU()
	p.LCDC = 0x91
	p.BGP = 0xE4
	p.bgFIFO = []fifoPixel{{color: 1}}
	p.mergeSpritePixels([8]fifoPixel{{color: 0, bgPriority: false}})
	p.discard = 0
	p.popPixel()
	want := p.bgp(1)
	if got := p.Framebuffer[0]; got != want {
		t.Errorf("pixel = %02X, want BG color %02X (transparent sprite pixel)", got, want)
	}
}

func TestMergeSpritePixelsDoesNotOverwriteHigherPriorityExisting(t *testing.T) {
	p, _ := newTestPPU()
	p.spriteFIFO = []fifoPixel{{color: 1, bgPriority: false}}
	p.mergeSpritePixels([8]fifoPixel{{color: 2, bgPriority: true}})
	if p.spriteFIFO[0].color != 1 {
		t.Errorf("existing higher-priority sprite pixel was overwritten, color = %d", p.spriteFIFO[0].color)
	}
}

func TestMergeSpritePixelsOverwritesLowerPriorityExisting(t *testing.T) {
	p, _ := newTestPPU()
	p.spriteFIFO = []fifoPixel{{color: 1, bgPriority: true}}
	p.mergeSpritePixels([8]fifoPixel{{color: 2, bgPriority: false}})
	if p.spriteFIFO[0].color != 2 {
		t.Errorf("lower-priority existing pixel should have been replaced, color = %d", p.spriteFIFO[0].color)
	}
}

func TestWindowActivatesWhenWYMatchedAndLXCrossesWX(t *testing.T) {
	p, _ := newTestPPU()
	p.LCDC = 0x91 | 0x20 // window enabled
	p.wyEqualedLYThisFrame = true
	p.WX = 7
	p.lx = 0
	p.checkWindowActivation()
	if !p.usingWindow {
		t.Error("window should activate once lx+7 >= WX with WY matched this frame")
	}
	if !p.windowPixelThisLine {
		t.Error("windowPixelThisLine should be set once the window activates")
	}
}

func TestWindowDoesNotActivateWithoutWYMatch(t *testing.T) {
	p, _ := newTestPPU()
	p.LCDC = 0x91 | 0x20
	p.wyEqualedLYThisFrame = false
	p.WX = 7
	p.lx = 0
	p.checkWindowActivation()
	if p.usingWindow {
		t.Error("window should not activate unless WY matched LY at some point this frame")
	}
}

func TestWindowLineCounterIncrementsOnceAtEndOfScanline(t *testing.T) {
	p, _ := newTestPPU()
	p.usingWindow = true
	p.bgFIFO = []fifoPixel{{color: 0}}
	p.lx = ScreenWidth - 1
	p.discard = 0
	before := p.windowLineCounter
	p.popPixel()
	if p.windowLineCounter != before+1 {
		t.Errorf("windowLineCounter = %d, want %d after the last visible pixel of a window-using line", p.windowLineCounter, before+1)
	}
}

func TestDisableDisplayResetsLineState(t *testing.T) {
	p, _ := newTestPPU()
	p.WriteRegister(0xFF40, 0x91)
	stepTicks(p, 200)
	p.WriteRegister(0xFF40, 0x11) // clear bit 7
	if p.LY != 0 || p.STAT&0x03 != 0 {
		t.Errorf("LY/mode after disable = %d/%d, want 0/0", p.LY, p.STAT&0x03)
	}
	if len(p.bgFIFO) != 0 || len(p.spriteFIFO) != 0 {
		t.Error("disabling the display should drop in-flight FIFO state")
	}
}

func TestDisabledDisplayIgnoresTicks(t *testing.T) {
	p, _ := newTestPPU()
	stepTicks(p, 10000)
	if p.LY != 0 {
		t.Errorf("LY = %d, want 0 while the display stays disabled", p.LY)
	}
}
