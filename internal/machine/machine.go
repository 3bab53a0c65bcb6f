// Package machine wires the CPU, bus, PPU, timer, DMA engine and joypad
// into a runnable Game Boy: it owns the CPU-driven clock fan-out and the
// per-frame run loop.
package machine

import (
	"fmt"

	"dmg-core/internal/cartridge"
	"dmg-core/internal/cpu"
	"dmg-core/internal/debug"
	"dmg-core/internal/dma"
	"dmg-core/internal/input"
	"dmg-core/internal/mmu"
	"dmg-core/internal/ppu"
	"dmg-core/internal/timer"
)

// Machine owns every component and is the single entry point callers use
// to load a ROM, advance emulation, and exchange input/video/save data.
type Machine struct {
	CPU   *cpu.CPU
	Bus   *mmu.Bus
	PPU   *ppu.PPU
	Timer *timer.Timer
	DMA   *dma.DMA
	Input *input.Input
	Cart  *cartridge.Cartridge

	Logger *debug.Logger

	CyclesPerFrame uint64 // 70224 M*4 T-cycles per frame at DMG speed

	// OnStep, if set, is called after every CPU instruction StepFrame
	// executes. Used to drive a debug.CycleLogger without StepFrame
	// depending on the debug package's trace format.
	OnStep func(cpu.CPUState)
}

// New constructs a machine with no cartridge loaded. Call LoadROM before
// StepFrame.
func New() *Machine {
	logger := debug.NewLogger(10000)
	return NewWithLogger(logger)
}

// NewWithLogger constructs a machine sharing the given logger.
func NewWithLogger(logger *debug.Logger) *Machine {
	cart := &cartridge.Cartridge{ROM: make([]byte, 0x8000), Mapper: cartridge.MBC0, ROMBanks: 2}
	bus := mmu.NewBus(cart)

	irq := bus
	tmr := timer.New(irq)
	dmaEngine := dma.New(bus)
	joypad := input.New(irq)
	p := ppu.New(&bus.VRAM, &bus.OAM, irq)

	bus.PPU = p
	bus.Timer = tmr
	bus.DMA = dmaEngine
	bus.Input = joypad

	cpuLogger := cpu.NewCPULoggerAdapter(logger, cpu.CPULogNone)
	c := cpu.NewCPU(bus, cpuLogger)
	c.Tick = func() {
		tmr.Tick()
		tmr.Tick()
		tmr.Tick()
		tmr.Tick()
		dmaEngine.Tick()
		p.Tick()
		p.Tick()
		p.Tick()
		p.Tick()
		bus.Tick()
	}

	m := &Machine{
		CPU:            c,
		Bus:            bus,
		PPU:            p,
		Timer:          tmr,
		DMA:            dmaEngine,
		Input:          joypad,
		Cart:           cart,
		Logger:         logger,
		CyclesPerFrame: 70224,
	}
	return m
}

// LoadROM loads ROM data, replaces the cartridge and its MBC, rewires the
// bus to the new MBC, and resets the CPU to its post-boot-ROM state.
func (m *Machine) LoadROM(data []byte) error {
	cart, err := cartridge.Load(data)
	if err != nil {
		return fmt.Errorf("failed to load ROM: %w", err)
	}
	m.Cart = cart
	m.Bus.Cart = cart
	m.Bus.MBC = mmu.NewMBC(cart)
	m.CPU.Reset()
	return nil
}

// LoadSave restores battery-backed cartridge RAM (and, for MBC3
// cartridges, the live RTC isn't part of the save blob format here; only
// RAM contents are persisted).
func (m *Machine) LoadSave(data []byte) error {
	return m.Cart.LoadSave(data)
}

// DumpSave returns the current battery-backed cartridge RAM contents, or
// an empty slice if the cartridge has none.
func (m *Machine) DumpSave() []byte {
	return m.Cart.DumpSave()
}

// SetButtons latches the eight-button state the joypad register reports.
func (m *Machine) SetButtons(pressed [8]bool) {
	m.Input.SetButtons(pressed)
}

// Framebuffer returns the most recently completed 160x144 8-bit
// grayscale frame.
func (m *Machine) Framebuffer() *[ppu.ScreenWidth * ppu.ScreenHeight]uint8 {
	return &m.PPU.Framebuffer
}

// StepFrame runs the machine until the PPU completes one frame (reaches
// VBlank) and returns the number of CPU M-cycles consumed.
func (m *Machine) StepFrame() uint64 {
	m.PPU.FrameReady = false
	var mCycles uint64
	for !m.PPU.FrameReady {
		mCycles += uint64(m.CPU.Step())
		if m.OnStep != nil {
			m.OnStep(m.CPU.State())
		}
	}
	return mCycles
}

// Advance runs whole CPU instructions until at least the given number of
// M-cycles have elapsed (it can overshoot by the rest of the last
// instruction), useful for tests that need sub-frame granularity.
func (m *Machine) Advance(targetMCycles uint64) {
	var done uint64
	for done < targetMCycles {
		done += uint64(m.CPU.Step())
	}
}
