package debug

import (
	"fmt"
	"os"
	"sync"
)

// OAMReader reads a single OAM byte, for the sprite-0 snapshot in each
// trace line.
type OAMReader interface {
	ReadOAM(offset uint8) uint8
}

// MemoryReader reads a single bus byte (matches mmu.Bus.Read's signature
// directly, so a *mmu.Bus satisfies this with no adapter).
type MemoryReader interface {
	Read(addr uint16) uint8
}

// PPUStateReader exposes the minimum PPU state a trace line needs.
type PPUStateReader interface {
	CurrentLine() uint8
	FrameIsReady() bool
}

// CPUStateSnapshot mirrors cpu.CPUState without importing the cpu package
// (which already imports debug for CPULoggerAdapter).
type CPUStateSnapshot struct {
	A, F, B, C, D, E, H, L uint8
	SP, PC                 uint16
	IME                    bool
	Halted                 bool
}

// CycleLogger writes one line per CPU instruction step: registers, flags,
// PPU line/VBlank state and OAM sprite 0, for bisecting timing bugs
// against a reference trace.
type CycleLogger struct {
	file         *os.File
	maxCycles    uint64
	startCycle   uint64
	currentCycle uint64
	totalCycles  uint64
	enabled      bool
	mu           sync.Mutex

	bus MemoryReader
	oam OAMReader
	ppu PPUStateReader
}

// NewCycleLogger creates a cycle logger writing to filename. maxCycles=0
// logs without a cap; startCycle defers logging until that many steps
// have elapsed.
func NewCycleLogger(filename string, maxCycles uint64, startCycle uint64, bus MemoryReader, oam OAMReader, ppu PPUStateReader) (*CycleLogger, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create cycle log file: %w", err)
	}

	logger := &CycleLogger{
		file:       file,
		maxCycles:  maxCycles,
		startCycle: startCycle,
		enabled:    true,
		bus:        bus,
		oam:        oam,
		ppu:        ppu,
	}

	fmt.Fprintf(file, "Cycle-by-Cycle Debug Log\n")
	fmt.Fprintf(file, "========================\n\n")
	if startCycle > 0 {
		fmt.Fprintf(file, "Start cycle offset: %d\n", startCycle)
	}
	if maxCycles > 0 {
		fmt.Fprintf(file, "Max cycles to log: %d\n", maxCycles)
	}
	fmt.Fprintf(file, "\nFormat: Step | PC | AF BC DE HL | SP | Flags | PPU | OAM[sprite 0]\n\n")

	return logger, nil
}

// LogCycle appends one trace line for the given CPU register snapshot.
func (c *CycleLogger) LogCycle(cpuState *CPUStateSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return
	}

	c.totalCycles++
	if c.totalCycles < c.startCycle {
		return
	}
	if c.maxCycles > 0 && c.currentCycle >= c.maxCycles {
		c.enabled = false
		return
	}
	c.currentCycle++

	var oamSprite0 [4]uint8
	if c.oam != nil {
		for i := range oamSprite0 {
			oamSprite0[i] = c.oam.ReadOAM(uint8(i))
		}
	}

	line := uint8(0)
	frameReady := false
	if c.ppu != nil {
		line = c.ppu.CurrentLine()
		frameReady = c.ppu.FrameIsReady()
	}

	fmt.Fprintf(c.file, "Step %6d | PC %04X | AF:%02X%02X BC:%02X%02X DE:%02X%02X HL:%02X%02X | SP:%04X | ",
		c.totalCycles, cpuState.PC, cpuState.A, cpuState.F, cpuState.B, cpuState.C,
		cpuState.D, cpuState.E, cpuState.H, cpuState.L, cpuState.SP)
	fmt.Fprintf(c.file, "Z:%d N:%d H:%d C:%d IME:%v HALT:%v | ",
		(cpuState.F>>7)&1, (cpuState.F>>6)&1, (cpuState.F>>5)&1, (cpuState.F>>4)&1,
		cpuState.IME, cpuState.Halted)
	fmt.Fprintf(c.file, "LY:%03d FrameReady:%v | OAM0:%02X %02X %02X %02X\n",
		line, frameReady, oamSprite0[0], oamSprite0[1], oamSprite0[2], oamSprite0[3])
}

// SetEnabled enables or disables logging.
func (c *CycleLogger) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

// Toggle flips the enabled state.
func (c *CycleLogger) Toggle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = !c.enabled
}

// Close flushes the trailer and closes the log file.
func (c *CycleLogger) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.enabled = false
	if c.file != nil {
		fmt.Fprintf(c.file, "\n\nLog complete. Total steps logged: %d\n", c.currentCycle)
		err := c.file.Close()
		c.file = nil
		return err
	}
	return nil
}

// IsEnabled reports whether logging is still active (respecting maxCycles).
func (c *CycleLogger) IsEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled && (c.maxCycles == 0 || c.currentCycle < c.maxCycles)
}

// GetStatus returns the current logging counters.
func (c *CycleLogger) GetStatus() (enabled bool, currentCycle uint64, totalCycles uint64, maxCycles uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled, c.currentCycle, c.totalCycles, c.maxCycles
}
