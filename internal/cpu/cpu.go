// Package cpu implements the Sharp SM83 interpreter: fetch-decode-execute,
// flag semantics, and interrupt dispatch. Memory access and internal delays
// are routed through a single timing hook so the owner can fan out DIV,
// OAM-DMA and the PPU dot clock from one place.
package cpu

import "fmt"

// Flag bits within F. The low nibble of F is always zero.
const (
	FlagC uint8 = 1 << 4
	FlagH uint8 = 1 << 5
	FlagN uint8 = 1 << 6
	FlagZ uint8 = 1 << 7
)

// Interrupt bits, in dispatch priority order (bit 0 highest).
const (
	IntVBlank uint8 = 1 << 0
	IntSTAT   uint8 = 1 << 1
	IntTimer  uint8 = 1 << 2
	IntSerial uint8 = 1 << 3
	IntJoypad uint8 = 1 << 4
)

var interruptVectors = [5]uint16{0x0040, 0x0048, 0x0050, 0x0058, 0x0060}

// MemoryInterface is the narrow bus contract the CPU drives. Implementations
// decode the 64 KiB address space (MMU/MBC, VRAM, WRAM, OAM, I/O, HRAM, IE).
type MemoryInterface interface {
	Read(addr uint16) uint8
	Write(addr uint16, value uint8)
}

// LoggerInterface lets the CPU emit trace data without depending on the
// concrete logger implementation.
type LoggerInterface interface {
	LogCPU(pc uint16, opcode uint8, state CPUState, mCycles uint32)
}

// CPUState is an immutable snapshot of the register file, handed to the
// logger and to save-state serialization.
type CPUState struct {
	A, F, B, C, D, E, H, L uint8
	SP, PC                 uint16
	IME                    bool
	Halted                 bool
}

// CPU is the SM83 interpreter. It owns only register state; everything it
// touches in memory goes through Mem, and every M-cycle it spends is
// reported through Tick so the owning machine can advance the timer, DMA,
// and PPU in lockstep.
type CPU struct {
	A, F, B, C, D, E, H, L uint8
	SP, PC                 uint16

	IME       bool
	eiPending bool
	Halted    bool

	Mem MemoryInterface
	Log LoggerInterface

	// Tick is invoked once per M-cycle consumed: once per bus read/write and
	// once per internal delay. The owning Machine wires this to a closure
	// that ticks the timer, DMA, PPU and cartridge.
	Tick func()

	mCyclesThisStep uint32
}

// NewCPU constructs a CPU wired to the given bus and optional logger. Tick
// must be assigned by the caller before Step is invoked.
func NewCPU(mem MemoryInterface, log LoggerInterface) *CPU {
	c := &CPU{Mem: mem, Log: log}
	c.Reset()
	return c
}

// Reset sets the register file to the post-boot-ROM values a real DMG has
// once the boot ROM hands off to the cartridge.
func (c *CPU) Reset() {
	c.A, c.F = 0x01, 0xB0
	c.B, c.C = 0x00, 0x13
	c.D, c.E = 0x00, 0xD8
	c.H, c.L = 0x01, 0x4D
	c.SP = 0xFFFE
	c.PC = 0x0100
	c.IME = false
	c.eiPending = false
	c.Halted = false
}

// State returns a snapshot of the register file for logging/save-state use.
func (c *CPU) State() CPUState {
	return CPUState{A: c.A, F: c.F, B: c.B, C: c.C, D: c.D, E: c.E, H: c.H, L: c.L, SP: c.SP, PC: c.PC, IME: c.IME, Halted: c.Halted}
}

// Restore loads a previously captured snapshot.
func (c *CPU) Restore(s CPUState) {
	c.A, c.F = s.A, s.F&0xF0
	c.B, c.C = s.B, s.C
	c.D, c.E = s.D, s.E
	c.H, c.L = s.H, s.L
	c.SP, c.PC = s.SP, s.PC
	c.IME = s.IME
	c.Halted = s.Halted
}

func (c *CPU) tick() {
	c.mCyclesThisStep++
	if c.Tick != nil {
		c.Tick()
	}
}

func (c *CPU) readByte(addr uint16) uint8 {
	v := c.Mem.Read(addr)
	c.tick()
	return v
}

func (c *CPU) writeByte(addr uint16, v uint8) {
	c.Mem.Write(addr, v)
	c.tick()
}

func (c *CPU) fetch() uint8 {
	v := c.readByte(c.PC)
	c.PC++
	return v
}

func (c *CPU) fetch16() uint16 {
	lo := c.fetch()
	hi := c.fetch()
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) push16(v uint16) {
	c.SP--
	c.writeByte(c.SP, uint8(v>>8))
	c.SP--
	c.writeByte(c.SP, uint8(v))
}

func (c *CPU) pop16() uint16 {
	lo := c.readByte(c.SP)
	c.SP++
	hi := c.readByte(c.SP)
	c.SP++
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) getFlag(f uint8) bool { return c.F&f != 0 }

func (c *CPU) setFlag(f uint8, v bool) {
	if v {
		c.F |= f
	} else {
		c.F &^= f
	}
	c.F &= 0xF0
}

func (c *CPU) af() uint16 { return uint16(c.A)<<8 | uint16(c.F) }
func (c *CPU) bc() uint16 { return uint16(c.B)<<8 | uint16(c.C) }
func (c *CPU) de() uint16 { return uint16(c.D)<<8 | uint16(c.E) }
func (c *CPU) hl() uint16 { return uint16(c.H)<<8 | uint16(c.L) }

func (c *CPU) setAF(v uint16) { c.A = uint8(v >> 8); c.F = uint8(v) & 0xF0 }
func (c *CPU) setBC(v uint16) { c.B = uint8(v >> 8); c.C = uint8(v) }
func (c *CPU) setDE(v uint16) { c.D = uint8(v >> 8); c.E = uint8(v) }
func (c *CPU) setHL(v uint16) { c.H = uint8(v >> 8); c.L = uint8(v) }

// r8 reads one of the eight z80-order 8-bit operands: B C D E H L (HL) A.
func (c *CPU) r8(i uint8) uint8 {
	switch i {
	case 0:
		return c.B
	case 1:
		return c.C
	case 2:
		return c.D
	case 3:
		return c.E
	case 4:
		return c.H
	case 5:
		return c.L
	case 6:
		return c.readByte(c.hl())
	default:
		return c.A
	}
}

func (c *CPU) setR8(i uint8, v uint8) {
	switch i {
	case 0:
		c.B = v
	case 1:
		c.C = v
	case 2:
		c.D = v
	case 3:
		c.E = v
	case 4:
		c.H = v
	case 5:
		c.L = v
	case 6:
		c.writeByte(c.hl(), v)
	default:
		c.A = v
	}
}

func (c *CPU) rp(i uint8) uint16 {
	switch i {
	case 0:
		return c.bc()
	case 1:
		return c.de()
	case 2:
		return c.hl()
	default:
		return c.SP
	}
}

func (c *CPU) setRP(i uint8, v uint16) {
	switch i {
	case 0:
		c.setBC(v)
	case 1:
		c.setDE(v)
	case 2:
		c.setHL(v)
	default:
		c.SP = v
	}
}

func (c *CPU) cond(i uint8) bool {
	switch i {
	case 0:
		return !c.getFlag(FlagZ)
	case 1:
		return c.getFlag(FlagZ)
	case 2:
		return !c.getFlag(FlagC)
	default:
		return c.getFlag(FlagC)
	}
}

// ifReg and ieReg are peeked directly rather than through the ticked bus
// wrapper: the pending-interrupt check happens for free between
// instructions on real hardware, it is not a guest-visible bus cycle.
func (c *CPU) ifReg() uint8 { return c.Mem.Read(0xFF0F) }
func (c *CPU) ieReg() uint8 { return c.Mem.Read(0xFFFF) }

func (c *CPU) pendingInterrupts() uint8 {
	return c.ieReg() & c.ifReg() & 0x1F
}

// Step runs exactly one instruction (or one HALT-idle M-cycle, or one
// interrupt dispatch) to completion and returns the number of M-cycles
// consumed, matching the documented M-cycle count for that path.
func (c *CPU) Step() uint32 {
	c.mCyclesThisStep = 0

	if c.eiPending {
		c.eiPending = false
		c.IME = true
	}

	if c.Halted {
		if c.pendingInterrupts() != 0 {
			c.Halted = false
		} else {
			c.tick()
			return c.mCyclesThisStep
		}
	}

	if c.IME && c.pendingInterrupts() != 0 {
		c.dispatchInterrupt()
		return c.mCyclesThisStep
	}

	pc := c.PC
	opcode := c.fetch()

	if c.Log != nil {
		c.Log.LogCPU(pc, opcode, c.State(), 0)
	}

	c.execute(opcode)

	return c.mCyclesThisStep
}

// dispatchInterrupt implements the 5 M-cycle sequence: two internal delays,
// a two-write push of PC, then the jump to the vector.
func (c *CPU) dispatchInterrupt() {
	pending := c.pendingInterrupts()
	var bit uint8
	var vector uint16
	for i := 0; i < 5; i++ {
		if pending&(1<<uint(i)) != 0 {
			bit = uint8(1 << uint(i))
			vector = interruptVectors[i]
			break
		}
	}

	c.IME = false
	c.Mem.Write(0xFF0F, c.ifReg()&^bit)

	c.tick()
	c.tick()
	c.push16(c.PC)
	c.PC = vector
	c.tick()
}

func (c *CPU) assert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
