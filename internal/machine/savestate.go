package machine

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"dmg-core/internal/cpu"
)

const saveStateVersion = 1

func init() {
	gob.Register(cpu.CPUState{})
	gob.Register(SaveState{})
}

// SaveState is a snapshot of CPU registers, all RAM the bus owns (VRAM,
// WRAM, OAM, HRAM), IF/IE, cartridge RAM and the PPU registers. It does
// not hold the PPU's mode, dot or fetcher/FIFO state, the joypad latch,
// the timer, DMA progress, MBC banking or RTC registers, or the CPU's
// pending-EI flag. The cartridge ROM itself is not included; callers
// reload it via LoadROM before LoadState.
type SaveState struct {
	Version uint16

	CPUState cpu.CPUState

	VRAM [0x2000]byte
	WRAM [0x2000]byte
	OAM  [0xA0]byte
	HRAM [0x7F]byte
	IF   uint8
	IE   uint8

	CartRAM []byte

	PPU ppuState
}

type ppuState struct {
	LCDC, STAT, SCY, SCX, LY, LYC, WY, WX, BGP, OBP0, OBP1 uint8
}

// SaveState serializes the current machine state as a versioned gob blob.
func (m *Machine) SaveState() ([]byte, error) {
	state := SaveState{
		Version:  saveStateVersion,
		CPUState: m.CPU.State(),
		VRAM:     m.Bus.VRAM,
		WRAM:     m.Bus.WRAM,
		OAM:      m.Bus.OAM,
		HRAM:     m.Bus.HRAM,
		IF:       m.Bus.IF,
		IE:       m.Bus.IE,
		CartRAM:  m.Cart.DumpSave(),
		PPU: ppuState{
			LCDC: m.PPU.LCDC, STAT: m.PPU.STAT,
			SCY: m.PPU.SCY, SCX: m.PPU.SCX,
			LY: m.PPU.LY, LYC: m.PPU.LYC,
			WY: m.PPU.WY, WX: m.PPU.WX,
			BGP: m.PPU.BGP, OBP0: m.PPU.OBP0, OBP1: m.PPU.OBP1,
		},
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return nil, fmt.Errorf("failed to encode save state: %w", err)
	}
	return buf.Bytes(), nil
}

// LoadState restores a snapshot produced by SaveState against a machine
// that already has the matching ROM loaded.
func (m *Machine) LoadState(data []byte) error {
	var state SaveState
	if err := gob.NewDecoder(bytes.NewBuffer(data)).Decode(&state); err != nil {
		return fmt.Errorf("failed to decode save state: %w", err)
	}
	if state.Version != saveStateVersion {
		return fmt.Errorf("unsupported save state version: %d (expected %d)", state.Version, saveStateVersion)
	}

	m.CPU.Restore(state.CPUState)
	m.Bus.VRAM = state.VRAM
	m.Bus.WRAM = state.WRAM
	m.Bus.OAM = state.OAM
	m.Bus.HRAM = state.HRAM
	m.Bus.IF = state.IF
	m.Bus.IE = state.IE
	if len(state.CartRAM) == len(m.Cart.RAM) {
		copy(m.Cart.RAM, state.CartRAM)
	}

	m.PPU.LCDC = state.PPU.LCDC
	m.PPU.STAT = state.PPU.STAT
	m.PPU.SCY = state.PPU.SCY
	m.PPU.SCX = state.PPU.SCX
	m.PPU.LY = state.PPU.LY
	m.PPU.LYC = state.PPU.LYC
	m.PPU.WY = state.PPU.WY
	m.PPU.WX = state.PPU.WX
	m.PPU.BGP = state.PPU.BGP
	m.PPU.OBP0 = state.PPU.OBP0
	m.PPU.OBP1 = state.PPU.OBP1

	return nil
}
