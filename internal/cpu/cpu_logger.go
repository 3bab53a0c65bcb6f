package cpu

import (
	"fmt"

	"dmg-core/internal/debug"
)

// CPULogLevel is a granular verbosity knob for CPU tracing, independent of
// the debug.Logger's own component/level gating.
type CPULogLevel int

const (
	CPULogNone CPULogLevel = iota
	CPULogErrors
	CPULogBranches
	CPULogMemory
	CPULogRegisters
	CPULogInstructions
	CPULogTrace
)

var branchOpcodes = map[uint8]bool{
	0x18: true, 0x20: true, 0x28: true, 0x30: true, 0x38: true, // JR
	0xC2: true, 0xC3: true, 0xCA: true, 0xD2: true, 0xDA: true, // JP
	0xC4: true, 0xCC: true, 0xCD: true, 0xD4: true, 0xDC: true, // CALL
	0xC0: true, 0xC8: true, 0xC9: true, 0xD0: true, 0xD8: true, 0xD9: true, // RET/RETI
	0xE9: true, // JP HL
}

// CPULoggerAdapter adapts debug.Logger to the CPU's narrow LoggerInterface.
type CPULoggerAdapter struct {
	logger    *debug.Logger
	level     CPULogLevel
	enabled   bool
	lastState CPUState
}

// NewCPULoggerAdapter wires a debug.Logger into the CPU at the given
// verbosity.
func NewCPULoggerAdapter(logger *debug.Logger, level CPULogLevel) *CPULoggerAdapter {
	return &CPULoggerAdapter{logger: logger, level: level, enabled: true}
}

func (a *CPULoggerAdapter) SetLevel(level CPULogLevel) { a.level = level }
func (a *CPULoggerAdapter) SetEnabled(enabled bool)    { a.enabled = enabled }

// LogCPU implements cpu.LoggerInterface.
func (a *CPULoggerAdapter) LogCPU(pc uint16, opcode uint8, state CPUState, mCycles uint32) {
	if !a.enabled || a.logger == nil || a.level == CPULogNone {
		return
	}

	var logLevel debug.LogLevel
	var message string
	var data map[string]interface{}

	switch a.level {
	case CPULogErrors:
		return

	case CPULogBranches:
		if !branchOpcodes[opcode] {
			return
		}
		logLevel = debug.LogLevelInfo
		message = a.formatInstruction(pc, opcode)
		data = a.getStateData(state, mCycles)

	case CPULogMemory:
		if opcode == 0xE2 || opcode == 0xF2 || opcode == 0xEA || opcode == 0xFA ||
			opcode == 0x02 || opcode == 0x0A || opcode == 0x12 || opcode == 0x1A ||
			opcode == 0x22 || opcode == 0x2A || opcode == 0x32 || opcode == 0x3A {
			logLevel = debug.LogLevelInfo
			message = a.formatInstruction(pc, opcode)
			data = a.getStateData(state, mCycles)
			data["memory_op"] = true
		} else if branchOpcodes[opcode] {
			logLevel = debug.LogLevelInfo
			message = a.formatInstruction(pc, opcode)
			data = a.getStateData(state, mCycles)
		} else {
			return
		}

	case CPULogRegisters:
		regChanged := a.detectRegisterChange(state)
		if regChanged || branchOpcodes[opcode] {
			logLevel = debug.LogLevelInfo
			message = a.formatInstruction(pc, opcode)
			data = a.getStateData(state, mCycles)
			if regChanged {
				data["registers_changed"] = true
			}
		} else {
			return
		}

	case CPULogInstructions:
		logLevel = debug.LogLevelDebug
		message = a.formatInstruction(pc, opcode)
		data = a.getStateData(state, mCycles)

	case CPULogTrace:
		logLevel = debug.LogLevelTrace
		message = a.formatInstruction(pc, opcode)
		data = a.getStateData(state, mCycles)
		data["trace"] = true
	}

	a.lastState = state
	a.logger.LogCPU(logLevel, message, data)
}

func (a *CPULoggerAdapter) formatInstruction(pc uint16, opcode uint8) string {
	return fmt.Sprintf("%02X @ %04X", opcode, pc)
}

func (a *CPULoggerAdapter) getStateData(state CPUState, mCycles uint32) map[string]interface{} {
	return map[string]interface{}{
		"pc":     fmt.Sprintf("%04X", state.PC),
		"sp":     fmt.Sprintf("%04X", state.SP),
		"a":      state.A,
		"f":      fmt.Sprintf("%08b", state.F),
		"bc":     fmt.Sprintf("%02X%02X", state.B, state.C),
		"de":     fmt.Sprintf("%02X%02X", state.D, state.E),
		"hl":     fmt.Sprintf("%02X%02X", state.H, state.L),
		"ime":    state.IME,
		"halted": state.Halted,
		"cycles": mCycles,
	}
}

func (a *CPULoggerAdapter) detectRegisterChange(state CPUState) bool {
	return state.A != a.lastState.A ||
		state.B != a.lastState.B ||
		state.C != a.lastState.C ||
		state.D != a.lastState.D ||
		state.E != a.lastState.E ||
		state.H != a.lastState.H ||
		state.L != a.lastState.L ||
		state.SP != a.lastState.SP
}
