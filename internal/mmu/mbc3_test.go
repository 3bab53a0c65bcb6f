package mmu

import (
	"testing"

	"dmg-core/internal/cartridge"
)

func makeMBC3Cart(ramSize int) *cartridge.Cartridge {
	rom := make([]byte, 8*0x4000)
	for b := 0; b < 8; b++ {
		rom[b*0x4000] = byte(b)
	}
	return &cartridge.Cartridge{ROM: rom, RAM: make([]byte, ramSize), Mapper: cartridge.MBC3, ROMBanks: 8, RAMSize: ramSize}
}

func TestMBC3RAMBankingVsRTCSelect(t *testing.T) {
	m := newMBC3(makeMBC3Cart(32 * 1024))
	m.WriteROM(0x0000, 0x0A) // enable RAM/RTC
	m.WriteROM(0x4000, 0x01) // select RAM bank 1
	m.WriteRAM(0xA000, 0x55)
	if got := m.ReadRAM(0xA000); got != 0x55 {
		t.Errorf("RAM bank 1 byte = %02X, want 55", got)
	}

	m.WriteROM(0x4000, 0x08) // select RTC Seconds register
	m.WriteRAM(0xA000, 0x29)
	if got := m.live.Seconds; got != 0x29 {
		t.Errorf("live RTC seconds = %02X, want 29", got)
	}
}

func TestMBC3LatchSequenceSnapshotsLiveIntoLatched(t *testing.T) {
	m := newMBC3(makeMBC3Cart(0))
	m.WriteROM(0x0000, 0x0A)
	m.live.Seconds = 42

	m.WriteROM(0x4000, 0x08)
	if got := m.ReadRAM(0xA000); got != 0xFF {
		t.Errorf("latched seconds before any latch has occurred = %d, want FF", got)
	}

	m.WriteROM(0x6000, 0x00)
	m.WriteROM(0x6000, 0x01)
	if got := m.ReadRAM(0xA000); got != 42 {
		t.Errorf("latched seconds after 00->01 sequence = %d, want 42", got)
	}
}

func TestMBC3LatchRequiresZeroThenOne(t *testing.T) {
	m := newMBC3(makeMBC3Cart(0))
	m.WriteROM(0x0000, 0x0A)
	m.live.Seconds = 10
	m.WriteROM(0x4000, 0x08)

	m.WriteROM(0x6000, 0x01) // skipping the 00 step should not latch
	if got := m.ReadRAM(0xA000); got != 0xFF {
		t.Errorf("latch should not fire without a preceding 00 write, got %02X, want FF", got)
	}
}

func TestRTCRollsSecondsIntoMinutes(t *testing.T) {
	r := &rtc{Seconds: 59}
	r.subSecondCycles = cyclesPerSecond - 1
	r.tick()
	if r.Seconds != 0 || r.Minutes != 1 {
		t.Errorf("Seconds/Minutes = %d/%d, want 0/1", r.Seconds, r.Minutes)
	}
}

func TestRTCHaltStopsTicking(t *testing.T) {
	r := &rtc{Seconds: 5, DayHigh: 0x40}
	r.subSecondCycles = cyclesPerSecond - 1
	r.tick()
	if r.Seconds != 5 {
		t.Errorf("halted RTC advanced seconds to %d, want 5", r.Seconds)
	}
}

func TestRTCDayCounterOverflowSetsCarryBit(t *testing.T) {
	r := &rtc{Seconds: 59, Minutes: 59, Hours: 23, DayLow: 0xFF, DayHigh: 0x01}
	r.subSecondCycles = cyclesPerSecond - 1
	r.tick()
	if r.DayHigh&0x80 == 0 {
		t.Error("day overflow should set the carry bit")
	}
	if r.DayHigh&0x01 != 0 {
		t.Error("day-MSB bit should be cleared on overflow")
	}
	if r.DayLow != 0 || r.Hours != 0 {
		t.Errorf("DayLow/Hours = %d/%d, want 0/0 after rollover", r.DayLow, r.Hours)
	}
}
