package mmu

import (
	"testing"

	"dmg-core/internal/cartridge"
)

func newTestBus() *Bus {
	cart := makeCart(cartridge.MBC0, 2, 0)
	return NewBus(cart)
}

func TestBusRoutesVRAMWRAMHRAM(t *testing.T) {
	b := newTestBus()
	b.Write(0x8123, 0x11)
	if b.Read(0x8123) != 0x11 {
		t.Error("VRAM round-trip failed")
	}
	b.Write(0xC123, 0x22)
	if b.Read(0xC123) != 0x22 {
		t.Error("WRAM round-trip failed")
	}
	if b.Read(0xE123) != 0x22 {
		t.Error("echo RAM 0xE000-0xFDFF should mirror WRAM")
	}
	b.Write(0xFF85, 0x33)
	if b.Read(0xFF85) != 0x33 {
		t.Error("HRAM round-trip failed")
	}
}

func TestBusIFReadMasksUpperBitsHigh(t *testing.T) {
	b := newTestBus()
	b.IF = 0x01
	if got := b.Read(0xFF0F); got != 0xE1 {
		t.Errorf("IF read = %02X, want E1 (upper 3 bits forced high)", got)
	}
}

func TestBusIFWriteMasksToFiveBits(t *testing.T) {
	b := newTestBus()
	b.Write(0xFF0F, 0xFF)
	if b.IF != 0x1F {
		t.Errorf("IF = %02X, want 1F", b.IF)
	}
}

func TestBusIEReadWriteIsUnmasked(t *testing.T) {
	b := newTestBus()
	b.Write(0xFFFF, 0xAB)
	if b.Read(0xFFFF) != 0xAB {
		t.Errorf("IE = %02X, want AB", b.Read(0xFFFF))
	}
}

func TestBusDMALockoutAllowsOnlyHRAM(t *testing.T) {
	b := newTestBus()
	b.SetDMAActive(true)
	b.Write(0xC000, 0x99)
	if b.Read(0xC000) == 0x99 {
		t.Error("WRAM write should be blocked while DMA is active")
	}
	b.Write(0xFF80, 0x99)
	if b.Read(0xFF80) != 0x99 {
		t.Error("HRAM write should still succeed while DMA is active")
	}
}

func TestBusRequestInterruptSetsIFBit(t *testing.T) {
	b := newTestBus()
	b.RequestInterrupt(0x04)
	if b.IF&0x04 == 0 {
		t.Error("RequestInterrupt should OR the bit into IF")
	}
}

func TestBusOAMLockReturnsFF(t *testing.T) {
	b := newTestBus()
	b.Write(0xFE10, 0x7A)
	b.OAMLocked = true
	if got := b.Read(0xFE10); got != 0xFF {
		t.Errorf("locked OAM read = %02X, want FF", got)
	}
	b.Write(0xFE10, 0x00) // should be discarded while locked
	b.OAMLocked = false
	if got := b.Read(0xFE10); got != 0x7A {
		t.Errorf("OAM byte was clobbered during lock, got %02X, want 7A", got)
	}
}

func TestBusWriteOAMByteBypassesLock(t *testing.T) {
	b := newTestBus()
	b.OAMLocked = true
	b.WriteOAMByte(0x05, 0x42)
	b.OAMLocked = false
	if got := b.Read(0xFE05); got != 0x42 {
		t.Errorf("DMA-written OAM byte = %02X, want 42", got)
	}
}

func TestBusDMATriggerInvokesDMAPort(t *testing.T) {
	b := newTestBus()
	fake := &fakeDMA{}
	b.DMA = fake
	b.Write(0xFF46, 0xC0)
	if fake.started != 0xC0 {
		t.Errorf("DMA.Start called with %02X, want C0", fake.started)
	}
}

type fakeDMA struct{ started uint8 }

func (f *fakeDMA) Start(sourcePage uint8) { f.started = sourcePage }
