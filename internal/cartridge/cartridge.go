// Package cartridge parses the Game Boy ROM header and owns the raw ROM
// image plus any battery-backed external RAM.
package cartridge

import "fmt"

// Type identifies the memory-bank-controller family a cartridge uses.
type Type int

const (
	MBC0 Type = iota
	MBC1
	MBC3
	MBC5
)

func (t Type) String() string {
	switch t {
	case MBC0:
		return "MBC0"
	case MBC1:
		return "MBC1"
	case MBC3:
		return "MBC3"
	case MBC5:
		return "MBC5"
	default:
		return "unknown"
	}
}

const (
	headerLogoStart     = 0x0104
	headerTitleStart     = 0x0134
	headerCartTypeAddr  = 0x0147
	headerROMSizeAddr   = 0x0148
	headerRAMSizeAddr   = 0x0149
	headerChecksumAddr  = 0x014D
	minROMSize          = 0x8000
)

// Cartridge owns the ROM image and any external RAM, plus the facts derived
// from the header: bank controller family, battery/RTC/rumble presence, and
// declared bank counts.
type Cartridge struct {
	ROM []byte
	RAM []byte

	Mapper    Type
	Battery   bool
	HasRTC    bool
	Rumble    bool
	ROMBanks  int
	RAMSize   int
	Title     string
}

type cartTypeInfo struct {
	mapper  Type
	battery bool
	rtc     bool
	rumble  bool
}

var cartTypeTable = map[uint8]cartTypeInfo{
	0x00: {MBC0, false, false, false},
	0x01: {MBC1, false, false, false},
	0x02: {MBC1, false, false, false},
	0x03: {MBC1, true, false, false},
	0x0F: {MBC3, true, true, false},
	0x10: {MBC3, true, true, false},
	0x11: {MBC3, false, false, false},
	0x12: {MBC3, false, false, false},
	0x13: {MBC3, true, false, false},
	0x19: {MBC5, false, false, false},
	0x1A: {MBC5, false, false, false},
	0x1B: {MBC5, true, false, false},
	0x1C: {MBC5, false, false, true},
	0x1D: {MBC5, false, false, true},
	0x1E: {MBC5, true, false, true},
}

var ramSizeTable = map[uint8]int{
	0x00: 0,
	0x01: 2 * 1024,
	0x02: 8 * 1024,
	0x03: 32 * 1024,
	0x04: 128 * 1024,
	0x05: 64 * 1024,
}

func romBankCount(code uint8) (int, error) {
	switch code {
	case 0x52:
		return 72, nil
	case 0x53:
		return 80, nil
	case 0x54:
		return 96, nil
	default:
		if code > 0x08 {
			return 0, fmt.Errorf("impossible ROM size code 0x%02X", code)
		}
		return 2 << code, nil
	}
}

// Load parses a raw .gb image and validates it against its own header.
func Load(data []byte) (*Cartridge, error) {
	if len(data) < minROMSize {
		return nil, fmt.Errorf("ROM too small: %d bytes, need at least %d", len(data), minROMSize)
	}

	typeCode := data[headerCartTypeAddr]
	info, ok := cartTypeTable[typeCode]
	if !ok {
		return nil, fmt.Errorf("unsupported cartridge type 0x%02X", typeCode)
	}

	romBanks, err := romBankCount(data[headerROMSizeAddr])
	if err != nil {
		return nil, fmt.Errorf("load cartridge: %w", err)
	}
	declaredSize := romBanks * 0x4000
	if diff := declaredSize - len(data); diff > 0x4000 || diff < -0x4000 {
		return nil, fmt.Errorf("ROM size code declares %d bytes but file is %d bytes", declaredSize, len(data))
	}

	ramSize, ok := ramSizeTable[data[headerRAMSizeAddr]]
	if !ok {
		return nil, fmt.Errorf("unsupported RAM size code 0x%02X", data[headerRAMSizeAddr])
	}

	if err := validateHeaderChecksum(data); err != nil {
		return nil, fmt.Errorf("load cartridge: %w", err)
	}

	cart := &Cartridge{
		ROM:      data,
		RAM:      make([]byte, ramSize),
		Mapper:   info.mapper,
		Battery:  info.battery,
		HasRTC:   info.rtc,
		Rumble:   info.rumble,
		ROMBanks: romBanks,
		RAMSize:  ramSize,
		Title:    parseTitle(data),
	}
	return cart, nil
}

func parseTitle(data []byte) string {
	end := headerTitleStart
	for end < headerTitleStart+16 && data[end] != 0 {
		end++
	}
	return string(data[headerTitleStart:end])
}

// validateHeaderChecksum recomputes the header checksum at 014D the same
// way the boot ROM does, rejecting ROMs whose header is self-inconsistent.
func validateHeaderChecksum(data []byte) error {
	var sum uint8
	for addr := 0x0134; addr <= 0x014C; addr++ {
		sum = sum - data[addr] - 1
	}
	if sum != data[headerChecksumAddr] {
		return fmt.Errorf("header checksum mismatch: computed 0x%02X, header says 0x%02X", sum, data[headerChecksumAddr])
	}
	return nil
}

// LoadSave installs a previously dumped external-RAM image. A size mismatch
// is a warning-level condition: the loader truncates or zero-pads rather
// than refusing to start.
func (c *Cartridge) LoadSave(data []byte) error {
	if got := len(data); got != c.RAMSize {
		if got > c.RAMSize {
			data = data[:c.RAMSize]
		} else {
			padded := make([]byte, c.RAMSize)
			copy(padded, data)
			data = padded
		}
		copy(c.RAM, data)
		return fmt.Errorf("save file size %d does not match declared RAM size %d; padded/truncated", got, c.RAMSize)
	}
	copy(c.RAM, data)
	return nil
}

// DumpSave returns a copy of the external RAM for writing to a save file.
func (c *Cartridge) DumpSave() []byte {
	out := make([]byte, len(c.RAM))
	copy(out, c.RAM)
	return out
}
