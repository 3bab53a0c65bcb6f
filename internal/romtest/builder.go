// Package romtest builds minimal, header-valid .gb images in memory so
// tests can construct fixture ROMs without checking binary files into
// the repository.
package romtest

// cartTypeCode maps the handful of mapper/feature combinations tests
// need back to their header cartridge-type byte.
var cartTypeCode = map[string]uint8{
	"MBC0":     0x00,
	"MBC1":     0x01,
	"MBC1+RAM+BATTERY": 0x03,
	"MBC3+BATTERY": 0x13,
	"MBC3+TIMER+BATTERY": 0x0F,
	"MBC5": 0x19,
}

var romSizeCode = map[int]uint8{
	2: 0x00, 4: 0x01, 8: 0x02, 16: 0x03, 32: 0x04, 64: 0x05, 128: 0x06, 256: 0x07, 512: 0x08,
}

var ramSizeCode = map[int]uint8{
	0: 0x00, 2 * 1024: 0x01, 8 * 1024: 0x02, 32 * 1024: 0x03, 128 * 1024: 0x04, 64 * 1024: 0x05,
}

// Builder accumulates a ROM image bank by bank. New pre-sizes the image to
// its bankCount banks; call Bank to grow beyond those before writing to
// higher banks.
type Builder struct {
	rom        []byte
	cartType   string
	ramSize    int
}

// New constructs a builder with the given mapper/feature combination
// (see cartTypeCode for valid names) and bankCount 0x4000-byte banks
// (minimum 2).
func New(cartType string, bankCount int) *Builder {
	if bankCount < 2 {
		bankCount = 2
	}
	return &Builder{
		rom:      make([]byte, bankCount*0x4000),
		cartType: cartType,
	}
}

// WithRAM declares the cartridge's external RAM size in bytes (must be a
// key of ramSizeCode).
func (b *Builder) WithRAM(size int) *Builder {
	b.ramSize = size
	return b
}

// Bank grows the ROM to include bank n if it doesn't already exist, and
// returns a slice over that bank's 0x4000 bytes.
func (b *Builder) Bank(n int) []byte {
	needed := (n + 1) * 0x4000
	if needed > len(b.rom) {
		grown := make([]byte, needed)
		copy(grown, b.rom)
		b.rom = grown
	}
	return b.rom[n*0x4000 : (n+1)*0x4000]
}

// WriteAt writes bytes starting at a global ROM address (bank 0 occupies
// 0x0000-0x3FFF of this address space, bank 1 occupies 0x4000-0x7FFF of
// it, and so on — distinct from the CPU's banked 0x0000-0x7FFF view of
// whichever two banks are currently mapped).
func (b *Builder) WriteAt(addr int, data []byte) *Builder {
	needed := addr + len(data)
	if needed > len(b.rom) {
		grown := make([]byte, needed)
		copy(grown, b.rom)
		b.rom = grown
	}
	copy(b.rom[addr:], data)
	return b
}

// SetEntryCode writes the given bytes at 0x0100, the CPU's post-boot PC.
func (b *Builder) SetEntryCode(code ...byte) *Builder {
	return b.WriteAt(0x0100, code)
}

// SetTitle writes up to 16 bytes of title into the header.
func (b *Builder) SetTitle(title string) *Builder {
	bytes := []byte(title)
	if len(bytes) > 16 {
		bytes = bytes[:16]
	}
	return b.WriteAt(0x0134, bytes)
}

// Build finalizes the header (cartridge type, ROM/RAM size codes and
// checksum) and returns the completed image.
func (b *Builder) Build() []byte {
	bankCount := len(b.rom) / 0x4000
	code, ok := romSizeCode[bankCount]
	if !ok {
		code = 0x00
	}
	b.rom[0x0148] = code
	b.rom[0x0147] = cartTypeCode[b.cartType]
	b.rom[0x0149] = ramSizeCode[b.ramSize]

	var sum uint8
	for addr := 0x0134; addr <= 0x014C; addr++ {
		sum = sum - b.rom[addr] - 1
	}
	b.rom[0x014D] = sum

	out := make([]byte, len(b.rom))
	copy(out, b.rom)
	return out
}
