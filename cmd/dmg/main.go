// Command dmg is a minimal SDL2 host for the emulator core: it presents
// the 160x144 framebuffer in a scaled window, polls the keyboard into
// the joypad, and flushes battery RAM to disk on clean exit.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/veandco/go-sdl2/sdl"

	"dmg-core/internal/clock"
	"dmg-core/internal/config"
	"dmg-core/internal/cpu"
	"dmg-core/internal/debug"
	"dmg-core/internal/input"
	"dmg-core/internal/machine"
	"dmg-core/internal/ppu"
)

func main() {
	romPath := flag.String("rom", "", "Path to ROM file")
	configPath := flag.String("config", "dmg.toml", "Path to TOML config file")
	unlimited := flag.Bool("unlimited", false, "Run at unlimited speed (no frame limit)")
	scale := flag.Int("scale", 0, "Display scale override (1-8, 0 = use config)")
	enableLog := flag.Bool("log", false, "Enable CPU instruction logging")
	traceFile := flag.String("tracefile", "", "Write a per-instruction cycle trace to this path")
	traceCycles := flag.Uint64("tracecycles", 0, "Stop tracing after this many instructions (0 = unlimited)")
	breakAddr := flag.String("break", "", "Print CPU state the first time PC reaches this hex address (e.g. 0150)")
	flag.Parse()

	if *romPath == "" {
		fmt.Println("Usage: dmg -rom <path-to-rom.gb>")
		fmt.Println("  -rom <path>      Path to ROM file (.gb)")
		fmt.Println("  -config <path>   Path to TOML config file (default dmg.toml)")
		fmt.Println("  -unlimited       Run at unlimited speed")
		fmt.Println("  -scale <1-8>     Display scale override")
		fmt.Println("  -log             Enable CPU instruction logging")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if *scale != 0 {
		cfg.Scale = *scale
	}
	if cfg.Scale < 1 || cfg.Scale > 8 {
		cfg.Scale = 4
	}

	romData, err := os.ReadFile(*romPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading ROM file: %v\n", err)
		os.Exit(1)
	}

	logger := debug.NewLogger(10000)
	config.ApplyLogComponents(logger, cfg.LogComponents)

	m := machine.NewWithLogger(logger)
	if *enableLog {
		if adapter, ok := m.CPU.Log.(*cpu.CPULoggerAdapter); ok {
			adapter.SetEnabled(true)
			adapter.SetLevel(cpu.CPULogInstructions)
		}
	}

	if err := m.LoadROM(romData); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading ROM: %v\n", err)
		os.Exit(1)
	}

	savePath := savePathFor(*romPath, cfg.SaveDir)
	if m.Cart.Battery {
		if data, err := os.ReadFile(savePath); err == nil {
			if err := m.LoadSave(data); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
		}
	}

	host, err := newHost(m, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating display: %v\n", err)
		os.Exit(1)
	}
	defer host.Close()

	var tracer *debug.CycleLogger
	if *traceFile != "" {
		tracer, err = debug.NewCycleLogger(*traceFile, *traceCycles, 0, m.Bus, m.PPU, m.PPU)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating trace log: %v\n", err)
			os.Exit(1)
		}
		defer tracer.Close()
	}

	var dbg *debug.Debugger
	if *breakAddr != "" {
		addr, err := strconv.ParseUint(*breakAddr, 16, 16)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing -break address %q: %v\n", *breakAddr, err)
			os.Exit(1)
		}
		dbg = debug.NewDebugger()
		dbg.SetBreakpoint(uint16(addr))
	}

	if tracer != nil || dbg != nil {
		m.OnStep = func(s cpu.CPUState) {
			if tracer != nil {
				tracer.LogCycle(&debug.CPUStateSnapshot{
					A: s.A, F: s.F, B: s.B, C: s.C, D: s.D, E: s.E, H: s.H, L: s.L,
					SP: s.SP, PC: s.PC, IME: s.IME, Halted: s.Halted,
				})
			}
			if dbg != nil && dbg.ShouldBreak(s.PC) {
				fmt.Printf("breakpoint hit at PC=%04X: AF=%02X%02X BC=%02X%02X DE=%02X%02X HL=%02X%02X SP=%04X\n",
					s.PC, s.A, s.F, s.B, s.C, s.D, s.E, s.H, s.L, s.SP)
				dbg.RemoveBreakpoint(fmt.Sprintf("%04X", s.PC))
			}
		}
	}

	clk := clock.New()
	clk.SetFrameLimit(!*unlimited)

	fmt.Printf("dmg-core: %s (%s)\n", m.Cart.Title, m.Cart.Mapper)

	for host.running {
		host.pollEvents()
		host.pollKeyboard(m)
		m.StepFrame()
		host.present(m.Framebuffer())
		clk.EndFrame()
	}

	if m.Cart.Battery {
		if err := os.MkdirAll(filepath.Dir(savePath), 0755); err == nil {
			_ = os.WriteFile(savePath, m.DumpSave(), 0644)
		}
	}
}

func savePathFor(romPath, saveDir string) string {
	base := filepath.Base(romPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)] + "_save"
	return filepath.Join(saveDir, name)
}

// host owns the SDL2 window/renderer/texture and the keymap built from
// config.
type host struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	running  bool
	keymap   [8]sdl.Scancode
}

func newHost(m *machine.Machine, cfg config.Config) (*host, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("failed to initialize SDL: %w", err)
	}

	w := ppu.ScreenWidth * cfg.Scale
	h := ppu.ScreenHeight * cfg.Scale
	window, err := sdl.CreateWindow("dmg-core", sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		int32(w), int32(h), sdl.WINDOW_SHOWN)
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_RGB888, sdl.TEXTUREACCESS_STREAMING,
		int32(ppu.ScreenWidth), int32(ppu.ScreenHeight))
	if err != nil {
		return nil, fmt.Errorf("failed to create texture: %w", err)
	}

	h2 := &host{window: window, renderer: renderer, texture: texture, running: true}
	h2.keymap = [8]sdl.Scancode{
		scancodeFor(cfg.KeyBindings.Right),
		scancodeFor(cfg.KeyBindings.Left),
		scancodeFor(cfg.KeyBindings.Up),
		scancodeFor(cfg.KeyBindings.Down),
		scancodeFor(cfg.KeyBindings.A),
		scancodeFor(cfg.KeyBindings.B),
		scancodeFor(cfg.KeyBindings.Select),
		scancodeFor(cfg.KeyBindings.Start),
	}
	return h2, nil
}

func scancodeFor(name string) sdl.Scancode {
	return sdl.GetScancodeFromName(name)
}

func (h *host) pollEvents() {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch event.(type) {
		case *sdl.QuitEvent:
			h.running = false
		}
	}
}

func (h *host) pollKeyboard(m *machine.Machine) {
	state := sdl.GetKeyboardState()
	var pressed [8]bool
	buttons := [8]int{input.Right, input.Left, input.Up, input.Down, input.A, input.B, input.Select, input.Start}
	for i, b := range buttons {
		pressed[b] = state[h.keymap[i]] != 0
	}
	m.SetButtons(pressed)
}

// present uploads the grayscale framebuffer to the texture, replicating
// each 8-bit shade into an RGB888 pixel, and blits it scaled to the
// window.
func (h *host) present(fb *[ppu.ScreenWidth * ppu.ScreenHeight]uint8) {
	pixels := make([]byte, ppu.ScreenWidth*ppu.ScreenHeight*3)
	for i, shade := range fb {
		pixels[i*3] = shade
		pixels[i*3+1] = shade
		pixels[i*3+2] = shade
	}
	_ = h.texture.Update(nil, pixels, ppu.ScreenWidth*3)
	h.renderer.Clear()
	h.renderer.Copy(h.texture, nil, nil)
	h.renderer.Present()
}

func (h *host) Close() {
	h.texture.Destroy()
	h.renderer.Destroy()
	h.window.Destroy()
	sdl.Quit()
}
