// Package config loads the host's dmg.toml configuration: window scale,
// speed multiplier, key bindings, save directory and startup log
// components.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"dmg-core/internal/debug"
	"dmg-core/internal/input"
)

// Config mirrors dmg.toml. Fields left zero-valued by an absent file (or
// an absent key) are replaced by Default()'s values before use.
type Config struct {
	Scale       int     `toml:"scale"`
	Speed       float64 `toml:"speed"`
	SaveDir     string  `toml:"save_dir"`
	KeyBindings KeyBindings `toml:"keys"`
	LogComponents []string `toml:"log_components"`
}

// KeyBindings names one SDL2 key per logical button. Values are SDL
// scancode names such as "Right", "Z", "Return".
type KeyBindings struct {
	Right  string `toml:"right"`
	Left   string `toml:"left"`
	Up     string `toml:"up"`
	Down   string `toml:"down"`
	A      string `toml:"a"`
	B      string `toml:"b"`
	Select string `toml:"select"`
	Start  string `toml:"start"`
}

// Default returns the built-in configuration used when dmg.toml is
// absent or a field is left unset.
func Default() Config {
	return Config{
		Scale:   4,
		Speed:   1.0,
		SaveDir: ".",
		KeyBindings: KeyBindings{
			Right: "Right", Left: "Left", Up: "Up", Down: "Down",
			A: "Z", B: "X", Select: "RShift", Start: "Return",
		},
		LogComponents: []string{},
	}
}

// Load reads path, falling back to Default() if the file does not
// exist. An empty or unset field in the file keeps its default value.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	var fromFile Config
	if _, err := toml.DecodeFile(path, &fromFile); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if fromFile.Scale != 0 {
		cfg.Scale = fromFile.Scale
	}
	if fromFile.Speed != 0 {
		cfg.Speed = fromFile.Speed
	}
	if fromFile.SaveDir != "" {
		cfg.SaveDir = fromFile.SaveDir
	}
	if fromFile.KeyBindings != (KeyBindings{}) {
		cfg.KeyBindings = mergeKeys(cfg.KeyBindings, fromFile.KeyBindings)
	}
	if len(fromFile.LogComponents) > 0 {
		cfg.LogComponents = fromFile.LogComponents
	}
	return cfg, nil
}

func mergeKeys(base, override KeyBindings) KeyBindings {
	if override.Right != "" {
		base.Right = override.Right
	}
	if override.Left != "" {
		base.Left = override.Left
	}
	if override.Up != "" {
		base.Up = override.Up
	}
	if override.Down != "" {
		base.Down = override.Down
	}
	if override.A != "" {
		base.A = override.A
	}
	if override.B != "" {
		base.B = override.B
	}
	if override.Select != "" {
		base.Select = override.Select
	}
	if override.Start != "" {
		base.Start = override.Start
	}
	return base
}

// Save writes cfg to path as TOML, creating or overwriting the file.
func Save(path string, cfg Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ButtonIndex maps a KeyBindings field name to the input package's
// button index.
var ButtonIndex = map[string]int{
	"right": input.Right, "left": input.Left, "up": input.Up, "down": input.Down,
	"a": input.A, "b": input.B, "select": input.Select, "start": input.Start,
}

// ApplyLogComponents enables exactly the named components on logger,
// leaving all others at their default-disabled state.
func ApplyLogComponents(logger *debug.Logger, names []string) {
	all := []debug.Component{debug.ComponentCPU, debug.ComponentMMU, debug.ComponentPPU, debug.ComponentTimer, debug.ComponentDMA, debug.ComponentInput, debug.ComponentSystem}
	enabled := make(map[string]bool, len(names))
	for _, n := range names {
		enabled[n] = true
	}
	for _, c := range all {
		logger.SetComponentEnabled(c, enabled[string(c)])
	}
}
