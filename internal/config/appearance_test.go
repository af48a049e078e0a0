package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/neon-beat/neon-beat-back/internal/buzzer"
	"github.com/neon-beat/neon-beat-back/internal/game"
)

func TestLoadAppearanceDefaults(t *testing.T) {
	app, err := LoadAppearance("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(app.Colors) == 0 {
		t.Error("no default colors")
	}
	if app.Patterns.Waiting.Type != buzzer.PatternOff {
		t.Errorf("waiting preset = %v, want off", app.Patterns.Waiting.Type)
	}
}

func TestLoadAppearanceOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appearance.json")
	body := `{
		"colors": [{"h": 15, "s": 1, "v": 0.8}],
		"patterns": {"playing": {"type": "off"}}
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	app, err := LoadAppearance(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(app.Colors) != 1 || app.Colors[0].H != 15 {
		t.Errorf("colors = %v", app.Colors)
	}
	if app.Patterns.Playing.Type != buzzer.PatternOff {
		t.Errorf("playing preset not overridden: %v", app.Patterns.Playing)
	}
	// Untouched presets keep their defaults.
	if app.Patterns.WaitingForPairing.Type != buzzer.PatternWave {
		t.Errorf("waiting_for_pairing changed: %v", app.Patterns.WaitingForPairing)
	}
}

func TestPickColorSkipsUsed(t *testing.T) {
	app, _ := LoadAppearance("")
	first := app.PickColor(nil)
	second := app.PickColor([]game.Color{first})
	if first == second {
		t.Errorf("picked the used color twice: %v", first)
	}
}
