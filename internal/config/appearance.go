package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/neon-beat/neon-beat-back/internal/buzzer"
	"github.com/neon-beat/neon-beat-back/internal/game"
)

// Appearance bundles the team color palette and the LED pattern presets.
type Appearance struct {
	Colors   []game.Color
	Patterns buzzer.PatternSet
}

// DefaultColors is the palette teams are assigned from, evenly spread hues.
func DefaultColors() []game.Color {
	return []game.Color{
		{H: 0, S: 1, V: 1},
		{H: 120, S: 1, V: 1},
		{H: 240, S: 1, V: 1},
		{H: 60, S: 1, V: 1},
		{H: 180, S: 1, V: 1},
		{H: 300, S: 1, V: 1},
		{H: 30, S: 1, V: 1},
		{H: 270, S: 0.6, V: 1},
	}
}

// appearanceFile is the on-disk override format; absent entries keep their
// defaults.
type appearanceFile struct {
	Colors   []game.Color `json:"colors"`
	Patterns struct {
		WaitingForPairing *buzzer.Pattern `json:"waiting_for_pairing"`
		Standby           *buzzer.Pattern `json:"standby"`
		Playing           *buzzer.Pattern `json:"playing"`
		Answering         *buzzer.Pattern `json:"answering"`
		Waiting           *buzzer.Pattern `json:"waiting"`
	} `json:"patterns"`
}

// LoadAppearance returns the defaults overlaid with the JSON file at path,
// when set.
func LoadAppearance(path string) (*Appearance, error) {
	app := &Appearance{
		Colors:   DefaultColors(),
		Patterns: buzzer.DefaultPatterns(),
	}
	if path == "" {
		return app, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading appearance file: %w", err)
	}
	var f appearanceFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing appearance file %s: %w", path, err)
	}
	if len(f.Colors) > 0 {
		app.Colors = f.Colors
	}
	for _, o := range []struct {
		src *buzzer.Pattern
		dst *buzzer.Pattern
	}{
		{f.Patterns.WaitingForPairing, &app.Patterns.WaitingForPairing},
		{f.Patterns.Standby, &app.Patterns.Standby},
		{f.Patterns.Playing, &app.Patterns.Playing},
		{f.Patterns.Answering, &app.Patterns.Answering},
		{f.Patterns.Waiting, &app.Patterns.Waiting},
	} {
		if o.src != nil {
			*o.dst = *o.src
		}
	}
	return app, nil
}

// PickColor returns the first palette color no team uses yet, cycling back
// to the palette start when all are taken.
func (a *Appearance) PickColor(used []game.Color) game.Color {
	if len(a.Colors) == 0 {
		return game.Color{S: 1, V: 1}
	}
	for _, c := range a.Colors {
		taken := false
		for _, u := range used {
			if u == c {
				taken = true
				break
			}
		}
		if !taken {
			return c
		}
	}
	return a.Colors[len(used)%len(a.Colors)]
}
