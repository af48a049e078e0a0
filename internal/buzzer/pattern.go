// Package buzzer tracks connected buzzer devices and drives their LED
// patterns over WebSocket.
package buzzer

import "github.com/neon-beat/neon-beat-back/internal/game"

// PatternType is the LED animation kind understood by the firmware.
type PatternType string

const (
	PatternBlink PatternType = "blink"
	PatternWave  PatternType = "wave"
	PatternOff   PatternType = "off"
)

// PatternDetails parameterises an animation. DC is the duty cycle in [0,1].
type PatternDetails struct {
	DurationMs int        `json:"duration_ms,omitempty"`
	PeriodMs   int        `json:"period_ms,omitempty"`
	DC         float64    `json:"dc,omitempty"`
	Color      game.Color `json:"color"`
}

// Pattern is the on-wire LED command.
type Pattern struct {
	Type    PatternType     `json:"type"`
	Details *PatternDetails `json:"details,omitempty"`
}

// Message is the outbound frame wrapping a pattern.
type Message struct {
	Pattern Pattern `json:"pattern"`
}

// PatternSet holds the presets sent at each stage of the game. The zero
// value is unusable; use DefaultPatterns or load overrides from config.
type PatternSet struct {
	WaitingForPairing Pattern
	Standby           Pattern
	Playing           Pattern
	Answering         Pattern
	Waiting           Pattern
}

var white = game.Color{H: 0, S: 0, V: 1}

// DefaultPatterns is the built-in preset catalog.
func DefaultPatterns() PatternSet {
	return PatternSet{
		WaitingForPairing: Pattern{Type: PatternWave, Details: &PatternDetails{PeriodMs: 2000, DC: 0.5, Color: white}},
		Standby:           Pattern{Type: PatternWave, Details: &PatternDetails{PeriodMs: 3000, DC: 0.3}},
		Playing:           Pattern{Type: PatternBlink, Details: &PatternDetails{PeriodMs: 1000, DC: 0.5, Color: white}},
		Answering:         Pattern{Type: PatternBlink, Details: &PatternDetails{PeriodMs: 250, DC: 0.8}},
		Waiting:           Pattern{Type: PatternOff},
	}
}

// Tinted returns a copy of p with the team color filled in.
func Tinted(p Pattern, c game.Color) Pattern {
	if p.Details == nil {
		return p
	}
	d := *p.Details
	d.Color = c
	p.Details = &d
	return p
}
