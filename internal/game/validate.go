package game

import (
	"net/url"
	"regexp"
)

var buzzerIDRe = regexp.MustCompile(`^[0-9a-f]{12}$`)

// ValidBuzzerID reports whether id is exactly 12 lowercase hex characters.
func ValidBuzzerID(id string) bool {
	return buzzerIDRe.MatchString(id)
}

// ValidateTeamInput checks the client-supplied parts of a team.
func ValidateTeamInput(name string, color Color, buzzerID string) error {
	if name == "" {
		return Validationf("team name is required")
	}
	if buzzerID != "" && !ValidBuzzerID(buzzerID) {
		return Validationf("buzzer id %q must be 12 lowercase hex characters", buzzerID)
	}
	if color.S < 0 || color.S > 1 {
		return Validationf("color saturation %v out of range [0,1]", color.S)
	}
	if color.V < 0 || color.V > 1 {
		return Validationf("color value %v out of range [0,1]", color.V)
	}
	return nil
}

// ValidatePlaylist checks an ingested playlist before it is stored.
func ValidatePlaylist(pl Playlist) error {
	if pl.Name == "" {
		return Validationf("playlist name is required")
	}
	if len(pl.Songs) == 0 {
		return Validationf("playlist must contain at least one song")
	}
	for i, song := range pl.Songs {
		if _, err := url.ParseRequestURI(song.URL); err != nil {
			return Validationf("song %d: invalid url %q", i, song.URL)
		}
		if len(song.PointFields) == 0 {
			return Validationf("song %d: at least one point field is required", i)
		}
		for _, f := range append(append([]PointField(nil), song.PointFields...), song.BonusFields...) {
			if f.Key == "" {
				return Validationf("song %d: field key is required", i)
			}
		}
		if song.StartsAtMs < 0 || song.GuessDurationMs <= 0 {
			return Validationf("song %d: invalid timing", i)
		}
	}
	return nil
}
