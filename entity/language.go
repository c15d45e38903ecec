package entity

import (
	"github.com/biter777/countries"
)

// Language is one catalog entry: a code, a display name, the country
// used for the flag emoji on the language keyboard, and the key→template
// translation map. The catalog file is the source of truth; rows are
// mirrored into the languages table at startup.
type Language struct {
	Code         string            `json:"code" validate:"required,min=2,max=10"`
	Name         string            `json:"name" validate:"required"`
	Country      string            `json:"country" validate:"omitempty"`
	Translations map[string]string `json:"translations" validate:"required"`
	IsActive     bool              `json:"is_active"`
}

// Flag resolves the country name to its emoji. Unknown or empty
// countries produce an empty string and the keyboard shows name only.
func (l *Language) Flag() string {
	if l.Country == "" {
		return ""
	}
	country := countries.ByName(l.Country)
	if country == countries.Unknown {
		return ""
	}
	return country.Emoji()
}

// Label is the button text for the language keyboard.
func (l *Language) Label() string {
	if flag := l.Flag(); flag != "" {
		return flag + " " + l.Name
	}
	return l.Name
}
