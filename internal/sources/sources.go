// Package sources knows the community translation sources: their URLs,
// how to recognise them, and the remote metadata published about them.
package sources

import "strings"

// ID identifies where a translation file came from.
type ID string

const (
	ScefraFR  ID = "scefra_fr"
	ScefraEN  ID = "scefra_en"
	Circuspes ID = "circuspes"
	Local     ID = "local"
	Unknown   ID = "unknown"
)

// Family groups source variants that share branding.
type Family string

const (
	FamilyScefra    Family = "scefra"
	FamilyCircuspes Family = "circuspes"
	FamilyNone      Family = ""
)

func (id ID) Family() Family {
	switch id {
	case ScefraFR, ScefraEN:
		return FamilyScefra
	case Circuspes:
		return FamilyCircuspes
	default:
		return FamilyNone
	}
}

// Descriptor is a statically known translation source.
type Descriptor struct {
	ID        ID     `json:"id"`
	RemoteURL string `json:"remote_url"`
}

// Descriptors lists the French translation sources, in display order.
var Descriptors = []Descriptor{
	{ID: ScefraFR, RemoteURL: "https://raw.githubusercontent.com/SPEED0U/Scefra/main/french_(france)/global.ini"},
	{ID: ScefraEN, RemoteURL: "https://raw.githubusercontent.com/SPEED0U/Scefra/refs/heads/settings-en/french_(france)/global.ini"},
	{ID: Circuspes, RemoteURL: "https://traduction.circuspes.fr/download/global.ini"},
}

// Lookup returns the descriptor for id.
func Lookup(id ID) (Descriptor, bool) {
	for _, d := range Descriptors {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}

// LocalURL is the pseudo URL recorded for translations found on disk.
func LocalURL(channel string, id ID) string {
	return "local://" + channel + "/" + string(id)
}

// DetectFromURL classifies a translation URL.
func DetectFromURL(rawURL string) ID {
	u := strings.ToLower(rawURL)

	switch {
	case strings.Contains(u, "scefra") || strings.Contains(u, "speed0u"):
		for _, marker := range []string{"settings_en", "settings-en", "settingsen", "_en.", "-en."} {
			if strings.Contains(u, marker) {
				return ScefraEN
			}
		}
		return ScefraFR
	case strings.Contains(u, "circuspes"):
		return Circuspes
	case strings.HasPrefix(u, "local://"):
		switch {
		case strings.Contains(u, "/scefra"):
			return ScefraFR
		case strings.Contains(u, "/circuspes"):
			return Circuspes
		default:
			return Local
		}
	default:
		return Unknown
	}
}

// DetectFromContent guesses the source of an installed file from marker
// phrases in its text. Circuspes is checked first because branded Circuspes
// files also mention StarTrad.
func DetectFromContent(content string) ID {
	switch {
	case strings.Contains(content, "Circuspes"):
		return Circuspes
	case strings.Contains(content, "SCFRA") || strings.Contains(content, "SCEFRA") || strings.Contains(content, "StarTrad"):
		return ScefraFR
	default:
		return Local
	}
}
