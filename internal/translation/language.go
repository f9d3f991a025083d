package translation

import (
	"strings"

	"golang.org/x/text/language"
)

// Localization folders shipped by the game, by language.
var languageFolders = []struct {
	tag    language.Tag
	folder string
}{
	{language.French, "french_(france)"},
}

var folderMatcher = func() language.Matcher {
	tags := make([]language.Tag, 0, len(languageFolders))
	for _, lf := range languageFolders {
		tags = append(tags, lf.tag)
	}
	return language.NewMatcher(tags)
}()

// LanguageFolder maps a language code ("fr", "fr-FR", "FR") to the game's
// localization folder name.
func LanguageFolder(lang string) (string, bool) {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return "", false
	}
	_, idx, conf := folderMatcher.Match(tag)
	if conf < language.High {
		return "", false
	}
	return languageFolders[idx].folder, true
}
