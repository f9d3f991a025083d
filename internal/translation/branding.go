package translation

import (
	"strings"

	"github.com/MimeLyc/startrad-companion/internal/sources"
)

// brandingRule is a literal replacement. No replacement text contains any
// rule's original text, which keeps ApplyBranding idempotent.
type brandingRule struct {
	from string
	to   string
}

var brandingRules = map[sources.Family][]brandingRule{
	sources.FamilyScefra: {
		{from: "Traduction SCEFRA", to: "Traduction par SCEFRA, distribuée par StarTrad FR"},
		{from: "Version de la traduction", to: "Version StarTrad FR de la traduction"},
	},
	sources.FamilyCircuspes: {
		{from: "Traduction Circuspes", to: "Traduction par Circuspes, distribuée par StarTrad FR"},
	},
}

var brandingReplacers = func() map[sources.Family]*strings.Replacer {
	out := make(map[sources.Family]*strings.Replacer, len(brandingRules))
	for family, rules := range brandingRules {
		pairs := make([]string, 0, 2*len(rules))
		for _, r := range rules {
			pairs = append(pairs, r.from, r.to)
		}
		out[family] = strings.NewReplacer(pairs...)
	}
	return out
}()

// ApplyBranding rewrites content fetched from sourceURL. URLs that do not
// name a known source fall back to detection from the content, so that the
// local-file variant and this one always agree.
func ApplyBranding(content, sourceURL string) string {
	family := sources.DetectFromURL(sourceURL).Family()
	if family == sources.FamilyNone {
		family = sources.DetectFromContent(content).Family()
	}
	return brandFamily(content, family)
}

// ApplyBrandingByContent rewrites content whose origin is only known from
// the text itself.
func ApplyBrandingByContent(content string) string {
	return brandFamily(content, sources.DetectFromContent(content).Family())
}

// NeedsBranding reports whether any rule would still change content.
func NeedsBranding(content string) bool {
	family := sources.DetectFromContent(content).Family()
	for _, r := range brandingRules[family] {
		if strings.Contains(content, r.from) {
			return true
		}
	}
	return false
}

func brandFamily(content string, family sources.Family) string {
	replacer, ok := brandingReplacers[family]
	if !ok {
		return content
	}
	return replacer.Replace(content)
}

// Normalize unifies line endings and trims surrounding whitespace so that
// two copies of the same file compare equal.
func Normalize(content string) string {
	return strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))
}
