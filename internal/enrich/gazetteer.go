package enrich

import (
	"regexp"
	"sort"
	"strings"
)

// countryNames is the fixed bilingual gazetteer. Membership checks are
// case-insensitive; the list stays lowercase.
var countryNames = map[string]struct{}{
	// EN
	"france": {}, "germany": {}, "spain": {}, "italy": {}, "belgium": {},
	"denmark": {}, "united kingdom": {}, "uk": {}, "russia": {},
	"china": {}, "taiwan": {}, "united states": {}, "usa": {},
	"u.s.": {}, "u.s.a.": {}, "canada": {}, "mexico": {},
	// FR
	"allemagne": {}, "espagne": {}, "italie": {}, "belgique": {},
	"danemark": {}, "royaume-uni": {}, "russie": {}, "chine": {},
	"taïwan": {}, "etats-unis": {}, "états-unis": {}, "mexique": {},
}

func isCountry(name string) bool {
	_, ok := countryNames[strings.ToLower(name)]
	return ok
}

// gazetteerCountries scans text for country names, word-boundary
// matched, and returns them title-cased. This is the no-model fallback.
func gazetteerCountries(text string) []string {
	t := strings.ToLower(text)
	var out []string
	for name := range countryNames {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
		if re.MatchString(t) {
			out = append(out, titleCase(name))
		}
	}
	sort.Strings(out)
	return out
}

// titleCase capitalizes each word, where spaces, hyphens and dots all
// separate words ("u.s." becomes "U.S.").
func titleCase(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if upper && r != ' ' && r != '-' && r != '.' {
			b.WriteString(strings.ToUpper(string(r)))
			upper = false
			continue
		}
		if r == ' ' || r == '-' || r == '.' {
			upper = true
		}
		b.WriteRune(r)
	}
	return b.String()
}
