// Package enrich derives language, named-entity buckets, topic scores
// and publisher metadata for an article. Entity extraction runs against
// an injected, possibly partial set of per-language models; with no
// model loaded the engine degrades to gazetteer-only country detection
// and never fails.
package enrich

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/deusflow/newsriver/internal/logger"
)

// Entity is one extracted occurrence with its byte offsets in the
// analyzed text.
type Entity struct {
	Text  string
	Label string
	Start int
	End   int
}

// NamedEntityExtractor is one pre-trained, opaque language model.
type NamedEntityExtractor interface {
	Entities(text string) ([]Entity, error)
}

// Topic is one scored topic assignment.
type Topic struct {
	Name  string
	Score float64
}

// Result is everything one enrichment pass computed. Lang stays nil
// when no model produced a usable answer, so stored values survive.
type Result struct {
	Lang       *string
	People     []string
	Countries  []string
	Cities     []string
	Events     []string
	Presidents []string
	Entities   []Entity
	Topics     []Topic
}

// DomainRule maps a host substring to a language, checked in order
// before any model comparison runs.
type DomainRule struct {
	Contains string
	Lang     string
}

var defaultDomainRules = []DomainRule{
	{Contains: "bbc", Lang: "en"},
	{Contains: "lemonde.fr", Lang: "fr"},
	{Contains: "lesechos.fr", Lang: "fr"},
}

// langPreference breaks ties when two models extract equally many
// entities.
var langPreference = []string{"fr", "en"}

type Engine struct {
	extractors map[string]NamedEntityExtractor
	rules      []DomainRule
	topics     map[string][]string
}

// NewEngine builds an engine over the given capability set. A nil or
// empty topics table falls back to the built-in rules.
func NewEngine(extractors map[string]NamedEntityExtractor, topics map[string][]string) *Engine {
	if len(topics) == 0 {
		topics = defaultTopicRules
	}
	return &Engine{
		extractors: extractors,
		rules:      defaultDomainRules,
		topics:     topics,
	}
}

// Enrich analyzes text in the context of the article URL. The caller
// assembles the text (headline material plus a bounded slice of the
// body); every sub-step sees the same string. Sub-steps degrade
// independently; the returned Result always holds whatever subset
// succeeded.
func (e *Engine) Enrich(text, link string) Result {
	var res Result

	entities, lang := e.extractEntities(text, link)
	if lang != "" {
		l := lang
		res.Lang = &l
	}
	res.Entities = entities

	var people, gpes, events []string
	for _, ent := range entities {
		txt := normText(ent.Text)
		if txt == "" {
			continue
		}
		switch ent.Label {
		case "PERSON":
			people = append(people, txt)
		case "GPE", "LOC":
			gpes = append(gpes, txt)
		case "EVENT":
			events = append(events, txt)
		}
	}

	// With nothing from the models, fall back to scanning the text
	// against the country gazetteer. Only the country bucket can be
	// seeded this way.
	if len(people) == 0 && len(gpes) == 0 && len(events) == 0 && text != "" {
		gpes = gazetteerCountries(text)
	}

	var countries, cities []string
	for _, g := range gpes {
		if isCountry(g) {
			countries = append(countries, g)
		} else {
			cities = append(cities, g)
		}
	}

	res.People = dedupFold(people)
	res.Countries = dedupFold(countries)
	res.Cities = dedupFold(cities)
	res.Events = dedupFold(events)
	res.Presidents = inferPresidents(text, res.People)
	res.Topics = e.detectTopics(text)
	return res
}

// extractEntities resolves the language and runs the matching model.
// Order: domain rules, then a run-them-all comparison where the model
// finding strictly more entities wins, ties by fixed preference.
func (e *Engine) extractEntities(text, link string) ([]Entity, string) {
	if len(e.extractors) == 0 || text == "" {
		return nil, ""
	}

	host := hostOf(link)
	for _, rule := range e.rules {
		if strings.Contains(host, rule.Contains) {
			if ex, ok := e.extractors[rule.Lang]; ok {
				ents, err := ex.Entities(text)
				if err != nil {
					logger.Warn("entity extraction failed", "lang", rule.Lang, "error", err)
					return nil, ""
				}
				return ents, rule.Lang
			}
		}
	}

	var bestLang string
	var best []Entity
	for _, lang := range orderedLangs(e.extractors) {
		ents, err := e.extractors[lang].Entities(text)
		if err != nil {
			logger.Warn("entity extraction failed", "lang", lang, "error", err)
			continue
		}
		if bestLang == "" || len(ents) > len(best) {
			bestLang, best = lang, ents
		}
	}
	return best, bestLang
}

// orderedLangs lists capability keys preference-first so comparison
// ties resolve deterministically.
func orderedLangs(extractors map[string]NamedEntityExtractor) []string {
	var out []string
	for _, lang := range langPreference {
		if _, ok := extractors[lang]; ok {
			out = append(out, lang)
		}
	}
	rest := make([]string, 0, len(extractors))
	for lang := range extractors {
		if !contains(out, lang) {
			rest = append(rest, lang)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// inferPresidents keeps the persons whose name co-occurs with a
// presidential title within an 80-character window, in either order.
func inferPresidents(text string, people []string) []string {
	if text == "" || len(people) == 0 {
		return []string{}
	}
	t := " " + strings.ToLower(text) + " "
	var out []string
	for _, p := range people {
		name := regexp.QuoteMeta(strings.ToLower(p))
		before := regexp.MustCompile(`(président|president)[^.]{0,80}\b` + name + `\b`)
		after := regexp.MustCompile(`\b` + name + `\b[^.]{0,80}(président|president)`)
		if before.MatchString(t) || after.MatchString(t) {
			out = append(out, p)
		}
	}
	return dedupFold(out)
}

// detectTopics scores each configured topic by distinct keyword
// substring hits. Zero-hit topics are omitted.
func (e *Engine) detectTopics(text string) []Topic {
	if text == "" {
		return nil
	}
	t := strings.ToLower(text)

	names := make([]string, 0, len(e.topics))
	for name := range e.topics {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Topic
	for _, name := range names {
		hits := 0
		for _, kw := range e.topics[name] {
			if strings.Contains(t, strings.ToLower(kw)) {
				hits++
			}
		}
		if hits > 0 {
			score := 0.2 * float64(hits)
			if score > 1.0 {
				score = 1.0
			}
			out = append(out, Topic{Name: name, Score: score})
		}
	}
	return out
}

var spaceRe = regexp.MustCompile(`\s+`)

// normText applies NFKC normalization and collapses whitespace.
func normText(s string) string {
	s = norm.NFKC.String(strings.TrimSpace(s))
	return spaceRe.ReplaceAllString(s, " ")
}

// dedupFold deduplicates case-insensitively, keeping first-seen casing
// and insertion order. Always returns a non-nil slice so a computed
// empty bucket overwrites stale stored values.
func dedupFold(list []string) []string {
	out := []string{}
	seen := make(map[string]struct{}, len(list))
	for _, v := range list {
		if v == "" {
			continue
		}
		k := strings.ToLower(v)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}
