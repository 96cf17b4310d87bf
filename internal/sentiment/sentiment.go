// Package sentiment scores article text with a lexicon-based VADER
// analyzer. Input is normalized first so markup and URLs never reach
// the lexicon.
package sentiment

import (
	"html"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
)

// Score is the four-part polarity result plus its discrete label.
type Score struct {
	Compound float64
	Pos      float64
	Neu      float64
	Neg      float64
	Label    string
}

var (
	tagRe        = regexp.MustCompile(`<[^>]+>`)
	urlRe        = regexp.MustCompile(`https?://\S+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Normalize strips HTML entities, tags, URLs and collapses whitespace.
func Normalize(text string) string {
	text = html.UnescapeString(text)
	text = tagRe.ReplaceAllString(text, " ")
	text = urlRe.ReplaceAllString(text, " ")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Analyzer wraps a single VADER instance. The underlying lexicon is
// read-only after construction, so one Analyzer serves a whole run.
type Analyzer struct {
	vader *govader.SentimentIntensityAnalyzer
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{vader: govader.NewSentimentIntensityAnalyzer()}
}

// Analyze normalizes and scores text. Text that normalizes to empty
// gets the fixed neutral score rather than an error.
func (a *Analyzer) Analyze(text string) Score {
	clean := Normalize(text)
	if clean == "" {
		return Score{Compound: 0, Pos: 0, Neu: 1, Neg: 0, Label: "Neutral"}
	}
	s := a.vader.PolarityScores(clean)
	return Score{
		Compound: s.Compound,
		Pos:      s.Positive,
		Neu:      s.Neutral,
		Neg:      s.Negative,
		Label:    labelFromCompound(s.Compound),
	}
}

// labelFromCompound maps the compound score to a label with the
// conventional VADER thresholds.
func labelFromCompound(compound float64) string {
	switch {
	case compound >= 0.05:
		return "Positive"
	case compound <= -0.05:
		return "Negative"
	default:
		return "Neutral"
	}
}
