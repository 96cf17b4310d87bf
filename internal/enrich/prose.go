package enrich

import (
	"strings"

	prose "github.com/jdkato/prose/v2"
)

// ProseExtractor is the English entity model. French has no equivalent
// in this stack, so a typical capability set is {"en": ProseExtractor}
// and the engine's no-model fallback covers the rest.
type ProseExtractor struct{}

func (ProseExtractor) Entities(text string) ([]Entity, error) {
	doc, err := prose.NewDocument(text)
	if err != nil {
		return nil, err
	}

	// The model reports spans without offsets; recover them with a
	// forward scan so repeated mentions get distinct positions.
	var out []Entity
	cursor := 0
	for _, ent := range doc.Entities() {
		start := cursor
		idx := strings.Index(text[cursor:], ent.Text)
		if idx >= 0 {
			start = cursor + idx
		} else if idx = strings.Index(text, ent.Text); idx >= 0 {
			start = idx
		} else {
			continue
		}
		end := start + len(ent.Text)
		if end > cursor {
			cursor = end
		}
		out = append(out, Entity{Text: ent.Text, Label: ent.Label, Start: start, End: end})
	}
	return out, nil
}
