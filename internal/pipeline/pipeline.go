// Package pipeline runs one ingestion pass: discover candidates, probe
// the store for duplicates, extract content, enrich, persist. Failures
// in extraction or enrichment degrade fields; only an unrecoverable
// store error aborts a run.
package pipeline

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/deusflow/newsriver/internal/enrich"
	"github.com/deusflow/newsriver/internal/extract"
	"github.com/deusflow/newsriver/internal/logger"
	"github.com/deusflow/newsriver/internal/metrics"
	"github.com/deusflow/newsriver/internal/sentiment"
	"github.com/deusflow/newsriver/internal/source"
	"github.com/deusflow/newsriver/internal/store"
)

type Pipeline struct {
	store     store.Store
	extractor *extract.Extractor
	engine    *enrich.Engine
	analyzer  *sentiment.Analyzer

	maxURLs  int
	sliceLen int
	reEnrich bool
}

func New(st store.Store, ex *extract.Extractor, engine *enrich.Engine, analyzer *sentiment.Analyzer, maxURLs, sliceLen int, reEnrich bool) *Pipeline {
	return &Pipeline{
		store:     st,
		extractor: ex,
		engine:    engine,
		analyzer:  analyzer,
		maxURLs:   maxURLs,
		sliceLen:  sliceLen,
		reEnrich:  reEnrich,
	}
}

// Run drains every source in order, honoring the per-run URL budget.
// A failing source is logged and skipped; the budget counts candidates
// actually processed, not duplicates.
func (p *Pipeline) Run(ctx context.Context, sources []source.Source) error {
	start := time.Now()
	budget := p.maxURLs

	for _, src := range sources {
		candidates, err := src.Discover(ctx)
		if err != nil {
			logger.Error("source discovery failed", "source", src.Name(), "error", err)
			metrics.Global.IncrementFetchErrors()
			continue
		}
		logger.Info("source discovered", "source", src.Name(), "candidates", len(candidates))
		for range candidates {
			metrics.Global.IncrementDiscovered()
		}

		for _, c := range candidates {
			if budget <= 0 {
				logger.Info("url budget reached, ending run", "budget", p.maxURLs)
				metrics.Global.RecordRun(time.Since(start))
				return nil
			}
			processed, err := p.processCandidate(ctx, c)
			if err != nil {
				metrics.Global.SetError(err.Error())
				return err
			}
			if processed {
				budget--
			}
		}
	}

	metrics.Global.RecordRun(time.Since(start))
	return nil
}

// processCandidate takes one candidate from dedup probe to persistence.
// The returned bool reports whether the candidate consumed budget. The
// returned error is fatal for the run; everything recoverable is
// logged and degraded instead.
func (p *Pipeline) processCandidate(ctx context.Context, c source.Candidate) (bool, error) {
	id, hasContent, found, err := p.store.Lookup(ctx, c.URL)
	if err != nil {
		logger.Error("dedup probe failed", "url", c.URL, "error", err)
		return false, nil
	}
	if found && hasContent && !p.reEnrich {
		metrics.Global.IncrementDuplicates()
		return false, nil
	}
	if found {
		logger.Debug("revisiting known url", "url", c.URL, "id", id, "has_content", hasContent)
	}

	a := store.Article{
		Source:     c.SourceName,
		SourceType: c.SourceType,
		Title:      c.Title,
		Date:       c.PublishedAt,
		Link:       c.URL,
		Summary:    c.Summary,
	}
	a.PublisherDomain, a.PublisherCountry = enrich.Publisher(c.URL)

	res, err := p.extractor.Extract(ctx, c.SourceName, c.URL)
	if err != nil {
		// Page unreachable: persist the candidate metadata alone so
		// the article stays eligible for extraction next pass.
		logger.Warn("page fetch failed", "url", c.URL, "error", err)
		metrics.Global.IncrementFetchErrors()
		if _, uerr := p.store.UpsertArticle(ctx, a); uerr != nil {
			return true, uerr
		}
		metrics.Global.IncrementPersisted()
		return true, nil
	}

	// Sitemap and index candidates often arrive bare; page metadata
	// fills whatever discovery left empty.
	if a.Title == "" {
		a.Title = res.Meta.Title
	}
	if a.Summary == "" {
		a.Summary = res.Meta.Description
	}
	if a.Date == "" {
		a.Date = res.Meta.Published
	}

	if res.Text != "" {
		text := res.Text
		a.Content = &text
		metrics.Global.IncrementExtracted()
	} else {
		metrics.Global.IncrementExtractionFailures()
		logger.Warn("content extraction failed", "url", c.URL)
	}

	// Enrichment and sentiment see the headline material plus a
	// bounded leading slice of the body, as one string.
	base := strings.TrimSpace(a.Title + " " + a.Summary + " " + leadingSlice(res.Text, p.sliceLen))

	er := p.engine.Enrich(base, c.URL)
	a.Lang = er.Lang
	a.People = er.People
	a.Countries = er.Countries
	a.Cities = er.Cities
	a.Events = er.Events
	a.Presidents = er.Presidents

	sc := p.analyzer.Analyze(base)
	a.Sentiment = &store.Sentiment{
		Compound: sc.Compound,
		Pos:      sc.Pos,
		Neu:      sc.Neu,
		Neg:      sc.Neg,
		Label:    sc.Label,
	}

	articleID, err := p.store.UpsertArticle(ctx, a)
	if err != nil {
		return true, err
	}
	metrics.Global.IncrementPersisted()

	if len(er.Entities) > 0 {
		facts := make([]store.EntityFact, 0, len(er.Entities))
		for _, ent := range er.Entities {
			facts = append(facts, store.EntityFact{
				Text:  ent.Text,
				Label: ent.Label,
				Start: ent.Start,
				End:   ent.End,
			})
		}
		if err := p.store.AddEntities(ctx, articleID, facts); err != nil {
			logger.Error("storing entities failed", "url", c.URL, "error", err)
		} else {
			metrics.Global.AddEntities(len(facts))
		}
	}

	if len(er.Topics) > 0 {
		facts := make([]store.TopicFact, 0, len(er.Topics))
		for _, t := range er.Topics {
			facts = append(facts, store.TopicFact{Topic: t.Name, Score: t.Score, Source: "rules"})
		}
		if err := p.store.AddTopics(ctx, articleID, facts); err != nil {
			logger.Error("storing topics failed", "url", c.URL, "error", err)
		} else {
			metrics.Global.AddTopics(len(facts))
		}
	}

	logger.Debug("candidate persisted", "url", c.URL, "id", articleID)
	return true, nil
}

// leadingSlice caps s at n bytes without cutting a UTF-8 rune in half.
// n <= 0 means no bound.
func leadingSlice(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
