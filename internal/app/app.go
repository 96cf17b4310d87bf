// Package app wires configuration, the store, the source adapters and
// the pipeline into a runnable service.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deusflow/newsriver/internal/config"
	"github.com/deusflow/newsriver/internal/enrich"
	"github.com/deusflow/newsriver/internal/extract"
	"github.com/deusflow/newsriver/internal/fetch"
	"github.com/deusflow/newsriver/internal/gdelt"
	"github.com/deusflow/newsriver/internal/logger"
	"github.com/deusflow/newsriver/internal/pipeline"
	"github.com/deusflow/newsriver/internal/retry"
	"github.com/deusflow/newsriver/internal/scheduler"
	"github.com/deusflow/newsriver/internal/sentiment"
	"github.com/deusflow/newsriver/internal/source"
	"github.com/deusflow/newsriver/internal/store"
)

// Run starts the service: a single pipeline pass by default, or a
// recurring one when RUN_SCHEDULE is set.
func Run() error {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	srcCfg, err := config.LoadSources(cfg.SourcesPath)
	if err != nil {
		return fmt.Errorf("load sources: %w", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	retryCfg := retry.Default
	retryCfg.MaxAttempts = cfg.RetryAttempts
	retryCfg.Delay = cfg.RetryDelay
	client := fetch.New(cfg.RequestTimeout, cfg.UserAgent, retryCfg)

	// English is the only entity model in this stack; French-domain
	// articles resolve their language by rule and fall through to the
	// gazetteer when no model matches.
	engine := enrich.NewEngine(
		map[string]enrich.NamedEntityExtractor{"en": enrich.ProseExtractor{}},
		srcCfg.Topics,
	)

	pipe := pipeline.New(st, extract.New(client), engine, sentiment.NewAnalyzer(), cfg.MaxURLsPerRun, cfg.EnrichSliceLen, cfg.ReEnrichExisting)
	sources := buildSources(cfg, srcCfg, client)
	logger.Info("service configured",
		"store", cfg.StoreDriver,
		"sources", len(sources),
		"max_urls", cfg.MaxURLsPerRun)

	runOnce := func() {
		if err := pipe.Run(context.Background(), sources); err != nil {
			logger.Error("pipeline run failed", "error", err)
		}
	}

	if cfg.RunSchedule == "" {
		return pipe.Run(context.Background(), sources)
	}

	sched := scheduler.New()
	if err := sched.Start(cfg.RunSchedule, runOnce); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")
	return nil
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "postgres":
		return store.NewPostgresStore(cfg.PostgresDSN)
	default:
		return store.NewSQLiteStore(cfg.SQLitePath)
	}
}

// buildSources assembles the adapter list: feeds, then sitemaps, then
// batched index queries.
func buildSources(cfg *config.Config, srcCfg *config.Sources, client *fetch.Client) []source.Source {
	var sources []source.Source

	for _, url := range srcCfg.Feeds {
		sources = append(sources, source.NewFeedSource(url, client))
	}
	for _, sm := range srcCfg.Sitemaps {
		sources = append(sources, source.NewSitemapSource(sm, client, cfg.KeepUnmatchedURLs))
	}

	gdeltClient := gdelt.NewClient(cfg.GDELTBaseURL, client)
	for _, q := range srcCfg.Index {
		query, err := indexQuery(q)
		if err != nil {
			logger.Warn("skipping index query", "error", err)
			continue
		}
		sources = append(sources, gdelt.NewBatchSource(gdeltClient, query, q.Batches, q.Politeness()))
	}
	return sources
}

func indexQuery(q config.IndexQueryConfig) (gdelt.Query, error) {
	start, err := time.Parse("2006-01-02", q.StartDate)
	if err != nil {
		return gdelt.Query{}, fmt.Errorf("index start_date %q: %w", q.StartDate, err)
	}

	end := time.Now().UTC()
	if q.EndDate != "" {
		end, err = time.Parse("2006-01-02", q.EndDate)
		if err != nil {
			return gdelt.Query{}, fmt.Errorf("index end_date %q: %w", q.EndDate, err)
		}
	}

	return gdelt.Query{
		Start:      start,
		End:        end,
		MaxRecords: q.MaxRecords,
		Language:   q.Language,
		Domains:    q.Domains,
	}, nil
}
