package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SitemapConfig describes one sitemap tree to crawl.
type SitemapConfig struct {
	URL        string  `yaml:"url"`
	Domain     string  `yaml:"domain"`
	MaxAgeDays int     `yaml:"max_age_days"`
	Delay      float64 `yaml:"delay"` // politeness delay between requests, seconds
}

// Politeness returns the inter-request delay for this sitemap's domain.
func (s SitemapConfig) Politeness() time.Duration {
	return time.Duration(s.Delay * float64(time.Second))
}

// IndexQueryConfig describes one batched query against the external news index.
type IndexQueryConfig struct {
	StartDate  string   `yaml:"start_date"` // YYYY-MM-DD
	EndDate    string   `yaml:"end_date"`
	MaxRecords int      `yaml:"max_records"`
	Language   string   `yaml:"language"`
	Domains    []string `yaml:"domains"`
	Batches    int      `yaml:"batches"`
	Delay      float64  `yaml:"delay"` // delay between sub-range queries, seconds
}

// Politeness returns the delay applied between sub-range queries.
func (q IndexQueryConfig) Politeness() time.Duration {
	return time.Duration(q.Delay * float64(time.Second))
}

// Sources is the YAML structure of configs/sources.yaml.
type Sources struct {
	Feeds    []string            `yaml:"feeds"`
	Sitemaps []SitemapConfig     `yaml:"sitemaps"`
	Index    []IndexQueryConfig  `yaml:"index"`
	Topics   map[string][]string `yaml:"topics"`
}

// LoadSources reads the source lists and topic rules from a YAML file.
func LoadSources(path string) (*Sources, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var src Sources
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&src); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	for i := range src.Index {
		q := &src.Index[i]
		if q.MaxRecords <= 0 {
			q.MaxRecords = 250
		}
		if q.Batches <= 0 {
			q.Batches = 6
		}
		if q.Delay <= 0 {
			q.Delay = 1
		}
	}
	return &src, nil
}
