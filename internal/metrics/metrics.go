package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	CandidatesDiscovered int64
	DuplicatesSkipped    int64
	ContentExtracted     int64
	ExtractionFailures   int64
	EntitiesExtracted    int64
	TopicsAssigned       int64
	ArticlesPersisted    int64
	FetchErrors          int64

	// Timings
	LastRunDuration  time.Duration
	TotalRunDuration time.Duration
	RunCount         int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) IncrementDiscovered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CandidatesDiscovered++
}

func (m *Metrics) IncrementDuplicates() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesSkipped++
}

func (m *Metrics) IncrementExtracted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ContentExtracted++
}

func (m *Metrics) IncrementExtractionFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExtractionFailures++
}

func (m *Metrics) AddEntities(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EntitiesExtracted += int64(n)
}

func (m *Metrics) AddTopics(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TopicsAssigned += int64(n)
}

func (m *Metrics) IncrementPersisted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesPersisted++
}

func (m *Metrics) IncrementFetchErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchErrors++
}

func (m *Metrics) RecordRun(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastRunDuration = duration
	m.TotalRunDuration += duration
	m.RunCount++
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"candidates_discovered": m.CandidatesDiscovered,
		"duplicates_skipped":    m.DuplicatesSkipped,
		"content_extracted":     m.ContentExtracted,
		"extraction_failures":   m.ExtractionFailures,
		"entities_extracted":    m.EntitiesExtracted,
		"topics_assigned":       m.TopicsAssigned,
		"articles_persisted":    m.ArticlesPersisted,
		"fetch_errors":          m.FetchErrors,
		"last_run_duration_ms":  m.LastRunDuration.Milliseconds(),
		"run_count":             m.RunCount,
		"last_run_time":         m.LastRunTime.Format(time.RFC3339),
		"last_error_time":       m.LastErrorTime.Format(time.RFC3339),
		"last_error":            m.LastError,
		"is_healthy":            m.IsHealthy,
	}
}
