package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/deusflow/newsriver/internal/enrich"
	"github.com/deusflow/newsriver/internal/extract"
	"github.com/deusflow/newsriver/internal/fetch"
	"github.com/deusflow/newsriver/internal/retry"
	"github.com/deusflow/newsriver/internal/sentiment"
	"github.com/deusflow/newsriver/internal/source"
	"github.com/deusflow/newsriver/internal/store"
)

type fakeStore struct {
	mu       sync.Mutex
	ids      map[string]int64
	articles map[int64]store.Article
	entities map[int64][]store.EntityFact
	topics   map[int64][]store.TopicFact
	nextID   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		ids:      make(map[string]int64),
		articles: make(map[int64]store.Article),
		entities: make(map[int64][]store.EntityFact),
		topics:   make(map[int64][]store.TopicFact),
	}
}

func (f *fakeStore) Lookup(ctx context.Context, link string) (int64, bool, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.ids[link]
	if !ok {
		return 0, false, false, nil
	}
	a := f.articles[id]
	return id, a.Content != nil && *a.Content != "", true, nil
}

func (f *fakeStore) UpsertArticle(ctx context.Context, a store.Article) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.ids[a.Link]
	if !ok {
		f.nextID++
		id = f.nextID
		f.ids[a.Link] = id
	}
	f.articles[id] = a
	return id, nil
}

func (f *fakeStore) AddEntities(ctx context.Context, articleID int64, facts []store.EntityFact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entities[articleID] = append(f.entities[articleID], facts...)
	return nil
}

func (f *fakeStore) AddTopics(ctx context.Context, articleID int64, facts []store.TopicFact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics[articleID] = append(f.topics[articleID], facts...)
	return nil
}

func (f *fakeStore) Close() error { return nil }

type fakeSource struct {
	name       string
	candidates []source.Candidate
}

func (f fakeSource) Name() string { return f.name }
func (f fakeSource) Discover(ctx context.Context) ([]source.Candidate, error) {
	return f.candidates, nil
}

func testPipeline(st store.Store, maxURLs int, reEnrich bool) *Pipeline {
	client := fetch.New(5*time.Second, "test-agent", retry.RetryConfig{MaxAttempts: 1})
	engine := enrich.NewEngine(nil, nil)
	return New(st, extract.New(client), engine, sentiment.NewAnalyzer(), maxURLs, 2000, reEnrich)
}

const pageHTML = `<html><head>
<title>Budget Vote | Example</title>
<meta property="og:description" content="Parliament passed the budget.">
</head><body>
<p>France approved a new budget after weeks of debate over inflation and the BCE's rate policy.</p>
<p>Lawmakers from Germany observed the session as guests of the assembly.</p>
</body></html>`

func TestRunPersistsNewCandidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, pageHTML)
	}))
	defer srv.Close()

	st := newFakeStore()
	p := testPipeline(st, 10, false)

	link := srv.URL + "/news/budget-vote"
	src := fakeSource{name: "test", candidates: []source.Candidate{{
		URL: link, Title: "Budget Vote", SourceName: "Example", SourceType: "rss",
	}}}

	if err := p.Run(context.Background(), []source.Source{src}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	id, ok := st.ids[link]
	if !ok {
		t.Fatal("candidate was not persisted")
	}
	a := st.articles[id]
	if a.Content == nil || *a.Content == "" {
		t.Error("content was not extracted")
	}
	if a.Sentiment == nil || a.Sentiment.Label == "" {
		t.Error("sentiment missing")
	}
	if a.Countries == nil {
		t.Fatal("country bucket not computed")
	}
	found := map[string]bool{}
	for _, c := range a.Countries {
		found[c] = true
	}
	if !found["France"] || !found["Germany"] {
		t.Errorf("Countries = %v, want gazetteer hits", a.Countries)
	}
	if len(st.topics[id]) == 0 {
		t.Error("topic assignments missing")
	}
	for _, f := range st.topics[id] {
		if f.Source != "rules" {
			t.Errorf("topic provenance = %q, want rules", f.Source)
		}
	}
}

func TestRunEnrichesHeadlineMaterialAlongsideBody(t *testing.T) {
	// Keywords that appear only in the title or summary must still
	// reach topic detection when the body extracts successfully.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>x</title></head><body>
<p>Le vote a eu lieu hier soir dans un climat tendu.</p>
<p>Les discussions reprendront la semaine prochaine au parlement.</p>
</body></html>`)
	}))
	defer srv.Close()

	st := newFakeStore()
	p := testPipeline(st, 10, false)

	link := srv.URL + "/news/vote"
	src := fakeSource{name: "test", candidates: []source.Candidate{{
		URL:        link,
		Title:      "L'inflation inquiète la BCE",
		Summary:    "Les taux restent stables.",
		SourceName: "Example",
	}}}
	if err := p.Run(context.Background(), []source.Source{src}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	id, ok := st.ids[link]
	if !ok {
		t.Fatal("candidate was not persisted")
	}
	if a := st.articles[id]; a.Content == nil || *a.Content == "" {
		t.Fatal("body should have extracted")
	}

	var macro *store.TopicFact
	for i, f := range st.topics[id] {
		if f.Topic == "Macro" {
			macro = &st.topics[id][i]
		}
	}
	if macro == nil {
		t.Fatalf("Macro topic missing, topics = %v", st.topics[id])
	}
	if macro.Score != 0.4 {
		t.Errorf("Macro score = %v, want 0.4 (inflation + BCE from the headline)", macro.Score)
	}
}

func TestLeadingSlice(t *testing.T) {
	if got := leadingSlice("short", 2000); got != "short" {
		t.Errorf("leadingSlice under bound = %q", got)
	}
	if got := leadingSlice("unbounded", 0); got != "unbounded" {
		t.Errorf("leadingSlice with no bound = %q", got)
	}

	long := ""
	for i := 0; i < 1000; i++ {
		long += "récession " // 11 bytes, é is two
	}
	got := leadingSlice(long, 2000)
	if len(got) > 2000 {
		t.Errorf("len = %d, want <= 2000", len(got))
	}
	for _, r := range got {
		if r == '�' {
			t.Fatal("slice cut a rune in half")
		}
	}
	// boundary that lands mid-rune must back off, not split é
	if got := leadingSlice("é", 1); got != "" {
		t.Errorf("mid-rune cut = %q, want empty", got)
	}
}

func TestRunSkipsKnownURLWithContent(t *testing.T) {
	fetched := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetched++
		fmt.Fprint(w, pageHTML)
	}))
	defer srv.Close()

	st := newFakeStore()
	link := srv.URL + "/news/known"
	body := "already extracted"
	st.UpsertArticle(context.Background(), store.Article{Link: link, Content: &body})

	p := testPipeline(st, 10, false)
	src := fakeSource{name: "test", candidates: []source.Candidate{{URL: link}}}
	if err := p.Run(context.Background(), []source.Source{src}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fetched != 0 {
		t.Errorf("duplicate with content was fetched %d times, want 0", fetched)
	}
}

func TestRunRevisitsKnownURLWithoutContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, pageHTML)
	}))
	defer srv.Close()

	st := newFakeStore()
	link := srv.URL + "/news/contentless"
	st.UpsertArticle(context.Background(), store.Article{Link: link})

	p := testPipeline(st, 10, false)
	src := fakeSource{name: "test", candidates: []source.Candidate{{URL: link}}}
	if err := p.Run(context.Background(), []source.Source{src}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	a := st.articles[st.ids[link]]
	if a.Content == nil || *a.Content == "" {
		t.Error("contentless article should be re-extracted on a later pass")
	}
}

func TestRunHonorsURLBudget(t *testing.T) {
	fetched := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetched++
		fmt.Fprint(w, pageHTML)
	}))
	defer srv.Close()

	st := newFakeStore()
	p := testPipeline(st, 2, false)

	var candidates []source.Candidate
	for i := 0; i < 5; i++ {
		candidates = append(candidates, source.Candidate{URL: fmt.Sprintf("%s/news/story-%d", srv.URL, i)})
	}
	src := fakeSource{name: "test", candidates: candidates}

	if err := p.Run(context.Background(), []source.Source{src}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fetched != 2 {
		t.Errorf("fetched %d pages, want budget of 2", fetched)
	}
	if len(st.ids) != 2 {
		t.Errorf("persisted %d articles, want 2", len(st.ids))
	}
}

func TestRunPersistsDespiteFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	st := newFakeStore()
	p := testPipeline(st, 10, false)

	link := srv.URL + "/news/missing"
	src := fakeSource{name: "test", candidates: []source.Candidate{{
		URL: link, Title: "Missing", SourceName: "Example",
	}}}
	if err := p.Run(context.Background(), []source.Source{src}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	id, ok := st.ids[link]
	if !ok {
		t.Fatal("unreachable candidate should still be persisted")
	}
	a := st.articles[id]
	if a.Content != nil {
		t.Error("content should stay absent after a failed fetch")
	}
	if a.Title != "Missing" {
		t.Errorf("Title = %q, metadata should survive", a.Title)
	}
}
