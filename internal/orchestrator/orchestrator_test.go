package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"tidings/internal/core"
	"tidings/internal/rank"
	"tidings/internal/relevance"
	"tidings/internal/search"
	"tidings/internal/topics"
)

func newTestOrchestrator(t *testing.T, provider search.Provider) *Orchestrator {
	t.Helper()
	tm, err := topics.NewManager(filepath.Join(t.TempDir(), "topics.json"))
	if err != nil {
		t.Fatal(err)
	}
	// Start with no active topics so queries pass through unchanged.
	for name := range tm.GetAll() {
		if err := tm.SetTopic(name, false); err != nil {
			t.Fatal(err)
		}
	}
	return New(tm, relevance.NewFilter(nil), rank.NewRanker(nil), nil, provider)
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trims", "  solar power  ", "solar power"},
		{"strips hostile chars", "solar <b>{x}</b> |^~[y]` power", "solar bx/b y power"},
		{"strips control chars", "solar\x00\x1fpower", "solarpower"},
		{"empty", "", ""},
		{"only hostile", "<>{}", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeLengthBoundary(t *testing.T) {
	if got := Sanitize(strings.Repeat("a", 501)); len(got) != 500 {
		t.Errorf("length = %d, want 500", len(got))
	}
	if got := Sanitize(strings.Repeat("a", 500)); len(got) != 500 {
		t.Errorf("length = %d, want 500", len(got))
	}
	if got := Sanitize("a"); got != "a" {
		t.Errorf("single char = %q", got)
	}
}

func TestSanitizeMultibyteBoundary(t *testing.T) {
	got := Sanitize(strings.Repeat("தமிழ்நாடு செய்தி ", 40))
	if len(got) > 500 {
		t.Errorf("length = %d, want <= 500", len(got))
	}
	if !utf8.ValidString(got) {
		t.Error("truncation split a multi-byte rune")
	}

	hindi := Sanitize(strings.Repeat("भारत समाचार ", 40))
	if len(hindi) > 500 || !utf8.ValidString(hindi) {
		t.Errorf("hindi query mangled: len=%d valid=%v", len(hindi), utf8.ValidString(hindi))
	}
}

func TestRunRejectsEmptyQuery(t *testing.T) {
	o := newTestOrchestrator(t, search.NewMockProvider())
	hits, errs := o.Run(context.Background(), Request{Topic: "  <>[]  "})
	if len(hits) != 0 {
		t.Errorf("invalid query produced %d hits", len(hits))
	}
	if len(errs) != 1 || errs[0].Intent != "validate" {
		t.Errorf("errs = %v", errs)
	}
}

func TestRunCollectsAdapterFailures(t *testing.T) {
	mock := search.NewMockProvider()
	mock.SetError(errors.New("rate limited"))
	o := newTestOrchestrator(t, mock)

	hits, errs := o.Run(context.Background(), Request{Topic: "solar power", Intents: []string{IntentGeneral}})
	if len(hits) != 0 {
		t.Errorf("failing adapter produced hits: %d", len(hits))
	}
	if len(errs) == 0 {
		t.Fatal("adapter failures were not collected")
	}
	for _, e := range errs {
		if e.Intent != IntentGeneral {
			t.Errorf("error intent = %q", e.Intent)
		}
	}
}

func TestRunEndToEnd(t *testing.T) {
	mock := search.NewMockProvider()
	mock.SetHits([]core.Hit{
		search.FixedHit("solar power in chennai region", "https://local.example.com/1"),
		search.FixedHit("solar power across india", "https://national.example.com/2"),
		search.FixedHit("global solar power outlook", "https://global.example.com/3"),
		search.FixedHit("irrelevant cooking blog", "https://noise.example.com/4"),
	})
	o := newTestOrchestrator(t, mock)

	hits, errs := o.Run(context.Background(), Request{Topic: "solar power", Limit: 10})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(hits) != 3 {
		t.Fatalf("got %d hits, want 3 (noise filtered)", len(hits))
	}
	// Geo tiers must be contiguous Local -> National -> Global.
	if hits[0].GeoTier != core.TierLocal || hits[1].GeoTier != core.TierNational || hits[2].GeoTier != core.TierGlobal {
		t.Errorf("tiers = %v %v %v", hits[0].GeoTier, hits[1].GeoTier, hits[2].GeoTier)
	}
	for _, h := range hits {
		if h.Title == "" || h.URL == "" {
			t.Error("hit missing title or url")
		}
	}
}

func TestTopicConstraintAppended(t *testing.T) {
	mock := search.NewMockProvider()
	tm, err := topics.NewManager(filepath.Join(t.TempDir(), "topics.json"))
	if err != nil {
		t.Fatal(err)
	}
	o := New(tm, relevance.NewFilter(nil), rank.NewRanker(nil), nil, mock)

	o.Run(context.Background(), Request{Topic: "festival dates", Intents: []string{IntentGeneral}})
	if len(mock.Queries) == 0 {
		t.Fatal("no queries dispatched")
	}
	for _, q := range mock.Queries {
		if !strings.Contains(q, `"Christianity"`) {
			t.Errorf("topic constraint missing from query %q", q)
		}
	}

	// A query already mentioning the topic is not rewritten.
	mock.Queries = nil
	o.Run(context.Background(), Request{Topic: "christianity in kerala", Intents: []string{IntentGeneral}})
	for _, q := range mock.Queries {
		if strings.Contains(q, " AND (") {
			t.Errorf("constraint wrongly appended to %q", q)
		}
	}
}

func TestDedupeIdempotent(t *testing.T) {
	hits := []core.Hit{
		search.FixedHit("First Story Long Title", "https://example.com/a"),
		search.FixedHit("First Story Long Title", "https://example.com/a?utm_source=x"),
		search.FixedHit("Second Story Long Title", "https://example.com/b"),
		search.FixedHit("second story long title", "https://example.com/c"),
		{Title: "archives", URL: "https://example.com/arch"},
	}
	once := Dedupe(hits)
	twice := Dedupe(once)
	if len(once) != len(twice) {
		t.Errorf("dedupe not idempotent: %d vs %d", len(once), len(twice))
	}
	if len(once) != 2 {
		t.Errorf("got %d hits, want 2", len(once))
	}

	urls := make(map[string]bool)
	for _, h := range once {
		urls[core.NormalizeURL(h.URL)] = true
	}
	if len(urls) != len(once) {
		t.Error("normalized URLs not unique after dedupe")
	}
}

func TestExpandQuery(t *testing.T) {
	queries := ExpandQuery("solar", []string{IntentGeneral, IntentNews})
	if len(queries) != 4 {
		t.Fatalf("got %d queries, want 4", len(queries))
	}
	if queries[0] != "solar" {
		t.Errorf("first query = %q", queries[0])
	}
	for _, q := range queries {
		if !strings.Contains(q, "solar") {
			t.Errorf("query %q missing topic", q)
		}
	}

	if got := ExpandQuery("x", nil); len(got) == 0 {
		t.Error("default intents produced no queries")
	}
}

func TestIntentFor(t *testing.T) {
	intents := []string{IntentGeneral, IntentNews}
	// general has 2 templates, news has 2.
	if got := IntentFor(intents, 0); got != IntentGeneral {
		t.Errorf("index 0 = %q", got)
	}
	if got := IntentFor(intents, 1); got != IntentGeneral {
		t.Errorf("index 1 = %q", got)
	}
	if got := IntentFor(intents, 2); got != IntentNews {
		t.Errorf("index 2 = %q", got)
	}
	if got := IntentFor(intents, 3); got != IntentNews {
		t.Errorf("index 3 = %q", got)
	}
}
