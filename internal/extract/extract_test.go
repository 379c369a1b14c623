package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tidings/internal/core"
	"tidings/internal/safeurl"
	"tidings/internal/search"
)

const articleHTML = `<!DOCTYPE html>
<html><head>
<title>Monsoon Session Opens With Religious Freedom Debate</title>
<meta property="og:image" content="https://img.example.com/session.jpg">
<meta name="author" content="R. Nair">
<meta property="article:published_time" content="2026-08-20T09:00:00Z">
</head><body>
<nav>Home | Politics | World</nav>
<article>
<h1>Monsoon Session Opens With Religious Freedom Debate</h1>
<p>The monsoon session of parliament opened on Monday with an extended debate
on religious freedom protections, drawing members from every major party into
a discussion that ran well past the scheduled adjournment.</p>
<p>Opposition members pressed the government on the implementation status of
minority welfare schemes announced in the previous budget, citing district
level data gathered by independent monitors over the past two quarters.</p>
<p>The treasury benches responded with assurances that the schemes remain
funded and that disbursal figures would be tabled before the end of the
session, a commitment the speaker recorded for follow-up.</p>
</article>
<footer>Copyright notice</footer>
</body></html>`

const thinHTML = `<!DOCTYPE html>
<html><head><title>Please enable JavaScript</title></head>
<body><p>Loading...</p></body></html>`

// testExtractor disables the address-space gate so httptest loopback servers
// are reachable.
func testExtractor(news search.Provider) *Extractor {
	e := NewExtractor(safeurl.NewResolver(), news)
	e.checkURL = func(string) error { return nil }
	return e
}

func TestExtractReadsArticle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articleHTML)
	}))
	defer srv.Close()

	e := testExtractor(nil)
	article, err := e.Extract(context.Background(), srv.URL, "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if article.IsRecovered {
		t.Error("direct extraction must not be flagged as recovered")
	}
	if len(article.Text) < 200 {
		t.Errorf("text too short: %d chars", len(article.Text))
	}
	if !strings.Contains(article.Title, "Monsoon Session") {
		t.Errorf("title = %q", article.Title)
	}
	if article.Image == nil || *article.Image != "https://img.example.com/session.jpg" {
		t.Errorf("image = %v", article.Image)
	}
	if article.Author != "R. Nair" {
		t.Errorf("author = %q", article.Author)
	}
	if article.URL != srv.URL {
		t.Errorf("url = %q, want %q", article.URL, srv.URL)
	}
}

func TestExtractRejectsUnsafeURL(t *testing.T) {
	e := NewExtractor(safeurl.NewResolver(), nil)
	_, err := e.Extract(context.Background(), "http://localhost/admin", "")
	if !errors.Is(err, core.ErrSafetyViolation) {
		t.Fatalf("expected ErrSafetyViolation, got %v", err)
	}
}

func TestExtractEmptyURL(t *testing.T) {
	e := testExtractor(nil)
	if _, err := e.Extract(context.Background(), "   ", ""); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestExtractThinPageRecoversViaSearch(t *testing.T) {
	thin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, thinHTML)
	}))
	defer thin.Close()
	full := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articleHTML)
	}))
	defer full.Close()

	news := search.NewMockProvider()
	news.SetHits([]core.Hit{search.FixedHit("Session coverage", full.URL)})

	e := testExtractor(news)
	article, err := e.Extract(context.Background(), thin.URL, "monsoon session religious freedom")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !article.IsRecovered {
		t.Fatal("thin page must be recovered via search")
	}
	if article.URL != full.URL {
		t.Errorf("url = %q, want substituted %q", article.URL, full.URL)
	}
	if len(article.Text) < 200 {
		t.Errorf("recovered text too short: %d chars", len(article.Text))
	}
	if queries := news.RecordedQueries(); len(queries) != 1 ||
		queries[0] != "monsoon session religious freedom" {
		t.Errorf("recovery queries = %v", queries)
	}
}

func TestExtractRecoverySkipsAggregatorCandidates(t *testing.T) {
	thin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, thinHTML)
	}))
	defer thin.Close()
	full := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articleHTML)
	}))
	defer full.Close()

	news := search.NewMockProvider()
	news.SetHits([]core.Hit{
		search.FixedHit("Mirror copy", "https://lh3.googleusercontent.com/story"),
		search.FixedHit("Publisher copy", full.URL),
	})

	e := testExtractor(news)
	article, err := e.Extract(context.Background(), thin.URL, "session coverage")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if article.URL != full.URL {
		t.Errorf("url = %q, want publisher %q", article.URL, full.URL)
	}
	if !article.IsRecovered {
		t.Error("substituted article must be flagged recovered")
	}
}

func TestExtractThinPageWithoutRecoveryReturnsThin(t *testing.T) {
	thin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, thinHTML)
	}))
	defer thin.Close()

	e := testExtractor(nil)
	article, err := e.Extract(context.Background(), thin.URL, "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if article.IsRecovered {
		t.Error("nothing to recover from, flag must stay false")
	}
	if len(article.Text) >= 200 {
		t.Errorf("thin page text unexpectedly long: %d", len(article.Text))
	}
}

func TestExtractFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	e := testExtractor(nil)
	if _, err := e.Extract(context.Background(), srv.URL, ""); !errors.Is(err, core.ErrAdapterFailure) {
		t.Fatalf("expected ErrAdapterFailure, got %v", err)
	}
}

func TestOnAggregatorHost(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://news.google.com/rss/articles/abc", true},
		{"https://www.google.com/url?q=x", true},
		{"https://lh3.googleusercontent.com/img", true},
		{"https://example.com/google.com/story", false},
		{"https://thehindu.com/news/article123.ece", false},
	}
	for _, tc := range cases {
		if got := onAggregatorHost(tc.url); got != tc.want {
			t.Errorf("onAggregatorHost(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}

func TestParsePageFallbackWithoutReadableBody(t *testing.T) {
	article := parsePage(`<html><head><title>Bare</title></head><body>
<div><h2>Heading</h2><p>First point.</p><li>Second point.</li></div>
</body></html>`)
	if article.Title != "Bare" {
		t.Errorf("title = %q", article.Title)
	}
	if !strings.Contains(article.Text, "First point.") {
		t.Errorf("fallback text missing paragraph: %q", article.Text)
	}
}
