package search

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/extensions"
)

func TestCreateProvider(t *testing.T) {
	factory := NewProviderFactory()

	if _, err := factory.CreateProvider(ProviderTypeDuckDuckGo, nil); err != nil {
		t.Errorf("duckduckgo: %v", err)
	}
	if _, err := factory.CreateProvider(ProviderTypeSerpAPI, nil); err != ErrMissingAPIKey {
		t.Errorf("serpapi without key: got %v, want ErrMissingAPIKey", err)
	}
	if _, err := factory.CreateProvider(ProviderTypeSerpAPI, map[string]string{"api_key": "k"}); err != nil {
		t.Errorf("serpapi with key: %v", err)
	}
	if _, err := factory.CreateProvider("bogus", nil); err != ErrUnsupportedProvider {
		t.Errorf("unknown type: got %v, want ErrUnsupportedProvider", err)
	}
}

func TestRateLimitSerializesConcurrentCallers(t *testing.T) {
	d := NewDuckDuckGoProvider()
	d.rateLimit = 10 * time.Millisecond
	s := NewSerpAPIProvider("k")
	s.rateLimit = 10 * time.Millisecond

	// One provider instance is shared across fan-out goroutines; concurrent
	// callers must each pay the window without racing on lastCall.
	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.waitTurn()
			s.waitTurn()
		}()
	}
	wg.Wait()

	// The first caller passes immediately; the other three each wait a
	// full window.
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("4 callers finished in %v, want at least 30ms of spacing", elapsed)
	}
}

func TestRegionOrGlobal(t *testing.T) {
	if got := RegionOrGlobal("in-en"); got != "in-en" {
		t.Errorf("in-en mapped to %q", got)
	}
	if got := RegionOrGlobal("xx-yy"); got != "wt-wt" {
		t.Errorf("unknown region mapped to %q, want wt-wt", got)
	}
	if got := RegionOrGlobal(""); got != "wt-wt" {
		t.Errorf("empty region mapped to %q, want wt-wt", got)
	}
}

func TestHasNonLatin(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Renewable energy in India", false},
		{"中国新闻网报道", true},
		{"أخبار اليوم", true},
		{"Tamil news தமிழ்", false}, // Tamil script is allowed
	}
	for _, tt := range tests {
		if got := HasNonLatin(tt.text); got != tt.want {
			t.Errorf("HasNonLatin(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestExtractRedirectTarget(t *testing.T) {
	got := extractRedirectTarget("/l/?uddg=https%3A%2F%2Fexample.com%2Fstory&rut=abc")
	if got != "https://example.com/story" {
		t.Errorf("redirect decode = %q", got)
	}
	if got := extractRedirectTarget("https://direct.example.com/a"); got != "https://direct.example.com/a" {
		t.Errorf("direct URL = %q", got)
	}
	if got := extractRedirectTarget("javascript:void(0)"); got != "" {
		t.Errorf("junk URL = %q, want empty", got)
	}
}

func TestParseSearchResultsFiltersUnsafe(t *testing.T) {
	html := `
	<div class="result one"><a class="result__a" href="https://example.com/good">Good Result</a>
	<a class="result__snippet">some snippet</a></div>
	<div class="result two"><a class="result__a" href="http://192.168.1.1/router">Internal</a></div>`
	d := NewDuckDuckGoProvider()
	hits := d.parseSearchResults(html, Config{MaxResults: 10})
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	if hits[0].URL != "https://example.com/good" {
		t.Errorf("url = %q", hits[0].URL)
	}
	if hits[0].Snippet != "some snippet" {
		t.Errorf("snippet = %q", hits[0].Snippet)
	}
}

func TestParseSearchResultsLatinFilter(t *testing.T) {
	html := `
	<div class="result"><a class="result__a" href="https://example.cn/a">中文标题新闻</a></div>
	<div class="result"><a class="result__a" href="https://example.com/b">English Title</a></div>`
	d := NewDuckDuckGoProvider()

	hits := d.parseSearchResults(html, Config{MaxResults: 10, LatinOnly: true})
	if len(hits) != 1 || hits[0].Title != "English Title" {
		t.Fatalf("latin filter failed: %+v", hits)
	}

	// A language hint disables the filter.
	hits = d.parseSearchResults(html, Config{MaxResults: 10, LatinOnly: true, Language: "zh"})
	if len(hits) != 2 {
		t.Fatalf("language hint should disable filter, got %d hits", len(hits))
	}
}

func TestLocaleParams(t *testing.T) {
	tests := []struct {
		lang, region string
		wantCeid     string
	}{
		{"ta", "", "IN:ta"},
		{"hi", "", "IN:hi"},
		{"", "in-en", "IN:en"},
		{"", "wt-wt", "US:en"},
	}
	for _, tt := range tests {
		_, _, ceid := localeParams(tt.lang, tt.region)
		if ceid != tt.wantCeid {
			t.Errorf("localeParams(%q, %q) ceid = %q, want %q", tt.lang, tt.region, ceid, tt.wantCeid)
		}
	}
}

func TestEntryImageOrder(t *testing.T) {
	item := &gofeed.Item{
		Extensions: ext.Extensions{
			"media": {
				"content": []ext.Extension{
					{Attrs: map[string]string{"url": "https://cdn.example.com/media.jpg"}},
				},
			},
		},
		Enclosures: []*gofeed.Enclosure{
			{Type: "image/jpeg", URL: "https://cdn.example.com/enclosure.jpg"},
		},
		Description: `<p><img src="https://cdn.example.com/inline.jpg"></p>`,
	}
	if got := EntryImage(item); got != "https://cdn.example.com/media.jpg" {
		t.Errorf("media:content should win, got %q", got)
	}

	item.Extensions = nil
	if got := EntryImage(item); got != "https://cdn.example.com/enclosure.jpg" {
		t.Errorf("enclosure should win next, got %q", got)
	}

	item.Enclosures = nil
	if got := EntryImage(item); got != "https://cdn.example.com/inline.jpg" {
		t.Errorf("inline img should be last resort, got %q", got)
	}
}

func TestEntryImageBlockList(t *testing.T) {
	item := &gofeed.Item{
		Enclosures: []*gofeed.Enclosure{
			{Type: "image/png", URL: "https://www.gstatic.com/news/logo.png"},
		},
	}
	if got := EntryImage(item); got != "" {
		t.Errorf("blocked asset leaked: %q", got)
	}
}

func TestVideoParseListing(t *testing.T) {
	body := `{"videoRenderer":{"videoId":"abc123def45","thumbnail":{},` +
		`"title":{"runs":[{"text":"Sunday Service Live"}]},` +
		`"ownerText":{"runs":[{"text":"Example Church"}]},` +
		`"viewCountText":{"simpleText":"12K views"},` +
		`"publishedTimeText":{"simpleText":"2 days ago"},` +
		`"lengthText":{"accessibility":{},"simpleText":"1:02:45"}}}` +
		`{"videoRenderer":{"videoId":"abc123def45","title":{"runs":[{"text":"Duplicate"}]}}}`
	v := NewVideoProvider()
	hits := v.parseListing(body, Config{MaxResults: 10, Language: "en"})
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1 (id dedupe)", len(hits))
	}
	h := hits[0]
	if h.ID != "abc123def45" {
		t.Errorf("id = %q", h.ID)
	}
	if h.Title != "Sunday Service Live" {
		t.Errorf("title = %q", h.Title)
	}
	if h.Channel != "Example Church" {
		t.Errorf("channel = %q", h.Channel)
	}
	if h.Views != "12K views" {
		t.Errorf("views = %q", h.Views)
	}
	if h.Duration != "1:02:45" {
		t.Errorf("duration = %q", h.Duration)
	}
	if h.Image == nil || !strings.Contains(*h.Image, "hqdefault") {
		t.Error("thumbnail should be the hqdefault form")
	}
}

func TestThumbnail(t *testing.T) {
	if got := Thumbnail("abc123def45"); got != "https://i.ytimg.com/vi/abc123def45/hqdefault.jpg" {
		t.Errorf("Thumbnail = %q", got)
	}
}
