package core

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases scheme and host", "HTTPS://Example.COM/News", "https://example.com/News"},
		{"strips fragment", "https://example.com/a#section", "https://example.com/a"},
		{"strips tracking params", "https://example.com/a?utm_source=x&id=5", "https://example.com/a?id=5"},
		{"strips trailing slash", "https://example.com/a/", "https://example.com/a"},
		{"keeps meaningful query", "https://example.com/s?q=jesus", "https://example.com/s?q=jesus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURL(tt.in); got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeURLIdempotent(t *testing.T) {
	urls := []string{
		"HTTP://News.Example.com/a/b/?utm_medium=social#frag",
		"https://example.com",
		"not a url at all",
	}
	for _, u := range urls {
		once := NormalizeURL(u)
		twice := NormalizeURL(once)
		if once != twice {
			t.Errorf("normalization not idempotent for %q: %q != %q", u, once, twice)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("under the cap changed: %q", got)
	}
	if got := Truncate(strings.Repeat("a", 12), 10); len(got) != 10 {
		t.Errorf("ascii cut length = %d", len(got))
	}
	if got := Truncate("abc", 0); got != "" {
		t.Errorf("zero cap = %q", got)
	}

	for _, s := range []string{
		strings.Repeat("தமிழ் ", 20),
		strings.Repeat("समाचार ", 20),
	} {
		got := Truncate(s, 50)
		if len(got) > 50 {
			t.Errorf("length = %d, want <= 50", len(got))
		}
		if !utf8.ValidString(got) {
			t.Errorf("cut split a rune in %q", got)
		}
		if !strings.HasPrefix(s, got) {
			t.Errorf("result is not a prefix of the input: %q", got)
		}
	}
}

func TestHitIDStable(t *testing.T) {
	a := HitID("https://example.com/story?utm_source=feed")
	b := HitID("https://EXAMPLE.com/story")
	if a != b {
		t.Errorf("equivalent URLs produced different ids: %s vs %s", a, b)
	}
	c := HitID("https://example.com/other")
	if a == c {
		t.Error("distinct URLs produced the same id")
	}
}

func TestHitJSONRoundTrip(t *testing.T) {
	img := "https://cdn.example.com/pic.jpg"
	hits := []Hit{
		{ID: "x", Title: "With image", URL: "https://example.com/a", Snippet: "s",
			SourceType: SourceNews, Engine: "rss", Image: &img, Published: "2 hours ago", GeoTier: TierLocal},
		{ID: "y", Title: "No image", URL: "https://example.com/b",
			SourceType: SourceWeb, Engine: "duckduckgo", Image: nil},
	}
	for _, h := range hits {
		data, err := json.Marshal(h)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var back Hit
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if back.Title != h.Title || back.URL != h.URL || back.GeoTier != h.GeoTier {
			t.Errorf("round trip changed fields: %+v -> %+v", h, back)
		}
		if (h.Image == nil) != (back.Image == nil) {
			t.Errorf("image nullability lost for %q", h.Title)
		}
		if h.Image != nil && *back.Image != *h.Image {
			t.Errorf("image URL changed: %q -> %q", *h.Image, *back.Image)
		}
	}
}

func TestHitJSONHidesScores(t *testing.T) {
	h := Hit{ID: "x", Title: "t", URL: "https://example.com", Relevance: 55, BM25: 0.9, Hybrid: 0.7}
	data, _ := json.Marshal(h)
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"Relevance", "BM25", "Hybrid", "relevance", "bm25", "hybrid"} {
		if _, ok := m[k]; ok {
			t.Errorf("internal score %q leaked onto the wire", k)
		}
	}
}
