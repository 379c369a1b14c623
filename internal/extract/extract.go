package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"

	"tidings/internal/core"
	"tidings/internal/enrich"
	"tidings/internal/logger"
	"tidings/internal/safeurl"
	"tidings/internal/search"
)

const (
	fetchTimeout = 15 * time.Second
	maxBodyBytes = 5 << 20

	// minTextChars is the reader-mode floor. Pages below it are usually a
	// consent wall or a JS shell, not the article.
	minTextChars = 200

	recoveryCandidates = 5

	browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Article is the reader-mode payload.
type Article struct {
	Title       string  `json:"title"`
	Text        string  `json:"text"`
	Image       *string `json:"image"`
	Author      string  `json:"author,omitempty"`
	Published   string  `json:"published,omitempty"`
	URL         string  `json:"url"`
	IsRecovered bool    `json:"is_recovered,omitempty"`
}

// Extractor turns a URL into reader-mode text. Aggregator URLs are resolved
// to the publisher first; pages that yield almost no text trigger a recovery
// search that substitutes a readable article on the same story.
type Extractor struct {
	resolver *safeurl.Resolver
	news     search.Provider
	client   *http.Client

	// checkURL gates every fetch; injectable for tests.
	checkURL func(string) error
}

// NewExtractor wires an extractor. news supplies recovery candidates and may
// be nil to disable recovery.
func NewExtractor(resolver *safeurl.Resolver, news search.Provider) *Extractor {
	return &Extractor{
		resolver: resolver,
		news:     news,
		client:   &http.Client{Timeout: fetchTimeout},
		checkURL: safeurl.Check,
	}
}

// Extract resolves and reads a page. topic is the triggering topic or title
// and seeds the recovery search; it may be empty. Unsafe URLs are rejected
// before any network I/O.
func (e *Extractor) Extract(ctx context.Context, rawURL, topic string) (*Article, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("%w: empty extraction URL", core.ErrValidation)
	}
	if err := e.checkURL(rawURL); err != nil {
		return nil, err
	}

	resolved := e.resolver.Resolve(ctx, rawURL)

	var article *Article
	if !onAggregatorHost(resolved) {
		a, err := e.readPage(ctx, resolved)
		if err != nil {
			logger.Warn("reader-mode fetch failed", "url", resolved, "error", err.Error())
		} else {
			article = a
		}
	}

	if article != nil && len(article.Text) >= minTextChars {
		return article, nil
	}

	// Thin or unreadable page: substitute a readable article on the story.
	if recovered := e.recover(ctx, topic, article); recovered != nil {
		return recovered, nil
	}

	if article != nil {
		return article, nil
	}
	return nil, fmt.Errorf("%w: could not extract %s", core.ErrAdapterFailure, rawURL)
}

// recover searches the news index for the story and extracts the first
// readable candidate. The substituted article is flagged is_recovered.
func (e *Extractor) recover(ctx context.Context, topic string, thin *Article) *Article {
	query := strings.TrimSpace(topic)
	if query == "" && thin != nil {
		query = strings.TrimSpace(thin.Title)
	}
	if query == "" || e.news == nil {
		return nil
	}

	hits, err := e.news.Search(ctx, query, search.Config{MaxResults: recoveryCandidates})
	if err != nil {
		logger.Warn("recovery search failed", "query", query, "error", err.Error())
		return nil
	}

	for _, hit := range hits {
		candidate := e.resolver.Resolve(ctx, hit.URL)
		if onAggregatorHost(candidate) || e.checkURL(candidate) != nil {
			continue
		}
		article, err := e.readPage(ctx, candidate)
		if err != nil || len(article.Text) < minTextChars {
			continue
		}
		article.IsRecovered = true
		logger.Info("reader-mode recovered via search", "query", query, "url", candidate)
		return article
	}
	return nil
}

// readPage fetches a page and extracts its main content and metadata.
func (e *Extractor) readPage(ctx context.Context, pageURL string) (*Article, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build extraction request: %w", err)
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: extraction fetch returned %d", core.ErrAdapterFailure, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read page body: %w", err)
	}

	finalURL := resp.Request.URL.String()
	article := parsePage(string(body))
	article.URL = finalURL
	return article, nil
}

// parsePage runs readability for the body text and goquery for the metadata.
// Split out for tests.
func parsePage(html string) *Article {
	article := &Article{}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		article.Title = pageTitle(doc)
		article.Author = metaContent(doc, `meta[name="author"]`)
		article.Published = metaContent(doc, `meta[property="article:published_time"]`)
		if image := metaContent(doc, `meta[property="og:image"]`); enrich.AllowedImage(image) {
			article.Image = core.StringPtr(image)
		}
	}

	if parsed, err := readability.FromReader(strings.NewReader(html), nil); err == nil {
		var buf strings.Builder
		if err := parsed.RenderText(&buf); err == nil {
			article.Text = normalizeText(buf.String())
		}
	}
	if article.Text == "" {
		article.Text = fallbackText(html)
	}
	return article
}

// pageTitle walks title, og:title, then the first h1.
func pageTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if title := metaContent(doc, `meta[property="og:title"]`); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

// fallbackText strips chrome and joins paragraph-level text when readability
// cannot identify an article body.
func fallbackText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript, nav, header, footer, aside").Remove()

	var paragraphs []string
	doc.Find("h1, h2, h3, p, li").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return strings.Join(paragraphs, "\n\n")
}

// normalizeText collapses intra-paragraph whitespace while keeping paragraph
// breaks.
func normalizeText(text string) string {
	lines := strings.Split(text, "\n")
	var paragraphs []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			paragraphs = append(paragraphs, line)
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

// onAggregatorHost reports whether a URL still sits on the aggregator or its
// user-content mirror; such URLs never count as extraction targets.
func onAggregatorHost(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "google.com" || strings.HasSuffix(host, ".google.com") ||
		strings.HasSuffix(host, ".googleusercontent.com")
}
