package enrich

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"tidings/internal/core"
	"tidings/internal/logger"
	"tidings/internal/safeurl"
)

const (
	fetchTimeout   = 3 * time.Second
	itemTimeout    = 5 * time.Second
	topK           = 30
	maxConcurrency = 15

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// blockedImageMarkers disqualify a candidate preview image. Aggregator logos
// and generic site chrome make useless previews.
var blockedImageMarkers = []string{
	"gstatic", "logo", "icon", "branding", "placeholder", "pixel",
	"default", "favicon", "avatar",
}

// Metadata is what a single page fetch can contribute to a Hit.
type Metadata struct {
	Image       string
	Description string
	Published   string
}

// Enricher fetches open-graph preview metadata for hits.
type Enricher struct {
	client *http.Client
}

// NewEnricher creates an Enricher with a short-timeout HTTP client.
func NewEnricher() *Enricher {
	return &Enricher{
		client: &http.Client{Timeout: fetchTimeout},
	}
}

// AllowedImage reports whether an image URL may be used as a preview.
// Empty URLs and anything on the block list are rejected.
func AllowedImage(imageURL string) bool {
	if imageURL == "" || !strings.HasPrefix(imageURL, "http") {
		return false
	}
	lower := strings.ToLower(imageURL)
	for _, marker := range blockedImageMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return true
}

// Fetch pulls OG/Twitter metadata from a page. Failures return the zero
// Metadata; enrichment is best-effort and never propagates errors.
func (e *Enricher) Fetch(ctx context.Context, pageURL string) Metadata {
	var meta Metadata
	if err := safeurl.Check(pageURL); err != nil {
		return meta
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return meta
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return meta
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return meta
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return meta
	}
	return extractMeta(doc)
}

// extractMeta walks the documented tag order. Split out for tests.
func extractMeta(doc *goquery.Document) Metadata {
	var meta Metadata

	image := metaContent(doc, `meta[property="og:image"]`)
	if image == "" {
		image = metaContent(doc, `meta[name="twitter:image"]`)
	}
	if AllowedImage(image) {
		meta.Image = image
	}

	meta.Description = metaContent(doc, `meta[property="og:description"]`)

	for _, sel := range []string{
		`meta[property="article:published_time"]`,
		`meta[property="og:updated_time"]`,
		`meta[name="pubdate"]`,
	} {
		if v := metaContent(doc, sel); v != "" {
			meta.Published = v
			break
		}
	}
	return meta
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

// Apply merges fetched metadata into a hit. A description longer than 10
// characters replaces the snippet; shorter ones are noise.
func Apply(hit *core.Hit, meta Metadata) {
	if hit.Image == nil && meta.Image != "" {
		hit.Image = core.StringPtr(meta.Image)
	}
	if len(meta.Description) > 10 {
		hit.Snippet = meta.Description
	}
	if hit.Published == "" && meta.Published != "" {
		hit.Published = meta.Published
	}
}

// EnrichTop enriches the first topK hits in place with bounded concurrency.
// Per-item failures leave the hit unchanged; enrichment never reorders or
// drops anything.
func (e *Enricher) EnrichTop(ctx context.Context, hits []core.Hit) {
	n := len(hits)
	if n > topK {
		n = topK
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	for i := 0; i < n; i++ {
		g.Go(func() error {
			itemCtx, cancel := context.WithTimeout(ctx, itemTimeout)
			defer cancel()
			meta := e.Fetch(itemCtx, hits[i].URL)
			Apply(&hits[i], meta)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Debug("enrichment pool interrupted", "error", err.Error())
	}
}
