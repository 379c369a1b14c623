package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"tidings/internal/core"
	"tidings/internal/logger"
	"tidings/internal/safeurl"
)

// DuckDuckGoProvider implements the Provider interface by scraping the
// DuckDuckGo HTML endpoint. It is the free default engine.
type DuckDuckGoProvider struct {
	client    *http.Client
	userAgent string
	rateLimit time.Duration

	// mu guards lastCall; one provider instance is shared across the
	// orchestrator's fan-out goroutines.
	mu       sync.Mutex
	lastCall time.Time
}

// NewDuckDuckGoProvider creates a new DuckDuckGo search provider
func NewDuckDuckGoProvider() *DuckDuckGoProvider {
	return &DuckDuckGoProvider{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		userAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		rateLimit: 2 * time.Second,
	}
}

// GetName returns the name of this provider
func (d *DuckDuckGoProvider) GetName() string {
	return "DuckDuckGo"
}

// waitTurn blocks until the rate-limit window has elapsed. Concurrent
// callers are serialized so each pays the full window.
func (d *DuckDuckGoProvider) waitTurn() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if elapsed := time.Since(d.lastCall); elapsed < d.rateLimit {
		time.Sleep(d.rateLimit - elapsed)
	}
	d.lastCall = time.Now()
}

// Search performs a search using DuckDuckGo and returns normalized hits.
func (d *DuckDuckGoProvider) Search(ctx context.Context, query string, config Config) ([]core.Hit, error) {
	d.waitTurn()

	searchURL := d.buildSearchURL(query, config)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("DNT", "1")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request failed with status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	bodyStr := string(body)

	if strings.Contains(bodyStr, "captcha") || strings.Contains(bodyStr, "Captcha") {
		logger.Debug("DuckDuckGo CAPTCHA detected", "query", query)
		return nil, fmt.Errorf("%w: blocked by CAPTCHA", ErrRateLimited)
	}

	hits := d.parseSearchResults(bodyStr, config)
	logger.Info("DuckDuckGo search completed", "query", query, "results_found", len(hits))
	return hits, nil
}

// buildSearchURL constructs the DuckDuckGo search URL with parameters
func (d *DuckDuckGoProvider) buildSearchURL(query string, config Config) string {
	baseURL := "https://html.duckduckgo.com/html/"
	params := url.Values{}

	params.Set("q", query)
	params.Set("b", "0")
	params.Set("kl", RegionOrGlobal(config.Region))
	switch config.TimeFilter {
	case "d", "w", "m", "y":
		params.Set("df", config.TimeFilter)
	}

	return baseURL + "?" + params.Encode()
}

// Regular expressions for parsing DuckDuckGo HTML results. These need
// adjustment if DuckDuckGo changes their markup.
var (
	ddgResultPattern  = regexp.MustCompile(`<div class="result[^"]*"[^>]*>(.*?)</div>`)
	ddgTitlePattern   = regexp.MustCompile(`<a[^>]*class="result__a"[^>]*href="([^"]*)"[^>]*>(.*?)</a>`)
	ddgSnippetPattern = regexp.MustCompile(`<a[^>]*class="result__snippet"[^>]*>(.*?)</a>`)
)

// parseSearchResults extracts hits from the DuckDuckGo HTML response.
// Invalid URLs and (when configured) non-Latin titles are dropped.
func (d *DuckDuckGoProvider) parseSearchResults(html string, config Config) []core.Hit {
	var hits []core.Hit

	for _, match := range ddgResultPattern.FindAllStringSubmatch(html, -1) {
		if len(hits) >= config.MaxResults && config.MaxResults > 0 {
			break
		}
		resultHTML := match[1]

		titleMatch := ddgTitlePattern.FindStringSubmatch(resultHTML)
		if len(titleMatch) < 3 {
			continue
		}
		finalURL := extractRedirectTarget(titleMatch[1])
		if finalURL == "" || !safeurl.Safe(finalURL) {
			continue
		}
		title := cleanHTMLText(titleMatch[2])
		if title == "" {
			continue
		}
		if config.LatinOnly && config.Language == "" && HasNonLatin(title) {
			continue
		}

		snippet := ""
		if m := ddgSnippetPattern.FindStringSubmatch(resultHTML); len(m) >= 2 {
			snippet = cleanHTMLText(m[1])
		}

		hits = append(hits, core.Hit{
			ID:         core.HitID(finalURL),
			Title:      title,
			URL:        finalURL,
			Snippet:    snippet,
			SourceType: core.SourceWeb,
			Engine:     d.GetName(),
		})
	}
	return hits
}

// extractRedirectTarget decodes DuckDuckGo's /l/?uddg= redirect URLs.
func extractRedirectTarget(redirectURL string) string {
	if strings.HasPrefix(redirectURL, "/l/?") || strings.HasPrefix(redirectURL, "//duckduckgo.com/l/?") {
		parsed, err := url.Parse(redirectURL)
		if err != nil {
			return ""
		}
		if uddg := parsed.Query().Get("uddg"); uddg != "" {
			decoded, err := url.QueryUnescape(uddg)
			if err != nil {
				return ""
			}
			return decoded
		}
	}
	if strings.HasPrefix(redirectURL, "http") {
		return redirectURL
	}
	return ""
}

// cleanHTMLText removes HTML tags and decodes common entities.
func cleanHTMLText(text string) string {
	text = regexp.MustCompile(`<[^>]*>`).ReplaceAllString(text, "")

	replacements := [][2]string{
		{"&amp;", "&"}, {"&lt;", "<"}, {"&gt;", ">"},
		{"&quot;", `"`}, {"&#39;", "'"}, {"&nbsp;", " "},
	}
	for _, r := range replacements {
		text = strings.ReplaceAll(text, r[0], r[1])
	}

	text = regexp.MustCompile(`\s+`).ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
