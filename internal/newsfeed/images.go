package newsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"tidings/internal/enrich"
	"tidings/internal/logger"
)

// ImageSearcher is the last resort of the image recovery cascade: a safe,
// medium-size photo search returning the first non-blocklisted URL.
type ImageSearcher interface {
	FindImage(ctx context.Context, query string) string
}

// ddgImageSearcher queries the DuckDuckGo image vertical. Each search needs
// a vqd token scraped from the HTML page first.
type ddgImageSearcher struct {
	client    *http.Client
	userAgent string
}

// NewImageSearcher creates the default image searcher.
func NewImageSearcher() ImageSearcher {
	return &ddgImageSearcher{
		client:    &http.Client{Timeout: 10 * time.Second},
		userAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

var vqdPattern = regexp.MustCompile(`vqd=['"]?([\d-]+)['"]?`)

func (d *ddgImageSearcher) FindImage(ctx context.Context, query string) string {
	vqd, err := d.fetchVQD(ctx, query)
	if err != nil {
		logger.Debug("image search token fetch failed", "error", err.Error())
		return ""
	}

	params := url.Values{}
	params.Set("l", "us-en")
	params.Set("o", "json")
	params.Set("q", query)
	params.Set("vqd", vqd)
	params.Set("f", ",size:Medium,type:photo")
	params.Set("p", "1") // SafeSearch on

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://duckduckgo.com/i.js?"+params.Encode(), nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Referer", "https://duckduckgo.com/")

	resp, err := d.client.Do(req)
	if err != nil {
		return ""
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return ""
	}

	var payload struct {
		Results []struct {
			Image string `json:"image"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ""
	}
	for _, r := range payload.Results {
		if enrich.AllowedImage(r.Image) {
			return r.Image
		}
	}
	return ""
}

func (d *ddgImageSearcher) fetchVQD(ctx context.Context, query string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"https://duckduckgo.com/?q="+url.QueryEscape(query)+"&iax=images&ia=images", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	m := vqdPattern.FindSubmatch(body)
	if m == nil {
		return "", fmt.Errorf("vqd token not found")
	}
	return string(m[1]), nil
}
