package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"tidings/internal/core"
	"tidings/internal/logger"
)

// VideoProvider implements Provider by scraping the video platform's search
// and channel listing pages. Hits carry the provider video id, channel,
// views, duration and an hqdefault thumbnail.
type VideoProvider struct {
	client    *http.Client
	userAgent string
}

// NewVideoProvider creates a new video search provider.
func NewVideoProvider() *VideoProvider {
	return &VideoProvider{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		userAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// GetName returns the name of this provider
func (v *VideoProvider) GetName() string {
	return "YouTube"
}

// Patterns over the embedded ytInitialData JSON. Each videoRenderer block is
// located first, then its fields are pulled individually so a missing
// optional field does not lose the whole entry.
var (
	videoIDPattern   = regexp.MustCompile(`"videoId":"([A-Za-z0-9_-]{11})"`)
	videoTitle       = regexp.MustCompile(`"title":\{"runs":\[\{"text":"((?:[^"\\]|\\.)*)"`)
	videoChannel     = regexp.MustCompile(`"ownerText":\{"runs":\[\{"text":"((?:[^"\\]|\\.)*)"`)
	videoViews       = regexp.MustCompile(`"viewCountText":\{"simpleText":"((?:[^"\\]|\\.)*)"`)
	videoPublished   = regexp.MustCompile(`"publishedTimeText":\{"simpleText":"((?:[^"\\]|\\.)*)"`)
	videoDuration    = regexp.MustCompile(`"lengthText":\{[^}]*"simpleText":"([0-9:]+)"`)
	videoRendererCut = regexp.MustCompile(`"videoRenderer":`)
)

// Search scrapes the search results page for a query.
func (v *VideoProvider) Search(ctx context.Context, query string, config Config) ([]core.Hit, error) {
	pageURL := "https://www.youtube.com/results?search_query=" + url.QueryEscape(query)
	return v.scrape(ctx, pageURL, query, config)
}

// ChannelVideos scrapes a channel's uploads page, returning at most limit
// entries. The handle may be a bare channel name or an @handle.
func (v *VideoProvider) ChannelVideos(ctx context.Context, handle string, limit int) ([]core.Hit, error) {
	if !strings.HasPrefix(handle, "@") {
		handle = "@" + handle
	}
	pageURL := "https://www.youtube.com/" + url.PathEscape(handle) + "/videos"
	cfg := Config{MaxResults: limit, Language: "any"}
	hits, err := v.scrape(ctx, pageURL, handle, cfg)
	if err != nil {
		return nil, err
	}
	// Channel pages omit ownerText; fill the channel from the handle.
	for i := range hits {
		if hits[i].Channel == "" {
			hits[i].Channel = strings.TrimPrefix(handle, "@")
		}
	}
	return hits, nil
}

func (v *VideoProvider) scrape(ctx context.Context, pageURL, label string, config Config) ([]core.Hit, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", v.userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch video listing: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("video listing failed with status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read video listing: %w", err)
	}

	hits := v.parseListing(string(body), config)
	logger.Info("video listing scraped", "target", label, "results_found", len(hits))
	return hits, nil
}

// parseListing extracts one hit per videoRenderer block.
func (v *VideoProvider) parseListing(body string, config Config) []core.Hit {
	var hits []core.Hit
	seen := make(map[string]bool)

	cuts := videoRendererCut.FindAllStringIndex(body, -1)
	for i, cut := range cuts {
		if config.MaxResults > 0 && len(hits) >= config.MaxResults {
			break
		}
		end := len(body)
		if i+1 < len(cuts) {
			end = cuts[i+1][0]
		}
		block := body[cut[1]:end]

		idMatch := videoIDPattern.FindStringSubmatch(block)
		titleMatch := videoTitle.FindStringSubmatch(block)
		if idMatch == nil || titleMatch == nil {
			continue
		}
		id := idMatch[1]
		if seen[id] {
			continue
		}
		title := unescapeJSON(titleMatch[1])
		if title == "" {
			continue
		}
		// The Latin filter applies unless the caller passed a language hint.
		if config.Language == "" && HasNonLatin(title) {
			continue
		}
		seen[id] = true

		hit := core.Hit{
			ID:         id,
			Title:      title,
			URL:        "https://www.youtube.com/watch?v=" + id,
			SourceType: core.SourceVideo,
			Engine:     v.GetName(),
			Image:      core.StringPtr(Thumbnail(id)),
		}
		if m := videoChannel.FindStringSubmatch(block); m != nil {
			hit.Channel = unescapeJSON(m[1])
		}
		if m := videoViews.FindStringSubmatch(block); m != nil {
			hit.Views = unescapeJSON(m[1])
		}
		if m := videoPublished.FindStringSubmatch(block); m != nil {
			hit.Published = unescapeJSON(m[1])
		}
		if m := videoDuration.FindStringSubmatch(block); m != nil {
			hit.Duration = m[1]
		}
		hits = append(hits, hit)
	}
	return hits
}

// Thumbnail returns the highest-quality stable thumbnail URL for a video id.
func Thumbnail(videoID string) string {
	return "https://i.ytimg.com/vi/" + videoID + "/hqdefault.jpg"
}

// unescapeJSON undoes the escape sequences that appear inside the embedded
// JSON string literals.
func unescapeJSON(s string) string {
	replacements := [][2]string{
		{`\u0026`, "&"}, {`\"`, `"`}, {`\/`, "/"}, {`\\`, `\`},
	}
	for _, r := range replacements {
		s = strings.ReplaceAll(s, r[0], r[1])
	}
	return strings.TrimSpace(s)
}
