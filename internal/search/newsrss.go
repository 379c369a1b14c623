package search

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"

	"tidings/internal/core"
	"tidings/internal/logger"
	"tidings/internal/safeurl"
)

// NewsRSSProvider implements Provider over the Google News search feed.
// Results carry the entry's published string in its original form.
type NewsRSSProvider struct {
	parser *gofeed.Parser
}

// NewNewsRSSProvider creates a news search provider.
func NewNewsRSSProvider() *NewsRSSProvider {
	parser := gofeed.NewParser()
	parser.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	return &NewsRSSProvider{parser: parser}
}

// GetName returns the name of this provider
func (n *NewsRSSProvider) GetName() string {
	return "GoogleNewsRSS"
}

// localeParams maps a language hint and region to the aggregator's
// hl/gl/ceid triple.
func localeParams(language, region string) (hl, gl, ceid string) {
	switch language {
	case "ta":
		return "ta-IN", "IN", "IN:ta"
	case "hi":
		return "hi-IN", "IN", "IN:hi"
	}
	if region == "in-en" {
		return "en-IN", "IN", "IN:en"
	}
	return "en-US", "US", "US:en"
}

// FeedURL builds the aggregator search URL for a query.
func (n *NewsRSSProvider) FeedURL(query string, config Config) string {
	hl, gl, ceid := localeParams(config.Language, config.Region)
	params := url.Values{}
	params.Set("q", query)
	params.Set("hl", hl)
	params.Set("gl", gl)
	params.Set("ceid", ceid)
	return "https://news.google.com/rss/search?" + params.Encode()
}

// Search queries the news feed. An empty result under a regional locale is
// retried once with the global locale before giving up.
func (n *NewsRSSProvider) Search(ctx context.Context, query string, config Config) ([]core.Hit, error) {
	hits, err := n.fetch(ctx, query, config)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 && config.Region != "" && config.Region != "wt-wt" {
		logger.Debug("news search empty under region, retrying global", "query", query, "region", config.Region)
		global := config
		global.Region = "wt-wt"
		return n.fetch(ctx, query, global)
	}
	return hits, nil
}

func (n *NewsRSSProvider) fetch(ctx context.Context, query string, config Config) ([]core.Hit, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	feed, err := n.parser.ParseURLWithContext(n.FeedURL(query, config), ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse news feed: %w", err)
	}

	var hits []core.Hit
	for _, item := range feed.Items {
		if config.MaxResults > 0 && len(hits) >= config.MaxResults {
			break
		}
		if item.Link == "" || item.Title == "" || !safeurl.Safe(item.Link) {
			continue
		}
		hits = append(hits, core.Hit{
			ID:         core.HitID(item.Link),
			Title:      item.Title,
			URL:        item.Link,
			Snippet:    cleanHTMLText(item.Description),
			SourceType: core.SourceNews,
			Engine:     n.GetName(),
			Published:  item.Published,
		})
	}

	logger.Info("news search completed", "query", query, "results_found", len(hits))
	return hits, nil
}
