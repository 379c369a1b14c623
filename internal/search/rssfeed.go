package search

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"tidings/internal/core"
	"tidings/internal/enrich"
	"tidings/internal/safeurl"
)

// imgSrcPattern is the last-resort image extraction over an entry summary.
var imgSrcPattern = regexp.MustCompile(`<img[^>]+src=["']([^"']+)["']`)

// RSSAdapter turns feed entries into hits. The feed workers use it directly;
// it also satisfies Provider where the "query" is the feed URL itself.
type RSSAdapter struct {
	parser *gofeed.Parser
}

// NewRSSAdapter creates an RSS adapter.
func NewRSSAdapter() *RSSAdapter {
	parser := gofeed.NewParser()
	parser.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	return &RSSAdapter{parser: parser}
}

// GetName returns the name of this adapter
func (r *RSSAdapter) GetName() string {
	return "RSS"
}

// Search parses the feed at the given URL. MaxResults caps the entry count.
func (r *RSSAdapter) Search(ctx context.Context, feedURL string, config Config) ([]core.Hit, error) {
	feed, err := r.Fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	var hits []core.Hit
	for _, item := range feed.Items {
		if config.MaxResults > 0 && len(hits) >= config.MaxResults {
			break
		}
		hit, ok := r.HitFromItem(item, feed.Title)
		if !ok {
			continue
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Fetch parses a feed URL with a bounded timeout.
func (r *RSSAdapter) Fetch(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", feedURL, err)
	}
	return feed, nil
}

// HitFromItem converts one feed entry into a hit.
func (r *RSSAdapter) HitFromItem(item *gofeed.Item, feedTitle string) (core.Hit, bool) {
	if item == nil || item.Link == "" || item.Title == "" {
		return core.Hit{}, false
	}
	if !safeurl.Safe(item.Link) {
		return core.Hit{}, false
	}

	hit := core.Hit{
		ID:         core.HitID(item.Link),
		Title:      strings.TrimSpace(item.Title),
		URL:        item.Link,
		Snippet:    cleanHTMLText(item.Description),
		SourceType: core.SourceNews,
		Engine:     r.GetName(),
		Published:  item.Published,
		Channel:    feedTitle,
	}
	if img := EntryImage(item); img != "" {
		hit.Image = core.StringPtr(img)
	}
	return hit, true
}

// EntryImage walks the documented extraction order: media:content,
// media:thumbnail, image-typed enclosures, then an <img src> scan over the
// summary. Block-listed assets are skipped at every step.
func EntryImage(item *gofeed.Item) string {
	if media, ok := item.Extensions["media"]; ok {
		for _, key := range []string{"content", "thumbnail"} {
			for _, ext := range media[key] {
				if u := ext.Attrs["url"]; allowedEntryImage(u) {
					return u
				}
			}
		}
	}
	for _, enc := range item.Enclosures {
		if strings.HasPrefix(enc.Type, "image/") && allowedEntryImage(enc.URL) {
			return enc.URL
		}
	}
	if item.Image != nil && allowedEntryImage(item.Image.URL) {
		return item.Image.URL
	}
	for _, content := range []string{item.Description, item.Content} {
		if m := imgSrcPattern.FindStringSubmatch(content); len(m) == 2 && allowedEntryImage(m[1]) {
			return m[1]
		}
	}
	return ""
}

func allowedEntryImage(imageURL string) bool {
	return enrich.AllowedImage(imageURL)
}
