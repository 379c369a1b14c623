package newsfeed

import (
	"context"
	"html"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"tidings/internal/core"
	"tidings/internal/enrich"
	"tidings/internal/geo"
	"tidings/internal/logger"
	"tidings/internal/safeurl"
	"tidings/internal/search"
	"tidings/internal/topics"
)

const (
	defaultInterval = 60 * time.Second
	fetchPoolSize   = 10
	languagePool    = 3
	snippetMaxLen   = 200
)

// christianKeywords gate Christianity-topic entries: the title+summary must
// mention at least one, or a pinned entity.
var christianKeywords = []string{
	"church", "christian", "christ", "jesus", "mohan", "bishop", "pastor",
	"ministry", "diocese", "vatican", "catholic", "protestant", "csi",
	"gospel", "prayer", "worship", "faith", "bible", "religious", "persecution",
}

var christianPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(christianKeywords, "|") + `)`)

// topicVocabulary is the loose vocabulary backing the strict read filter for
// topics whose names alone are too narrow to match article text.
var topicVocabulary = map[string][]string{
	"Christianity": christianKeywords,
	"Global News":  {"news", "world", "international", "report"},
}

var whitespacePattern = regexp.MustCompile(`\s+`)

// Worker maintains the news store: periodic RSS ingest, URL resolution,
// image recovery and retention. It is the store's only writer.
type Worker struct {
	store     *Store
	topics    *topics.Manager
	rss       *search.RSSAdapter
	resolver  *safeurl.Resolver
	enricher  *enrich.Enricher
	images    ImageSearcher
	sanitizer *bluemonday.Policy

	interval      time.Duration
	retentionDays int
	pinnedDays    int

	// selectFeeds resolves the cycle's feed set; swappable in tests.
	selectFeeds func() []targetFeed

	seedOnce sync.Once
}

// NewWorker wires a news worker.
func NewWorker(store *Store, tm *topics.Manager, images ImageSearcher) *Worker {
	if images == nil {
		images = NewImageSearcher()
	}
	w := &Worker{
		store:         store,
		topics:        tm,
		rss:           search.NewRSSAdapter(),
		resolver:      safeurl.NewResolver(),
		enricher:      enrich.NewEnricher(),
		images:        images,
		sanitizer:     bluemonday.StrictPolicy(),
		interval:      defaultInterval,
		retentionDays: 3,
		pinnedDays:    7,
	}
	w.selectFeeds = func() []targetFeed {
		return feedsForTopics(tm.ActiveKeywords())
	}
	return w
}

// SetInterval overrides the refresh period.
func (w *Worker) SetInterval(d time.Duration) { w.interval = d }

// Run executes fetch cycles until ctx is cancelled. The stop signal is
// honored between cycles; an ongoing cycle is never interrupted.
func (w *Worker) Run(ctx context.Context) {
	if n, err := w.store.Count(); err == nil && n == 0 {
		w.FetchCycle(context.Background())
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("news worker stopping")
			return
		case <-ticker.C:
			w.FetchCycle(context.Background())
		}
	}
}

// FetchCycle runs one pick-feeds / fetch-parallel / process / upsert /
// cleanup pass. Per-feed failures drop silently.
func (w *Worker) FetchCycle(ctx context.Context) {
	targets := w.selectFeeds()
	logger.Info("news fetch cycle starting", "feeds", len(targets))

	var (
		mu       sync.Mutex
		articles []core.CachedArticle
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchPoolSize)
	for _, target := range targets {
		g.Go(func() error {
			feed, err := w.rss.Fetch(gctx, target.url)
			if err != nil {
				logger.Debug("feed fetch failed", "url", target.url, "error", err.Error())
				return nil
			}
			for _, item := range feed.Items {
				article, ok := w.processEntry(gctx, item, feed.Title, target.topic)
				if !ok {
					continue
				}
				mu.Lock()
				articles = append(articles, article)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := w.store.Upsert(articles); err != nil {
		logger.Warn("news upsert skipped", "error", err.Error())
	}
	if err := w.store.Cleanup(time.Now(), w.retentionDays, w.pinnedDays); err != nil {
		logger.Warn("news cleanup skipped", "error", err.Error())
	}
	logger.Info("news fetch cycle finished", "ingested", len(articles))
}

// processEntry turns one feed entry into a cached article: keyword gate,
// URL resolution, image recovery, snippet sanitization.
func (w *Worker) processEntry(ctx context.Context, item *gofeed.Item, feedTitle, topic string) (core.CachedArticle, bool) {
	if item == nil || item.Link == "" || item.Title == "" {
		return core.CachedArticle{}, false
	}
	if !safeurl.Safe(item.Link) {
		return core.CachedArticle{}, false
	}

	combined := item.Title + " " + item.Description
	if topic == "Christianity" && !core.IsPinned(combined) && !christianPattern.MatchString(combined) {
		return core.CachedArticle{}, false
	}

	resolved := w.resolver.Resolve(ctx, item.Link)

	image := search.EntryImage(item)
	if image == "" {
		if meta := w.enricher.Fetch(ctx, resolved); enrich.AllowedImage(meta.Image) {
			image = meta.Image
		}
	}
	if image == "" && w.images != nil {
		image = w.images.FindImage(ctx, item.Title)
	}

	return core.CachedArticle{
		ID:         core.ArticleID(resolved),
		Title:      strings.TrimSpace(item.Title),
		URL:        resolved,
		Published:  item.Published,
		Source:     feedTitle,
		Image:      core.StringPtr(image),
		GUID:       item.GUID,
		Timestamp:  float64(time.Now().Unix()),
		Snippet:    w.snippet(item.Description),
		IsApproved: true,
	}, true
}

// snippet strips HTML and truncates to the cap on a rune boundary.
func (w *Worker) snippet(description string) string {
	text := w.sanitizer.Sanitize(description)
	text = html.UnescapeString(text)
	text = strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
	return core.Truncate(text, snippetMaxLen)
}

// GetNews reads approved rows with pinned dominance and geo tiering. An
// empty store triggers exactly one synchronous fetch; concurrent readers do
// not trigger more.
func (w *Worker) GetNews(ctx context.Context, limit int) ([]core.CachedArticle, error) {
	if n, err := w.store.Count(); err == nil && n == 0 {
		w.seedOnce.Do(func() { w.FetchCycle(ctx) })
	}

	articles, err := w.store.List(limit)
	if err != nil {
		return nil, err
	}
	return orderForRead(w.filterByTopics(articles)), nil
}

// filterByTopics keeps rows matching an active topic name or its loose
// vocabulary; pinned rows pass unconditionally. Rows ingested under a topic
// that has since been disabled are dropped here even though the store still
// holds them. No active topics means no constraint.
func (w *Worker) filterByTopics(articles []core.CachedArticle) []core.CachedArticle {
	if w.topics == nil {
		return articles
	}
	active := w.topics.ActiveKeywords()
	if len(active) == 0 {
		return articles
	}
	var out []core.CachedArticle
	for _, a := range articles {
		combined := strings.ToLower(a.Title + " " + a.Source + " " + a.Snippet)
		if core.IsPinned(combined) {
			out = append(out, a)
			continue
		}
		for _, topic := range active {
			if strings.Contains(combined, strings.ToLower(topic)) ||
				matchesVocabulary(combined, topicVocabulary[topic]) {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

func matchesVocabulary(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// orderForRead applies the pinned boost, then geo-tiers the remainder.
// Pinned rows always precede everything else regardless of timestamp.
func orderForRead(articles []core.CachedArticle) []core.CachedArticle {
	priority := func(a core.CachedArticle) int {
		if core.IsPinned(a.Title + " " + a.Source + " " + a.Snippet) {
			return 100
		}
		return 1
	}
	sort.SliceStable(articles, func(i, j int) bool {
		pi, pj := priority(articles[i]), priority(articles[j])
		if pi != pj {
			return pi > pj
		}
		return articles[i].Timestamp > articles[j].Timestamp
	})

	split := 0
	for split < len(articles) && priority(articles[split]) == 100 {
		split++
	}
	pinned := articles[:split]
	for i := range pinned {
		hit := core.Hit{Title: pinned[i].Title, Snippet: pinned[i].Snippet, URL: pinned[i].URL}
		pinned[i].GeoTier = geo.Tier(&hit)
	}
	rest := geo.SortArticles(articles[split:])

	out := make([]core.CachedArticle, 0, len(articles))
	out = append(out, pinned...)
	out = append(out, rest...)
	return out
}

// Search queries the localized news aggregator, warms the cache with novel
// rows, and returns the processed articles.
func (w *Worker) Search(ctx context.Context, query string, limit int, lang string) ([]core.CachedArticle, error) {
	if limit <= 0 {
		limit = 20
	}
	q := query
	if w.topics != nil {
		if constraint := w.topics.ActiveTopicQuery(); constraint != "" &&
			!w.topics.MatchesActive(query) {
			q = query + " AND (" + constraint + ")"
		}
	}

	feedURL := aggregatorSearchURL(q, lang)
	feed, err := w.rss.Fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	var articles []core.CachedArticle
	for _, item := range feed.Items {
		if len(articles) >= limit {
			break
		}
		article, ok := w.processEntry(ctx, item, feed.Title, "")
		if !ok {
			continue
		}
		articles = append(articles, article)
	}

	if err := w.store.InsertIgnore(articles); err != nil {
		logger.Warn("news search cache warm skipped", "error", err.Error())
	}
	return orderForRead(articles), nil
}

// GetByLanguage fans the active topics out over one localized aggregator
// query per topic with a small bounded pool.
func (w *Worker) GetByLanguage(ctx context.Context, lang string, limit int) ([]core.CachedArticle, error) {
	active := w.topics.ActiveKeywords()
	if len(active) == 0 {
		active = []string{"Christianity"}
	}

	var (
		mu     sync.Mutex
		merged []core.CachedArticle
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(languagePool)
	for _, topic := range active {
		g.Go(func() error {
			articles, err := w.Search(gctx, topic, limit, lang)
			if err != nil {
				logger.Debug("language fan-out query failed", "topic", topic, "error", err.Error())
				return nil
			}
			mu.Lock()
			merged = append(merged, articles...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]bool, len(merged))
	var unique []core.CachedArticle
	for _, a := range merged {
		if seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		unique = append(unique, a)
	}
	out := orderForRead(w.filterByTopics(unique))
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// aggregatorSearchURL builds the localized news search feed URL.
func aggregatorSearchURL(query, lang string) string {
	var hl, gl, ceid string
	switch lang {
	case "ta":
		hl, gl, ceid = "ta-IN", "IN", "IN:ta"
	case "hi":
		hl, gl, ceid = "hi-IN", "IN", "IN:hi"
	default:
		hl, gl, ceid = "en-IN", "IN", "IN:en"
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("hl", hl)
	params.Set("gl", gl)
	params.Set("ceid", ceid)
	return "https://news.google.com/rss/search?" + params.Encode()
}
