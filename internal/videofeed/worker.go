package videofeed

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tidings/internal/core"
	"tidings/internal/logger"
	"tidings/internal/search"
	"tidings/internal/topics"
)

const (
	defaultInterval   = 45 * time.Minute
	channelScrapeMax  = 3
	topicSearchMax    = 5
	fallbackSearchMax = 5
)

// VideoSource is the provider surface the worker needs; satisfied by
// search.VideoProvider and by mocks in tests.
type VideoSource interface {
	Search(ctx context.Context, query string, config search.Config) ([]core.Hit, error)
	ChannelVideos(ctx context.Context, handle string, limit int) ([]core.Hit, error)
}

// Translator localizes topic queries. Satisfied by llm.Client; a nil
// translator falls back to the static table.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// staticTopicTranslations covers the known topics when no translator is
// configured or the call fails.
var staticTopicTranslations = map[string]map[string]string{
	"Christianity": {"ta": "கிறிஸ்தவ செய்திகள்", "hi": "ईसाई समाचार"},
	"Technology":   {"ta": "தொழில்நுட்ப செய்திகள்", "hi": "प्रौद्योगिकी समाचार"},
	"Science":      {"ta": "அறிவியல் செய்திகள்", "hi": "विज्ञान समाचार"},
	"Sports":       {"ta": "விளையாட்டு செய்திகள்", "hi": "खेल समाचार"},
	"Global News":  {"ta": "உலக செய்திகள்", "hi": "विश्व समाचार"},
}

// Worker maintains the video store: channel scrapes with topic-search
// fallback, localized topic discovery, fuzzy dedupe and the row cap.
type Worker struct {
	store      *Store
	topics     *topics.Manager
	source     VideoSource
	translator Translator
	interval   time.Duration

	seedOnce sync.Once
}

// NewWorker wires a video worker. A nil source uses the live provider; a nil
// translator limits localization to the static table.
func NewWorker(store *Store, tm *topics.Manager, source VideoSource, translator Translator) *Worker {
	if source == nil {
		source = search.NewVideoProvider()
	}
	return &Worker{
		store:      store,
		topics:     tm,
		source:     source,
		translator: translator,
		interval:   defaultInterval,
	}
}

// SetInterval overrides the refresh period.
func (w *Worker) SetInterval(d time.Duration) { w.interval = d }

// Run executes fetch cycles until ctx is cancelled, stopping only at cycle
// boundaries.
func (w *Worker) Run(ctx context.Context) {
	if n, err := w.store.Count(); err == nil && n == 0 {
		w.FetchCycle(context.Background())
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("video worker stopping")
			return
		case <-ticker.C:
			w.FetchCycle(context.Background())
		}
	}
}

// FetchCycle runs one channel-scrape round and one localized topic-search
// round, then inserts the deduplicated batch.
func (w *Worker) FetchCycle(ctx context.Context) {
	active := w.topics.ActiveKeywords()
	channels := channelsForTopics(active)
	logger.Info("video fetch cycle starting", "channels", len(channels))

	var (
		mu         sync.Mutex
		candidates []core.CachedVideo
	)
	collect := func(hits []core.Hit) {
		now := float64(time.Now().Unix())
		mu.Lock()
		for _, h := range hits {
			candidates = append(candidates, cachedVideoFromHit(h, now))
		}
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, channel := range channels {
		g.Go(func() error {
			hits, err := w.source.ChannelVideos(gctx, channel, channelScrapeMax)
			if err != nil || len(hits) == 0 {
				// Empty channel pages happen when the handle changed; a topic
				// search by display name recovers the content.
				hits, err = w.source.Search(gctx, searchName(channel), search.Config{MaxResults: fallbackSearchMax})
				if err != nil {
					logger.Debug("channel fetch failed", "channel", channel, "error", err.Error())
					return nil
				}
			}
			collect(hits)
			return nil
		})
	}
	_ = g.Wait()

	for _, query := range w.topicQueries(ctx, active) {
		hits, err := w.source.Search(ctx, query.text, search.Config{MaxResults: topicSearchMax, Language: query.lang})
		if err != nil {
			logger.Debug("topic search failed", "query", query.text, "error", err.Error())
			continue
		}
		collect(hits)
	}

	batch := dedupeByID(candidates)
	saved, err := w.store.Insert(batch)
	if err != nil {
		logger.Warn("video insert skipped", "error", err.Error())
		return
	}
	logger.Info("video fetch cycle finished", "candidates", len(batch), "saved", saved)
}

type localizedQuery struct {
	text string
	lang string
}

// topicQueries expands each active topic into its en/ta/hi variants.
func (w *Worker) topicQueries(ctx context.Context, active []string) []localizedQuery {
	if len(active) == 0 {
		active = []string{"Christianity"}
	}

	var queries []localizedQuery
	seen := make(map[string]bool)
	add := func(text, lang string) {
		if text != "" && !seen[text] {
			seen[text] = true
			queries = append(queries, localizedQuery{text: text, lang: lang})
		}
	}

	for _, topic := range active {
		add(topic, "en")
		for _, lang := range []string{"ta", "hi"} {
			add(w.localizeTopic(ctx, topic, lang), lang)
		}
	}
	return queries
}

func (w *Worker) localizeTopic(ctx context.Context, topic, lang string) string {
	if w.translator != nil {
		if out, err := w.translator.Translate(ctx, topic, lang); err == nil && out != "" {
			return out
		}
	}
	if m, ok := staticTopicTranslations[topic]; ok {
		return m[lang]
	}
	return ""
}

func cachedVideoFromHit(h core.Hit, now float64) core.CachedVideo {
	thumbnail := search.Thumbnail(h.ID)
	if h.Image != nil && *h.Image != "" {
		thumbnail = *h.Image
	}
	return core.CachedVideo{
		ID:         h.ID,
		Title:      h.Title,
		URL:        h.URL,
		Thumbnail:  thumbnail,
		Channel:    h.Channel,
		Views:      h.Views,
		Published:  h.Published,
		Timestamp:  now,
		IsApproved: true,
	}
}

func dedupeByID(videos []core.CachedVideo) []core.CachedVideo {
	seen := make(map[string]bool, len(videos))
	var out []core.CachedVideo
	for _, v := range videos {
		if v.ID == "" || seen[v.ID] {
			continue
		}
		seen[v.ID] = true
		out = append(out, v)
	}
	return out
}
