package videofeed

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"tidings/internal/core"
	"tidings/internal/logger"
	"tidings/internal/search"
)

const (
	pinnedScore      = 1000
	exactPhraseScore = 50
	tokenScore       = 10
	channelScore     = 20
)

// topicKeywords is the loose vocabulary used by the strict feed filter for
// topics whose names alone are too narrow.
var topicKeywords = map[string][]string{
	"Christianity": {
		"church", "jesus", "christ", "faith", "bible", "prayer", "gospel",
		"pastor", "bishop", "vatican", "catholic", "protestant", "ministry",
		"worship",
	},
	"Global News": {"news", "world", "international", "report"},
}

// Search runs a live provider search and orders the hits by relevance: pinned
// entities dominate, then exact phrase, per-token and channel matches.
func (w *Worker) Search(ctx context.Context, query string, limit int, lang string) ([]core.Hit, error) {
	if limit <= 0 {
		limit = 20
	}
	hits, err := w.source.Search(ctx, query, search.Config{MaxResults: limit, Language: lang})
	if err != nil {
		return nil, err
	}

	scores := make(map[string]int, len(hits))
	for _, h := range hits {
		scores[h.ID] = relevanceScore(h, query)
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return scores[hits[i].ID] > scores[hits[j].ID]
	})
	return hits, nil
}

// relevanceScore is the video search ordering. Pinned tokens override
// everything else.
func relevanceScore(h core.Hit, query string) int {
	title := strings.ToLower(h.Title)
	channel := strings.ToLower(h.Channel)
	if core.IsPinned(title + " " + channel) {
		return pinnedScore
	}

	q := strings.ToLower(strings.TrimSpace(query))
	score := 0
	if q != "" && strings.Contains(title, q) {
		score += exactPhraseScore
	}
	for _, token := range strings.Fields(q) {
		if strings.Contains(title, token) {
			score += tokenScore
		}
		if strings.Contains(channel, token) {
			score += channelScore
		}
	}
	return score
}

// GetTrending reads recent approved rows and reorders by parsed view count,
// pinned rows first.
func (w *Worker) GetTrending(limit int) ([]core.CachedVideo, error) {
	if limit <= 0 {
		limit = 50
	}
	videos, err := w.store.List(limit)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(videos, func(i, j int) bool {
		pi, pj := videoPinned(videos[i]), videoPinned(videos[j])
		if pi != pj {
			return pi
		}
		return parseViews(videos[i].Views) > parseViews(videos[j].Views)
	})
	return videos, nil
}

// GetVideosByLanguage serves the strict topic feed: a live localized topic
// search first, the filtered store as fallback. Pinned rows always survive
// the filter and lead the result.
func (w *Worker) GetVideosByLanguage(ctx context.Context, lang string, limit int) ([]core.CachedVideo, error) {
	if limit <= 0 {
		limit = 20
	}
	active := w.topics.ActiveKeywords()

	if len(active) == 0 {
		return w.store.List(limit)
	}

	if lang == "" {
		lang = "en"
	}
	var videos []core.CachedVideo
	now := float64(0)
	for _, q := range w.topicQueries(ctx, active) {
		if q.lang != lang {
			continue
		}
		hits, err := w.source.Search(ctx, q.text, search.Config{MaxResults: limit, Language: q.lang})
		if err != nil {
			logger.Debug("localized topic search failed", "query", q.text, "error", err.Error())
			continue
		}
		for _, h := range hits {
			videos = append(videos, cachedVideoFromHit(h, now))
		}
	}

	if len(videos) == 0 {
		stored, err := w.store.List(limit * 5)
		if err != nil {
			return nil, err
		}
		videos = filterByTopics(stored, active)
	}

	videos = dedupeByID(videos)
	sort.SliceStable(videos, func(i, j int) bool {
		return videoPinned(videos[i]) && !videoPinned(videos[j])
	})
	if len(videos) > limit {
		videos = videos[:limit]
	}
	return videos, nil
}

// filterByTopics keeps rows matching any active topic name or its loose
// vocabulary; pinned rows pass unconditionally.
func filterByTopics(videos []core.CachedVideo, active []string) []core.CachedVideo {
	var out []core.CachedVideo
	for _, v := range videos {
		combined := strings.ToLower(v.Title + " " + v.Channel)
		if core.IsPinned(combined) {
			out = append(out, v)
			continue
		}
		for _, topic := range active {
			if strings.Contains(combined, strings.ToLower(topic)) {
				out = append(out, v)
				break
			}
			if matchesAny(combined, topicKeywords[topic]) {
				out = append(out, v)
				break
			}
		}
	}
	return out
}

func matchesAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func videoPinned(v core.CachedVideo) bool {
	return core.IsPinned(v.Title + " " + v.Channel)
}

// parseViews turns a display view count like "1.2M views" or "12,345 views"
// into a comparable number. Unparseable input counts as zero.
func parseViews(views string) float64 {
	s := strings.ToLower(strings.TrimSpace(views))
	s = strings.TrimSuffix(s, " views")
	s = strings.TrimSuffix(s, " view")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || s == "no" {
		return 0
	}

	multiplier := 1.0
	switch {
	case strings.HasSuffix(s, "b"):
		multiplier = 1e9
		s = strings.TrimSuffix(s, "b")
	case strings.HasSuffix(s, "m"):
		multiplier = 1e6
		s = strings.TrimSuffix(s, "m")
	case strings.HasSuffix(s, "k"):
		multiplier = 1e3
		s = strings.TrimSuffix(s, "k")
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return n * multiplier
}
