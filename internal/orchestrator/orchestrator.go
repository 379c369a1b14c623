package orchestrator

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"tidings/internal/core"
	"tidings/internal/enrich"
	"tidings/internal/geo"
	"tidings/internal/logger"
	"tidings/internal/rank"
	"tidings/internal/relevance"
	"tidings/internal/search"
	"tidings/internal/topics"
)

const (
	// maxQueryLength caps a sanitized query.
	maxQueryLength = 500
	// poolSize bounds the fan-out workers per request.
	poolSize = 10
	// lowResultFloor triggers the secondary broad discovery round.
	lowResultFloor = 10
)

// hostileChars are stripped from user queries before they reach any engine.
var hostileChars = regexp.MustCompile("[<>{}\\\\|^~\\[\\]`]")

var controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)

// Request is one discovery run.
type Request struct {
	Topic      string
	Intents    []string
	Limit      int
	TimeFilter string // d, w, m, y
	Region     string
	SerpAPIKey string // non-empty prefers the paid engine for this request
}

// Orchestrator fans a query out over source adapters, then dedupes, filters,
// ranks and geo-tiers the merged set.
type Orchestrator struct {
	topics   *topics.Manager
	filter   *relevance.Filter
	ranker   *rank.Ranker
	enricher *enrich.Enricher
	factory  *search.ProviderFactory

	// free is the engine used when no paid key is supplied.
	free search.Provider
}

// New wires an Orchestrator from its collaborators. free may be nil, in
// which case the DuckDuckGo provider is constructed.
func New(tm *topics.Manager, filter *relevance.Filter, ranker *rank.Ranker, enricher *enrich.Enricher, free search.Provider) *Orchestrator {
	if free == nil {
		free = search.NewDuckDuckGoProvider()
	}
	return &Orchestrator{
		topics:   tm,
		filter:   filter,
		ranker:   ranker,
		enricher: enricher,
		factory:  search.NewProviderFactory(),
		free:     free,
	}
}

// Sanitize trims, strips control and shell-hostile characters and caps the
// length on a rune boundary. The empty string means the query was invalid.
func Sanitize(query string) string {
	query = strings.TrimSpace(query)
	query = controlChars.ReplaceAllString(query, "")
	query = hostileChars.ReplaceAllString(query, "")
	query = strings.TrimSpace(query)
	return core.Truncate(query, maxQueryLength)
}

// Run executes the discovery pipeline. Per-source failures accumulate in the
// returned error list; they never abort the request.
func (o *Orchestrator) Run(ctx context.Context, req Request) ([]core.Hit, []core.SourceError) {
	query := Sanitize(req.Topic)
	if query == "" {
		return nil, []core.SourceError{{Intent: "validate", Message: "query is empty or invalid"}}
	}

	query = o.applyTopicConstraint(query)
	engine := o.chooseEngine(req.SerpAPIKey)

	queries := ExpandQuery(query, req.Intents)
	hits, errs := o.fanOut(ctx, engine, queries, req)

	hits = Dedupe(hits)
	hits = o.filter.Apply(hits, query, relevance.DefaultThreshold)
	hits = o.ranker.Rank(ctx, hits, query)

	if len(hits) < lowResultFloor {
		hits = o.deepDiscovery(ctx, engine, query, req, hits)
	}

	if req.Limit > 0 && len(hits) > req.Limit {
		hits = hits[:req.Limit]
	}
	if o.enricher != nil {
		o.enricher.EnrichTop(ctx, hits)
	}
	hits = geo.Sort(hits)

	logger.Info("discovery run completed",
		"query", query, "engine", engine.GetName(), "hits", len(hits), "errors", len(errs))
	return hits, errs
}

// applyTopicConstraint appends an AND clause of active topics when the query
// mentions none of them.
func (o *Orchestrator) applyTopicConstraint(query string) string {
	if o.topics == nil {
		return query
	}
	active := o.topics.ActiveKeywords()
	if len(active) == 0 {
		return query
	}
	lower := strings.ToLower(query)
	for _, topic := range active {
		if strings.Contains(lower, strings.ToLower(topic)) {
			return query
		}
	}
	return query + ` AND (` + o.topics.ActiveTopicQuery() + `)`
}

// chooseEngine prefers the paid provider when a key is passed. Selection is
// per-request.
func (o *Orchestrator) chooseEngine(serpAPIKey string) search.Provider {
	if serpAPIKey != "" {
		paid, err := o.factory.CreateProvider(search.ProviderTypeSerpAPI, map[string]string{"api_key": serpAPIKey})
		if err == nil {
			return paid
		}
		logger.Warn("paid engine unavailable, using free engine", "error", err.Error())
	}
	return o.free
}

// fanOut runs one task per expanded query on a bounded pool.
func (o *Orchestrator) fanOut(ctx context.Context, engine search.Provider, queries []string, req Request) ([]core.Hit, []core.SourceError) {
	var (
		mu   sync.Mutex
		hits []core.Hit
		errs []core.SourceError
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(poolSize)

	for i, q := range queries {
		g.Go(func() error {
			cfg := search.Config{
				MaxResults: perQueryLimit(req.Limit, len(queries)),
				Region:     req.Region,
				TimeFilter: req.TimeFilter,
				LatinOnly:  true,
			}
			found, err := engine.Search(ctx, q, cfg)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, core.SourceError{Intent: IntentFor(req.Intents, i), Message: err.Error()})
				return nil
			}
			hits = append(hits, found...)
			return nil
		})
	}
	_ = g.Wait()
	return hits, errs
}

func perQueryLimit(limit, queryCount int) int {
	if limit <= 0 {
		limit = 50
	}
	if queryCount <= 0 {
		return limit
	}
	per := limit/queryCount + 1
	if per < 5 {
		per = 5
	}
	return per
}

// deepDiscovery is the "low results" rule: a single broader secondary call
// merged behind the existing hits.
func (o *Orchestrator) deepDiscovery(ctx context.Context, engine search.Provider, query string, req Request, hits []core.Hit) []core.Hit {
	logger.Debug("low results, running deep discovery", "have", len(hits))
	cfg := search.Config{
		MaxResults: 50,
		Region:     "wt-wt",
		LatinOnly:  true,
	}
	extra, err := engine.Search(ctx, query, cfg)
	if err != nil {
		return hits
	}
	merged := Dedupe(append(hits, extra...))
	return o.ranker.Rank(ctx, o.filter.Apply(merged, query, relevance.DefaultThreshold), query)
}

// Dedupe removes duplicates in two passes: normalized-URL identity, then
// exact lowercase title identity. Short "archives" titles are dropped
// outright. Order is preserved; the first occurrence wins. Dedupe is
// idempotent.
func Dedupe(hits []core.Hit) []core.Hit {
	seenURL := make(map[string]bool, len(hits))
	seenTitle := make(map[string]bool, len(hits))
	var out []core.Hit
	for _, h := range hits {
		key := core.NormalizeURL(h.URL)
		if seenURL[key] {
			continue
		}
		title := strings.ToLower(strings.TrimSpace(h.Title))
		if title == "" || seenTitle[title] {
			continue
		}
		if len(h.Title) < 20 && strings.Contains(title, "archives") {
			continue
		}
		seenURL[key] = true
		seenTitle[title] = true
		out = append(out, h)
	}
	return out
}
