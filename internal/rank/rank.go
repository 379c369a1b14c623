package rank

import (
	"context"
	"math"
	"net/url"
	"sort"
	"strings"

	"tidings/internal/core"
	"tidings/internal/logger"
)

// Composite weights. Lexical dominance prevents topical drift; the penalty
// alone can eject a result regardless of other signals.
const (
	weightBM25    = 0.45
	weightVector  = 0.30
	weightQuality = 0.15
	weightPenalty = 0.50
)

// Embedder produces sentence embeddings for the optional vector term. When
// nil, the ranker operates in keyword-only mode with vector := 0.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Ranker orders hits by the hybrid score.
type Ranker struct {
	embedder Embedder
}

// NewRanker creates a Ranker. embedder may be nil.
func NewRanker(embedder Embedder) *Ranker {
	return &Ranker{embedder: embedder}
}

// Rank scores and sorts hits descending by hybrid score. The sort is stable:
// ties keep their insertion order. The input slice is returned re-ordered
// with all score fields populated.
func (r *Ranker) Rank(ctx context.Context, hits []core.Hit, query string) []core.Hit {
	if len(hits) == 0 {
		return hits
	}

	queryTokens := tokenize(query)

	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Title + " " + h.Snippet
	}

	bm25 := make([]float64, len(hits))
	corpus := newBM25Corpus(texts)
	for i := range hits {
		bm25[i] = corpus.score(i, queryTokens)
	}
	minMaxNormalize(bm25)

	vector := r.vectorScores(ctx, texts, query)
	minMaxNormalize(vector)

	for i := range hits {
		hits[i].BM25 = bm25[i]
		hits[i].Vector = vector[i]
		hits[i].Quality = qualityScore(&hits[i])
		hits[i].Penalty = penaltyScore(&hits[i])
		hits[i].Hybrid = weightBM25*hits[i].BM25 +
			weightVector*hits[i].Vector +
			weightQuality*hits[i].Quality -
			weightPenalty*hits[i].Penalty
		hits[i].DebugScore = hits[i].Hybrid
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Hybrid > hits[b].Hybrid
	})
	return hits
}

// vectorScores embeds the documents and query and returns cosine
// similarities. Any embedder failure degrades to keyword-only mode.
func (r *Ranker) vectorScores(ctx context.Context, texts []string, query string) []float64 {
	scores := make([]float64, len(texts))
	if r.embedder == nil {
		return scores
	}

	embeddings, err := r.embedder.Embed(ctx, append([]string{query}, texts...))
	if err != nil || len(embeddings) != len(texts)+1 {
		logger.Warn("embedder unavailable, ranking in keyword-only mode")
		return make([]float64, len(texts))
	}

	queryVec := embeddings[0]
	for i, vec := range embeddings[1:] {
		scores[i] = cosine(queryVec, vec)
	}
	return scores
}

// qualityScore rewards authoritative hosts and substantive snippets.
func qualityScore(hit *core.Hit) float64 {
	score := 0.0
	if u, err := url.Parse(hit.URL); err == nil {
		host := strings.ToLower(u.Hostname())
		switch {
		case strings.HasSuffix(host, ".edu"):
			score += 0.5
		case strings.HasSuffix(host, ".org"):
			score += 0.3
		}
	}
	if len(hit.Snippet) > 50 {
		score += 0.2
	}
	return score
}

// penaltyScore flags stale archive pages.
func penaltyScore(hit *core.Hit) float64 {
	if strings.Contains(strings.ToLower(hit.Title), "archives") {
		return 1.0
	}
	return 0
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
