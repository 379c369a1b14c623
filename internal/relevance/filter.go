package relevance

import (
	"net/url"
	"strings"

	"tidings/internal/core"
	"tidings/internal/logger"
)

// DefaultThreshold is the minimum relevance score a hit needs to survive
// filtering.
const DefaultThreshold = 5

// Scoring weights. A core keyword in the title is worth far more than one in
// the snippet; misses subtract.
const (
	titleMatchScore    = 40
	snippetMatchScore  = 15
	missPenalty        = 5
	genericMatchScore  = 10
	domainBonusScore   = 25
	spamPenalty        = 100
	blacklistedScore   = -1
)

// stopWords are dropped during query tokenization.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "of": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "is": true,
	"are": true, "was": true, "were": true, "be": true, "with": true,
	"by": true, "from": true, "about": true, "into": true, "what": true,
	"which": true, "who": true, "how": true, "when": true, "where": true,
	"why": true, "this": true, "that": true, "it": true, "its": true,
}

// genericKeywords are weak context words: they add a little when matched but
// never count as misses.
var genericKeywords = map[string]bool{
	"news": true, "report": true, "reports": true, "updates": true,
	"update": true, "conference": true, "press": true, "media": true,
	"daily": true, "today": true, "latest": true, "live": true,
}

// domainBlacklist holds low-quality aggregators and commerce noise. A
// blacklisted hit scores -1 and is always filtered.
var domainBlacklist = map[string]bool{
	"pinterest.com":   true,
	"quora.com":       true,
	"scribd.com":      true,
	"slideshare.net":  true,
	"aliexpress.com":  true,
	"alibaba.com":     true,
	"amazon.com":      true,
	"amazon.in":       true,
	"flipkart.com":    true,
	"ebay.com":        true,
	"indiamart.com":   true,
	"answers.com":     true,
	"ask.com":         true,
}

// techTerms mark a query as software-related; without them, spamTerms in a
// result indicate crack/keygen spam.
var techTerms = []string{
	"software", "windows", "linux", "android", "app", "download",
	"version", "install", "update", "crack",
}

var spamTerms = []string{
	"crack", "keygen", "serial key", "activation key", "license key",
	"free download full", "torrent", "patch download",
}

// Filter scores hits against a query and drops those below the threshold.
type Filter struct {
	// DomainKeywords is a configurable vocabulary whose matches earn a
	// +25 bonus each. The deployment seeds it with ministry names.
	DomainKeywords []string
}

// NewFilter creates a content filter with the given bonus vocabulary.
func NewFilter(domainKeywords []string) *Filter {
	return &Filter{DomainKeywords: domainKeywords}
}

// Apply scores every hit and returns those at or above the threshold,
// preserving input order. Scores are recorded on the hits.
func (f *Filter) Apply(hits []core.Hit, query string, threshold int) []core.Hit {
	var kept []core.Hit
	for i := range hits {
		score := f.Score(&hits[i], query)
		hits[i].Relevance = score
		if score >= threshold {
			kept = append(kept, hits[i])
		}
	}
	logger.Debug("content filter applied",
		"query", query, "in", len(hits), "out", len(kept), "threshold", threshold)
	return kept
}

// Score computes the integer relevance of one hit. All decisions read from
// title+snippet+url only.
func (f *Filter) Score(hit *core.Hit, query string) int {
	if IsBlacklisted(hit.URL) {
		return blacklistedScore
	}

	title := strings.ToLower(hit.Title)
	snippet := strings.ToLower(hit.Snippet)
	combined := title + " " + snippet + " " + strings.ToLower(hit.URL)

	coreKeywords, generics := SplitKeywords(query)

	score := 0
	misses := 0
	for _, kw := range coreKeywords {
		switch {
		case strings.Contains(title, kw):
			score += titleMatchScore
		case strings.Contains(snippet, kw):
			score += snippetMatchScore
		default:
			misses++
		}
	}
	score -= misses * missPenalty

	for _, kw := range generics {
		if strings.Contains(combined, kw) {
			score += genericMatchScore
		}
	}

	for _, kw := range f.DomainKeywords {
		if kw != "" && strings.Contains(combined, strings.ToLower(kw)) {
			score += domainBonusScore
		}
	}

	if !containsAny(strings.ToLower(query), techTerms) && containsAny(combined, spamTerms) {
		score -= spamPenalty
	}
	return score
}

// SplitKeywords tokenizes a query into core and generic keywords, dropping
// stop words.
func SplitKeywords(query string) (coreKeywords, generics []string) {
	for _, tok := range strings.Fields(strings.ToLower(query)) {
		tok = strings.Trim(tok, `"'().,!?:;`)
		if tok == "" || stopWords[tok] {
			continue
		}
		if genericKeywords[tok] {
			generics = append(generics, tok)
		} else {
			coreKeywords = append(coreKeywords, tok)
		}
	}
	return coreKeywords, generics
}

// IsBlacklisted reports whether a URL's domain is on the block list.
func IsBlacklisted(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return domainBlacklist[host]
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
