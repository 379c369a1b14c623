package rank

import (
	"math"
	"strings"
)

// Okapi BM25 parameters, standard defaults.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// bm25Corpus indexes candidate documents for scoring against one query.
type bm25Corpus struct {
	docs      [][]string
	docFreq   map[string]int
	avgDocLen float64
}

func newBM25Corpus(texts []string) *bm25Corpus {
	c := &bm25Corpus{docFreq: make(map[string]int)}
	totalLen := 0
	for _, text := range texts {
		tokens := tokenize(text)
		c.docs = append(c.docs, tokens)
		totalLen += len(tokens)

		seen := make(map[string]bool)
		for _, tok := range tokens {
			if !seen[tok] {
				seen[tok] = true
				c.docFreq[tok]++
			}
		}
	}
	if len(texts) > 0 {
		c.avgDocLen = float64(totalLen) / float64(len(texts))
	}
	return c
}

// score computes the BM25 score of document i against the query tokens.
func (c *bm25Corpus) score(i int, queryTokens []string) float64 {
	doc := c.docs[i]
	if len(doc) == 0 || c.avgDocLen == 0 {
		return 0
	}

	termFreq := make(map[string]int, len(doc))
	for _, tok := range doc {
		termFreq[tok]++
	}

	n := float64(len(c.docs))
	docLen := float64(len(doc))

	var total float64
	for _, q := range queryTokens {
		tf := float64(termFreq[q])
		if tf == 0 {
			continue
		}
		df := float64(c.docFreq[q])
		idf := math.Log((n-df+0.5)/(df+0.5) + 1)
		total += idf * (tf * (bm25K1 + 1)) / (tf + bm25K1*(1-bm25B+bm25B*docLen/c.avgDocLen))
	}
	return total
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	return fields
}

// minMaxNormalize rescales values to [0,1] in place. A constant slice maps
// to all zeros.
func minMaxNormalize(values []float64) {
	if len(values) == 0 {
		return
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	span := hi - lo
	if span == 0 {
		for i := range values {
			values[i] = 0
		}
		return
	}
	for i := range values {
		values[i] = (values[i] - lo) / span
	}
}
