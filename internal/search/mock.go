package search

import (
	"context"
	"fmt"
	"sync"

	"tidings/internal/core"
)

// MockProvider implements Provider for testing purposes
type MockProvider struct {
	name string
	hits []core.Hit
	err  error

	mu sync.Mutex
	// Queries records every query the mock has seen. Callers doing
	// concurrent fan-out should read it via RecordedQueries after the
	// fan-out completes.
	Queries []string
}

// NewMockProvider creates a new mock search provider
func NewMockProvider() *MockProvider {
	return &MockProvider{
		name: "Mock",
		hits: []core.Hit{
			{
				ID:         core.HitID("https://example.com/article1"),
				URL:        "https://example.com/article1",
				Title:      "Example Article 1",
				Snippet:    "This is a mock search result for testing purposes.",
				SourceType: core.SourceWeb,
				Engine:     "Mock",
			},
			{
				ID:         core.HitID("https://test.org/article2"),
				URL:        "https://test.org/article2",
				Title:      "Test Article 2",
				Snippet:    "Another mock search result with different content.",
				SourceType: core.SourceWeb,
				Engine:     "Mock",
			},
		},
	}
}

// GetName returns the name of this provider
func (m *MockProvider) GetName() string {
	return m.name
}

// Search returns the configured hits or error.
func (m *MockProvider) Search(ctx context.Context, query string, config Config) ([]core.Hit, error) {
	m.mu.Lock()
	m.Queries = append(m.Queries, query)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}

	maxResults := config.MaxResults
	if maxResults <= 0 || maxResults > len(m.hits) {
		maxResults = len(m.hits)
	}

	hits := make([]core.Hit, maxResults)
	copy(hits, m.hits[:maxResults])
	return hits, nil
}

// RecordedQueries returns a copy of every query seen so far.
func (m *MockProvider) RecordedQueries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Queries...)
}

// SetHits allows customization of mock results for testing
func (m *MockProvider) SetHits(hits []core.Hit) {
	m.hits = hits
}

// SetError makes every Search call fail with err.
func (m *MockProvider) SetError(err error) {
	m.err = err
}

// SetName allows customization of provider name for testing
func (m *MockProvider) SetName(name string) {
	m.name = name
}

// FixedHit builds a minimal hit for tests.
func FixedHit(title, rawURL string) core.Hit {
	return core.Hit{
		ID:         core.HitID(rawURL),
		Title:      title,
		URL:        rawURL,
		Snippet:    fmt.Sprintf("snippet for %s", title),
		SourceType: core.SourceWeb,
		Engine:     "Mock",
	}
}
