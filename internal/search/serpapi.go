package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"tidings/internal/core"
	"tidings/internal/logger"
	"tidings/internal/safeurl"
)

// serpAPIPageCeiling is the vendor's maximum page size.
const serpAPIPageCeiling = 100

// SerpAPIProvider implements Provider using SerpAPI, the paid engine used
// when a key is configured.
type SerpAPIProvider struct {
	apiKey    string
	client    *http.Client
	rateLimit time.Duration

	// mu guards lastCall; one provider instance may serve concurrent
	// fan-out goroutines.
	mu       sync.Mutex
	lastCall time.Time
}

// NewSerpAPIProvider creates a new SerpAPI search provider
func NewSerpAPIProvider(apiKey string) *SerpAPIProvider {
	return &SerpAPIProvider{
		apiKey: apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		rateLimit: 1 * time.Second,
	}
}

// GetName returns the name of this provider
func (s *SerpAPIProvider) GetName() string {
	return "SerpAPI"
}

type serpAPIResponse struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
		Date    string `json:"date"`
	} `json:"organic_results"`
}

// waitTurn blocks until the rate-limit window has elapsed. Concurrent
// callers are serialized so each pays the full window.
func (s *SerpAPIProvider) waitTurn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if elapsed := time.Since(s.lastCall); elapsed < s.rateLimit {
		time.Sleep(s.rateLimit - elapsed)
	}
	s.lastCall = time.Now()
}

// Search performs a search using SerpAPI. Vendor-side errors surface as an
// empty result plus a log line rather than failing the request.
func (s *SerpAPIProvider) Search(ctx context.Context, query string, config Config) ([]core.Hit, error) {
	s.waitTurn()

	num := config.MaxResults
	if num <= 0 || num > serpAPIPageCeiling {
		num = serpAPIPageCeiling
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("engine", "google")
	params.Set("api_key", s.apiKey)
	params.Set("num", strconv.Itoa(num))
	if config.Region == "in-en" {
		params.Set("gl", "in")
		params.Set("hl", "en")
	}
	switch config.TimeFilter {
	case "d":
		params.Set("tbs", "qdr:d")
	case "w":
		params.Set("tbs", "qdr:w")
	case "m":
		params.Set("tbs", "qdr:m")
	case "y":
		params.Set("tbs", "qdr:y")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://serpapi.com/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var payload serpAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode SerpAPI response: %w", err)
	}
	if payload.Error != "" {
		logger.Warn("SerpAPI returned vendor error", "query", query, "vendor_error", payload.Error)
		return []core.Hit{}, nil
	}

	var hits []core.Hit
	for _, r := range payload.OrganicResults {
		if len(hits) >= num {
			break
		}
		if r.Link == "" || r.Title == "" || !safeurl.Safe(r.Link) {
			continue
		}
		if config.LatinOnly && config.Language == "" && HasNonLatin(r.Title) {
			continue
		}
		hits = append(hits, core.Hit{
			ID:         core.HitID(r.Link),
			Title:      r.Title,
			URL:        r.Link,
			Snippet:    r.Snippet,
			SourceType: core.SourceWeb,
			Engine:     s.GetName(),
			Published:  r.Date,
		})
	}

	logger.Info("SerpAPI search completed", "query", query, "results_found", len(hits))
	return hits, nil
}
