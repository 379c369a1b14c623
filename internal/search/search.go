package search

import (
	"context"
	"regexp"

	"tidings/internal/core"
)

// Provider defines the unified interface for search providers.
type Provider interface {
	// Search performs a search with configuration
	Search(ctx context.Context, query string, config Config) ([]core.Hit, error)

	// GetName returns the name of the search provider
	GetName() string
}

// Config holds configuration for search requests
type Config struct {
	MaxResults int    // Maximum number of results to return
	Region     string // Region code (wt-wt, in-en, us-en, uk-en, au-en)
	TimeFilter string // Recency filter: d, w, m, y; empty means no filter
	Language   string // Language hint (en, ta, hi); disables the Latin filter
	LatinOnly  bool   // Drop results whose titles carry non-Latin script
}

// Regions supported across all providers. Anything else falls back to global.
var Regions = map[string]bool{
	"wt-wt": true,
	"in-en": true,
	"us-en": true,
	"uk-en": true,
	"au-en": true,
}

// RegionOrGlobal returns the region if it is supported, otherwise global.
func RegionOrGlobal(region string) string {
	if Regions[region] {
		return region
	}
	return "wt-wt"
}

// nonLatinPattern matches CJK and Arabic script.
var nonLatinPattern = regexp.MustCompile(`[\x{4e00}-\x{9fff}\x{0600}-\x{06ff}]`)

// HasNonLatin reports whether s contains non-Latin script characters.
func HasNonLatin(s string) bool {
	return nonLatinPattern.MatchString(s)
}

// ProviderType represents the type of search provider
type ProviderType string

const (
	ProviderTypeDuckDuckGo ProviderType = "duckduckgo"
	ProviderTypeSerpAPI    ProviderType = "serpapi"
	ProviderTypeNewsRSS    ProviderType = "newsrss"
	ProviderTypeVideo      ProviderType = "video"
	ProviderTypeMock       ProviderType = "mock"
)

// ProviderFactory creates search providers based on type and configuration
type ProviderFactory struct{}

// NewProviderFactory creates a new provider factory
func NewProviderFactory() *ProviderFactory {
	return &ProviderFactory{}
}

// CreateProvider creates a search provider of the specified type
func (f *ProviderFactory) CreateProvider(providerType ProviderType, config map[string]string) (Provider, error) {
	switch providerType {
	case ProviderTypeDuckDuckGo:
		return NewDuckDuckGoProvider(), nil
	case ProviderTypeSerpAPI:
		apiKey, exists := config["api_key"]
		if !exists || apiKey == "" {
			return nil, ErrMissingAPIKey
		}
		return NewSerpAPIProvider(apiKey), nil
	case ProviderTypeNewsRSS:
		return NewNewsRSSProvider(), nil
	case ProviderTypeVideo:
		return NewVideoProvider(), nil
	case ProviderTypeMock:
		return NewMockProvider(), nil
	default:
		return nil, ErrUnsupportedProvider
	}
}

// GetAvailableProviders returns a list of available provider types
func (f *ProviderFactory) GetAvailableProviders() []ProviderType {
	return []ProviderType{
		ProviderTypeDuckDuckGo,
		ProviderTypeSerpAPI,
		ProviderTypeNewsRSS,
		ProviderTypeVideo,
		ProviderTypeMock,
	}
}
