package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tidings/internal/orchestrator"
)

// NewSearchCmd creates the search command
func NewSearchCmd() *cobra.Command {
	var (
		searchType string
		intents    []string
		limit      int
		timeFilter string
		region     string
		lang       string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "search [topic]",
		Short: "Run a topic-scoped discovery search",
		Long: `Fan a query out over the configured source adapters, then dedupe,
filter, rank and geo-tier the merged result set.

Search types:
  web    - general web search (default)
  news   - cached news feed search with live aggregator warm-up
  video  - video search with pinned-entity relevance sort

Examples:
  tidings search "religious freedom bill" --limit 20
  tidings search "church attack verdict" --type news --lang ta
  tidings search "sunday service live" --type video
  tidings search "renewable energy" --intents news,review --time w`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), query, searchType, intents, limit, timeFilter, region, lang, asJSON)
		},
	}

	cmd.Flags().StringVarP(&searchType, "type", "t", "web", "search type: web, news, video")
	cmd.Flags().StringSliceVar(&intents, "intents", []string{"general"}, "query expansion intents")
	cmd.Flags().IntVarP(&limit, "limit", "l", 50, "maximum number of results")
	cmd.Flags().StringVar(&timeFilter, "time", "", "recency filter: d, w, m, y")
	cmd.Flags().StringVar(&region, "region", "", "engine region (e.g. in-en, wt-wt)")
	cmd.Flags().StringVar(&lang, "lang", "en", "result language for news/video search")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit raw JSON")

	return cmd
}

func runSearch(ctx context.Context, query, searchType string, intents []string, limit int, timeFilter, region, lang string, asJSON bool) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}

	switch searchType {
	case "news":
		articles, err := a.newsWorker.Search(ctx, query, limit, lang)
		if err != nil {
			return fmt.Errorf("news search failed: %w", err)
		}
		if asJSON {
			return printJSON(articles)
		}
		for i, art := range articles {
			fmt.Printf("[%d] %s\n    %s\n", i+1, art.Title, art.URL)
		}
		return nil

	case "video":
		hits, err := a.videoWorker.Search(ctx, query, limit, lang)
		if err != nil {
			return fmt.Errorf("video search failed: %w", err)
		}
		if asJSON {
			return printJSON(hits)
		}
		for i, hit := range hits {
			fmt.Printf("[%d] %s (%s)\n    %s\n", i+1, hit.Title, hit.Channel, hit.URL)
		}
		return nil

	default:
		req := orchestrator.Request{
			Topic:      query,
			Intents:    intents,
			Limit:      limit,
			TimeFilter: timeFilter,
			Region:     region,
			SerpAPIKey: a.cfg.Search.Providers.SerpAPI.APIKey,
		}
		hits, srcErrs := a.orchestrator.Run(ctx, req)
		if asJSON {
			return printJSON(map[string]any{
				"results": hits,
				"errors":  srcErrs,
				"count":   len(hits),
			})
		}
		for i, hit := range hits {
			fmt.Printf("[%d] %s\n    %s\n", i+1, hit.Title, hit.URL)
			if hit.GeoTier != "" {
				fmt.Printf("    tier: %s  score: %.1f\n", hit.GeoTier, hit.DebugScore)
			}
		}
		for _, se := range srcErrs {
			fmt.Fprintf(os.Stderr, "source error (%s): %s\n", se.Intent, se.Message)
		}
		return nil
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
