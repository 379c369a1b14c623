package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tidings/internal/core"
)

// NewNewsCmd creates the news command
func NewNewsCmd() *cobra.Command {
	var (
		query  string
		lang   string
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "news",
		Short: "Read the cached news feed",
		Long: `Read the topic-scoped news feed. Pinned-entity articles always lead,
followed by geo-tiered rows (local, national, global), newest first.

An empty cache triggers one synchronous fetch cycle before reading.

Examples:
  tidings news
  tidings news --lang ta
  tidings news --query "church attack verdict"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNews(cmd.Context(), query, lang, limit, asJSON)
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "search the feed instead of listing it")
	cmd.Flags().StringVar(&lang, "lang", "", "localized feed language: en, ta, hi")
	cmd.Flags().IntVarP(&limit, "limit", "l", 50, "maximum number of articles")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit raw JSON")

	return cmd
}

func runNews(ctx context.Context, query, lang string, limit int, asJSON bool) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}

	var articles []core.CachedArticle
	switch {
	case query != "":
		articles, err = a.newsWorker.Search(ctx, query, limit, lang)
	case lang != "":
		articles, err = a.newsWorker.GetByLanguage(ctx, lang, limit)
	default:
		articles, err = a.newsWorker.GetNews(ctx, limit)
	}
	if err != nil {
		return fmt.Errorf("news feed read failed: %w", err)
	}

	if asJSON {
		return printJSON(articles)
	}
	if len(articles) == 0 {
		fmt.Println("No articles cached yet.")
		return nil
	}
	for i, art := range articles {
		fmt.Printf("[%d] %s\n    %s | %s\n    %s\n", i+1, art.Title, art.Source, art.Published, art.URL)
	}
	return nil
}
