package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tidings/internal/core"
)

// NewVideosCmd creates the videos command
func NewVideosCmd() *cobra.Command {
	var (
		query  string
		lang   string
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "videos",
		Short: "Read the cached video feed",
		Long: `Read the topic-scoped video feed. Without a query, trending videos are
listed with pinned-channel rows first, then by view count. With a query, a
live video search runs with pinned-entity relevance sorting.

Examples:
  tidings videos
  tidings videos --query "sunday service live"
  tidings videos --lang ta`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVideos(cmd.Context(), query, lang, limit, asJSON)
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "live video search instead of the trending list")
	cmd.Flags().StringVar(&lang, "lang", "", "localized feed language: en, ta, hi")
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "maximum number of videos")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit raw JSON")

	return cmd
}

func runVideos(ctx context.Context, query, lang string, limit int, asJSON bool) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}

	if query != "" {
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
	}

	var videos []core.CachedVideo
	if lang != "" {
		videos, err = a.videoWorker.GetVideosByLanguage(ctx, lang, limit)
	} else {
		videos, err = a.videoWorker.GetTrending(limit)
	}
	if err != nil {
		return fmt.Errorf("video feed read failed: %w", err)
	}

	if asJSON {
		return printJSON(videos)
	}
	if len(videos) == 0 {
		fmt.Println("No videos cached yet. Run 'tidings serve' to start the feed worker.")
		return nil
	}
	for i, v := range videos {
		fmt.Printf("[%d] %s (%s)\n    %s | %s\n    %s\n", i+1, v.Title, v.Channel, v.Views, v.Published, v.URL)
	}
	return nil
}
