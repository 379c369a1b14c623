package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewReadCmd creates the read command for reader-mode extraction
func NewReadCmd() *cobra.Command {
	var (
		topic  string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "read [url]",
		Short: "Extract an article in reader mode",
		Long: `Fetch a page and extract its main content. Aggregator URLs are resolved
to the publisher first. Pages that yield almost no text are recovered via a
fallback news search; substituted articles are flagged as recovered.

Examples:
  tidings read https://example.com/story.html
  tidings read "https://news.google.com/rss/articles/..." --topic "church verdict"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(cmd.Context(), args[0], topic, asJSON)
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "triggering topic, seeds the recovery search")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit raw JSON")

	return cmd
}

func runRead(ctx context.Context, url, topic string, asJSON bool) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}

	article, err := a.extractor.Extract(ctx, url, topic)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	if asJSON {
		return printJSON(article)
	}

	fmt.Println(article.Title)
	if article.Author != "" || article.Published != "" {
		fmt.Printf("%s %s\n", article.Author, article.Published)
	}
	fmt.Printf("%s\n", article.URL)
	if article.IsRecovered {
		fmt.Println("(substituted via recovery search)")
	}
	fmt.Println()
	fmt.Println(article.Text)
	return nil
}
