package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"tidings/internal/logger"
)

// NewServeCmd creates the serve command that runs the feed workers
func NewServeCmd() *cobra.Command {
	var (
		newsOnly   bool
		videosOnly bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the background feed workers",
		Long: `Run the news and video feed workers until interrupted. Each worker
seeds its store on first start, then refreshes on its configured
interval. Shutdown waits for the cycle in flight to finish.

Examples:
  tidings serve
  tidings serve --news-only`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), newsOnly, videosOnly)
		},
	}

	cmd.Flags().BoolVar(&newsOnly, "news-only", false, "run only the news feed worker")
	cmd.Flags().BoolVar(&videosOnly, "videos-only", false, "run only the video feed worker")

	return cmd
}

func runServe(ctx context.Context, newsOnly, videosOnly bool) error {
	if newsOnly && videosOnly {
		return fmt.Errorf("--news-only and --videos-only are mutually exclusive")
	}

	a, err := newApp()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if !videosOnly {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.newsWorker.Run(ctx)
		}()
		logger.Info("news feed worker started", "interval", a.cfg.Feeds.RefreshInterval)
	}
	if !newsOnly {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.videoWorker.Run(ctx)
		}()
		logger.Info("video feed worker started", "interval", a.cfg.Videos.RefreshInterval)
	}

	fmt.Println("Feed workers running. Press Ctrl+C to stop.")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown initiated", "signal", sig.String())
	case <-ctx.Done():
	}

	cancel()
	wg.Wait()
	logger.Info("feed workers stopped")
	return nil
}
