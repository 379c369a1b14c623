package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tidings/internal/core"
)

// NewTrendCmd creates the trend command
func NewTrendCmd() *cobra.Command {
	var (
		horizonDays int
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "trend [topic]",
		Short: "Mine an event time series and project it forward",
		Long: `Deep-scan search results for numeric event data on a topic, extract a
time series with the model, and fit a per-year linear projection with
confidence intervals. When no numeric data exists the command reports
that explicitly; no series is ever invented.

Examples:
  tidings trend "christian persecution india"
  tidings trend "forest fire incidents" --horizon 1095`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrend(cmd.Context(), strings.Join(args, " "), horizonDays, asJSON)
		},
	}

	cmd.Flags().IntVar(&horizonDays, "horizon", 730, "forecast horizon in days")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit raw JSON")

	return cmd
}

func runTrend(ctx context.Context, topic string, horizonDays int, asJSON bool) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}
	miner, err := a.trendMiner()
	if err != nil {
		return err
	}

	result, err := miner.AnalyzeTrend(ctx, topic, horizonDays)
	if err != nil {
		if errors.Is(err, core.ErrNoData) && result != nil {
			if asJSON {
				return printJSON(result)
			}
			fmt.Printf("No numerical data found for %q.\n", topic)
			return nil
		}
		return fmt.Errorf("trend analysis failed: %w", err)
	}

	if asJSON {
		return printJSON(result)
	}

	fmt.Printf("Historical (%s):\n", topic)
	for _, p := range result.Historical {
		fmt.Printf("  %s  %d\n", p.Date, p.Count)
	}
	fmt.Println("\nForecast:")
	for _, f := range result.Forecast {
		fmt.Printf("  %s  %.0f  (%.0f - %.0f)\n", f.Date, f.Prediction, f.Lower, f.Upper)
	}
	fmt.Printf("\ntrend factor %.2f | volatility %.2f | r² %.2f | slope %.2f\n",
		result.Stats.TrendFactor, result.Stats.Volatility, result.Stats.RSquared, result.Stats.Slope)
	return nil
}
