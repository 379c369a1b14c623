package trend

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tidings/internal/core"
	"tidings/internal/logger"
	"tidings/internal/search"
)

const (
	miningPool = 5

	perQueryResults    = 15
	registryResults    = 10
	contextSnippetCap  = 300
	defaultHorizonDays = 365 * 2
)

// statisticalIntents expand a topic into queries likely to surface hard
// numbers. Each runs once per scanned year.
var statisticalIntents = []string{
	"%s statistics %d",
	"%s report incidents %d",
	"%s documented cases %d",
	"%s cumulative data %d",
}

// registryQueries target organizations that publish annual incident data;
// they join the scan for India/Christian-related topics.
var registryQueries = []string{
	"United Christian Forum report violence statistics",
	"Evangelical Fellowship of India annual persecution data",
	"International Christian Concern India report statistics",
}

// SeriesPoint is one historical observation, month-resolution.
type SeriesPoint struct {
	Date    string `json:"date"`
	Count   int    `json:"count"`
	Summary string `json:"summary,omitempty"`
}

// ForecastPoint is one projected year with its confidence interval.
type ForecastPoint struct {
	Date       string  `json:"date"`
	Prediction float64 `json:"prediction"`
	Upper      float64 `json:"upper"`
	Lower      float64 `json:"lower"`
}

// Stats summarizes the fitted model.
type Stats struct {
	TrendFactor float64 `json:"trend_factor"`
	Volatility  float64 `json:"volatility"`
	RSquared    float64 `json:"r_squared"`
	Slope       float64 `json:"slope"`
	Topic       string  `json:"topic"`
}

// Result is the full trend analysis payload.
type Result struct {
	Historical []SeriesPoint   `json:"historical"`
	Forecast   []ForecastPoint `json:"forecast"`
	Stats      Stats           `json:"stats"`
	Context    string          `json:"context,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Generator runs the extraction model; satisfied by llm.Client.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Miner builds event time series for a topic by deep-scanning search results
// and extracting numbers with the model.
type Miner struct {
	provider     search.Provider
	generator    Generator
	snapshotPath string
	now          func() time.Time
}

// NewMiner wires a trend miner. snapshotPath may be empty to disable the
// analytics snapshot; generator may be nil (degraded: always NoData).
func NewMiner(provider search.Provider, generator Generator, snapshotPath string) *Miner {
	return &Miner{
		provider:     provider,
		generator:    generator,
		snapshotPath: snapshotPath,
		now:          time.Now,
	}
}

// AnalyzeTrend mines the topic's event history and projects it forward. A
// model output with zero numeric points returns the empty arrays with the
// error field set, wrapped in ErrNoData; no series is ever invented.
func (m *Miner) AnalyzeTrend(ctx context.Context, topic string, horizonDays int) (*Result, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("%w: empty trend topic", core.ErrValidation)
	}
	if horizonDays <= 0 {
		horizonDays = defaultHorizonDays
	}

	hits := m.mine(ctx, topic)
	logger.Info("trend mining gathered sources", "topic", topic, "sources", len(hits))

	contextText := buildContext(hits)
	points := m.extract(ctx, topic, contextText)

	if len(points) == 0 {
		result := &Result{
			Historical: []SeriesPoint{},
			Forecast:   []ForecastPoint{},
			Stats:      Stats{Topic: topic},
			Context:    contextText,
			Error:      "No numerical data found",
		}
		return result, fmt.Errorf("%w: no numerical data for %q", core.ErrNoData, topic)
	}

	result := Forecast(points, topic, horizonDays, m.now().Year())
	result.Context = contextText

	if m.snapshotPath != "" {
		if err := SaveSnapshot(m.snapshotPath, result); err != nil {
			logger.Warn("analytics snapshot write failed", "path", m.snapshotPath, "error", err.Error())
		}
	}
	return result, nil
}

// mine fans the expanded queries out over a bounded pool and dedupes by URL.
func (m *Miner) mine(ctx context.Context, topic string) []core.Hit {
	currentYear := m.now().Year()
	years := []int{currentYear, currentYear - 1, currentYear - 2}

	lower := strings.ToLower(topic)
	region := "wt-wt"
	if strings.Contains(lower, "india") {
		region = "in-en"
	}

	type task struct {
		query string
		limit int
	}
	var tasks []task
	for _, year := range years {
		for _, intent := range statisticalIntents {
			tasks = append(tasks, task{query: fmt.Sprintf(intent, topic, year), limit: perQueryResults})
		}
	}
	if strings.Contains(lower, "india") || strings.Contains(lower, "christian") {
		for _, q := range registryQueries {
			tasks = append(tasks, task{query: q, limit: registryResults})
		}
	}

	var (
		mu   sync.Mutex
		hits []core.Hit
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(miningPool)
	for _, t := range tasks {
		g.Go(func() error {
			found, err := m.provider.Search(gctx, t.query, search.Config{MaxResults: t.limit, Region: region})
			if err != nil {
				logger.Debug("trend mining query failed", "query", t.query, "error", err.Error())
				return nil
			}
			mu.Lock()
			hits = append(hits, found...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]bool, len(hits))
	var unique []core.Hit
	for _, h := range hits {
		key := core.NormalizeURL(h.URL)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, h)
	}
	return unique
}

// buildContext renders the top snippets as "[date] title | snippet" lines.
func buildContext(hits []core.Hit) string {
	lines := make([]string, 0, len(hits))
	for _, h := range hits {
		if len(lines) >= contextSnippetCap {
			break
		}
		date := h.Published
		if date == "" {
			date = "Unknown Date"
		}
		lines = append(lines, fmt.Sprintf("[%s] Title: %s | Snippet: %s", date, h.Title, h.Snippet))
	}
	return strings.Join(lines, "\n")
}

// extract runs the model over the mined context and parses the series.
func (m *Miner) extract(ctx context.Context, topic, contextText string) []SeriesPoint {
	if m.generator == nil || contextText == "" {
		return nil
	}

	prompt := extractionPrompt(topic, contextText, m.now().Year())
	raw, err := m.generator.Generate(ctx, prompt)
	if err != nil {
		logger.Warn("trend extraction failed", "topic", topic, "error", err.Error())
		return nil
	}
	return ParseSeries(raw)
}

func extractionPrompt(topic, contextText string, currentYear int) string {
	var b strings.Builder
	b.WriteString("You are a data extraction engine specialized in statistical data.\n")
	fmt.Fprintf(&b, "Target Topic: %s\n\nRaw Search Snippets:\n%s\n\n", topic, contextText)
	b.WriteString("Task: extract EVERY number that relates to incidents, attacks, cases or events.\n")
	fmt.Fprintf(&b, "If no year is mentioned, assume the current year (%d). ", currentYear)
	b.WriteString("Normalize dates to YYYY or YYYY-MM format.\n\n")
	b.WriteString("Return ONLY a valid JSON array of {\"date\", \"count\", \"summary\"} objects, no prose.\n")
	b.WriteString("Start your response with [ and end with ]. If you find no numbers at all, return: []\n")
	return b.String()
}
