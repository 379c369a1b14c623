package trend

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"tidings/internal/core"
	"tidings/internal/search"
)

func TestParseSeries(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int
	}{
		{
			name: "clean array",
			in:   `[{"date": "2024", "count": 731, "summary": "731 attacks"}, {"date": "2023-11", "count": 599}]`,
			want: 2,
		},
		{
			name: "fenced array",
			in:   "```json\n[{\"date\": \"2024\", \"count\": 100}]\n```",
			want: 1,
		},
		{
			name: "prose around array",
			in:   `Here is the data: [{"date": "2024", "count": 42}] Hope that helps!`,
			want: 1,
		},
		{
			name: "truncated array",
			in:   `[{"date": "2024", "count": 10}, {"date": "2023", "count": 20}, {"date": "202`,
			want: 2,
		},
		{
			name: "single object",
			in:   `{"date": "2024", "count": 5, "summary": "five"}`,
			want: 1,
		},
		{
			name: "numeric date and string count",
			in:   `[{"date": 2024, "count": "approx 50"}]`,
			want: 1,
		},
		{
			name: "malformed entries discarded",
			in:   `[{"date": "yesterday", "count": 5}, {"date": "2024", "count": "none"}, {"date": "2024", "count": 7}]`,
			want: 1,
		},
		{
			name: "empty array",
			in:   `[]`,
			want: 0,
		},
		{
			name: "pure prose",
			in:   `I could not find any numerical data in the snippets.`,
			want: 0,
		},
		{
			name: "empty string",
			in:   "",
			want: 0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseSeries(tc.in)
			if len(got) != tc.want {
				t.Fatalf("got %d points, want %d: %+v", len(got), tc.want, got)
			}
		})
	}
}

func TestParseSeriesNormalizesDates(t *testing.T) {
	got := ParseSeries(`[{"date": "2024", "count": 1}, {"date": "2023-06", "count": 2}, {"date": "2022-03-15", "count": 3}]`)
	want := []string{"2024-01", "2023-06", "2022-03"}
	if len(got) != 3 {
		t.Fatalf("got %d points", len(got))
	}
	for i, p := range got {
		if p.Date != want[i] {
			t.Errorf("date[%d] = %q, want %q", i, p.Date, want[i])
		}
	}
}

func TestForecastLinearTrend(t *testing.T) {
	points := []SeriesPoint{
		{Date: "2022-01", Count: 100},
		{Date: "2023-01", Count: 200},
		{Date: "2024-01", Count: 300},
	}
	res := Forecast(points, "incident reports", 365*2, 2024)

	if len(res.Historical) != 3 {
		t.Fatalf("historical = %d, want 3", len(res.Historical))
	}
	if len(res.Forecast) != 2 {
		t.Fatalf("forecast = %d, want 2", len(res.Forecast))
	}
	if res.Forecast[0].Date != "2025" || res.Forecast[1].Date != "2026" {
		t.Fatalf("forecast years = %s, %s", res.Forecast[0].Date, res.Forecast[1].Date)
	}
	// A perfectly linear series continues the line exactly.
	if res.Forecast[0].Prediction != 400 {
		t.Errorf("prediction 2025 = %v, want 400", res.Forecast[0].Prediction)
	}
	if res.Stats.RSquared != 1 {
		t.Errorf("r_squared = %v, want 1", res.Stats.RSquared)
	}
	if res.Stats.Slope != 100 {
		t.Errorf("slope = %v, want 100", res.Stats.Slope)
	}
	for _, f := range res.Forecast {
		if f.Lower > f.Prediction || f.Upper < f.Prediction {
			t.Errorf("interval does not bracket prediction: %+v", f)
		}
	}
}

func TestForecastDuplicateYearsKeepMax(t *testing.T) {
	points := []SeriesPoint{
		{Date: "2023-02", Count: 50},
		{Date: "2023-09", Count: 90},
		{Date: "2024-01", Count: 120},
	}
	res := Forecast(points, "cases", 365, 2024)

	if len(res.Historical) != 2 {
		t.Fatalf("historical = %d, want 2 (per-year)", len(res.Historical))
	}
	if res.Historical[0].Count != 90 {
		t.Errorf("2023 count = %d, want max 90", res.Historical[0].Count)
	}
}

func TestForecastSingleYearNoProjection(t *testing.T) {
	points := []SeriesPoint{{Date: "2024-01", Count: 10}, {Date: "2024-06", Count: 20}}
	res := Forecast(points, "cases", 365, 2024)

	if len(res.Forecast) != 0 {
		t.Fatalf("forecast = %d, want 0 for a single year", len(res.Forecast))
	}
	if len(res.Historical) != 2 {
		t.Errorf("input series must pass through, got %d", len(res.Historical))
	}
}

type scriptedGenerator struct {
	out    string
	err    error
	prompt string
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompt = prompt
	return g.out, g.err
}

func TestAnalyzeTrendNoData(t *testing.T) {
	provider := search.NewMockProvider()
	provider.SetHits([]core.Hit{search.FixedHit("Unrelated story", "https://example.com/x")})
	gen := &scriptedGenerator{out: "[]"}

	m := NewMiner(provider, gen, "")
	res, err := m.AnalyzeTrend(context.Background(), "xyzqpr stats 2024", 365)
	if !errors.Is(err, core.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if res == nil {
		t.Fatal("result must still carry the empty arrays")
	}
	if len(res.Historical) != 0 || len(res.Forecast) != 0 {
		t.Errorf("arrays must be empty: %d/%d", len(res.Historical), len(res.Forecast))
	}
	if res.Error == "" {
		t.Error("error field must explain the absence of numeric data")
	}
}

func TestAnalyzeTrendEndToEnd(t *testing.T) {
	provider := search.NewMockProvider()
	provider.SetHits([]core.Hit{
		{ID: "a", Title: "Annual report", URL: "https://example.org/report",
			Snippet: "599 incidents in 2022, 731 in 2023", Published: "2023-12-01"},
	})
	gen := &scriptedGenerator{
		out: `[{"date": "2022", "count": 599}, {"date": "2023", "count": 731}]`,
	}
	snapshotPath := filepath.Join(t.TempDir(), "analytics.json")

	m := NewMiner(provider, gen, snapshotPath)
	res, err := m.AnalyzeTrend(context.Background(), "christian persecution india", 365)
	if err != nil {
		t.Fatalf("AnalyzeTrend: %v", err)
	}
	if len(res.Historical) != 2 || len(res.Forecast) == 0 {
		t.Fatalf("historical=%d forecast=%d", len(res.Historical), len(res.Forecast))
	}
	if !strings.Contains(gen.prompt, "Raw Search Snippets") ||
		!strings.Contains(gen.prompt, "599 incidents") {
		t.Error("mined context missing from extraction prompt")
	}

	saved, err := LoadSnapshot(snapshotPath)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(saved.Historical) != 2 {
		t.Errorf("snapshot historical = %d, want 2", len(saved.Historical))
	}
}

func TestMineQueryExpansion(t *testing.T) {
	provider := search.NewMockProvider()
	provider.SetHits(nil)
	m := NewMiner(provider, nil, "")

	m.mine(context.Background(), "christian persecution india")

	queries := provider.RecordedQueries()
	// 4 intents x 3 years + 3 registry queries.
	if len(queries) != 15 {
		t.Fatalf("issued %d queries, want 15", len(queries))
	}
	registrySeen := false
	for _, q := range queries {
		if strings.Contains(q, "United Christian Forum") {
			registrySeen = true
		}
	}
	if !registrySeen {
		t.Error("registry queries missing for India/Christian topic")
	}

	provider2 := search.NewMockProvider()
	provider2.SetHits(nil)
	m2 := NewMiner(provider2, nil, "")
	m2.mine(context.Background(), "renewable energy")
	if n := len(provider2.RecordedQueries()); n != 12 {
		t.Fatalf("neutral topic issued %d queries, want 12", n)
	}
}
