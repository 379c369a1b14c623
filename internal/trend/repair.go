package trend

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// rawEntry tolerates the shapes models actually emit: numeric or string
// dates, numeric or quoted counts.
type rawEntry struct {
	Date    any    `json:"date"`
	Count   any    `json:"count"`
	Summary string `json:"summary"`
}

var digitsPattern = regexp.MustCompile(`\d+(\.\d+)?`)

// ParseSeries parses model output defensively: code fences stripped, the
// outermost array extracted, truncated arrays closed at the last complete
// object and re-parsed once. Malformed entries are discarded; unrecoverable
// output yields an empty series.
func ParseSeries(text string) []SeriesPoint {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	entries := parseArray(text)
	if entries == nil && strings.HasPrefix(text, "{") {
		var single rawEntry
		if err := json.Unmarshal([]byte(text), &single); err == nil {
			entries = []rawEntry{single}
		}
	}

	var points []SeriesPoint
	for _, e := range entries {
		date, ok := normalizeDate(e.Date)
		if !ok {
			continue
		}
		count, ok := coerceCount(e.Count)
		if !ok {
			continue
		}
		points = append(points, SeriesPoint{Date: date, Count: count, Summary: e.Summary})
	}
	return points
}

func parseArray(text string) []rawEntry {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 {
		return nil
	}
	if end <= start {
		end = len(text) - 1
	}
	body := text[start : end+1]

	var entries []rawEntry
	if err := json.Unmarshal([]byte(body), &entries); err == nil {
		return entries
	}

	// Truncated output: close the array at the last complete object.
	if last := strings.LastIndex(body, "}"); last != -1 {
		repaired := body[:last+1] + "]"
		if err := json.Unmarshal([]byte(repaired), &entries); err == nil {
			return entries
		}
	}
	return nil
}

// normalizeDate coerces a raw date value to YYYY-MM.
func normalizeDate(v any) (string, bool) {
	var s string
	switch d := v.(type) {
	case string:
		s = strings.TrimSpace(d)
	case float64:
		s = strconv.Itoa(int(d))
	default:
		return "", false
	}

	switch {
	case len(s) == 4:
		s += "-01"
	case len(s) >= 10:
		s = s[:7]
	case len(s) != 7:
		return "", false
	}
	if _, err := time.Parse("2006-01", s); err != nil {
		return "", false
	}
	return s, true
}

// coerceCount coerces a raw count value to a non-negative integer.
func coerceCount(v any) (int, bool) {
	switch c := v.(type) {
	case float64:
		if c < 0 {
			return 0, false
		}
		return int(c), true
	case string:
		m := digitsPattern.FindString(c)
		if m == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, false
		}
		return int(f), true
	default:
		return 0, false
	}
}
