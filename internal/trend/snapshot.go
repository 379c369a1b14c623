package trend

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// snapshot is the persisted analytics descriptor. Downstream consumers
// tolerate absent optional fields.
type snapshot struct {
	GeneratedAt string  `json:"generated_at"`
	Result      *Result `json:"result"`
}

// SaveSnapshot atomically persists the latest analysis to path.
func SaveSnapshot(path string, result *Result) error {
	data, err := json.MarshalIndent(snapshot{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Result:      result,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode analytics snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".analytics-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads the last persisted analysis, if any.
func LoadSnapshot(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse analytics snapshot: %w", err)
	}
	return s.Result, nil
}
