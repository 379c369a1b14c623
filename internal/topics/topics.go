package topics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"tidings/internal/logger"
)

// DefaultTopics seeds a missing topic file. Only Christianity starts active.
var DefaultTopics = map[string]bool{
	"Christianity": true,
	"Science":      false,
	"Global News":  false,
	"Sports":       false,
	"Technology":   false,
}

// Manager owns the admin-controlled set of enabled topics, persisted as a
// JSON {topic: bool} map. Constructed once at startup and passed to the
// components that need it.
type Manager struct {
	path string

	mu     sync.RWMutex
	topics map[string]bool
}

// NewManager loads the topic file at path, seeding it with the defaults when
// missing.
func NewManager(path string) (*Manager, error) {
	m := &Manager{path: path, topics: make(map[string]bool)}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &m.topics); err != nil {
			return nil, fmt.Errorf("failed to parse topic file %s: %w", path, err)
		}
	case os.IsNotExist(err):
		for k, v := range DefaultTopics {
			m.topics[k] = v
		}
		if err := m.write(); err != nil {
			return nil, err
		}
		logger.Info("topic file seeded with defaults", "path", path)
	default:
		return nil, fmt.Errorf("failed to read topic file %s: %w", path, err)
	}
	return m, nil
}

// GetAll returns a copy of the full topic map.
func (m *Manager) GetAll() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]bool, len(m.topics))
	for k, v := range m.topics {
		out[k] = v
	}
	return out
}

// SetTopic enables or disables a topic and persists the change.
func (m *Manager) SetTopic(name string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topics[name] = enabled
	return m.write()
}

// ActiveKeywords returns the enabled topic names, sorted for stable output.
func (m *Manager) ActiveKeywords() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var active []string
	for name, enabled := range m.topics {
		if enabled {
			active = append(active, name)
		}
	}
	sort.Strings(active)
	return active
}

// ActiveTopicQuery returns an OR-join of the quoted active topic names, or
// the empty string when nothing is active.
func (m *Manager) ActiveTopicQuery() string {
	active := m.ActiveKeywords()
	if len(active) == 0 {
		return ""
	}
	quoted := make([]string, len(active))
	for i, name := range active {
		quoted[i] = `"` + name + `"`
	}
	return strings.Join(quoted, " OR ")
}

// MatchesActive reports whether text mentions any active topic. Used by the
// strict topic filter on feed reads.
func (m *Manager) MatchesActive(text string) bool {
	lower := strings.ToLower(text)
	for _, name := range m.ActiveKeywords() {
		if strings.Contains(lower, strings.ToLower(name)) {
			return true
		}
	}
	return false
}

// write persists the map atomically: temp file in the same directory, then
// rename.
func (m *Manager) write() error {
	data, err := json.MarshalIndent(m.topics, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode topics: %w", err)
	}

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create topic dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".topics-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp topic file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp topic file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp topic file: %w", err)
	}
	if err := os.Rename(tmpName, m.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace topic file: %w", err)
	}
	return nil
}
