package topics

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "topics.json")
	m, err := NewManager(path)
	if err != nil {
		t.Fatal(err)
	}
	return m, path
}

func TestSeedsDefaultsWhenMissing(t *testing.T) {
	m, path := newTestManager(t)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("topic file not written: %v", err)
	}
	all := m.GetAll()
	if len(all) != len(DefaultTopics) {
		t.Errorf("got %d topics, want %d", len(all), len(DefaultTopics))
	}
	if !all["Christianity"] {
		t.Error("Christianity should default to active")
	}
}

func TestSetTopicRoundTrip(t *testing.T) {
	m, path := newTestManager(t)
	if err := m.SetTopic("Science", true); err != nil {
		t.Fatal(err)
	}
	if err := m.SetTopic("Christianity", false); err != nil {
		t.Fatal(err)
	}

	reloaded, err := NewManager(path)
	if err != nil {
		t.Fatal(err)
	}
	all := reloaded.GetAll()
	if !all["Science"] || all["Christianity"] {
		t.Errorf("reloaded state wrong: %v", all)
	}
}

func TestActiveKeywordsSorted(t *testing.T) {
	m, _ := newTestManager(t)
	_ = m.SetTopic("Technology", true)
	_ = m.SetTopic("Science", true)

	active := m.ActiveKeywords()
	want := []string{"Christianity", "Science", "Technology"}
	if len(active) != len(want) {
		t.Fatalf("active = %v", active)
	}
	for i := range want {
		if active[i] != want[i] {
			t.Errorf("active[%d] = %q, want %q", i, active[i], want[i])
		}
	}
}

func TestActiveTopicQuery(t *testing.T) {
	m, _ := newTestManager(t)
	if got := m.ActiveTopicQuery(); got != `"Christianity"` {
		t.Errorf("query = %q", got)
	}
	_ = m.SetTopic("Science", true)
	if got := m.ActiveTopicQuery(); got != `"Christianity" OR "Science"` {
		t.Errorf("query = %q", got)
	}

	_ = m.SetTopic("Christianity", false)
	_ = m.SetTopic("Science", false)
	if got := m.ActiveTopicQuery(); got != "" {
		t.Errorf("inactive manager query = %q, want empty", got)
	}
}

func TestMatchesActive(t *testing.T) {
	m, _ := newTestManager(t)
	if !m.MatchesActive("a story about christianity today") {
		t.Error("case-insensitive topic match failed")
	}
	if m.MatchesActive("a story about cricket") {
		t.Error("unrelated text matched")
	}
}
