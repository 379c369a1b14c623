package newsfeed

import (
	"testing"
	"time"

	"tidings/internal/core"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), "news.db")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func article(id, title string, age time.Duration) core.CachedArticle {
	return core.CachedArticle{
		ID:         id,
		Title:      title,
		URL:        "https://example.com/" + id,
		Source:     "Example Wire",
		Timestamp:  float64(time.Now().Add(-age).Unix()),
		Snippet:    "snippet for " + title,
		IsApproved: true,
	}
}

func TestStoreUpsertRoundTrip(t *testing.T) {
	store := testStore(t)

	img := "https://example.com/a.jpg"
	in := article("a1", "First story", time.Hour)
	in.Image = &img
	in.Published = "Mon, 02 Jan 2006 15:04:05 GMT"
	in.GUID = "guid-a1"

	if err := store.Upsert([]core.CachedArticle{in}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := store.List(10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("List returned %d rows, want 1", len(got))
	}
	out := got[0]
	if out.ID != in.ID || out.Title != in.Title || out.URL != in.URL ||
		out.Published != in.Published || out.GUID != in.GUID || out.Snippet != in.Snippet {
		t.Errorf("round trip mismatch: got %+v", out)
	}
	if out.Image == nil || *out.Image != img {
		t.Errorf("image not preserved: %v", out.Image)
	}
	if !out.IsApproved {
		t.Error("approval flag lost")
	}
}

func TestStoreUpsertReplacesByID(t *testing.T) {
	store := testStore(t)

	first := article("a1", "Old title", time.Hour)
	updated := article("a1", "New title", time.Minute)
	if err := store.Upsert([]core.CachedArticle{first}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.Upsert([]core.CachedArticle{updated}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, _ := store.List(10)
	if len(got) != 1 || got[0].Title != "New title" {
		t.Fatalf("expected single replaced row, got %+v", got)
	}
}

func TestStoreUpsertPreservesApproval(t *testing.T) {
	store := testStore(t)

	if err := store.Upsert([]core.CachedArticle{article("m1", "Morning report", time.Hour)}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.SetApproved("m1", false); err != nil {
		t.Fatalf("SetApproved: %v", err)
	}

	// The worker re-ingests the same row every cycle with the flag set.
	if err := store.Upsert([]core.CachedArticle{article("m1", "Morning report updated", time.Minute)}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if visible, _ := store.List(10); len(visible) != 0 {
		t.Fatalf("unapproved row resurfaced: %+v", visible)
	}
	all, _ := store.ListAll(10)
	if len(all) != 1 {
		t.Fatalf("ListAll returned %d rows, want 1", len(all))
	}
	if all[0].IsApproved {
		t.Error("re-ingest reset the approval flag")
	}
	if all[0].Title != "Morning report updated" {
		t.Errorf("content columns not refreshed: %q", all[0].Title)
	}
}

func TestStoreInsertIgnoreKeepsExisting(t *testing.T) {
	store := testStore(t)

	if err := store.Upsert([]core.CachedArticle{article("a1", "Worker row", time.Hour)}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.InsertIgnore([]core.CachedArticle{
		article("a1", "Search row", time.Minute),
		article("a2", "Novel row", time.Minute),
	}); err != nil {
		t.Fatalf("InsertIgnore: %v", err)
	}

	got, _ := store.List(10)
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	titles := map[string]string{}
	for _, a := range got {
		titles[a.ID] = a.Title
	}
	if titles["a1"] != "Worker row" {
		t.Errorf("existing row clobbered: %q", titles["a1"])
	}
	if titles["a2"] != "Novel row" {
		t.Errorf("novel row missing: %q", titles["a2"])
	}
}

func TestStoreCleanupPinnedRetention(t *testing.T) {
	store := testStore(t)
	now := time.Now()

	rows := []core.CachedArticle{
		article("fresh", "Fresh story", 24*time.Hour),
		article("stale", "Stale story", 4*24*time.Hour),
		article("pinned", "Jesus Redeems convention report", 4*24*time.Hour),
		article("ancient", "Jesus Redeems archive note", 8*24*time.Hour),
	}
	if err := store.Upsert(rows); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.Cleanup(now, 3, 7); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	got, _ := store.List(10)
	ids := map[string]bool{}
	for _, a := range got {
		ids[a.ID] = true
	}
	if !ids["fresh"] {
		t.Error("fresh row was deleted")
	}
	if ids["stale"] {
		t.Error("stale unpinned row survived the short horizon")
	}
	if !ids["pinned"] {
		t.Error("pinned row inside the long horizon was deleted")
	}
	if ids["ancient"] {
		t.Error("pinned row past the long horizon survived")
	}
}

func TestStoreSetApproved(t *testing.T) {
	store := testStore(t)

	if err := store.Upsert([]core.CachedArticle{
		article("a1", "Visible", time.Hour),
		article("a2", "Hidden", time.Hour),
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.SetApproved("a2", false); err != nil {
		t.Fatalf("SetApproved: %v", err)
	}

	visible, _ := store.List(10)
	if len(visible) != 1 || visible[0].ID != "a1" {
		t.Fatalf("List should exclude unapproved rows, got %+v", visible)
	}
	all, _ := store.ListAll(10)
	if len(all) != 2 {
		t.Fatalf("ListAll should include unapproved rows, got %d", len(all))
	}
}

func TestStoreCount(t *testing.T) {
	store := testStore(t)

	if n, err := store.Count(); err != nil || n != 0 {
		t.Fatalf("empty count = %d, %v", n, err)
	}
	if err := store.Upsert([]core.CachedArticle{article("a1", "One", time.Hour)}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if n, _ := store.Count(); n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
}
