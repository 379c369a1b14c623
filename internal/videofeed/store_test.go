package videofeed

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"tidings/internal/core"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), "videos.db")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func video(id, title string, age time.Duration) core.CachedVideo {
	return core.CachedVideo{
		ID:         id,
		Title:      title,
		URL:        "https://www.youtube.com/watch?v=" + id,
		Thumbnail:  "https://i.ytimg.com/vi/" + id + "/hqdefault.jpg",
		Channel:    "Example Channel",
		Views:      "1,234 views",
		Published:  "2 days ago",
		Timestamp:  float64(time.Now().Add(-age).Unix()),
		IsApproved: true,
	}
}

func TestStoreInsertRoundTrip(t *testing.T) {
	store := testStore(t)

	in := video("abc123def45", "Morning worship service highlights", time.Hour)
	saved, err := store.Insert([]core.CachedVideo{in})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if saved != 1 {
		t.Fatalf("saved = %d, want 1", saved)
	}

	got, err := store.List(10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("List returned %d rows", len(got))
	}
	out := got[0]
	if out.ID != in.ID || out.Title != in.Title || out.URL != in.URL ||
		out.Thumbnail != in.Thumbnail || out.Channel != in.Channel ||
		out.Views != in.Views || out.Published != in.Published {
		t.Errorf("round trip mismatch: %+v", out)
	}
}

func TestStoreInsertSkipsExistingID(t *testing.T) {
	store := testStore(t)

	first := video("abc123def45", "Original upload title here", time.Hour)
	if _, err := store.Insert([]core.CachedVideo{first}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := store.SetApproved(first.ID, false); err != nil {
		t.Fatalf("SetApproved: %v", err)
	}

	// Re-ingest of the same id must not resurrect the row's approval.
	again := video("abc123def45", "Completely different replacement", time.Minute)
	if _, err := store.Insert([]core.CachedVideo{again}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	all, _ := store.ListAll(10)
	if len(all) != 1 {
		t.Fatalf("expected 1 row, got %d", len(all))
	}
	if all[0].Title != first.Title {
		t.Errorf("existing row was replaced: %q", all[0].Title)
	}
	if all[0].IsApproved {
		t.Error("moderation state lost on re-ingest")
	}
}

func TestStoreInsertFuzzyDedupe(t *testing.T) {
	store := testStore(t)

	if _, err := store.Insert([]core.CachedVideo{
		video("aaaaaaaaaaa", "Sunday Service Live From Chennai", time.Hour),
	}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	saved, err := store.Insert([]core.CachedVideo{
		video("bbbbbbbbbbb", "Sunday Service LIVE from Chennai!", time.Minute),
		video("ccccccccccc", "Weekly technology roundup episode", time.Minute),
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if saved != 1 {
		t.Fatalf("saved = %d, want 1 (near-duplicate title must be rejected)", saved)
	}

	got, _ := store.List(10)
	for _, v := range got {
		if v.ID == "bbbbbbbbbbb" {
			t.Error("fuzzy duplicate was inserted")
		}
	}
}

func TestStoreRowCap(t *testing.T) {
	store := testStore(t)

	// Titles must be distinct enough to clear the fuzzy gate.
	batch := make([]core.CachedVideo, 0, maxRows+20)
	for i := 0; i < maxRows+20; i++ {
		x := string(rune('a' + i%26))
		y := string(rune('a' + (i/26)%26))
		title := fmt.Sprintf("%s %s %d",
			strings.Repeat(x, 6), strings.Repeat(y, 6), i)
		v := video(fmt.Sprintf("vid%08d", i), title,
			time.Duration(maxRows+20-i)*time.Minute)
		batch = append(batch, v)
	}
	if _, err := store.Insert(batch); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	n, err := store.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n > maxRows {
		t.Fatalf("count = %d, cap is %d", n, maxRows)
	}

	// The survivors must be the newest rows.
	got, _ := store.List(maxRows)
	for _, v := range got {
		if v.ID == "vid00000000" {
			t.Error("oldest row survived the cap")
		}
	}
}

func TestStoreSetApproved(t *testing.T) {
	store := testStore(t)

	if _, err := store.Insert([]core.CachedVideo{
		video("aaaaaaaaaaa", "Visible broadcast recording one", time.Hour),
		video("bbbbbbbbbbb", "Hidden broadcast recording two", time.Hour),
	}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := store.SetApproved("bbbbbbbbbbb", false); err != nil {
		t.Fatalf("SetApproved: %v", err)
	}

	visible, _ := store.List(10)
	if len(visible) != 1 || visible[0].ID != "aaaaaaaaaaa" {
		t.Fatalf("List should exclude unapproved rows, got %+v", visible)
	}
	all, _ := store.ListAll(10)
	if len(all) != 2 {
		t.Fatalf("ListAll should include unapproved rows, got %d", len(all))
	}
}
