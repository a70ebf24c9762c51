package index

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"spaceradar/internal/model"
)

func article(id, title string) model.Article {
	return model.Article{ID: id, Title: title, Source: "NASA", Timestamp: "2024-01-02T00:00:00+00:00"}
}

func TestLoadMissingIndexIsEmpty(t *testing.T) {
	ix := Open(t.TempDir(), zerolog.Nop())
	ix.Load()
	if ix.Size() != 0 {
		t.Errorf("size = %d, want 0", ix.Size())
	}
}

func TestLoadCorruptIndexIsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.json"), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	ix := Open(dir, zerolog.Nop())
	ix.Load()
	if ix.Size() != 0 {
		t.Errorf("size = %d, want 0 for corrupt index", ix.Size())
	}
}

func TestLoadAcceptsLegacyIDKey(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.json"), []byte(`{"id": ["a", "b"]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	ix := Open(dir, zerolog.Nop())
	ix.Load()
	if ix.Size() != 2 || !ix.Contains("a") || !ix.Contains("b") {
		t.Errorf("legacy id key not honored: size=%d", ix.Size())
	}
}

func TestCommitAndReload(t *testing.T) {
	dir := t.TempDir()

	ix := Open(dir, zerolog.Nop())
	ix.Load()

	fresh, _ := ix.Diff([]model.Article{article("a", "First"), article("b", "Second")})
	if err := ix.Commit(fresh, "2024-01-02"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	// A fresh handle sees the committed state and writes the "ids" key.
	reloaded := Open(dir, zerolog.Nop())
	reloaded.Load()
	if reloaded.Size() != 2 {
		t.Errorf("size after reload = %d, want 2", reloaded.Size())
	}

	data, err := os.ReadFile(filepath.Join(dir, "index.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"ids"`) {
		t.Errorf("index file missing ids key: %s", data)
	}

	articles := reloaded.LoadArticles()
	if len(articles) != 2 || articles[0].ID != "a" {
		t.Errorf("bucket records = %+v", articles)
	}
}

func TestIdempotentIngestion(t *testing.T) {
	dir := t.TempDir()
	batch := []model.Article{article("a", "First"), article("b", "Second")}

	ix := Open(dir, zerolog.Nop())
	ix.Load()
	fresh, _ := ix.Diff(batch)
	if err := ix.Commit(fresh, "2024-01-02"); err != nil {
		t.Fatal(err)
	}
	sizeBefore := ix.Size()

	// Same batch again, new handle: everything is already known.
	rerun := Open(dir, zerolog.Nop())
	rerun.Load()
	fresh, known := rerun.Diff(batch)
	if len(fresh) != 0 || len(known) != 2 {
		t.Errorf("Diff on rerun: fresh=%d known=%d", len(fresh), len(known))
	}
	if err := rerun.Commit(fresh, "2024-01-03"); err != nil {
		t.Fatal(err)
	}
	if rerun.Size() != sizeBefore {
		t.Errorf("index grew on rerun: %d -> %d", sizeBefore, rerun.Size())
	}
	if len(rerun.LoadArticles()) != 2 {
		t.Error("rerun appended bucket records")
	}
}

func TestDiffInBatchDuplicates(t *testing.T) {
	ix := Open(t.TempDir(), zerolog.Nop())
	ix.Load()

	fresh, known := ix.Diff([]model.Article{
		article("a", "First occurrence"),
		article("a", "Duplicate in same batch"),
	})
	if len(fresh) != 1 || fresh[0].Title != "First occurrence" {
		t.Errorf("fresh = %+v, want first occurrence only", fresh)
	}
	if len(known) != 1 {
		t.Errorf("known = %+v", known)
	}
}

func TestCommitAppendsAcrossDays(t *testing.T) {
	dir := t.TempDir()

	ix := Open(dir, zerolog.Nop())
	ix.Load()
	if err := ix.Commit([]model.Article{article("a", "Day one")}, "2024-01-02"); err != nil {
		t.Fatal(err)
	}
	if err := ix.Commit([]model.Article{article("b", "Day two")}, "2024-01-03"); err != nil {
		t.Fatal(err)
	}

	articles := ix.LoadArticles()
	if len(articles) != 2 {
		t.Fatalf("got %d articles", len(articles))
	}
	// Buckets load in filename order, so day one precedes day two.
	if articles[0].ID != "a" || articles[1].ID != "b" {
		t.Errorf("order = [%s %s]", articles[0].ID, articles[1].ID)
	}
}

func TestLoadArticlesSkipsCorruptBucket(t *testing.T) {
	dir := t.TempDir()

	ix := Open(dir, zerolog.Nop())
	ix.Load()
	if err := ix.Commit([]model.Article{article("a", "Good")}, "2024-01-02"); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "by_date", "2024-01-01.json"), []byte("[broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	articles := ix.LoadArticles()
	if len(articles) != 1 || articles[0].ID != "a" {
		t.Errorf("articles = %+v, want the good bucket only", articles)
	}
}

func TestBucketKey(t *testing.T) {
	ts := time.Date(2024, 1, 2, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))
	if got := BucketKey(ts); got != "2024-01-03" {
		t.Errorf("BucketKey = %s, want UTC date 2024-01-03", got)
	}
}
