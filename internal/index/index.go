// Package index maintains the durable, append-only registry of every
// article id ever admitted, plus the date-bucketed store of full article
// records. Historical buckets are never rewritten; the only mutation is
// appending newly-seen entries.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"spaceradar/internal/model"
)

const (
	idSetFileName = "index.json"
	bucketDirName = "by_date"
)

// Index is the process-external id registry. Load it once at the start
// of a run, Diff the incoming batch, Commit the new entries.
type Index struct {
	dir string
	log zerolog.Logger

	ids   map[string]struct{}
	order []string // admission order, preserved across saves
}

// Open returns an Index rooted at dir. Nothing is read until Load.
func Open(dir string, log zerolog.Logger) *Index {
	return &Index{
		dir: dir,
		log: log,
		ids: make(map[string]struct{}),
	}
}

// idSetFile is the on-disk id-set document. Historical stores used the
// key "id"; both spellings are accepted on read, "ids" is written.
type idSetFile struct {
	IDs      []string `json:"ids"`
	LegacyID []string `json:"id,omitempty"`
}

// Load reads the id-set from disk. A missing or corrupt store is
// treated as empty - a damaged index must never crash ingestion.
func (ix *Index) Load() {
	ix.ids = make(map[string]struct{})
	ix.order = nil

	data, err := os.ReadFile(filepath.Join(ix.dir, idSetFileName))
	if err != nil {
		if !os.IsNotExist(err) {
			ix.log.Warn().Err(err).Msg("index unreadable, treating as empty")
		}
		return
	}

	var file idSetFile
	if err := json.Unmarshal(data, &file); err != nil {
		ix.log.Warn().Err(err).Msg("index corrupt, treating as empty")
		return
	}

	ids := file.IDs
	if ids == nil {
		ids = file.LegacyID
	}
	for _, id := range ids {
		if _, seen := ix.ids[id]; seen {
			continue
		}
		ix.ids[id] = struct{}{}
		ix.order = append(ix.order, id)
	}
}

// Size returns the number of known ids.
func (ix *Index) Size() int {
	return len(ix.ids)
}

// Contains reports whether id has ever been admitted.
func (ix *Index) Contains(id string) bool {
	_, ok := ix.ids[id]
	return ok
}

// Diff partitions a batch into articles whose id is new and articles
// already known. Within one batch only the first occurrence of an id is
// considered new; later duplicates land in known.
func (ix *Index) Diff(articles []model.Article) (fresh, known []model.Article) {
	inBatch := make(map[string]struct{}, len(articles))

	for _, a := range articles {
		if ix.Contains(a.ID) {
			known = append(known, a)
			continue
		}
		if _, dup := inBatch[a.ID]; dup {
			known = append(known, a)
			continue
		}
		inBatch[a.ID] = struct{}{}
		fresh = append(fresh, a)
	}

	return fresh, known
}

// Commit appends the new articles' ids to the id-set and the full
// records to the bucket named by bucketKey. Both writes go through a
// temp-file-then-rename so a crash mid-commit never corrupts previously
// committed state.
func (ix *Index) Commit(fresh []model.Article, bucketKey string) error {
	if len(fresh) == 0 {
		return nil
	}

	for _, a := range fresh {
		if _, seen := ix.ids[a.ID]; seen {
			continue
		}
		ix.ids[a.ID] = struct{}{}
		ix.order = append(ix.order, a.ID)
	}

	if err := writeJSONAtomic(filepath.Join(ix.dir, idSetFileName), idSetFile{IDs: ix.order}); err != nil {
		return fmt.Errorf("write id set: %w", err)
	}

	bucketPath := filepath.Join(ix.dir, bucketDirName, bucketKey+".json")
	existing := ix.readBucket(bucketPath)
	existing = append(existing, fresh...)

	if err := writeJSONAtomic(bucketPath, existing); err != nil {
		return fmt.Errorf("write bucket %s: %w", bucketKey, err)
	}

	return nil
}

// LoadArticles reads every date bucket in filename order and returns all
// stored records. A corrupt bucket is skipped with a warning; the rest
// of the corpus still loads.
func (ix *Index) LoadArticles() []model.Article {
	bucketDir := filepath.Join(ix.dir, bucketDirName)

	entries, err := os.ReadDir(bucketDir)
	if err != nil {
		if !os.IsNotExist(err) {
			ix.log.Warn().Err(err).Msg("bucket directory unreadable")
		}
		return nil
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var articles []model.Article
	for _, name := range names {
		articles = append(articles, ix.readBucket(filepath.Join(bucketDir, name))...)
	}

	return articles
}

// BucketKey names the ingestion-date bucket for a point in time.
func BucketKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func (ix *Index) readBucket(path string) []model.Article {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			ix.log.Warn().Err(err).Str("bucket", path).Msg("bucket unreadable, skipping")
		}
		return nil
	}

	var articles []model.Article
	if err := json.Unmarshal(data, &articles); err != nil {
		ix.log.Warn().Err(err).Str("bucket", path).Msg("bucket corrupt, skipping")
		return nil
	}

	return articles
}

// writeJSONAtomic marshals v and replaces path in one rename, creating
// parent directories as needed.
func writeJSONAtomic(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}

	return nil
}
