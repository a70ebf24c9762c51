// Package store persists the scored story records. Unlike the
// append-only index, stories are mutable by cluster_id, so the store is
// rewritten wholesale on every run - that is the one place a full-file
// rewrite is correct.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"spaceradar/internal/model"
)

const storiesFileName = "stories.json"

// Stories is the persisted story record collection, keyed implicitly by
// cluster_id. Consumers sort by score descending to render the feed.
type Stories struct {
	dir string
	log zerolog.Logger
}

// NewStories returns a story store rooted at dir.
func NewStories(dir string, log zerolog.Logger) *Stories {
	return &Stories{dir: dir, log: log}
}

// Path returns the location of the stories file.
func (s *Stories) Path() string {
	return filepath.Join(s.dir, storiesFileName)
}

// Load reads the persisted story set. A missing or corrupt store is
// treated as empty rather than fatal.
func (s *Stories) Load() []model.StoryRecord {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Msg("stories unreadable, treating as empty")
		}
		return nil
	}

	var stories []model.StoryRecord
	if err := json.Unmarshal(data, &stories); err != nil {
		s.log.Warn().Err(err).Msg("stories corrupt, treating as empty")
		return nil
	}

	return stories
}

// ByClusterID indexes a story set by its merge key.
func ByClusterID(stories []model.StoryRecord) map[string]model.StoryRecord {
	byID := make(map[string]model.StoryRecord, len(stories))
	for _, st := range stories {
		byID[st.ClusterID] = st
	}
	return byID
}

// Replace rewrites the whole story set through a temp-file rename, so
// readers never observe a partially written store.
func (s *Stories) Replace(stories []model.StoryRecord) error {
	if stories == nil {
		stories = []model.StoryRecord{}
	}

	data, err := json.MarshalIndent(stories, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal stories: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".stories-*")
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

	if err := os.Rename(tmpName, s.Path()); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace stories: %w", err)
	}

	return nil
}
