// Package source reads raw document batches from the drop directory.
// Collaborators write JSON files there, one array of raw documents per
// file; nothing in this package ever talks to the network.
package source

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"spaceradar/internal/model"
)

// Loader scans the drop directory for document batches.
type Loader struct {
	dir string
	log zerolog.Logger
}

// NewLoader creates a loader over dir.
func NewLoader(dir string, log zerolog.Logger) *Loader {
	return &Loader{dir: dir, log: log}
}

// LoadStats reports what a Load pass saw.
type LoadStats struct {
	Files     int
	Documents int
	Malformed int
}

// Load reads every *.json file in the drop directory, in name order,
// and returns the schema-valid documents. A missing directory is a
// fatal configuration error: with no source at all there is no
// meaningful partial result. Malformed files and invalid documents are
// skipped and counted, never fatal.
func (l *Loader) Load() ([]model.RawDocument, LoadStats, error) {
	var stats LoadStats

	if _, err := os.Stat(l.dir); err != nil {
		return nil, stats, fmt.Errorf("drop directory %s is not readable: %w", l.dir, err)
	}

	paths, err := filepath.Glob(filepath.Join(l.dir, "*.json"))
	if err != nil {
		return nil, stats, fmt.Errorf("scan drop directory: %w", err)
	}
	sort.Strings(paths)

	var docs []model.RawDocument
	for _, path := range paths {
		batch, malformed, err := l.loadFile(path)
		if err != nil {
			l.log.Warn().Str("file", path).Err(err).Msg("skipping unreadable drop file")
			stats.Malformed++
			continue
		}
		stats.Files++
		stats.Malformed += malformed
		stats.Documents += len(batch)
		docs = append(docs, batch...)
	}

	return docs, stats, nil
}

// loadFile decodes one drop file. Documents are validated individually
// so one bad entry does not sink its neighbors.
func (l *Loader) loadFile(path string) ([]model.RawDocument, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}

	var payloads []json.RawMessage
	if err := json.Unmarshal(data, &payloads); err != nil {
		return nil, 0, fmt.Errorf("not a JSON array: %w", err)
	}

	var docs []model.RawDocument
	malformed := 0
	for i, raw := range payloads {
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			l.log.Warn().Str("file", path).Int("entry", i).Err(err).Msg("skipping undecodable document")
			malformed++
			continue
		}
		if err := ValidateDocument(generic); err != nil {
			l.log.Warn().Str("file", path).Int("entry", i).Err(err).Msg("skipping schema-invalid document")
			malformed++
			continue
		}

		var doc model.RawDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			malformed++
			continue
		}
		docs = append(docs, doc)
	}

	return docs, malformed, nil
}
