// Package pipeline wires the full batch run: drop-file intake,
// normalization, incremental indexing, embedding, clustering, and the
// story merge. Each stage is also callable on its own so operators can
// re-run a single step against the persisted state.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"spaceradar/internal/cache"
	"spaceradar/internal/cluster"
	"spaceradar/internal/embed"
	"spaceradar/internal/index"
	"spaceradar/internal/llm"
	"spaceradar/internal/model"
	"spaceradar/internal/normalize"
	"spaceradar/internal/score"
	"spaceradar/internal/source"
	"spaceradar/internal/store"
	"spaceradar/internal/worker"
)

const candidatesFileName = "story_candidates.json"

// Pipeline owns one run's worth of components. Construct it per
// invocation; nothing here is shared global state.
type Pipeline struct {
	cfg *model.Config
	log zerolog.Logger

	loader     *source.Loader
	normalizer *normalize.Normalizer
	index      *index.Index
	embedder   embed.Embedder
	builder    *cluster.Builder
	merger     *score.Merger
	stories    *store.Stories

	now func() time.Time
}

// New assembles a pipeline from configuration.
func New(cfg *model.Config, log zerolog.Logger) (*Pipeline, error) {
	embedder, err := embed.New(cfg.Embedding, cfg.LLM.APIKey)
	if err != nil {
		return nil, fmt.Errorf("configure embedder: %w", err)
	}
	if cfg.Embedding.CacheDir != "" {
		vectorCache := cache.NewLayeredCache(cfg.Embedding.CacheTTL, cfg.Embedding.CacheDir, cfg.Embedding.CacheTTL)
		embedder = embed.NewCached(embedder, vectorCache, cfg.Embedding.CacheTTL)
	}

	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("configure LLM provider: %w", err)
	}
	if provider == nil {
		log.Info().Msg("narrative provider disabled, new stories will carry placeholder narratives")
	}

	scorer := score.NewScorer(cfg.Score, nil)
	retrier := llm.NewRetrier(cfg.LLM.MaxAttempts, cfg.LLM.InitialBackoff)
	pacer := worker.NewPacer(cfg.LLM.RequestsPerSecond, 1)
	merger := score.NewMerger(scorer, provider, retrier, pacer, cfg.LLM.Concurrency, log)

	return &Pipeline{
		cfg:        cfg,
		log:        log,
		loader:     source.NewLoader(cfg.DropDir, log),
		normalizer: normalize.New(cfg.Normalize, log),
		index:      index.Open(cfg.DataDir, log),
		embedder:   embedder,
		builder:    cluster.New(cfg.Cluster.TopK, log),
		merger:     merger,
		stories:    store.NewStories(cfg.DataDir, log),
		now:        time.Now,
	}, nil
}

// RunSummary is the operator-facing tally printed after every run. A
// run always terminates with these counts, even when every candidate
// degraded.
type RunSummary struct {
	DocumentsLoaded int            `json:"documents_loaded"`
	Malformed       int            `json:"malformed"`
	Admitted        int            `json:"admitted"`
	Rejected        map[string]int `json:"rejected"`
	NewArticles     int            `json:"new_articles"`
	KnownArticles   int            `json:"known_articles"`
	IndexSize       int            `json:"index_size"`

	NearDuplicates int `json:"near_duplicates"`
	Candidates     int `json:"candidates"`

	StoriesExisting int `json:"stories_existing"`
	StoriesNew      int `json:"stories_new"`
	StoriesFailed   int `json:"stories_failed"`

	DurationSeconds float64 `json:"duration_seconds"`
}

// Run executes the whole batch: ingest, cluster, score. The persisted
// stores are guarded by a single-writer lock for the duration.
func (p *Pipeline) Run(ctx context.Context) (*RunSummary, error) {
	start := p.now()

	lock, err := store.Acquire(p.cfg.DataDir)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	summary := &RunSummary{Rejected: make(map[string]int)}

	if err := p.ingest(summary); err != nil {
		return nil, err
	}

	candidates, err := p.buildCandidates(ctx, summary)
	if err != nil {
		return nil, err
	}

	if err := p.scoreStories(ctx, candidates, summary); err != nil {
		return nil, err
	}

	summary.DurationSeconds = p.now().Sub(start).Seconds()
	p.log.Info().
		Int("admitted", summary.Admitted).
		Int("new_articles", summary.NewArticles).
		Int("candidates", summary.Candidates).
		Int("stories_new", summary.StoriesNew).
		Int("stories_failed", summary.StoriesFailed).
		Msg("run complete")

	return summary, nil
}

// Ingest runs only the intake stage under the store lock.
func (p *Pipeline) Ingest(ctx context.Context) (*RunSummary, error) {
	return p.stage(ctx, func(ctx context.Context, s *RunSummary) error {
		return p.ingest(s)
	})
}

// Cluster runs only the clustering stage, persisting the candidate set
// for a later scoring pass.
func (p *Pipeline) Cluster(ctx context.Context) (*RunSummary, error) {
	return p.stage(ctx, func(ctx context.Context, s *RunSummary) error {
		_, err := p.buildCandidates(ctx, s)
		return err
	})
}

// Score runs only the merge stage against the persisted candidate set.
func (p *Pipeline) Score(ctx context.Context) (*RunSummary, error) {
	return p.stage(ctx, func(ctx context.Context, s *RunSummary) error {
		candidates, err := p.loadCandidates()
		if err != nil {
			return err
		}
		return p.scoreStories(ctx, candidates, s)
	})
}

func (p *Pipeline) stage(ctx context.Context, fn func(context.Context, *RunSummary) error) (*RunSummary, error) {
	start := p.now()

	lock, err := store.Acquire(p.cfg.DataDir)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	summary := &RunSummary{Rejected: make(map[string]int)}
	if err := fn(ctx, summary); err != nil {
		return nil, err
	}
	summary.DurationSeconds = p.now().Sub(start).Seconds()
	return summary, nil
}

// ingest loads drop files, normalizes, and commits newly-seen articles
// into the date bucket for today.
func (p *Pipeline) ingest(summary *RunSummary) error {
	docs, stats, err := p.loader.Load()
	if err != nil {
		return err
	}
	summary.DocumentsLoaded = stats.Documents
	summary.Malformed = stats.Malformed

	batch := p.normalizer.NormalizeBatch(docs)
	summary.Admitted = len(batch.Articles)
	for reason, count := range batch.Rejected {
		summary.Rejected[string(reason)] += count
	}

	p.index.Load()
	fresh, known := p.index.Diff(batch.Articles)
	summary.NewArticles = len(fresh)
	summary.KnownArticles = len(known)

	if err := p.index.Commit(fresh, index.BucketKey(p.now())); err != nil {
		return fmt.Errorf("commit index: %w", err)
	}
	summary.IndexSize = p.index.Size()

	p.log.Info().
		Int("loaded", stats.Documents).
		Int("admitted", summary.Admitted).
		Int("new", len(fresh)).
		Int("known", len(known)).
		Msg("ingest complete")

	return nil
}

// buildCandidates embeds the whole indexed corpus and runs both
// clustering passes: the strict dedup cut for diagnostics and the
// looser candidate cut that feeds scoring. The candidate set is
// persisted for stage-by-stage operation.
func (p *Pipeline) buildCandidates(ctx context.Context, summary *RunSummary) ([]model.ClusterCandidate, error) {
	articles := p.index.LoadArticles()
	if len(articles) == 0 {
		p.log.Info().Msg("no indexed articles, nothing to cluster")
		return nil, p.writeCandidates(nil)
	}

	ids := make([]string, len(articles))
	texts := make([]string, len(articles))
	for i, a := range articles {
		ids[i] = a.ID
		texts[i] = embed.PrepareText(a)
	}

	vecs, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed corpus: %w", err)
	}

	dedup, err := p.builder.Build(ids, vecs, p.cfg.Cluster.DedupThreshold)
	if err != nil {
		return nil, fmt.Errorf("dedup pass: %w", err)
	}
	summary.NearDuplicates = cluster.NearDuplicates(dedup)

	groups, err := p.builder.Build(ids, vecs, p.cfg.Cluster.CandidateThreshold)
	if err != nil {
		return nil, fmt.Errorf("candidate pass: %w", err)
	}

	candidates := cluster.Candidates(groups, articles, p.log)
	summary.Candidates = len(candidates)

	if err := p.writeCandidates(candidates); err != nil {
		return nil, err
	}

	p.log.Info().
		Int("articles", len(articles)).
		Int("near_duplicates", summary.NearDuplicates).
		Int("candidates", len(candidates)).
		Msg("clustering complete")

	return candidates, nil
}

// scoreStories merges the candidates into the persisted story set.
func (p *Pipeline) scoreStories(ctx context.Context, candidates []model.ClusterCandidate, summary *RunSummary) error {
	existing := store.ByClusterID(p.stories.Load())

	stories, stats, err := p.merger.Merge(ctx, candidates, existing)
	if err != nil {
		return err
	}

	if err := p.stories.Replace(stories); err != nil {
		return fmt.Errorf("persist stories: %w", err)
	}

	summary.StoriesExisting = stats.Existing
	summary.StoriesNew = stats.New
	summary.StoriesFailed = stats.Failed
	summary.Candidates = len(candidates)

	p.log.Info().
		Int("existing", stats.Existing).
		Int("new", stats.New).
		Int("failed", stats.Failed).
		Msg("scoring complete")

	return nil
}

func (p *Pipeline) candidatesPath() string {
	return filepath.Join(p.cfg.DataDir, candidatesFileName)
}

func (p *Pipeline) writeCandidates(candidates []model.ClusterCandidate) error {
	if candidates == nil {
		candidates = []model.ClusterCandidate{}
	}
	data, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal candidates: %w", err)
	}
	if err := os.MkdirAll(p.cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(p.cfg.DataDir, ".candidates-*")
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
	if err := os.Rename(tmpName, p.candidatesPath()); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace candidates: %w", err)
	}
	return nil
}

func (p *Pipeline) loadCandidates() ([]model.ClusterCandidate, error) {
	data, err := os.ReadFile(p.candidatesPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no candidate set found; run the cluster stage first")
		}
		return nil, fmt.Errorf("read candidates: %w", err)
	}

	var candidates []model.ClusterCandidate
	if err := json.Unmarshal(data, &candidates); err != nil {
		return nil, fmt.Errorf("parse candidates: %w", err)
	}
	return candidates, nil
}
