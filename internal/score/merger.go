package score

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"spaceradar/internal/llm"
	"spaceradar/internal/model"
	"spaceradar/internal/worker"
)

// failedSummary is the diagnostic placeholder when narration fails for
// one candidate. The record still exists and ranks by the remaining
// components.
const failedSummary = "Narrative generation failed for this story."

// MergeStats summarizes one merge pass for the run report.
type MergeStats struct {
	Existing int
	New      int
	Failed   int
}

// Merger reconciles a run's cluster candidates against the persisted
// story set. Narration happens at most once per cluster_id, ever:
// existing records keep their narrative and llm score untouched and
// only recency is recomputed.
type Merger struct {
	scorer   *Scorer
	provider llm.Provider
	retrier  *llm.Retrier
	pacer    *worker.Pacer
	workers  int
	log      zerolog.Logger
}

// NewMerger creates a merger. provider may be nil (narration disabled);
// every new candidate then takes the failure path.
func NewMerger(scorer *Scorer, provider llm.Provider, retrier *llm.Retrier, pacer *worker.Pacer, workers int, log zerolog.Logger) *Merger {
	if workers <= 0 {
		workers = 1
	}
	return &Merger{
		scorer:   scorer,
		provider: provider,
		retrier:  retrier,
		pacer:    pacer,
		workers:  workers,
		log:      log,
	}
}

// Merge produces the updated story set: one record per candidate, in
// candidate order. Existing records are updated in place; new ones are
// narrated concurrently, failures isolated per candidate.
func (m *Merger) Merge(ctx context.Context, candidates []model.ClusterCandidate, existing map[string]model.StoryRecord) ([]model.StoryRecord, MergeStats, error) {
	stories := make([]model.StoryRecord, len(candidates))
	var stats MergeStats

	var jobs []worker.Job
	var jobSlots []int

	for i, cand := range candidates {
		if prev, ok := existing[cand.ClusterID]; ok {
			stories[i] = m.refresh(prev, cand)
			stats.Existing++
			continue
		}
		jobs = append(jobs, &narrateJob{merger: m, cand: cand})
		jobSlots = append(jobSlots, i)
	}

	if len(jobs) > 0 {
		results := worker.NewPool(m.workers).Run(ctx, jobs)
		if err := ctx.Err(); err != nil {
			return nil, stats, fmt.Errorf("merge interrupted: %w", err)
		}
		for j, res := range results {
			nr := res.(*narrateResult)
			stories[jobSlots[j]] = nr.record
			stats.New++
			if nr.err != nil {
				stats.Failed++
			}
		}
	}

	return stories, stats, nil
}

// refresh updates an existing record for a still-live cluster: recency
// recomputed, everything narrated or averaged left exactly as stored.
func (m *Merger) refresh(prev model.StoryRecord, cand model.ClusterCandidate) model.StoryRecord {
	rec := prev
	rec.ClusterCandidate = cand
	rec.ScoreComponents.RecencyScore = m.scorer.Recency(cand.Timestamp)
	rec.Score = m.scorer.Composite(rec.ScoreComponents)
	return rec
}

type narrateJob struct {
	merger *Merger
	cand   model.ClusterCandidate
}

type narrateResult struct {
	record model.StoryRecord
	err    error
}

func (r *narrateResult) Err() error { return r.err }

// Execute narrates one new candidate and assembles its story record.
// Any failure, including a disabled provider, degrades to the
// placeholder record rather than propagating.
func (j *narrateJob) Execute(ctx context.Context) worker.Result {
	m := j.merger

	narrative, err := m.narrate(ctx, j.cand)

	rec := model.StoryRecord{
		ClusterCandidate: j.cand,
		ScoreComponents: model.ScoreComponents{
			ReliabilityScore: m.scorer.Reliability(j.cand.Sources),
			RecencyScore:     m.scorer.Recency(j.cand.Timestamp),
		},
	}

	if err != nil {
		m.log.Warn().
			Str("cluster_id", j.cand.ClusterID).
			Err(err).
			Msg("narration failed, writing placeholder record")
		rec.Summary = failedSummary
		rec.Topics = []string{"error"}
	} else {
		rec.Summary = narrative.Summary
		rec.Topics = narrative.Topics
		rec.Because = narrative.Because
		rec.Reasoning = narrative.Reasoning
		rec.ScoreComponents.LLMScore = narrative.Score
	}

	rec.Score = m.scorer.Composite(rec.ScoreComponents)
	return &narrateResult{record: rec, err: err}
}

func (m *Merger) narrate(ctx context.Context, cand model.ClusterCandidate) (*model.Narrative, error) {
	if m.provider == nil {
		return nil, fmt.Errorf("narrative provider disabled")
	}

	var narrative *model.Narrative
	err := m.retrier.Do(ctx, func(ctx context.Context) error {
		if err := m.pacer.Wait(ctx); err != nil {
			return err
		}
		n, err := m.provider.Narrate(ctx, cand)
		if err != nil {
			return err
		}
		narrative = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return narrative, nil
}
