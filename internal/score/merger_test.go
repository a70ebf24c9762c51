package score

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"spaceradar/internal/llm"
	"spaceradar/internal/model"
	"spaceradar/internal/worker"
)

// fakeProvider narrates from a canned table; cluster ids listed in fail
// always error.
type fakeProvider struct {
	mu         sync.Mutex
	narratives map[string]*model.Narrative
	fail       map[string]bool
	calls      map[string]int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		narratives: make(map[string]*model.Narrative),
		fail:       make(map[string]bool),
		calls:      make(map[string]int),
	}
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Narrate(_ context.Context, cand model.ClusterCandidate) (*model.Narrative, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[cand.ClusterID]++
	if f.fail[cand.ClusterID] {
		return nil, errors.New("collaborator timeout")
	}
	if n, ok := f.narratives[cand.ClusterID]; ok {
		return n, nil
	}
	return &model.Narrative{Summary: "canned summary", Topics: []string{"space"}, Score: 0.7}, nil
}

func testMerger(provider llm.Provider, workers int) *Merger {
	scorer := NewScorer(testScoreConfig(), fixedNow)
	retrier := llm.NewRetrier(1, time.Millisecond)
	pacer := worker.NewPacer(0, 0)
	return NewMerger(scorer, provider, retrier, pacer, workers, zerolog.Nop())
}

func candidate(id string, sources ...string) model.ClusterCandidate {
	return model.ClusterCandidate{
		ClusterID: "c_" + id,
		RepID:     id,
		MemberIDs: []string{id},
		Sims:      []float64{1.0},
		Timestamp: "2024-01-10T12:00:00+00:00",
		Sources:   sources,
	}
}

func TestMergeNewCandidates(t *testing.T) {
	provider := newFakeProvider()
	m := testMerger(provider, 1)

	cands := []model.ClusterCandidate{candidate("a", "NASA"), candidate("b", "Random Blog")}
	stories, stats, err := m.Merge(context.Background(), cands, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if stats.New != 2 || stats.Existing != 0 || stats.Failed != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if len(stories) != 2 {
		t.Fatalf("got %d stories", len(stories))
	}

	a := stories[0]
	if a.ClusterID != "c_a" || a.Summary != "canned summary" {
		t.Errorf("story a = %+v", a)
	}
	if !almostEqual(a.ScoreComponents.LLMScore, 0.7) {
		t.Errorf("llm score = %v", a.ScoreComponents.LLMScore)
	}
	if !almostEqual(a.ScoreComponents.ReliabilityScore, 0.99) {
		t.Errorf("reliability = %v", a.ScoreComponents.ReliabilityScore)
	}
	if !almostEqual(a.ScoreComponents.RecencyScore, 1.0) {
		t.Errorf("recency = %v", a.ScoreComponents.RecencyScore)
	}
	want := 0.6*0.7 + 0.2*0.99 + 0.2*1.0
	if !almostEqual(a.Score, want) {
		t.Errorf("score = %v, want %v", a.Score, want)
	}
}

func TestMergeFailureIsolation(t *testing.T) {
	// One of three collaborator calls fails: three records still come
	// out, with the failing one degraded.
	provider := newFakeProvider()
	provider.fail["c_b"] = true
	m := testMerger(provider, 1)

	cands := []model.ClusterCandidate{
		candidate("a", "NASA"),
		candidate("b", "NASA"),
		candidate("c", "ESA"),
	}
	stories, stats, err := m.Merge(context.Background(), cands, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if len(stories) != 3 {
		t.Fatalf("got %d stories, want 3", len(stories))
	}
	if stats.New != 3 || stats.Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}

	failed := stories[1]
	if failed.ScoreComponents.LLMScore != 0 {
		t.Errorf("failed llm score = %v, want 0", failed.ScoreComponents.LLMScore)
	}
	if len(failed.Topics) != 1 || failed.Topics[0] != "error" {
		t.Errorf("failed topics = %v, want [error]", failed.Topics)
	}
	if failed.Summary == "" || failed.Summary == "canned summary" {
		t.Errorf("failed summary = %q, want placeholder", failed.Summary)
	}
	// Other components still contribute to the composite.
	if failed.Score == 0 {
		t.Error("failed record has zero composite score")
	}

	for _, i := range []int{0, 2} {
		if stories[i].Summary != "canned summary" {
			t.Errorf("story %d degraded by neighbor failure: %+v", i, stories[i])
		}
	}
}

func TestMergeExistingSkipsNarration(t *testing.T) {
	provider := newFakeProvider()
	m := testMerger(provider, 1)

	cand := candidate("a", "NASA")
	existing := map[string]model.StoryRecord{
		"c_a": {
			ClusterCandidate: cand,
			Summary:          "original summary",
			Topics:           []string{"europa"},
			Because:          "original because",
			Reasoning:        "original reasoning",
			ScoreComponents: model.ScoreComponents{
				LLMScore:         0.9,
				ReliabilityScore: 0.99,
				RecencyScore:     0.3,
			},
		},
	}

	stories, stats, err := m.Merge(context.Background(), []model.ClusterCandidate{cand}, existing)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if stats.Existing != 1 || stats.New != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if provider.calls["c_a"] != 0 {
		t.Errorf("existing cluster narrated %d times, want 0", provider.calls["c_a"])
	}

	s := stories[0]
	if s.Summary != "original summary" || s.Because != "original because" || s.Reasoning != "original reasoning" {
		t.Errorf("narrative fields changed: %+v", s)
	}
	if s.ScoreComponents.LLMScore != 0.9 || s.ScoreComponents.ReliabilityScore != 0.99 {
		t.Errorf("stored scores changed: %+v", s.ScoreComponents)
	}
	// Recency recomputed against the injected clock.
	if !almostEqual(s.ScoreComponents.RecencyScore, 1.0) {
		t.Errorf("recency = %v, want recomputed 1.0", s.ScoreComponents.RecencyScore)
	}
	want := 0.6*0.9 + 0.2*0.99 + 0.2*1.0
	if !almostEqual(s.Score, want) {
		t.Errorf("score = %v, want %v", s.Score, want)
	}
}

func TestMergeDisabledProviderDegrades(t *testing.T) {
	m := testMerger(nil, 1)

	stories, stats, err := m.Merge(context.Background(), []model.ClusterCandidate{candidate("a", "NASA")}, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if stats.Failed != 1 {
		t.Errorf("stats = %+v, want 1 failed", stats)
	}
	if stories[0].Topics[0] != "error" || stories[0].ScoreComponents.LLMScore != 0 {
		t.Errorf("degraded record = %+v", stories[0])
	}
}

func TestMergeConcurrentPreservesOrder(t *testing.T) {
	provider := newFakeProvider()
	m := testMerger(provider, 4)

	var cands []model.ClusterCandidate
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		c := candidate(id, "NASA")
		provider.narratives[c.ClusterID] = &model.Narrative{Summary: "summary " + id, Topics: []string{id}, Score: 0.5}
		cands = append(cands, c)
	}

	stories, _, err := m.Merge(context.Background(), cands, nil)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	for i, s := range stories {
		if s.ClusterID != cands[i].ClusterID {
			t.Errorf("story %d is %s, want %s", i, s.ClusterID, cands[i].ClusterID)
		}
		if want := "summary " + cands[i].RepID; s.Summary != want {
			t.Errorf("story %d summary = %q, want %q", i, s.Summary, want)
		}
	}
}
