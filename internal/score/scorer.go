// Package score turns cluster candidates into ranked story records:
// composite scoring plus the run-to-run merge against the persisted
// story set.
package score

import (
	"math"
	"time"

	"spaceradar/internal/model"
)

// Scorer computes the individual score components and their weighted
// composite. Weights are fixed configuration, never derived.
type Scorer struct {
	cfg model.ScoreConfig
	now func() time.Time
}

// NewScorer creates a scorer; now is injectable for tests and defaults
// to time.Now.
func NewScorer(cfg model.ScoreConfig, now func() time.Time) *Scorer {
	if now == nil {
		now = time.Now
	}
	return &Scorer{cfg: cfg, now: now}
}

// Recency maps the representative timestamp to an exponential decay in
// (0,1]. Future-dated timestamps score as "now": hours are floored at
// zero rather than letting the exponent exceed 1. An unparsable
// timestamp scores zero.
func (s *Scorer) Recency(timestamp string) float64 {
	t, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return 0
	}

	hours := s.now().UTC().Sub(t.UTC()).Hours()
	if hours < 0 {
		hours = 0
	}

	decay := s.cfg.RecencyDecayHours
	if decay <= 0 {
		decay = 48
	}
	return math.Exp(-hours / decay)
}

// Reliability averages the per-source table over a candidate's member
// sources; unknown sources take the default. No sources at all also
// yields the default.
func (s *Scorer) Reliability(sources []string) float64 {
	if len(sources) == 0 {
		return s.cfg.DefaultReliability
	}

	var sum float64
	for _, src := range sources {
		if v, ok := s.cfg.Reliability[src]; ok {
			sum += v
		} else {
			sum += s.cfg.DefaultReliability
		}
	}
	return sum / float64(len(sources))
}

// Composite combines the components under the fixed weights.
func (s *Scorer) Composite(c model.ScoreComponents) float64 {
	return s.cfg.LLMWeight*c.LLMScore +
		s.cfg.ReliabilityWeight*c.ReliabilityScore +
		s.cfg.RecencyWeight*c.RecencyScore
}
