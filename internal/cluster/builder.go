// Package cluster groups embedded articles into stories with a greedy
// single-pass top-k cosine scan. The result is a partition: every input
// article lands in exactly one cluster, with unclaimed articles becoming
// singletons.
package cluster

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"spaceradar/internal/model"
)

// Cluster is one group produced by Build. The representative is the
// earliest unclaimed article in input order; Sims holds the cosine
// similarity of each member to the representative (1.0 for the rep
// itself).
type Cluster struct {
	ClusterID string
	RepID     string
	MemberIDs []string
	Sims      []float64
}

// Builder runs the greedy clustering passes.
type Builder struct {
	topK int
	log  zerolog.Logger
}

// New creates a Builder. topK bounds how many nearest neighbors a
// representative may claim in one pass.
func New(topK int, log zerolog.Logger) *Builder {
	if topK <= 0 {
		topK = 5
	}
	return &Builder{topK: topK, log: log}
}

// Build partitions the articles. ids and vecs are parallel slices; the
// scan walks ids in order, so input order shapes the grouping. Articles
// already claimed by an earlier representative are skipped both as
// representatives and as neighbor candidates, which is what makes the
// result a partition rather than overlapping neighborhoods.
func (b *Builder) Build(ids []string, vecs [][]float32, threshold float64) ([]Cluster, error) {
	if len(ids) != len(vecs) {
		return nil, fmt.Errorf("ids/vectors length mismatch: %d vs %d", len(ids), len(vecs))
	}
	if len(ids) == 0 {
		return []Cluster{}, nil
	}

	claimed := make([]bool, len(ids))
	clusters := make([]Cluster, 0, len(ids))

	for i := range ids {
		if claimed[i] {
			continue
		}
		claimed[i] = true

		c := Cluster{
			ClusterID: "c_" + ids[i],
			RepID:     ids[i],
			MemberIDs: []string{ids[i]},
			Sims:      []float64{1.0},
		}

		for _, n := range b.nearest(i, vecs, claimed, threshold) {
			claimed[n.idx] = true
			c.MemberIDs = append(c.MemberIDs, ids[n.idx])
			c.Sims = append(c.Sims, n.sim)
		}

		clusters = append(clusters, c)
	}

	b.log.Debug().
		Int("articles", len(ids)).
		Int("clusters", len(clusters)).
		Float64("threshold", threshold).
		Msg("clustering pass complete")

	return clusters, nil
}

type neighbor struct {
	idx int
	sim float64
}

// nearest returns up to topK unclaimed neighbors of vecs[i] at or above
// the threshold, most similar first. Ties keep input order: the sort is
// stable over a slice built in index order.
func (b *Builder) nearest(i int, vecs [][]float32, claimed []bool, threshold float64) []neighbor {
	var found []neighbor
	for j := range vecs {
		if j == i || claimed[j] {
			continue
		}
		sim := Cosine(vecs[i], vecs[j])
		if sim >= threshold {
			found = append(found, neighbor{idx: j, sim: sim})
		}
	}

	sort.SliceStable(found, func(a, b int) bool {
		return found[a].sim > found[b].sim
	})

	if len(found) > b.topK {
		found = found[:b.topK]
	}
	return found
}

// Cosine returns the cosine similarity of two vectors. Inputs are
// expected unit-norm, so this is a plain dot product; mismatched
// lengths or empty vectors score zero.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// NearDuplicates counts, per cluster, the members sitting above the
// dedup threshold relative to their representative. It feeds the run
// summary; nothing is removed.
func NearDuplicates(clusters []Cluster) int {
	total := 0
	for _, c := range clusters {
		total += len(c.MemberIDs) - 1
	}
	return total
}

// Candidates projects clusters onto the scoring input shape, joining in
// the article records by id. Unknown member ids are skipped with a
// warning rather than failing the run.
func Candidates(clusters []Cluster, articles []model.Article, log zerolog.Logger) []model.ClusterCandidate {
	byID := make(map[string]model.Article, len(articles))
	for _, a := range articles {
		byID[a.ID] = a
	}

	candidates := make([]model.ClusterCandidate, 0, len(clusters))
	for _, c := range clusters {
		rep, ok := byID[c.RepID]
		if !ok {
			log.Warn().Str("rep_id", c.RepID).Msg("cluster representative missing from article set, skipping cluster")
			continue
		}

		cand := model.ClusterCandidate{
			ClusterID: c.ClusterID,
			RepID:     c.RepID,
			RepTitle:  rep.Title,
			RepText:   rep.Text,
			Timestamp: rep.Timestamp,
		}

		for i, id := range c.MemberIDs {
			a, ok := byID[id]
			if !ok {
				log.Warn().Str("id", id).Str("cluster_id", c.ClusterID).Msg("cluster member missing from article set, skipping member")
				continue
			}
			cand.MemberIDs = append(cand.MemberIDs, id)
			cand.Sims = append(cand.Sims, c.Sims[i])
			cand.Sources = append(cand.Sources, a.Source)
			cand.URLs = append(cand.URLs, a.URL)
			cand.Articles = append(cand.Articles, model.MemberArticle{
				ID:        a.ID,
				Title:     a.Title,
				Source:    a.Source,
				URL:       a.URL,
				Text:      a.Text,
				Timestamp: a.Timestamp,
			})
		}

		candidates = append(candidates, cand)
	}

	return candidates
}
