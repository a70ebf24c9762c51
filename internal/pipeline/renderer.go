package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"spaceradar/internal/model"
)

// TopStories returns the ranked feed: the persisted story set sorted by
// composite score descending. Ties keep cluster id order so the feed is
// stable across reads. limit <= 0 means everything.
func (p *Pipeline) TopStories(limit int) []model.StoryRecord {
	stories := p.stories.Load()

	sort.SliceStable(stories, func(i, j int) bool {
		if stories[i].Score != stories[j].Score {
			return stories[i].Score > stories[j].Score
		}
		return stories[i].ClusterID < stories[j].ClusterID
	})

	if limit > 0 && len(stories) > limit {
		stories = stories[:limit]
	}
	return stories
}

// RenderJSON writes v as indented JSON.
func RenderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// RenderTable writes the ranked feed as an aligned table for terminals.
func RenderTable(w io.Writer, stories []model.StoryRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tSCORE\tSOURCES\tTITLE\tTOPICS")

	for i, s := range stories {
		fmt.Fprintf(tw, "%d\t%.3f\t%d\t%s\t%s\n",
			i+1, s.Score, len(s.MemberIDs), truncate(s.RepTitle, 60), strings.Join(s.Topics, ","))
	}

	return tw.Flush()
}

// RenderSummary writes the end-of-run tally in a compact human form.
func RenderSummary(w io.Writer, s *RunSummary) {
	fmt.Fprintf(w, "documents: %d loaded, %d malformed\n", s.DocumentsLoaded, s.Malformed)
	fmt.Fprintf(w, "articles:  %d admitted, %d new, %d known (index size %d)\n",
		s.Admitted, s.NewArticles, s.KnownArticles, s.IndexSize)

	if len(s.Rejected) > 0 {
		reasons := make([]string, 0, len(s.Rejected))
		for reason := range s.Rejected {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		parts := make([]string, 0, len(reasons))
		for _, reason := range reasons {
			parts = append(parts, fmt.Sprintf("%s=%d", reason, s.Rejected[reason]))
		}
		fmt.Fprintf(w, "rejected:  %s\n", strings.Join(parts, " "))
	}

	fmt.Fprintf(w, "clusters:  %d candidates, %d near-duplicates\n", s.Candidates, s.NearDuplicates)
	fmt.Fprintf(w, "stories:   %d existing, %d new, %d failed\n", s.StoriesExisting, s.StoriesNew, s.StoriesFailed)
	fmt.Fprintf(w, "duration:  %.2fs\n", s.DurationSeconds)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
