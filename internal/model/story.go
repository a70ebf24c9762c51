package model

// MemberArticle is the per-member view carried inside a cluster candidate.
type MemberArticle struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Source    string `json:"source"`
	URL       string `json:"url"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// ClusterCandidate is one story grouping produced by the cluster builder.
// ClusterID equals RepID, the first-encountered member; it is the stable
// merge key across runs.
type ClusterCandidate struct {
	ClusterID string   `json:"cluster_id"`
	RepID     string   `json:"rep_id"`
	MemberIDs []string `json:"member_ids"`
	// Sims holds each member's cosine similarity to the representative,
	// aligned with MemberIDs.
	Sims []float64 `json:"sim"`

	RepTitle   string          `json:"rep_title"`
	RepText    string          `json:"rep_text"`
	Timestamp  string          `json:"timestamp"`
	Sources    []string        `json:"sources"`
	URLs       []string        `json:"urls"`
	Articles   []MemberArticle `json:"articles"`
}

// ScoreComponents breaks the composite ranking score into its factors.
// All components live in [0,1]; recency is clamped so future-dated
// representatives score as "now".
type ScoreComponents struct {
	LLMScore         float64 `json:"llm_score"`
	ReliabilityScore float64 `json:"reliability_score"`
	RecencyScore     float64 `json:"recency_score"`
}

// Narrative is the structured reply of the narrative collaborator. The
// core treats the text fields as opaque payloads: it persists and merges
// them but never inspects their content. Score is the one field the core
// consumes, as the llm component of the composite score.
type Narrative struct {
	Because   string   `json:"because"`
	Summary   string   `json:"summary"`
	Topics    []string `json:"topics"`
	Score     float64  `json:"score"`
	Reasoning string   `json:"reasoning"`
}

// StoryRecord is a ClusterCandidate enriched with narrative and scoring
// fields. Records are keyed by ClusterID; an existing record is updated
// in place on later runs (recency only) rather than recreated.
type StoryRecord struct {
	ClusterCandidate

	Summary   string   `json:"summary"`
	Topics    []string `json:"topics"`
	Because   string   `json:"because"`
	Reasoning string   `json:"reasoning"`

	Score           float64         `json:"score"`
	ScoreComponents ScoreComponents `json:"score_components"`
}
