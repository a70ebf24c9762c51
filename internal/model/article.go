package model

// RawDocument is one document as delivered by a source collaborator.
// Every field may be empty or missing; the normalizer is the component
// that decides whether the document is usable.
type RawDocument struct {
	Source     string `json:"source"`
	SourceURL  string `json:"source_url"`
	ArticleURL string `json:"article_url"`
	Title      string `json:"title"`
	Timestamp  string `json:"timestamp"`
	FetchedAt  string `json:"fetched_at,omitempty"`
	Text       string `json:"text"`
}

// Article is a normalized, admitted document. ID is the content address
// derived from the canonical URL and title; once an ID is in the index
// it is never re-derived with different content.
type Article struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Timestamp string `json:"timestamp"` // ISO-8601, UTC
	Text      string `json:"text"`
	TextLen   int    `json:"text_len"`
}
