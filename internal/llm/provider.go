// Package llm talks to the narrative collaborator: an LLM asked to
// summarize, tag and score one story cluster at a time. Replies are
// structured JSON; everything here is built to survive the ways real
// models bend that contract.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"spaceradar/internal/model"
)

// Provider generates one narrative per cluster candidate.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Narrate produces the summary, topics and llm score for a candidate.
	Narrate(ctx context.Context, cand model.ClusterCandidate) (*model.Narrative, error)
}

// maxRepTextChars bounds the representative text in the prompt; member
// articles contribute titles only.
const maxRepTextChars = 4000

// BuildPrompt renders a candidate into the narration prompt. The model
// sees the representative's title and text plus every member's title and
// source, and is asked for strict JSON.
func BuildPrompt(cand model.ClusterCandidate) string {
	var b strings.Builder

	b.WriteString(`You are ranking space-industry news stories. Given one story cluster, reply with a single JSON object and nothing else:

{"score": <0.0-1.0 importance for a space-industry audience>, "summary": "<2-3 sentence summary>", "topics": ["<up to 5 short topic tags>"], "because": "<one sentence on why this matters now>", "reasoning": "<one sentence on how you judged importance>"}

Representative article:
`)
	fmt.Fprintf(&b, "Title: %s\n", cand.RepTitle)

	text := cand.RepText
	if len(text) > maxRepTextChars {
		text = text[:maxRepTextChars]
	}
	fmt.Fprintf(&b, "Text: %s\n", text)

	if len(cand.Articles) > 1 {
		b.WriteString("\nOther coverage of the same story:\n")
		for _, a := range cand.Articles {
			if a.ID == cand.RepID {
				continue
			}
			fmt.Fprintf(&b, "- %s (%s)\n", a.Title, a.Source)
		}
	}

	b.WriteString("\nReply with the JSON object only.")
	return b.String()
}

// ParseNarrative extracts the JSON object from a model reply. Models
// wrap JSON in code fences or chat around it; the parser takes the
// first balanced object it finds and validates the required fields.
func ParseNarrative(reply string) (*model.Narrative, error) {
	raw, err := extractJSON(reply)
	if err != nil {
		return nil, err
	}

	var n model.Narrative
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		return nil, fmt.Errorf("parse narrative JSON: %w", err)
	}

	if n.Summary == "" {
		return nil, fmt.Errorf("narrative reply missing summary")
	}
	if n.Score < 0 {
		n.Score = 0
	}
	if n.Score > 1 {
		n.Score = 1
	}
	return &n, nil
}

// extractJSON returns the first balanced top-level JSON object in text.
// Braces inside string literals are skipped.
func extractJSON(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object in reply")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced JSON object in reply")
}
