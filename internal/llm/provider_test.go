package llm

import (
	"strings"
	"testing"

	"spaceradar/internal/model"
)

func TestParseNarrative(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		wantErr bool
		check   func(t *testing.T, n *model.Narrative)
	}{
		{
			name:  "clean JSON",
			reply: `{"score": 0.8, "summary": "Water plumes confirmed.", "topics": ["europa", "water"], "because": "Major discovery.", "reasoning": "Multiple sources."}`,
			check: func(t *testing.T, n *model.Narrative) {
				if n.Score != 0.8 {
					t.Errorf("score = %v, want 0.8", n.Score)
				}
				if n.Summary != "Water plumes confirmed." {
					t.Errorf("summary = %q", n.Summary)
				}
				if len(n.Topics) != 2 || n.Topics[0] != "europa" {
					t.Errorf("topics = %v", n.Topics)
				}
			},
		},
		{
			name: "fenced JSON",
			reply: "Here is the result:\n```json\n" +
				`{"score": 0.5, "summary": "A launch happened.", "topics": ["launch"], "because": "b", "reasoning": "r"}` +
				"\n```\nHope that helps!",
			check: func(t *testing.T, n *model.Narrative) {
				if n.Score != 0.5 || n.Summary != "A launch happened." {
					t.Errorf("parsed %+v", n)
				}
			},
		},
		{
			name:  "braces inside strings",
			reply: `{"score": 0.4, "summary": "Uses {braces} and \"quotes\".", "topics": [], "because": "", "reasoning": ""}`,
			check: func(t *testing.T, n *model.Narrative) {
				if !strings.Contains(n.Summary, "{braces}") {
					t.Errorf("summary = %q", n.Summary)
				}
			},
		},
		{
			name:  "score clamped high",
			reply: `{"score": 7.5, "summary": "s", "topics": [], "because": "", "reasoning": ""}`,
			check: func(t *testing.T, n *model.Narrative) {
				if n.Score != 1 {
					t.Errorf("score = %v, want 1", n.Score)
				}
			},
		},
		{
			name:  "score clamped low",
			reply: `{"score": -2, "summary": "s", "topics": [], "because": "", "reasoning": ""}`,
			check: func(t *testing.T, n *model.Narrative) {
				if n.Score != 0 {
					t.Errorf("score = %v, want 0", n.Score)
				}
			},
		},
		{
			name:    "missing summary",
			reply:   `{"score": 0.5, "topics": []}`,
			wantErr: true,
		},
		{
			name:    "no JSON at all",
			reply:   "I cannot produce JSON for this story.",
			wantErr: true,
		},
		{
			name:    "unbalanced object",
			reply:   `{"score": 0.5, "summary": "truncated`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := ParseNarrative(tt.reply)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseNarrative: %v", err)
			}
			tt.check(t, n)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	cand := model.ClusterCandidate{
		ClusterID: "c_abc",
		RepID:     "abc",
		RepTitle:  "NASA Confirms Water on Europa",
		RepText:   "Plumes of water vapor were observed.",
		Articles: []model.MemberArticle{
			{ID: "abc", Title: "NASA Confirms Water on Europa", Source: "NASA"},
			{ID: "def", Title: "Europa Plumes Spotted Again", Source: "ESA"},
		},
	}

	prompt := BuildPrompt(cand)

	if !strings.Contains(prompt, "NASA Confirms Water on Europa") {
		t.Error("prompt missing representative title")
	}
	if !strings.Contains(prompt, "Plumes of water vapor") {
		t.Error("prompt missing representative text")
	}
	if !strings.Contains(prompt, "Europa Plumes Spotted Again (ESA)") {
		t.Error("prompt missing member coverage line")
	}
	if strings.Count(prompt, "NASA Confirms Water on Europa") != 1 {
		t.Error("representative repeated in member coverage")
	}
}

func TestBuildPromptTruncatesLongText(t *testing.T) {
	cand := model.ClusterCandidate{
		RepTitle: "Long story",
		RepText:  strings.Repeat("x", maxRepTextChars*2),
	}
	prompt := BuildPrompt(cand)
	if len(prompt) > maxRepTextChars+2000 {
		t.Errorf("prompt length %d, representative text not truncated", len(prompt))
	}
}

func TestNewProviderFactory(t *testing.T) {
	p, err := NewProvider(model.LLMConfig{Provider: ""})
	if err != nil || p != nil {
		t.Errorf("disabled provider: got %v, %v; want nil, nil", p, err)
	}

	if _, err := NewProvider(model.LLMConfig{Provider: "gemini"}); err == nil {
		t.Error("unknown provider did not error")
	}

	p, err = NewProvider(model.LLMConfig{Provider: "ollama", Model: "llama3.1:8b"})
	if err != nil {
		t.Fatalf("ollama provider: %v", err)
	}
	if p.Name() != "ollama" {
		t.Errorf("name = %s", p.Name())
	}

	if _, err := NewProvider(model.LLMConfig{Provider: "openai"}); err == nil {
		t.Error("openai without API key did not error")
	}
}
