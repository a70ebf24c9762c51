package model

import "time"

// Config is the full dependency-injected configuration for the pipeline.
// There is no ambient/global state: every component receives the slice of
// configuration it needs through its constructor.
type Config struct {
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`

	// DataDir holds the persisted index, candidates and stories.
	DataDir string `yaml:"data_dir"`
	// DropDir is where source collaborators leave raw document batches.
	DropDir string `yaml:"drop_dir"`

	Normalize NormalizeConfig `yaml:"normalize"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Cluster   ClusterConfig   `yaml:"cluster"`
	Score     ScoreConfig     `yaml:"score"`
	LLM       LLMConfig       `yaml:"llm"`
}

// NormalizeConfig holds the quality gates of the normalizer.
type NormalizeConfig struct {
	MinTitleLen  int `yaml:"min_title_len"`
	MinTextLen   int `yaml:"min_text_len"`
	MaxTextLen   int `yaml:"max_text_len"`
	CutoffWindow int `yaml:"cutoff_window"` // tail window scanned for boilerplate cutoff phrases
}

// EmbeddingConfig selects and parameterizes the embedder.
type EmbeddingConfig struct {
	Provider   string        `yaml:"provider"` // "local" or "openai"
	Model      string        `yaml:"model"`
	Dimensions int           `yaml:"dimensions"`
	CacheDir   string        `yaml:"cache_dir"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
}

// ClusterConfig parameterizes the greedy cluster builder.
type ClusterConfig struct {
	TopK int `yaml:"top_k"`
	// DedupThreshold is the strict cut used to report near-duplicate
	// groups; CandidateThreshold is the looser cut that forms the story
	// candidates fed to scoring. Two separate passes, never one.
	DedupThreshold     float64 `yaml:"dedup_threshold"`
	CandidateThreshold float64 `yaml:"candidate_threshold"`
}

// ScoreConfig holds the fixed scoring weights and the per-source
// reliability table.
type ScoreConfig struct {
	LLMWeight         float64            `yaml:"llm_weight"`
	ReliabilityWeight float64            `yaml:"reliability_weight"`
	RecencyWeight     float64            `yaml:"recency_weight"`
	RecencyDecayHours float64            `yaml:"recency_decay_hours"`
	Reliability       map[string]float64 `yaml:"reliability"`
	DefaultReliability float64           `yaml:"default_reliability"`
}

// LLMConfig configures the narrative collaborator client.
type LLMConfig struct {
	Provider string `yaml:"provider"` // "openai", "ollama", "" (disabled)
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`

	Timeout   time.Duration `yaml:"timeout"`
	MaxTokens int           `yaml:"max_tokens"`

	// Bounded retry state machine: attempts and escalating backoff.
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`

	// Pacing between calls, a courtesy to rate-limited endpoints.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Concurrency > 1 narrates new candidates in parallel; calls for the
	// same cluster_id never race because each candidate is one job.
	Concurrency int `yaml:"concurrency"`

	// Proxy settings
	HTTPProxy  string `yaml:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Environment: "local",
		LogLevel:    "info",
		DataDir:     "data/db",
		DropDir:     "data/drops",
		Normalize: NormalizeConfig{
			MinTitleLen:  12,
			MinTextLen:   200,
			MaxTextLen:   10000,
			CutoffWindow: 800,
		},
		Embedding: EmbeddingConfig{
			Provider:   "local",
			Model:      "hash-v1",
			Dimensions: 256,
			CacheDir:   "data/cache/embeddings",
			CacheTTL:   720 * time.Hour,
		},
		Cluster: ClusterConfig{
			TopK:               5,
			DedupThreshold:     0.88,
			CandidateThreshold: 0.7,
		},
		Score: ScoreConfig{
			LLMWeight:          0.6,
			ReliabilityWeight:  0.2,
			RecencyWeight:      0.2,
			RecencyDecayHours:  48,
			Reliability:        DefaultReliability(),
			DefaultReliability: 0.5,
		},
		LLM: LLMConfig{
			Provider:          "", // Disabled by default
			Model:             "",
			Timeout:           120 * time.Second,
			MaxTokens:         1000,
			MaxAttempts:       3,
			InitialBackoff:    2 * time.Second,
			RequestsPerSecond: 1,
			Concurrency:       1,
		},
	}
}

// DefaultReliability is the fixed per-source reliability table. Unknown
// sources fall back to ScoreConfig.DefaultReliability.
func DefaultReliability() map[string]float64 {
	return map[string]float64{
		"NASA":              0.99,
		"NASA Blogs":        0.96,
		"JPL":               0.99,
		"ESA":               0.99,
		"ESA Webb":          0.98,
		"SpaceNews":         0.92,
		"Spaceflight Now":   0.9,
		"SpaceflightNow":    0.9,
		"NOAA NESDIS":       0.99,
		"Nature Astronomy":  0.97,
		"arXiv astro-ph.EP": 0.9,
		"arXiv astro-ph.IM": 0.9,
		"arXiv astro-ph.GA": 0.9,
		"Planetary Society": 0.93,
		"SpaceX Updates":    0.95,
		"CNSA Watch":        0.85,
	}
}
