package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"spaceradar/internal/pipeline"
)

var (
	runTimeout time.Duration
	summaryOut string
)

// runCmd executes the full batch: ingest, cluster, score.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: ingest, cluster, score",
	Long: `Run loads raw document batches from the drop directory, normalizes
and deduplicates them into the incremental index, clusters the indexed
corpus into story candidates, and merges the candidates into the
persisted, scored story set.

Example:
  spaceradar run
  spaceradar run --llm openai --llm-model gpt-4o-mini
  spaceradar run --data-dir /var/lib/spaceradar --summary-json summary.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.RunSummary, error) {
			return p.Run(ctx)
		})
	},
}

// ingestCmd runs only the intake stage.
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Normalize and index new documents from the drop directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.RunSummary, error) {
			return p.Ingest(ctx)
		})
	},
}

// clusterCmd runs only the clustering stage.
var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Cluster the indexed corpus into story candidates",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.RunSummary, error) {
			return p.Cluster(ctx)
		})
	},
}

// scoreCmd runs only the scoring stage.
var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score and merge the current candidate set into stories",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.RunSummary, error) {
			return p.Score(ctx)
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{runCmd, ingestCmd, clusterCmd, scoreCmd} {
		cmd.Flags().DurationVar(&runTimeout, "timeout", 30*time.Minute, "overall batch timeout")
		cmd.Flags().StringVar(&llmName, "llm", "", "narrative provider (openai, ollama; empty disables narration)")
		cmd.Flags().StringVar(&llmModel, "llm-model", "", "narrative model name")
		cmd.Flags().StringVar(&summaryOut, "summary-json", "", "also write the run summary as JSON to this path")
		rootCmd.AddCommand(cmd)
	}
}

func runStage(stage func(context.Context, *pipeline.Pipeline) (*pipeline.RunSummary, error)) error {
	cfg := buildConfig()

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	p, err := pipeline.New(cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	summary, err := stage(ctx, p)
	if err != nil {
		return err
	}

	pipeline.RenderSummary(os.Stdout, summary)

	if summaryOut != "" {
		f, err := os.Create(summaryOut)
		if err != nil {
			return fmt.Errorf("create summary file: %w", err)
		}
		defer func() { _ = f.Close() }()
		if err := pipeline.RenderJSON(f, summary); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	return nil
}
