package cli

import (
	"os"

	"github.com/spf13/cobra"

	"spaceradar/internal/pipeline"
)

var (
	topLimit int
	topJSON  bool
)

// topCmd renders the ranked story feed.
var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Show the ranked story feed",
	Long: `Top reads the persisted story set and prints it sorted by composite
score, highest first. This is the only read contract the display layer
needs.

Example:
  spaceradar top
  spaceradar top -n 5 --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := buildConfig()

		log, err := newLogger(cfg)
		if err != nil {
			return err
		}

		p, err := pipeline.New(cfg, log)
		if err != nil {
			return err
		}

		stories := p.TopStories(topLimit)
		if topJSON {
			return pipeline.RenderJSON(os.Stdout, stories)
		}
		return pipeline.RenderTable(os.Stdout, stories)
	},
}

func init() {
	topCmd.Flags().IntVarP(&topLimit, "limit", "n", 20, "number of stories to show (0 for all)")
	topCmd.Flags().BoolVar(&topJSON, "json", false, "emit JSON instead of a table")
	rootCmd.AddCommand(topCmd)
}
