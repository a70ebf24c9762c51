// Package cli is the cobra command surface of spaceradar.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"spaceradar/internal/logging"
	"spaceradar/internal/model"
)

var (
	cfgFile  string
	verbose  bool
	dataDir  string
	dropDir  string
	llmName  string
	llmModel string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "spaceradar",
	Short: "SpaceRadar - deduplicated, clustered, ranked space-industry news",
	Long: `SpaceRadar ingests raw article batches, deduplicates them by
content address, clusters near-duplicate coverage into stories, and
ranks the stories by a composite of narrative, source reliability and
recency scores.

All state lives in plain JSON files under the data directory; the only
network dependency is the optional narrative provider.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("spaceradar v0.2.1")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.spaceradar/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "override the data directory")
	rootCmd.PersistentFlags().StringVar(&dropDir, "drop-dir", "", "override the drop directory")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	_ = viper.BindPFlag("drop_dir", rootCmd.PersistentFlags().Lookup("drop-dir"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	// .env is a convenience for API keys during local runs.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(home + "/.spaceradar")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("SPACERADAR")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// buildConfig layers flags and environment over the defaults and the
// config file.
func buildConfig() *model.Config {
	cfg := model.DefaultConfig()

	// Config file values, when present. viper locates the file; the
	// Config struct is tagged for yaml, so yaml.v3 does the decoding.
	if path := viper.ConfigFileUsed(); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: ignoring malformed config %s: %v\n", path, err)
			}
		}
	}

	if v := viper.GetString("data_dir"); v != "" {
		cfg.DataDir = v
	}
	if v := viper.GetString("drop_dir"); v != "" {
		cfg.DropDir = v
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	if llmName != "" {
		cfg.LLM.Provider = llmName
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.LLM.Provider == "ollama" && cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}

	return cfg
}

func newLogger(cfg *model.Config) (zerolog.Logger, error) {
	return logging.New(cfg.Environment, cfg.LogLevel)
}
