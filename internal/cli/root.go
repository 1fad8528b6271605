// Package cli implements the docqa command line.
package cli

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"document-qa/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Question answering over ingested documents",
	Long: `docqa chunks PDF, office and CSV documents, stores their embeddings in a
local vector index and answers questions with the closest stored chunk.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultConfigPath, "path to the YAML config file")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig(_ *cobra.Command, _ []string) error {
	c, err := config.LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	cfg = c
	return setLogLevel(cfg.LogLevel)
}

func setLogLevel(level string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}
