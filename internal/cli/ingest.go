package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"document-qa/internal/chunking"
	"document-qa/internal/helper"
	"document-qa/internal/rag"
)

var ingestDryRun bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Chunk and embed documents",
	Long: `Extracts each file, applies the chunk strategy configured for its name and
appends the new chunks to the vector store. Chunks already stored are skipped.
With --dry-run the chunks are printed and nothing is embedded.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "print chunks without storing them")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestDryRun {
		ingestor := rag.NewIngestor(chunking.NewEngine(cfg.RAG.ChunkConfigPath), nil)
		for _, path := range args {
			chunks, err := ingestor.Chunks(path)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			helper.PrettyPrint(cmd.OutOrStdout(), chunks)
		}
		return nil
	}

	a, err := buildApp(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	for _, path := range args {
		res, err := a.ingestor.IngestFile(cmd.Context(), path)
		if err != nil {
			return fmt.Errorf("%s: %w", res.FileName, err)
		}
		cmd.Printf("%s: %d chunks, %d added, %d skipped\n", res.FileName, res.Chunks, res.Added, res.Skipped)
	}
	cmd.Printf("Total vectors: %d\n", a.store.Len())
	return nil
}
