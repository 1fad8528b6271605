package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"document-qa/internal/chromemdb"
	"document-qa/internal/helper"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Re-embed every stored chunk",
	Long: `Re-embeds the stored metadata with the configured embedder and replaces the
index. Use after switching embedding models.`,
	Args: cobra.NoArgs,
	RunE: runRebuild,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [file_name]",
	Short: "Remove a document's chunks from the store",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show vector store statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var exportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Export the store to a chromem snapshot",
	Long: `Writes every stored record and vector to a chromem-go export file. Paths
ending in .gz are compressed; rag.encryption_key enables encryption.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import [path]",
	Short: "Replace the store with a chromem snapshot",
	Long: `Reads the records of a chromem-go export file and rebuilds the store from
them with the configured embedder.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(rebuildCmd, deleteCmd, statsCmd, exportCmd, importCmd)
}

func runRebuild(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.Rebuild(cmd.Context(), a.store.Records()); err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}
	cmd.Printf("Rebuilt %d vectors\n", a.store.Len())
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	removed, err := a.store.DeleteFile(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	cmd.Printf("Removed %d chunks of %s\n", removed, args[0])
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	a, err := buildApp(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	helper.PrettyPrint(cmd.OutOrStdout(), a.store.Stats())
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	records, vectors := a.store.Snapshot()
	if err := chromemdb.Export(cmd.Context(), args[0], cfg.RAG.EncryptionKey, records, vectors); err != nil {
		return err
	}
	cmd.Printf("Exported %d records to %s\n", len(records), args[0])
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := chromemdb.Import(cmd.Context(), args[0], cfg.RAG.EncryptionKey)
	if err != nil {
		return err
	}
	if err := a.store.Rebuild(cmd.Context(), records); err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}
	cmd.Printf("Imported %d records from %s\n", a.store.Len(), args[0])
	return nil
}
