package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import the target graph once and record the run",
	Long: `Loads the target graph, runs every configured pass from scratch and prints
a summary per pass. Warnings are printed as they are found and, with --events,
appended to a JSONL file. The run is stored unless --no-store is given.`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

func init() {
	importCmd.Flags().Bool("json", false, "print the results as JSON on stdout")
	importCmd.Flags().Bool("no-store", false, "do not record the run in the history database")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	noStore, _ := cmd.Flags().GetBool("no-store")
	asJSON, _ := cmd.Flags().GetBool("json")

	s, err := openSession(cmd.Context(), !noStore)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := setupSignalContext(cmd.Context(), s.printer)
	defer cancel()

	_, results, err := s.importOnce(ctx)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	return nil
}
