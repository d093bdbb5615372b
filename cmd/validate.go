package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/resgraph/internal/config"
	"github.com/papapumpkin/resgraph/internal/targetgraph"
	"github.com/papapumpkin/resgraph/internal/ui"
)

var errGraphProblems = errors.New("graph has dangling dependencies or cycles")

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the target graph for dangling dependencies and cycles",
	Long: `Loads the target graph and reports dependency edges that point at missing
targets and dependency cycles. Imports tolerate both; this command exits
non-zero so they can be caught in CI.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		g, err := targetgraph.Load(cfg.GraphPath)
		if err != nil {
			return err
		}
		if ok := ui.New().Diagnostics(cfg.GraphPath, g.Len(), targetgraph.Diagnose(g)); !ok {
			return errGraphProblems
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
