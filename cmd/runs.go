package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded import runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsDelete,
}

func init() {
	runsCmd.Flags().IntP("limit", "n", 20, "maximum number of runs to list (0 for all)")
	runsCmd.AddCommand(runsDeleteCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer s.close()

	runs, err := s.store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		s.printer.Info("no runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tDURATION\tMODULES\tWARNINGS\tGRAPH")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
			r.Modules, r.Warnings, r.GraphPath)
	}
	return tw.Flush()
}

func runRunsDelete(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer s.close()

	run, err := s.store.FindRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := s.store.DeleteRun(cmd.Context(), run.ID); err != nil {
		return err
	}
	s.printer.Info("deleted run " + run.ID)
	return nil
}
